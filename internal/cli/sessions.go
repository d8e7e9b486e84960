// sessions.go implements "tether sessions", the indexed session listing.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tether-dev/tether/internal/claudedir"
	"github.com/tether-dev/tether/internal/index"
)

var sessionsLimit int

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List Claude Code sessions across all projects",
	Long: `Scan the CLI's projects directory, refresh the session index, and
list sessions newest first with message counts and cost.`,
	RunE: runSessions,
}

func init() {
	sessionsCmd.Flags().IntVar(&sessionsLimit, "limit", 20, "Maximum sessions to list (0 = all)")
}

// indexPath returns the location of the shared session index database.
func indexPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	dir := filepath.Join(home, ".tether")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}
	return filepath.Join(dir, "index.db"), nil
}

func runSessions(cmd *cobra.Command, args []string) error {
	dir, err := claudedir.Default()
	if err != nil {
		return err
	}

	dbPath, err := indexPath()
	if err != nil {
		return err
	}
	store, err := index.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	skipped, err := store.Reindex(dir)
	if err != nil {
		return err
	}
	if Verbose() {
		for _, path := range skipped {
			fmt.Fprintln(os.Stderr, errStyle.Render("skipped: "+path))
		}
	}

	summaries, err := store.Sessions(sessionsLimit)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println("No sessions found.")
		return nil
	}

	width := termWidth()
	fmt.Println(titleStyle.Render("Sessions"))
	for _, sum := range summaries {
		line := fmt.Sprintf("  %s  %4d msgs  %s",
			sum.SessionID,
			sum.Messages,
			costStyle.Render(fmt.Sprintf("$%.4f", sum.CostUSD)),
		)
		fmt.Println(truncate(line, width))
		fmt.Println(dimStyle.Render(truncate("    "+sum.Project, width)))
	}
	return nil
}
