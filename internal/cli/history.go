// history.go implements "tether history", listing recorded transitions.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tether-dev/tether/internal/recorder"
)

var historyWorkspace string

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List transitions recorded in a workspace",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyWorkspace, "workspace", "", "Workspace directory (default: current directory)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	dir := historyWorkspace
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting current directory: %w", err)
		}
		dir = cwd
	}

	transitions, err := recorder.LoadAll(dir)
	if err != nil {
		return err
	}
	if len(transitions) == 0 {
		fmt.Println("No recorded transitions.")
		return nil
	}

	width := termWidth()
	fmt.Println(titleStyle.Render("Transitions"))
	for _, t := range transitions {
		prompt := t.Prompt.Text
		cost := 0.0
		session := ""
		if t.Execution != nil {
			cost = t.Execution.CostUSD
			session = t.Execution.SessionID
		}
		fmt.Println(truncate(fmt.Sprintf("  %s  %s  %s",
			t.RecordedAt.Format("2006-01-02 15:04:05"),
			costStyle.Render(fmt.Sprintf("$%.4f", cost)),
			prompt,
		), width))
		fmt.Println(dimStyle.Render(truncate("    session "+session, width)))
	}
	return nil
}
