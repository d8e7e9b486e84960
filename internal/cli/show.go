// show.go implements "tether show", detailed inspection of one session.
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tether-dev/tether/internal/analytics"
	"github.com/tether-dev/tether/internal/claudedir"
	"github.com/tether-dev/tether/internal/parser"
)

var showCmd = &cobra.Command{
	Use:   "show <session-log-or-id>",
	Short: "Show one session's metadata, stats, and tool executions",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	sess, err := resolveSession(args[0])
	if err != nil {
		return err
	}

	meta := sess.Meta
	fmt.Println(titleStyle.Render("Session " + sess.SessionID))
	fmt.Printf("  Messages:  %d (%d user, %d assistant)\n",
		meta.TotalMessages, meta.UserMessages, meta.AssistantMessages)
	fmt.Printf("  Cost:      %s\n", costStyle.Render(fmt.Sprintf("$%.4f", meta.TotalCostUSD)))
	fmt.Printf("  Tokens:    %d in / %d out\n", meta.TotalInputTokens, meta.TotalOutputTokens)
	if !meta.FirstMessageTime.IsZero() {
		fmt.Printf("  Duration:  %s\n", meta.Duration)
	}
	if len(meta.Models) > 0 {
		fmt.Printf("  Models:    %s\n", strings.Join(meta.Models, ", "))
	}
	if len(meta.UniqueToolsUsed) > 0 {
		fmt.Printf("  Tools:     %s\n", strings.Join(meta.UniqueToolsUsed, ", "))
	}

	stats := analytics.Stats(sess)
	fmt.Println()
	fmt.Println(titleStyle.Render("Conversation"))
	fmt.Printf("  Main chain: %d messages, max depth %d, %d leaves\n",
		stats.MainChainLength, stats.MaxDepth, stats.LeafCount)
	if stats.OrphanCount > 0 {
		fmt.Printf("  Orphans:    %d\n", stats.OrphanCount)
	}

	executions := analytics.ToolExecutions(sess)
	if len(executions) > 0 {
		fmt.Println()
		fmt.Println(titleStyle.Render("Tool executions"))
		width := termWidth()
		for _, exec := range executions {
			status := "ok"
			if !exec.Success {
				status = errStyle.Render("failed")
			}
			fmt.Println(truncate(fmt.Sprintf("  %-12s %-6s %s", exec.ToolName, status, exec.Duration), width))
		}
	}

	if Verbose() && len(sess.Warnings) > 0 {
		fmt.Println()
		fmt.Println(titleStyle.Render("Warnings"))
		for _, w := range sess.Warnings {
			fmt.Println(errStyle.Render("  " + w.String()))
		}
	}
	return nil
}

// resolveSession accepts a log path or a session id to look up across
// all projects.
func resolveSession(arg string) (*parser.Session, error) {
	if strings.HasSuffix(arg, ".jsonl") {
		return parser.ParseFile(arg, nil)
	}

	dir, err := claudedir.Default()
	if err != nil {
		return nil, err
	}
	paths, err := dir.FindSessions()
	if err != nil {
		return nil, err
	}
	for _, path := range paths {
		sess, err := parser.ParseFile(path, nil)
		if err != nil {
			continue
		}
		if sess.SessionID == arg {
			return sess, nil
		}
	}
	return nil, fmt.Errorf("session %q: %w", arg, claudedir.ErrNoSessionFound)
}
