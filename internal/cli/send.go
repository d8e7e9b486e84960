// send.go implements "tether send", a one-shot conversation turn.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tether-dev/tether/internal/workspace"
)

var (
	sendWorkspace    string
	sendRecord       bool
	sendAllowedTools string
	sendModel        string
)

var sendCmd = &cobra.Command{
	Use:   "send <prompt>",
	Short: "Send one prompt to Claude and print the transition",
	Long: `Run a single conversation turn in the given workspace: snapshot,
execute the CLI, snapshot again, and print the result. With --record the
transition is also appended to .tether/transitions/.`,
	Args: cobra.ExactArgs(1),
	RunE: runSend,
}

func init() {
	sendCmd.Flags().StringVar(&sendWorkspace, "workspace", "", "Workspace directory (default: current directory)")
	sendCmd.Flags().BoolVar(&sendRecord, "record", false, "Persist the transition to .tether/transitions/")
	sendCmd.Flags().StringVar(&sendAllowedTools, "allowed-tools", "", "csv passed to --allowedTools")
	sendCmd.Flags().StringVar(&sendModel, "model", "", "Model override")
}

func runSend(cmd *cobra.Command, args []string) error {
	dir := sendWorkspace
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting current directory: %w", err)
		}
		dir = cwd
	}

	ws, err := workspace.New(dir)
	if err != nil {
		return err
	}
	if sendAllowedTools != "" {
		ws.SetAllowedTools(sendAllowedTools)
	}
	if sendModel != "" {
		ws.SetModel(sendModel)
	}

	conv, err := workspace.NewConversationWithRecording(ws, sendRecord)
	if err != nil {
		return err
	}

	transition, err := conv.Send(args[0])
	if err != nil {
		return err
	}
	if recErr := conv.RecordingError(); recErr != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render(fmt.Sprintf("warning: %v", recErr)))
	}

	exec := transition.Execution
	fmt.Println(exec.Response)
	fmt.Println()
	fmt.Println(dimStyle.Render(fmt.Sprintf("session %s  %s  %s",
		exec.SessionID,
		costStyle.Render(fmt.Sprintf("$%.4f", exec.CostUSD)),
		exec.Duration.Round(time.Millisecond),
	)))
	return nil
}
