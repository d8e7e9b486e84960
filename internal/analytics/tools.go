// Package analytics derives higher-level views from a parsed session:
// paired tool executions, cost attribution, and conversation shape stats.
package analytics

import (
	"encoding/json"
	"time"

	"github.com/tether-dev/tether/internal/message"
	"github.com/tether-dev/tether/internal/parser"
)

// ToolExecution pairs one tool_use block with its matching tool_result.
type ToolExecution struct {
	ToolName  string
	ToolUseID string
	Input     json.RawMessage
	Output    string // empty when no result was found
	Success   bool   // result found and not an error
	StartedAt time.Time
	EndedAt   time.Time // zero when no result was found
	Duration  time.Duration
}

// ToolExecutions scans messages in arrival order, pairing each tool_use
// with the first later tool_result carrying its id. Invocations that never
// received a result are emitted with Success=false and a zero end time.
func ToolExecutions(sess *parser.Session) []ToolExecution {
	type pending struct {
		index int // position in the result slice
	}

	var executions []ToolExecution
	open := make(map[string]pending)

	for _, msg := range sess.Messages {
		for _, block := range msg.Content {
			switch b := block.(type) {
			case *message.ToolUseBlock:
				executions = append(executions, ToolExecution{
					ToolName:  b.Name,
					ToolUseID: b.ID,
					Input:     b.Input,
					StartedAt: msg.Timestamp,
				})
				open[b.ID] = pending{index: len(executions) - 1}

			case *message.ToolResultBlock:
				p, ok := open[b.ToolUseID]
				if !ok {
					continue // dangling result, already flagged by the parser
				}
				delete(open, b.ToolUseID)
				exec := &executions[p.index]
				exec.Output = b.ContentText()
				exec.Success = !b.IsError
				exec.EndedAt = msg.Timestamp
				if !exec.StartedAt.IsZero() && !exec.EndedAt.IsZero() {
					if d := exec.EndedAt.Sub(exec.StartedAt); d > 0 {
						exec.Duration = d
					}
				}
			}
		}
	}
	return executions
}
