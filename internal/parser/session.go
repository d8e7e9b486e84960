// Package parser ingests Claude Code JSONL session logs, validates them
// line by line, threads the messages into a conversation tree, and derives
// session metadata. Malformed lines become warnings, not failures, unless
// strict mode is requested.
package parser

import (
	"github.com/tether-dev/tether/internal/message"
	"github.com/tether-dev/tether/internal/tree"
)

// Session is a fully parsed session log. Sessions are immutable once
// returned by the parser and are shared by pointer between snapshots,
// transitions, and recorded history; never mutate one after parsing.
type Session struct {
	SessionID string
	FilePath  string // source log path, empty when parsed from a reader
	Messages  []*message.Record
	Tree      *tree.Tree
	Meta      Metadata
	Warnings  []Warning
}

// MessageCount returns the number of parsed messages.
func (s *Session) MessageCount() int {
	return len(s.Messages)
}

// MessageByUUID returns the first message with the given uuid, or nil.
func (s *Session) MessageByUUID(uuid string) *message.Record {
	for _, msg := range s.Messages {
		if msg.UUID == uuid {
			return msg
		}
	}
	return nil
}

// MessagesByRole returns messages with the given role, in arrival order.
func (s *Session) MessagesByRole(role message.Role) []*message.Record {
	var out []*message.Record
	for _, msg := range s.Messages {
		if msg.Role == role {
			out = append(out, msg)
		}
	}
	return out
}

// MessagesByTool returns messages that invoked the named tool.
func (s *Session) MessagesByTool(tool string) []*message.Record {
	var out []*message.Record
	for _, msg := range s.Messages {
		for _, t := range msg.Tools() {
			if t == tool {
				out = append(out, msg)
				break
			}
		}
	}
	return out
}

// MainChain returns the non-sidechain messages of the deepest thread,
// root-first.
func (s *Session) MainChain() []*message.Record {
	return s.Tree.MainChain()
}

// Thread returns the messages from the containing root down to uuid.
func (s *Session) Thread(uuid string) []*message.Record {
	var out []*message.Record
	for _, u := range s.Tree.PathTo(uuid) {
		if rec := s.Tree.Record(u); rec != nil {
			out = append(out, rec)
		}
	}
	return out
}

// AllThreads returns one root-to-leaf thread per leaf.
func (s *Session) AllThreads() [][]*message.Record {
	var threads [][]*message.Record
	for _, leaf := range s.Tree.Leaves() {
		if thread := s.Thread(leaf); len(thread) > 0 {
			threads = append(threads, thread)
		}
	}
	return threads
}

// ToolsUsed returns the unique tool names used in the session, sorted.
func (s *Session) ToolsUsed() []string {
	return s.Meta.UniqueToolsUsed
}

// TotalCost returns the summed per-message cost in USD.
func (s *Session) TotalCost() float64 {
	return s.Meta.TotalCostUSD
}
