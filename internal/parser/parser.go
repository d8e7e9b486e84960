package parser

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/tether-dev/tether/internal/message"
	"github.com/tether-dev/tether/internal/tree"
)

// Options controls parse behavior. A nil Options means defaults.
type Options struct {
	// Strict promotes the first warning to a fatal ParseError.
	Strict bool
}

// maxLineBytes bounds a single log line. Tool results can embed whole files.
const maxLineBytes = 10 * 1024 * 1024

// ParseFile reads and parses a .jsonl session log from disk.
func ParseFile(path string, opts *Options) (*Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ParseError{Path: path, Reason: "opening session log", Err: err}
	}
	defer f.Close()

	sess, err := Parse(f, opts)
	if err != nil {
		if pe, ok := err.(*ParseError); ok {
			pe.Path = path
		}
		return nil, err
	}
	sess.FilePath = path
	return sess, nil
}

// Parse consumes newline-delimited JSON records from r and assembles a
// session. Per-line failures are collected as warnings; a file with zero
// valid records yields an empty session and no error.
func Parse(r io.Reader, opts *Options) (*Session, error) {
	if opts == nil {
		opts = &Options{}
	}

	sess := &Session{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var raw rawRecord
		if err := json.Unmarshal(line, &raw); err != nil {
			sess.warn(Warning{Line: lineNum, Reason: "malformed json", Excerpt: excerpt(line)})
			continue
		}

		switch {
		case raw.Type == "":
			sess.warn(Warning{Line: lineNum, Reason: "missing record type", Excerpt: excerpt(line)})
			continue
		case !knownRecordTypes[raw.Type]:
			sess.warn(Warning{Line: lineNum, Reason: fmt.Sprintf("unknown record type %q", raw.Type), Excerpt: excerpt(line)})
			continue
		case raw.Type == "summary":
			if raw.Summary != "" {
				sess.Meta.SummaryHints = append(sess.Meta.SummaryHints, raw.Summary)
			}
			continue
		}

		// First substantive record fixes the session id; divergent records
		// are rejected rather than silently mixed in.
		if raw.SessionID != "" {
			if sess.SessionID == "" {
				sess.SessionID = raw.SessionID
			} else if raw.SessionID != sess.SessionID {
				sess.warn(Warning{
					Line:   lineNum,
					Reason: fmt.Sprintf("inconsistent session id %q (session is %q)", raw.SessionID, sess.SessionID),
				})
				continue
			}
		}

		rec, err := decodeRecord(&raw)
		if err != nil {
			sess.warn(Warning{Line: lineNum, Reason: err.Error(), Excerpt: excerpt(line)})
			continue
		}
		sess.Messages = append(sess.Messages, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, &ParseError{Reason: "reading session log", Err: err}
	}

	flagDanglingResults(sess.Messages)

	var treeWarnings []string
	sess.Tree, treeWarnings = tree.Build(sess.Messages)
	for _, w := range treeWarnings {
		sess.warn(Warning{Reason: w})
	}

	summaryHints := sess.Meta.SummaryHints
	sess.Meta = computeMetadata(sess.Messages)
	sess.Meta.SummaryHints = summaryHints

	if opts.Strict && len(sess.Warnings) > 0 {
		first := sess.Warnings[0]
		return nil, &ParseError{Line: first.Line, Reason: first.Reason}
	}
	return sess, nil
}

func (s *Session) warn(w Warning) {
	s.Warnings = append(s.Warnings, w)
}

// decodeRecord converts a raw line into a typed message record.
func decodeRecord(raw *rawRecord) (*message.Record, error) {
	rec := &message.Record{
		UUID:        raw.UUID,
		Timestamp:   parseTimestamp(raw.Timestamp),
		CWD:         raw.CWD,
		IsSidechain: raw.IsSidechain,
		CostUSD:     raw.CostUSD,
	}
	if raw.ParentUUID != nil {
		rec.ParentUUID = *raw.ParentUUID
	}

	switch raw.Type {
	case "system":
		rec.Role = message.RoleSystem
	case "tool_result":
		rec.Role = message.RoleTool
	default:
		rec.Role = message.Role(raw.Type)
		if raw.Message != nil && raw.Message.Role != "" {
			rec.Role = message.Role(raw.Message.Role)
		}
	}

	var rawContent json.RawMessage
	if raw.Message != nil {
		rawContent = raw.Message.Content
		rec.Model = raw.Message.Model
		rec.Usage = raw.Message.Usage
	} else {
		rawContent = raw.Content
	}

	content, err := message.DecodeContent(rawContent)
	if err != nil {
		return nil, fmt.Errorf("malformed content: %w", err)
	}
	rec.Content = content
	return rec, nil
}

// flagDanglingResults marks tool_result blocks whose id was never produced
// by an earlier tool_use. The blocks stay in the record set.
func flagDanglingResults(messages []*message.Record) {
	produced := make(map[string]bool)
	for _, msg := range messages {
		for _, block := range msg.Content {
			switch b := block.(type) {
			case *message.ToolUseBlock:
				produced[b.ID] = true
			case *message.ToolResultBlock:
				if !produced[b.ToolUseID] {
					b.Dangling = true
				}
			}
		}
	}
}
