// Package testutil provides test helper utilities for tether tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tether-dev/tether/internal/claudedir"
)

// TempProject creates a temporary directory with the given files and returns its path.
// Files is a map of relative path -> content. Directories are created as needed.
// The directory is automatically cleaned up when the test finishes.
func TempProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()

	for relPath, content := range files {
		absPath := filepath.Join(dir, relPath)
		if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
			t.Fatalf("creating directory for %s: %v", relPath, err)
		}
		if err := os.WriteFile(absPath, []byte(content), 0644); err != nil {
			t.Fatalf("writing %s: %v", relPath, err)
		}
	}

	return dir
}

// SessionRecord builds one session-log line. Base fields are filled in;
// extra keys are merged on top, so tests can add or override anything.
func SessionRecord(t *testing.T, recordType, uuid, parentUUID, sessionID string, extra map[string]any) string {
	t.Helper()
	rec := map[string]any{
		"type":      recordType,
		"uuid":      uuid,
		"sessionId": sessionID,
		"timestamp": "2025-06-01T10:00:00Z",
	}
	if parentUUID != "" {
		rec["parentUuid"] = parentUUID
	}
	for k, v := range extra {
		rec[k] = v
	}
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal session record: %v", err)
	}
	return string(data)
}

// UserRecord builds a user line with plain string content.
func UserRecord(t *testing.T, uuid, parentUUID, sessionID, text string) string {
	t.Helper()
	return SessionRecord(t, "user", uuid, parentUUID, sessionID, map[string]any{
		"message": map[string]any{"role": "user", "content": text},
	})
}

// AssistantRecord builds an assistant line with the given content blocks
// and optional cost.
func AssistantRecord(t *testing.T, uuid, parentUUID, sessionID string, content []map[string]any, cost float64) string {
	t.Helper()
	extra := map[string]any{
		"message": map[string]any{
			"role":    "assistant",
			"model":   "claude-test-1",
			"content": content,
			"usage": map[string]any{
				"input_tokens":  100,
				"output_tokens": 50,
			},
		},
	}
	if cost > 0 {
		extra["costUSD"] = cost
	}
	return SessionRecord(t, "assistant", uuid, parentUUID, sessionID, extra)
}

// WriteSessionLog writes lines as a .jsonl session log and returns its path.
func WriteSessionLog(t *testing.T, dir, name string, lines []string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating log directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatalf("writing session log: %v", err)
	}
	return path
}

// ClaudeStateDir creates a fake CLI state root with a projects directory
// and returns its path.
func ClaudeStateDir(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "projects"), 0755); err != nil {
		t.Fatalf("creating projects directory: %v", err)
	}
	return root
}

// ProjectLogDir creates the encoded project directory for a workspace under
// a fake state root and returns its path.
func ProjectLogDir(t *testing.T, stateRoot, workspace string) string {
	t.Helper()
	dir := filepath.Join(stateRoot, "projects", claudedir.EncodePath(workspace))
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("creating project log directory: %v", err)
	}
	return dir
}

// FakeClaude writes an executable shell script that stands in for the CLI
// and returns its path. The script body receives the invocation arguments.
func FakeClaude(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "claude")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("writing fake claude: %v", err)
	}
	return path
}

// FakeClaudeEnvelope is a canned script that echoes a result envelope with
// the given session id and cost.
func FakeClaudeEnvelope(t *testing.T, sessionID string, cost float64) string {
	t.Helper()
	body := fmt.Sprintf(
		`printf '{"type":"result","result":"ok","session_id":"%s","cost_usd":%g,"model":"claude-test-1"}\n'`,
		sessionID, cost,
	)
	return FakeClaude(t, body)
}
