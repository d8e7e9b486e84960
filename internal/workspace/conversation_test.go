package workspace_test

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tether-dev/tether/internal/config"
	"github.com/tether-dev/tether/internal/executor"
	"github.com/tether-dev/tether/internal/testutil"
	"github.com/tether-dev/tether/internal/workspace"
)

// newTestWorkspace wires a workspace to a fake CLI that mints sequential
// session ids (s1, s2, ...) and writes a matching session log on each
// invocation, echoing its argv back in the result field.
func newTestWorkspace(t *testing.T) *workspace.Workspace {
	t.Helper()

	dir := testutil.TempProject(t, map[string]string{"main.go": "package main"})
	stateRoot := testutil.ClaudeStateDir(t)
	logDir := testutil.ProjectLogDir(t, stateRoot, dir)

	script := testutil.FakeClaude(t, `LOGDIR="`+logDir+`"
N=$(ls "$LOGDIR" | grep -c jsonl)
SID="s$((N+1))"
cat > "$LOGDIR/$SID.jsonl" <<EOF
{"type":"user","uuid":"u-$SID","sessionId":"$SID","timestamp":"2025-06-01T10:00:00Z","message":{"role":"user","content":"hi"}}
{"type":"assistant","uuid":"a-$SID","parentUuid":"u-$SID","sessionId":"$SID","timestamp":"2025-06-01T10:00:05Z","costUSD":0.01,"message":{"role":"assistant","model":"claude-test-1","content":[{"type":"tool_use","id":"t-$SID","name":"Bash","input":{"cmd":"ls"}}],"usage":{"input_tokens":10,"output_tokens":5}}}
EOF
printf '{"type":"result","result":"args: %s","session_id":"%s","cost_usd":0.01,"model":"claude-test-1"}\n' "$*" "$SID"`)

	cfg := config.DefaultConfig()
	cfg.ClaudeDir = stateRoot
	cfg.Execution.Binary = script
	cfg.Observer.Globs = []string{"**/*.go"}

	ws, err := workspace.NewWithConfig(dir, cfg)
	if err != nil {
		t.Fatalf("NewWithConfig failed: %v", err)
	}
	return ws
}

func TestConversationFirstSend(t *testing.T) {
	ws := newTestWorkspace(t)
	conv := workspace.NewConversation(ws)

	transition, err := conv.Send("hello")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if transition.Prompt.ResumeSessionID != "" {
		t.Errorf("fresh send should not resume, got %q", transition.Prompt.ResumeSessionID)
	}
	if transition.Execution.SessionID != "s1" {
		t.Errorf("session id: got %q", transition.Execution.SessionID)
	}
	// Fresh before-state carries files but no session.
	if transition.Before.Session != nil || transition.Before.SessionID != "" {
		t.Error("fresh before-snapshot should have no session")
	}
	if _, ok := transition.Before.Files["main.go"]; !ok {
		t.Error("before-snapshot should still capture files")
	}
	// After-state is keyed to the new session.
	if transition.After.SessionID != "s1" {
		t.Errorf("after session id: got %q", transition.After.SessionID)
	}
	if transition.After.Session == nil {
		t.Fatal("after-snapshot session not parsed")
	}

	tools := transition.ToolsUsed()
	if len(tools) != 1 || tools[0] != "Bash" {
		t.Errorf("tools: got %v", tools)
	}
}

func TestConversationChainsResumeIDs(t *testing.T) {
	ws := newTestWorkspace(t)
	conv := workspace.NewConversation(ws)

	if _, err := conv.Send("hello"); err != nil {
		t.Fatalf("first Send failed: %v", err)
	}
	second, err := conv.Send("follow up")
	if err != nil {
		t.Fatalf("second Send failed: %v", err)
	}

	history := conv.History()
	if len(history) != 2 {
		t.Fatalf("history: got %d, want 2", len(history))
	}
	// Each send resumes the session minted by the previous one.
	if history[1].Prompt.ResumeSessionID != history[0].Execution.SessionID {
		t.Errorf("resume chain broken: %q != %q",
			history[1].Prompt.ResumeSessionID, history[0].Execution.SessionID)
	}
	// The CLI saw the --resume flag with the prior id.
	if !strings.Contains(second.Execution.Response, "--resume s1") {
		t.Errorf("CLI argv missing resume: %q", second.Execution.Response)
	}
	// A resume mints a fresh session id.
	if second.Execution.SessionID != "s2" {
		t.Errorf("new session id: got %q", second.Execution.SessionID)
	}
	if got := conv.SessionIDs(); len(got) != 2 || got[0] != "s1" || got[1] != "s2" {
		t.Errorf("session id chain: got %v", got)
	}
}

func TestConversationTotalCostAndTools(t *testing.T) {
	ws := newTestWorkspace(t)
	conv := workspace.NewConversation(ws)

	if _, err := conv.Send("one"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if _, err := conv.Send("two"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if cost := conv.TotalCost(); cost < 0.0199 || cost > 0.0201 {
		t.Errorf("total cost: got %f, want 0.02", cost)
	}
	tools := conv.ToolsUsed()
	if len(tools) != 1 || tools[0] != "Bash" {
		t.Errorf("tools: got %v", tools)
	}
}

func TestConversationRecording(t *testing.T) {
	ws := newTestWorkspace(t)
	conv, err := workspace.NewConversationWithRecording(ws, true)
	if err != nil {
		t.Fatalf("NewConversationWithRecording failed: %v", err)
	}

	transition, err := conv.Send("hello")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if conv.RecordingError() != nil {
		t.Fatalf("recording error: %v", conv.RecordingError())
	}

	rec := conv.Recorder()
	if rec == nil {
		t.Fatal("recorder missing")
	}
	loaded, err := rec.Load(transition.ID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("recorded transition not found")
	}
	if loaded.Execution.SessionID != "s1" {
		t.Errorf("recorded session id: got %q", loaded.Execution.SessionID)
	}
}

func TestConversationSaveLoad(t *testing.T) {
	ws := newTestWorkspace(t)
	conv := workspace.NewConversation(ws)

	if _, err := conv.Send("one"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if _, err := conv.Send("two"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "conv.json")
	if err := conv.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := workspace.LoadConversation(path, ws, false)
	if err != nil {
		t.Fatalf("LoadConversation failed: %v", err)
	}
	if loaded.ID() != conv.ID() {
		t.Errorf("id changed across save/load")
	}
	if len(loaded.History()) != 2 {
		t.Errorf("history: got %d, want 2", len(loaded.History()))
	}
	if got := loaded.SessionIDs(); len(got) != 2 || got[1] != "s2" {
		t.Errorf("session ids: got %v", got)
	}
}

func TestWorkspaceRejectsOverlappingExecutions(t *testing.T) {
	dir := testutil.TempProject(t, map[string]string{"main.go": "package main"})
	stateRoot := testutil.ClaudeStateDir(t)
	testutil.ProjectLogDir(t, stateRoot, dir)

	script := testutil.FakeClaude(t, `sleep 1
printf '{"type":"result","result":"slow","session_id":"s1","cost_usd":0}\n'`)

	cfg := config.DefaultConfig()
	cfg.ClaudeDir = stateRoot
	cfg.Execution.Binary = script

	ws, err := workspace.NewWithConfig(dir, cfg)
	if err != nil {
		t.Fatalf("NewWithConfig failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := ws.Execute(executor.Prompt{Text: "slow"})
		done <- err
	}()

	time.Sleep(200 * time.Millisecond)
	_, err = ws.Execute(executor.Prompt{Text: "overlap"})
	if !errors.Is(err, workspace.ErrBusy) {
		t.Errorf("overlapping execute: got %v, want ErrBusy", err)
	}

	if err := <-done; err != nil {
		t.Errorf("first execute failed: %v", err)
	}
}
