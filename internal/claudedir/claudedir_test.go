package claudedir_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tether-dev/tether/internal/claudedir"
	"github.com/tether-dev/tether/internal/testutil"
)

func TestEncodePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/Users/name/project", "-Users-name-project"},
		{"/Users/name/.hidden", "-Users-name--hidden"},
		{"/with_under", "-with-under"},
		{"/Users/name/with_under", "-Users-name-with-under"},
		{"/a/b/c", "-a-b-c"},
	}
	for _, tt := range tests {
		if got := claudedir.EncodePath(tt.path); got != tt.want {
			t.Errorf("EncodePath(%q): got %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestDecodePathIsDisplayOnly(t *testing.T) {
	// Lossy by design: underscores and literal hyphens both decode to '/'.
	if got := claudedir.DecodePath("-Users-name-project"); got != "/Users/name/project" {
		t.Errorf("DecodePath: got %q", got)
	}
}

func TestProjectName(t *testing.T) {
	if got := claudedir.ProjectName("/Users/name/project"); got != "project" {
		t.Errorf("ProjectName: got %q", got)
	}
}

func TestActiveSessionFilePicksNewest(t *testing.T) {
	root := testutil.ClaudeStateDir(t)
	workspace := "/tmp/demo"
	logDir := testutil.ProjectLogDir(t, root, workspace)

	old := testutil.WriteSessionLog(t, logDir, "old.jsonl", []string{
		testutil.UserRecord(t, "u1", "", "old", "hi"),
	})
	newer := testutil.WriteSessionLog(t, logDir, "new.jsonl", []string{
		testutil.UserRecord(t, "u1", "", "new", "hi"),
	})
	// Make mtimes unambiguous.
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	dir := claudedir.New(root)
	active, err := dir.ActiveSessionFile(workspace)
	if err != nil {
		t.Fatalf("ActiveSessionFile failed: %v", err)
	}
	if active != newer {
		t.Errorf("active: got %q, want %q", active, newer)
	}
}

func TestActiveSessionFileErrors(t *testing.T) {
	root := testutil.ClaudeStateDir(t)
	dir := claudedir.New(root)

	_, err := dir.ActiveSessionFile("/never/opened")
	if !errors.Is(err, claudedir.ErrNoProjectDir) {
		t.Errorf("missing project dir: got %v, want ErrNoProjectDir", err)
	}

	workspace := "/tmp/empty"
	testutil.ProjectLogDir(t, root, workspace)
	_, err = dir.ActiveSessionFile(workspace)
	if !errors.Is(err, claudedir.ErrNoSessionFound) {
		t.Errorf("empty project dir: got %v, want ErrNoSessionFound", err)
	}
}

func TestFindProjectsSkipsEmptyDirs(t *testing.T) {
	root := testutil.ClaudeStateDir(t)
	testutil.ProjectLogDir(t, root, "/tmp/empty")
	logDir := testutil.ProjectLogDir(t, root, "/tmp/full")
	testutil.WriteSessionLog(t, logDir, "s1.jsonl", []string{
		testutil.UserRecord(t, "u1", "", "s1", "hi"),
	})

	dir := claudedir.New(root)
	projects, err := dir.FindProjects()
	if err != nil {
		t.Fatalf("FindProjects failed: %v", err)
	}
	if len(projects) != 1 {
		t.Fatalf("projects: got %d, want 1", len(projects))
	}
	if projects[0].Name != claudedir.EncodePath("/tmp/full") {
		t.Errorf("project name: got %q", projects[0].Name)
	}
	if len(projects[0].SessionPaths) != 1 {
		t.Errorf("session paths: got %v", projects[0].SessionPaths)
	}
}

func TestFindSessions(t *testing.T) {
	root := testutil.ClaudeStateDir(t)
	dirA := testutil.ProjectLogDir(t, root, "/tmp/a")
	dirB := testutil.ProjectLogDir(t, root, "/tmp/b")
	testutil.WriteSessionLog(t, dirA, "s1.jsonl", []string{testutil.UserRecord(t, "u1", "", "s1", "x")})
	testutil.WriteSessionLog(t, dirB, "s2.jsonl", []string{testutil.UserRecord(t, "u1", "", "s2", "x")})

	dir := claudedir.New(root)
	sessions, err := dir.FindSessions()
	if err != nil {
		t.Fatalf("FindSessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Errorf("sessions: got %d, want 2", len(sessions))
	}
}

func TestLoadProject(t *testing.T) {
	root := testutil.ClaudeStateDir(t)
	workspace := "/tmp/proj"
	logDir := testutil.ProjectLogDir(t, root, workspace)
	testutil.WriteSessionLog(t, logDir, "s1.jsonl", []string{
		testutil.UserRecord(t, "u1", "", "s1", "hi"),
		testutil.AssistantRecord(t, "a1", "u1", "s1", []map[string]any{
			{"type": "text", "text": "ok"},
		}, 0.02),
	})
	testutil.WriteSessionLog(t, logDir, "s2.jsonl", []string{
		testutil.UserRecord(t, "u1", "", "s2", "hi"),
	})

	dir := claudedir.New(root)

	// By absolute workspace path.
	proj, err := dir.LoadProject(workspace)
	if err != nil {
		t.Fatalf("LoadProject failed: %v", err)
	}
	if len(proj.Sessions) != 2 {
		t.Fatalf("sessions: got %d, want 2", len(proj.Sessions))
	}
	if proj.TotalMessages() != 3 {
		t.Errorf("total messages: got %d, want 3", proj.TotalMessages())
	}
	if proj.TotalCost() != 0.02 {
		t.Errorf("total cost: got %f", proj.TotalCost())
	}
	daily := proj.DailyCosts()
	if daily["2025-06-01"] != 0.02 {
		t.Errorf("daily costs: got %v", daily)
	}

	// By encoded name.
	byName, err := dir.LoadProject(claudedir.EncodePath(workspace))
	if err != nil {
		t.Fatalf("LoadProject by name failed: %v", err)
	}
	if len(byName.Sessions) != 2 {
		t.Errorf("sessions by name: got %d", len(byName.Sessions))
	}

	// Unknown project.
	if _, err := dir.LoadProject("/no/such/workspace"); !errors.Is(err, claudedir.ErrNoProjectDir) {
		t.Errorf("unknown project: got %v", err)
	}
}

func TestDefaultUsesEnvOverride(t *testing.T) {
	root := t.TempDir()
	t.Setenv("TETHER_CLAUDE_DIR", root)

	dir, err := claudedir.Default()
	if err != nil {
		t.Fatalf("Default failed: %v", err)
	}
	if dir.Root() != root {
		t.Errorf("root: got %q, want %q", dir.Root(), root)
	}
	if dir.ProjectsRoot() != filepath.Join(root, "projects") {
		t.Errorf("projects root: got %q", dir.ProjectsRoot())
	}
}
