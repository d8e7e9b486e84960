package claudedir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tether-dev/tether/internal/parser"
)

// Sentinel errors for discovery failures. Callers match with errors.Is.
var (
	// ErrNoProjectDir means the encoded project directory does not exist:
	// the workspace has never been opened with the CLI.
	ErrNoProjectDir = errors.New("project directory not found")

	// ErrNoSessionFound means the project directory exists but holds no
	// session logs.
	ErrNoSessionFound = errors.New("no session files found")
)

// envRoot overrides the default state root when set.
const envRoot = "TETHER_CLAUDE_DIR"

// Dir is a handle on a Claude CLI state root (normally ~/.claude). The root
// is resolved once at construction, not read from a process global.
type Dir struct {
	root string
}

// New returns a Dir rooted at the given directory.
func New(root string) Dir {
	return Dir{root: root}
}

// Default resolves the state root from $TETHER_CLAUDE_DIR, falling back to
// ~/.claude.
func Default() (Dir, error) {
	if root := os.Getenv(envRoot); root != "" {
		return Dir{root: root}, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return Dir{}, fmt.Errorf("resolving home directory: %w", err)
	}
	return Dir{root: filepath.Join(home, ".claude")}, nil
}

// Root returns the state root path.
func (d Dir) Root() string {
	return d.root
}

// ProjectsRoot returns the directory holding all encoded project dirs.
func (d Dir) ProjectsRoot() string {
	return filepath.Join(d.root, "projects")
}

// ProjectDir returns the session-log directory for a workspace path.
func (d Dir) ProjectDir(workspace string) string {
	return filepath.Join(d.ProjectsRoot(), EncodePath(workspace))
}

// SessionFiles lists the .jsonl logs for a workspace, oldest first by
// modification time.
func (d Dir) SessionFiles(workspace string) ([]string, error) {
	dir := d.ProjectDir(workspace)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", dir, ErrNoProjectDir)
		}
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	type fileWithTime struct {
		path  string
		mtime time.Time
	}
	var files []fileWithTime
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, fileWithTime{
			path:  filepath.Join(dir, entry.Name()),
			mtime: info.ModTime(),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].mtime.Before(files[j].mtime) })

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.path
	}
	return paths, nil
}

// ActiveSessionFile returns the most recently modified session log for a
// workspace.
func (d Dir) ActiveSessionFile(workspace string) (string, error) {
	files, err := d.SessionFiles(workspace)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", fmt.Errorf("%s: %w", d.ProjectDir(workspace), ErrNoSessionFound)
	}
	return files[len(files)-1], nil
}

// FindSessions returns every session log path under every project.
func (d Dir) FindSessions() ([]string, error) {
	projects, err := d.FindProjects()
	if err != nil {
		return nil, err
	}
	var all []string
	for _, proj := range projects {
		all = append(all, proj.SessionPaths...)
	}
	return all, nil
}

// ProjectInfo describes one discovered project directory.
type ProjectInfo struct {
	Name         string // encoded directory name
	DisplayPath  string // best-effort decoded path, display only
	Dir          string // absolute path of the project directory
	SessionPaths []string
}

// FindProjects enumerates project directories that contain at least one
// session log.
func (d Dir) FindProjects() ([]ProjectInfo, error) {
	root := d.ProjectsRoot()
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", root, ErrNoProjectDir)
		}
		return nil, fmt.Errorf("listing %s: %w", root, err)
	}

	var projects []ProjectInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		logs, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		var paths []string
		for _, log := range logs {
			if !log.IsDir() && strings.HasSuffix(log.Name(), ".jsonl") {
				paths = append(paths, filepath.Join(dir, log.Name()))
			}
		}
		if len(paths) == 0 {
			continue
		}
		projects = append(projects, ProjectInfo{
			Name:         entry.Name(),
			DisplayPath:  DecodePath(entry.Name()),
			Dir:          dir,
			SessionPaths: paths,
		})
	}
	return projects, nil
}

// Project aggregates the parsed sessions of one project directory.
type Project struct {
	Name     string
	Dir      string
	Sessions []*parser.Session
}

// LoadProject parses every session in the named project. Accepts either an
// encoded directory name or an absolute workspace path.
func (d Dir) LoadProject(nameOrPath string) (*Project, error) {
	name := nameOrPath
	if filepath.IsAbs(nameOrPath) {
		name = EncodePath(nameOrPath)
	}
	dir := filepath.Join(d.ProjectsRoot(), name)
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoProjectDir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	proj := &Project{Name: name, Dir: dir}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		sess, err := parser.ParseFile(filepath.Join(dir, entry.Name()), nil)
		if err != nil {
			return nil, err
		}
		proj.Sessions = append(proj.Sessions, sess)
	}
	if len(proj.Sessions) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoSessionFound)
	}
	return proj, nil
}

// TotalCost sums the cost of all sessions in the project.
func (p *Project) TotalCost() float64 {
	total := 0.0
	for _, sess := range p.Sessions {
		total += sess.TotalCost()
	}
	return total
}

// TotalMessages counts messages across all sessions.
func (p *Project) TotalMessages() int {
	n := 0
	for _, sess := range p.Sessions {
		n += sess.MessageCount()
	}
	return n
}

// DailyCosts breaks the project cost down by calendar day (UTC).
func (p *Project) DailyCosts() map[string]float64 {
	daily := make(map[string]float64)
	for _, sess := range p.Sessions {
		for _, msg := range sess.Messages {
			if msg.Timestamp.IsZero() {
				continue
			}
			day := msg.Timestamp.UTC().Format("2006-01-02")
			daily[day] += msg.Cost()
		}
	}
	return daily
}
