// Package observer captures point-in-time snapshots of a workspace: file
// contents under a glob allow-list plus the active Claude session log,
// parsed into a shared session handle.
package observer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fsnotify/fsnotify"

	"github.com/tether-dev/tether/internal/claudedir"
	"github.com/tether-dev/tether/internal/config"
	"github.com/tether-dev/tether/internal/log"
	"github.com/tether-dev/tether/internal/parser"
)

// Snapshot is an immutable view of the workspace at one instant. The parsed
// session is shared by pointer so snapshots and transitions copy in O(1);
// serialization drops it and keeps the log path for lazy re-parsing.
type Snapshot struct {
	Files       map[string]string `json:"files"`
	SessionFile string            `json:"session_file,omitempty"`
	SessionID   string            `json:"session_id,omitempty"`
	Session     *parser.Session   `json:"-"`
	Timestamp   time.Time         `json:"timestamp"`
	Warnings    []string          `json:"warnings,omitempty"`
}

// Observer walks one workspace directory and locates its session logs.
type Observer struct {
	workspace    string
	globs        []string
	maxFileBytes int64
	dir          claudedir.Dir
	logger       *log.Logger
}

// New builds an observer for the workspace. Pass nil cfg for defaults; the
// CLI state root comes from cfg.ClaudeDir, the environment, or the home
// directory, resolved once here.
func New(workspace string, cfg *config.Config) (*Observer, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	var dir claudedir.Dir
	if cfg.ClaudeDir != "" {
		dir = claudedir.New(cfg.ClaudeDir)
	} else {
		var err error
		dir, err = claudedir.Default()
		if err != nil {
			return nil, err
		}
	}

	maxBytes := cfg.Observer.MaxFileBytes
	if maxBytes <= 0 {
		maxBytes = 1024 * 1024
	}

	return &Observer{
		workspace:    workspace,
		globs:        cfg.Observer.Globs,
		maxFileBytes: maxBytes,
		dir:          dir,
	}, nil
}

// SetLogger attaches an event logger. Nil disables logging.
func (o *Observer) SetLogger(logger *log.Logger) {
	o.logger = logger
}

// StateDir returns the claudedir handle the observer resolves logs through.
func (o *Observer) StateDir() claudedir.Dir {
	return o.dir
}

// Snapshot captures files plus the currently active session log.
func (o *Observer) Snapshot() (*Snapshot, error) {
	snap, err := o.SnapshotFiles()
	if err != nil {
		return nil, err
	}

	sessionFile, err := o.dir.ActiveSessionFile(o.workspace)
	if err != nil {
		return nil, err
	}
	if err := o.attachSession(snap, sessionFile); err != nil {
		return nil, err
	}
	return snap, nil
}

// SnapshotFiles captures workspace files only, with no session lookup.
// Used for the before-state of a fresh conversation, where comparing
// against an unrelated prior session would mislead.
func (o *Observer) SnapshotFiles() (*Snapshot, error) {
	snap := &Snapshot{
		Files:     make(map[string]string),
		Timestamp: time.Now().UTC(),
	}

	err := filepath.WalkDir(o.workspace, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(o.workspace, path)
		if relErr != nil {
			return nil
		}
		if !o.wantFile(rel) {
			return nil
		}
		o.readInto(snap, path, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking workspace %s: %w", o.workspace, err)
	}

	o.logEvent(log.LogEvent{Event: log.EventSnapshotTaken, Files: len(snap.Files), Warnings: len(snap.Warnings)})
	return snap, nil
}

// wantFile applies the glob allow-list. Session logs under the workspace's
// .claude subdirectory are always included.
func (o *Observer) wantFile(rel string) bool {
	rel = filepath.ToSlash(rel)
	if strings.HasPrefix(rel, ".claude/") && strings.HasSuffix(rel, ".jsonl") {
		return true
	}
	for _, pattern := range o.globs {
		if matchGlob(pattern, rel) {
			return true
		}
	}
	return false
}

// matchGlob matches a relative slash-path against an allow-list pattern.
// A leading "**/" matches any directory depth, including none.
func matchGlob(pattern, rel string) bool {
	if rest, ok := strings.CutPrefix(pattern, "**/"); ok {
		// Try the remainder against rel and every trailing sub-path of it.
		for {
			if match, _ := filepath.Match(rest, rel); match {
				return true
			}
			i := strings.Index(rel, "/")
			if i < 0 {
				return false
			}
			rel = rel[i+1:]
		}
	}
	match, _ := filepath.Match(pattern, rel)
	return match
}

// readInto reads one file into the snapshot, skipping oversized and
// non-UTF-8 content with a warning.
func (o *Observer) readInto(snap *Snapshot, path, rel string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if info.Size() > o.maxFileBytes {
		snap.Warnings = append(snap.Warnings, fmt.Sprintf("%s: skipped, %d bytes exceeds limit", rel, info.Size()))
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		snap.Warnings = append(snap.Warnings, fmt.Sprintf("%s: %v", rel, err))
		return
	}
	if !utf8.Valid(data) {
		snap.Warnings = append(snap.Warnings, fmt.Sprintf("%s: skipped, not valid UTF-8", rel))
		return
	}
	snap.Files[filepath.ToSlash(rel)] = string(data)
}

// attachSession parses the located log into the snapshot.
func (o *Observer) attachSession(snap *Snapshot, sessionFile string) error {
	sess, err := parser.ParseFile(sessionFile, nil)
	if err != nil {
		return err
	}
	snap.SessionFile = sessionFile
	snap.SessionID = sess.SessionID
	snap.Session = sess
	o.logEvent(log.LogEvent{Event: log.EventSessionLocated, SessionID: sess.SessionID, SessionFile: sessionFile})
	return nil
}

// Session-id polling bounds. The CLI writes its log asynchronously, so the
// record for a just-finished execution can lag the process exit slightly.
const (
	sessionPollDeadline = 500 * time.Millisecond
	sessionPollStep     = 10 * time.Millisecond
)

// SnapshotWithSession captures files plus the log for a specific session
// id, waiting out a short write latency. It prefers the log named after the
// session id and falls back to scanning trailing records; if the id never
// materializes before the deadline, the active log is used.
func (o *Observer) SnapshotWithSession(sessionID string) (*Snapshot, error) {
	snap, err := o.SnapshotFiles()
	if err != nil {
		return nil, err
	}

	sessionFile, err := o.waitForSession(sessionID)
	if err != nil {
		return nil, err
	}
	if err := o.attachSession(snap, sessionFile); err != nil {
		return nil, err
	}
	return snap, nil
}

func (o *Observer) waitForSession(sessionID string) (string, error) {
	projectDir := o.dir.ProjectDir(o.workspace)
	if _, err := os.Stat(projectDir); err != nil {
		return "", fmt.Errorf("%s: %w", projectDir, claudedir.ErrNoProjectDir)
	}

	// A watcher wakes us as soon as the CLI touches the directory; the
	// ticker is the fallback when events are coalesced or unavailable.
	watcher, watchErr := fsnotify.NewWatcher()
	var events chan fsnotify.Event
	if watchErr == nil {
		defer watcher.Close()
		if err := watcher.Add(projectDir); err == nil {
			events = make(chan fsnotify.Event)
			go func() {
				for ev := range watcher.Events {
					select {
					case events <- ev:
					default:
					}
				}
			}()
		}
	}

	deadline := time.After(sessionPollDeadline)
	ticker := time.NewTicker(sessionPollStep)
	defer ticker.Stop()

	for {
		if path, ok := o.findSessionFile(projectDir, sessionID); ok {
			return path, nil
		}
		select {
		case <-deadline:
			// Deadline elapsed: fall back to the newest log.
			return o.dir.ActiveSessionFile(o.workspace)
		case <-ticker.C:
		case <-events:
		}
	}
}

// findSessionFile locates the log holding sessionID, by filename first,
// then by the session id stamped on each log's trailing record.
func (o *Observer) findSessionFile(projectDir, sessionID string) (string, bool) {
	named := filepath.Join(projectDir, sessionID+".jsonl")
	if info, err := os.Stat(named); err == nil && info.Size() > 0 {
		return named, true
	}

	files, err := o.dir.SessionFiles(o.workspace)
	if err != nil {
		return "", false
	}
	// Newest first: the target session is almost always the latest log.
	for i := len(files) - 1; i >= 0; i-- {
		if trailingSessionID(files[i]) == sessionID {
			return files[i], true
		}
	}
	return "", false
}

// trailingSessionID returns the sessionId of the last decodable record in a
// log, or "".
func trailingSessionID(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if lines[i] == "" {
			continue
		}
		var probe struct {
			SessionID string `json:"sessionId"`
		}
		if err := json.Unmarshal([]byte(lines[i]), &probe); err != nil {
			continue // trailing partial line from an in-flight write
		}
		if probe.SessionID != "" {
			return probe.SessionID
		}
	}
	return ""
}

func (o *Observer) logEvent(event log.LogEvent) {
	if o.logger == nil {
		return
	}
	_ = o.logger.Append(event)
}

// IsNotFound reports whether err is one of the discovery sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, claudedir.ErrNoProjectDir) || errors.Is(err, claudedir.ErrNoSessionFound)
}
