// Package workspace composes an executor and an observer over one working
// directory and layers conversations with transition history on top.
package workspace

import (
	"errors"
	"sync"

	"github.com/tether-dev/tether/internal/config"
	"github.com/tether-dev/tether/internal/executor"
	"github.com/tether-dev/tether/internal/log"
	"github.com/tether-dev/tether/internal/observer"
)

// ErrBusy means a send overlapped another on the same workspace. A
// workspace serializes all CLI invocations; run parallel work on separate
// workspaces.
var ErrBusy = errors.New("workspace busy: overlapping execution")

// Workspace binds one directory to its executor/observer pair. All mutating
// operations take the pointer receiver and are guarded so overlapping
// executions are rejected rather than interleaved.
type Workspace struct {
	path     string
	executor *executor.Executor
	observer *observer.Observer
	logger   *log.Logger

	mu   sync.Mutex
	busy bool
}

// New builds a workspace for path. Configuration is read from
// .tether/config.yaml when present, defaults otherwise.
func New(path string) (*Workspace, error) {
	cfg, err := config.ReadConfig(path)
	if err != nil {
		cfg = config.DefaultConfig()
	}
	return NewWithConfig(path, cfg)
}

// NewWithConfig builds a workspace with an explicit configuration.
func NewWithConfig(path string, cfg *config.Config) (*Workspace, error) {
	exec, err := executor.New(path, cfg)
	if err != nil {
		return nil, err
	}
	obs, err := observer.New(path, cfg)
	if err != nil {
		return nil, err
	}

	ws := &Workspace{
		path:     path,
		executor: exec,
		observer: obs,
	}

	// Event logging is best-effort; a read-only workspace still works.
	if logger, err := log.NewLogger(path); err == nil {
		ws.logger = logger
		exec.SetLogger(logger)
		obs.SetLogger(logger)
	}
	return ws, nil
}

// Path returns the workspace directory.
func (w *Workspace) Path() string {
	return w.path
}

// Logger returns the workspace event logger, or nil.
func (w *Workspace) Logger() *log.Logger {
	return w.logger
}

// SetAllowedTools sets the tool allow-list for future executions.
func (w *Workspace) SetAllowedTools(tools string) {
	w.executor.SetAllowedTools(tools)
}

// SetModel sets the model override for future executions.
func (w *Workspace) SetModel(model string) {
	w.executor.SetModel(model)
}

// Snapshot captures the current workspace state including the active
// session log.
func (w *Workspace) Snapshot() (*observer.Snapshot, error) {
	return w.observer.Snapshot()
}

// SnapshotFiles captures workspace files without a session lookup.
func (w *Workspace) SnapshotFiles() (*observer.Snapshot, error) {
	return w.observer.SnapshotFiles()
}

// SnapshotWithSession captures the workspace state once the log for the
// given session id has materialized.
func (w *Workspace) SnapshotWithSession(sessionID string) (*observer.Snapshot, error) {
	return w.observer.SnapshotWithSession(sessionID)
}

// Execute runs one prompt through the CLI. Overlapping calls on the same
// workspace return ErrBusy.
func (w *Workspace) Execute(prompt executor.Prompt) (*executor.Execution, error) {
	w.mu.Lock()
	if w.busy {
		w.mu.Unlock()
		return nil, ErrBusy
	}
	w.busy = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.busy = false
		w.mu.Unlock()
	}()

	return w.executor.Execute(prompt)
}
