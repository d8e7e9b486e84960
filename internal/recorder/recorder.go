// Package recorder persists transitions as append-only JSONL under the
// workspace's .tether/transitions directory. One recorder owns one file and
// is the only writer to it.
package recorder

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tether-dev/tether/internal/executor"
	"github.com/tether-dev/tether/internal/observer"
)

// Transition is one send-turn: the workspace before, the prompt, the CLI
// execution, and the workspace after. Transitions clone cheaply because the
// snapshots share their parsed sessions by pointer.
type Transition struct {
	ID         uuid.UUID           `json:"id"`
	Before     *observer.Snapshot  `json:"before"`
	Prompt     executor.Prompt     `json:"prompt"`
	Execution  *executor.Execution `json:"execution"`
	After      *observer.Snapshot  `json:"after"`
	RecordedAt time.Time           `json:"recorded_at"`
	Metadata   map[string]any      `json:"metadata,omitempty"`
}

// ToolsUsed returns the tool names of this turn. The after snapshot's
// parsed session is authoritative; a deserialized transition falls back to
// the tool list persisted on the execution.
func (t *Transition) ToolsUsed() []string {
	if t.After != nil && t.After.Session != nil {
		return t.After.Session.ToolsUsed()
	}
	if t.Execution != nil {
		return t.Execution.ToolsUsed
	}
	return nil
}

// Recorder appends transitions to its own JSONL file.
type Recorder struct {
	id   uuid.UUID
	dir  string
	path string
	mu   sync.Mutex
}

// New creates a recorder writing to
// <workspace>/.tether/transitions/<recorder-id>.jsonl.
func New(workspace string) (*Recorder, error) {
	dir := filepath.Join(workspace, ".tether", "transitions")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create transitions directory: %w", err)
	}

	id := uuid.New()
	return &Recorder{
		id:   id,
		dir:  dir,
		path: filepath.Join(dir, id.String()+".jsonl"),
	}, nil
}

// ID returns the recorder's identity, which names its file.
func (r *Recorder) ID() uuid.UUID {
	return r.id
}

// Path returns the recorder's JSONL file path.
func (r *Recorder) Path() string {
	return r.path
}

// Append writes one transition as a JSON line. Snapshot serialization drops
// the parsed session, so recorded files stay light; the session id and log
// path survive for lazy re-parsing.
func (r *Recorder) Append(t *Transition) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal transition: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open transitions file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write transition: %w", err)
	}
	return nil
}

// Load finds a transition by id, scanning this recorder's file and its
// siblings. Returns nil, nil when the id is unknown.
func (r *Recorder) Load(id uuid.UUID) (*Transition, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", r.dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		found, err := scanFile(filepath.Join(r.dir, entry.Name()), id)
		if err != nil {
			return nil, err
		}
		if found != nil {
			return found, nil
		}
	}
	return nil, nil
}

// Recent returns this recorder's transitions, newest first. limit <= 0
// returns all of them.
func (r *Recorder) Recent(limit int) ([]*Transition, error) {
	transitions, err := readAll(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	// Reverse to newest-first.
	for i, j := 0, len(transitions)-1; i < j; i, j = i+1, j-1 {
		transitions[i], transitions[j] = transitions[j], transitions[i]
	}
	if limit > 0 && len(transitions) > limit {
		transitions = transitions[:limit]
	}
	return transitions, nil
}

// LoadAll reads every transition recorded under a workspace, across all
// recorder files, oldest first by recorded time.
func LoadAll(workspace string) ([]*Transition, error) {
	dir := filepath.Join(workspace, ".tether", "transitions")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	var all []*Transition
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		transitions, err := readAll(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		all = append(all, transitions...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].RecordedAt.Before(all[j].RecordedAt) })
	return all, nil
}

func scanFile(path string, id uuid.UUID) (*Transition, error) {
	transitions, err := readAll(path)
	if err != nil {
		return nil, err
	}
	for _, t := range transitions {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, nil
}

func readAll(path string) ([]*Transition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var transitions []*Transition
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 32*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var t Transition
		if err := json.Unmarshal(line, &t); err != nil {
			return nil, fmt.Errorf("parse transition line %d of %s: %w", lineNum, path, err)
		}
		transitions = append(transitions, &t)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read transitions file %s: %w", path, err)
	}
	return transitions, nil
}
