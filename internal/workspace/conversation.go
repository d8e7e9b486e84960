package workspace

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/tether-dev/tether/internal/executor"
	"github.com/tether-dev/tether/internal/log"
	"github.com/tether-dev/tether/internal/observer"
	"github.com/tether-dev/tether/internal/recorder"
)

// Conversation is an ordered chain of transitions against one workspace.
// The CLI mints a fresh session id on every resume, so the conversation
// carries its own uuid and chains session ids turn to turn; a session id is
// never a conversation identifier.
type Conversation struct {
	id            uuid.UUID
	ws            *Workspace
	lastSessionID string // empty until the first successful send
	sessionIDs    []string
	transitions   []*recorder.Transition
	rec           *recorder.Recorder
	createdAt     time.Time
	lastRecordErr error
}

// NewConversation starts a conversation with no recording.
func NewConversation(ws *Workspace) *Conversation {
	conv, _ := NewConversationWithRecording(ws, false)
	return conv
}

// NewConversationWithRecording starts a conversation, optionally persisting
// every transition through a recorder.
func NewConversationWithRecording(ws *Workspace, record bool) (*Conversation, error) {
	conv := &Conversation{
		id:        uuid.New(),
		ws:        ws,
		createdAt: time.Now().UTC(),
	}
	if record {
		rec, err := recorder.New(ws.Path())
		if err != nil {
			return nil, err
		}
		conv.rec = rec
	}
	return conv, nil
}

// ID returns the conversation's identity.
func (c *Conversation) ID() uuid.UUID {
	return c.id
}

// Send executes one turn: snapshot, execute, snapshot, record. Any executor
// or observer error aborts the turn with no partial transition stored.
func (c *Conversation) Send(text string) (*recorder.Transition, error) {
	prompt := executor.Prompt{
		Text:            text,
		ResumeSessionID: c.lastSessionID,
	}

	snapBefore, err := c.snapshotBefore()
	if err != nil {
		return nil, err
	}

	execution, err := c.ws.Execute(prompt)
	if err != nil {
		return nil, err
	}

	snapAfter, err := c.ws.SnapshotWithSession(execution.SessionID)
	if err != nil {
		return nil, err
	}
	if snapAfter.Session != nil {
		execution.ToolsUsed = snapAfter.Session.ToolsUsed()
	}

	transition := &recorder.Transition{
		ID:         uuid.New(),
		Before:     snapBefore,
		Prompt:     prompt,
		Execution:  execution,
		After:      snapAfter,
		RecordedAt: time.Now().UTC(),
		Metadata: map[string]any{
			"conversation_id": c.id.String(),
		},
	}

	// Recording failures do not lose the turn; history keeps the
	// transition and the error is surfaced via RecordingError.
	if c.rec != nil {
		if err := c.rec.Append(transition); err != nil {
			c.lastRecordErr = err
			if logger := c.ws.Logger(); logger != nil {
				_ = logger.Append(log.LogEvent{Event: log.EventExecFailed, Error: fmt.Sprintf("recording transition: %v", err)})
			}
		} else {
			c.lastRecordErr = nil
			if logger := c.ws.Logger(); logger != nil {
				_ = logger.Append(log.LogEvent{
					Event:        log.EventTransitionRecorded,
					TransitionID: transition.ID.String(),
					SessionID:    execution.SessionID,
				})
			}
		}
	}

	c.transitions = append(c.transitions, transition)
	c.sessionIDs = append(c.sessionIDs, execution.SessionID)
	c.lastSessionID = execution.SessionID
	return transition, nil
}

// snapshotBefore captures the before-state. A fresh conversation has no
// session of its own yet, so only files are captured; comparing against
// whatever session happens to be newest would be misleading.
func (c *Conversation) snapshotBefore() (*observer.Snapshot, error) {
	if c.lastSessionID == "" {
		return c.ws.SnapshotFiles()
	}
	return c.ws.Snapshot()
}

// History returns all transitions in send order.
func (c *Conversation) History() []*recorder.Transition {
	return c.transitions
}

// LastTransition returns the most recent transition, or nil.
func (c *Conversation) LastTransition() *recorder.Transition {
	if len(c.transitions) == 0 {
		return nil
	}
	return c.transitions[len(c.transitions)-1]
}

// SessionIDs returns the chain of session ids, one per successful send.
func (c *Conversation) SessionIDs() []string {
	return c.sessionIDs
}

// TotalCost sums the execution cost across all transitions.
func (c *Conversation) TotalCost() float64 {
	total := 0.0
	for _, t := range c.transitions {
		if t.Execution != nil {
			total += t.Execution.CostUSD
		}
	}
	return total
}

// ToolsUsed returns the sorted union of tool names across all transitions,
// answered from the shared session handles without re-parsing.
func (c *Conversation) ToolsUsed() []string {
	set := make(map[string]bool)
	for _, t := range c.transitions {
		for _, tool := range t.ToolsUsed() {
			set[tool] = true
		}
	}
	var tools []string
	for tool := range set {
		tools = append(tools, tool)
	}
	sort.Strings(tools)
	return tools
}

// Recorder returns the transition recorder, or nil when not recording.
func (c *Conversation) Recorder() *recorder.Recorder {
	return c.rec
}

// RecordingError returns the error from the most recent recorder append,
// or nil. Recording problems never abort a send.
func (c *Conversation) RecordingError() error {
	return c.lastRecordErr
}

// savedConversation is the on-disk representation.
type savedConversation struct {
	ID               uuid.UUID              `json:"id"`
	CreatedAt        time.Time              `json:"created_at"`
	SessionIDs       []string               `json:"session_ids"`
	Transitions      []*recorder.Transition `json:"transitions"`
	RecordingEnabled bool                   `json:"recording_enabled"`
}

// Save writes the conversation (id, transition history, session-id chain)
// as JSON. Parsed sessions are dropped by snapshot serialization.
func (c *Conversation) Save(path string) error {
	saved := savedConversation{
		ID:               c.id,
		CreatedAt:        c.createdAt,
		SessionIDs:       c.sessionIDs,
		Transitions:      c.transitions,
		RecordingEnabled: c.rec != nil,
	}
	data, err := json.MarshalIndent(saved, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal conversation: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write conversation: %w", err)
	}
	return nil
}

// LoadConversation restores a saved conversation onto a workspace. When
// record is true, or the saved state had recording enabled, a fresh
// recorder is attached.
func LoadConversation(path string, ws *Workspace, record bool) (*Conversation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read conversation: %w", err)
	}
	var saved savedConversation
	if err := json.Unmarshal(data, &saved); err != nil {
		return nil, fmt.Errorf("parse conversation: %w", err)
	}

	conv := &Conversation{
		id:          saved.ID,
		ws:          ws,
		sessionIDs:  saved.SessionIDs,
		transitions: saved.Transitions,
		createdAt:   saved.CreatedAt,
	}
	if len(saved.SessionIDs) > 0 {
		conv.lastSessionID = saved.SessionIDs[len(saved.SessionIDs)-1]
	}
	if record || saved.RecordingEnabled {
		rec, err := recorder.New(ws.Path())
		if err != nil {
			return nil, err
		}
		conv.rec = rec
	}
	return conv, nil
}
