// Package executor spawns the Claude CLI as a child process and parses its
// structured JSON response.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/tether-dev/tether/internal/config"
	"github.com/tether-dev/tether/internal/log"
)

// ErrBinaryNotFound means the CLI binary is not on PATH.
var ErrBinaryNotFound = errors.New("claude binary not found")

// InvocationError means the CLI ran but exited non-zero or timed out.
type InvocationError struct {
	Stderr  string
	Timeout bool
	Err     error
}

func (e *InvocationError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("claude timed out: %v", e.Err)
	}
	return fmt.Sprintf("claude exited with error: %v\nstderr: %s", e.Err, e.Stderr)
}

func (e *InvocationError) Unwrap() error { return e.Err }

// Prompt is one request to the CLI. An empty ResumeSessionID starts a fresh
// session; a non-empty one continues that exact session.
type Prompt struct {
	Text            string `json:"text"`
	ResumeSessionID string `json:"resume_session_id,omitempty"`
}

// Execution is the outcome of one CLI invocation. ToolsUsed is filled in by
// the workspace once the resulting session log has been parsed; the JSON
// envelope alone does not carry it.
type Execution struct {
	Prompt    Prompt        `json:"prompt"`
	Response  string        `json:"response"` // empty for tool-only turns
	SessionID string        `json:"session_id"`
	CostUSD   float64       `json:"cost_usd"`
	Duration  time.Duration `json:"duration"`
	Model     string        `json:"model,omitempty"`
	ToolsUsed []string      `json:"tools_used,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// Executor invokes the CLI against one working directory.
type Executor struct {
	binary          string
	workDir         string
	allowedTools    string
	model           string
	skipPermissions bool
	timeout         time.Duration
	logger          *log.Logger
}

// New resolves the CLI binary and builds an executor for workDir.
// Pass nil cfg to use defaults.
func New(workDir string, cfg *config.Config) (*Executor, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	binary := cfg.Execution.Binary
	if binary == "" {
		binary = "claude"
	}
	resolved, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", binary, ErrBinaryNotFound)
	}

	timeout := time.Duration(cfg.Execution.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}

	return &Executor{
		binary:          resolved,
		workDir:         workDir,
		allowedTools:    cfg.Execution.AllowedTools,
		model:           cfg.Model,
		skipPermissions: cfg.Execution.SkipPermissions,
		timeout:         timeout,
	}, nil
}

// SetAllowedTools overrides the --allowedTools csv. Empty clears it.
func (e *Executor) SetAllowedTools(tools string) {
	e.allowedTools = tools
}

// SetModel overrides the --model flag. Empty uses the CLI default.
func (e *Executor) SetModel(model string) {
	e.model = model
}

// SetLogger attaches an event logger. Nil disables logging.
func (e *Executor) SetLogger(logger *log.Logger) {
	e.logger = logger
}

// Execute runs the CLI with the given prompt and waits for completion,
// enforcing the configured hard timeout. Duration is measured here
// regardless of any CLI-reported value.
func (e *Executor) Execute(prompt Prompt) (*Execution, error) {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	args := e.buildArgs(prompt)
	cmd := exec.CommandContext(ctx, e.binary, args...)
	cmd.Dir = e.workDir

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.logEvent(log.LogEvent{Event: log.EventExecStarted, Prompt: prompt.Text, SessionID: prompt.ResumeSessionID})

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		invErr := &InvocationError{Stderr: stderr.String(), Err: err}
		if ctx.Err() == context.DeadlineExceeded {
			invErr.Timeout = true
			invErr.Err = ctx.Err()
		}
		e.logEvent(log.LogEvent{Event: log.EventExecFailed, Error: invErr.Error()})
		return nil, invErr
	}

	response, parseErr := parseResponse(stdout.Bytes())
	if parseErr != nil {
		e.logEvent(log.LogEvent{Event: log.EventExecFailed, Error: parseErr.Error()})
		return nil, parseErr
	}

	execution := &Execution{
		Prompt:    prompt,
		Response:  response.Result,
		SessionID: response.SessionID,
		CostUSD:   response.CostUSD,
		Duration:  elapsed,
		Model:     response.Model,
		Timestamp: start.UTC(),
	}

	e.logEvent(log.LogEvent{
		Event:      log.EventExecFinished,
		SessionID:  execution.SessionID,
		Model:      execution.Model,
		CostUSD:    execution.CostUSD,
		DurationMs: elapsed.Milliseconds(),
	})
	return execution, nil
}

// buildArgs constructs the CLI argument slice. Flag order matters: the -p
// and prompt text pair must come last.
func (e *Executor) buildArgs(prompt Prompt) []string {
	var args []string

	if prompt.ResumeSessionID != "" {
		args = append(args, "--resume", prompt.ResumeSessionID)
	}
	if e.allowedTools != "" {
		args = append(args, "--allowedTools", e.allowedTools)
	}
	if e.model != "" {
		args = append(args, "--model", e.model)
	}
	if e.skipPermissions {
		args = append(args, "--dangerously-skip-permissions")
	}

	args = append(args, "-p", "--output-format", "json", prompt.Text)
	return args
}

func (e *Executor) logEvent(event log.LogEvent) {
	if e.logger == nil {
		return
	}
	_ = e.logger.Append(event)
}
