// Package message defines the typed message model for Claude Code session
// logs: message records, roles, token usage, and the content block variants
// that make up a message body.
package message

import (
	"strings"
	"time"
)

// Role identifies the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// TokenUsage holds the token counters reported for a single message.
type TokenUsage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
}

// Total returns input + output tokens.
func (u TokenUsage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// Record is one fully decoded message from a session log.
type Record struct {
	UUID        string
	ParentUUID  string // empty if root
	Role        Role
	Timestamp   time.Time
	CWD         string
	IsSidechain bool
	Content     []ContentBlock
	Usage       *TokenUsage
	CostUSD     *float64 // nil when the record carries no cost
	Model       string
}

// Text returns the concatenated text blocks of the record. A record whose
// content is tool blocks only yields the empty string, not a placeholder.
func (r *Record) Text() string {
	var parts []string
	for _, block := range r.Content {
		if t, ok := block.(*TextBlock); ok {
			parts = append(parts, t.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// Tools returns the tool names invoked by this record, in content order.
func (r *Record) Tools() []string {
	var tools []string
	for _, block := range r.Content {
		if tu, ok := block.(*ToolUseBlock); ok {
			tools = append(tools, tu.Name)
		}
	}
	return tools
}

// HasToolUse reports whether the record contains at least one tool_use block.
func (r *Record) HasToolUse() bool {
	for _, block := range r.Content {
		if _, ok := block.(*ToolUseBlock); ok {
			return true
		}
	}
	return false
}

// Cost returns the record's cost in USD, or 0 when none was reported.
func (r *Record) Cost() float64 {
	if r.CostUSD == nil {
		return 0
	}
	return *r.CostUSD
}

// InputTokens returns the input token count, or 0 without usage data.
func (r *Record) InputTokens() int {
	if r.Usage == nil {
		return 0
	}
	return r.Usage.InputTokens
}

// OutputTokens returns the output token count, or 0 without usage data.
func (r *Record) OutputTokens() int {
	if r.Usage == nil {
		return 0
	}
	return r.Usage.OutputTokens
}
