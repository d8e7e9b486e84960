package parser

import (
	"encoding/json"
	"time"

	"github.com/tether-dev/tether/internal/message"
)

// rawRecord mirrors one line of a session log. Field names follow the
// upstream camelCase convention.
type rawRecord struct {
	Type        string          `json:"type"`
	UUID        string          `json:"uuid"`
	ParentUUID  *string         `json:"parentUuid"`
	SessionID   string          `json:"sessionId"`
	Timestamp   string          `json:"timestamp"`
	CWD         string          `json:"cwd"`
	IsSidechain bool            `json:"isSidechain"`
	CostUSD     *float64        `json:"costUSD"`
	Message     *rawMessage     `json:"message"`
	Content     json.RawMessage `json:"content"` // system records carry bare content
	Subtype     string          `json:"subtype"`

	// summary records
	Summary  string `json:"summary"`
	LeafUUID string `json:"leafUuid"`
}

// rawMessage is the nested message envelope on user/assistant records.
type rawMessage struct {
	ID      string              `json:"id"`
	Role    string              `json:"role"`
	Content json.RawMessage     `json:"content"`
	Model   string              `json:"model"`
	Usage   *message.TokenUsage `json:"usage"`
}

// knownRecordTypes are the record types the parser consumes. Anything else
// is collected as a warning and skipped.
var knownRecordTypes = map[string]bool{
	"user":        true,
	"assistant":   true,
	"system":      true,
	"summary":     true,
	"tool_result": true,
}

// parseTimestamp accepts RFC3339 with or without sub-second precision.
func parseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t
}
