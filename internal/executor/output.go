// output.go parses the JSON envelope from claude --output-format json.
package executor

import (
	"encoding/json"
	"fmt"
)

// ResponseParseError means stdout was not the expected JSON envelope.
type ResponseParseError struct {
	Raw string // truncated raw stdout for diagnostics
	Err error
}

func (e *ResponseParseError) Error() string {
	return fmt.Sprintf("parsing claude output: %v\nraw stdout: %s", e.Err, e.Raw)
}

func (e *ResponseParseError) Unwrap() error { return e.Err }

// rawResponse is the full JSON envelope returned by the CLI. Result and
// SessionID are pointers so a missing field is distinguishable from an
// empty one: tool-only turns legitimately return result "".
type rawResponse struct {
	Type       string  `json:"type"`
	Subtype    string  `json:"subtype"`
	Result     *string `json:"result"`
	SessionID  *string `json:"session_id"`
	CostUSD    float64 `json:"cost_usd"`
	Model      string  `json:"model"`
	DurationMS int64   `json:"duration_ms"`
	IsError    bool    `json:"is_error"`
	NumTurns   int     `json:"num_turns"`
}

// parsedResponse holds the fields the executor consumes.
type parsedResponse struct {
	Result    string
	SessionID string
	CostUSD   float64
	Model     string
}

const maxRawExcerpt = 512

func parseResponse(raw []byte) (*parsedResponse, error) {
	if len(raw) == 0 {
		return nil, &ResponseParseError{Err: fmt.Errorf("empty claude output")}
	}

	var resp rawResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &ResponseParseError{Raw: rawExcerpt(raw), Err: err}
	}

	if resp.Result == nil {
		return nil, &ResponseParseError{Raw: rawExcerpt(raw), Err: fmt.Errorf("missing required field %q", "result")}
	}
	if resp.SessionID == nil || *resp.SessionID == "" {
		return nil, &ResponseParseError{Raw: rawExcerpt(raw), Err: fmt.Errorf("missing required field %q", "session_id")}
	}

	return &parsedResponse{
		Result:    *resp.Result,
		SessionID: *resp.SessionID,
		CostUSD:   resp.CostUSD,
		Model:     resp.Model,
	}, nil
}

func rawExcerpt(raw []byte) string {
	if len(raw) > maxRawExcerpt {
		return string(raw[:maxRawExcerpt]) + "..."
	}
	return string(raw)
}
