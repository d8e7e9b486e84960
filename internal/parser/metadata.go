package parser

import (
	"sort"
	"time"

	"github.com/tether-dev/tether/internal/message"
)

// Metadata holds per-session aggregates. All values are recomputed from the
// record set; summary records contribute hints only and never override
// derived numbers.
type Metadata struct {
	TotalMessages     int
	UserMessages      int
	AssistantMessages int

	TotalCostUSD float64
	CostByTurn   []float64 // per-message cost in arrival order

	TotalInputTokens         int
	TotalOutputTokens        int
	TotalCacheCreationTokens int
	TotalCacheReadTokens     int

	FirstMessageTime time.Time
	LastMessageTime  time.Time
	Duration         time.Duration

	Models          []string // sorted unique model ids
	UniqueToolsUsed []string // sorted unique tool names
	ToolUsageCount  map[string]int
	TotalToolCalls  int

	// SummaryHints carries the text of summary records, in file order.
	SummaryHints []string
}

// computeMetadata derives aggregates in one pass over the messages.
func computeMetadata(messages []*message.Record) Metadata {
	meta := Metadata{
		ToolUsageCount: make(map[string]int),
	}

	models := make(map[string]bool)
	for _, msg := range messages {
		meta.TotalMessages++
		switch msg.Role {
		case message.RoleUser:
			meta.UserMessages++
		case message.RoleAssistant:
			meta.AssistantMessages++
		}

		cost := msg.Cost()
		meta.TotalCostUSD += cost
		meta.CostByTurn = append(meta.CostByTurn, cost)

		if msg.Usage != nil {
			meta.TotalInputTokens += msg.Usage.InputTokens
			meta.TotalOutputTokens += msg.Usage.OutputTokens
			meta.TotalCacheCreationTokens += msg.Usage.CacheCreationInputTokens
			meta.TotalCacheReadTokens += msg.Usage.CacheReadInputTokens
		}

		if msg.Model != "" {
			models[msg.Model] = true
		}

		for _, tool := range msg.Tools() {
			meta.ToolUsageCount[tool]++
			meta.TotalToolCalls++
		}

		if !msg.Timestamp.IsZero() {
			if meta.FirstMessageTime.IsZero() || msg.Timestamp.Before(meta.FirstMessageTime) {
				meta.FirstMessageTime = msg.Timestamp
			}
			if msg.Timestamp.After(meta.LastMessageTime) {
				meta.LastMessageTime = msg.Timestamp
			}
		}
	}

	if !meta.FirstMessageTime.IsZero() {
		meta.Duration = meta.LastMessageTime.Sub(meta.FirstMessageTime)
	}

	for model := range models {
		meta.Models = append(meta.Models, model)
	}
	sort.Strings(meta.Models)

	for tool := range meta.ToolUsageCount {
		meta.UniqueToolsUsed = append(meta.UniqueToolsUsed, tool)
	}
	sort.Strings(meta.UniqueToolsUsed)

	return meta
}
