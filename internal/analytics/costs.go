package analytics

import "github.com/tether-dev/tether/internal/parser"

// CostByTurn returns the per-message cost sequence in arrival order.
func CostByTurn(sess *parser.Session) []float64 {
	costs := make([]float64, len(sess.Messages))
	for i, msg := range sess.Messages {
		costs[i] = msg.Cost()
	}
	return costs
}

// ToolCosts attributes each message's cost equally among the tools that
// message invoked. Messages without tool use contribute nothing.
func ToolCosts(sess *parser.Session) map[string]float64 {
	costs := make(map[string]float64)
	for _, msg := range sess.Messages {
		tools := msg.Tools()
		if len(tools) == 0 {
			continue
		}
		share := msg.Cost() / float64(len(tools))
		for _, tool := range tools {
			costs[tool] += share
		}
	}
	return costs
}
