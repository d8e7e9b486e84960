package analytics

import (
	"sort"

	"github.com/tether-dev/tether/internal/parser"
)

// ConversationStats summarizes the shape of a session's message graph.
type ConversationStats struct {
	MessageCount    int
	Roles           []string // sorted unique roles
	BranchingFactor float64
	OrphanCount     int
	MainChainLength int
	MaxDepth        int
	LeafCount       int
}

// Stats computes conversation shape metrics from the session tree.
func Stats(sess *parser.Session) ConversationStats {
	roles := make(map[string]bool)
	for _, msg := range sess.Messages {
		roles[string(msg.Role)] = true
	}
	var roleList []string
	for role := range roles {
		roleList = append(roleList, role)
	}
	sort.Strings(roleList)

	return ConversationStats{
		MessageCount:    len(sess.Messages),
		Roles:           roleList,
		BranchingFactor: sess.Tree.BranchingFactor(),
		OrphanCount:     sess.Tree.OrphanCount(),
		MainChainLength: len(sess.Tree.MainChain()),
		MaxDepth:        sess.Tree.MaxDepth(),
		LeafCount:       len(sess.Tree.Leaves()),
	}
}
