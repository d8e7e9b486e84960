// Package tree builds and traverses the parent/child graph over the
// messages of a parsed session. Construction tolerates orphans, duplicate
// ids, and cyclic parent links; the resulting tree is always acyclic.
package tree

import (
	"fmt"

	"github.com/tether-dev/tether/internal/message"
)

// Node is one message's position in the conversation tree.
type Node struct {
	UUID     string
	Parent   string // empty for roots
	Children []string
	Orphan   bool // parent was declared but never appeared
}

// Tree is the threaded view of a session's messages.
type Tree struct {
	Roots []string
	Nodes map[string]*Node

	records map[string]*message.Record
	order   []string // arrival order of unique uuids
}

// Build constructs a tree from records in arrival order. Returned warnings
// describe duplicate ids, orphans with an unknown parent, and broken cycles.
func Build(records []*message.Record) (*Tree, []string) {
	t := &Tree{
		Nodes:   make(map[string]*Node),
		records: make(map[string]*message.Record),
	}
	var warnings []string

	// Index first occurrence of each uuid; later duplicates are kept in the
	// message list but do not get a second tree node.
	for _, rec := range records {
		if rec.UUID == "" {
			continue
		}
		if _, seen := t.records[rec.UUID]; seen {
			warnings = append(warnings, fmt.Sprintf("duplicate message id %s: keeping first occurrence", rec.UUID))
			continue
		}
		t.records[rec.UUID] = rec
		t.order = append(t.order, rec.UUID)
		t.Nodes[rec.UUID] = &Node{UUID: rec.UUID}
	}

	// Attach children, preserving arrival order among siblings.
	for _, uuid := range t.order {
		rec := t.records[uuid]
		node := t.Nodes[uuid]
		switch {
		case rec.ParentUUID == "":
			t.Roots = append(t.Roots, uuid)
		case t.Nodes[rec.ParentUUID] == nil:
			node.Orphan = true
			t.Roots = append(t.Roots, uuid)
			warnings = append(warnings, fmt.Sprintf("unknown parent %s for message %s: treating as root", rec.ParentUUID, uuid))
		default:
			node.Parent = rec.ParentUUID
			parent := t.Nodes[rec.ParentUUID]
			parent.Children = append(parent.Children, uuid)
		}
	}

	warnings = append(warnings, t.breakCycles()...)
	return t, warnings
}

// breakCycles demotes one node per unreachable cluster to a new root,
// dropping its back edge, until every node is reachable from a root.
func (t *Tree) breakCycles() []string {
	var warnings []string
	for {
		reached := make(map[string]bool, len(t.Nodes))
		for _, root := range t.Roots {
			t.walk(root, func(uuid string) { reached[uuid] = true })
		}
		if len(reached) == len(t.Nodes) {
			return warnings
		}

		// First unreached node in arrival order becomes a root.
		for _, uuid := range t.order {
			if reached[uuid] {
				continue
			}
			node := t.Nodes[uuid]
			if parent := t.Nodes[node.Parent]; parent != nil {
				parent.Children = removeChild(parent.Children, uuid)
			}
			node.Parent = ""
			t.Roots = append(t.Roots, uuid)
			warnings = append(warnings, fmt.Sprintf("cycle detected at message %s: promoted to root", uuid))
			break
		}
	}
}

func removeChild(children []string, uuid string) []string {
	out := children[:0]
	for _, c := range children {
		if c != uuid {
			out = append(out, c)
		}
	}
	return out
}

// walk visits uuid and its descendants pre-order. The visited guard makes
// traversal safe even mid cycle-breaking.
func (t *Tree) walk(uuid string, visit func(string)) {
	visited := make(map[string]bool)
	var rec func(string)
	rec = func(u string) {
		if visited[u] {
			return
		}
		visited[u] = true
		visit(u)
		for _, child := range t.Nodes[u].Children {
			rec(child)
		}
	}
	rec(uuid)
}

// Record returns the message for a uuid, or nil.
func (t *Tree) Record(uuid string) *message.Record {
	return t.records[uuid]
}

// Len returns the number of unique nodes.
func (t *Tree) Len() int {
	return len(t.Nodes)
}

// OrphanCount returns how many roots were created from unresolved parents.
func (t *Tree) OrphanCount() int {
	n := 0
	for _, node := range t.Nodes {
		if node.Orphan {
			n++
		}
	}
	return n
}
