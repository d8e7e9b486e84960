package tree

import "github.com/tether-dev/tether/internal/message"

// PreOrder enumerates uuids reachable from root, parent before children,
// siblings in arrival order.
func (t *Tree) PreOrder(root string) []string {
	if t.Nodes[root] == nil {
		return nil
	}
	var out []string
	t.walk(root, func(uuid string) { out = append(out, uuid) })
	return out
}

// PathTo returns the uuids from the containing root down to uuid, inclusive.
// Returns nil for an unknown uuid.
func (t *Tree) PathTo(uuid string) []string {
	node := t.Nodes[uuid]
	if node == nil {
		return nil
	}
	var path []string
	for node != nil {
		path = append(path, node.UUID)
		if node.Parent == "" {
			break
		}
		node = t.Nodes[node.Parent]
	}
	// Reverse to root-first order.
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// Leaves returns all uuids with no children, in arrival order.
func (t *Tree) Leaves() []string {
	var leaves []string
	for _, uuid := range t.order {
		if len(t.Nodes[uuid].Children) == 0 {
			leaves = append(leaves, uuid)
		}
	}
	return leaves
}

// Depth returns the number of edges from uuid up to its root.
func (t *Tree) Depth(uuid string) int {
	node := t.Nodes[uuid]
	depth := 0
	for node != nil && node.Parent != "" {
		depth++
		node = t.Nodes[node.Parent]
	}
	return depth
}

// MaxDepth returns the deepest node's depth, counted in edges.
func (t *Tree) MaxDepth() int {
	max := 0
	for uuid := range t.Nodes {
		if d := t.Depth(uuid); d > max {
			max = d
		}
	}
	return max
}

// MainChain walks from the deepest leaf back to its root and returns the
// non-sidechain messages root-first. This is the conversation a reader
// would consider "the" thread.
func (t *Tree) MainChain() []*message.Record {
	leaves := t.Leaves()
	if len(leaves) == 0 {
		return nil
	}

	deepest := leaves[0]
	depth := t.Depth(deepest)
	for _, leaf := range leaves[1:] {
		if d := t.Depth(leaf); d > depth {
			deepest, depth = leaf, d
		}
	}

	var chain []*message.Record
	for _, uuid := range t.PathTo(deepest) {
		rec := t.records[uuid]
		if rec != nil && !rec.IsSidechain {
			chain = append(chain, rec)
		}
	}
	return chain
}

// BranchingFactor returns the average number of children across nodes that
// have any, or 0 for a childless tree.
func (t *Tree) BranchingFactor() float64 {
	parents, children := 0, 0
	for _, node := range t.Nodes {
		if len(node.Children) > 0 {
			parents++
			children += len(node.Children)
		}
	}
	if parents == 0 {
		return 0
	}
	return float64(children) / float64(parents)
}
