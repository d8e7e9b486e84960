package tree

import (
	"testing"

	"github.com/tether-dev/tether/internal/message"
)

func rec(uuid, parent string, sidechain bool) *message.Record {
	return &message.Record{UUID: uuid, ParentUUID: parent, IsSidechain: sidechain}
}

func TestBuildBranchedThread(t *testing.T) {
	records := []*message.Record{
		rec("A", "", false),
		rec("B", "A", false),
		rec("C", "A", false),
	}
	tr, warnings := Build(records)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	if len(tr.Roots) != 1 || tr.Roots[0] != "A" {
		t.Fatalf("roots: got %v, want [A]", tr.Roots)
	}
	children := tr.Nodes["A"].Children
	if len(children) != 2 || children[0] != "B" || children[1] != "C" {
		t.Errorf("children of A: got %v, want [B C]", children)
	}

	leaves := tr.Leaves()
	if len(leaves) != 2 {
		t.Errorf("leaves: got %v", leaves)
	}

	// Main chain: root plus one of the depth-1 leaves.
	chain := tr.MainChain()
	if len(chain) != 2 {
		t.Errorf("main chain length: got %d, want 2", len(chain))
	}
}

func TestBuildOrphanBecomesRoot(t *testing.T) {
	records := []*message.Record{
		rec("A", "", false),
		rec("B", "X", false), // parent X never appears
	}
	tr, warnings := Build(records)

	if len(warnings) != 1 {
		t.Fatalf("warnings: got %v, want exactly one", warnings)
	}
	if len(tr.Roots) != 2 {
		t.Fatalf("roots: got %v", tr.Roots)
	}
	if !tr.Nodes["B"].Orphan {
		t.Error("B should be flagged as orphan")
	}
	if tr.OrphanCount() != 1 {
		t.Errorf("OrphanCount: got %d, want 1", tr.OrphanCount())
	}
	if tr.Len() != 2 {
		t.Errorf("node count: got %d, want 2", tr.Len())
	}
}

func TestBuildBreaksCycle(t *testing.T) {
	// B and C reference each other; neither is reachable from A.
	records := []*message.Record{
		rec("A", "", false),
		rec("B", "C", false),
		rec("C", "B", false),
	}
	tr, warnings := Build(records)

	found := false
	for _, w := range warnings {
		if len(w) > 0 {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a cycle warning")
	}

	// Every node must now be reachable from a root.
	reached := make(map[string]bool)
	for _, root := range tr.Roots {
		for _, uuid := range tr.PreOrder(root) {
			reached[uuid] = true
		}
	}
	if len(reached) != 3 {
		t.Errorf("reachable nodes: got %d, want 3", len(reached))
	}
}

func TestBuildKeepsFirstDuplicate(t *testing.T) {
	first := rec("A", "", false)
	dup := rec("A", "", false)
	tr, warnings := Build([]*message.Record{first, dup})

	if len(warnings) != 1 {
		t.Fatalf("warnings: got %v", warnings)
	}
	if tr.Len() != 1 {
		t.Errorf("node count: got %d, want 1", tr.Len())
	}
	if tr.Record("A") != first {
		t.Error("duplicate should keep the first occurrence")
	}
}

func TestPreOrderAndPathTo(t *testing.T) {
	records := []*message.Record{
		rec("A", "", false),
		rec("B", "A", false),
		rec("C", "B", false),
		rec("D", "A", false),
	}
	tr, _ := Build(records)

	order := tr.PreOrder("A")
	want := []string{"A", "B", "C", "D"}
	if len(order) != len(want) {
		t.Fatalf("preorder: got %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("preorder[%d]: got %q, want %q", i, order[i], want[i])
		}
	}

	path := tr.PathTo("C")
	wantPath := []string{"A", "B", "C"}
	if len(path) != len(wantPath) {
		t.Fatalf("path: got %v", path)
	}
	for i := range wantPath {
		if path[i] != wantPath[i] {
			t.Errorf("path[%d]: got %q, want %q", i, path[i], wantPath[i])
		}
	}
}

func TestMainChainFiltersSidechains(t *testing.T) {
	records := []*message.Record{
		rec("A", "", false),
		rec("B", "A", true), // sidechain
		rec("C", "B", false),
	}
	tr, _ := Build(records)

	chain := tr.MainChain()
	if len(chain) != 2 {
		t.Fatalf("chain length: got %d, want 2", len(chain))
	}
	for _, msg := range chain {
		if msg.IsSidechain {
			t.Errorf("sidechain message %s in main chain", msg.UUID)
		}
	}
}

func TestBranchingFactor(t *testing.T) {
	records := []*message.Record{
		rec("A", "", false),
		rec("B", "A", false),
		rec("C", "A", false),
	}
	tr, _ := Build(records)
	if bf := tr.BranchingFactor(); bf != 2.0 {
		t.Errorf("branching factor: got %f, want 2.0", bf)
	}

	empty, _ := Build(nil)
	if bf := empty.BranchingFactor(); bf != 0 {
		t.Errorf("empty branching factor: got %f, want 0", bf)
	}
}

func TestDepths(t *testing.T) {
	records := []*message.Record{
		rec("A", "", false),
		rec("B", "A", false),
		rec("C", "B", false),
	}
	tr, _ := Build(records)
	if d := tr.Depth("C"); d != 2 {
		t.Errorf("depth of C: got %d, want 2", d)
	}
	if d := tr.MaxDepth(); d != 2 {
		t.Errorf("max depth: got %d, want 2", d)
	}
}
