package engine

import (
	"errors"
	"fmt"
	"testing"
)

// seqIDs is a deterministic id generator for tests.
type seqIDs struct {
	nodes int
	edges int
}

func (s *seqIDs) NodeID() string {
	s.nodes++
	return fmt.Sprintf("node_%d", s.nodes)
}

func (s *seqIDs) EdgeID() string {
	s.edges++
	return fmt.Sprintf("edge_%d", s.edges)
}

func newTestGraph() *SceneGraph {
	return NewSceneGraphWithIDs(Rect{X: -1000, Y: -1000, Width: 2000, Height: 2000}, &seqIDs{})
}

func addNode(t *testing.T, sg *SceneGraph, nodeType string, x, y float64) *Node {
	t.Helper()
	n := sg.NewNode(nodeType)
	n.SetPosition(x, y)
	if err := sg.AddNode(n, sg.Root().ID()); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	return n
}

// --- Node management ---

func TestAddNodeAndLookup(t *testing.T) {
	sg := newTestGraph()
	n := addNode(t, sg, "rect", 10, 10)

	got, ok := sg.Node(n.ID())
	if !ok || got != n {
		t.Fatal("added node not found by id")
	}
	if n.Parent() != sg.Root() {
		t.Error("node should hang under the root")
	}
	if sg.NodeCount() != 1 {
		t.Errorf("NodeCount = %d, want 1", sg.NodeCount())
	}
}

func TestAddNodeDuplicateID(t *testing.T) {
	sg := newTestGraph()
	n := addNode(t, sg, "rect", 0, 0)

	dup := NewNode(n.ID(), "rect")
	if err := sg.AddNode(dup, sg.Root().ID()); !errors.Is(err, ErrDuplicateID) {
		t.Errorf("err = %v, want ErrDuplicateID", err)
	}
	if sg.NodeCount() != 1 {
		t.Error("failed add must leave the graph unchanged")
	}
}

func TestAddNodeUnknownParent(t *testing.T) {
	sg := newTestGraph()
	n := sg.NewNode("rect")
	if err := sg.AddNode(n, "node_missing"); !errors.Is(err, ErrUnknownParent) {
		t.Errorf("err = %v, want ErrUnknownParent", err)
	}
}

func TestRemoveNodeCascades(t *testing.T) {
	sg := newTestGraph()
	parent := addNode(t, sg, "group", 0, 0)

	child := sg.NewNode("rect")
	if err := sg.AddNode(child, parent.ID()); err != nil {
		t.Fatalf("AddNode child: %v", err)
	}

	other := addNode(t, sg, "rect", 200, 0)
	edge := sg.NewEdge(child.ID(), other.ID())
	if err := sg.AddEdge(edge); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}

	if err := sg.RemoveNode(parent.ID()); err != nil {
		t.Fatalf("RemoveNode: %v", err)
	}

	if _, ok := sg.Node(parent.ID()); ok {
		t.Error("parent still present")
	}
	if _, ok := sg.Node(child.ID()); ok {
		t.Error("descendant should be removed with its parent")
	}
	if _, ok := sg.Edge(edge.ID()); ok {
		t.Error("incident edge should be removed with its endpoint")
	}
	if sg.NodeCount() != 1 || sg.EdgeCount() != 0 {
		t.Errorf("counts = %d nodes, %d edges", sg.NodeCount(), sg.EdgeCount())
	}
}

func TestRemoveNodeUnknownIsNoop(t *testing.T) {
	sg := newTestGraph()
	if err := sg.RemoveNode("node_missing"); err != nil {
		t.Errorf("unknown id should be a silent no-op, got %v", err)
	}
}

func TestRemoveRootRefused(t *testing.T) {
	sg := newTestGraph()
	if err := sg.RemoveNode(sg.Root().ID()); !errors.Is(err, ErrRemoveRoot) {
		t.Errorf("err = %v, want ErrRemoveRoot", err)
	}
}

// --- Reparenting ---

func TestSetParent(t *testing.T) {
	sg := newTestGraph()
	a := addNode(t, sg, "group", 0, 0)
	b := addNode(t, sg, "rect", 10, 10)

	if err := sg.SetParent(b.ID(), a.ID()); err != nil {
		t.Fatalf("SetParent: %v", err)
	}
	if b.Parent() != a {
		t.Error("node not reparented")
	}
	if len(sg.Root().Children()) != 1 {
		t.Error("node should have left the root's child list")
	}
}

func TestSetParentRejectsCycle(t *testing.T) {
	sg := newTestGraph()
	a := addNode(t, sg, "group", 0, 0)

	b := sg.NewNode("group")
	if err := sg.AddNode(b, a.ID()); err != nil {
		t.Fatalf("AddNode: %v", err)
	}

	if err := sg.SetParent(a.ID(), b.ID()); !errors.Is(err, ErrCircularHierarchy) {
		t.Errorf("err = %v, want ErrCircularHierarchy", err)
	}
	if a.Parent() != sg.Root() || b.Parent() != a {
		t.Error("failed reparent mutated the tree")
	}
}

func TestSetParentRootRefused(t *testing.T) {
	sg := newTestGraph()
	a := addNode(t, sg, "group", 0, 0)
	if err := sg.SetParent(sg.Root().ID(), a.ID()); !errors.Is(err, ErrReparentRoot) {
		t.Errorf("err = %v, want ErrReparentRoot", err)
	}
}

// --- Edges ---

func TestAddEdgeValidatesEndpoints(t *testing.T) {
	sg := newTestGraph()
	a := addNode(t, sg, "rect", 0, 0)

	edge := sg.NewEdge(a.ID(), "node_missing")
	if err := sg.AddEdge(edge); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("err = %v, want ErrUnknownNode", err)
	}
	if sg.EdgeCount() != 0 {
		t.Error("failed add must leave the graph unchanged")
	}
}

func TestHasEdgeBetween(t *testing.T) {
	sg := newTestGraph()
	a := addNode(t, sg, "rect", 0, 0)
	b := addNode(t, sg, "rect", 100, 0)

	directed := sg.NewEdge(a.ID(), b.ID())
	if err := sg.AddEdge(directed); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}

	if !sg.HasEdgeBetween(a.ID(), b.ID()) {
		t.Error("forward lookup failed")
	}
	if sg.HasEdgeBetween(b.ID(), a.ID()) {
		t.Error("directed edge should not match reversed")
	}

	directed.SetDirected(false)
	if !sg.HasEdgeBetween(b.ID(), a.ID()) {
		t.Error("undirected edge should match either order")
	}
}

func TestRemoveEdge(t *testing.T) {
	sg := newTestGraph()
	a := addNode(t, sg, "rect", 0, 0)
	b := addNode(t, sg, "rect", 100, 0)
	e := sg.NewEdge(a.ID(), b.ID())
	if err := sg.AddEdge(e); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}

	sg.RemoveEdge(e.ID())
	if sg.EdgeCount() != 0 {
		t.Error("edge not removed")
	}
	sg.RemoveEdge("edge_missing") // silent no-op
}

// --- Spatial queries ---

func TestNodesAt(t *testing.T) {
	sg := newTestGraph()
	a := addNode(t, sg, "rect", 0, 0)
	a.SetSize(Size{Width: 50, Height: 50})
	b := addNode(t, sg, "rect", 200, 200)
	b.SetSize(Size{Width: 50, Height: 50})

	hits := sg.NodesAt(25, 25)
	if len(hits) != 1 || hits[0] != a {
		t.Errorf("NodesAt(25,25) = %v nodes, want only a", len(hits))
	}
	if len(sg.NodesAt(500, 500)) != 0 {
		t.Error("empty-space probe should return nothing")
	}
}

func TestNodesAtTracksMovement(t *testing.T) {
	sg := newTestGraph()
	a := addNode(t, sg, "rect", 0, 0)
	a.SetSize(Size{Width: 50, Height: 50})

	a.SetPosition(300, 300)

	if len(sg.NodesAt(25, 25)) != 0 {
		t.Error("node still indexed at its old position")
	}
	hits := sg.NodesAt(325, 325)
	if len(hits) != 1 || hits[0] != a {
		t.Error("node not indexed at its new position")
	}
}

func TestNodesAtFollowsParentMove(t *testing.T) {
	sg := newTestGraph()
	// Enough siblings to split the index root, so a stale bucket gets
	// pruned instead of scanned.
	for i := 0; i < 9; i++ {
		addNode(t, sg, "rect", float64(200+i*30), 200)
	}

	parent := addNode(t, sg, "group", -600, -600)
	child := sg.NewNode("rect")
	child.SetPosition(100, 100)
	child.SetSize(Size{Width: 20, Height: 20})
	if err := sg.AddNode(child, parent.ID()); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	grand := sg.NewNode("rect")
	grand.SetPosition(50, 0)
	grand.SetSize(Size{Width: 20, Height: 20})
	if err := sg.AddNode(grand, child.ID()); err != nil {
		t.Fatalf("AddNode: %v", err)
	}

	parent.SetPosition(500, 500)

	// Child world bounds are now (600,600)-(620,620).
	hits := sg.NodesAt(610, 610)
	if len(hits) != 1 || hits[0] != child {
		t.Fatalf("NodesAt(610,610) = %d hits, want the moved child", len(hits))
	}
	// Grandchild world bounds are (650,600)-(670,620).
	hits = sg.NodesAt(660, 610)
	if len(hits) != 1 || hits[0] != grand {
		t.Fatalf("NodesAt(660,610) = %d hits, want the moved grandchild", len(hits))
	}
	if len(sg.NodesAt(-495, -495)) != 0 {
		t.Error("child still indexed at its old world position")
	}
}

func TestNodesAtFollowsReparent(t *testing.T) {
	sg := newTestGraph()
	for i := 0; i < 9; i++ {
		addNode(t, sg, "rect", float64(200+i*30), 200)
	}

	group := addNode(t, sg, "group", -600, -600)
	child := addNode(t, sg, "rect", 100, 100)
	child.SetSize(Size{Width: 20, Height: 20})

	if err := sg.SetParent(child.ID(), group.ID()); err != nil {
		t.Fatalf("SetParent: %v", err)
	}

	// Child world bounds are now (-500,-500)-(-480,-480).
	hits := sg.NodesAt(-495, -495)
	if len(hits) != 1 || hits[0] != child {
		t.Fatalf("NodesAt(-495,-495) = %d hits, want the reparented child", len(hits))
	}
	if len(sg.NodesAt(110, 110)) != 0 {
		t.Error("child still indexed at its pre-reparent position")
	}
}

func TestNodesIn(t *testing.T) {
	sg := newTestGraph()
	a := addNode(t, sg, "rect", 0, 0)
	addNode(t, sg, "rect", 500, 500)

	got := sg.NodesIn(Rect{X: -10, Y: -10, Width: 200, Height: 200})
	found := false
	for _, n := range got {
		if n == a {
			found = true
		}
	}
	if !found {
		t.Error("query over a's region must include a")
	}
}

// --- Events ---

func collectEvents(sg *SceneGraph) *[]GraphEvent {
	var events []GraphEvent
	sg.OnGraphChange(func(ev GraphEvent) { events = append(events, ev) })
	return &events
}

func TestGraphEventsOutsideBatch(t *testing.T) {
	sg := newTestGraph()
	events := collectEvents(sg)

	a := addNode(t, sg, "rect", 0, 0)
	a.SetLabel("hi")
	if err := sg.RemoveNode(a.ID()); err != nil {
		t.Fatalf("RemoveNode: %v", err)
	}

	want := []GraphEventType{EventNodeAdded, EventNodeChanged, EventNodeRemoved}
	if len(*events) != len(want) {
		t.Fatalf("got %d events %v, want %d", len(*events), *events, len(want))
	}
	for i, ev := range *events {
		if ev.Type != want[i] {
			t.Errorf("event %d = %s, want %s", i, ev.Type, want[i])
		}
	}
}

func TestBatchEmitsSingleEvent(t *testing.T) {
	sg := newTestGraph()
	events := collectEvents(sg)

	sg.BeginBatch()
	a := addNode(t, sg, "rect", 0, 0)
	b := addNode(t, sg, "rect", 100, 0)
	e := sg.NewEdge(a.ID(), b.ID())
	if err := sg.AddEdge(e); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	a.SetLabel("start")
	sg.EndBatch()

	if len(*events) != 1 {
		t.Fatalf("got %d events, want exactly 1 batch event", len(*events))
	}
	ev := (*events)[0]
	if ev.Type != EventBatchUpdate {
		t.Fatalf("event type = %s, want %s", ev.Type, EventBatchUpdate)
	}
	if len(ev.Ops) != 4 {
		t.Errorf("batch ops = %d, want 4", len(ev.Ops))
	}
	// Order preserved.
	wantOps := []GraphEventType{EventNodeAdded, EventNodeAdded, EventEdgeAdded, EventNodeChanged}
	for i, op := range ev.Ops {
		if op.Type != wantOps[i] {
			t.Errorf("op %d = %s, want %s", i, op.Type, wantOps[i])
		}
	}
}

func TestNestedBatchesFlushOnce(t *testing.T) {
	sg := newTestGraph()
	events := collectEvents(sg)

	sg.BeginBatch()
	addNode(t, sg, "rect", 0, 0)
	sg.BeginBatch()
	addNode(t, sg, "rect", 50, 0)
	sg.EndBatch() // inner: must not flush
	if len(*events) != 0 {
		t.Fatal("inner EndBatch must not emit")
	}
	sg.EndBatch()

	if len(*events) != 1 || len((*events)[0].Ops) != 2 {
		t.Errorf("got %d events, want 1 with 2 ops", len(*events))
	}
}

func TestEmptyBatchEmitsNothing(t *testing.T) {
	sg := newTestGraph()
	events := collectEvents(sg)
	sg.BeginBatch()
	sg.EndBatch()
	if len(*events) != 0 {
		t.Error("empty batch should stay silent")
	}
}

func TestCancelBatchRollsBack(t *testing.T) {
	sg := newTestGraph()
	a := addNode(t, sg, "rect", 0, 0)
	b := addNode(t, sg, "rect", 100, 0)
	e := sg.NewEdge(a.ID(), b.ID())
	if err := sg.AddEdge(e); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}

	events := collectEvents(sg)

	sg.BeginBatch()
	c := addNode(t, sg, "rect", 200, 0)
	if err := sg.RemoveNode(a.ID()); err != nil {
		t.Fatalf("RemoveNode: %v", err)
	}
	sg.RemoveEdge(e.ID())
	sg.CancelBatch()

	if len(*events) != 0 {
		t.Error("cancelled batch must not emit")
	}
	if _, ok := sg.Node(c.ID()); ok {
		t.Error("node added during the batch survived cancellation")
	}
	if _, ok := sg.Node(a.ID()); !ok {
		t.Error("node removed during the batch not restored")
	}
	if _, ok := sg.Edge(e.ID()); !ok {
		t.Error("edge removed during the batch not restored")
	}
	if sg.NodeCount() != 2 || sg.EdgeCount() != 1 {
		t.Errorf("counts = %d nodes, %d edges, want 2/1", sg.NodeCount(), sg.EdgeCount())
	}
}

func TestOffGraphChange(t *testing.T) {
	sg := newTestGraph()
	calls := 0
	h := sg.OnGraphChange(func(GraphEvent) { calls++ })
	addNode(t, sg, "rect", 0, 0)
	sg.OffGraphChange(h)
	addNode(t, sg, "rect", 10, 0)
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

// --- Clear and dirty tracking ---

func TestClear(t *testing.T) {
	sg := newTestGraph()
	a := addNode(t, sg, "rect", 0, 0)
	b := addNode(t, sg, "rect", 100, 0)
	if err := sg.AddEdge(sg.NewEdge(a.ID(), b.ID())); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}

	sg.Clear()
	if sg.NodeCount() != 0 || sg.EdgeCount() != 0 {
		t.Errorf("counts after clear = %d/%d", sg.NodeCount(), sg.EdgeCount())
	}
	if len(sg.Root().Children()) != 0 {
		t.Error("root should have no children after clear")
	}
	if len(sg.NodesAt(10, 10)) != 0 {
		t.Error("spatial index not cleared")
	}
}

func TestDirtyAggregation(t *testing.T) {
	sg := newTestGraph()
	a := addNode(t, sg, "rect", 0, 0)
	sg.ClearDirty()
	if sg.IsDirty() {
		t.Fatal("graph should be clean after ClearDirty")
	}

	a.SetLabel("changed")
	if !sg.IsDirty() {
		t.Error("element change should propagate to the graph dirty flag")
	}
	sg.ClearDirty()
	if sg.IsDirty() || a.IsDirty() {
		t.Error("ClearDirty should reset element flags too")
	}
}
