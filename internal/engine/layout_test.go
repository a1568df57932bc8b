package engine

import "testing"

func TestBuildLayoutGraph(t *testing.T) {
	sg := newTestGraph()
	a := addNode(t, sg, "rect", 10, 10)
	b := addNode(t, sg, "rect", 200, 10)
	b.SetLocked(true)
	if err := sg.AddEdge(sg.NewEdge(a.ID(), b.ID())); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}

	lg := sg.BuildLayoutGraph()
	if len(lg.Nodes) != 2 || len(lg.Edges) != 1 {
		t.Fatalf("layout graph has %d nodes, %d edges", len(lg.Nodes), len(lg.Edges))
	}

	for _, ln := range lg.Nodes {
		switch ln.ID {
		case a.ID():
			if ln.Position != nil {
				t.Error("unlocked node should not be pinned")
			}
		case b.ID():
			if ln.Position == nil || ln.Position.X != 200 {
				t.Error("locked node should be pinned at its position")
			}
		default:
			t.Errorf("unexpected node %s (root must be excluded)", ln.ID)
		}
	}
}

func TestApplyLayout(t *testing.T) {
	sg := newTestGraph()
	a := addNode(t, sg, "rect", 0, 0)
	locked := addNode(t, sg, "rect", 50, 50)
	locked.SetLocked(true)
	e := sg.NewEdge(a.ID(), locked.ID())
	if err := sg.AddEdge(e); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}

	events := collectEvents(sg)

	sg.ApplyLayout(LayoutResult{
		Nodes: []LayoutResultNode{
			{ID: a.ID(), Position: Point{X: 100, Y: 200}},
			{ID: locked.ID(), Position: Point{X: 999, Y: 999}},
			{ID: "node_unknown", Position: Point{X: 1, Y: 1}},
		},
		Edges: []LayoutResultEdge{
			{ID: e.ID(), Points: []Point{{X: 10, Y: 10}}},
			{ID: "edge_unknown"},
		},
	})

	if x, y := a.Position(); x != 100 || y != 200 {
		t.Errorf("a position = (%v, %v), want (100, 200)", x, y)
	}
	if x, y := locked.Position(); x != 50 || y != 50 {
		t.Error("locked node must keep its position")
	}
	if pts := e.ControlPoints(); len(pts) != 1 || pts[0] != (Point{X: 10, Y: 10}) {
		t.Errorf("edge points = %v", pts)
	}
	if len(*events) != 1 || (*events)[0].Type != EventBatchUpdate {
		t.Errorf("got %d events, want one batch event", len(*events))
	}
}
