package engine

// Layout boundary contract. A layouter receives the document's graph
// shape and returns suggested positions; the engine applies the result
// through its own batching, optionally animated.

// LayoutNode describes one node for layout. Position is non-nil when the
// node is pinned.
type LayoutNode struct {
	ID       string `json:"id"`
	Label    string `json:"label,omitempty"`
	Size     Size   `json:"size"`
	Position *Point `json:"position,omitempty"`
}

// LayoutEdge describes one edge for layout.
type LayoutEdge struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Label  string  `json:"label,omitempty"`
	Weight float64 `json:"weight,omitempty"`
}

// LayoutGraph is the layouter's input.
type LayoutGraph struct {
	Nodes []LayoutNode `json:"nodes"`
	Edges []LayoutEdge `json:"edges"`
}

// LayoutResultNode is one positioned node of a layout result.
type LayoutResultNode struct {
	ID       string `json:"id"`
	Position Point  `json:"position"`
	Size     Size   `json:"size"`
}

// LayoutResultEdge carries a routed edge path.
type LayoutResultEdge struct {
	ID     string  `json:"id"`
	Source string  `json:"source"`
	Target string  `json:"target"`
	Points []Point `json:"points,omitempty"`
}

// LayoutResult is the layouter's output.
type LayoutResult struct {
	Nodes []LayoutResultNode `json:"nodes"`
	Edges []LayoutResultEdge `json:"edges"`
}

// Layouter computes suggested positions for a graph. Fixed pins the named
// nodes at the given positions. Implementations are out of core scope.
type Layouter interface {
	Layout(g LayoutGraph, fixed map[string]Point) (LayoutResult, error)
}

// BuildLayoutGraph extracts the layouter's input from the scene graph.
// Locked nodes come back pinned at their current position.
func (sg *SceneGraph) BuildLayoutGraph() LayoutGraph {
	var out LayoutGraph
	for _, n := range sg.Nodes() {
		if n == sg.Root() {
			continue
		}
		ln := LayoutNode{ID: n.ID(), Label: n.Label(), Size: n.Size()}
		if n.Locked() {
			x, y := n.Position()
			ln.Position = &Point{X: x, Y: y}
		}
		out.Nodes = append(out.Nodes, ln)
	}
	for _, e := range sg.Edges() {
		out.Edges = append(out.Edges, LayoutEdge{Source: e.Source(), Target: e.Target(), Label: e.Label()})
	}
	return out
}

// ApplyLayout writes a layout result into the graph as one batch: node
// positions, then edge control points. Unknown ids are skipped; locked
// nodes keep their position.
func (sg *SceneGraph) ApplyLayout(result LayoutResult) {
	sg.BeginBatch()
	for _, rn := range result.Nodes {
		node, ok := sg.Node(rn.ID)
		if !ok || node.Locked() {
			continue
		}
		node.SetPosition(rn.Position.X, rn.Position.Y)
	}
	for _, re := range result.Edges {
		edge, ok := sg.Edge(re.ID)
		if !ok {
			continue
		}
		edge.SetControlPoints(re.Points)
	}
	sg.EndBatch()
}
