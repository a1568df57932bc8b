package engine

// RenderOptions modulate how a backend paints one element.
type RenderOptions struct {
	Selected bool
}

// Renderer is the boundary contract for pixel-level backends (canvas,
// SVG, test doubles). The engine supplies positioned nodes and edges plus
// a viewport transform; it never paints anything itself.
type Renderer interface {
	BeginFrame()
	EndFrame()
	Clear()
	RenderNode(node *Node, opts RenderOptions)
	RenderEdge(edge *Edge, source, target *Node, opts RenderOptions)
	SetTransform(viewport *Transform)
	// ElementAt lets backends that keep their own display lists answer
	// picking queries; kind is "node" or "edge".
	ElementAt(x, y float64) (kind, id string, ok bool)
}

// RenderScene walks the graph and issues one frame against the backend.
// Edges are painted first, then nodes in tree order (painter's order,
// back to front); invisible subtrees are pruned.
func RenderScene(sg *SceneGraph, r Renderer, viewport *Transform, selection map[string]bool) {
	r.BeginFrame()
	r.Clear()
	if viewport != nil {
		r.SetTransform(viewport)
	}

	for _, e := range sg.Edges() {
		source, okS := sg.Node(e.Source())
		target, okT := sg.Node(e.Target())
		if !okS || !okT || !source.Visible() || !target.Visible() {
			continue
		}
		r.RenderEdge(e, source, target, RenderOptions{Selected: selection[e.ID()]})
	}

	var walk func(n *Node)
	walk = func(n *Node) {
		if !n.Visible() {
			return
		}
		if n != sg.Root() {
			r.RenderNode(n, RenderOptions{Selected: selection[n.ID()]})
		}
		for _, c := range n.Children() {
			walk(c)
		}
	}
	walk(sg.Root())

	r.EndFrame()
}
