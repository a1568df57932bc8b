package engine

import (
	"time"

	"github.com/graphdeck/graphdeck/engine-go/internal/document"
)

// ToDocument serializes the scene graph into the snapshot format. The
// root node itself is not serialized; its children carry no parentId.
func (sg *SceneGraph) ToDocument() *document.Document {
	doc := &document.Document{
		Nodes: []document.Node{},
		Edges: []document.Edge{},
		Metadata: document.Metadata{
			Version:   document.FormatVersion,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	// Pre-order walk keeps parents ahead of children so loading never
	// sees a forward parent reference.
	var walk func(n *Node)
	walk = func(n *Node) {
		if n != sg.root {
			doc.Nodes = append(doc.Nodes, serializeNode(n, sg.root))
		}
		for _, c := range n.Children() {
			walk(c)
		}
	}
	walk(sg.root)

	for _, e := range sg.edges {
		doc.Edges = append(doc.Edges, serializeEdge(e))
	}
	return doc
}

func serializeNode(n *Node, root *Node) document.Node {
	x, y := n.Transform().Position()
	sx, sy := n.Transform().Scale()

	out := document.Node{
		ID:       n.ID(),
		Type:     n.Type(),
		Label:    n.Label(),
		Position: document.Point{X: x, Y: y},
		Size:     document.Size{Width: n.Size().Width, Height: n.Size().Height},
		Scale:    document.Point{X: sx, Y: sy},
		Rotation: n.Transform().Rotation(),
		Visible:  n.Visible(),
		Locked:   n.Locked(),
		Style:    toDocStyle(n.Style()),
	}
	if len(n.DataMap()) > 0 {
		out.Data = n.DataMap()
	}
	if p := n.Parent(); p != nil && p != root {
		out.ParentID = p.ID()
	}
	return out
}

func serializeEdge(e *Edge) document.Edge {
	out := document.Edge{
		ID:       e.ID(),
		Source:   e.Source(),
		Target:   e.Target(),
		Directed: e.Directed(),
		Label:    e.Label(),
		Style:    toDocStyle(e.Style()),
	}
	for _, p := range e.ControlPoints() {
		out.ControlPoints = append(out.ControlPoints, document.Point{X: p.X, Y: p.Y})
	}
	return out
}

// LoadDocument replaces the graph's contents with the snapshot. Nodes
// whose parent never resolves and edges referencing missing endpoints are
// skipped rather than failing the whole load. The whole load flushes as
// one batch.
func (sg *SceneGraph) LoadDocument(doc *document.Document) {
	sg.BeginBatch()
	sg.Clear()

	// Nodes may reference parents appearing later in the list; retry
	// until a pass adds nothing, then drop the leftovers.
	pending := append([]document.Node(nil), doc.Nodes...)
	for len(pending) > 0 {
		var next []document.Node
		progress := false
		for _, dn := range pending {
			parentID := dn.ParentID
			if parentID == "" {
				parentID = sg.root.ID()
			}
			if _, ok := sg.nodes[parentID]; !ok {
				next = append(next, dn)
				continue
			}
			if err := sg.AddNode(deserializeNode(dn), parentID); err == nil {
				progress = true
			}
		}
		if !progress {
			break
		}
		pending = next
	}

	for _, de := range doc.Edges {
		// AddEdge rejects edges whose endpoints were skipped above.
		_ = sg.AddEdge(deserializeEdge(de))
	}

	sg.EndBatch()
}

func deserializeNode(dn document.Node) *Node {
	n := NewNode(dn.ID, dn.Type)
	n.SetLabel(dn.Label)
	n.SetVisible(dn.Visible)
	n.SetLocked(dn.Locked)
	n.SetSize(Size{Width: dn.Size.Width, Height: dn.Size.Height})
	n.SetStyle(fromDocStyle(dn.Style))
	for k, v := range dn.Data {
		n.SetData(k, v)
	}

	t := n.Transform()
	t.SetPosition(dn.Position.X, dn.Position.Y)
	sx, sy := dn.Scale.X, dn.Scale.Y
	if sx == 0 && sy == 0 {
		sx, sy = 1, 1 // documents written before scale was recorded
	}
	t.SetScale(sx, sy)
	t.SetRotation(dn.Rotation)
	return n
}

func deserializeEdge(de document.Edge) *Edge {
	edge := NewEdge(de.ID, de.Source, de.Target)
	edge.SetDirected(de.Directed)
	edge.SetLabel(de.Label)
	edge.SetStyle(fromDocStyle(de.Style))
	if len(de.ControlPoints) > 0 {
		pts := make([]Point, len(de.ControlPoints))
		for i, p := range de.ControlPoints {
			pts[i] = Point{X: p.X, Y: p.Y}
		}
		edge.SetControlPoints(pts)
	}
	return edge
}

func toDocStyle(s Style) document.Style {
	return document.Style{Fill: s.Fill, Stroke: s.Stroke, StrokeWidth: s.StrokeWidth, Opacity: s.Opacity}
}

func fromDocStyle(s document.Style) Style {
	return Style{Fill: s.Fill, Stroke: s.Stroke, StrokeWidth: s.StrokeWidth, Opacity: s.Opacity}
}
