package document

import "time"

// NewSampleDocument builds a small demo graph: a three-stage pipeline
// with one grouped annotation. Used by the server when a room is opened
// without a document and by the WASM demo page.
func NewSampleDocument() *Document {
	style := func(fill string) Style {
		return Style{Fill: fill, Stroke: "#333333", StrokeWidth: 1, Opacity: 1}
	}

	return &Document{
		Nodes: []Node{
			{
				ID: "node_sample_input", Type: "task", Label: "Input",
				Position: Point{X: 80, Y: 120}, Size: Size{Width: 120, Height: 60},
				Scale: Point{X: 1, Y: 1}, Visible: true, Style: style("#d0e7ff"),
			},
			{
				ID: "node_sample_process", Type: "task", Label: "Process",
				Position: Point{X: 300, Y: 120}, Size: Size{Width: 120, Height: 60},
				Scale: Point{X: 1, Y: 1}, Visible: true, Style: style("#ffe7c2"),
			},
			{
				ID: "node_sample_output", Type: "task", Label: "Output",
				Position: Point{X: 520, Y: 120}, Size: Size{Width: 120, Height: 60},
				Scale: Point{X: 1, Y: 1}, Visible: true, Style: style("#d8f5d0"),
			},
			{
				ID: "node_sample_notes", Type: "group", Label: "Notes",
				Position: Point{X: 80, Y: 260}, Size: Size{Width: 200, Height: 100},
				Scale: Point{X: 1, Y: 1}, Visible: true, Style: style("#f0f0f0"),
			},
			{
				ID: "node_sample_note1", Type: "note", Label: "Review weekly",
				Position: Point{X: 20, Y: 30}, Size: Size{Width: 140, Height: 40},
				Scale: Point{X: 1, Y: 1}, Visible: true, Style: style("#fffbd0"),
				ParentID: "node_sample_notes",
			},
		},
		Edges: []Edge{
			{
				ID: "edge_sample_1", Source: "node_sample_input", Target: "node_sample_process",
				Directed: true, Style: Style{Stroke: "#666666", StrokeWidth: 1, Opacity: 1},
			},
			{
				ID: "edge_sample_2", Source: "node_sample_process", Target: "node_sample_output",
				Directed: true, Label: "results",
				Style: Style{Stroke: "#666666", StrokeWidth: 1, Opacity: 1},
			},
		},
		Metadata: Metadata{
			Version:   FormatVersion,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}
}
