// Package document defines the JSON-serializable snapshot format for a
// graph document. It carries no behavior; the engine converts to and from
// it.
package document

// FormatVersion is the current serialized document version.
const FormatVersion = 1

// Document is the serialized form of a whole scene graph.
type Document struct {
	Nodes    []Node   `json:"nodes"`
	Edges    []Edge   `json:"edges"`
	Metadata Metadata `json:"metadata"`
}

// Metadata stamps a serialized document.
type Metadata struct {
	Version   int    `json:"version"`
	Timestamp string `json:"timestamp"` // RFC 3339
}

// Point is a serialized 2D position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a serialized width/height pair.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Style is a serialized element style record.
type Style struct {
	Fill        string  `json:"fill"`
	Stroke      string  `json:"stroke"`
	StrokeWidth float64 `json:"strokeWidth"`
	Opacity     float64 `json:"opacity"`
}

// Node is the serialized form of one scene node. ParentID is empty for
// children of the root.
type Node struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Label    string         `json:"label"`
	Position Point          `json:"position"`
	Size     Size           `json:"size"`
	Scale    Point          `json:"scale"`
	Rotation float64        `json:"rotation"`
	Visible  bool           `json:"visible"`
	Locked   bool           `json:"locked"`
	Style    Style          `json:"style"`
	Data     map[string]any `json:"data,omitempty"`
	ParentID string         `json:"parentId,omitempty"`
}

// Edge is the serialized form of one edge.
type Edge struct {
	ID            string  `json:"id"`
	Source        string  `json:"source"`
	Target        string  `json:"target"`
	Directed      bool    `json:"directed"`
	Label         string  `json:"label,omitempty"`
	ControlPoints []Point `json:"controlPoints,omitempty"`
	Style         Style   `json:"style"`
}
