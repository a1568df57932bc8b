package engine

import "math"

// Edge connects two nodes by id. The references are non-owning lookup
// relations; the scene graph validates that both endpoints resolve when
// the edge is added.
type Edge struct {
	id       string
	source   string
	target   string
	directed bool
	label    string
	points   []Point // ordered control points, document space
	style    Style

	dirty bool
	subs  subscriberSet
}

// NewEdge creates an edge from source to target node ids.
func NewEdge(id, source, target string) *Edge {
	return &Edge{
		id:       id,
		source:   source,
		target:   target,
		directed: true,
		style:    Style{Stroke: "#666666", StrokeWidth: 1, Opacity: 1},
		subs:     subscriberSet{},
	}
}

func (e *Edge) ID() string     { return e.id }
func (e *Edge) Source() string { return e.source }
func (e *Edge) Target() string { return e.target }
func (e *Edge) Directed() bool { return e.directed }
func (e *Edge) Label() string  { return e.label }
func (e *Edge) Style() Style   { return e.style }

// ControlPoints returns the edge's routing points.
func (e *Edge) ControlPoints() []Point { return e.points }

func (e *Edge) SetDirected(directed bool) {
	e.directed = directed
	e.markChanged(PropData)
}

func (e *Edge) SetLabel(label string) {
	if e.label == label {
		return
	}
	e.label = label
	e.markChanged(PropLabel)
}

func (e *Edge) SetStyle(s Style) {
	e.style = s
	e.markChanged(PropStyle)
}

// SetControlPoints replaces the edge's routing points.
func (e *Edge) SetControlPoints(points []Point) {
	e.points = points
	e.markChanged(PropPoints)
}

// OnChange registers a change subscriber and returns its handle.
func (e *Edge) OnChange(fn func(ChangeEvent)) SubscriptionHandle {
	return e.subs.subscribe(fn)
}

// OffChange removes the subscription identified by handle.
func (e *Edge) OffChange(h SubscriptionHandle) {
	delete(e.subs, h)
}

// IsDirty reports whether the edge has unflushed changes.
func (e *Edge) IsDirty() bool { return e.dirty }

// ClearDirty resets the edge's dirty flag.
func (e *Edge) ClearDirty() { e.dirty = false }

func (e *Edge) markChanged(property string) {
	e.dirty = true
	e.subs.notify(ChangeEvent{ElementID: e.id, Property: property})
}

// IntersectionPoint returns where the segment from 'from' toward the
// center of bounds crosses the rectangle's border, picking the crossing
// closest to 'from' among the four sides. If the segment never reaches
// the rectangle the center is returned. Assumes convex (rectangular)
// node shapes.
func IntersectionPoint(from Point, bounds Rect) Point {
	to := bounds.Center()

	corners := [4]Point{
		{X: bounds.X, Y: bounds.Y},
		{X: bounds.X + bounds.Width, Y: bounds.Y},
		{X: bounds.X + bounds.Width, Y: bounds.Y + bounds.Height},
		{X: bounds.X, Y: bounds.Y + bounds.Height},
	}

	best := to
	bestDist := math.Inf(1)
	for i := 0; i < 4; i++ {
		a := corners[i]
		b := corners[(i+1)%4]
		if p, ok := segmentIntersection(from, to, a, b); ok {
			d := (p.X-from.X)*(p.X-from.X) + (p.Y-from.Y)*(p.Y-from.Y)
			if d < bestDist {
				bestDist = d
				best = p
			}
		}
	}
	return best
}

// segmentIntersection returns the intersection point of segments p1-p2
// and p3-p4, if they cross.
func segmentIntersection(p1, p2, p3, p4 Point) (Point, bool) {
	d := (p2.X-p1.X)*(p4.Y-p3.Y) - (p2.Y-p1.Y)*(p4.X-p3.X)
	if math.Abs(d) < matrixEpsilon {
		return Point{}, false // parallel or degenerate
	}

	t := ((p3.X-p1.X)*(p4.Y-p3.Y) - (p3.Y-p1.Y)*(p4.X-p3.X)) / d
	u := ((p3.X-p1.X)*(p2.Y-p1.Y) - (p3.Y-p1.Y)*(p2.X-p1.X)) / d
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return Point{}, false
	}

	return Point{X: p1.X + t*(p2.X-p1.X), Y: p1.Y + t*(p2.Y-p1.Y)}, true
}
