package engine

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrCircularHierarchy is returned when an attach would make a node its
// own ancestor.
var ErrCircularHierarchy = errors.New("attach would create a circular hierarchy")

// Size is an element's unscaled width and height.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Style holds the visual properties shared by nodes and edges. The core
// never interprets these; renderers do.
type Style struct {
	Fill        string  `json:"fill"`
	Stroke      string  `json:"stroke"`
	StrokeWidth float64 `json:"strokeWidth"`
	Opacity     float64 `json:"opacity"`
}

// DefaultStyle returns the style applied to new elements.
func DefaultStyle() Style {
	return Style{Fill: "#ffffff", Stroke: "#333333", StrokeWidth: 1, Opacity: 1}
}

// ChangeEvent describes a single mutation of an element, delivered to its
// change subscribers.
type ChangeEvent struct {
	ElementID string
	Property  string
}

// Change property names.
const (
	PropTransform = "transform"
	PropStyle     = "style"
	PropLabel     = "label"
	PropSize      = "size"
	PropVisible   = "visible"
	PropLocked    = "locked"
	PropData      = "data"
	PropPoints    = "points"
)

// SubscriptionHandle identifies one change subscription. OffChange with
// the handle removes the subscription in O(1) and is safe while a
// notification is being delivered.
type SubscriptionHandle string

// subscriberSet is the handle→callback registry shared by nodes and edges.
type subscriberSet map[SubscriptionHandle]func(ChangeEvent)

func (s subscriberSet) subscribe(fn func(ChangeEvent)) SubscriptionHandle {
	h := SubscriptionHandle(uuid.NewString())
	s[h] = fn
	return h
}

func (s subscriberSet) notify(ev ChangeEvent) {
	// Snapshot so a callback may unsubscribe during delivery.
	fns := make([]func(ChangeEvent), 0, len(s))
	for _, fn := range s {
		fns = append(fns, fn)
	}
	for _, fn := range fns {
		fn(ev)
	}
}

// Node is a positioned, stylable element of the scene tree. A node owns
// its Transform and its children; it is owned by at most one parent.
type Node struct {
	id       string
	nodeType string
	label    string
	data     map[string]any
	visible  bool
	locked   bool

	transform *Transform
	size      Size
	style     Style

	parent   *Node
	children []*Node

	dirty bool
	subs  subscriberSet
}

// NewNode creates a detached node with the given id and type.
func NewNode(id, nodeType string) *Node {
	return &Node{
		id:        id,
		nodeType:  nodeType,
		data:      map[string]any{},
		visible:   true,
		transform: NewTransform(),
		size:      Size{Width: 100, Height: 50},
		style:     DefaultStyle(),
		subs:      subscriberSet{},
	}
}

func (n *Node) ID() string        { return n.id }
func (n *Node) Type() string      { return n.nodeType }
func (n *Node) Label() string     { return n.label }
func (n *Node) Visible() bool     { return n.visible }
func (n *Node) Locked() bool      { return n.locked }
func (n *Node) Size() Size        { return n.size }
func (n *Node) Style() Style      { return n.style }
func (n *Node) Parent() *Node     { return n.parent }
func (n *Node) Children() []*Node { return n.children }

// Transform returns the node's owned transform. Callers that mutate it
// directly bypass change notification; prefer the node's setters.
func (n *Node) Transform() *Transform { return n.transform }

// Data returns the value stored under key, if any.
func (n *Node) Data(key string) (any, bool) {
	v, ok := n.data[key]
	return v, ok
}

// DataMap returns the node's free-form data record.
func (n *Node) DataMap() map[string]any { return n.data }

func (n *Node) SetLabel(label string) {
	if n.label == label {
		return
	}
	n.label = label
	n.markChanged(PropLabel)
}

func (n *Node) SetVisible(visible bool) {
	if n.visible == visible {
		return
	}
	n.visible = visible
	n.markChanged(PropVisible)
}

func (n *Node) SetLocked(locked bool) {
	if n.locked == locked {
		return
	}
	n.locked = locked
	n.markChanged(PropLocked)
}

func (n *Node) SetSize(s Size) {
	n.size = s
	n.markChanged(PropSize)
}

func (n *Node) SetStyle(s Style) {
	n.style = s
	n.markChanged(PropStyle)
}

func (n *Node) SetData(key string, value any) {
	n.data[key] = value
	n.markChanged(PropData)
}

// Position returns the node's local position.
func (n *Node) Position() (x, y float64) {
	return n.transform.Position()
}

// SetPosition moves the node and notifies subscribers of a transform
// change (the scene graph uses this to reindex the node's bounds).
func (n *Node) SetPosition(x, y float64) {
	n.transform.SetPosition(x, y)
	n.markChanged(PropTransform)
}

// TranslateBy offsets the node's position.
func (n *Node) TranslateBy(dx, dy float64) {
	n.transform.Translate(dx, dy)
	n.markChanged(PropTransform)
}

// SetScale sets the node's scale factors.
func (n *Node) SetScale(sx, sy float64) {
	n.transform.SetScale(sx, sy)
	n.markChanged(PropTransform)
}

// SetRotation sets the node's rotation in degrees.
func (n *Node) SetRotation(degrees float64) {
	n.transform.SetRotation(degrees)
	n.markChanged(PropTransform)
}

// WorldMatrix composes the transforms along the ancestor chain, root
// first, producing the node's document-space matrix.
func (n *Node) WorldMatrix() Matrix2D {
	m := n.transform.Matrix()
	for p := n.parent; p != nil; p = p.parent {
		m = p.transform.Matrix().Multiply(m)
	}
	return m
}

// Bounds returns the node's axis-aligned bounding box in document space.
func (n *Node) Bounds() Rect {
	return n.WorldMatrix().TransformRect(Rect{Width: n.size.Width, Height: n.size.Height})
}

// IsAncestorOf reports whether n appears on other's ancestor chain.
func (n *Node) IsAncestorOf(other *Node) bool {
	for p := other.parent; p != nil; p = p.parent {
		if p == n {
			return true
		}
	}
	return false
}

// AttachChild adds child to the end of n's child list, detaching it from
// any previous parent. Attaching a node under itself or one of its own
// descendants fails and leaves the tree unchanged.
func (n *Node) AttachChild(child *Node) error {
	if child == n || child.IsAncestorOf(n) {
		return fmt.Errorf("node %s: %w", child.id, ErrCircularHierarchy)
	}

	if child.parent != nil {
		child.parent.DetachChild(child)
	}
	child.parent = n
	n.children = append(n.children, child)
	return nil
}

// DetachChild removes child from n's child list. Unknown children are
// ignored.
func (n *Node) DetachChild(child *Node) {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			child.parent = nil
			return
		}
	}
}

// OnChange registers a change subscriber and returns its handle.
func (n *Node) OnChange(fn func(ChangeEvent)) SubscriptionHandle {
	return n.subs.subscribe(fn)
}

// OffChange removes the subscription identified by handle.
func (n *Node) OffChange(h SubscriptionHandle) {
	delete(n.subs, h)
}

// IsDirty reports whether the node has unflushed changes.
func (n *Node) IsDirty() bool { return n.dirty }

// ClearDirty resets the node's dirty flag.
func (n *Node) ClearDirty() { n.dirty = false }

func (n *Node) markChanged(property string) {
	n.dirty = true
	n.subs.notify(ChangeEvent{ElementID: n.id, Property: property})
}
