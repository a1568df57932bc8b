package engine

import (
	"encoding/json"
	"fmt"

	"github.com/graphdeck/graphdeck/engine-go/internal/document"
)

// CreateNodeCommand adds a node to the document. If NodeID is empty a
// fresh id is generated at execution time.
type CreateNodeCommand struct {
	baseCommand
	NodeID   string `json:"nodeId,omitempty"`
	NodeType string `json:"nodeType"`
	Label    string `json:"label,omitempty"`
	Position Point  `json:"position"`
	Size     *Size  `json:"size,omitempty"`
	Style    *Style `json:"style,omitempty"`
	ParentID string `json:"parentId,omitempty"` // empty means the root
}

// NewCreateNodeCommand builds a node-creation command attaching under the
// root.
func NewCreateNodeCommand(nodeType, label string, position Point, size Size) *CreateNodeCommand {
	return &CreateNodeCommand{
		baseCommand: newBase(KindNodeCreate),
		NodeType:    nodeType,
		Label:       label,
		Position:    position,
		Size:        &size,
	}
}

func (c *CreateNodeCommand) Validate(g *SceneGraph) error {
	if c.NodeID != "" {
		if _, exists := g.Node(c.NodeID); exists {
			return fmt.Errorf("create node: %w", ErrDuplicateID)
		}
	}
	if c.ParentID != "" {
		if _, ok := g.Node(c.ParentID); !ok {
			return fmt.Errorf("create node: parent %s: %w", c.ParentID, ErrUnknownParent)
		}
	}
	return nil
}

func (c *CreateNodeCommand) Execute(g *SceneGraph) error {
	if c.executed {
		return ErrAlreadyExecuted
	}

	if c.NodeID == "" {
		c.NodeID = g.ids.NodeID()
	}
	node := NewNode(c.NodeID, c.NodeType)
	node.SetLabel(c.Label)
	node.SetPosition(c.Position.X, c.Position.Y)
	if c.Size != nil {
		node.SetSize(*c.Size)
	}
	if c.Style != nil {
		node.SetStyle(*c.Style)
	}

	parentID := c.ParentID
	if parentID == "" {
		parentID = g.Root().ID()
	}
	if err := g.AddNode(node, parentID); err != nil {
		return err
	}
	c.executed = true
	return nil
}

func (c *CreateNodeCommand) Undo(g *SceneGraph) error {
	if !c.executed {
		return ErrNotExecuted
	}
	if _, ok := g.Node(c.NodeID); !ok {
		return fmt.Errorf("undo create %s: %w", c.NodeID, ErrUndoCorrupt)
	}
	if err := g.RemoveNode(c.NodeID); err != nil {
		return err
	}
	c.executed = false
	return nil
}

func (c *CreateNodeCommand) Payload() (json.RawMessage, error) {
	return json.Marshal(c)
}

// DeleteNodeCommand removes a node and its subtree. The detached elements
// are captured as document records so undo works even on a command
// rehydrated from a serialized history.
type DeleteNodeCommand struct {
	baseCommand
	NodeID string `json:"nodeId"`

	// captured at execution time, pre-order
	RemovedNodes []document.Node `json:"removedNodes,omitempty"`
	RemovedEdges []document.Edge `json:"removedEdges,omitempty"`
}

// NewDeleteNodeCommand builds a node-removal command.
func NewDeleteNodeCommand(nodeID string) *DeleteNodeCommand {
	return &DeleteNodeCommand{baseCommand: newBase(KindNodeDelete), NodeID: nodeID}
}

func (c *DeleteNodeCommand) Validate(g *SceneGraph) error {
	node, ok := g.Node(c.NodeID)
	if !ok {
		return fmt.Errorf("delete node %s: %w", c.NodeID, ErrUnknownNode)
	}
	if node == g.Root() {
		return ErrRemoveRoot
	}
	return nil
}

func (c *DeleteNodeCommand) Execute(g *SceneGraph) error {
	if c.executed {
		return ErrAlreadyExecuted
	}
	node, ok := g.Node(c.NodeID)
	if !ok {
		return fmt.Errorf("delete node %s: %w", c.NodeID, ErrUnknownNode)
	}

	c.RemovedNodes = nil
	c.RemovedEdges = nil
	seen := map[string]bool{}
	for _, sub := range subtreeNodes(node) {
		c.RemovedNodes = append(c.RemovedNodes, serializeNode(sub, g.Root()))
		for _, e := range g.incidentEdges(sub.ID()) {
			if !seen[e.ID()] {
				seen[e.ID()] = true
				c.RemovedEdges = append(c.RemovedEdges, serializeEdge(e))
			}
		}
	}

	if err := g.RemoveNode(c.NodeID); err != nil {
		return err
	}
	c.executed = true
	return nil
}

func (c *DeleteNodeCommand) Undo(g *SceneGraph) error {
	if !c.executed {
		return ErrNotExecuted
	}
	if len(c.RemovedNodes) == 0 {
		return fmt.Errorf("undo delete %s: %w", c.NodeID, ErrUndoCorrupt)
	}

	g.BeginBatch()
	// Pre-order capture means parents register before their children.
	for _, dn := range c.RemovedNodes {
		pid := dn.ParentID
		if pid == "" {
			pid = g.Root().ID()
		}
		if err := g.AddNode(deserializeNode(dn), pid); err != nil {
			g.CancelBatch()
			return fmt.Errorf("undo delete %s: %w", c.NodeID, ErrUndoCorrupt)
		}
	}
	for _, de := range c.RemovedEdges {
		if err := g.AddEdge(deserializeEdge(de)); err != nil {
			g.CancelBatch()
			return fmt.Errorf("undo delete %s: %w", c.NodeID, ErrUndoCorrupt)
		}
	}
	g.EndBatch()

	c.RemovedNodes = nil
	c.RemovedEdges = nil
	c.executed = false
	return nil
}

func (c *DeleteNodeCommand) Payload() (json.RawMessage, error) {
	return json.Marshal(c)
}

// subtreeNodes returns node and all its descendants in pre-order.
func subtreeNodes(node *Node) []*Node {
	out := []*Node{node}
	for _, c := range node.Children() {
		out = append(out, subtreeNodes(c)...)
	}
	return out
}

// MoveNodeCommand moves a node to an absolute position. Consecutive moves
// of the same node within the history's merge window collapse into one
// entry whose undo restores the position before the first move.
type MoveNodeCommand struct {
	baseCommand
	NodeID string `json:"nodeId"`
	To     Point  `json:"to"`
	From   *Point `json:"from,omitempty"` // captured at execution time
}

// NewMoveNodeCommand builds a move command.
func NewMoveNodeCommand(nodeID string, to Point) *MoveNodeCommand {
	return &MoveNodeCommand{baseCommand: newBase(KindNodeMove), NodeID: nodeID, To: to}
}

func (c *MoveNodeCommand) Validate(g *SceneGraph) error {
	node, ok := g.Node(c.NodeID)
	if !ok {
		return fmt.Errorf("move node %s: %w", c.NodeID, ErrUnknownNode)
	}
	x, y := node.Position()
	if x == c.To.X && y == c.To.Y {
		return fmt.Errorf("move node %s: no position delta", c.NodeID)
	}
	return nil
}

func (c *MoveNodeCommand) Execute(g *SceneGraph) error {
	if c.executed {
		return ErrAlreadyExecuted
	}
	node, ok := g.Node(c.NodeID)
	if !ok {
		return fmt.Errorf("move node %s: %w", c.NodeID, ErrUnknownNode)
	}

	x, y := node.Position()
	c.From = &Point{X: x, Y: y}
	node.SetPosition(c.To.X, c.To.Y)
	c.executed = true
	return nil
}

func (c *MoveNodeCommand) Undo(g *SceneGraph) error {
	if !c.executed {
		return ErrNotExecuted
	}
	if c.From == nil {
		return fmt.Errorf("undo move %s: %w", c.NodeID, ErrUndoCorrupt)
	}
	node, ok := g.Node(c.NodeID)
	if !ok {
		return fmt.Errorf("undo move %s: %w", c.NodeID, ErrUndoCorrupt)
	}

	node.SetPosition(c.From.X, c.From.Y)
	c.executed = false
	return nil
}

func (c *MoveNodeCommand) CanMergeWith(other Command) bool {
	o, ok := other.(*MoveNodeCommand)
	return ok && o.NodeID == c.NodeID
}

func (c *MoveNodeCommand) MergeWith(other Command) error {
	o, ok := other.(*MoveNodeCommand)
	if !ok || o.NodeID != c.NodeID {
		return ErrCannotMerge
	}
	// Keep the original From: a single undo restores the position before
	// the whole merged sequence. Data reflects only the final net effect.
	c.To = o.To
	c.ts = o.ts
	return nil
}

func (c *MoveNodeCommand) Payload() (json.RawMessage, error) {
	return json.Marshal(c)
}

// ReparentNodeCommand moves a node to a new parent without altering its
// identity.
type ReparentNodeCommand struct {
	baseCommand
	NodeID      string `json:"nodeId"`
	NewParentID string `json:"newParentId"`
	OldParentID string `json:"oldParentId,omitempty"` // captured at execution time
}

// NewReparentNodeCommand builds a reparent command.
func NewReparentNodeCommand(nodeID, newParentID string) *ReparentNodeCommand {
	return &ReparentNodeCommand{baseCommand: newBase(KindNodeReparent), NodeID: nodeID, NewParentID: newParentID}
}

func (c *ReparentNodeCommand) Validate(g *SceneGraph) error {
	node, ok := g.Node(c.NodeID)
	if !ok {
		return fmt.Errorf("reparent %s: %w", c.NodeID, ErrUnknownNode)
	}
	if node == g.Root() {
		return ErrReparentRoot
	}
	newParent, ok := g.Node(c.NewParentID)
	if !ok {
		return fmt.Errorf("reparent %s under %s: %w", c.NodeID, c.NewParentID, ErrUnknownParent)
	}
	if newParent == node || node.IsAncestorOf(newParent) {
		return fmt.Errorf("reparent %s: %w", c.NodeID, ErrCircularHierarchy)
	}
	if p := node.Parent(); p != nil && p.ID() == c.NewParentID {
		return fmt.Errorf("reparent %s: already under %s", c.NodeID, c.NewParentID)
	}
	return nil
}

func (c *ReparentNodeCommand) Execute(g *SceneGraph) error {
	if c.executed {
		return ErrAlreadyExecuted
	}
	node, ok := g.Node(c.NodeID)
	if !ok {
		return fmt.Errorf("reparent %s: %w", c.NodeID, ErrUnknownNode)
	}

	if p := node.Parent(); p != nil {
		c.OldParentID = p.ID()
	}
	if err := g.SetParent(c.NodeID, c.NewParentID); err != nil {
		return err
	}
	c.executed = true
	return nil
}

func (c *ReparentNodeCommand) Undo(g *SceneGraph) error {
	if !c.executed {
		return ErrNotExecuted
	}
	if c.OldParentID == "" {
		return fmt.Errorf("undo reparent %s: %w", c.NodeID, ErrUndoCorrupt)
	}
	if err := g.SetParent(c.NodeID, c.OldParentID); err != nil {
		return fmt.Errorf("undo reparent %s: %w", c.NodeID, ErrUndoCorrupt)
	}
	c.executed = false
	return nil
}

func (c *ReparentNodeCommand) Payload() (json.RawMessage, error) {
	return json.Marshal(c)
}

// SetStyleCommand replaces an element's style record. Works for nodes and
// edges alike.
type SetStyleCommand struct {
	baseCommand
	ElementID string `json:"elementId"`
	Style     Style  `json:"style"`
	Previous  *Style `json:"previous,omitempty"` // captured at execution time
}

// NewSetStyleCommand builds a style command.
func NewSetStyleCommand(elementID string, style Style) *SetStyleCommand {
	return &SetStyleCommand{baseCommand: newBase(KindStyleSet), ElementID: elementID, Style: style}
}

func (c *SetStyleCommand) Validate(g *SceneGraph) error {
	if _, ok := g.Node(c.ElementID); ok {
		return nil
	}
	if _, ok := g.Edge(c.ElementID); ok {
		return nil
	}
	return fmt.Errorf("set style %s: %w", c.ElementID, ErrUnknownNode)
}

func (c *SetStyleCommand) Execute(g *SceneGraph) error {
	if c.executed {
		return ErrAlreadyExecuted
	}
	if node, ok := g.Node(c.ElementID); ok {
		prev := node.Style()
		c.Previous = &prev
		node.SetStyle(c.Style)
	} else if edge, ok := g.Edge(c.ElementID); ok {
		prev := edge.Style()
		c.Previous = &prev
		edge.SetStyle(c.Style)
	} else {
		return fmt.Errorf("set style %s: %w", c.ElementID, ErrUnknownNode)
	}
	c.executed = true
	return nil
}

func (c *SetStyleCommand) Undo(g *SceneGraph) error {
	if !c.executed {
		return ErrNotExecuted
	}
	if c.Previous == nil {
		return fmt.Errorf("undo style %s: %w", c.ElementID, ErrUndoCorrupt)
	}
	if node, ok := g.Node(c.ElementID); ok {
		node.SetStyle(*c.Previous)
	} else if edge, ok := g.Edge(c.ElementID); ok {
		edge.SetStyle(*c.Previous)
	} else {
		return fmt.Errorf("undo style %s: %w", c.ElementID, ErrUndoCorrupt)
	}
	c.executed = false
	return nil
}

func (c *SetStyleCommand) Payload() (json.RawMessage, error) {
	return json.Marshal(c)
}
