package engine

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/graphdeck/graphdeck/engine-go/internal/typeid"
)

// Structural violations. These are rejected at the call site with the
// document left unchanged.
var (
	ErrDuplicateID   = errors.New("id already exists")
	ErrUnknownParent = errors.New("parent not found")
	ErrUnknownNode   = errors.New("node not found")
	ErrRemoveRoot    = errors.New("cannot remove the root node")
	ErrReparentRoot  = errors.New("cannot reparent the root node")
)

// IDGenerator produces fresh element identifiers scoped to one scene
// graph. Injectable so tests and hosts can supply deterministic ids.
type IDGenerator interface {
	NodeID() string
	EdgeID() string
}

type typeIDGenerator struct{}

func (typeIDGenerator) NodeID() string { return typeid.NewNodeID() }
func (typeIDGenerator) EdgeID() string { return typeid.NewEdgeID() }

// batchRecord pairs a queued event with the closure that reverses its
// operation. Property-change records carry a nil rollback; CancelBatch
// only reverses structural operations.
type batchRecord struct {
	event    GraphEvent
	rollback func()
}

// SceneGraph owns the element tree, the id lookup maps and the spatial
// index, and batches change notification. All operations are synchronous
// and single-writer; re-entrancy happens only through explicit batch
// nesting.
type SceneGraph struct {
	root  *Node
	nodes map[string]*Node
	edges map[string]*Edge
	index *QuadTree
	ids   IDGenerator

	nodeSubs map[string]SubscriptionHandle
	edgeSubs map[string]SubscriptionHandle

	batchDepth int
	batchOps   []batchRecord
	muted      bool // suppress events and tracking during rollback

	dirty     bool
	listeners listenerSet
}

// listenerSet is the handle→listener registry for graph events.
type listenerSet map[SubscriptionHandle]func(GraphEvent)

// NewSceneGraph creates a scene graph whose spatial index covers region.
func NewSceneGraph(region Rect) *SceneGraph {
	return NewSceneGraphWithIDs(region, typeIDGenerator{})
}

// NewSceneGraphWithIDs creates a scene graph with an injected id
// generator.
func NewSceneGraphWithIDs(region Rect, ids IDGenerator) *SceneGraph {
	sg := &SceneGraph{
		nodes:     map[string]*Node{},
		edges:     map[string]*Edge{},
		index:     NewQuadTree(region),
		ids:       ids,
		nodeSubs:  map[string]SubscriptionHandle{},
		edgeSubs:  map[string]SubscriptionHandle{},
		listeners: listenerSet{},
	}
	sg.root = NewNode(ids.NodeID(), "root")
	sg.nodes[sg.root.ID()] = sg.root
	return sg
}

// Root returns the root node. The root is excluded from the spatial index
// and can never be removed or reparented.
func (sg *SceneGraph) Root() *Node { return sg.root }

// NewNode allocates a detached node with a fresh id scoped to this graph.
func (sg *SceneGraph) NewNode(nodeType string) *Node {
	return NewNode(sg.ids.NodeID(), nodeType)
}

// NewEdge allocates a detached edge with a fresh id scoped to this graph.
func (sg *SceneGraph) NewEdge(source, target string) *Edge {
	return NewEdge(sg.ids.EdgeID(), source, target)
}

// Node looks up a node by id.
func (sg *SceneGraph) Node(id string) (*Node, bool) {
	n, ok := sg.nodes[id]
	return n, ok
}

// Edge looks up an edge by id.
func (sg *SceneGraph) Edge(id string) (*Edge, bool) {
	e, ok := sg.edges[id]
	return e, ok
}

// Nodes returns every node in the graph, root included. Order is
// unspecified.
func (sg *SceneGraph) Nodes() []*Node {
	out := make([]*Node, 0, len(sg.nodes))
	for _, n := range sg.nodes {
		out = append(out, n)
	}
	return out
}

// Edges returns every edge in the graph. Order is unspecified.
func (sg *SceneGraph) Edges() []*Edge {
	out := make([]*Edge, 0, len(sg.edges))
	for _, e := range sg.edges {
		out = append(out, e)
	}
	return out
}

// NodeCount returns the number of nodes excluding the root.
func (sg *SceneGraph) NodeCount() int { return len(sg.nodes) - 1 }

// EdgeCount returns the number of edges.
func (sg *SceneGraph) EdgeCount() int { return len(sg.edges) }

// HasEdgeBetween reports whether any edge connects source to target. For
// undirected edges the endpoints match in either order.
func (sg *SceneGraph) HasEdgeBetween(source, target string) bool {
	for _, e := range sg.edges {
		if e.source == source && e.target == target {
			return true
		}
		if !e.directed && e.source == target && e.target == source {
			return true
		}
	}
	return false
}

// AddNode attaches node under the parent with the given id, registers it
// in the id map and the spatial index, and subscribes to its changes.
// Fails if the id already exists or the parent is unknown.
func (sg *SceneGraph) AddNode(node *Node, parentID string) error {
	if _, exists := sg.nodes[node.ID()]; exists {
		return fmt.Errorf("add node %s: %w", node.ID(), ErrDuplicateID)
	}
	parent, ok := sg.nodes[parentID]
	if !ok {
		return fmt.Errorf("add node %s under %s: %w", node.ID(), parentID, ErrUnknownParent)
	}
	if err := parent.AttachChild(node); err != nil {
		return err
	}

	sg.registerNode(node)

	id := node.ID()
	sg.record(
		GraphEvent{Type: EventNodeAdded, ElementID: id},
		func() { sg.removeNodeSilently(id) },
	)
	return nil
}

// RemoveNode detaches the node and its entire subtree from parent links,
// the id map and the spatial index, removing incident edges first so the
// document never holds a dangling endpoint. Unknown ids are a silent
// no-op; removing the root is refused.
func (sg *SceneGraph) RemoveNode(id string) error {
	node, ok := sg.nodes[id]
	if !ok {
		return nil
	}
	if node == sg.root {
		return ErrRemoveRoot
	}

	parent := node.Parent()
	removedEdges := sg.detachSubtree(node)

	sg.record(
		GraphEvent{Type: EventNodeRemoved, ElementID: id},
		func() { sg.restoreSubtree(node, parent, removedEdges) },
	)
	return nil
}

// SetParent re-parents a node without altering its identity. Acyclicity
// is enforced: moving a node under one of its own descendants fails and
// leaves the tree unchanged.
func (sg *SceneGraph) SetParent(nodeID, newParentID string) error {
	node, ok := sg.nodes[nodeID]
	if !ok {
		return fmt.Errorf("reparent %s: %w", nodeID, ErrUnknownNode)
	}
	if node == sg.root {
		return ErrReparentRoot
	}
	newParent, ok := sg.nodes[newParentID]
	if !ok {
		return fmt.Errorf("reparent %s under %s: %w", nodeID, newParentID, ErrUnknownParent)
	}

	oldParent := node.Parent()
	if err := newParent.AttachChild(node); err != nil {
		return err
	}

	sg.reindexSubtree(node)

	oldParentID := ""
	if oldParent != nil {
		oldParentID = oldParent.ID()
	}
	sg.record(
		GraphEvent{Type: EventParentChanged, ElementID: nodeID},
		func() {
			if old, ok := sg.nodes[oldParentID]; ok {
				_ = old.AttachChild(node)
			}
			sg.reindexSubtree(node)
		},
	)
	return nil
}

// AddEdge registers an edge. Both endpoints must resolve to existing
// nodes; this is the owning document's validation boundary for edges.
func (sg *SceneGraph) AddEdge(edge *Edge) error {
	if _, exists := sg.edges[edge.ID()]; exists {
		return fmt.Errorf("add edge %s: %w", edge.ID(), ErrDuplicateID)
	}
	if _, ok := sg.nodes[edge.Source()]; !ok {
		return fmt.Errorf("add edge %s: source %s: %w", edge.ID(), edge.Source(), ErrUnknownNode)
	}
	if _, ok := sg.nodes[edge.Target()]; !ok {
		return fmt.Errorf("add edge %s: target %s: %w", edge.ID(), edge.Target(), ErrUnknownNode)
	}

	sg.registerEdge(edge)

	id := edge.ID()
	sg.record(
		GraphEvent{Type: EventEdgeAdded, ElementID: id},
		func() { sg.unregisterEdge(id) },
	)
	return nil
}

// RemoveEdge deletes an edge. Unknown ids are a silent no-op.
func (sg *SceneGraph) RemoveEdge(id string) {
	edge, ok := sg.edges[id]
	if !ok {
		return
	}
	sg.unregisterEdge(id)

	sg.record(
		GraphEvent{Type: EventEdgeRemoved, ElementID: id},
		func() { sg.registerEdge(edge) },
	)
}

// Clear resets the graph to just the root.
func (sg *SceneGraph) Clear() {
	prevNodes := sg.nodes
	prevEdges := sg.edges
	prevRootChildren := append([]*Node(nil), sg.root.Children()...)

	for _, e := range prevEdges {
		if h, ok := sg.edgeSubs[e.ID()]; ok {
			e.OffChange(h)
		}
	}
	for _, n := range prevNodes {
		if n == sg.root {
			continue
		}
		if h, ok := sg.nodeSubs[n.ID()]; ok {
			n.OffChange(h)
		}
	}

	sg.nodes = map[string]*Node{sg.root.ID(): sg.root}
	sg.edges = map[string]*Edge{}
	sg.nodeSubs = map[string]SubscriptionHandle{}
	sg.edgeSubs = map[string]SubscriptionHandle{}
	sg.index.Clear()
	for _, c := range prevRootChildren {
		sg.root.DetachChild(c)
	}

	sg.record(
		GraphEvent{Type: EventCleared},
		func() {
			for _, c := range prevRootChildren {
				_ = sg.root.AttachChild(c)
			}
			for id, n := range prevNodes {
				if n == sg.root {
					continue
				}
				sg.nodes[id] = n
				sg.index.Insert(n)
				sg.subscribeNode(n)
			}
			for id, e := range prevEdges {
				sg.edges[id] = e
				sg.subscribeEdge(e)
			}
		},
	)
}

// NodesAt returns the nodes whose bounds contain the given point, via the
// spatial index.
func (sg *SceneGraph) NodesAt(x, y float64) []*Node {
	hits := sg.index.RetrieveAt(x, y)
	out := make([]*Node, 0, len(hits))
	for _, h := range hits {
		if n, ok := h.(*Node); ok {
			out = append(out, n)
		}
	}
	return out
}

// NodesIn returns the nodes whose bounds may intersect the query
// rectangle. Broad-phase only: callers wanting exact intersection filter
// the result.
func (sg *SceneGraph) NodesIn(query Rect) []*Node {
	hits := sg.index.Retrieve(query)
	out := make([]*Node, 0, len(hits))
	for _, h := range hits {
		if n, ok := h.(*Node); ok {
			out = append(out, n)
		}
	}
	return out
}

// BeginBatch opens (or nests into) a batch. Change events are queued
// until the outermost EndBatch.
func (sg *SceneGraph) BeginBatch() {
	sg.batchDepth++
}

// EndBatch closes one nesting level. Only the outermost call flushes a
// single aggregated batchUpdate event carrying the ordered operation
// list. N mutations in one batch never produce N individual events.
func (sg *SceneGraph) EndBatch() {
	if sg.batchDepth == 0 {
		return
	}
	sg.batchDepth--
	if sg.batchDepth > 0 {
		return
	}

	records := sg.batchOps
	sg.batchOps = nil
	if len(records) == 0 {
		return
	}

	ops := make([]GraphEvent, len(records))
	for i, r := range records {
		ops[i] = r.event
	}
	sg.emit(GraphEvent{Type: EventBatchUpdate, Ops: ops})
}

// CancelBatch rolls back the batch's tracked structural operations in
// reverse order and suppresses notification entirely.
func (sg *SceneGraph) CancelBatch() {
	if sg.batchDepth == 0 {
		return
	}
	records := sg.batchOps
	sg.batchOps = nil
	sg.batchDepth = 0

	sg.muted = true
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].rollback != nil {
			records[i].rollback()
		}
	}
	sg.muted = false
}

// InBatch reports whether a batch is currently open.
func (sg *SceneGraph) InBatch() bool { return sg.batchDepth > 0 }

// OnGraphChange registers a listener for graph events and returns its
// handle.
func (sg *SceneGraph) OnGraphChange(fn func(GraphEvent)) SubscriptionHandle {
	h := SubscriptionHandle(uuid.NewString())
	sg.listeners[h] = fn
	return h
}

// OffGraphChange removes a listener.
func (sg *SceneGraph) OffGraphChange(h SubscriptionHandle) {
	delete(sg.listeners, h)
}

// IsDirty is a leaf aggregate: true if the graph's own flag is set or any
// owned element reports dirty.
func (sg *SceneGraph) IsDirty() bool {
	if sg.dirty {
		return true
	}
	for _, n := range sg.nodes {
		if n.IsDirty() {
			return true
		}
	}
	for _, e := range sg.edges {
		if e.IsDirty() {
			return true
		}
	}
	return false
}

// ClearDirty resets the graph flag and every element flag.
func (sg *SceneGraph) ClearDirty() {
	sg.dirty = false
	for _, n := range sg.nodes {
		n.ClearDirty()
	}
	for _, e := range sg.edges {
		e.ClearDirty()
	}
}

// --- internal plumbing ---

// record queues the event (and its rollback) inside a batch, or emits it
// immediately outside one. Muted mode (rollback in progress) drops both.
func (sg *SceneGraph) record(ev GraphEvent, rollback func()) {
	if sg.muted {
		return
	}
	sg.dirty = true
	if sg.batchDepth > 0 {
		sg.batchOps = append(sg.batchOps, batchRecord{event: ev, rollback: rollback})
		return
	}
	sg.emit(ev)
}

func (sg *SceneGraph) emit(ev GraphEvent) {
	fns := make([]func(GraphEvent), 0, len(sg.listeners))
	for _, fn := range sg.listeners {
		fns = append(fns, fn)
	}
	for _, fn := range fns {
		fn(ev)
	}
}

func (sg *SceneGraph) registerNode(node *Node) {
	sg.nodes[node.ID()] = node
	sg.index.Insert(node)
	sg.subscribeNode(node)
}

func (sg *SceneGraph) subscribeNode(node *Node) {
	sg.nodeSubs[node.ID()] = node.OnChange(func(ev ChangeEvent) {
		sg.dirty = true
		if ev.Property == PropTransform || ev.Property == PropSize {
			sg.reindexSubtree(node)
		}
		sg.record(GraphEvent{Type: EventNodeChanged, ElementID: ev.ElementID, Property: ev.Property}, nil)
	})
}

// reindexSubtree refreshes the spatial-index entry of node and every
// registered descendant. World bounds depend on ancestor transforms, so a
// transform change or reparent relocates the whole subtree, not just the
// node it was applied to.
func (sg *SceneGraph) reindexSubtree(node *Node) {
	var walk func(n *Node)
	walk = func(n *Node) {
		if _, ok := sg.nodes[n.ID()]; ok && n != sg.root {
			sg.index.Update(n)
		}
		for _, c := range n.Children() {
			walk(c)
		}
	}
	walk(node)
}

func (sg *SceneGraph) registerEdge(edge *Edge) {
	sg.edges[edge.ID()] = edge
	sg.subscribeEdge(edge)
}

func (sg *SceneGraph) subscribeEdge(edge *Edge) {
	sg.edgeSubs[edge.ID()] = edge.OnChange(func(ev ChangeEvent) {
		sg.dirty = true
		sg.record(GraphEvent{Type: EventEdgeChanged, ElementID: ev.ElementID, Property: ev.Property}, nil)
	})
}

func (sg *SceneGraph) unregisterEdge(id string) {
	edge, ok := sg.edges[id]
	if !ok {
		return
	}
	if h, ok := sg.edgeSubs[id]; ok {
		edge.OffChange(h)
		delete(sg.edgeSubs, id)
	}
	delete(sg.edges, id)
}

// detachSubtree unregisters node and every descendant from the id map,
// spatial index and subscriptions, removes their incident edges, and
// detaches the subtree root from its parent. Internal child links stay
// intact so the subtree can be restored on batch cancellation.
func (sg *SceneGraph) detachSubtree(node *Node) []*Edge {
	var removedEdges []*Edge

	var walk func(n *Node)
	walk = func(n *Node) {
		for _, e := range sg.incidentEdges(n.ID()) {
			removedEdges = append(removedEdges, e)
			sg.unregisterEdge(e.ID())
		}
		if h, ok := sg.nodeSubs[n.ID()]; ok {
			n.OffChange(h)
			delete(sg.nodeSubs, n.ID())
		}
		delete(sg.nodes, n.ID())
		sg.index.Remove(n)
		for _, c := range n.Children() {
			walk(c)
		}
	}
	walk(node)

	if p := node.Parent(); p != nil {
		p.DetachChild(node)
	}
	return removedEdges
}

// restoreSubtree reverses detachSubtree.
func (sg *SceneGraph) restoreSubtree(node *Node, parent *Node, edges []*Edge) {
	if parent != nil {
		_ = parent.AttachChild(node)
	}

	var walk func(n *Node)
	walk = func(n *Node) {
		sg.nodes[n.ID()] = n
		sg.index.Insert(n)
		sg.subscribeNode(n)
		for _, c := range n.Children() {
			walk(c)
		}
	}
	walk(node)

	for _, e := range edges {
		sg.registerEdge(e)
	}
}

// removeNodeSilently is the rollback path for AddNode.
func (sg *SceneGraph) removeNodeSilently(id string) {
	node, ok := sg.nodes[id]
	if !ok || node == sg.root {
		return
	}
	sg.detachSubtree(node)
}

// incidentEdges returns the edges whose source or target is the given
// node id.
func (sg *SceneGraph) incidentEdges(nodeID string) []*Edge {
	var out []*Edge
	for _, e := range sg.edges {
		if e.Source() == nodeID || e.Target() == nodeID {
			out = append(out, e)
		}
	}
	return out
}
