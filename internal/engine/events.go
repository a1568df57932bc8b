package engine

// GraphEventType tags a scene graph change notification.
type GraphEventType string

const (
	EventNodeAdded     GraphEventType = "nodeAdded"
	EventNodeRemoved   GraphEventType = "nodeRemoved"
	EventEdgeAdded     GraphEventType = "edgeAdded"
	EventEdgeRemoved   GraphEventType = "edgeRemoved"
	EventNodeChanged   GraphEventType = "nodeChanged"
	EventEdgeChanged   GraphEventType = "edgeChanged"
	EventParentChanged GraphEventType = "parentChanged"
	EventCleared       GraphEventType = "cleared"
	EventBatchUpdate   GraphEventType = "batchUpdate"
)

// GraphEvent is delivered to scene graph listeners. For EventBatchUpdate,
// Ops holds the ordered list of operations that occurred inside the
// batch; all other fields describe a single operation.
type GraphEvent struct {
	Type      GraphEventType `json:"type"`
	ElementID string         `json:"elementId,omitempty"`
	Property  string         `json:"property,omitempty"`
	Ops       []GraphEvent   `json:"ops,omitempty"`
}
