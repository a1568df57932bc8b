package engine

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tanema/gween/ease"

	"github.com/graphdeck/graphdeck/engine-go/internal/document"
)

// defaultRegion is the spatial index coverage for new documents. Objects
// outside it still index correctly (they stay in the root bucket), this
// just sets where subdivision pays off.
var defaultRegion = Rect{X: -10000, Y: -10000, Width: 20000, Height: 20000}

// Editor owns the document state and exposes the engine to hosts: the
// WASM bindings and the session hub both talk to it, mostly in JSON
// strings. All methods are synchronous; hosts serialize access.
type Editor struct {
	graph    *SceneGraph
	history  *CommandHistory
	animator *Animator
	factory  CommandFactory

	selection []string

	renderer      Renderer
	viewport      *Transform
	renderPending bool
}

// NewEditor creates an editor over an empty document.
func NewEditor() *Editor {
	graph := NewSceneGraph(defaultRegion)
	return &Editor{
		graph:    graph,
		history:  NewCommandHistory(DefaultHistoryCapacity),
		animator: NewAnimator(graph),
		factory:  DefaultCommandFactory,
		viewport: NewTransform(),
	}
}

// NewEditorWithHistory creates an editor whose command history uses the
// given capacity and merge window. capacity <= 0 takes the default;
// mergeWindow < 0 takes the default (zero disables merging).
func NewEditorWithHistory(capacity int, mergeWindow time.Duration) *Editor {
	e := NewEditor()
	e.history = NewCommandHistory(capacity)
	if mergeWindow < 0 {
		mergeWindow = DefaultMergeWindow
	}
	e.history.SetMergeWindow(mergeWindow)
	return e
}

// Graph returns the underlying scene graph.
func (e *Editor) Graph() *SceneGraph { return e.graph }

// History returns the underlying command history.
func (e *Editor) History() *CommandHistory { return e.history }

// Animator returns the layout animator.
func (e *Editor) Animator() *Animator { return e.animator }

// SetCommandFactory overrides the factory used to decode serialized
// commands (hosts registering custom command types).
func (e *Editor) SetCommandFactory(f CommandFactory) { e.factory = f }

// SetRenderer attaches the render backend. Nil detaches it.
func (e *Editor) SetRenderer(r Renderer) { e.renderer = r }

// Viewport returns the viewport transform handed to the renderer.
func (e *Editor) Viewport() *Transform { return e.viewport }

// --- Commands (host → engine) ---

// LoadDocument replaces the document from its JSON snapshot. Loading
// resets history and selection.
func (e *Editor) LoadDocument(jsonData string) error {
	var doc document.Document
	if err := json.Unmarshal([]byte(jsonData), &doc); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}

	e.graph.LoadDocument(&doc)
	e.history.Clear()
	e.selection = nil
	e.animator.Cancel()
	e.ScheduleRender()
	return nil
}

// LoadSampleDocument loads the built-in demo graph.
func (e *Editor) LoadSampleDocument() {
	doc := document.NewSampleDocument()
	e.graph.LoadDocument(doc)
	e.history.Clear()
	e.selection = nil
	e.ScheduleRender()
}

// SaveDocument serializes the document to its JSON snapshot.
func (e *Editor) SaveDocument() (string, error) {
	data, err := json.Marshal(e.graph.ToDocument())
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	return string(data), nil
}

// Do validates and executes a command through the history. Returns false
// when validation or execution rejects it; the document is unchanged.
func (e *Editor) Do(cmd Command) bool {
	ok := e.history.Execute(cmd, e.graph)
	if ok {
		e.ScheduleRender()
	}
	return ok
}

// ExecuteJSON decodes a serialized command and executes it.
func (e *Editor) ExecuteJSON(data string) bool {
	var sc SerializedCommand
	if err := json.Unmarshal([]byte(data), &sc); err != nil {
		return false
	}
	cmd, err := e.factory(sc)
	if err != nil {
		return false
	}
	return e.Do(cmd)
}

// Undo reverses the last applied command.
func (e *Editor) Undo() error {
	if err := e.history.Undo(e.graph); err != nil {
		return err
	}
	e.ScheduleRender()
	return nil
}

// Redo re-applies the last undone command.
func (e *Editor) Redo() error {
	if err := e.history.Redo(e.graph); err != nil {
		return err
	}
	e.ScheduleRender()
	return nil
}

func (e *Editor) CanUndo() bool { return e.history.CanUndo() }
func (e *Editor) CanRedo() bool { return e.history.CanRedo() }

// SetSelection replaces the selected element ids.
func (e *Editor) SetSelection(ids []string) {
	e.selection = ids
	e.ScheduleRender()
}

// Selection returns the selected element ids.
func (e *Editor) Selection() []string { return e.selection }

// ApplyLayout writes a layout result into the document, animated over
// duration when animate is true.
func (e *Editor) ApplyLayout(result LayoutResult, animate bool, duration time.Duration) {
	if animate && duration > 0 {
		e.animator.Start(result, duration, ease.OutQuad)
		return
	}
	e.graph.ApplyLayout(result)
	e.ScheduleRender()
}

// --- Queries (engine → host) ---

// HitTest returns the id of the topmost node whose bounds contain the
// point, or the empty string. Invisible nodes never hit.
func (e *Editor) HitTest(x, y float64) string {
	hits := e.graph.NodesAt(x, y)
	for i := len(hits) - 1; i >= 0; i-- {
		if hits[i].Visible() {
			return hits[i].ID()
		}
	}
	return ""
}

// NodesAt returns the ids of all visible nodes containing the point.
func (e *Editor) NodesAt(x, y float64) []string {
	hits := e.graph.NodesAt(x, y)
	out := make([]string, 0, len(hits))
	for _, n := range hits {
		if n.Visible() {
			out = append(out, n.ID())
		}
	}
	return out
}

// SelectionBounds returns the union of the selected nodes' bounds.
func (e *Editor) SelectionBounds() Rect {
	var out Rect
	for _, id := range e.selection {
		node, ok := e.graph.Node(id)
		if !ok {
			continue
		}
		out = out.Union(node.Bounds())
	}
	return out
}

// --- Rendering ---

// ScheduleRender marks a render pass pending. Multiple requests within
// one tick coalesce into a single pass, so backends always observe fully
// pre-batch or fully post-batch document state.
func (e *Editor) ScheduleRender() {
	e.renderPending = true
}

// Tick is the host's per-animation-frame entry point: it advances any
// running layout animation and flushes at most one pending render pass.
func (e *Editor) Tick(now time.Time) {
	if e.animator.Tick(now) {
		e.renderPending = true
	}
	if e.renderPending && e.renderer != nil {
		sel := make(map[string]bool, len(e.selection))
		for _, id := range e.selection {
			sel[id] = true
		}
		RenderScene(e.graph, e.renderer, e.viewport, sel)
	}
	e.renderPending = false
}
