package session

import (
	"fmt"
	"sync"

	"github.com/graphdeck/graphdeck/engine-go/internal/engine"
)

// DocumentState holds the authoritative document for a room. The editor
// core is single-writer; the mutex serializes the client goroutines so
// exactly one mutation runs at a time (this is a lease around the whole
// operation, not concurrent merging — the engine does not support
// multi-writer editing).
type DocumentState struct {
	mu        sync.Mutex
	editor    *engine.Editor
	serverSeq int64
	pending   []engine.GraphEvent
}

// NewDocumentState wraps an editor for room use and starts collecting its
// change events.
func NewDocumentState(editor *engine.Editor) *DocumentState {
	ds := &DocumentState{editor: editor}
	editor.Graph().OnGraphChange(func(ev engine.GraphEvent) {
		ds.pending = append(ds.pending, ev)
	})
	return ds
}

// ApplyCommand decodes and executes one serialized command. On success it
// returns the new server sequence and the change events the command
// produced; on rejection the document is unchanged.
func (ds *DocumentState) ApplyCommand(sc engine.SerializedCommand) (int64, []engine.GraphEvent, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	ds.pending = nil

	cmd, err := engine.DefaultCommandFactory(sc)
	if err != nil {
		return 0, nil, err
	}
	if !ds.editor.Do(cmd) {
		return 0, nil, fmt.Errorf("command %s rejected", sc.Type)
	}

	ds.serverSeq++
	events := ds.pending
	ds.pending = nil
	return ds.serverSeq, events, nil
}

// Undo reverses the last applied command and returns the resulting
// events.
func (ds *DocumentState) Undo() (int64, []engine.GraphEvent, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	ds.pending = nil
	if err := ds.editor.Undo(); err != nil {
		return 0, nil, err
	}
	ds.serverSeq++
	events := ds.pending
	ds.pending = nil
	return ds.serverSeq, events, nil
}

// Redo re-applies the last undone command and returns the resulting
// events.
func (ds *DocumentState) Redo() (int64, []engine.GraphEvent, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	ds.pending = nil
	if err := ds.editor.Redo(); err != nil {
		return 0, nil, err
	}
	ds.serverSeq++
	events := ds.pending
	ds.pending = nil
	return ds.serverSeq, events, nil
}

// Snapshot serializes the current document.
func (ds *DocumentState) Snapshot() (string, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return ds.editor.SaveDocument()
}

// Load replaces the document from a JSON snapshot.
func (ds *DocumentState) Load(jsonData string) error {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	err := ds.editor.LoadDocument(jsonData)
	ds.pending = nil
	return err
}

// LoadSample replaces the document with the built-in sample.
func (ds *DocumentState) LoadSample() {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.editor.LoadSampleDocument()
	ds.pending = nil
}
