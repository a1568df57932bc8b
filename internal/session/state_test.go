package session

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/graphdeck/graphdeck/engine-go/internal/engine"
)

func submitCreate(t *testing.T, ds *DocumentState, label string, x, y float64) []engine.GraphEvent {
	t.Helper()
	data, err := json.Marshal(map[string]any{
		"nodeType": "rect",
		"label":    label,
		"position": map[string]float64{"x": x, "y": y},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	_, events, err := ds.ApplyCommand(engine.SerializedCommand{Type: engine.KindNodeCreate, Data: data})
	if err != nil {
		t.Fatalf("ApplyCommand: %v", err)
	}
	return events
}

func TestDocumentStateApplyCommand(t *testing.T) {
	ds := NewDocumentState(engine.NewEditor())

	events := submitCreate(t, ds, "A", 10, 20)
	if len(events) != 1 || events[0].Type != engine.EventNodeAdded {
		t.Errorf("events = %v, want one nodeAdded", events)
	}

	seq, _, err := ds.ApplyCommand(engine.SerializedCommand{Type: engine.KindNodeCreate, Data: []byte(`{"nodeType":"rect"}`)})
	if err != nil {
		t.Fatalf("ApplyCommand: %v", err)
	}
	if seq != 2 {
		t.Errorf("seq = %d, want 2", seq)
	}
}

func TestDocumentStateRejectsBadCommand(t *testing.T) {
	ds := NewDocumentState(engine.NewEditor())

	if _, _, err := ds.ApplyCommand(engine.SerializedCommand{Type: "bogus"}); err == nil {
		t.Error("unknown command type must be rejected")
	}
	// Deleting a node that does not exist fails validation.
	if _, _, err := ds.ApplyCommand(engine.SerializedCommand{
		Type: engine.KindNodeDelete,
		Data: []byte(`{"nodeId":"node_missing"}`),
	}); err == nil {
		t.Error("invalid command must be rejected")
	}
}

func TestDocumentStateUndoRedo(t *testing.T) {
	ds := NewDocumentState(engine.NewEditor())
	submitCreate(t, ds, "A", 0, 0)

	_, events, err := ds.Undo()
	if err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if len(events) != 1 || events[0].Type != engine.EventNodeRemoved {
		t.Errorf("undo events = %v, want one nodeRemoved", events)
	}

	if _, _, err := ds.Redo(); err != nil {
		t.Fatalf("Redo: %v", err)
	}
	if _, _, err := ds.Redo(); err == nil {
		t.Error("exhausted redo must fail")
	}
}

func TestRoomConfigHistoryCapacity(t *testing.T) {
	room := NewRoom("doc_cap", RoomConfig{HistoryCapacity: 1})
	ds := room.State()

	submitCreate(t, ds, "A", 0, 0)
	submitCreate(t, ds, "B", 100, 0)

	// Capacity 1 evicts the first create; only the second is undoable.
	if _, _, err := ds.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if _, _, err := ds.Undo(); err == nil {
		t.Error("evicted entry must not be undoable")
	}
}

func TestDocumentStateSnapshotAndLoad(t *testing.T) {
	ds := NewDocumentState(engine.NewEditor())
	submitCreate(t, ds, "keep", 5, 5)

	snap, err := ds.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if !strings.Contains(snap, `"keep"`) {
		t.Errorf("snapshot missing node label: %s", snap)
	}

	fresh := NewDocumentState(engine.NewEditor())
	if err := fresh.Load(snap); err != nil {
		t.Fatalf("Load: %v", err)
	}
	fresh2, err := fresh.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot after load: %v", err)
	}
	if !strings.Contains(fresh2, `"keep"`) {
		t.Error("loaded document lost its contents")
	}

	if err := fresh.Load("{nope"); err == nil {
		t.Error("invalid snapshot must fail")
	}
}
