package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// History defaults. Dropped entries keep their effect applied; only their
// undo capability is lost.
const (
	DefaultHistoryCapacity = 100
	DefaultMergeWindow     = 500 * time.Millisecond
)

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// CommandHistory keeps the ordered list of executed commands and a cursor
// into it. Entries after the cursor form the redo stack; executing a new
// command discards them (linear history). The list is capacity-bounded.
type CommandHistory struct {
	commands    []Command
	current     int // number of entries currently applied
	capacity    int
	mergeWindow time.Duration
}

// NewCommandHistory creates a history with the given capacity (<=0 means
// the default).
func NewCommandHistory(capacity int) *CommandHistory {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &CommandHistory{capacity: capacity, mergeWindow: DefaultMergeWindow}
}

// SetMergeWindow overrides the interval within which consecutive
// compatible commands collapse into one entry.
func (h *CommandHistory) SetMergeWindow(d time.Duration) {
	h.mergeWindow = d
}

// Len returns the number of retained entries.
func (h *CommandHistory) Len() int { return len(h.commands) }

// Cursor returns the number of currently applied entries.
func (h *CommandHistory) Cursor() int { return h.current }

// CanUndo reports whether an applied entry is available.
func (h *CommandHistory) CanUndo() bool { return h.current > 0 }

// CanRedo reports whether an undone entry is available.
func (h *CommandHistory) CanRedo() bool { return h.current < len(h.commands) }

// Execute validates and applies a command against the document. A failed
// validation or execution returns false and leaves history and document
// unmodified; callers check the flag rather than relying on errors.
func (h *CommandHistory) Execute(cmd Command, g *SceneGraph) bool {
	if err := cmd.Validate(g); err != nil {
		slog.Debug("command rejected", "kind", cmd.Kind(), "error", err)
		return false
	}
	if err := cmd.Execute(g); err != nil {
		slog.Warn("command failed", "kind", cmd.Kind(), "error", err)
		return false
	}

	// Executing after undos discards the redo tail.
	h.commands = h.commands[:h.current]

	if h.current > 0 {
		top := h.commands[h.current-1]
		if top.Executed() &&
			cmd.Timestamp().Sub(top.Timestamp()) <= h.mergeWindow &&
			top.CanMergeWith(cmd) {
			if err := top.MergeWith(cmd); err == nil {
				return true
			}
		}
	}

	h.commands = append(h.commands, cmd)
	if len(h.commands) > h.capacity {
		// Oldest entry evicted: its effect stays applied, its
		// undo-ability is gone.
		h.commands = h.commands[1:]
	}
	h.current = len(h.commands)
	return true
}

// Undo reverses the entry at the cursor. Undo-state corruption surfaces
// as a hard error; the cursor does not move past a failed undo.
func (h *CommandHistory) Undo(g *SceneGraph) error {
	if h.current == 0 {
		return ErrNothingToUndo
	}
	cmd := h.commands[h.current-1]
	if err := cmd.Undo(g); err != nil {
		return fmt.Errorf("undo %s: %w", cmd.Kind(), err)
	}
	h.current--
	return nil
}

// Redo re-applies the entry just past the cursor.
func (h *CommandHistory) Redo(g *SceneGraph) error {
	if h.current >= len(h.commands) {
		return ErrNothingToRedo
	}
	cmd := h.commands[h.current]
	if err := cmd.Execute(g); err != nil {
		return fmt.Errorf("redo %s: %w", cmd.Kind(), err)
	}
	h.current++
	return nil
}

// Clear drops all entries.
func (h *CommandHistory) Clear() {
	h.commands = nil
	h.current = 0
}

// serializedHistory is the wire form of the whole history.
type serializedHistory struct {
	Commands     []SerializedCommand `json:"commands"`
	CurrentIndex int                 `json:"currentIndex"`
}

// Serialize round-trips the ordered command list plus cursor position.
func (h *CommandHistory) Serialize() ([]byte, error) {
	out := serializedHistory{
		Commands:     make([]SerializedCommand, 0, len(h.commands)),
		CurrentIndex: h.current,
	}
	for _, cmd := range h.commands {
		data, err := cmd.Payload()
		if err != nil {
			return nil, fmt.Errorf("serialize %s command: %w", cmd.Kind(), err)
		}
		out.Commands = append(out.Commands, SerializedCommand{
			Type:      cmd.Kind(),
			Data:      data,
			Executed:  cmd.Executed(),
			Timestamp: cmd.Timestamp().UnixMilli(),
		})
	}
	return json.Marshal(out)
}

// RestoreCommandHistory rebuilds a history from its serialized form. The
// injected factory maps each entry's type tag back to a constructor; the
// history itself does not know concrete command types.
func RestoreCommandHistory(data []byte, factory CommandFactory, capacity int) (*CommandHistory, error) {
	var in serializedHistory
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}

	h := NewCommandHistory(capacity)
	for _, sc := range in.Commands {
		cmd, err := factory(sc)
		if err != nil {
			return nil, err
		}
		h.commands = append(h.commands, cmd)
	}
	if in.CurrentIndex < 0 || in.CurrentIndex > len(h.commands) {
		return nil, fmt.Errorf("decode history: cursor %d out of range", in.CurrentIndex)
	}
	h.current = in.CurrentIndex
	return h, nil
}
