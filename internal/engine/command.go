package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Command kinds. These are the type tags carried by serialized commands
// and consumed by factories.
const (
	KindNodeCreate     = "node.create"
	KindNodeDelete     = "node.delete"
	KindNodeMove       = "node.move"
	KindNodeReparent   = "node.reparent"
	KindStyleSet       = "style.set"
	KindEdgeConnect    = "edge.connect"
	KindEdgeDisconnect = "edge.disconnect"
)

// Command execution errors.
var (
	ErrAlreadyExecuted = errors.New("command already executed")
	ErrNotExecuted     = errors.New("command not executed")
	ErrCannotMerge     = errors.New("commands cannot merge")

	// ErrUndoCorrupt means a command's captured undo data is missing or
	// inconsistent. This is fatal for the operation: silently skipping
	// it would desynchronize the document from the history cursor.
	ErrUndoCorrupt = errors.New("undo data missing or inconsistent")
)

// Command is a reversible, mergeable mutation against a scene graph. A
// command is created by a caller, validated and executed by the history,
// and after execution holds whatever state it needs to reverse itself.
type Command interface {
	// Kind returns the command's type tag.
	Kind() string
	// Timestamp returns the command's creation time.
	Timestamp() time.Time
	// Executed reports whether the command has been applied.
	Executed() bool

	// Validate pre-flights the command against the document. A failed
	// validation means the command is never pushed onto the history and
	// the document stays unmodified.
	Validate(g *SceneGraph) error
	// Execute applies the mutation, capturing undo state. Fails if the
	// command already executed.
	Execute(g *SceneGraph) error
	// Undo reverses the mutation using captured state. Fails if the
	// command has not executed.
	Undo(g *SceneGraph) error

	// CanMergeWith reports whether other can collapse into this command
	// as a single history entry.
	CanMergeWith(other Command) bool
	// MergeWith folds other's net effect into this command. The merged
	// entry's undo restores the state before the whole sequence.
	MergeWith(other Command) error

	// Payload returns the command's serializable data.
	Payload() (json.RawMessage, error)
}

// baseCommand carries the bookkeeping shared by all commands.
type baseCommand struct {
	kind     string
	ts       time.Time
	executed bool
}

func newBase(kind string) baseCommand {
	return baseCommand{kind: kind, ts: time.Now()}
}

func (b *baseCommand) Kind() string         { return b.kind }
func (b *baseCommand) Timestamp() time.Time { return b.ts }
func (b *baseCommand) Executed() bool       { return b.executed }

func (b *baseCommand) CanMergeWith(Command) bool { return false }
func (b *baseCommand) MergeWith(Command) error   { return ErrCannotMerge }

func (b *baseCommand) base() *baseCommand { return b }

// rebaseable lets the in-package factory restore bookkeeping that lives
// outside the serialized data payload.
type rebaseable interface {
	base() *baseCommand
}

// SerializedCommand is the wire form of one history entry.
type SerializedCommand struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Executed  bool            `json:"executed"`
	Timestamp int64           `json:"timestamp"` // unix milliseconds
}

// CommandFactory maps a serialized command back to a live Command. The
// history itself never knows concrete command types.
type CommandFactory func(sc SerializedCommand) (Command, error)

// DefaultCommandFactory restores the command types defined in this
// package.
func DefaultCommandFactory(sc SerializedCommand) (Command, error) {
	var cmd Command
	switch sc.Type {
	case KindNodeCreate:
		cmd = &CreateNodeCommand{baseCommand: baseCommand{kind: sc.Type}}
	case KindNodeDelete:
		cmd = &DeleteNodeCommand{baseCommand: baseCommand{kind: sc.Type}}
	case KindNodeMove:
		cmd = &MoveNodeCommand{baseCommand: baseCommand{kind: sc.Type}}
	case KindNodeReparent:
		cmd = &ReparentNodeCommand{baseCommand: baseCommand{kind: sc.Type}}
	case KindStyleSet:
		cmd = &SetStyleCommand{baseCommand: baseCommand{kind: sc.Type}}
	case KindEdgeConnect:
		cmd = &ConnectCommand{baseCommand: baseCommand{kind: sc.Type}}
	case KindEdgeDisconnect:
		cmd = &DisconnectCommand{baseCommand: baseCommand{kind: sc.Type}}
	default:
		return nil, fmt.Errorf("unknown command type: %s", sc.Type)
	}

	if len(sc.Data) > 0 {
		if err := json.Unmarshal(sc.Data, cmd); err != nil {
			return nil, fmt.Errorf("decode %s command: %w", sc.Type, err)
		}
	}

	b := cmd.(rebaseable).base()
	b.executed = sc.Executed
	b.ts = time.UnixMilli(sc.Timestamp)
	return cmd, nil
}
