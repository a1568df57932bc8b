package session

import (
	"encoding/json"

	"github.com/graphdeck/graphdeck/engine-go/internal/engine"
)

// Message is the envelope for everything crossing a session websocket.
type Message struct {
	Type     string          `json:"type"`
	DocID    string          `json:"docId,omitempty"`
	ClientID string          `json:"clientId,omitempty"`
	Seq      int64           `json:"seq,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// Message types.
const (
	TypeWelcome = "welcome"
	TypeError   = "error"

	// Document sync
	TypeDocSync = "doc.sync"

	// Command submission
	TypeCmdSubmit = "cmd.submit"
	TypeCmdAck    = "cmd.ack"
	TypeCmdNack   = "cmd.nack"

	// Change notification fan-out
	TypeEventBroadcast = "event.broadcast"

	// Presence
	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"
)

// WelcomePayload greets a freshly connected client.
type WelcomePayload struct {
	ClientID string `json:"clientId"`
	DocID    string `json:"docId"`
}

// DocSyncPayload carries a full document snapshot.
type DocSyncPayload struct {
	Document json.RawMessage `json:"document"`
}

// CmdSubmitPayload carries one serialized command from a client.
type CmdSubmitPayload struct {
	Command engine.SerializedCommand `json:"command"`
}

// CmdAckPayload confirms an applied command.
type CmdAckPayload struct {
	Seq int64 `json:"seq"`
}

// CmdNackPayload rejects a command. The document is unchanged.
type CmdNackPayload struct {
	Reason string `json:"reason"`
}

// EventBroadcastPayload fans a scene graph change out to viewers.
type EventBroadcastPayload struct {
	Events []engine.GraphEvent `json:"events"`
	Seq    int64               `json:"seq"`
}

// PresencePayload is one client's ephemeral editing state.
type PresencePayload struct {
	Cursor    *CursorPos `json:"cursor,omitempty"`
	Selection []string   `json:"selection,omitempty"`
	Name      string     `json:"name,omitempty"`
}

// CursorPos is a cursor position in document space.
type CursorPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PresenceStatePayload is the full presence map sent on join.
type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"`
}

// PresenceJoinPayload announces a new client.
type PresenceJoinPayload struct {
	ClientID string `json:"clientId"`
	Name     string `json:"name"`
}

// PresenceLeavePayload announces a departed client.
type PresenceLeavePayload struct {
	ClientID string `json:"clientId"`
}
