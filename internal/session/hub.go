package session

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/graphdeck/graphdeck/engine-go/internal/engine"
)

// RoomConfig tunes the editor each room is built around. Zero values
// fall back to the engine defaults.
type RoomConfig struct {
	HistoryCapacity int
	MergeWindow     time.Duration
}

func (c RoomConfig) newEditor() *engine.Editor {
	mw := c.MergeWindow
	if mw <= 0 {
		mw = engine.DefaultMergeWindow
	}
	return engine.NewEditorWithHistory(c.HistoryCapacity, mw)
}

// Room hosts one document and its connected clients.
type Room struct {
	docID    string
	state    *DocumentState
	clients  map[string]*Client // clientID -> client
	presence *PresenceManager
}

// NewRoom creates a room around a fresh editor.
func NewRoom(docID string, cfg RoomConfig) *Room {
	return &Room{
		docID:    docID,
		state:    NewDocumentState(cfg.newEditor()),
		clients:  make(map[string]*Client),
		presence: NewPresenceManager(),
	}
}

// State returns the room's document state.
func (r *Room) State() *DocumentState { return r.state }

// Hub owns the rooms and routes client messages.
type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // docID -> room
	cfg        RoomConfig
	register   chan *Client
	unregister chan *Client
}

// NewHub creates an empty hub whose rooms inherit cfg.
func NewHub(cfg RoomConfig) *Hub {
	return &Hub{
		rooms:      make(map[string]*Room),
		cfg:        cfg,
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run processes client registration. Call in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

// Register queues a client for addition.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Room returns the room for a document id, creating it on first use.
func (h *Hub) Room(docID string) *Room {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[docID]
	if !ok {
		room = NewRoom(docID, h.cfg)
		h.rooms[docID] = room
	}
	return room
}

func (h *Hub) addClient(client *Client) {
	room := h.Room(client.DocID)

	h.mu.Lock()
	room.clients[client.ClientID] = client
	h.mu.Unlock()

	welcome, _ := json.Marshal(WelcomePayload{ClientID: client.ClientID, DocID: client.DocID})
	client.Send(&Message{Type: TypeWelcome, Payload: welcome})

	// Fresh clients get the full document before any deltas.
	if snap, err := room.state.Snapshot(); err == nil {
		docSync, _ := json.Marshal(DocSyncPayload{Document: json.RawMessage(snap)})
		client.Send(&Message{Type: TypeDocSync, DocID: client.DocID, Payload: docSync})
	}

	if stateMsg := room.presence.StateMessage(); stateMsg != nil {
		client.Send(stateMsg)
	}

	joinPayload, _ := json.Marshal(PresenceJoinPayload{ClientID: client.ClientID, Name: client.Name})
	h.broadcastToRoom(client.DocID, &Message{Type: TypePresenceJoin, ClientID: client.ClientID, Payload: joinPayload}, client.ClientID)

	slog.Info("client joined", "client", client.ClientID, "doc", client.DocID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.DocID]
	if !ok {
		h.mu.Unlock()
		return
	}

	delete(room.clients, client.ClientID)
	close(client.send)
	room.presence.Remove(client.ClientID)

	if len(room.clients) == 0 {
		delete(h.rooms, client.DocID)
	}
	h.mu.Unlock()

	leavePayload, _ := json.Marshal(PresenceLeavePayload{ClientID: client.ClientID})
	h.broadcastToRoom(client.DocID, &Message{Type: TypePresenceLeave, ClientID: client.ClientID, Payload: leavePayload}, "")

	slog.Info("client left", "client", client.ClientID, "doc", client.DocID)
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	switch msg.Type {
	case TypeCmdSubmit:
		h.handleCmdSubmit(sender, msg)
	case TypePresenceUpdate:
		h.handlePresenceUpdate(sender, msg)
	default:
		slog.Warn("unknown message type", "type", msg.Type, "client", sender.ClientID)
	}
}

func (h *Hub) handleCmdSubmit(sender *Client, msg *Message) {
	h.mu.RLock()
	room, ok := h.rooms[sender.DocID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	var payload CmdSubmitPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		h.nack(sender, "invalid command payload")
		return
	}

	seq, events, err := room.state.ApplyCommand(payload.Command)
	if err != nil {
		slog.Debug("command rejected", "client", sender.ClientID, "error", err)
		h.nack(sender, err.Error())
		return
	}

	ack, _ := json.Marshal(CmdAckPayload{Seq: seq})
	sender.Send(&Message{Type: TypeCmdAck, Seq: seq, Payload: ack})

	broadcast, _ := json.Marshal(EventBroadcastPayload{Events: events, Seq: seq})
	h.broadcastToRoom(sender.DocID, &Message{
		Type:     TypeEventBroadcast,
		ClientID: sender.ClientID,
		Seq:      seq,
		Payload:  broadcast,
	}, sender.ClientID)
}

func (h *Hub) nack(client *Client, reason string) {
	payload, _ := json.Marshal(CmdNackPayload{Reason: reason})
	client.Send(&Message{Type: TypeCmdNack, Payload: payload})
}

func (h *Hub) handlePresenceUpdate(sender *Client, msg *Message) {
	var presence PresencePayload
	if err := json.Unmarshal(msg.Payload, &presence); err != nil {
		slog.Warn("invalid presence payload", "error", err)
		return
	}

	presence.Name = sender.Name

	h.mu.RLock()
	room, ok := h.rooms[sender.DocID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	room.presence.Update(sender.ClientID, &presence)

	outPayload, _ := json.Marshal(presence)
	h.broadcastToRoom(sender.DocID, &Message{
		Type:     TypePresenceUpdate,
		ClientID: sender.ClientID,
		Payload:  outPayload,
	}, sender.ClientID)
}

func (h *Hub) broadcastToRoom(docID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	room, ok := h.rooms[docID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Send(msg)
	}
}
