// Package realtime pushes storefront events to browsers over websockets.
//
// Every message is a JSON envelope {"event": ..., "data": ...}. Clients are
// grouped in rooms named after user ids; a connection with an identity joins
// its own room on connect and may send {"event":"join","data":"<room>"} to
// join another room, which only admins may do for rooms other than their own.
//
// Delivery is best-effort. Each client has a bounded send buffer and
// messages for a client whose buffer is full are dropped.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/jcmexdev/storefront/internal/storefront/core/domain"
	"github.com/jcmexdev/storefront/internal/storefront/core/ports"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	// SendBufferSize is the number of pending messages kept per client.
	SendBufferSize = 32
)

// Envelope is the wire format of every message in both directions.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type Hub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
	rooms   map[string]map[*client]struct{}
	closed  bool

	pumps    sync.WaitGroup
	done     chan struct{}
	stopOnce sync.Once
}

var _ ports.Emitter = (*Hub)(nil)

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Same-origin checks belong to the gateway in front of us.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
		rooms:   make(map[string]map[*client]struct{}),
		done:    make(chan struct{}),
	}
}

// Run blocks until ctx is cancelled or Stop is called, then disconnects every
// client and waits for their goroutines to exit.
func (h *Hub) Run(ctx context.Context) error {
	select {
	case <-ctx.Done():
	case <-h.done:
	}
	h.shutdown()
	return nil
}

// Stop makes Run return. It is safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) shutdown() {
	h.Stop()

	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*client]struct{})
	h.rooms = make(map[string]map[*client]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	h.pumps.Wait()
	h.logger.Info("realtime hub stopped", slog.Int("clients", len(clients)))
}

// Serve upgrades the request and registers the connection. A non-empty
// identity joins its own room immediately.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, identity domain.Identity) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WarnContext(r.Context(), "websocket upgrade failed", slog.Any("error", err))
		return
	}

	c := &client{
		id:       uuid.NewString(),
		hub:      h,
		conn:     conn,
		identity: identity,
		send:     make(chan []byte, SendBufferSize),
		done:     make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	if identity.UserID != "" {
		h.joinLocked(c, identity.UserID)
	}
	h.pumps.Add(2)
	h.mu.Unlock()

	h.logger.InfoContext(r.Context(), "websocket connected",
		slog.String("client_id", c.id), slog.String("user_id", identity.UserID))

	go c.writePump()
	go c.readPump()
}

// Broadcast sends an event to every connected client.
func (h *Hub) Broadcast(event string, data any) {
	msg, ok := h.encode(event, data)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.enqueue(msg)
	}
}

// EmitTo sends an event to the clients joined to room.
func (h *Hub) EmitTo(room, event string, data any) {
	msg, ok := h.encode(event, data)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[room] {
		c.enqueue(msg)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) encode(event string, data any) ([]byte, bool) {
	msg, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		h.logger.Error("encode realtime event", slog.String("event", event), slog.Any("error", err))
		return nil, false
	}
	return msg, true
}

// join adds c to room if its identity allows it.
func (h *Hub) join(c *client, room string) bool {
	if room == "" || !c.identity.CanAccess(room) {
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return false
	}
	h.joinLocked(c, room)
	return true
}

func (h *Hub) joinLocked(c *client, room string) {
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		for room, members := range h.rooms {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	h.mu.Unlock()

	c.close()
}
