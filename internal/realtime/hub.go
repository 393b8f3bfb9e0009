// Package realtime fans game events out to connected websocket clients.
package realtime

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 45 * time.Second

	maxMessageSize = 1024
)

// Event is the wire envelope for everything the hub sends.
type Event struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

type conn struct {
	id     string
	userID int64
	ws     *websocket.Conn
	mu     sync.Mutex // guards writes to ws
}

func (c *conn) send(ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(ev)
}

func (c *conn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.PingMessage, nil)
}

// Hub tracks live connections by user and delivers broadcast and
// targeted events. A user may hold several connections at once.
type Hub struct {
	log      *slog.Logger
	upgrader websocket.Upgrader

	mu     sync.RWMutex
	conns  map[string]*conn
	byUser map[int64]map[string]*conn
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		conns:  make(map[string]*conn),
		byUser: make(map[int64]map[string]*conn),
	}
}

// Join upgrades the request and services the connection until the
// client goes away. It blocks, so call it from the HTTP handler.
func (h *Hub) Join(w http.ResponseWriter, r *http.Request, userID int64) error {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &conn{id: uuid.NewString(), userID: userID, ws: ws}
	defer h.broadcastUserCount()
	h.add(c)
	defer h.remove(c)
	h.broadcastUserCount()

	done := make(chan struct{})
	defer close(done)
	go h.pingLoop(c, done)

	ws.SetReadLimit(maxMessageSize)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		// Clients don't speak; the read loop only notices disconnects.
		if _, _, err := ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("websocket closed", "conn_id", c.id, "user_id", userID, "error", err)
			}
			return nil
		}
	}
}

func (h *Hub) pingLoop(c *conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := c.ping(); err != nil {
				c.ws.Close()
				return
			}
		case <-done:
			return
		}
	}
}

func (h *Hub) add(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c.id] = c
	set := h.byUser[c.userID]
	if set == nil {
		set = make(map[string]*conn)
		h.byUser[c.userID] = set
	}
	set[c.id] = c
}

func (h *Hub) remove(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, c.id)
	if set := h.byUser[c.userID]; set != nil {
		delete(set, c.id)
		if len(set) == 0 {
			delete(h.byUser, c.userID)
		}
	}
	c.ws.Close()
}

// Broadcast sends an event to every connection. Slow or dead peers are
// dropped rather than allowed to stall the rest.
func (h *Hub) Broadcast(event string, payload any) {
	ev := Event{Event: event, Payload: normalize(payload)}

	h.mu.RLock()
	targets := make([]*conn, 0, len(h.conns))
	for _, c := range h.conns {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.send(ev); err != nil {
			h.log.Debug("dropping slow subscriber", "conn_id", c.id, "error", err)
			h.remove(c)
		}
	}
}

// SendToUser delivers an event to every connection the user holds.
// It reports whether at least one delivery went out.
func (h *Hub) SendToUser(userID int64, event string, payload any) bool {
	ev := Event{Event: event, Payload: normalize(payload)}

	h.mu.RLock()
	set := h.byUser[userID]
	targets := make([]*conn, 0, len(set))
	for _, c := range set {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	delivered := false
	for _, c := range targets {
		if err := c.send(ev); err != nil {
			h.remove(c)
			continue
		}
		delivered = true
	}
	return delivered
}

// ConnectedUserIDs returns the distinct users with at least one live
// connection.
func (h *Hub) ConnectedUserIDs() []int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]int64, 0, len(h.byUser))
	for id := range h.byUser {
		ids = append(ids, id)
	}
	return ids
}

// UserCount reports distinct connected users, not connections.
func (h *Hub) UserCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byUser)
}

func (h *Hub) broadcastUserCount() {
	h.Broadcast("UpdateUserCount", map[string]any{"count": h.UserCount()})
}

// normalize round-trips structured payloads through json.RawMessage so
// repeated sends don't re-marshal differently per connection.
func normalize(payload any) any {
	if payload == nil {
		return nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return json.RawMessage(raw)
}
