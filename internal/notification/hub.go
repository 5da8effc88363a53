// Package notification fans out domain events (group invites, car
// availability) to connected websocket clients.
package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type Event struct {
	Type    string    `json:"type"`
	GroupID uint      `json:"group_id,omitempty"`
	Payload any       `json:"payload,omitempty"`
	SentAt  time.Time `json:"sent_at"`
}

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// client wraps one websocket connection. gorilla/websocket allows at
// most one concurrent writer per connection, so every write goes
// through the mutex, pings included.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex // protects conn writes
}

func (c *client) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(v)
}

func (c *client) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

// Hub tracks the open connections per user. A user may hold several
// connections (multiple tabs/devices); each gets every event.
type Hub struct {
	mu     sync.RWMutex
	conns  map[uint]map[*websocket.Conn]*client
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{conns: make(map[uint]map[*websocket.Conn]*client), logger: logger}
}

func (h *Hub) Register(userID uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.conns[userID]
	if !ok {
		set = make(map[*websocket.Conn]*client)
		h.conns[userID] = set
	}
	set[conn] = &client{conn: conn}
}

func (h *Hub) Unregister(userID uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.conns[userID]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(h.conns, userID)
		}
	}
	_ = conn.Close()
}

func (h *Hub) lookup(userID uint, conn *websocket.Conn) *client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.conns[userID][conn]
}

// Notify delivers an event to every open connection of one user. Slow
// or dead connections are dropped rather than blocking the caller.
func (h *Hub) Notify(ctx context.Context, userID uint, ev Event) {
	ev.SentAt = time.Now().UTC()
	h.mu.RLock()
	clients := make([]*client, 0, len(h.conns[userID]))
	for _, c := range h.conns[userID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		if err := c.writeJSON(ev); err != nil {
			h.logger.DebugContext(ctx, "dropping dead notification connection", "user_id", userID, "error", err)
			h.Unregister(userID, c.conn)
		}
	}
}

func (h *Hub) NotifyAll(ctx context.Context, userIDs []uint, ev Event) {
	for _, id := range userIDs {
		h.Notify(ctx, id, ev)
	}
}

// ConnectionCount is used by tests and the readiness probe.
func (h *Hub) ConnectionCount(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID])
}

// Serve keeps a registered connection alive with periodic pings and
// discards inbound frames until the client goes away. The transport is
// one-way; clients only listen.
func (h *Hub) Serve(userID uint, conn *websocket.Conn) {
	defer h.Unregister(userID, conn)

	c := h.lookup(userID, conn)
	if c == nil {
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}
