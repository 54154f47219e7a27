package infrastructure

import (
	"log/slog"
	"sync"
)

// Hub owns every websocket client attached to this instance, keyed by
// connection id, with a secondary index from user id to bound connections.
type Hub struct {
	clients map[string]*Client
	byUser  map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		byUser:  make(map[string]map[*Client]struct{}),
	}
}

// AttachClient registers a freshly accepted connection. A stale client
// reusing the same connection id is detached first.
func (h *Hub) AttachClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if existing, ok := h.clients[c.connectionID]; ok && existing != c {
		h.detachLocked(existing)
	}
	h.clients[c.connectionID] = c
	slog.Info("ws client attached", slog.String("connectionId", c.connectionID))
}

// BindUser associates an authenticated user with the client so user-indexed
// pushes reach it. Rebinding to a different user moves the index entry.
func (h *Hub) BindUser(c *Client, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if prev := c.UserID(); prev != "" && prev != userID {
		h.unbindLocked(c, prev)
	}
	c.setUser(userID)
	if h.byUser[userID] == nil {
		h.byUser[userID] = make(map[*Client]struct{})
	}
	h.byUser[userID][c] = struct{}{}
	slog.Info("ws client authenticated", slog.String("connectionId", c.connectionID), slog.String("userId", userID))
}

func (h *Hub) unbindLocked(c *Client, userID string) {
	if clients, ok := h.byUser[userID]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.byUser, userID)
		}
	}
}

func (h *Hub) detachClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detachLocked(c)
}

func (h *Hub) detachLocked(c *Client) {
	if c == nil {
		return
	}
	if userID := c.UserID(); userID != "" {
		h.unbindLocked(c, userID)
	}
	delete(h.clients, c.connectionID)
	c.close()
	slog.Info("ws client detached", slog.String("connectionId", c.connectionID), slog.String("userId", c.UserID()))
}

// PushToConnections delivers frame bytes to the named connections. Ids not
// attached to this instance are skipped.
func (h *Hub) PushToConnections(connectionIDs []string, frame []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(connectionIDs))
	for _, id := range connectionIDs {
		if c, ok := h.clients[id]; ok {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.SendRaw(frame)
	}
}

// PushToAll delivers frame bytes to every authenticated connection on this
// instance.
func (h *Hub) PushToAll(frame []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		if c.UserID() == "" {
			continue
		}
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.SendRaw(frame)
	}
}

// ConnectionCount reports how many connections are attached to this instance.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
