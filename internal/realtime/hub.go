package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"taskpulse/pkg/logger"
)

// client is one connected SSE stream, scoped to a user.
type client struct {
	userID string
	ch     chan []byte
}

// Hub fans events out to connected clients, keyed by user id. It implements
// Channel directly, which is the whole delivery path when the process runs
// alone; with multiple instances a Redis bridge feeds each hub.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	byUser  map[string]map[*client]struct{}
}

// NewHub creates a Hub ready to accept subscriptions.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		byUser:  make(map[string]map[*client]struct{}),
	}
}

// Subscription is a live client stream. Close must be called when the
// connection ends.
type Subscription struct {
	C   <-chan []byte
	hub *Hub
	c   *client
}

// Close detaches the subscription from the hub.
func (s *Subscription) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	if _, ok := s.hub.clients[s.c]; !ok {
		return
	}
	delete(s.hub.clients, s.c)
	if set := s.hub.byUser[s.c.userID]; set != nil {
		delete(set, s.c)
		if len(set) == 0 {
			delete(s.hub.byUser, s.c.userID)
		}
	}
	close(s.c.ch)
}

// Subscribe joins the user's channel and the broadcast set.
func (h *Hub) Subscribe(userID string) *Subscription {
	c := &client{userID: userID, ch: make(chan []byte, 64)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	if h.byUser[userID] == nil {
		h.byUser[userID] = make(map[*client]struct{})
	}
	h.byUser[userID][c] = struct{}{}
	h.mu.Unlock()
	return &Subscription{C: c.ch, hub: h, c: c}
}

// EmitToUser implements Channel. No subscriber means no delivery, silently.
func (h *Hub) EmitToUser(ctx context.Context, userID, event string, payload interface{}) {
	data, err := json.Marshal(message{Type: event, Payload: payload})
	if err != nil {
		logger.Error(ctx, "Realtime marshal failed", "event", event, "error", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.byUser[userID] {
		h.send(c, data)
	}
}

// EmitAll implements Channel.
func (h *Hub) EmitAll(ctx context.Context, event string, payload interface{}) {
	data, err := json.Marshal(message{Type: event, Payload: payload})
	if err != nil {
		logger.Error(ctx, "Realtime marshal failed", "event", event, "error", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		h.send(c, data)
	}
}

// send drops the frame if the client is slow rather than block the emitter.
func (h *Hub) send(c *client, data []byte) {
	select {
	case c.ch <- data:
	default:
	}
}

// dispatch delivers a pre-marshaled frame coming off the Redis bridge.
func (h *Hub) dispatch(userID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if userID == "" {
		for c := range h.clients {
			h.send(c, data)
		}
		return
	}
	for c := range h.byUser[userID] {
		h.send(c, data)
	}
}
