// internal/hub/hub.go
//
// Broadcast hub for viewer connections.
// Responsibilities:
//   - Track the set of live viewer connections.
//   - Push a "gameState" snapshot to every newly registered connection.
//   - Fan out events to all ready connections (serialize once per broadcast).
//
// Failure semantics: a slow or broken connection never fails a broadcast or
// affects other viewers; its queue drops messages and the write pump
// unregisters it on the first write error.

package hub

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

// Event is the wire envelope for every message pushed to viewers.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Event types pushed over the viewer channel.
const (
	EventGameState       = "gameState"
	EventGameStarted     = "gameStarted"
	EventGameEnded       = "gameEnded"
	EventNewComment      = "newComment"
	EventCommandReceived = "commandReceived"
)

// SnapshotFunc supplies the current-state event sent to a joining viewer.
// ok=false means there is nothing to send (no active round yet).
type SnapshotFunc func() (Event, bool)

// Hub maintains the viewer connection set.
type Hub struct {
	mu       sync.Mutex
	clients  map[*Client]struct{}
	snapshot SnapshotFunc
}

// New constructs a hub. snapshot may be nil if joining viewers should not
// receive an initial state push.
func New(snapshot SnapshotFunc) *Hub {
	return &Hub{
		clients:  make(map[*Client]struct{}),
		snapshot: snapshot,
	}
}

// Register adds a connection and immediately queues the current game state
// for it, so a new viewer sees the board with no gap.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	log.Debug().Int("viewers", n).Msg("viewer connected")

	if h.snapshot != nil {
		if evt, ok := h.snapshot(); ok {
			if b, err := json.Marshal(evt); err == nil {
				c.enqueue(b)
			}
		}
	}
}

// Unregister removes a connection and closes its send queue.
// Idempotent: safe to call from both the read and write pumps.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, present := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	if present {
		c.close()
		log.Debug().Int("viewers", n).Msg("viewer disconnected")
	}
}

// Broadcast serializes evt once and queues it on every registered
// connection. Connections that cannot accept the message are skipped; they
// are cleaned up by their own pumps.
func (h *Hub) Broadcast(evt Event) {
	b, err := json.Marshal(evt)
	if err != nil {
		log.Error().Err(err).Str("type", evt.Type).Msg("marshal broadcast event")
		return
	}
	h.mu.Lock()
	for c := range h.clients {
		c.enqueue(b)
	}
	h.mu.Unlock()
}

// Count returns the number of connected viewers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
