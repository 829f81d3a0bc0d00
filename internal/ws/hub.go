package ws

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

// Event is one typed frame on the session socket.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Hub is the process-local presence registry: user id -> live connections.
// Presence is not durable; a restart forgets every connection and peers
// simply look offline until they reconnect.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]bool),
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	if h.clients[client.UserID] == nil {
		h.clients[client.UserID] = make(map[*Client]bool)
	}
	h.clients[client.UserID][client] = true
	count := len(h.clients[client.UserID])
	h.mu.Unlock()

	log.Info().
		Str("userId", client.UserID).
		Str("connId", client.ID).
		Int("connCount", count).
		Msg("ws client registered")
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.UserID]; ok {
		if _, present := clients[client]; present {
			delete(clients, client)
			client.close()

			if len(clients) == 0 {
				delete(h.clients, client.UserID)
			}

			log.Info().
				Str("userId", client.UserID).
				Str("connId", client.ID).
				Int("connCount", len(clients)).
				Msg("ws client unregistered")
		}
	}
}

// IsOnline reports whether the user has at least one live connection.
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// SendToUser pushes an event to every live connection of userID,
// reporting whether any connection received it. Delivery is best-effort:
// a full client buffer drops the event rather than blocking the caller.
func (h *Hub) SendToUser(userID string, event Event) bool {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients[userID]))
	for client := range h.clients[userID] {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	delivered := false
	for _, client := range clients {
		if client.trySend(event) {
			delivered = true
		} else {
			log.Warn().
				Str("userId", userID).
				Str("connId", client.ID).
				Msg("client send buffer full, dropping event")
		}
	}
	return delivered
}

func (h *Hub) ConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) TotalConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, clients := range h.clients {
		total += len(clients)
	}
	return total
}

// Close tears down every connection, for shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.clients {
		for client := range clients {
			client.close()
		}
	}
	h.clients = make(map[string]map[*Client]bool)
}
