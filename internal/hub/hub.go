// Package hub fans roster events out to the DMs watching a game.
package hub

import (
	"encoding/json"
	"log"
	"sync"
)

// Event represents a real-time event to be sent to clients.
// Payloads carry share progress only, never ratings.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Client is a single SSE connection. The handler drains the channel.
type Client chan []byte

// Hub manages the subscribers of every game.
type Hub struct {
	games map[uint]map[Client]bool
	mu    sync.RWMutex
}

// GlobalHub is the process-wide Hub.
var GlobalHub = NewHub()

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		games: make(map[uint]map[Client]bool),
	}
}

// Subscribe adds a client to a game.
func (h *Hub) Subscribe(gameID uint, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.games[gameID]; !ok {
		h.games[gameID] = make(map[Client]bool)
	}
	h.games[gameID][client] = true
}

// Unsubscribe removes a client from a game and closes its channel.
func (h *Hub) Unsubscribe(gameID uint, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.games[gameID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client)
			if len(clients) == 0 {
				delete(h.games, gameID)
			}
		}
	}
}

// Subscribers returns how many clients are watching a game.
func (h *Hub) Subscribers(gameID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.games[gameID])
}

// Broadcast sends an event to all clients of a game.
func (h *Hub) Broadcast(gameID uint, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.games[gameID]
	if !ok {
		return
	}
	messageBytes, err := json.Marshal(event)
	if err != nil {
		log.Printf("hub: marshal %s event for game %d: %v", event.Type, gameID, err)
		return
	}

	for client := range clients {
		// Non-blocking: a slow client misses events rather than stalling the others.
		select {
		case client <- messageBytes:
		default:
		}
	}
}
