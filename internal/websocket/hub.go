package websocket

import (
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Inbound messages for global broadcast.
	Broadcast chan []byte

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	// A map of city names to the set of clients subscribed to them.
	// Guarded by mu; the background updater reads it from its own
	// goroutine.
	mu            sync.Mutex
	subscriptions map[string]map[*Client]bool
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		Broadcast:     make(chan []byte),
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
	}
}

// Run starts the Hub's message processing loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.clients[client] = true
			log.Info().Int("total_clients", len(h.clients)).Msg("Client connected")
		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
				h.removeSubscriptions(client)
				log.Info().Int("total_clients", len(h.clients)).Msg("Client disconnected")
			}
		case message := <-h.Broadcast:
			for client := range h.clients {
				if !client.TrySend(message) {
					client.Close()
					delete(h.clients, client)
					h.removeSubscriptions(client)
				}
			}
		}
	}
}

// Subscribe adds a client to a city's subscriber set. City names are
// matched case-insensitively.
func (h *Hub) Subscribe(client *Client, city string) {
	key := cityKey(city)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subscriptions[key] == nil {
		h.subscriptions[key] = make(map[*Client]bool)
	}
	h.subscriptions[key][client] = true
}

// Unsubscribe removes a client from a city's subscriber set.
func (h *Hub) Unsubscribe(client *Client, city string) {
	key := cityKey(city)
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.subscriptions[key]; ok {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.subscriptions, key)
		}
	}
}

// Cities lists every city with at least one subscriber.
func (h *Hub) Cities() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	cities := make([]string, 0, len(h.subscriptions))
	for city := range h.subscriptions {
		cities = append(cities, city)
	}
	return cities
}

// BroadcastTo sends a message to all clients subscribed to a city.
func (h *Hub) BroadcastTo(city string, message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.subscriptions[cityKey(city)] {
		// Slow or departing clients just miss the update.
		client.TrySend(message)
	}
}

func (h *Hub) removeSubscriptions(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for city, subs := range h.subscriptions {
		if _, ok := subs[client]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.subscriptions, city)
			}
		}
	}
}

func cityKey(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}
