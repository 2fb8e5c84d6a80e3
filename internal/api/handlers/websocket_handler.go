package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/skycast/skycast-be/internal/weather"
	ws "github.com/skycast/skycast-be/internal/websocket"
)

// WebSocketHandler upgrades connections for live weather updates. Clients
// subscribe to cities; the background updater pushes refreshes through
// the hub.
type WebSocketHandler struct {
	hub      *ws.Hub
	provider weather.Provider
}

// NewWebSocketHandler creates a new WebSocketHandler.
func NewWebSocketHandler(hub *ws.Hub, provider weather.Provider) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, provider: provider}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins (consider tightening this in production).
		return true
	},
}

// Serve handles the WebSocket connection request.
func (h *WebSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade websocket connection")
		return
	}

	client := ws.NewClient(h.hub, conn)
	h.hub.Register <- client

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		client.WritePump()
	}()
	go func() {
		defer wg.Done()
		client.ReadPump(h.handleIncomingWSMessage)
	}()

	// Cleanup on disconnect.
	go func() {
		wg.Wait()
		h.hub.Unregister <- client
	}()
}

// handleIncomingWSMessage processes messages received from a websocket client.
func (h *WebSocketHandler) handleIncomingWSMessage(client *ws.Client, message []byte) {
	var msg ws.Message
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Error().Err(err).Bytes("message", message).Msg("Error decoding websocket message")
		return
	}

	switch msg.Action {
	case "subscribe_city":
		city, ok := cityFromPayload(msg)
		if !ok {
			client.TrySend(ws.NewErrorMessage("Invalid or empty city in payload"))
			return
		}
		h.hub.Subscribe(client, city)
		log.Debug().Str("city", city).Msg("Client subscribed to city updates")

		// Push an initial snapshot so the client does not wait a full
		// refresh interval for its first update.
		go h.pushInitialSnapshot(client, city)

	case "unsubscribe_city":
		city, ok := cityFromPayload(msg)
		if !ok {
			client.TrySend(ws.NewErrorMessage("Invalid or empty city in payload"))
			return
		}
		h.hub.Unsubscribe(client, city)
		log.Debug().Str("city", city).Msg("Client unsubscribed from city updates")

	default:
		log.Warn().Str("action", msg.Action).Msg("Unknown websocket action received")
		client.TrySend(ws.NewErrorMessage("Unknown action: " + msg.Action))
	}
}

// pushInitialSnapshot fetches the city once and sends it to one client.
// Live pushes never record search history. The client may have
// disconnected while the fetch was in flight, so delivery goes through
// TrySend.
func (h *WebSocketHandler) pushInitialSnapshot(client *ws.Client, city string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	snapshot, err := h.provider.Current(ctx, weather.Query{City: city})
	if err != nil {
		log.Warn().Err(err).Str("city", city).Msg("Initial snapshot fetch failed")
		client.TrySend(ws.NewErrorMessage("Could not fetch weather for " + city))
		return
	}

	client.TrySend(ws.NewWeatherUpdateMessage(city, snapshot.Payload))
}

func cityFromPayload(msg ws.Message) (string, bool) {
	payload, ok := msg.Payload.(map[string]interface{})
	if !ok {
		return "", false
	}
	city, ok := payload["city"].(string)
	if !ok || city == "" {
		return "", false
	}
	return city, true
}
