package handlers

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/skycast/skycast-be/internal/weather"
	ws "github.com/skycast/skycast-be/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type slowProvider struct {
	delay time.Duration
}

func (p slowProvider) Current(ctx context.Context, q weather.Query) (*weather.Snapshot, error) {
	select {
	case <-time.After(p.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &weather.Snapshot{Name: q.City, Payload: json.RawMessage(`{"name":"` + q.City + `"}`)}, nil
}

func (p slowProvider) Forecast(context.Context, float64, float64) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

func (p slowProvider) AirQuality(context.Context, float64, float64) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

// A client that disconnects while its initial snapshot fetch is still in
// flight must not take the process down when the fetch completes.
func TestWebSocketHandler_SnapshotAfterDisconnect(t *testing.T) {
	hub := ws.NewHub()
	go hub.Run()

	h := NewWebSocketHandler(hub, slowProvider{delay: 20 * time.Millisecond})
	client := ws.NewClient(hub, nil)

	hub.Register <- client
	hub.Unregister <- client

	// Wait until the hub has processed the unregister and closed the
	// client's outbound channel.
	require.Eventually(t, func() bool {
		return !client.TrySend([]byte("ping"))
	}, time.Second, 5*time.Millisecond)

	assert.NotPanics(t, func() { h.pushInitialSnapshot(client, "Paris") })
}

func TestWebSocketHandler_SnapshotDeliveredWhileConnected(t *testing.T) {
	hub := ws.NewHub()
	h := NewWebSocketHandler(hub, slowProvider{})
	client := ws.NewClient(hub, nil)

	h.pushInitialSnapshot(client, "Paris")

	require.Len(t, client.Send, 1)
	var msg ws.Message
	require.NoError(t, json.Unmarshal(<-client.Send, &msg))
	assert.Equal(t, "weather_update", msg.Action)
}
