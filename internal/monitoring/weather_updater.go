package monitoring

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/skycast/skycast-be/internal/weather"
	"github.com/skycast/skycast-be/internal/websocket"
)

// cityBroadcaster is the slice of the websocket hub the updater needs.
type cityBroadcaster interface {
	Cities() []string
	BroadcastTo(city string, message []byte)
}

// WeatherUpdater periodically re-fetches every city with live subscribers
// and pushes the fresh snapshot over the hub. Background refreshes go
// straight to the provider, so they never touch anyone's search history.
type WeatherUpdater struct {
	hub      cityBroadcaster
	provider weather.Provider
	interval time.Duration
	ticker   *time.Ticker
	done     chan bool
}

// NewWeatherUpdater creates a new WeatherUpdater.
func NewWeatherUpdater(hub cityBroadcaster, provider weather.Provider, interval time.Duration) *WeatherUpdater {
	return &WeatherUpdater{
		hub:      hub,
		provider: provider,
		interval: interval,
		done:     make(chan bool),
	}
}

// Run starts the periodic updates.
func (wu *WeatherUpdater) Run() {
	log.Info().Dur("interval", wu.interval).Msg("Starting live weather updater...")
	wu.ticker = time.NewTicker(wu.interval)
	defer wu.ticker.Stop()

	for {
		select {
		case <-wu.done:
			log.Info().Msg("Stopping live weather updater.")
			return
		case <-wu.ticker.C:
			wu.refreshAll()
		}
	}
}

// Stop halts the periodic updates.
func (wu *WeatherUpdater) Stop() {
	wu.done <- true
}

// refreshAll fetches a fresh snapshot for every subscribed city and
// broadcasts it. One city failing must not starve the others.
func (wu *WeatherUpdater) refreshAll() {
	for _, city := range wu.hub.Cities() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		snapshot, err := wu.provider.Current(ctx, weather.Query{City: city})
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("city", city).Msg("Live weather refresh failed")
			continue
		}
		wu.hub.BroadcastTo(city, websocket.NewWeatherUpdateMessage(city, snapshot.Payload))
	}
}
