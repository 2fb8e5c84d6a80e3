// Package weather talks to the upstream weather data source. Two
// implementations exist behind the Provider interface: the real
// OpenWeatherMap client and a deterministic mock used when no API key is
// configured. Both return the same payload shape, so callers never know
// which one they are talking to.
package weather

import (
	"context"
	"encoding/json"
)

// Query identifies a place either by city name or by coordinates.
// Coordinates use pointers so that an absent value is distinguishable
// from zero.
type Query struct {
	City string
	Lat  *float64
	Lon  *float64
}

// Snapshot is one current-weather observation. Payload is the full
// provider response, passed through verbatim; Name is the resolved
// location name for history recording.
type Snapshot struct {
	Name    string
	Payload json.RawMessage
}

// Provider fetches weather data for a place.
type Provider interface {
	Current(ctx context.Context, q Query) (*Snapshot, error)
	Forecast(ctx context.Context, lat, lon float64) (json.RawMessage, error)
	AirQuality(ctx context.Context, lat, lon float64) (json.RawMessage, error)
}
