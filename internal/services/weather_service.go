package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/skycast/skycast-be/internal/apperr"
	"github.com/skycast/skycast-be/internal/weather"
)

// historyRecorder is the slice of the history service the gateway needs.
type historyRecorder interface {
	Record(userID, city string, snapshot json.RawMessage)
}

// WeatherServiceProvider defines the interface for the weather gateway.
type WeatherServiceProvider interface {
	Current(ctx context.Context, userID string, q weather.Query) (json.RawMessage, error)
	Forecast(ctx context.Context, lat, lon *float64) (json.RawMessage, error)
	AirQuality(ctx context.Context, lat, lon *float64) (json.RawMessage, error)
}

// WeatherService validates lookups, forwards them to the configured
// provider and records city-based searches against the requesting user.
// Whether the provider is real or synthesized was decided at startup; the
// gateway does not know and does not care.
type WeatherService struct {
	provider weather.Provider
	history  historyRecorder
}

// NewWeatherService creates a new WeatherService.
func NewWeatherService(provider weather.Provider, history historyRecorder) *WeatherService {
	return &WeatherService{provider: provider, history: history}
}

// Current resolves a city or coordinate lookup. A successful city-based
// lookup is appended to the user's history; the append is fire-and-forget
// and cannot change this response. Coordinate-only lookups are never
// recorded.
func (s *WeatherService) Current(ctx context.Context, userID string, q weather.Query) (json.RawMessage, error) {
	if q.City == "" && (q.Lat == nil || q.Lon == nil) {
		return nil, fmt.Errorf("city or latitude and longitude are required: %w", apperr.ErrValidation)
	}

	snapshot, err := s.provider.Current(ctx, q)
	if err != nil {
		return nil, err
	}

	if q.City != "" && userID != "" {
		s.history.Record(userID, snapshot.Name, snapshot.Payload)
	}

	return snapshot.Payload, nil
}

// Forecast resolves a coordinate-based forecast lookup.
func (s *WeatherService) Forecast(ctx context.Context, lat, lon *float64) (json.RawMessage, error) {
	if lat == nil || lon == nil {
		return nil, fmt.Errorf("latitude and longitude are required: %w", apperr.ErrValidation)
	}
	return s.provider.Forecast(ctx, *lat, *lon)
}

// AirQuality resolves a coordinate-based air pollution lookup.
func (s *WeatherService) AirQuality(ctx context.Context, lat, lon *float64) (json.RawMessage, error) {
	if lat == nil || lon == nil {
		return nil, fmt.Errorf("latitude and longitude are required: %w", apperr.ErrValidation)
	}
	return s.provider.AirQuality(ctx, *lat, *lon)
}
