package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/skycast/skycast-be/internal/apperr"
)

// OpenWeather calls the OpenWeatherMap API. Every request runs under a
// bounded context deadline so a stalled upstream cannot hold a request
// open indefinitely.
type OpenWeather struct {
	apiKey     string
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// NewOpenWeather creates a client for the OpenWeatherMap API.
func NewOpenWeather(apiKey string, timeout time.Duration) *OpenWeather {
	return &OpenWeather{
		apiKey:     apiKey,
		baseURL:    "https://api.openweathermap.org/data/2.5",
		timeout:    timeout,
		httpClient: &http.Client{},
	}
}

// Current fetches the current weather for a city or coordinate pair.
func (c *OpenWeather) Current(ctx context.Context, q Query) (*Snapshot, error) {
	params := url.Values{}
	if q.City != "" {
		params.Set("q", q.City)
	} else {
		params.Set("lat", formatCoord(*q.Lat))
		params.Set("lon", formatCoord(*q.Lon))
	}
	params.Set("units", "metric")

	body, err := c.get(ctx, "/weather", params)
	if err != nil {
		return nil, err
	}

	// The provider resolves the query to a canonical place name; history
	// records use it rather than whatever the client typed.
	var resolved struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body, &resolved); err != nil {
		return nil, fmt.Errorf("decoding weather response: %w", err)
	}
	name := resolved.Name
	if name == "" {
		name = q.City
	}

	return &Snapshot{Name: name, Payload: body}, nil
}

// Forecast fetches the 5-day/3-hour forecast for a coordinate pair.
func (c *OpenWeather) Forecast(ctx context.Context, lat, lon float64) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("lat", formatCoord(lat))
	params.Set("lon", formatCoord(lon))
	params.Set("units", "metric")
	return c.get(ctx, "/forecast", params)
}

// AirQuality fetches the air pollution index for a coordinate pair.
func (c *OpenWeather) AirQuality(ctx context.Context, lat, lon float64) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("lat", formatCoord(lat))
	params.Set("lon", formatCoord(lon))
	return c.get(ctx, "/air_pollution", params)
}

// get performs one bounded API call and normalizes failures into the
// service error taxonomy.
func (c *OpenWeather) get(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params.Set("appid", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("weather provider %s: %w", path, apperr.ErrTimeout)
		}
		return nil, fmt.Errorf("weather provider %s: %v: %w", path, err, apperr.ErrUpstream)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("weather provider %s: %w", path, apperr.ErrTimeout)
		}
		return nil, fmt.Errorf("reading weather response: %w", apperr.ErrUpstream)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("location not found: %w", apperr.ErrNotFound)
	default:
		return nil, fmt.Errorf("weather provider %s returned %d: %w", path, resp.StatusCode, apperr.ErrUpstream)
	}
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
