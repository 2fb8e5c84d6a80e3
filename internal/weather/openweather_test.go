package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/skycast/skycast-be/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *OpenWeather {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewOpenWeather("test-key", 200*time.Millisecond)
	client.baseURL = srv.URL
	return client
}

func TestOpenWeather_CurrentByCity(t *testing.T) {
	var gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		assert.Equal(t, "/weather", r.URL.Path)
		w.Write([]byte(`{"name":"Paris","main":{"temp":18.5}}`))
	})

	snapshot, err := client.Current(context.Background(), Query{City: "paris"})
	require.NoError(t, err)

	// The resolved name from the provider wins over the raw input.
	assert.Equal(t, "Paris", snapshot.Name)
	assert.JSONEq(t, `{"name":"Paris","main":{"temp":18.5}}`, string(snapshot.Payload))
	assert.Contains(t, gotQuery, "q=paris")
	assert.Contains(t, gotQuery, "appid=test-key")
	assert.Contains(t, gotQuery, "units=metric")
}

func TestOpenWeather_CurrentByCoords(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "48.85", r.URL.Query().Get("lat"))
		assert.Equal(t, "2.35", r.URL.Query().Get("lon"))
		w.Write([]byte(`{"name":"Paris"}`))
	})

	lat, lon := 48.85, 2.35
	snapshot, err := client.Current(context.Background(), Query{Lat: &lat, Lon: &lon})
	require.NoError(t, err)
	assert.Equal(t, "Paris", snapshot.Name)
}

func TestOpenWeather_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"cod":"404","message":"city not found"}`))
	})

	_, err := client.Current(context.Background(), Query{City: "Atlantis"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestOpenWeather_UpstreamError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Current(context.Background(), Query{City: "Paris"})
	assert.ErrorIs(t, err, apperr.ErrUpstream)
}

func TestOpenWeather_Timeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Write([]byte(`{}`))
	})

	_, err := client.Current(context.Background(), Query{City: "Paris"})
	assert.ErrorIs(t, err, apperr.ErrTimeout)

	_, err = client.Forecast(context.Background(), 48.85, 2.35)
	assert.ErrorIs(t, err, apperr.ErrTimeout)
}

func TestOpenWeather_ForecastAndAirQualityPaths(t *testing.T) {
	var paths []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/air_pollution" {
			assert.Empty(t, r.URL.Query().Get("units"))
		}
		w.Write([]byte(`{"list":[]}`))
	})

	_, err := client.Forecast(context.Background(), 48.85, 2.35)
	require.NoError(t, err)
	_, err = client.AirQuality(context.Background(), 48.85, 2.35)
	require.NoError(t, err)

	assert.Equal(t, []string{"/forecast", "/air_pollution"}, paths)
}
