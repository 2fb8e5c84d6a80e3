package api_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/skycast/skycast-be/internal/api"
	"github.com/skycast/skycast-be/internal/api/handlers"
	"github.com/skycast/skycast-be/internal/apperr"
	"github.com/skycast/skycast-be/internal/auth"
	"github.com/skycast/skycast-be/internal/database"
	"github.com/skycast/skycast-be/internal/services"
	"github.com/skycast/skycast-be/internal/weather"
	"github.com/skycast/skycast-be/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	t       *testing.T
	srv     *httptest.Server
	db      *sql.DB
	history *services.HistoryService
}

// timeoutProvider simulates an upstream that never answers in time.
type timeoutProvider struct{}

func (timeoutProvider) Current(context.Context, weather.Query) (*weather.Snapshot, error) {
	return nil, fmt.Errorf("weather provider: %w", apperr.ErrTimeout)
}

func (timeoutProvider) Forecast(context.Context, float64, float64) (json.RawMessage, error) {
	return nil, fmt.Errorf("weather provider: %w", apperr.ErrTimeout)
}

func (timeoutProvider) AirQuality(context.Context, float64, float64) (json.RawMessage, error) {
	return nil, fmt.Errorf("weather provider: %w", apperr.ErrTimeout)
}

func newTestServer(t *testing.T, provider weather.Provider) *testServer {
	t.Helper()

	db, err := database.New("file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	db.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	tokens := auth.NewService("test-secret")
	userService := services.NewUserService(db)
	historyService := services.NewHistoryService(db)
	weatherService := services.NewWeatherService(provider, historyService)

	hub := websocket.NewHub()
	go hub.Run()

	router := api.NewRouter(
		tokens,
		handlers.NewUserHandler(userService, tokens),
		handlers.NewWeatherHandler(weatherService, historyService),
		handlers.NewHealthHandler(db),
		handlers.NewWebSocketHandler(hub, provider),
	)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testServer{t: t, srv: srv, db: db, history: historyService}
}

func (ts *testServer) request(method, path, token string, body interface{}) *http.Response {
	ts.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, ts.srv.URL+path, &buf)
	require.NoError(ts.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.srv.Client().Do(req)
	require.NoError(ts.t, err)
	ts.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func (ts *testServer) registerAndLogin(email string) (token, userID string) {
	ts.t.Helper()

	resp := ts.request(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "tester",
		"email":    email,
		"password": "secret123",
	})
	require.Equal(ts.t, http.StatusCreated, resp.StatusCode)

	resp = ts.request(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    email,
		"password": "secret123",
	})
	require.Equal(ts.t, http.StatusOK, resp.StatusCode)

	var body struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	decodeBody(ts.t, resp, &body)
	require.NotEmpty(ts.t, body.Token)
	return body.Token, body.User.ID
}

func TestRegisterAndLoginFlow(t *testing.T) {
	ts := newTestServer(t, weather.NewMock())

	resp := ts.request(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "secret123",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var created map[string]string
	decodeBody(t, resp, &created)
	assert.Equal(t, "User registered successfully", created["message"])

	// Second registration with the same email fails.
	resp = ts.request(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice2",
		"email":    "alice@example.com",
		"password": "secret123",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var dup map[string]string
	decodeBody(t, resp, &dup)
	assert.Equal(t, "User with this email already exists", dup["message"])

	resp = ts.request(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "bob",
		"email":    "bob@example.com",
		"password": "123",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// Wrong password and unknown user must produce identical responses.
func TestLogin_NoCredentialLeak(t *testing.T) {
	ts := newTestServer(t, weather.NewMock())
	ts.registerAndLogin("alice@example.com")

	wrongPassword := ts.request(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "wrong",
	})
	unknownUser := ts.request(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "nobody@example.com",
		"password": "secret123",
	})

	assert.Equal(t, http.StatusBadRequest, wrongPassword.StatusCode)
	assert.Equal(t, wrongPassword.StatusCode, unknownUser.StatusCode)

	var a, b map[string]string
	decodeBody(t, wrongPassword, &a)
	decodeBody(t, unknownUser, &b)
	assert.Equal(t, a, b)
	assert.Equal(t, "Invalid credentials", a["message"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t, weather.NewMock())

	resp := ts.request(http.MethodGet, "/api/user/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = ts.request(http.MethodGet, "/api/user/profile", "garbage-token", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestProfileUpdateQuirk(t *testing.T) {
	ts := newTestServer(t, weather.NewMock())
	token, _ := ts.registerAndLogin("alice@example.com")

	resp := ts.request(http.MethodPut, "/api/user/profile", token, map[string]string{
		"bio":      "cloud watcher",
		"location": "Lisbon",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Empty string leaves the field unchanged.
	resp = ts.request(http.MethodPut, "/api/user/profile", token, map[string]string{
		"bio": "",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.request(http.MethodGet, "/api/user/profile", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var profile struct {
		Bio      string `json:"bio"`
		Location string `json:"location"`
		Password string `json:"password"`
	}
	decodeBody(t, resp, &profile)
	assert.Equal(t, "cloud watcher", profile.Bio)
	assert.Equal(t, "Lisbon", profile.Location)
	assert.Empty(t, profile.Password)
}

func TestWeatherCurrent_CityRecordsHistory(t *testing.T) {
	ts := newTestServer(t, weather.NewMock())
	token, userID := ts.registerAndLogin("alice@example.com")

	first := ts.request(http.MethodPost, "/api/weather/current", token, map[string]string{"city": "Paris"})
	require.Equal(t, http.StatusOK, first.StatusCode)

	// Wait for the first append to land before searching again, so the
	// second record is unambiguously the newer one.
	require.Eventually(t, func() bool {
		entries, err := ts.history.Recent(context.Background(), userID, 10)
		return err == nil && len(entries) == 1
	}, 2*time.Second, 10*time.Millisecond)

	second := ts.request(http.MethodPost, "/api/weather/current", token, map[string]string{"city": "paris"})
	require.Equal(t, http.StatusOK, second.StatusCode)

	// Mock mode is deterministic: same city, same values, any casing.
	var a, b map[string]interface{}
	decodeBody(t, first, &a)
	decodeBody(t, second, &b)
	assert.Equal(t, a["main"], b["main"])
	assert.Equal(t, a["weather"], b["weather"])

	// The fire-and-forget append lands shortly after the response.
	require.Eventually(t, func() bool {
		entries, err := ts.history.Recent(context.Background(), userID, 10)
		return err == nil && len(entries) == 2
	}, 2*time.Second, 10*time.Millisecond)

	resp := ts.request(http.MethodGet, "/api/weather/history", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var entries []struct {
		City    string          `json:"city"`
		Weather json.RawMessage `json:"weather"`
	}
	decodeBody(t, resp, &entries)
	require.Len(t, entries, 2)
	// Newest search first, recorded under the name the lookup resolved to.
	assert.Equal(t, "paris", entries[0].City)
	assert.Equal(t, "Paris", entries[1].City)
	assert.NotEmpty(t, entries[0].Weather)
}

func TestWeatherCurrent_CoordinatesSkipHistory(t *testing.T) {
	ts := newTestServer(t, weather.NewMock())
	token, userID := ts.registerAndLogin("alice@example.com")

	resp := ts.request(http.MethodPost, "/api/weather/current", token, map[string]float64{
		"lat": 40.7, "lon": -74.0,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// No record may appear, even after the async window.
	time.Sleep(100 * time.Millisecond)
	entries, err := ts.history.Recent(context.Background(), userID, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWeatherCurrent_Validation(t *testing.T) {
	ts := newTestServer(t, weather.NewMock())
	token, _ := ts.registerAndLogin("alice@example.com")

	resp := ts.request(http.MethodPost, "/api/weather/current", token, map[string]float64{"lat": 40.7})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.request(http.MethodPost, "/api/weather/forecast", token, map[string]float64{"lat": 40.7})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWeatherEndpoints_UpstreamTimeout(t *testing.T) {
	ts := newTestServer(t, timeoutProvider{})
	token, _ := ts.registerAndLogin("alice@example.com")

	resp := ts.request(http.MethodPost, "/api/weather/current", token, map[string]string{"city": "Paris"})
	assert.Equal(t, http.StatusRequestTimeout, resp.StatusCode)

	resp = ts.request(http.MethodPost, "/api/weather/forecast", token, map[string]float64{"lat": 40.7, "lon": -74.0})
	assert.Equal(t, http.StatusRequestTimeout, resp.StatusCode)

	resp = ts.request(http.MethodPost, "/api/weather/air-quality", token, map[string]float64{"lat": 40.7, "lon": -74.0})
	assert.Equal(t, http.StatusRequestTimeout, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, weather.NewMock())

	resp := ts.request(http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status           string  `json:"status"`
		Time             string  `json:"time"`
		StorageConnected bool    `json:"storageConnected"`
		Uptime           float64 `json:"uptime"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, "OK", body.Status)
	assert.NotEmpty(t, body.Time)
	assert.True(t, body.StorageConnected)
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t, weather.NewMock())

	resp := ts.request(http.MethodGet, "/api/no-such-thing", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Equal(t, "Route not found", body["message"])
}
