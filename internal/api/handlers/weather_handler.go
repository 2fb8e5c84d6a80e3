package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/skycast/skycast-be/internal/apperr"
	"github.com/skycast/skycast-be/internal/auth"
	"github.com/skycast/skycast-be/internal/services"
	"github.com/skycast/skycast-be/internal/weather"
)

// WeatherHandler handles weather lookups and search history.
type WeatherHandler struct {
	weather services.WeatherServiceProvider
	history services.HistoryServiceProvider
}

// NewWeatherHandler creates a new WeatherHandler.
func NewWeatherHandler(weatherSvc services.WeatherServiceProvider, historySvc services.HistoryServiceProvider) *WeatherHandler {
	return &WeatherHandler{weather: weatherSvc, history: historySvc}
}

// LookupPayload is the request body shared by the weather endpoints.
// Coordinates are pointers so a missing value is not confused with 0.
type LookupPayload struct {
	City string   `json:"city"`
	Lat  *float64 `json:"lat"`
	Lon  *float64 `json:"lon"`
}

// Current handles a current-weather lookup by city or coordinates.
func (h *WeatherHandler) Current(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve user claims from context")
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	var payload LookupPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	snapshot, err := h.weather.Current(r.Context(), claims.UserID, weather.Query{
		City: payload.City,
		Lat:  payload.Lat,
		Lon:  payload.Lon,
	})
	switch {
	case err == nil:
		writeRaw(w, http.StatusOK, snapshot)
	case errors.Is(err, apperr.ErrValidation):
		writeMessage(w, http.StatusBadRequest, "City or latitude and longitude are required")
	case errors.Is(err, apperr.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "City not found")
	case errors.Is(err, apperr.ErrTimeout):
		writeMessage(w, http.StatusRequestTimeout, "Weather service timeout")
	default:
		log.Error().Err(err).Str("city", payload.City).Msg("Weather lookup failed")
		writeMessage(w, http.StatusInternalServerError, "Error fetching weather data")
	}
}

// Forecast handles a coordinate-based forecast lookup.
func (h *WeatherHandler) Forecast(w http.ResponseWriter, r *http.Request) {
	var payload LookupPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	forecast, err := h.weather.Forecast(r.Context(), payload.Lat, payload.Lon)
	switch {
	case err == nil:
		writeRaw(w, http.StatusOK, forecast)
	case errors.Is(err, apperr.ErrValidation):
		writeMessage(w, http.StatusBadRequest, "Latitude and longitude required")
	case errors.Is(err, apperr.ErrTimeout):
		writeMessage(w, http.StatusRequestTimeout, "Weather service timeout")
	default:
		log.Error().Err(err).Msg("Forecast lookup failed")
		writeMessage(w, http.StatusInternalServerError, "Error fetching forecast")
	}
}

// AirQuality handles a coordinate-based air pollution lookup.
func (h *WeatherHandler) AirQuality(w http.ResponseWriter, r *http.Request) {
	var payload LookupPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	report, err := h.weather.AirQuality(r.Context(), payload.Lat, payload.Lon)
	switch {
	case err == nil:
		writeRaw(w, http.StatusOK, report)
	case errors.Is(err, apperr.ErrValidation):
		writeMessage(w, http.StatusBadRequest, "Latitude and longitude required")
	case errors.Is(err, apperr.ErrTimeout):
		writeMessage(w, http.StatusRequestTimeout, "Weather service timeout")
	default:
		log.Error().Err(err).Msg("Air quality lookup failed")
		writeMessage(w, http.StatusInternalServerError, "Error fetching air quality data")
	}
}

// History returns the authenticated user's recent searches, newest first.
func (h *WeatherHandler) History(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve user claims from context")
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	entries, err := h.history.Recent(r.Context(), claims.UserID, 10)
	if err != nil {
		log.Error().Err(err).Str("user_id", claims.UserID).Msg("Failed to load weather history")
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, entries)
}
