package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/skycast/skycast-be/internal/apperr"
	"github.com/skycast/skycast-be/internal/auth"
	"github.com/skycast/skycast-be/internal/services"
)

// UserHandler handles HTTP requests for registration, login and profiles.
type UserHandler struct {
	service services.UserServiceProvider
	tokens  *auth.Service
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service services.UserServiceProvider, tokens *auth.Service) *UserHandler {
	return &UserHandler{service: service, tokens: tokens}
}

// RegisterPayload defines the structure for registration requests.
type RegisterPayload struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthPayload defines the structure for login requests.
type AuthPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles new user registration.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if payload.Username == "" || payload.Email == "" || payload.Password == "" {
		writeMessage(w, http.StatusBadRequest, "All fields are required")
		return
	}
	if len(payload.Password) < 6 {
		writeMessage(w, http.StatusBadRequest, "Password must be at least 6 characters long")
		return
	}

	err := h.service.Register(r.Context(), payload.Username, payload.Email, payload.Password)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, map[string]string{"message": "User registered successfully"})
	case errors.Is(err, apperr.ErrDuplicate):
		writeMessage(w, http.StatusBadRequest, "User with this email already exists")
	case errors.Is(err, apperr.ErrValidation):
		writeMessage(w, http.StatusBadRequest, "Please provide a valid email address")
	default:
		log.Error().Err(err).Str("email", payload.Email).Msg("Failed to register user")
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}

// Login handles user authentication and token issuance.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload AuthPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if payload.Email == "" || payload.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := h.service.Authenticate(r.Context(), payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidCredentials) {
			// One message for unknown email and wrong password alike.
			log.Warn().Str("email", payload.Email).Msg("Failed authentication attempt")
			writeMessage(w, http.StatusBadRequest, "Invalid credentials")
			return
		}
		log.Error().Err(err).Str("email", payload.Email).Msg("Login failed")
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to generate token")
		writeMessage(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user": map[string]string{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
		},
	})
}

// GetProfile returns the authenticated user's record, minus the password.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve user claims from context")
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	user, err := h.service.GetProfile(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "User not found")
			return
		}
		log.Error().Err(err).Str("user_id", claims.UserID).Msg("Failed to load profile")
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// UpdateProfile applies a partial profile update. Fields absent from the
// payload, or sent as empty strings, are left untouched.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve user claims from context")
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	var payload services.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), claims.UserID, payload)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, user)
	case errors.Is(err, apperr.ErrValidation):
		writeMessage(w, http.StatusBadRequest, "Please provide a valid email address")
	case errors.Is(err, apperr.ErrDuplicate):
		writeMessage(w, http.StatusBadRequest, "Email already exists")
	case errors.Is(err, apperr.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "User not found")
	default:
		log.Error().Err(err).Str("user_id", claims.UserID).Msg("Failed to update profile")
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}
