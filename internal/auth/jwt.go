package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/skycast/skycast-be/internal/apperr"
	"github.com/skycast/skycast-be/internal/models"
)

const tokenTTL = 24 * time.Hour

// Claims defines the JWT claims structure.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// UserClaimsKey is the context key for user claims.
type contextKey string

const UserClaimsKey = contextKey("userClaims")

// Service issues and verifies session tokens. The signing secret comes from
// configuration and is fixed for the life of the process.
type Service struct {
	secret []byte
}

// NewService creates a token service around the given signing secret.
func NewService(secret string) *Service {
	return &Service{secret: []byte(secret)}
}

// Issue creates a new JWT for a given user, valid for 24 hours.
func (s *Service) Issue(user models.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify parses and validates a JWT string. Malformed, forged and expired
// tokens all come back as apperr.ErrInvalidToken; the underlying reason is
// only for server-side logs.
func (s *Service) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, apperr.ErrInvalidToken
	}
	return claims, nil
}

// Middleware creates a middleware for protecting routes.
func (s *Service) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var tokenStr string

			// 1. Try to get the token from the Authorization header
			authHeader := r.Header.Get("Authorization")
			if authHeader != "" {
				parts := strings.Split(authHeader, "Bearer ")
				if len(parts) == 2 {
					tokenStr = parts[1]
				}
			}

			// 2. Browsers cannot set headers on websocket upgrades, so
			// only those requests may carry the token in the query
			// string. Plain REST calls stay header-only and never put
			// tokens in logged URLs.
			if tokenStr == "" && websocket.IsWebSocketUpgrade(r) {
				tokenStr = r.URL.Query().Get("token")
			}

			if tokenStr == "" {
				writeMessage(w, http.StatusUnauthorized, "Access token required")
				return
			}

			// 3. Validate the token. The caller gets the same answer no
			// matter which check failed.
			claims, err := s.Verify(tokenStr)
			if err != nil {
				log.Debug().Err(err).Msg("Token verification failed")
				writeMessage(w, http.StatusForbidden, "Invalid or expired token")
				return
			}

			// 4. Pass claims down via context
			ctx := context.WithValue(r.Context(), UserClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFrom extracts the authenticated user's claims from a request context.
func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(UserClaimsKey).(*Claims)
	return claims, ok
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": msg})
}
