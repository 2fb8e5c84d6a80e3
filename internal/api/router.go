package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/skycast/skycast-be/internal/api/handlers"
	"github.com/skycast/skycast-be/internal/auth"
)

// NewRouter creates and configures a new Chi router.
func NewRouter(
	tokens *auth.Service,
	userHandler *handlers.UserHandler,
	weatherHandler *handlers.WeatherHandler,
	healthHandler *handlers.HealthHandler,
	wsHandler *handlers.WebSocketHandler,
) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration for development
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"}, // Adjust for your frontend URL
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.Health)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", userHandler.Register)
			r.Post("/login", userHandler.Login)
		})

		// Everything below requires a valid bearer token.
		r.Group(func(r chi.Router) {
			r.Use(tokens.Middleware())

			r.Route("/user", func(r chi.Router) {
				r.Get("/profile", userHandler.GetProfile)
				r.Put("/profile", userHandler.UpdateProfile)
			})

			r.Route("/weather", func(r chi.Router) {
				r.Post("/current", weatherHandler.Current)
				r.Post("/forecast", weatherHandler.Forecast)
				r.Post("/air-quality", weatherHandler.AirQuality)
				r.Get("/history", weatherHandler.History)
			})

			// Live weather updates
			r.Get("/ws", wsHandler.Serve)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Route not found"}`))
	})

	return r
}
