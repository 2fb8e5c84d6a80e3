package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/skycast/skycast-be/internal/api"
	"github.com/skycast/skycast-be/internal/api/handlers"
	"github.com/skycast/skycast-be/internal/auth"
	"github.com/skycast/skycast-be/internal/config"
	"github.com/skycast/skycast-be/internal/database"
	"github.com/skycast/skycast-be/internal/logger"
	"github.com/skycast/skycast-be/internal/monitoring"
	"github.com/skycast/skycast-be/internal/services"
	"github.com/skycast/skycast-be/internal/weather"
	"github.com/skycast/skycast-be/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Environment)

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Select the weather provider once at startup. Nothing downstream
	// knows whether it is talking to OpenWeatherMap or the mock.
	var provider weather.Provider
	if cfg.MockWeather() {
		log.Warn().Msg("OPENWEATHER_API_KEY not configured, serving mock weather data")
		provider = weather.NewMock()
	} else {
		provider = weather.NewOpenWeather(cfg.OpenWeatherAPIKey, cfg.WeatherTimeout)
	}

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// Set up services
	tokens := auth.NewService(cfg.JWTSecret)
	userService := services.NewUserService(db)
	historyService := services.NewHistoryService(db)
	weatherService := services.NewWeatherService(provider, historyService)

	// Set up and run the background live weather updater
	updater := monitoring.NewWeatherUpdater(hub, provider, cfg.LiveUpdateInterval)
	go updater.Run()

	// Set up and run the history pruner, if retention is configured
	var pruner *monitoring.HistoryPruner
	if cfg.HistoryRetentionDays > 0 {
		pruner, err = monitoring.NewHistoryPruner(historyService, cfg.HistoryPruneSchedule, cfg.HistoryRetentionDays)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to set up history pruner")
		}
		go pruner.Run()
	}

	// Set up router
	router := api.NewRouter(
		tokens,
		handlers.NewUserHandler(userService, tokens),
		handlers.NewWeatherHandler(weatherService, historyService),
		handlers.NewHealthHandler(db),
		handlers.NewWebSocketHandler(hub, provider),
	)

	// Set up server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Msg("Server starting")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe()")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	// Tell connected websocket clients the service is going away before
	// their connections drop.
	hub.Broadcast <- websocket.NewNoticeMessage("Server shutting down")

	updater.Stop()
	if pruner != nil {
		pruner.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
