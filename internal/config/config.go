package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration. It is built once in main and
// passed into the constructors that need it.
type Config struct {
	ServerPort  int
	Environment string

	DatabasePath string

	JWTSecret string

	// OpenWeatherAPIKey is optional. When empty the gateway runs in mock
	// mode and synthesizes deterministic weather data instead of calling
	// the upstream provider.
	OpenWeatherAPIKey string
	WeatherTimeout    time.Duration

	// LiveUpdateInterval controls how often subscribed cities are
	// refreshed and pushed over the websocket hub.
	LiveUpdateInterval time.Duration

	// HistoryRetentionDays of 0 keeps history forever and disables the
	// pruner. HistoryPruneSchedule is a standard cron expression.
	HistoryRetentionDays int
	HistoryPruneSchedule string
}

// Load loads configuration from environment variables or sets defaults.
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	retention, err := strconv.Atoi(getEnv("HISTORY_RETENTION_DAYS", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid HISTORY_RETENTION_DAYS: %w", err)
	}

	cfg := &Config{
		ServerPort:           port,
		Environment:          getEnv("APP_ENV", "development"),
		DatabasePath:         getEnv("DATABASE_PATH", "./skycast.db"),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		OpenWeatherAPIKey:    os.Getenv("OPENWEATHER_API_KEY"),
		WeatherTimeout:       10 * time.Second,
		LiveUpdateInterval:   10 * time.Minute,
		HistoryRetentionDays: retention,
		HistoryPruneSchedule: getEnv("HISTORY_PRUNE_SCHEDULE", "0 3 * * *"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	return cfg, nil
}

// MockWeather reports whether the gateway should run against synthesized
// data. Decided once here so handlers never branch on the provider key.
func (c *Config) MockWeather() bool {
	return c.OpenWeatherAPIKey == ""
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
