// Package config loads process configuration from the environment and the
// transform settings from maps and YAML files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// App holds the process configuration
type App struct {
	// Server
	Address            string
	MaxUploadSizeBytes int64
	RateLimitRPS       float64
	RateLimitBurst     int
	Debug              bool

	// Storage
	DatabasePath string

	// Logging
	LogLevel string

	// Feed
	FeedTimeout time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present.
func Load() (*App, error) {
	// missing .env is fine
	_ = godotenv.Load()

	cfg := &App{
		Address:      getEnv("ADDRESS", ":8080"),
		DatabasePath: getEnv("DATABASE_PATH", "pohoda.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
	}

	var err error

	cfg.FeedTimeout, err = time.ParseDuration(getEnv("FEED_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid FEED_TIMEOUT: %w", err)
	}
	if cfg.FeedTimeout <= 0 {
		return nil, fmt.Errorf("invalid FEED_TIMEOUT: must be positive")
	}

	cfg.MaxUploadSizeBytes, err = strconv.ParseInt(getEnv("MAX_UPLOAD_SIZE_BYTES", "10485760"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_SIZE_BYTES: %w", err)
	}

	cfg.RateLimitRPS, err = strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "5"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}

	cfg.RateLimitBurst, err = strconv.Atoi(getEnv("RATE_LIMIT_BURST", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	cfg.Debug, err = strconv.ParseBool(getEnv("DEBUG", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEBUG: %w", err)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
