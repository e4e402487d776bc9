// Package config holds environment-driven application configuration.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	// Server
	Port string `envconfig:"PORT" default:"8080"`

	// Persistence
	DatabasePath string `envconfig:"DATABASE_PATH" default:"chat.db"`

	// Security
	SecretKey      string        `envconfig:"SECRET_KEY" default:"change-me"`
	AccessTokenTTL time.Duration `envconfig:"ACCESS_TOKEN_TTL" default:"30m"`
	AllowedOrigins []string      `envconfig:"ALLOWED_ORIGINS" default:"*"`

	// Rate limiting (requests per second / burst)
	RateLimitAPI      float64 `envconfig:"RATE_LIMIT_API" default:"10"`
	RateLimitAPIBurst int     `envconfig:"RATE_LIMIT_API_BURST" default:"20"`
	RateLimitWS       float64 `envconfig:"RATE_LIMIT_WS" default:"5"`
	RateLimitWSBurst  int     `envconfig:"RATE_LIMIT_WS_BURST" default:"10"`

	// Logging
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// WebSocket
	MaxMessageSize int64 `envconfig:"MAX_MESSAGE_SIZE" default:"4096"`
}

// Load reads configuration from the environment, applying defaults for
// anything unset.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env config: %w", err)
	}
	return &cfg, nil
}

// SlogLevel maps the configured log level onto slog.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
