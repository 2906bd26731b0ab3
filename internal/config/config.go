package config

import (
	"os"
	"strconv"
	"time"

	"gosplit/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Runner   RunnerConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// DatabaseConfig holds the optional archive database settings. An empty
// URL disables archiving.
type DatabaseConfig struct {
	URL string
}

// RunnerConfig holds experiment monitor defaults
type RunnerConfig struct {
	PollInterval time.Duration
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:    envOr("PORT", "8080"),
			GinMode: envOr("GIN_MODE", "release"),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Runner: RunnerConfig{
			PollInterval: 10 * time.Second,
		},
	}

	if raw := os.Getenv("RUNNER_POLL_INTERVAL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid RUNNER_POLL_INTERVAL %q", raw)
		}
		if d <= 0 {
			return nil, errors.Newf(errors.CodeInvalidConfig, "RUNNER_POLL_INTERVAL must be positive, got %s", d)
		}
		cfg.Runner.PollInterval = d
	}

	if _, err := strconv.Atoi(cfg.Server.Port); err != nil {
		return nil, errors.Newf(errors.CodeInvalidConfig, "PORT must be numeric, got %q", cfg.Server.Port)
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
