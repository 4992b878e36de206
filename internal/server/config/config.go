// Package config loads server settings from SSO_* environment variables.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every server setting. Zero values are never used directly,
// Load always applies the envDefault tags.
type Config struct {
	HTTPAddr  string `env:"SSO_HTTP_ADDR" envDefault:":8080"`
	DBDriver  string `env:"SSO_DB_DRIVER" envDefault:"sqlite"`
	DBDSN     string `env:"SSO_DB_DSN" envDefault:"authorization.db"`
	SeedFile  string `env:"SSO_SEED_FILE"`
	LogLevel  string `env:"SSO_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"SSO_LOG_FORMAT" envDefault:"json"`

	// GatewayURL enables gateway notifications when set
	GatewayURL   string `env:"SSO_GATEWAY_URL"`
	OTelEndpoint string `env:"SSO_OTEL_ENDPOINT"`

	DBTimeout       time.Duration `env:"SSO_DB_TIMEOUT" envDefault:"5s"`
	AccessTokenTTL  time.Duration `env:"SSO_ACCESS_TOKEN_TTL" envDefault:"1h"`
	RefreshTokenTTL time.Duration `env:"SSO_REFRESH_TOKEN_TTL" envDefault:"168h"`
	SweepInterval   time.Duration `env:"SSO_SWEEP_INTERVAL" envDefault:"10m"`
	ShutdownTimeout time.Duration `env:"SSO_SHUTDOWN_TIMEOUT" envDefault:"15s"`

	RateLimitRPS float64 `env:"SSO_RATE_LIMIT_RPS" envDefault:"5"`

	GatewayQueue            int `env:"SSO_GATEWAY_QUEUE" envDefault:"256"`
	RateLimitBurst          int `env:"SSO_RATE_LIMIT_BURST" envDefault:"10"`
	BusWorkers              int `env:"SSO_BUS_WORKERS" envDefault:"4"`
	InsufficientScopeStatus int `env:"SSO_INSUFFICIENT_SCOPE_STATUS" envDefault:"403"`
}

// Load parses the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("SSO_DB_DRIVER must be sqlite or postgres, got %q", c.DBDriver)
	}
	if c.DBDSN == "" {
		return fmt.Errorf("SSO_DB_DSN is required")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}
	if c.InsufficientScopeStatus != http.StatusUnauthorized && c.InsufficientScopeStatus != http.StatusForbidden {
		return fmt.Errorf("SSO_INSUFFICIENT_SCOPE_STATUS must be 401 or 403, got %d", c.InsufficientScopeStatus)
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		return fmt.Errorf("SSO_LOG_FORMAT must be json or text, got %q", c.LogFormat)
	}
	return nil
}

// ParseLevel maps a level name to slog.Level. Unknown names fall back to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "critical", "fatal":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the process logger from the log settings.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(c.LogLevel)}
	if strings.EqualFold(c.LogFormat, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
