// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every setting the server reads at startup.
type Config struct {
	Port   int    `env:"PORT" envDefault:"8080"`
	DBPath string `env:"DB_PATH" envDefault:"./data/chitfund.db"`

	JWTSecret string        `env:"JWT_SECRET,required,notEmpty"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"24h"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// SweepInterval is how often due auctions are settled. Zero disables the sweeper.
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`

	Gateway GatewayConfig `envPrefix:"GATEWAY_"`

	// Currency is used for gateway orders that do not name one.
	Currency string `env:"CURRENCY" envDefault:"INR"`

	// OTelEndpoint enables tracing when set.
	OTelEndpoint string `env:"OTEL_ENDPOINT"`

	MetricsPath   string `env:"METRICS_PATH" envDefault:"/metrics"`
	AllowedOrigin string `env:"ALLOWED_ORIGIN" envDefault:"*"`
}

// GatewayConfig addresses the payment gateway.
type GatewayConfig struct {
	URL       string `env:"URL" envDefault:"https://api.razorpay.com/v1"`
	KeyID     string `env:"KEY_ID"`
	KeySecret string `env:"KEY_SECRET"`
}

// Enabled reports whether gateway credentials were configured.
func (g GatewayConfig) Enabled() bool {
	return g.KeyID != "" && g.KeySecret != ""
}

// Load parses CHITFUND_* environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "CHITFUND_"}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.SweepInterval < 0 {
		return nil, fmt.Errorf("CHITFUND_SWEEP_INTERVAL must not be negative")
	}
	return cfg, nil
}

// SlogLevel converts LogLevel to a slog.Level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
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
