package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port int `envconfig:"PORT" default:"8080"`
	// DatabaseURL selects the Postgres store. When empty, drawings are kept
	// as JSON files under DrawingDir.
	DatabaseURL    string        `envconfig:"DATABASE_URL"`
	DrawingDir     string        `envconfig:"DRAWING_DIR" default:"./data/drawings"`
	AllowedOrigins string        `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
	HitTolerance   float64       `envconfig:"HIT_TOLERANCE" default:"4"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
	MenuTimeout    time.Duration `envconfig:"MENU_TIMEOUT" default:"30s"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.HitTolerance <= 0 {
		return nil, fmt.Errorf("HIT_TOLERANCE must be positive, got %v", cfg.HitTolerance)
	}
	if cfg.MenuTimeout <= 0 {
		return nil, fmt.Errorf("MENU_TIMEOUT must be positive, got %v", cfg.MenuTimeout)
	}
	return &cfg, nil
}

// CORSOrigins splits AllowedOrigins into full origins.
func (c *Config) CORSOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Origins returns AllowedOrigins as host patterns for websocket.Accept,
// dropping the scheme.
func (c *Config) Origins() []string {
	out := c.CORSOrigins()
	for i, o := range out {
		if _, host, ok := strings.Cut(o, "://"); ok {
			out[i] = host
		}
	}
	return out
}

// Level maps LogLevel to a slog level. Unknown names fall back to info.
func (c *Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}
