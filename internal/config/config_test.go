package config

import (
	"log/slog"
	"os"
	"testing"
	"time"
)

// unsetEnv clears every variable Load reads and restores them after the test.
func unsetEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PORT", "DATABASE_URL", "DRAWING_DIR", "HIT_TOLERANCE", "LOG_LEVEL", "MENU_TIMEOUT", "ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	unsetEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 8080 || cfg.DatabaseURL != "" || cfg.HitTolerance != 4 || cfg.MenuTimeout != 30*time.Second {
		t.Errorf("defaults = %+v", cfg)
	}
	if got := cfg.Origins(); len(got) != 2 || got[0] != "localhost:5173" {
		t.Errorf("Origins = %v", got)
	}
	if got := cfg.CORSOrigins(); len(got) != 2 || got[1] != "http://localhost:3000" {
		t.Errorf("CORSOrigins = %v", got)
	}
}

func TestLoadOverrides(t *testing.T) {
	unsetEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("DATABASE_URL", "postgres://x")
	t.Setenv("HIT_TOLERANCE", "6.5")
	t.Setenv("MENU_TIMEOUT", "5s")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9000 || cfg.DatabaseURL != "postgres://x" || cfg.HitTolerance != 6.5 || cfg.MenuTimeout != 5*time.Second {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Level() != slog.LevelDebug {
		t.Errorf("Level = %v, want debug", cfg.Level())
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	unsetEnv(t)
	t.Setenv("HIT_TOLERANCE", "0")
	if _, err := Load(); err == nil {
		t.Error("zero hit tolerance accepted")
	}
	t.Setenv("HIT_TOLERANCE", "4")
	t.Setenv("PORT", "eighty")
	if _, err := Load(); err == nil {
		t.Error("non-numeric port accepted")
	}
}

func TestLevelFallback(t *testing.T) {
	c := Config{LogLevel: "chatty"}
	if c.Level() != slog.LevelInfo {
		t.Errorf("Level = %v, want info", c.Level())
	}
}
