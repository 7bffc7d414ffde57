// Package config loads the service settings from the environment. A .env
// file in the working directory is read first when present; variables
// already set in the environment win.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the service settings.
type Config struct {
	Port              string
	DatabaseURL       string // empty: in-memory store
	RedisURL          string // empty: no cache
	CacheTTL          time.Duration
	DefaultGSTPercent float64
	LogLevel          slog.Level
	ShutdownTimeout   time.Duration
	SeedDemoData      bool
}

// Load reads the configuration. Unparseable values are reported rather
// than silently replaced by defaults.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (Config, error) {
	cfg := Config{
		Port:        get("PORT", "8080"),
		DatabaseURL: get("DATABASE_URL", ""),
		RedisURL:    get("REDIS_URL", ""),
	}

	var err error
	if cfg.CacheTTL, err = duration("CACHE_TTL", 30*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownTimeout, err = duration("SHUTDOWN_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}

	gst := get("DEFAULT_GST_PERCENT", "18")
	cfg.DefaultGSTPercent, err = strconv.ParseFloat(gst, 64)
	if err != nil || cfg.DefaultGSTPercent < 0 {
		return Config{}, fmt.Errorf("config: DEFAULT_GST_PERCENT must be a non-negative number, got %q", gst)
	}

	level := get("LOG_LEVEL", "info")
	if err := cfg.LogLevel.UnmarshalText([]byte(level)); err != nil {
		return Config{}, fmt.Errorf("config: LOG_LEVEL %q: %w", level, err)
	}

	seed := get("SEED_DEMO_DATA", "")
	if seed == "" {
		cfg.SeedDemoData = cfg.DatabaseURL == ""
	} else if cfg.SeedDemoData, err = strconv.ParseBool(seed); err != nil {
		return Config{}, fmt.Errorf("config: SEED_DEMO_DATA %q: %w", seed, err)
	}

	return cfg, nil
}

func get(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func duration(key string, def time.Duration) (time.Duration, error) {
	v := get(key, "")
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("config: %s must be a non-negative duration, got %q", key, v)
	}
	return d, nil
}
