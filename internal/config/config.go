package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the task service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	DefaultPageLimit int
	MaxPageLimit     int
	EventBuffer      int
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "taskvault"),
		AllowAnyOrigin:   false,
		ShutdownTimeout:  15 * time.Second,
		DefaultPageLimit: 20,
		MaxPageLimit:     100,
		EventBuffer:      256,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.DefaultPageLimit, err = intFromEnv("APP_DEFAULT_PAGE_LIMIT", cfg.DefaultPageLimit)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxPageLimit, err = intFromEnv("APP_MAX_PAGE_LIMIT", cfg.MaxPageLimit)
	if err != nil {
		return Config{}, err
	}
	cfg.EventBuffer, err = intFromEnv("APP_EVENT_BUFFER", cfg.EventBuffer)
	if err != nil {
		return Config{}, err
	}

	if cfg.MaxPageLimit < 1 || cfg.MaxPageLimit > 100 {
		return Config{}, fmt.Errorf("APP_MAX_PAGE_LIMIT must be between 1 and 100")
	}
	if cfg.DefaultPageLimit < 1 || cfg.DefaultPageLimit > cfg.MaxPageLimit {
		return Config{}, fmt.Errorf("APP_DEFAULT_PAGE_LIMIT must be between 1 and APP_MAX_PAGE_LIMIT")
	}
	if cfg.EventBuffer < 1 {
		return Config{}, fmt.Errorf("APP_EVENT_BUFFER must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
