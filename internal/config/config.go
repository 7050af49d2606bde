package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseURL   string
	HTTPAddr      string
	LogLevel      string
	Env           string // dev|prod
	SentryDSN     string
	Location      *time.Location
	StaleDraftAge time.Duration // drafts older than this are flagged by the sweep job
	SeedDemoData  bool          // dev only: seed a default scale and assessment types
}

func Load() (*Config, error) {
	tz := getenv("TZ", "Africa/Kampala")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.Local
	}

	staleAge, err := parseDuration(getenv("STALE_DRAFT_AGE", "720h"))
	if err != nil {
		return nil, fmt.Errorf("STALE_DRAFT_AGE: %w", err)
	}

	seed, err := parseBool(getenv("SEED_DEMO_DATA", "false"))
	if err != nil {
		return nil, fmt.Errorf("SEED_DEMO_DATA: %w", err)
	}

	cfg := &Config{
		DatabaseURL:   mustEnv("DATABASE_URL"),
		HTTPAddr:      getenv("HTTP_ADDR", ":8080"),
		LogLevel:      getenv("LOG_LEVEL", "info"),
		Env:           getenv("ENV", "dev"),
		SentryDSN:     os.Getenv("SENTRY_DSN"),
		Location:      loc,
		StaleDraftAge: staleAge,
		SeedDemoData:  seed,
	}
	return cfg, nil
}

func mustEnv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("required env " + k + " is empty")
	}
	return v
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func parseDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("bad duration %q: %w", s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration %q must be positive", s)
	}
	return d, nil
}

func parseBool(s string) (bool, error) {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("bad bool %q: %w", s, err)
	}
	return b, nil
}
