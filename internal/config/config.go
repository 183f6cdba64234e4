// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/matiasroldan/adambot/internal/ratelimit"
	"github.com/matiasroldan/adambot/internal/session"
	"github.com/matiasroldan/adambot/internal/worker"
)

// Mirror backends for the session store.
const (
	MirrorFile   = "file"
	MirrorSQLite = "sqlite"
)

// Config holds all application configuration.
type Config struct {
	DataDir       string
	MirrorBackend string // "file" or "sqlite"
	SQLitePath    string

	SessionTTL    time.Duration
	SweepInterval time.Duration

	RateWindow      time.Duration
	RateCeiling     int
	RateBasePenalty time.Duration
	RateMaxPenalty  time.Duration
	AdminIDs        []int64

	Workers   int
	QueueSize int

	LogLevel string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DataDir:       getEnv("DATA_DIR", "./data"),
		MirrorBackend: getEnv("MIRROR_BACKEND", MirrorFile),
		SQLitePath:    getEnv("SQLITE_PATH", "./data/sessions.db"),

		SessionTTL:    getEnvDuration("SESSION_TTL", session.DefaultTTL),
		SweepInterval: getEnvDuration("SWEEP_INTERVAL", session.DefaultSweepInterval),

		RateWindow:      getEnvDuration("RATE_WINDOW", ratelimit.DefaultWindow),
		RateCeiling:     getEnvInt("RATE_CEILING", ratelimit.DefaultCeiling),
		RateBasePenalty: getEnvDuration("RATE_BASE_PENALTY", ratelimit.DefaultBasePenalty),
		RateMaxPenalty:  getEnvDuration("RATE_MAX_PENALTY", ratelimit.DefaultMaxPenalty),
		AdminIDs:        getEnvInt64List("ADMIN_IDS"),

		Workers:   getEnvInt("WORKERS", worker.DefaultWorkers),
		QueueSize: getEnvInt("QUEUE_SIZE", worker.DefaultQueueSize),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all configuration fields are usable.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("DATA_DIR cannot be empty")
	}
	if c.MirrorBackend != MirrorFile && c.MirrorBackend != MirrorSQLite {
		return fmt.Errorf("MIRROR_BACKEND must be %q or %q, got %q", MirrorFile, MirrorSQLite, c.MirrorBackend)
	}
	if c.MirrorBackend == MirrorSQLite && c.SQLitePath == "" {
		return fmt.Errorf("SQLITE_PATH cannot be empty with the sqlite backend")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive")
	}
	if c.RateWindow <= 0 || c.RateBasePenalty <= 0 {
		return fmt.Errorf("rate limiter durations must be positive")
	}
	if c.RateCeiling <= 0 {
		return fmt.Errorf("RATE_CEILING must be > 0")
	}
	if c.RateMaxPenalty < c.RateBasePenalty {
		return fmt.Errorf("RATE_MAX_PENALTY must be >= RATE_BASE_PENALTY")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("WORKERS must be > 0")
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("QUEUE_SIZE must be > 0")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// getEnvInt64List parses a comma-separated list of integer ids, skipping
// anything unparsable.
func getEnvInt64List(key string) []int64 {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return nil
	}

	var ids []int64
	for _, part := range strings.Split(value, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
