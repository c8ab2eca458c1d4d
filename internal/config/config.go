package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/vytor/snapword/internal/logger"
)

type Config struct {
	Addr              string
	DBPath            string
	LogLevel          string
	Timezone          string
	ImportWorkerCount int
	ImportQueueSize   int
	MaxImportBytes    int64
	ReminderTime      string
	SessionTTL        time.Duration
}

// Load reads configuration from a .env file (if present) and environment variables,
// applying sensible defaults when values are missing or invalid.
func Load() Config {
	// Ignore error so the app still starts when .env is absent in production.
	_ = godotenv.Load()

	return Config{
		Addr:              envOr("ADDR", ":8080"),
		DBPath:            envOr("DB_PATH", "file:snapword.db"),
		LogLevel:          strings.ToUpper(envOr("LOG_LEVEL", "INFO")),
		Timezone:          envOr("TIMEZONE", "Local"),
		ImportWorkerCount: envIntOr("IMPORT_WORKER_COUNT", 1),
		ImportQueueSize:   envIntOr("IMPORT_QUEUE_SIZE", 16),
		MaxImportBytes:    int64(envIntOr("MAX_IMPORT_BYTES", 10<<20)),
		ReminderTime:      envOr("REMINDER_TIME", "08:00"),
		SessionTTL:        envDurationOr("SESSION_TTL", 2*time.Hour),
	}
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("ADDR cannot be empty"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("DB_PATH cannot be empty"))
	}
	if _, ok := logger.LookupLevel(c.LogLevel); !ok {
		errs = append(errs, fmt.Errorf("LOG_LEVEL %q must be one of DEBUG, INFO, WARN, ERROR", c.LogLevel))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE %q: %w", c.Timezone, err))
	}
	if c.ImportWorkerCount <= 0 {
		errs = append(errs, errors.New("IMPORT_WORKER_COUNT must be positive"))
	}
	if c.ImportQueueSize <= 0 {
		errs = append(errs, errors.New("IMPORT_QUEUE_SIZE must be positive"))
	}
	if c.MaxImportBytes <= 0 {
		errs = append(errs, errors.New("MAX_IMPORT_BYTES must be positive"))
	}
	if c.ReminderTime != "" {
		if _, err := time.Parse("15:04", c.ReminderTime); err != nil {
			errs = append(errs, fmt.Errorf("REMINDER_TIME %q must be HH:MM", c.ReminderTime))
		}
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	return errors.Join(errs...)
}

// Location resolves Timezone, falling back to the local zone. "Today" for
// review scheduling is computed in this location.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		log.Printf("invalid value for %s=%q, using default %d", key, v, def)
	}
	return def
}

func envDurationOr(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("invalid value for %s=%q, using default %s", key, v, def)
	}
	return def
}
