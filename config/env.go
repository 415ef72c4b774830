package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultPort               = "8080"
	defaultLogLevel           = "info"
	defaultSessionTTL         = 30 * 24 * time.Hour
	defaultUpstreamTimeout    = 15 * time.Second
	defaultRevalidateSchedule = "@every 15m"
)

// Config is everything the server reads from the environment.
type Config struct {
	BackendURL         string
	Port               string
	LogLevel           string
	DatabaseURL        string
	RedisURL           string
	EncryptionKey      string
	SessionTTL         time.Duration
	UpstreamTimeout    time.Duration
	RevalidateSchedule string
	NgrokEnabled       bool
}

// LoadEnv reads a local .env file unless running on Railway.
func LoadEnv() error {
	if os.Getenv("RAILWAY_ENVIRONMENT") != "" {
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("LoadEnv: %w", err)
	}
	return nil
}

// FromEnv builds a Config from the process environment.
func FromEnv() (*Config, error) {
	cfg := &Config{
		BackendURL:         strings.TrimRight(strings.TrimSpace(os.Getenv("BACKEND_URL")), "/"),
		Port:               getOr("PORT", defaultPort),
		LogLevel:           getOr("LOG_LEVEL", defaultLogLevel),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           strings.TrimSpace(os.Getenv("REDIS_URL")),
		EncryptionKey:      os.Getenv("ENCRYPTION_KEY"),
		RevalidateSchedule: getOr("REVALIDATE_SCHEDULE", defaultRevalidateSchedule),
		NgrokEnabled:       os.Getenv("NGROK_AUTHTOKEN") != "",
	}

	var err error
	if cfg.SessionTTL, err = durationOr("SESSION_TTL", defaultSessionTTL); err != nil {
		return nil, err
	}
	if cfg.UpstreamTimeout, err = durationOr("UPSTREAM_TIMEOUT", defaultUpstreamTimeout); err != nil {
		return nil, err
	}

	if cfg.BackendURL == "" {
		return nil, errors.New("BACKEND_URL not set in environment variables")
	}
	if len(cfg.EncryptionKey) != 32 {
		return nil, errors.New("ENCRYPTION_KEY must be 32 characters long for AES-256 encryption")
	}
	return cfg, nil
}

func getOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}
