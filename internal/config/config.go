// Package config loads the environment variables spec.md §6 names as the
// module's entire runtime configuration surface (no config file, matching
// the source system's env-var-only deployment model).
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds every environment-derived setting the scheduler needs.
type Config struct {
	PostgresURL       string
	RedisHost         string
	RedisPort         int
	Port              int
	AllowedOrigins    string
	AllowedTargetHosts string
	NodeEnv           string

	AuthToken      string // optional bearer token for the REST surface
	ArchiveBucket  string // S3 bucket for oversized delivery bodies; empty disables archival
	DLQThreshold   int
	DLQPollInterval string // parsed by the caller via time.ParseDuration; kept as a string here to avoid importing time for a single field
}

// Load reads Config from the process environment, applying the defaults
// spec.md §6 specifies.
func Load() (Config, error) {
	cfg := Config{
		PostgresURL:        os.Getenv("POSTGRES_URL"),
		RedisHost:          envOr("REDIS_HOST", "localhost"),
		AllowedOrigins:     envOr("ALLOWED_ORIGINS", "*"),
		AllowedTargetHosts: os.Getenv("ALLOWED_TARGET_HOSTS"),
		NodeEnv:            envOr("NODE_ENV", "development"),
		AuthToken:          os.Getenv("AUTH_TOKEN"),
		ArchiveBucket:      os.Getenv("ARCHIVE_BUCKET"),
	}

	port, err := intEnvOr("PORT", 3000)
	if err != nil {
		return Config{}, err
	}
	cfg.Port = port

	redisPort, err := intEnvOr("REDIS_PORT", 6379)
	if err != nil {
		return Config{}, err
	}
	cfg.RedisPort = redisPort

	dlqThreshold, err := intEnvOr("DLQ_ALERT_THRESHOLD", 10)
	if err != nil {
		return Config{}, err
	}
	cfg.DLQThreshold = dlqThreshold
	cfg.DLQPollInterval = envOr("DLQ_POLL_INTERVAL", "1m")

	return cfg, nil
}

// RequirePostgresURL checks the one setting that only matters when the
// caller actually dials Postgres (cmd serve without --standalone, cmd
// migrate). Kept out of Load so --standalone can run without it set.
func (c Config) RequirePostgresURL() error {
	if c.PostgresURL == "" {
		return fmt.Errorf("POSTGRES_URL is required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnvOr(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, v, err)
	}
	return n, nil
}
