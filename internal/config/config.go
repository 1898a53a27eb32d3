package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"go-trade-journal/internal/model"
)

type Config struct {
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration
	RequestTimeout     time.Duration

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// APITokenSecret signs and verifies API bearer tokens. Empty disables
	// authentication; meant for local single-user setups only.
	APITokenSecret string

	CORSOrigins             []string
	RateLimitRPM            int
	DestructiveRateLimitRPM int

	TrashRetentionDays   int
	CleanupEnabled       bool
	CleanupIntervalHours int
	NotifyExpiring       bool
	NotifyCleanup        bool

	EmergencySnapshotInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		ServerReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 15*time.Second),
		ServerWriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		ServerIdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:     getDuration("REQUEST_TIMEOUT", 30*time.Second),

		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 2)),

		APITokenSecret: strings.TrimSpace(os.Getenv("API_TOKEN_SECRET")),

		CORSOrigins:             splitCSV(getEnv("CORS_ORIGINS", "*")),
		RateLimitRPM:            getInt("RATE_LIMIT_RPM", 100),
		DestructiveRateLimitRPM: getInt("DESTRUCTIVE_RATE_LIMIT_RPM", 10),

		TrashRetentionDays:   getInt("TRASH_RETENTION_DAYS", 30),
		CleanupEnabled:       getBool("CLEANUP_ENABLED", true),
		CleanupIntervalHours: getInt("CLEANUP_INTERVAL_HOURS", 6),
		NotifyExpiring:       getBool("NOTIFY_EXPIRING", true),
		NotifyCleanup:        getBool("NOTIFY_CLEANUP", true),

		EmergencySnapshotInterval: getDuration("EMERGENCY_SNAPSHOT_INTERVAL", time.Hour),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	if c.TrashRetentionDays <= 0 {
		return fmt.Errorf("TRASH_RETENTION_DAYS must be positive")
	}

	if c.CleanupIntervalHours <= 0 {
		return fmt.Errorf("CLEANUP_INTERVAL_HOURS must be positive")
	}

	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS and DB_MAX_CONNS are inconsistent")
	}

	return nil
}

// CleanupConfig assembles the scheduler configuration from the environment.
func (c *Config) CleanupConfig() model.CleanupConfig {
	return model.CleanupConfig{
		Enabled:          c.CleanupEnabled,
		IntervalHours:    c.CleanupIntervalHours,
		MaxRetentionDays: c.TrashRetentionDays,
		NotifyExpiring:   c.NotifyExpiring,
		NotifyCleanup:    c.NotifyCleanup,
	}
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
