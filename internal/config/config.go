package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a sensible default; only DATABASE_URL, ENCRYPTION_KEY and
// CRON_SECRET are required.
type Config struct {
	// Server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Database
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// Shared secret for the manual trigger endpoints, and the key the
	// stored GitHub tokens are sealed with.
	CronSecret    string
	EncryptionKey string

	// GitHub contribution API
	GithubAPIURL  string
	GithubTimeout time.Duration
	CacheTTL      time.Duration
	CacheSize     int

	// Outbound notification delivery
	TelegramAPIURL string
	NotifyTimeout  time.Duration
	NotifyRate     int // max sends per second per channel

	// Fan-out dispatch
	DispatchWorkers int
	MaxClaims       int // per-goroutine claim budget, guards runaway loops

	// Stale-item recovery
	ReaperInterval time.Duration
	ReaperTimeout  time.Duration
	MaxRequeues    int

	// Retention cleanup
	CleanupInterval time.Duration
	RetentionDays   int

	// Daily cycle trigger
	ReminderHourUTC int
	CycleInterval   time.Duration
}

func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	encKey := os.Getenv("ENCRYPTION_KEY")
	if encKey == "" {
		return nil, fmt.Errorf("ENCRYPTION_KEY is required")
	}
	cronSecret := os.Getenv("CRON_SECRET")
	if cronSecret == "" {
		return nil, fmt.Errorf("CRON_SECRET is required")
	}

	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		DatabaseURL: dbURL,
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 25)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 5)),

		CronSecret:    cronSecret,
		EncryptionKey: encKey,

		GithubAPIURL:  getEnv("GITHUB_API_URL", "https://api.github.com/graphql"),
		GithubTimeout: getDuration("GITHUB_TIMEOUT", 15*time.Second),
		CacheTTL:      getDuration("GITHUB_CACHE_TTL", 5*time.Minute),
		CacheSize:     getInt("GITHUB_CACHE_SIZE", 1000),

		TelegramAPIURL: getEnv("TELEGRAM_API_URL", "https://api.telegram.org"),
		NotifyTimeout:  getDuration("NOTIFY_TIMEOUT", 10*time.Second),
		NotifyRate:     getInt("NOTIFY_RATE_PER_CHANNEL", 25),

		DispatchWorkers: getInt("DISPATCH_WORKERS", 4),
		MaxClaims:       getInt("MAX_CLAIMS_PER_WORKER", 1000),

		ReaperInterval: getDuration("REAPER_INTERVAL", 5*time.Minute),
		ReaperTimeout:  getDuration("REAPER_TIMEOUT", 10*time.Minute),
		MaxRequeues:    getInt("MAX_REQUEUES", 3),

		CleanupInterval: getDuration("CLEANUP_INTERVAL", 6*time.Hour),
		RetentionDays:   getInt("RETENTION_DAYS", 7),

		ReminderHourUTC: getInt("REMINDER_HOUR_UTC", 20),
		CycleInterval:   getDuration("CYCLE_INTERVAL", time.Minute),
	}, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
