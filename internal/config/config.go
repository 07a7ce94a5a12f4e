package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	HTTPPort        string
	AppMode         string
	LogLevel        string
	ShutdownTimeout time.Duration

	RetentionWindow       time.Duration
	CleanupInterval       time.Duration
	BroadcastInterval     time.Duration
	SubscriberSendTimeout time.Duration
	BroadcastConcurrency  int
	HistorySoftCap        int

	ClickHouseAddr        string
	ClickHouseDatabase    string
	ClickHouseUsername    string
	ClickHousePassword    string
	ClickHouseDialTimeout time.Duration

	ArchiveBufferSize int
	ArchiveBatchSize  int
	ArchiveFlushEvery time.Duration
}

// Load reads configuration from environment variables with sane defaults.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:        getEnv("HTTP_PORT", ":8080"),
		AppMode:         strings.ToLower(getEnv("APP_MODE", "dev")),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", "info")),
		ShutdownTimeout: parseDurationEnv("SHUTDOWN_TIMEOUT", 10*time.Second),

		RetentionWindow:       parseDurationEnv("RETENTION_WINDOW", 30*24*time.Hour),
		CleanupInterval:       parseDurationEnv("CLEANUP_INTERVAL", time.Hour),
		BroadcastInterval:     parseDurationEnv("BROADCAST_INTERVAL", 5*time.Second),
		SubscriberSendTimeout: parseDurationEnv("SUBSCRIBER_SEND_TIMEOUT", 2*time.Second),
		BroadcastConcurrency:  parseIntEnv("BROADCAST_CONCURRENCY", 32),
		HistorySoftCap:        parseIntEnv("HISTORY_SOFT_CAP", 5000),

		ClickHouseAddr:        os.Getenv("CLICKHOUSE_ADDR"),
		ClickHouseDatabase:    getEnv("CLICKHOUSE_DATABASE", "default"),
		ClickHouseUsername:    getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword:    os.Getenv("CLICKHOUSE_PASSWORD"),
		ClickHouseDialTimeout: parseDurationEnv("CLICKHOUSE_DIAL_TIMEOUT", 5*time.Second),

		ArchiveBufferSize: parseIntEnv("ARCHIVE_BUFFER_SIZE", 10000),
		ArchiveBatchSize:  parseIntEnv("ARCHIVE_BATCH_SIZE", 500),
		ArchiveFlushEvery: parseDurationEnv("ARCHIVE_FLUSH_EVERY", 2*time.Second),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ArchiveEnabled reports whether tracked events are exported to ClickHouse.
func (c *Config) ArchiveEnabled() bool {
	return c.ClickHouseAddr != ""
}

func (c *Config) validate() error {
	switch {
	case c.RetentionWindow <= 0:
		return &InvalidError{Key: "RETENTION_WINDOW", Reason: "must be positive"}
	case c.CleanupInterval <= 0:
		return &InvalidError{Key: "CLEANUP_INTERVAL", Reason: "must be positive"}
	case c.BroadcastInterval <= 0:
		return &InvalidError{Key: "BROADCAST_INTERVAL", Reason: "must be positive"}
	case c.SubscriberSendTimeout <= 0:
		return &InvalidError{Key: "SUBSCRIBER_SEND_TIMEOUT", Reason: "must be positive"}
	case c.BroadcastConcurrency < 1:
		return &InvalidError{Key: "BROADCAST_CONCURRENCY", Reason: "must be at least 1"}
	case c.HistorySoftCap < 1:
		return &InvalidError{Key: "HISTORY_SOFT_CAP", Reason: "must be at least 1"}
	case c.ArchiveBufferSize < 1:
		return &InvalidError{Key: "ARCHIVE_BUFFER_SIZE", Reason: "must be at least 1"}
	case c.ArchiveBatchSize < 1:
		return &InvalidError{Key: "ARCHIVE_BATCH_SIZE", Reason: "must be at least 1"}
	case c.ArchiveFlushEvery <= 0:
		return &InvalidError{Key: "ARCHIVE_FLUSH_EVERY", Reason: "must be positive"}
	case c.ShutdownTimeout <= 0:
		return &InvalidError{Key: "SHUTDOWN_TIMEOUT", Reason: "must be positive"}
	}
	return nil
}

// InvalidError reports a configuration value that cannot be used.
type InvalidError struct {
	Key    string
	Reason string
}

func (e *InvalidError) Error() string {
	return e.Key + " " + e.Reason
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseIntEnv(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseDurationEnv(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}
