package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPPort)
	assert.Equal(t, 30*24*time.Hour, cfg.RetentionWindow)
	assert.Equal(t, time.Hour, cfg.CleanupInterval)
	assert.Equal(t, 5*time.Second, cfg.BroadcastInterval)
	assert.Equal(t, 2*time.Second, cfg.SubscriberSendTimeout)
	assert.Equal(t, 5000, cfg.HistorySoftCap)
	assert.False(t, cfg.ArchiveEnabled())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HTTP_PORT", ":9090")
	t.Setenv("APP_MODE", "PROD")
	t.Setenv("RETENTION_WINDOW", "48h")
	t.Setenv("BROADCAST_INTERVAL", "250ms")
	t.Setenv("BROADCAST_CONCURRENCY", "8")
	t.Setenv("CLICKHOUSE_ADDR", "localhost:9000")
	t.Setenv("ARCHIVE_BATCH_SIZE", "100")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPPort)
	assert.Equal(t, "prod", cfg.AppMode)
	assert.Equal(t, 48*time.Hour, cfg.RetentionWindow)
	assert.Equal(t, 250*time.Millisecond, cfg.BroadcastInterval)
	assert.Equal(t, 8, cfg.BroadcastConcurrency)
	assert.Equal(t, 100, cfg.ArchiveBatchSize)
	assert.True(t, cfg.ArchiveEnabled())
}

func TestLoadIgnoresUnparsableValues(t *testing.T) {
	t.Setenv("CLEANUP_INTERVAL", "hourly")
	t.Setenv("HISTORY_SOFT_CAP", "lots")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, time.Hour, cfg.CleanupInterval)
	assert.Equal(t, 5000, cfg.HistorySoftCap)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"RETENTION_WINDOW", "-1h"},
		{"CLEANUP_INTERVAL", "0s"},
		{"BROADCAST_INTERVAL", "-5s"},
		{"SUBSCRIBER_SEND_TIMEOUT", "0s"},
		{"BROADCAST_CONCURRENCY", "0"},
		{"HISTORY_SOFT_CAP", "-3"},
		{"ARCHIVE_BATCH_SIZE", "0"},
		{"ARCHIVE_BUFFER_SIZE", "-1"},
		{"ARCHIVE_FLUSH_EVERY", "0s"},
		{"SHUTDOWN_TIMEOUT", "-2s"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()

			var invalid *InvalidError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.key, invalid.Key)
		})
	}
}
