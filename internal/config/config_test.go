package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attrix/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, "openai", cfg.Extractor.Primary.Provider)
	assert.Equal(t, 30, cfg.Extractor.Primary.TimeoutSecs)
	assert.Equal(t, 15, cfg.Extractor.MaxFields)
	assert.Equal(t, 8, cfg.Extractor.MaxAllowedValues)

	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 1000, cfg.Cache.MemoryMaxEntries)

	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 30, cfg.RateLimit.MaxRequests)

	assert.Equal(t, 3, cfg.Retry.TransportMaxAttempts)
	assert.Equal(t, time.Second, cfg.Retry.TransportBaseDelay)
	assert.Equal(t, 70, cfg.Retry.ConfidenceThreshold)
	assert.Equal(t, 3, cfg.Retry.ConfidenceMaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.Retry.ConfidenceMaxDelay)
	assert.InDelta(t, 0.1, cfg.Retry.ConfidenceJitter, 0.0001)

	assert.Equal(t, 500*time.Millisecond, cfg.Worker.PollInterval)
	assert.Equal(t, 3, cfg.Worker.Concurrency)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ATTRIX_SERVER_PORT", ":9090")
	t.Setenv("ATTRIX_EXTRACTOR_PRIMARY_PROVIDER", "anthropic")
	t.Setenv("ATTRIX_RETRY_CONFIDENCE_THRESHOLD", "85")
	t.Setenv("ATTRIX_WORKER_CONCURRENCY", "7")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Port)
	assert.Equal(t, "anthropic", cfg.Extractor.Primary.Provider)
	assert.Equal(t, 85, cfg.Retry.ConfidenceThreshold)
	assert.Equal(t, 7, cfg.Worker.Concurrency)
}

func TestLoad_PlatformPortFallback(t *testing.T) {
	t.Setenv("PORT", "3000")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, ":3000", cfg.Server.Port)
}
