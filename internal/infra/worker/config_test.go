package worker

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Shared across tests: promauto panics on duplicate metric registration.
var testMetrics = NewMetrics()

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "0 0 * * *", cfg.UpdateSchedule)
	assert.Equal(t, "0 8,14,21 * * *", cfg.DigestSchedule)
	assert.False(t, cfg.BlacklistResetEnabled)
	assert.Equal(t, "UTC", cfg.Timezone)
}

func TestLoadConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("UPDATE_SCHEDULE", "0 */6 * * *")
	t.Setenv("DIGEST_SCHEDULE", "0 9 * * *")
	t.Setenv("BLACKLIST_RESET_ENABLED", "true")
	t.Setenv("WORKER_TIMEZONE", "Europe/London")
	t.Setenv("PROVIDER_TIMEOUT", "45s")
	t.Setenv("BROADCAST_MAX_CONCURRENT", "20")
	t.Setenv("WORKER_HEALTH_PORT", "8081")
	t.Setenv("METRICS_PORT", "8082")

	cfg, err := LoadConfigFromEnv(slog.Default(), testMetrics)
	require.NoError(t, err)

	assert.Equal(t, "0 */6 * * *", cfg.UpdateSchedule)
	assert.Equal(t, "0 9 * * *", cfg.DigestSchedule)
	assert.True(t, cfg.BlacklistResetEnabled)
	assert.Equal(t, "Europe/London", cfg.Timezone)
	assert.Equal(t, 45*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, 20, cfg.BroadcastMaxConcurrent)
	assert.Equal(t, 8081, cfg.HealthPort)
	assert.Equal(t, 8082, cfg.MetricsPort)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigFromEnv_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("UPDATE_SCHEDULE", "whenever")
	t.Setenv("WORKER_TIMEZONE", "Mars/Olympus")
	t.Setenv("PROVIDER_TIMEOUT", "0s")
	t.Setenv("BROADCAST_MAX_CONCURRENT", "9999")

	cfg, err := LoadConfigFromEnv(slog.Default(), testMetrics)
	require.NoError(t, err, "loading is fail-open and never errors")

	defaults := DefaultConfig()
	assert.Equal(t, defaults.UpdateSchedule, cfg.UpdateSchedule)
	assert.Equal(t, defaults.Timezone, cfg.Timezone)
	assert.Equal(t, defaults.ProviderTimeout, cfg.ProviderTimeout)
	assert.Equal(t, defaults.BroadcastMaxConcurrent, cfg.BroadcastMaxConcurrent)
	require.NoError(t, cfg.Validate())
}

func TestConfigValidateAggregatesErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UpdateSchedule = "bad"
	cfg.HealthPort = 80

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "update schedule")
	assert.Contains(t, err.Error(), "health port")
}
