// Package worker holds the scheduler-facing operational pieces: env-driven
// configuration, job metrics, and the health endpoint.
package worker

import (
	"fmt"
	"log/slog"
	"time"

	"technews-bot/internal/pkg/config"
)

// Config controls the bot's scheduling and fan-out behavior. Every field
// loads fail-open from the environment: an invalid value is replaced by the
// default with a warning and a metric, never a startup failure.
type Config struct {
	// UpdateSchedule refreshes all provider snapshots. Default: daily at
	// midnight.
	UpdateSchedule string

	// DigestSchedule collects and broadcasts the digest. Default: 08:00,
	// 14:00 and 21:00.
	DigestSchedule string

	// BlacklistResetSchedule wipes every provider's blacklist so old items
	// become deliverable again. Only scheduled when BlacklistResetEnabled
	// is set. Default: first of the month, disabled.
	BlacklistResetSchedule string
	BlacklistResetEnabled  bool

	// Timezone is the IANA zone all schedules run in.
	Timezone string

	// ProviderTimeout bounds one provider call inside a digest cycle.
	ProviderTimeout time.Duration

	// BroadcastMaxConcurrent caps parallel Telegram sends.
	BroadcastMaxConcurrent int

	// HealthPort serves /health and /health/ready.
	HealthPort int

	// MetricsPort serves /metrics.
	MetricsPort int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		UpdateSchedule:         "0 0 * * *",
		DigestSchedule:         "0 8,14,21 * * *",
		BlacklistResetSchedule: "0 0 1 * *",
		BlacklistResetEnabled:  false,
		Timezone:               "UTC",
		ProviderTimeout:        30 * time.Second,
		BroadcastMaxConcurrent: 10,
		HealthPort:             9091,
		MetricsPort:            9090,
	}
}

// Validate checks every field and aggregates all failures.
func (c *Config) Validate() error {
	var errs []error

	if err := config.ValidateCronSchedule(c.UpdateSchedule); err != nil {
		errs = append(errs, fmt.Errorf("update schedule: %w", err))
	}
	if err := config.ValidateCronSchedule(c.DigestSchedule); err != nil {
		errs = append(errs, fmt.Errorf("digest schedule: %w", err))
	}
	if err := config.ValidateCronSchedule(c.BlacklistResetSchedule); err != nil {
		errs = append(errs, fmt.Errorf("blacklist reset schedule: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := config.ValidatePositiveDuration(c.ProviderTimeout); err != nil {
		errs = append(errs, fmt.Errorf("provider timeout: %w", err))
	}
	if err := config.ValidateIntRange(c.BroadcastMaxConcurrent, 1, 50); err != nil {
		errs = append(errs, fmt.Errorf("broadcast max concurrent: %w", err))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}
	if err := config.ValidateIntRange(c.MetricsPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("metrics port: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	return nil
}

// LoadConfigFromEnv builds the worker config from the environment. It is
// fail-open: the returned config is always valid and the error is always
// nil; fallbacks surface as warnings and metrics instead.
//
// Environment variables:
//
//	UPDATE_SCHEDULE           cron, default "0 0 * * *"
//	DIGEST_SCHEDULE           cron, default "0 8,14,21 * * *"
//	BLACKLIST_RESET_SCHEDULE  cron, default "0 0 1 * *"
//	BLACKLIST_RESET_ENABLED   bool, default false
//	WORKER_TIMEZONE           IANA zone, default "UTC"
//	PROVIDER_TIMEOUT          duration 1s-10m, default 30s
//	BROADCAST_MAX_CONCURRENT  int 1-50, default 10
//	WORKER_HEALTH_PORT        int 1024-65535, default 9091
//	METRICS_PORT              int 1024-65535, default 9090
func LoadConfigFromEnv(logger *slog.Logger, metrics *Metrics) (*Config, error) {
	cfg := DefaultConfig()
	fallbackApplied := false

	apply := func(field string, result config.ConfigLoadResult) config.ConfigLoadResult {
		if result.FallbackApplied {
			fallbackApplied = true
			metrics.RecordValidationError(field)
			metrics.RecordFallback(field)
			for _, warning := range result.Warnings {
				logger.Warn("configuration fallback applied",
					slog.String("field", field),
					slog.String("warning", warning))
			}
		}
		return result
	}

	cfg.UpdateSchedule = apply("update_schedule",
		config.LoadEnvWithFallback("UPDATE_SCHEDULE", cfg.UpdateSchedule, config.ValidateCronSchedule)).Value.(string)

	cfg.DigestSchedule = apply("digest_schedule",
		config.LoadEnvWithFallback("DIGEST_SCHEDULE", cfg.DigestSchedule, config.ValidateCronSchedule)).Value.(string)

	cfg.BlacklistResetSchedule = apply("blacklist_reset_schedule",
		config.LoadEnvWithFallback("BLACKLIST_RESET_SCHEDULE", cfg.BlacklistResetSchedule, config.ValidateCronSchedule)).Value.(string)

	cfg.BlacklistResetEnabled = apply("blacklist_reset_enabled",
		config.LoadEnvBool("BLACKLIST_RESET_ENABLED", cfg.BlacklistResetEnabled)).Value.(bool)

	cfg.Timezone = apply("timezone",
		config.LoadEnvWithFallback("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)).Value.(string)

	cfg.ProviderTimeout = apply("provider_timeout",
		config.LoadEnvDuration("PROVIDER_TIMEOUT", cfg.ProviderTimeout, func(d time.Duration) error {
			return config.ValidateDuration(d, time.Second, 10*time.Minute)
		})).Value.(time.Duration)

	cfg.BroadcastMaxConcurrent = apply("broadcast_max_concurrent",
		config.LoadEnvInt("BROADCAST_MAX_CONCURRENT", cfg.BroadcastMaxConcurrent, func(v int) error {
			return config.ValidateIntRange(v, 1, 50)
		})).Value.(int)

	cfg.HealthPort = apply("health_port",
		config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, func(v int) error {
			return config.ValidateIntRange(v, 1024, 65535)
		})).Value.(int)

	cfg.MetricsPort = apply("metrics_port",
		config.LoadEnvInt("METRICS_PORT", cfg.MetricsPort, func(v int) error {
			return config.ValidateIntRange(v, 1024, 65535)
		})).Value.(int)

	metrics.SetFallbackActive(fallbackApplied)
	metrics.RecordLoadTimestamp()

	return &cfg, nil
}
