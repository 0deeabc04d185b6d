package config_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payregister-engine/config"
)

func TestLoad_Defaults(t *testing.T) {
	// No .env in the package directory, so only defaults apply.
	for _, key := range []string{"APP_PORT", "APP_ENV", "LOG_LEVEL", "DB_PATH", "CORS_ORIGINS",
		"SYNC_ENABLED", "SYNC_INTERVAL", "BULK_WORKERS", "RATE_LIMIT_PER_MINUTE", "PAYROLL_CYCLE_START_DAY", "PAYROLL_CYCLE_END_DAY"} {
		t.Setenv(key, "")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, 4, cfg.App.BulkWorkers)
	assert.Equal(t, 200, cfg.App.RateLimit)
	assert.Equal(t, "payregister.db", cfg.Database.Path)
	assert.False(t, cfg.Sync.Enabled)
	assert.Equal(t, time.Hour, cfg.Sync.Interval)
	assert.Equal(t, config.CycleConfig{StartDay: 1, EndDay: 31}, cfg.Cycle)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
	assert.False(t, cfg.IsProduction())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("APP_ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CORS_ORIGINS", "https://hr.example.com, https://ops.example.com ,")
	t.Setenv("SYNC_ENABLED", "true")
	t.Setenv("SYNC_INTERVAL", "15m")
	t.Setenv("BULK_WORKERS", "8")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "0")
	t.Setenv("PAYROLL_CYCLE_START_DAY", "26")
	t.Setenv("PAYROLL_CYCLE_END_DAY", "25")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.App.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, []string{"https://hr.example.com", "https://ops.example.com"}, cfg.App.CORSOrigins)
	assert.True(t, cfg.Sync.Enabled)
	assert.Equal(t, 15*time.Minute, cfg.Sync.Interval)
	assert.Equal(t, 8, cfg.App.BulkWorkers)
	assert.Zero(t, cfg.App.RateLimit)
	assert.Equal(t, config.CycleConfig{StartDay: 26, EndDay: 25}, cfg.Cycle)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"non-numeric port", "APP_PORT", "http"},
		{"bad duration", "SYNC_INTERVAL", "hourly"},
		{"zero workers", "BULK_WORKERS", "0"},
		{"cycle day out of range", "PAYROLL_CYCLE_END_DAY", "32"},
		{"bad bool", "SYNC_ENABLED", "maybe"},
		{"negative rate limit", "RATE_LIMIT_PER_MINUTE", "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}
