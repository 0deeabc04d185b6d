/*
config.go - Process configuration

PURPOSE:
  Loads server configuration from an optional .env file and the process
  environment. Flags in cmd/server override the loaded values.

VARIABLES:
  APP_PORT                  HTTP port (8080)
  APP_ENV                   development | production (development)
  LOG_LEVEL                 debug | info | warn | error (info)
  DB_PATH                   SQLite path, ":memory:" allowed (payregister.db)
  CORS_ORIGINS              comma separated origins
  SYNC_ENABLED              run the scheduled sync (false)
  SYNC_INTERVAL             Go duration between scheduled syncs (1h)
  BULK_WORKERS              worker pool size for batch operations (4)
  RATE_LIMIT_PER_MINUTE     per-IP request limit, 0 disables (200)
  PAYROLL_CYCLE_START_DAY   seed value for the cycle start day (1)
  PAYROLL_CYCLE_END_DAY     seed value for the cycle end day (31)

SEE ALSO:
  - cmd/server/main.go: flag overrides
  - store/sqlite/sqlite.go: settings table
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Sync     SyncConfig
	Cycle    CycleConfig
}

// AppConfig holds application configuration
type AppConfig struct {
	Port        int
	Env         string
	LogLevel    string
	CORSOrigins []string
	BulkWorkers int
	RateLimit   int
}

type DatabaseConfig struct {
	Path string
}

type SyncConfig struct {
	Enabled  bool
	Interval time.Duration
}

// CycleConfig seeds the settings table on first start.
type CycleConfig struct {
	StartDay int
	EndDay   int
}

// Load reads .env (if present) and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}

	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}
	workers, err := strconv.Atoi(getEnv("BULK_WORKERS", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid BULK_WORKERS: %w", err)
	}
	rateLimit, err := strconv.Atoi(getEnv("RATE_LIMIT_PER_MINUTE", "200"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: %w", err)
	}
	cfg.App = AppConfig{
		Port:        appPort,
		Env:         getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: getEnvSlice("CORS_ORIGINS", []string{"http://localhost:5173", "http://localhost:8080"}),
		BulkWorkers: workers,
		RateLimit:   rateLimit,
	}

	cfg.Database = DatabaseConfig{
		Path: getEnv("DB_PATH", "payregister.db"),
	}

	enabled, err := strconv.ParseBool(getEnv("SYNC_ENABLED", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid SYNC_ENABLED: %w", err)
	}
	interval, err := time.ParseDuration(getEnv("SYNC_INTERVAL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid SYNC_INTERVAL: %w", err)
	}
	cfg.Sync = SyncConfig{Enabled: enabled, Interval: interval}

	startDay, err := strconv.Atoi(getEnv("PAYROLL_CYCLE_START_DAY", "1"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYROLL_CYCLE_START_DAY: %w", err)
	}
	endDay, err := strconv.Atoi(getEnv("PAYROLL_CYCLE_END_DAY", "31"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYROLL_CYCLE_END_DAY: %w", err)
	}
	cfg.Cycle = CycleConfig{StartDay: startDay, EndDay: endDay}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("APP_PORT out of range: %d", c.App.Port)
	}
	if c.App.BulkWorkers < 1 {
		return fmt.Errorf("BULK_WORKERS must be at least 1")
	}
	if c.App.RateLimit < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE cannot be negative")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("DB_PATH is required")
	}
	if c.Sync.Enabled && c.Sync.Interval <= 0 {
		return fmt.Errorf("SYNC_INTERVAL must be positive when sync is enabled")
	}
	if c.Cycle.StartDay < 1 || c.Cycle.StartDay > 31 || c.Cycle.EndDay < 1 || c.Cycle.EndDay > 31 {
		return fmt.Errorf("payroll cycle days must be between 1 and 31")
	}
	return nil
}

// IsProduction reports APP_ENV=production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Env, "production")
}

// SlogLevel maps LOG_LEVEL to a slog level. Unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.App.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
