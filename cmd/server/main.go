/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the pay register server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment), then apply flags
  2. Initialize SQLite store and seed cycle settings
  3. Create API handler (engine + bonus calculator)
  4. Optionally load a demo scenario
  5. Start the sync scheduler when enabled
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port      HTTP server port (overrides APP_PORT)
  -db        SQLite database path (overrides DB_PATH)
             Use ":memory:" for in-memory database
  -scenario  Demo scenario to load on startup

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the sync scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

EXAMPLES:
  # Run with file database
  ./server -db="./data/payregister.db"

  # Demo with in-memory database
  ./server -db=":memory:" -scenario=standard-month

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/payregister-engine/api"
	"github.com/warp/payregister-engine/config"
	"github.com/warp/payregister-engine/payregister"
	"github.com/warp/payregister-engine/store/sqlite"
)

const version = "v1.0.0"

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Flags
	port := flag.Int("port", cfg.App.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.Database.Path, "SQLite database path")
	scenario := flag.String("scenario", "", "demo scenario to load on startup")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})).With(
		slog.String("app", "payregister-engine"),
		slog.String("version", version),
		slog.String("env", cfg.App.Env),
	)
	slog.SetDefault(logger)

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.SeedCycleSettings(ctx, payregister.CycleSettings{StartDay: cfg.Cycle.StartDay, EndDay: cfg.Cycle.EndDay}); err != nil {
		return err
	}

	// Initialize handler
	handler := api.NewHandler(store, payregister.Options{
		Logger:  logger,
		Workers: cfg.App.BulkWorkers,
	})

	if *scenario != "" {
		report, err := handler.ApplyScenario(ctx, *scenario)
		if err != nil {
			return fmt.Errorf("load scenario: %w", err)
		}
		logger.Info("demo scenario loaded", slog.String("scenario", *scenario), slog.Int("ledgers", report.Success))
	}

	scheduler := api.NewSyncScheduler(handler.Engine, logger)
	scheduler.Enabled = cfg.Sync.Enabled
	scheduler.CheckInterval = cfg.Sync.Interval
	scheduler.Start()

	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: cfg.App.CORSOrigins,
		LogLevel:       cfg.SlogLevel(),
		Env:            cfg.App.Env,
		Version:        version,
		RateLimit:      cfg.App.RateLimit,
	})

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.Int("port", *port), slog.String("db", *dbPath))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		scheduler.Stop()
		return err
	}

	logger.Info("shutting down server")
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
