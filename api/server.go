/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. CORS:       Cross-origin requests for the HR frontend
  2. httplog:    Structured request logging (ECS schema over slog JSON)
  3. RequestID:  Unique ID per request for tracing
  4. CleanPath:  Collapses duplicate slashes before routing
  5. Recoverer:  Panic recovery (500 instead of crash)
  6. Heartbeat:  /healthz liveness probe
  7. httprate:   Per-IP request limit (RateLimit per minute, 0 disables)

/metrics serves the Prometheus registry.

ROUTE GROUPS:
  /api/cycles/*         Cycle resolution
  /api/settings/*       Payroll cycle settings
  /api/pay-register/*   Ledgers, edits, sync, upload, export
  /api/employees/*      Ledger totals across cycles
  /api/bonus/*          Bonus policies and batches
  /api/scenarios/*      Demo scenarios

SECURITY NOTE:
  No authentication middleware. The acting user is taken from X-Actor-*
  headers set by the gateway in front of this service.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterOptions configures middleware. Zero values get development defaults.
type RouterOptions struct {
	AllowedOrigins []string
	LogLevel       slog.Level
	LogOutput      io.Writer
	Env            string
	Version        string
	RateLimit      int
}

// NewRequestLogger returns the JSON slog logger used for request logs,
// formatted with the ECS schema.
func NewRequestLogger(opts RouterOptions) *slog.Logger {
	out := opts.LogOutput
	if out == nil {
		out = os.Stdout
	}
	logFormat := httplog.SchemaECS.Concise(false)
	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level:       opts.LogLevel,
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "payregister-engine"),
		slog.String("version", opts.Version),
		slog.String("env", opts.Env),
	)
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
	if opts.Env == "" {
		opts.Env = "development"
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Actor-ID", "X-Actor-Name", "X-Actor-Role"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(httplog.RequestLogger(NewRequestLogger(opts), &httplog.Options{
		Level:  opts.LogLevel,
		Schema: httplog.SchemaECS,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.CleanPath)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/healthz"))
	if opts.RateLimit > 0 {
		r.Use(httprate.LimitByIP(opts.RateLimit, 1*time.Minute))
	}

	r.Method("GET", "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/cycles/{cycle}", h.GetCycle)

		r.Route("/settings/payroll-cycle", func(r chi.Router) {
			r.Get("/", h.GetPayrollCycleSettings)
			r.Put("/", h.UpdatePayrollCycleSettings)
		})

		// Pay register routes
		r.Route("/pay-register/{cycle}", func(r chi.Router) {
			r.Get("/", h.ListRegister)
			r.Get("/export", h.ExportRegister)
			r.Post("/upload", h.UploadSummary)
			r.Post("/sync", h.SyncRegister)

			r.Route("/{employeeID}", func(r chi.Router) {
				r.Get("/", h.GetLedger)
				r.Put("/daily/{date}", h.UpdateDailyRecord)
				r.Post("/sync", h.SyncLedger)
				r.Put("/status", h.UpdateLedgerStatus)
				r.Put("/notes", h.UpdateLedgerNotes)
				r.Get("/history", h.GetEditHistory)
			})
		})

		r.Get("/employees/{employeeID}/ledgers", h.ListEmployeeLedgers)

		// Bonus routes
		r.Route("/bonus", func(r chi.Router) {
			r.Get("/policies", h.ListBonusPolicies)
			r.Post("/policies", h.CreateBonusPolicy)
			r.Route("/batches", func(r chi.Router) {
				r.Get("/", h.ListBonusBatches)
				r.Post("/", h.CreateBonusBatch)
				r.Get("/{id}", h.GetBonusBatch)
				r.Put("/{id}/status", h.UpdateBonusBatchStatus)
				r.Put("/{id}/records/{employeeID}", h.OverrideBonus)
			})
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}
