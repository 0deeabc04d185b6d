/*
scheduler.go - Automated ledger sync scheduler

PURPOSE:
  Periodically re-syncs every non-finalized ledger of the current payroll
  cycle so attendance, leaves, ODs and overtime approved after the ledger was
  built flow into the register without an HR click.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Resolves the cycle containing "today" from the settings on every tick
  - Delegates to Engine.SyncAll, which skips finalized ledgers and keeps
    manually edited dates
  - Keeps the last run's report for the status endpoint and tests

CONFIGURATION:
  - CheckInterval: How often to sync (default: 1 hour, SYNC_INTERVAL)
  - Enabled: Whether scheduler is active (default: false, SYNC_ENABLED)

USAGE:
  scheduler := NewSyncScheduler(handler.Engine, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: SyncRegister endpoint (manual sync)
  - payregister/engine.go: SyncAll
*/
package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/warp/payregister-engine/payregister"
)

// SyncRun records one scheduled sync.
type SyncRun struct {
	Cycle     payregister.CycleKey    `json:"cycle"`
	StartedAt time.Time               `json:"startedAt"`
	Report    payregister.BatchReport `json:"report"`
	Error     string                  `json:"error,omitempty"`
}

// SyncScheduler handles automated ledger sync.
type SyncScheduler struct {
	Engine        *payregister.Engine
	CheckInterval time.Duration
	Enabled       bool

	// Now picks the cycle to sync. Defaults to time.Now.
	Now func() time.Time

	log     *slog.Logger
	ticker  *time.Ticker
	stop    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	lastRun *SyncRun
}

// NewSyncScheduler creates a new scheduler.
func NewSyncScheduler(engine *payregister.Engine, logger *slog.Logger) *SyncScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncScheduler{
		Engine:        engine,
		CheckInterval: 1 * time.Hour,
		Now:           time.Now,
		log:           logger.With(slog.String("component", "sync_scheduler")),
	}
}

// Start begins the scheduler.
func (s *SyncScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.log.Info("scheduler disabled, not starting")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.stop = make(chan struct{})
	s.wg.Add(1)

	go s.run(s.ticker, s.stop)

	s.log.Info("scheduler started", slog.Duration("interval", s.CheckInterval))
}

// Stop stops the scheduler and waits for an in-flight sync to finish.
func (s *SyncScheduler) Stop() {
	s.mu.Lock()
	if s.ticker == nil {
		s.mu.Unlock()
		return
	}
	s.ticker.Stop()
	close(s.stop)
	s.ticker = nil
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info("scheduler stopped")
}

func (s *SyncScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer s.wg.Done()

	// Run immediately on start
	s.RunOnce(context.Background())

	for {
		select {
		case <-ticker.C:
			s.RunOnce(context.Background())
		case <-stop:
			return
		}
	}
}

// RunOnce syncs the cycle that contains the current date.
func (s *SyncScheduler) RunOnce(ctx context.Context) SyncRun {
	now := s.Now()
	run := SyncRun{StartedAt: now}
	scheduledRuns.Inc()

	cycle, err := s.currentCycle(ctx, now)
	if err != nil {
		run.Error = err.Error()
		s.log.Error("failed to resolve current cycle", slog.Any("error", err))
		s.record(run)
		return run
	}
	run.Cycle = cycle

	report, err := s.Engine.SyncAll(ctx, cycle)
	run.Report = report
	if err != nil {
		run.Error = err.Error()
		s.log.Error("scheduled sync failed", slog.String("cycle", cycle.String()), slog.Any("error", err))
	} else {
		observeBatch(ledgerSyncs, report, "scheduled")
		s.log.Info("scheduled sync complete",
			slog.String("cycle", cycle.String()),
			slog.Int("total", report.Total),
			slog.Int("success", report.Success),
			slog.Int("failed", report.Failed))
	}
	s.record(run)
	return run
}

// currentCycle returns the cycle whose range contains today. With a cycle
// that starts in the previous month (26th to 25th), dates after the end day
// belong to the next month's cycle.
func (s *SyncScheduler) currentCycle(ctx context.Context, now time.Time) (payregister.CycleKey, error) {
	today := payregister.DateOf(now)
	cycle := payregister.NewCycleKey(today.Year, today.Month)
	r, err := s.Engine.ResolveCycle(ctx, cycle)
	if err != nil {
		return payregister.CycleKey{}, err
	}
	if today.After(r.End) {
		return cycle.Next(), nil
	}
	return cycle, nil
}

func (s *SyncScheduler) record(run SyncRun) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRun = &run
}

// LastRun returns the most recent scheduled sync, if any.
func (s *SyncScheduler) LastRun() (SyncRun, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastRun == nil {
		return SyncRun{}, false
	}
	return *s.lastRun, true
}
