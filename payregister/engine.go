/*
engine.go - Facade that wires resolution, aggregation and persistence

PURPOSE:
  Engine exposes the operations callers use: resolve a cycle, get or create
  a ledger, edit a daily record, re-sync from sources, move a ledger through
  its lifecycle and distribute bulk summary rows.

WRITE SERIALIZATION:
  Every read-modify-write of a ledger runs under a per-(employee, cycle)
  mutex, so concurrent edits, syncs and uploads of the same ledger cannot
  lose updates. Different ledgers proceed in parallel.

BATCHES:
  SyncAll and DistributeBulkSummary fan out over a bounded worker pool
  (RunBatch) and fold unit results into a BatchReport.

SEE ALSO:
  - ledger.go, edit.go, bulk.go: the mutations themselves
  - sources.go: Aggregate
*/
package payregister

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Options configures an Engine. Zero values get defaults.
type Options struct {
	Logger  *slog.Logger
	Workers int
	Now     func() time.Time
}

type Engine struct {
	store     LedgerStore
	employees EmployeeDirectory
	settings  SettingsStore
	sources   Sources

	log     *slog.Logger
	workers int
	now     func() time.Time

	locks keyedMutex
}

func NewEngine(store LedgerStore, employees EmployeeDirectory, settings SettingsStore, sources Sources, opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Workers < 1 {
		opts.Workers = 4
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		store:     store,
		employees: employees,
		settings:  settings,
		sources:   sources,
		log:       opts.Logger,
		workers:   opts.Workers,
		now:       opts.Now,
	}
}

// =============================================================================
// CYCLES
// =============================================================================

// ResolveCycle fetches the cycle settings once and resolves the range.
func (e *Engine) ResolveCycle(ctx context.Context, cycle CycleKey) (CycleRange, error) {
	s, err := e.settings.CycleSettings(ctx)
	if err != nil {
		return CycleRange{}, fmt.Errorf("load cycle settings: %w", err)
	}
	return cycle.Resolve(s), nil
}

// =============================================================================
// LEDGER ACCESS
// =============================================================================

// GetOrCreateLedger returns the ledger for the key, populating a new one from
// the sources on first access. An existing ledger only has its display
// metadata refreshed.
func (e *Engine) GetOrCreateLedger(ctx context.Context, employeeID string, cycle CycleKey) (*Ledger, error) {
	unlock := e.locks.lock(ledgerKey(employeeID, cycle))
	defer unlock()
	return e.getOrCreate(ctx, employeeID, cycle)
}

func (e *Engine) getOrCreate(ctx context.Context, employeeID string, cycle CycleKey) (*Ledger, error) {
	r, err := e.ResolveCycle(ctx, cycle)
	if err != nil {
		return nil, err
	}

	l, err := e.store.GetLedger(ctx, employeeID, cycle)
	switch {
	case err == nil:
		if l.Range != r || l.MonthName != cycle.MonthName() {
			l.RefreshMetadata(r)
			l.UpdatedAt = e.now()
			if err := e.store.SaveLedger(ctx, l); err != nil {
				return nil, fmt.Errorf("refresh ledger metadata: %w", err)
			}
		}
		return l, nil
	case !errors.Is(err, ErrLedgerNotFound):
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	emp, err := e.employees.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	snap, err := Aggregate(ctx, emp, r, e.sources)
	if err != nil {
		return nil, err
	}

	now := e.now()
	l = NewLedger(uuid.NewString(), emp, cycle, r, BuildRecords(r, snap), now)
	l.SyncedAt.touchAll(now)
	l.LastAutoSyncedAt = &now
	if err := e.store.CreateLedger(ctx, l); err != nil {
		return nil, fmt.Errorf("create ledger: %w", err)
	}
	e.log.Info("ledger created",
		slog.String("employee_id", employeeID),
		slog.String("cycle", cycle.String()),
		slog.Int("days", r.TotalDays))
	return l, nil
}

// ListLedgers returns every ledger of the cycle.
func (e *Engine) ListLedgers(ctx context.Context, cycle CycleKey) ([]*Ledger, error) {
	return e.store.ListLedgers(ctx, cycle)
}

// EmployeeLedgers returns the employee's ledgers for cycles in [from, to].
func (e *Engine) EmployeeLedgers(ctx context.Context, employeeID string, from, to CycleKey) ([]*Ledger, error) {
	return e.store.ListEmployeeLedgers(ctx, employeeID, from, to)
}

// EditHistory returns the ledger's audit log in append order.
func (e *Engine) EditHistory(ctx context.Context, employeeID string, cycle CycleKey) ([]EditHistoryEntry, error) {
	l, err := e.store.GetLedger(ctx, employeeID, cycle)
	if err != nil {
		return nil, err
	}
	return l.EditHistory, nil
}

// =============================================================================
// MUTATIONS
// =============================================================================

// UpdateDailyRecord applies a manual patch to one date.
func (e *Engine) UpdateDailyRecord(ctx context.Context, employeeID string, cycle CycleKey, d Date, p DailyPatch, actor Actor) (DailyRecord, error) {
	unlock := e.locks.lock(ledgerKey(employeeID, cycle))
	defer unlock()

	l, err := e.getOrCreate(ctx, employeeID, cycle)
	if err != nil {
		return DailyRecord{}, err
	}
	rec, err := l.ApplyPatch(ctx, d, p, actor, e.sources.LeaveSettings, e.now())
	if err != nil {
		return DailyRecord{}, err
	}
	if err := e.store.SaveLedger(ctx, l); err != nil {
		return DailyRecord{}, fmt.Errorf("save ledger: %w", err)
	}
	return rec, nil
}

// SyncLedger re-derives every unprotected date from the sources.
func (e *Engine) SyncLedger(ctx context.Context, employeeID string, cycle CycleKey) (*Ledger, error) {
	unlock := e.locks.lock(ledgerKey(employeeID, cycle))
	defer unlock()
	return e.syncLedger(ctx, employeeID, cycle)
}

func (e *Engine) syncLedger(ctx context.Context, employeeID string, cycle CycleKey) (*Ledger, error) {
	l, err := e.store.GetLedger(ctx, employeeID, cycle)
	if errors.Is(err, ErrLedgerNotFound) {
		return e.getOrCreate(ctx, employeeID, cycle)
	}
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	if err := l.EnsureMutable(); err != nil {
		return nil, err
	}

	emp, err := e.employees.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	r, err := e.ResolveCycle(ctx, cycle)
	if err != nil {
		return nil, err
	}
	snap, err := Aggregate(ctx, emp, r, e.sources)
	if err != nil {
		return nil, err
	}

	skipped := l.rebuildRecords(r, snap)
	l.RefreshMetadata(r)
	l.Recalculate()

	now := e.now()
	l.SyncedAt.touchAll(now)
	l.LastAutoSyncedAt = &now
	l.UpdatedAt = now
	if err := e.store.SaveLedger(ctx, l); err != nil {
		return nil, fmt.Errorf("save ledger: %w", err)
	}
	e.log.Debug("ledger synced",
		slog.String("employee_id", employeeID),
		slog.String("cycle", cycle.String()),
		slog.Int("protected_dates", skipped))
	return l, nil
}

// SyncAll syncs every non-finalized ledger of the cycle.
func (e *Engine) SyncAll(ctx context.Context, cycle CycleKey) (BatchReport, error) {
	ledgers, err := e.store.ListLedgers(ctx, cycle)
	if err != nil {
		return BatchReport{}, err
	}
	var targets []*Ledger
	for _, l := range ledgers {
		if l.Status != LedgerFinalized {
			targets = append(targets, l)
		}
	}

	results := RunBatch(ctx, len(targets), e.workers, func(ctx context.Context, i int) UnitResult {
		l := targets[i]
		_, err := e.SyncLedger(ctx, l.EmployeeID, cycle)
		if err != nil {
			e.log.Warn("sync failed",
				slog.String("employee_id", l.EmployeeID),
				slog.String("cycle", cycle.String()),
				slog.Any("error", err))
		}
		return UnitResult{Label: "Employee " + l.EmployeeNumber, Err: err}
	})
	return Fold(results), nil
}

// SetLedgerStatus moves an existing ledger through its lifecycle.
func (e *Engine) SetLedgerStatus(ctx context.Context, employeeID string, cycle CycleKey, status LedgerStatus, actor Actor) (*Ledger, error) {
	unlock := e.locks.lock(ledgerKey(employeeID, cycle))
	defer unlock()

	l, err := e.store.GetLedger(ctx, employeeID, cycle)
	if err != nil {
		return nil, err
	}
	if err := l.Transition(status, actor, e.now()); err != nil {
		return nil, err
	}
	if err := e.store.SaveLedger(ctx, l); err != nil {
		return nil, fmt.Errorf("save ledger: %w", err)
	}
	return l, nil
}

// SetNotes replaces the ledger's free-text notes.
func (e *Engine) SetNotes(ctx context.Context, employeeID string, cycle CycleKey, notes string, actor Actor) (*Ledger, error) {
	unlock := e.locks.lock(ledgerKey(employeeID, cycle))
	defer unlock()

	l, err := e.store.GetLedger(ctx, employeeID, cycle)
	if err != nil {
		return nil, err
	}
	if err := l.EnsureMutable(); err != nil {
		return nil, err
	}
	l.Notes = notes
	l.markEdited(actor, e.now())
	if err := e.store.SaveLedger(ctx, l); err != nil {
		return nil, fmt.Errorf("save ledger: %w", err)
	}
	return l, nil
}

// =============================================================================
// BULK SUMMARY
// =============================================================================

// rowError carries a report message verbatim while keeping the cause.
type rowError struct {
	msg   string
	cause error
}

func (e *rowError) Error() string { return e.msg }
func (e *rowError) Unwrap() error { return e.cause }

// DistributeBulkSummary applies each row to its employee's ledger. Rows are
// independent: a failing row is reported and the rest continue.
func (e *Engine) DistributeBulkSummary(ctx context.Context, cycle CycleKey, rows []SummaryRow, actor Actor) BatchReport {
	results := RunBatch(ctx, len(rows), e.workers, func(ctx context.Context, i int) UnitResult {
		row := rows[i]
		if row.RowNumber == 0 {
			row.RowNumber = i + 1
		}
		res := e.distributeRow(ctx, cycle, row, actor)
		if res.Err != nil {
			e.log.Warn("bulk row failed",
				slog.Int("row", row.RowNumber),
				slog.String("emp_no", row.EmployeeNumber),
				slog.String("cycle", cycle.String()),
				slog.Any("error", res.Err))
		}
		return res
	})
	return Fold(results)
}

func (e *Engine) distributeRow(ctx context.Context, cycle CycleKey, row SummaryRow, actor Actor) UnitResult {
	rowLabel := fmt.Sprintf("Row %d", row.RowNumber)
	if row.EmployeeNumber == "" {
		return UnitResult{Label: rowLabel, Err: &rowError{msg: "Missing Employee Code", cause: ErrEmployeeNotFound}}
	}

	emp, err := e.employees.FindEmployeeByNumber(ctx, row.EmployeeNumber)
	if err != nil {
		if IsNotFound(err) {
			return UnitResult{Label: "Employee " + row.EmployeeNumber, Err: &rowError{msg: "Not found in system", cause: err}}
		}
		return UnitResult{Label: rowLabel, Err: err}
	}

	unlock := e.locks.lock(ledgerKey(emp.ID, cycle))
	defer unlock()

	l, err := e.getOrCreate(ctx, emp.ID, cycle)
	if err != nil {
		return UnitResult{Label: rowLabel, Err: err}
	}
	if err := l.Distribute(row, actor, e.now()); err != nil {
		return UnitResult{Label: rowLabel, Err: err}
	}
	if err := e.store.SaveLedger(ctx, l); err != nil {
		return UnitResult{Label: rowLabel, Err: fmt.Errorf("save ledger: %w", err)}
	}
	return UnitResult{Label: rowLabel}
}

// =============================================================================
// PER-KEY LOCKS
// =============================================================================

func ledgerKey(employeeID string, cycle CycleKey) string {
	return employeeID + "|" + cycle.String()
}

// keyedMutex hands out one mutex per key. Keys are never evicted; the set is
// bounded by the number of ledgers touched.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
