/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  One database holds everything the pay register needs: ledgers and their
  edit history, the employee master, cycle settings, every source
  collection the engine aggregates, and bonus policies and batches.

INTERFACES IMPLEMENTED:
  payregister.LedgerStore:       Ledger persistence
  payregister.EmployeeDirectory: Employee lookups
  payregister.SettingsStore:     Payroll cycle settings
  payregister.*Source:           Attendance, leave, OD, overtime, roster
  payregister.LeaveSettings:     Leave type -> nature
  bonus.Store:                   Bonus policies and batches

APPEND-ONLY ENFORCEMENT:
  edit_history is insert-only:
  - No UPDATE statements on edit_history
  - No DELETE statements on edit_history
  - SaveLedger inserts only the entries beyond those already stored

KEY TABLES:
  ledgers:       One row per (employee_id, cycle_key); records and totals as JSON
  edit_history:  Audit log, keyed by ledger id and sequence
  employees:     Employee master
  settings:      Key/value settings (payroll cycle start and end day)
  attendance_daily, leaves, leave_splits, leave_types, ods, overtime,
  shift_roster:  Source collections
  bonus_policies, bonus_batches

CONCURRENCY:
  Uses sync.RWMutex for thread-safety; every ledger save runs in one SQL
  transaction. ":memory:" databases are pinned to a single connection so all
  callers see the same schema.

USAGE:
  store, err := sqlite.New("./data/payregister.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := payregister.NewEngine(store, store, store, store.Sources(), opts)

SEE ALSO:
  - payregister/store.go: Interface definitions
  - payregister/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/warp/payregister-engine/bonus"
	"github.com/warp/payregister-engine/payregister"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ payregister.LedgerStore       = (*Store)(nil)
	_ payregister.EmployeeDirectory = (*Store)(nil)
	_ payregister.SettingsStore     = (*Store)(nil)
	_ payregister.AttendanceSource  = (*Store)(nil)
	_ payregister.LeaveSource       = (*Store)(nil)
	_ payregister.LeaveSettings     = (*Store)(nil)
	_ payregister.ODSource          = (*Store)(nil)
	_ payregister.OvertimeSource    = (*Store)(nil)
	_ payregister.RosterSource      = (*Store)(nil)
	_ bonus.Store                   = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Sources bundles the store's source collections for the engine.
func (s *Store) Sources() payregister.Sources {
	return payregister.Sources{
		Attendance:    s,
		Leaves:        s,
		LeaveSettings: s,
		ODs:           s,
		Overtime:      s,
		Roster:        s,
	}
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Ledgers (one per employee and cycle)
	CREATE TABLE IF NOT EXISTS ledgers (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		emp_no TEXT NOT NULL,
		employee_name TEXT NOT NULL DEFAULT '',
		cycle_key TEXT NOT NULL,
		month_name TEXT NOT NULL,
		range_start TEXT NOT NULL,
		range_end TEXT NOT NULL,
		total_days INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'draft',
		notes TEXT NOT NULL DEFAULT '',
		records_json TEXT NOT NULL,
		totals_json TEXT NOT NULL,
		synced_json TEXT NOT NULL DEFAULT '{}',
		last_auto_synced_at TEXT,
		last_edited_by TEXT NOT NULL DEFAULT '',
		last_edited_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_ledgers_employee_cycle
		ON ledgers(employee_id, cycle_key);
	CREATE INDEX IF NOT EXISTS idx_ledgers_cycle
		ON ledgers(cycle_key, emp_no);

	-- Edit history (insert-only)
	CREATE TABLE IF NOT EXISTS edit_history (
		id TEXT PRIMARY KEY,
		ledger_id TEXT NOT NULL REFERENCES ledgers(id),
		seq INTEGER NOT NULL,
		date TEXT NOT NULL,
		field TEXT NOT NULL,
		old_value_json TEXT,
		new_value_json TEXT,
		edited_by TEXT NOT NULL,
		edited_by_name TEXT NOT NULL,
		edited_by_role TEXT NOT NULL,
		edited_at TEXT NOT NULL,
		remarks TEXT NOT NULL DEFAULT '',
		UNIQUE(ledger_id, seq)
	);

	-- Employees
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		emp_no TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		gross_salary REAL NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	-- Settings
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Source collections
	CREATE TABLE IF NOT EXISTS attendance_daily (
		id TEXT PRIMARY KEY,
		emp_no TEXT NOT NULL,
		date TEXT NOT NULL,
		status TEXT NOT NULL,
		shift_id TEXT NOT NULL DEFAULT '',
		shift_name TEXT NOT NULL DEFAULT '',
		is_late BOOLEAN DEFAULT FALSE,
		is_early_out BOOLEAN DEFAULT FALSE,
		UNIQUE(emp_no, date)
	);

	CREATE TABLE IF NOT EXISTS leaves (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		from_date TEXT NOT NULL,
		to_date TEXT NOT NULL,
		is_half_day BOOLEAN DEFAULT FALSE,
		half_day_type TEXT NOT NULL DEFAULT '',
		leave_type TEXT NOT NULL,
		status TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leaves_employee_dates
		ON leaves(employee_id, from_date, to_date);

	CREATE TABLE IF NOT EXISTS leave_splits (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		leave_id TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		is_half_day BOOLEAN DEFAULT FALSE,
		half_day_type TEXT NOT NULL DEFAULT '',
		leave_type TEXT NOT NULL,
		leave_nature TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leave_splits_employee_date
		ON leave_splits(employee_id, date);

	CREATE TABLE IF NOT EXISTS leave_types (
		code TEXT PRIMARY KEY,
		nature TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS ods (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		from_date TEXT NOT NULL,
		to_date TEXT NOT NULL,
		is_half_day BOOLEAN DEFAULT FALSE,
		half_day_type TEXT NOT NULL DEFAULT '',
		purpose TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ods_employee_dates
		ON ods(employee_id, from_date, to_date);

	CREATE TABLE IF NOT EXISTS overtime (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		date TEXT NOT NULL,
		ot_hours REAL NOT NULL,
		status TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_overtime_employee_date
		ON overtime(employee_id, date);

	CREATE TABLE IF NOT EXISTS shift_roster (
		emp_no TEXT NOT NULL,
		date TEXT NOT NULL,
		shift_id TEXT NOT NULL DEFAULT '',
		shift_name TEXT NOT NULL DEFAULT '',
		marker TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (emp_no, date)
	);

	-- Bonus
	CREATE TABLE IF NOT EXISTS bonus_policies (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		is_active BOOLEAN DEFAULT TRUE,
		policy_json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS bonus_batches (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		policy_id TEXT NOT NULL,
		start_month TEXT NOT NULL,
		end_month TEXT NOT NULL,
		status TEXT NOT NULL,
		batch_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func isUniqueConstraintError(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
			se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func timePtr(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

func parseDate(s string) (payregister.Date, error) {
	d, err := payregister.ParseDate(s)
	if err != nil {
		return payregister.Date{}, fmt.Errorf("corrupt date %q: %w", s, err)
	}
	return d, nil
}
