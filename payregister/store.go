/*
store.go - Persistence interfaces for ledgers and the employee master

PURPOSE:
  Defines the boundary between the engine and storage. Implementations:
  - payregister/store/memory.go: in-memory, for tests and development
  - store/sqlite/sqlite.go: SQLite

UNIQUENESS:
  One ledger per (employee, cycle). CreateLedger returns ErrLedgerExists for
  a duplicate key.

APPEND-ONLY HISTORY:
  SaveLedger replaces records, totals and metadata, but edit history is only
  ever appended: entries already stored are never rewritten or removed.
*/
package payregister

import "context"

// LedgerStore persists ledgers.
type LedgerStore interface {
	// GetLedger returns ErrLedgerNotFound when no ledger exists for the key.
	GetLedger(ctx context.Context, employeeID string, cycle CycleKey) (*Ledger, error)

	// CreateLedger inserts a new ledger. Returns ErrLedgerExists on duplicates.
	CreateLedger(ctx context.Context, l *Ledger) error

	// SaveLedger updates an existing ledger and appends new history entries.
	SaveLedger(ctx context.Context, l *Ledger) error

	// ListLedgers returns every ledger of the cycle, ordered by employee number.
	ListLedgers(ctx context.Context, cycle CycleKey) ([]*Ledger, error)

	// ListEmployeeLedgers returns the employee's ledgers with from <= cycle <= to.
	ListEmployeeLedgers(ctx context.Context, employeeID string, from, to CycleKey) ([]*Ledger, error)
}

// EmployeeDirectory resolves employees. Lookups of unknown employees return
// an error matching ErrEmployeeNotFound.
type EmployeeDirectory interface {
	GetEmployee(ctx context.Context, id string) (Employee, error)
	FindEmployeeByNumber(ctx context.Context, number string) (Employee, error)
	ListEmployees(ctx context.Context) ([]Employee, error)
}
