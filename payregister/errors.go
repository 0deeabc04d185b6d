/*
errors.go - Centralized error types for the pay register engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers classify with errors.Is / errors.As; the API maps categories to
  HTTP statuses through IsClientError and IsNotFound.

ERROR CATEGORIES:
  1. Validation errors - malformed daily-record patch, rejected before any mutation
  2. Not-found errors  - unknown employee, unknown ledger for read-only operations
  3. Source errors     - a collaborator fetch failed (never treated as "no data")
  4. State errors      - finalized ledger, invalid lifecycle transition

SEE ALSO:
  - batch.go: BatchReport, per-unit failure isolation
*/
package payregister

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrLedgerNotFound is returned when no ledger exists for (employee, cycle).
	ErrLedgerNotFound = errors.New("ledger not found")

	// ErrEmployeeNotFound is returned when an employee id or code is unknown.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrLedgerExists is returned by stores when a second ledger would be
	// created for the same (employee, cycle) key.
	ErrLedgerExists = errors.New("ledger already exists")

	// ErrLedgerFinalized is returned for any mutation of a finalized ledger.
	ErrLedgerFinalized = errors.New("ledger is finalized")

	// ErrInvalidTransition is returned for a disallowed lifecycle move.
	ErrInvalidTransition = errors.New("invalid ledger status transition")

	// ErrInvalidPatch is the sentinel behind every *ValidationError.
	ErrInvalidPatch = errors.New("invalid daily record patch")

	// ErrSourceFetch is the sentinel behind every *SourceFetchError.
	ErrSourceFetch = errors.New("source fetch failed")

	// ErrInvalidCycleKey is returned for cycle keys that are not YYYY-MM.
	ErrInvalidCycleKey = errors.New("invalid cycle key")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError lists every problem found in a patch.
type ValidationError struct {
	Date     Date
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Date, strings.Join(e.Problems, ", "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidPatch }

// NotFoundError names what was missing.
type NotFoundError struct {
	Kind string // "employee" or "ledger"
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.Key)
}

func (e *NotFoundError) Unwrap() error {
	if e.Kind == "employee" {
		return ErrEmployeeNotFound
	}
	return ErrLedgerNotFound
}

// SourceFetchError wraps a failing collaborator call.
type SourceFetchError struct {
	Source string // attendance, leaves, leave_splits, leave_settings, ods, overtime, roster
	Err    error
}

func (e *SourceFetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

// Unwrap exposes both the sentinel and the cause.
func (e *SourceFetchError) Unwrap() []error { return []error{ErrSourceFetch, e.Err} }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input or state.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPatch) ||
		errors.Is(err, ErrInvalidCycleKey) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrLedgerFinalized)
}

// IsNotFound returns true if the error indicates a missing employee or ledger.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrLedgerNotFound) || errors.Is(err, ErrEmployeeNotFound)
}
