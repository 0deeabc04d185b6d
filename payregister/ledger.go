/*
ledger.go - The pay register aggregate for one employee and one cycle

PURPOSE:
  A Ledger owns the DailyRecords of one (employee, cycle) pair, the derived
  Totals, the append-only EditHistory and the sync metadata. Exactly one
  ledger exists per key; stores reject a second one with ErrLedgerExists.

RECORD ARENA:
  Records are kept in date order in a slice with a date -> index map.
  Callers read copies (Record) and write whole records back (putRecord), so
  edit diffing always compares two independent values.

LIFECYCLE:
  draft -> in_review -> finalized
  in_review -> draft     (sent back)
  draft -> finalized     (direct sign-off)
  finalized is terminal: no edits, syncs, bulk distribution or status moves.

SEE ALSO:
  - totals.go: Recalculate
  - guard.go: IsProtected
  - edit.go: UpdateDailyRecord
*/
package payregister

import (
	"fmt"
	"sort"
	"time"
)

// =============================================================================
// LEDGER STATUS
// =============================================================================

type LedgerStatus string

const (
	LedgerDraft     LedgerStatus = "draft"
	LedgerInReview  LedgerStatus = "in_review"
	LedgerFinalized LedgerStatus = "finalized"
)

var ledgerTransitions = map[LedgerStatus][]LedgerStatus{
	LedgerDraft:    {LedgerInReview, LedgerFinalized},
	LedgerInReview: {LedgerDraft, LedgerFinalized},
}

// CanTransitionTo reports whether the move is allowed.
func (s LedgerStatus) CanTransitionTo(next LedgerStatus) bool {
	for _, allowed := range ledgerTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// =============================================================================
// SYNC METADATA
// =============================================================================

// SyncTimestamps records the last time each source was pulled in.
type SyncTimestamps struct {
	Attendance *time.Time `json:"attendance,omitempty"`
	Leaves     *time.Time `json:"leaves,omitempty"`
	ODs        *time.Time `json:"ods,omitempty"`
	Overtime   *time.Time `json:"ot,omitempty"`
	Shifts     *time.Time `json:"shifts,omitempty"`
}

func (s *SyncTimestamps) touchAll(at time.Time) {
	t := at
	s.Attendance, s.Leaves, s.ODs, s.Overtime, s.Shifts = &t, &t, &t, &t, &t
}

// =============================================================================
// LEDGER
// =============================================================================

type Ledger struct {
	ID             string       `json:"id"`
	EmployeeID     string       `json:"employeeId"`
	EmployeeNumber string       `json:"empNo"`
	EmployeeName   string       `json:"employeeName,omitempty"`
	Cycle          CycleKey     `json:"month"`
	MonthName      string       `json:"monthName"`
	Range          CycleRange   `json:"range"`
	Status         LedgerStatus `json:"status"`
	Notes          string       `json:"notes,omitempty"`

	Records     []DailyRecord      `json:"dailyRecords"`
	Totals      Totals             `json:"totals"`
	EditHistory []EditHistoryEntry `json:"editHistory"`

	LastAutoSyncedAt *time.Time     `json:"lastAutoSyncedAt,omitempty"`
	SyncedAt         SyncTimestamps `json:"lastSyncedAt"`

	LastEditedBy string     `json:"lastEditedBy,omitempty"`
	LastEditedAt *time.Time `json:"lastEditedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`

	index map[Date]int
}

// NewLedger returns a draft ledger with the given records, sorted by date.
func NewLedger(id string, emp Employee, cycle CycleKey, r CycleRange, records []DailyRecord, now time.Time) *Ledger {
	l := &Ledger{
		ID:             id,
		EmployeeID:     emp.ID,
		EmployeeNumber: emp.Number,
		EmployeeName:   emp.Name,
		Cycle:          cycle,
		MonthName:      cycle.MonthName(),
		Range:          r,
		Status:         LedgerDraft,
		Records:        records,
		EditHistory:    []EditHistoryEntry{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	l.Reindex()
	l.Recalculate()
	return l
}

// Reindex sorts the records and rebuilds the date index. Stores call it
// after loading a ledger.
func (l *Ledger) Reindex() {
	sort.SliceStable(l.Records, func(i, j int) bool {
		return l.Records[i].Date.Before(l.Records[j].Date)
	})
	l.index = make(map[Date]int, len(l.Records))
	for i, r := range l.Records {
		l.index[r.Date] = i
	}
}

// Record returns a copy of the record for d.
func (l *Ledger) Record(d Date) (DailyRecord, bool) {
	i, ok := l.lookup(d)
	if !ok {
		return DailyRecord{}, false
	}
	return l.Records[i].Clone(), true
}

func (l *Ledger) lookup(d Date) (int, bool) {
	if l.index == nil {
		l.Reindex()
	}
	i, ok := l.index[d]
	return i, ok
}

// putRecord replaces the record for its date, or inserts it in order.
func (l *Ledger) putRecord(rec DailyRecord) {
	rec.Normalize()
	if i, ok := l.lookup(rec.Date); ok {
		l.Records[i] = rec
		return
	}
	l.Records = append(l.Records, rec)
	l.Reindex()
}

// rebuildRecords replaces the record set with one record per date of r.
// Protected dates keep their existing record; dates outside r are dropped.
// It returns the number of protected records kept.
func (l *Ledger) rebuildRecords(r CycleRange, snap *Snapshot) int {
	protected := ProtectedDates(l)
	dates := r.Dates()
	records := make([]DailyRecord, 0, len(dates))
	kept := 0
	for _, d := range dates {
		if protected[d] {
			if i, ok := l.lookup(d); ok {
				records = append(records, l.Records[i])
				kept++
				continue
			}
		}
		rec := BuildRecord(d, snap.For(d))
		rec.Normalize()
		records = append(records, rec)
	}
	l.Records = records
	l.Reindex()
	return kept
}

// Recalculate rederives Totals, keeping the ExtraDays override.
func (l *Ledger) Recalculate() {
	l.Totals = CalculateTotals(l.Records, l.Totals.ExtraDays)
}

// SetExtraDays sets the manual override and recalculates.
func (l *Ledger) SetExtraDays(days float64) {
	l.Totals.ExtraDays = days
	l.Recalculate()
}

// RefreshMetadata updates display fields from a freshly resolved range. It
// never rebuilds records.
func (l *Ledger) RefreshMetadata(r CycleRange) {
	l.MonthName = l.Cycle.MonthName()
	l.Range = r
}

// EnsureMutable returns ErrLedgerFinalized for finalized ledgers.
func (l *Ledger) EnsureMutable() error {
	if l.Status == LedgerFinalized {
		return fmt.Errorf("%w: %s %s", ErrLedgerFinalized, l.EmployeeID, l.Cycle)
	}
	return nil
}

// Transition moves the ledger to next if allowed.
func (l *Ledger) Transition(next LedgerStatus, actor Actor, now time.Time) error {
	if err := l.EnsureMutable(); err != nil {
		return err
	}
	if !l.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, l.Status, next)
	}
	l.Status = next
	l.markEdited(actor, now)
	return nil
}

func (l *Ledger) markEdited(actor Actor, now time.Time) {
	t := now
	l.LastEditedBy = actor.ID
	l.LastEditedAt = &t
	l.UpdatedAt = now
}

// appendHistory is the only writer of EditHistory.
func (l *Ledger) appendHistory(entries ...EditHistoryEntry) {
	l.EditHistory = append(l.EditHistory, entries...)
}

// Clone returns a deep copy.
func (l *Ledger) Clone() *Ledger {
	c := *l
	c.Records = make([]DailyRecord, len(l.Records))
	for i, r := range l.Records {
		c.Records[i] = r.Clone()
	}
	c.EditHistory = make([]EditHistoryEntry, len(l.EditHistory))
	copy(c.EditHistory, l.EditHistory)
	c.index = nil
	c.Reindex()
	return &c
}
