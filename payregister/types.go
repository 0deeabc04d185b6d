/*
Package payregister reconciles attendance sources into per-employee,
per-cycle pay registers.

PURPOSE:
  For every employee and payroll cycle the engine builds one Ledger: a
  DailyRecord per calendar date, merged from biometric attendance, leave,
  on-duty and overtime sources plus the shift roster. Summary Totals are
  derived from the records and consumed by payroll and bonus calculation.

KEY CONCEPTS IN THIS FILE (types.go):
  - Status: closed set of half-day statuses
  - LeaveNature: paid / lop / without_pay
  - HalfDay: the status of one half of a working day
  - DailyRecord: two halves plus derived full-day mirror fields
  - EditHistoryEntry: immutable audit entry for a manual change

DESIGN PRINCIPLES:
  1. Derived, not trusted: IsSplit and the full-day fields are recomputed from
     the halves by Normalize; they are never set independently.
  2. Copy before mutate: Clone returns a deep copy so edits can diff old/new.
  3. Audit: manual changes append EditHistoryEntry values, never rewrite them.

SEE ALSO:
  - ledger.go: the aggregate root
  - totals.go: Totals derivation
  - resolve.go: how halves are produced from sources
*/
package payregister

import "time"

// =============================================================================
// STATUS
// =============================================================================

type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLeave   Status = "leave"
	StatusOD      Status = "od"
	StatusHoliday Status = "holiday"
	StatusWeekOff Status = "week_off"
)

var allStatuses = []Status{StatusPresent, StatusAbsent, StatusLeave, StatusOD, StatusHoliday, StatusWeekOff}

func (s Status) Valid() bool {
	for _, v := range allStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// IsOff reports holiday and week-off, which never count as attendance.
func (s Status) IsOff() bool { return s == StatusHoliday || s == StatusWeekOff }

// IsNonWorking reports statuses an OD or a clock-in may replace.
func (s Status) IsNonWorking() bool { return s == StatusAbsent || s.IsOff() }

// =============================================================================
// LEAVE NATURE
// =============================================================================

type LeaveNature string

const (
	NaturePaid       LeaveNature = "paid"
	NatureLOP        LeaveNature = "lop"
	NatureWithoutPay LeaveNature = "without_pay"
)

// =============================================================================
// HALF DAY
// =============================================================================

type HalfDay struct {
	Status      Status      `json:"status"`
	LeaveType   string      `json:"leaveType,omitempty"`
	LeaveNature LeaveNature `json:"leaveNature,omitempty"`
	IsOD        bool        `json:"isOD"`
	OTHours     float64     `json:"otHours"`
	ShiftID     string      `json:"shiftId,omitempty"`
	Remarks     string      `json:"remarks,omitempty"`
}

func absentHalf() HalfDay { return HalfDay{Status: StatusAbsent} }

// setStatus switches the half's status and clears fields that only make
// sense for the previous one.
func (h *HalfDay) setStatus(s Status) {
	h.Status = s
	if s != StatusLeave {
		h.LeaveType = ""
		h.LeaveNature = ""
	}
	h.IsOD = s == StatusOD
}

// =============================================================================
// HALF DAY TYPE - which half a half-day source entry covers
// =============================================================================

type HalfDayType string

const (
	FirstHalf  HalfDayType = "first_half"
	SecondHalf HalfDayType = "second_half"
)

// =============================================================================
// DAILY RECORD
// =============================================================================

// DailyRecord is one calendar date of a ledger.
type DailyRecord struct {
	Date       Date    `json:"date"`
	FirstHalf  HalfDay `json:"firstHalf"`
	SecondHalf HalfDay `json:"secondHalf"`

	// Derived by Normalize. Full-day fields are empty while IsSplit.
	IsSplit     bool        `json:"isSplit"`
	Status      *Status     `json:"status"`
	LeaveType   string      `json:"leaveType,omitempty"`
	LeaveNature LeaveNature `json:"leaveNature,omitempty"`
	IsOD        bool        `json:"isOD"`

	OTHours   float64 `json:"otHours"`
	ShiftID   string  `json:"shiftId,omitempty"`
	ShiftName string  `json:"shiftName,omitempty"`

	// Source references, kept for audit traceability.
	AttendanceRecordID string   `json:"attendanceRecordId,omitempty"`
	LeaveIDs           []string `json:"leaveIds"`
	LeaveSplitIDs      []string `json:"leaveSplitIds"`
	ODIDs              []string `json:"odIds"`
	OTIDs              []string `json:"otIds"`

	Remarks          string `json:"remarks,omitempty"`
	IsLate           bool   `json:"isLate"`
	IsEarlyOut       bool   `json:"isEarlyOut"`
	IsManuallyEdited bool   `json:"isManuallyEdited"`
}

// NewDailyRecord returns an absent/absent record for the date.
func NewDailyRecord(d Date) DailyRecord {
	r := DailyRecord{
		Date:          d,
		FirstHalf:     absentHalf(),
		SecondHalf:    absentHalf(),
		LeaveIDs:      []string{},
		LeaveSplitIDs: []string{},
		ODIDs:         []string{},
		OTIDs:         []string{},
	}
	r.Normalize()
	return r
}

// Normalize recomputes IsSplit and the full-day mirror fields from the halves.
func (r *DailyRecord) Normalize() {
	r.IsSplit = r.FirstHalf.Status != r.SecondHalf.Status
	if r.IsSplit {
		r.Status = nil
		r.LeaveType = ""
		r.LeaveNature = ""
		r.IsOD = false
		return
	}
	s := r.FirstHalf.Status
	r.Status = &s
	r.LeaveType = r.FirstHalf.LeaveType
	r.LeaveNature = r.FirstHalf.LeaveNature
	r.IsOD = r.FirstHalf.IsOD
}

// DayStatus is the full-day status, or the first half's while split.
func (r DailyRecord) DayStatus() Status {
	if r.Status != nil {
		return *r.Status
	}
	return r.FirstHalf.Status
}

// ActuallySplit recomputes split state from the halves; the stored IsSplit
// flag may be stale on records loaded from older data.
func (r DailyRecord) ActuallySplit() bool {
	return r.FirstHalf.Status != "" && r.SecondHalf.Status != "" &&
		r.FirstHalf.Status != r.SecondHalf.Status
}

// IsOffDay reports a record where either half or the full day is holiday/week-off.
func (r DailyRecord) IsOffDay() bool {
	if r.Status != nil && r.Status.IsOff() {
		return true
	}
	return r.FirstHalf.Status.IsOff() || r.SecondHalf.Status.IsOff()
}

// HasWork reports a record carrying at least one present or OD half.
func (r DailyRecord) HasWork() bool {
	worked := func(s Status) bool { return s == StatusPresent || s == StatusOD }
	return worked(r.FirstHalf.Status) || worked(r.SecondHalf.Status)
}

// Clone returns a deep copy.
func (r DailyRecord) Clone() DailyRecord {
	c := r
	if r.Status != nil {
		s := *r.Status
		c.Status = &s
	}
	c.LeaveIDs = cloneStrings(r.LeaveIDs)
	c.LeaveSplitIDs = cloneStrings(r.LeaveSplitIDs)
	c.ODIDs = cloneStrings(r.ODIDs)
	c.OTIDs = cloneStrings(r.OTIDs)
	return c
}

func (r *DailyRecord) appendRemark(remark string) {
	if r.Remarks == "" {
		r.Remarks = remark
		return
	}
	r.Remarks = r.Remarks + " | " + remark
}

func cloneStrings(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// =============================================================================
// AUDIT
// =============================================================================

// Actor is the user performing a manual change.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// SystemActor is used when no user context is available.
var SystemActor = Actor{ID: "system", Name: "System", Role: "system"}

// EditHistoryEntry is immutable once appended.
type EditHistoryEntry struct {
	ID           string    `json:"id"`
	Date         Date      `json:"date"`
	Field        string    `json:"field"`
	OldValue     any       `json:"oldValue"`
	NewValue     any       `json:"newValue"`
	EditedBy     string    `json:"editedBy"`
	EditedByName string    `json:"editedByName"`
	EditedByRole string    `json:"editedByRole"`
	EditedAt     time.Time `json:"editedAt"`
	Remarks      string    `json:"remarks,omitempty"`
}

// =============================================================================
// EMPLOYEE
// =============================================================================

// Employee is the subset of the employee master the engine needs.
type Employee struct {
	ID          string  `json:"id"`
	Number      string  `json:"empNo"`
	Name        string  `json:"name"`
	GrossSalary float64 `json:"grossSalary"`
}
