/*
sources.go - Source collaborators and the per-date aggregation step

PURPOSE:
  A ledger is derived from five independently maintained collections:
  biometric attendance, leave (plus day-level leave splits), on-duty,
  overtime and the shift roster. Aggregate fetches all of them for one
  employee and cycle and indexes them by calendar date.

CONCURRENCY:
  The five fetches are independent reads and run concurrently under an
  errgroup. Conflict resolution waits for every fetch (the group is the
  barrier). The first failure cancels the others and is returned as a
  *SourceFetchError; a failure is never reported as "no data".

FILTERING:
  Only approved requests contribute. Multi-day requests are expanded per date
  and clipped to the cycle range. A leave split for a date replaces the
  half-day flags, type and nature of the expanded leave on that date.

SEE ALSO:
  - resolve.go: turns one date's DaySources into two halves
  - leavepolicy.go: nature resolution used while aggregating
*/
package payregister

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// =============================================================================
// SOURCE RECORDS
// =============================================================================

type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestApproved  RequestStatus = "approved"
	RequestRejected  RequestStatus = "rejected"
	RequestCancelled RequestStatus = "cancelled"
)

// AttendanceStatus is the raw biometric day status.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "PRESENT"
	AttendanceHalfDay AttendanceStatus = "HALF_DAY"
	AttendancePartial AttendanceStatus = "PARTIAL"
	AttendanceAbsent  AttendanceStatus = "ABSENT"
)

type AttendanceEntry struct {
	ID             string           `json:"id"`
	EmployeeNumber string           `json:"empNo"`
	Date           Date             `json:"date"`
	Status         AttendanceStatus `json:"status"`
	ShiftID        string           `json:"shiftId,omitempty"`
	ShiftName      string           `json:"shiftName,omitempty"`
	IsLate         bool             `json:"isLate"`
	IsEarlyOut     bool             `json:"isEarlyOut"`
}

type LeaveRequest struct {
	ID          string        `json:"id"`
	EmployeeID  string        `json:"employeeId"`
	FromDate    Date          `json:"fromDate"`
	ToDate      Date          `json:"toDate"`
	IsHalfDay   bool          `json:"isHalfDay"`
	HalfDayType HalfDayType   `json:"halfDayType,omitempty"`
	LeaveType   string        `json:"leaveType"`
	Status      RequestStatus `json:"status"`
}

// LeaveSplit is a day-level correction of an approved leave.
type LeaveSplit struct {
	ID          string        `json:"id"`
	EmployeeID  string        `json:"employeeId"`
	LeaveID     string        `json:"leaveId,omitempty"`
	Date        Date          `json:"date"`
	IsHalfDay   bool          `json:"isHalfDay"`
	HalfDayType HalfDayType   `json:"halfDayType,omitempty"`
	LeaveType   string        `json:"leaveType"`
	LeaveNature LeaveNature   `json:"leaveNature,omitempty"`
	Status      RequestStatus `json:"status"`
}

type ODRequest struct {
	ID          string        `json:"id"`
	EmployeeID  string        `json:"employeeId"`
	FromDate    Date          `json:"fromDate"`
	ToDate      Date          `json:"toDate"`
	IsHalfDay   bool          `json:"isHalfDay"`
	HalfDayType HalfDayType   `json:"halfDayType,omitempty"`
	Purpose     string        `json:"purpose,omitempty"`
	Status      RequestStatus `json:"status"`
}

type OvertimeEntry struct {
	ID         string        `json:"id"`
	EmployeeID string        `json:"employeeId"`
	Date       Date          `json:"date"`
	OTHours    float64       `json:"otHours"`
	Status     RequestStatus `json:"status"`
}

// RosterMarker flags a rostered non-working day.
type RosterMarker string

const (
	MarkerNone    RosterMarker = ""
	MarkerWeekOff RosterMarker = "WO"
	MarkerHoliday RosterMarker = "HOL"
)

type RosterEntry struct {
	EmployeeNumber string       `json:"empNo"`
	Date           Date         `json:"date"`
	ShiftID        string       `json:"shiftId,omitempty"`
	ShiftName      string       `json:"shiftName,omitempty"`
	Marker         RosterMarker `json:"marker,omitempty"`
}

// =============================================================================
// COLLABORATOR INTERFACES
// =============================================================================

type AttendanceSource interface {
	FetchAttendance(ctx context.Context, employeeNumber string, r CycleRange) ([]AttendanceEntry, error)
}

type LeaveSource interface {
	FetchLeaves(ctx context.Context, employeeID string, r CycleRange) ([]LeaveRequest, error)
	FetchLeaveSplits(ctx context.Context, employeeID string, r CycleRange) ([]LeaveSplit, error)
}

type ODSource interface {
	FetchODs(ctx context.Context, employeeID string, r CycleRange) ([]ODRequest, error)
}

type OvertimeSource interface {
	FetchOvertime(ctx context.Context, employeeID string, r CycleRange) ([]OvertimeEntry, error)
}

type RosterSource interface {
	FetchRoster(ctx context.Context, employeeNumber string, r CycleRange) ([]RosterEntry, error)
}

// Sources bundles the collaborators. A nil collaborator contributes no data.
type Sources struct {
	Attendance    AttendanceSource
	Leaves        LeaveSource
	LeaveSettings LeaveSettings
	ODs           ODSource
	Overtime      OvertimeSource
	Roster        RosterSource
}

// =============================================================================
// DATE-INDEXED SNAPSHOT
// =============================================================================

// LeaveDay is the leave coverage of one date after split overrides.
type LeaveDay struct {
	LeaveIDs    []string
	SplitIDs    []string
	IsHalfDay   bool
	HalfDayType HalfDayType
	LeaveType   string
	Nature      LeaveNature
}

type ODDay struct {
	ODIDs       []string
	IsHalfDay   bool
	HalfDayType HalfDayType
}

type OvertimeDay struct {
	Hours float64
	OTIDs []string
}

// Snapshot is the output of Aggregate: five maps keyed by date.
type Snapshot struct {
	Attendance map[Date]AttendanceEntry
	Leaves     map[Date]*LeaveDay
	ODs        map[Date]*ODDay
	Overtime   map[Date]*OvertimeDay
	Roster     map[Date]RosterEntry
}

// DaySources is everything known about one date. Nil means no entry.
type DaySources struct {
	Attendance *AttendanceEntry
	Leave      *LeaveDay
	OD         *ODDay
	Overtime   *OvertimeDay
	Roster     *RosterEntry
}

func (s *Snapshot) For(d Date) DaySources {
	var ds DaySources
	if a, ok := s.Attendance[d]; ok {
		ds.Attendance = &a
	}
	ds.Leave = s.Leaves[d]
	ds.OD = s.ODs[d]
	ds.Overtime = s.Overtime[d]
	if r, ok := s.Roster[d]; ok {
		ds.Roster = &r
	}
	return ds
}

// =============================================================================
// AGGREGATE
// =============================================================================

// Aggregate fetches every source for the employee over r and indexes the
// results by date.
func Aggregate(ctx context.Context, emp Employee, r CycleRange, src Sources) (*Snapshot, error) {
	snap := &Snapshot{
		Attendance: map[Date]AttendanceEntry{},
		Leaves:     map[Date]*LeaveDay{},
		ODs:        map[Date]*ODDay{},
		Overtime:   map[Date]*OvertimeDay{},
		Roster:     map[Date]RosterEntry{},
	}

	// Each goroutine owns exactly one map.
	g, ctx := errgroup.WithContext(ctx)

	if src.Attendance != nil {
		g.Go(func() error {
			entries, err := src.Attendance.FetchAttendance(ctx, emp.Number, r)
			if err != nil {
				return &SourceFetchError{Source: "attendance", Err: err}
			}
			for _, e := range entries {
				if !r.Contains(e.Date) {
					continue
				}
				if _, dup := snap.Attendance[e.Date]; !dup {
					snap.Attendance[e.Date] = e
				}
			}
			return nil
		})
	}

	if src.Leaves != nil {
		g.Go(func() error {
			return aggregateLeaves(ctx, emp.ID, r, src.Leaves, src.LeaveSettings, snap.Leaves)
		})
	}

	if src.ODs != nil {
		g.Go(func() error {
			ods, err := src.ODs.FetchODs(ctx, emp.ID, r)
			if err != nil {
				return &SourceFetchError{Source: "ods", Err: err}
			}
			for _, od := range ods {
				if od.Status != RequestApproved {
					continue
				}
				for _, d := range expand(od.FromDate, od.ToDate, r) {
					day, ok := snap.ODs[d]
					if !ok {
						day = &ODDay{IsHalfDay: od.IsHalfDay, HalfDayType: od.HalfDayType}
						snap.ODs[d] = day
					}
					day.ODIDs = append(day.ODIDs, od.ID)
				}
			}
			return nil
		})
	}

	if src.Overtime != nil {
		g.Go(func() error {
			ots, err := src.Overtime.FetchOvertime(ctx, emp.ID, r)
			if err != nil {
				return &SourceFetchError{Source: "overtime", Err: err}
			}
			for _, ot := range ots {
				if ot.Status != RequestApproved || !r.Contains(ot.Date) {
					continue
				}
				day, ok := snap.Overtime[ot.Date]
				if !ok {
					day = &OvertimeDay{}
					snap.Overtime[ot.Date] = day
				}
				day.Hours += ot.OTHours
				day.OTIDs = append(day.OTIDs, ot.ID)
			}
			return nil
		})
	}

	if src.Roster != nil {
		g.Go(func() error {
			entries, err := src.Roster.FetchRoster(ctx, emp.Number, r)
			if err != nil {
				return &SourceFetchError{Source: "roster", Err: err}
			}
			for _, e := range entries {
				if r.Contains(e.Date) {
					snap.Roster[e.Date] = e
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

func aggregateLeaves(ctx context.Context, employeeID string, r CycleRange, src LeaveSource, settings LeaveSettings, out map[Date]*LeaveDay) error {
	leaves, err := src.FetchLeaves(ctx, employeeID, r)
	if err != nil {
		return &SourceFetchError{Source: "leaves", Err: err}
	}
	splits, err := src.FetchLeaveSplits(ctx, employeeID, r)
	if err != nil {
		return &SourceFetchError{Source: "leave_splits", Err: err}
	}

	for _, l := range leaves {
		if l.Status != RequestApproved {
			continue
		}
		for _, d := range expand(l.FromDate, l.ToDate, r) {
			day, ok := out[d]
			if !ok {
				day = &LeaveDay{IsHalfDay: l.IsHalfDay, HalfDayType: l.HalfDayType, LeaveType: l.LeaveType}
				out[d] = day
			}
			day.LeaveIDs = append(day.LeaveIDs, l.ID)
		}
	}

	for _, s := range splits {
		if s.Status != RequestApproved || !r.Contains(s.Date) {
			continue
		}
		day, ok := out[s.Date]
		if !ok {
			day = &LeaveDay{}
			out[s.Date] = day
		}
		day.SplitIDs = append(day.SplitIDs, s.ID)
		day.IsHalfDay = s.IsHalfDay
		day.HalfDayType = s.HalfDayType
		day.LeaveType = s.LeaveType
		day.Nature = s.LeaveNature
	}

	// Resolve each distinct code once.
	natures := map[string]LeaveNature{}
	for _, day := range out {
		if day.Nature != "" {
			continue
		}
		n, ok := natures[day.LeaveType]
		if !ok {
			n, err = ResolveLeaveNature(ctx, settings, day.LeaveType)
			if err != nil {
				return &SourceFetchError{Source: "leave_settings", Err: err}
			}
			natures[day.LeaveType] = n
		}
		day.Nature = n
	}
	return nil
}

// expand returns the dates of [from, to] that fall inside r.
func expand(from, to Date, r CycleRange) []Date {
	if from.Before(r.Start) {
		from = r.Start
	}
	if to.After(r.End) {
		to = r.End
	}
	var dates []Date
	for d := from; !d.After(to); d = d.AddDays(1) {
		dates = append(dates, d)
	}
	return dates
}
