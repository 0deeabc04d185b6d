package store

import (
	"context"
	"strings"
	"sync"

	"github.com/warp/payregister-engine/payregister"
)

// =============================================================================
// MEMORY SOURCES - In-memory source collaborators
// =============================================================================

// Sources holds every source collection in memory. Fail makes a named source
// return an error, which is how tests exercise fetch failures.
type Sources struct {
	mu         sync.RWMutex
	attendance []payregister.AttendanceEntry
	leaves     []payregister.LeaveRequest
	splits     []payregister.LeaveSplit
	ods        []payregister.ODRequest
	overtime   []payregister.OvertimeEntry
	roster     []payregister.RosterEntry
	leaveTypes map[string]payregister.LeaveNature
	failures   map[string]error
}

func NewSources() *Sources {
	return &Sources{
		leaveTypes: make(map[string]payregister.LeaveNature),
		failures:   make(map[string]error),
	}
}

// Bundle returns the collaborators wired for an Engine.
func (s *Sources) Bundle() payregister.Sources {
	return payregister.Sources{
		Attendance:    s,
		Leaves:        s,
		LeaveSettings: s,
		ODs:           s,
		Overtime:      s,
		Roster:        s,
	}
}

func (s *Sources) Fail(source string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[source] = err
}

func (s *Sources) AddAttendance(e ...payregister.AttendanceEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attendance = append(s.attendance, e...)
}

func (s *Sources) AddLeave(l ...payregister.LeaveRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaves = append(s.leaves, l...)
}

func (s *Sources) AddLeaveSplit(l ...payregister.LeaveSplit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.splits = append(s.splits, l...)
}

func (s *Sources) AddOD(o ...payregister.ODRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ods = append(s.ods, o...)
}

func (s *Sources) AddOvertime(o ...payregister.OvertimeEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overtime = append(s.overtime, o...)
}

func (s *Sources) AddRoster(r ...payregister.RosterEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roster = append(s.roster, r...)
}

func (s *Sources) SetLeaveType(code string, nature payregister.LeaveNature) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaveTypes[strings.ToUpper(code)] = nature
}

// Reset drops every source record, keeping leave types.
func (s *Sources) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attendance, s.leaves, s.splits, s.ods, s.overtime, s.roster = nil, nil, nil, nil, nil, nil
}

func (s *Sources) FetchAttendance(_ context.Context, employeeNumber string, r payregister.CycleRange) ([]payregister.AttendanceEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failures["attendance"]; err != nil {
		return nil, err
	}
	var out []payregister.AttendanceEntry
	for _, e := range s.attendance {
		if e.EmployeeNumber == employeeNumber && r.Contains(e.Date) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Sources) FetchLeaves(_ context.Context, employeeID string, r payregister.CycleRange) ([]payregister.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failures["leaves"]; err != nil {
		return nil, err
	}
	var out []payregister.LeaveRequest
	for _, l := range s.leaves {
		if l.EmployeeID == employeeID && !l.ToDate.Before(r.Start) && !l.FromDate.After(r.End) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *Sources) FetchLeaveSplits(_ context.Context, employeeID string, r payregister.CycleRange) ([]payregister.LeaveSplit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failures["leave_splits"]; err != nil {
		return nil, err
	}
	var out []payregister.LeaveSplit
	for _, l := range s.splits {
		if l.EmployeeID == employeeID && r.Contains(l.Date) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *Sources) LeaveNature(_ context.Context, code string) (payregister.LeaveNature, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failures["leave_settings"]; err != nil {
		return "", false, err
	}
	n, ok := s.leaveTypes[strings.ToUpper(code)]
	return n, ok, nil
}

func (s *Sources) FetchODs(_ context.Context, employeeID string, r payregister.CycleRange) ([]payregister.ODRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failures["ods"]; err != nil {
		return nil, err
	}
	var out []payregister.ODRequest
	for _, o := range s.ods {
		if o.EmployeeID == employeeID && !o.ToDate.Before(r.Start) && !o.FromDate.After(r.End) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *Sources) FetchOvertime(_ context.Context, employeeID string, r payregister.CycleRange) ([]payregister.OvertimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failures["overtime"]; err != nil {
		return nil, err
	}
	var out []payregister.OvertimeEntry
	for _, o := range s.overtime {
		if o.EmployeeID == employeeID && r.Contains(o.Date) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *Sources) FetchRoster(_ context.Context, employeeNumber string, r payregister.CycleRange) ([]payregister.RosterEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failures["roster"]; err != nil {
		return nil, err
	}
	var out []payregister.RosterEntry
	for _, e := range s.roster {
		if e.EmployeeNumber == employeeNumber && r.Contains(e.Date) {
			out = append(out, e)
		}
	}
	return out, nil
}
