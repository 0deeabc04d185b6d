/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:
	Provides pre-built scenarios that populate the database with realistic
	source data (roster, biometric attendance, leaves, ODs, overtime) and
	build the ledgers from it, so the register, edit and bonus screens have
	something to show.

AVAILABLE SCENARIOS:
	standard-month:   Calendar-month cycle with leave, half-day LOP, OD and OT
	mid-month-cycle:  26th-to-25th cycle with a leave split across the boundary
	bonus-quarter:    Three months of ledgers plus two bonus policies

HOW SCENARIOS WORK:
 1. Clear the source collections (ledgers and their history are kept)
 2. Write cycle settings, leave types and employees
 3. Write the generated source rows
 4. Sync every employee's ledger for the scenario's cycles

USAGE VIA API:
	POST /api/scenarios/load
	{"scenario_id": "standard-month"}

ADDING NEW SCENARIOS:
 1. Add an entry to 'scenarioDefs' with ID, name, cycles and settings
 2. Write its build function against the seeder helpers

NOTE:
	Finalized ledgers are left untouched when a scenario is reloaded.

SEE ALSO:
  - handlers.go: Pay register endpoints
  - bonus/policy.go: Policy JSON presets
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/warp/payregister-engine/bonus"
	"github.com/warp/payregister-engine/payregister"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenarioDef struct {
	ScenarioDTO
	settings payregister.CycleSettings
	cycles   []payregister.CycleKey
	build    func(s *seeder)
}

var (
	scenarioEmployees = []payregister.Employee{
		{ID: "emp-asha", Number: "E001", Name: "Asha Rao", GrossSalary: 60000},
		{ID: "emp-vikram", Number: "E002", Name: "Vikram Shah", GrossSalary: 45000},
		{ID: "emp-meera", Number: "E003", Name: "Meera Iyer", GrossSalary: 52000},
	}

	scenarioLeaveTypes = map[string]payregister.LeaveNature{
		"CL":  payregister.NaturePaid,
		"SL":  payregister.NaturePaid,
		"EL":  payregister.NaturePaid,
		"LWP": payregister.NatureLOP,
	}
)

var scenarioDefs = []scenarioDef{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "standard-month",
			Name:        "Standard Month",
			Description: "Calendar-month cycle with paid leave, half-day LOP, OD, overtime and a holiday",
			Cycle:       "2026-02",
		},
		settings: payregister.CycleSettings{StartDay: 1, EndDay: 31},
		cycles:   []payregister.CycleKey{payregister.NewCycleKey(2026, time.February)},
		build:    buildStandardMonth,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "mid-month-cycle",
			Name:        "Mid-Month Cycle",
			Description: "26th to 25th cycle with a leave split and a pending leave that must be ignored",
			Cycle:       "2026-03",
		},
		settings: payregister.CycleSettings{StartDay: 26, EndDay: 25},
		cycles:   []payregister.CycleKey{payregister.NewCycleKey(2026, time.March)},
		build:    buildMidMonthCycle,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "bonus-quarter",
			Name:        "Bonus Quarter",
			Description: "Three months of ledgers with different attendance and two bonus policies",
			Cycle:       "2026-03",
		},
		settings: payregister.CycleSettings{StartDay: 1, EndDay: 31},
		cycles: []payregister.CycleKey{
			payregister.NewCycleKey(2026, time.January),
			payregister.NewCycleKey(2026, time.February),
			payregister.NewCycleKey(2026, time.March),
		},
		build: buildBonusQuarter,
	},
}

func findScenario(id string) (scenarioDef, bool) {
	for _, d := range scenarioDefs {
		if d.ID == id {
			return d, true
		}
	}
	return scenarioDef{}, false
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	out := make([]ScenarioDTO, len(scenarioDefs))
	for i, d := range scenarioDefs {
		out[i] = d.ScenarioDTO
	}
	writeJSON(w, http.StatusOK, out)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if d, ok := findScenario(current); ok {
		writeJSON(w, http.StatusOK, d.ScenarioDTO)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if _, ok := findScenario(req.ScenarioID); !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	report, err := h.ApplyScenario(r.Context(), req.ScenarioID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "loaded",
		"scenario": req.ScenarioID,
		"report":   report,
	})
}

// ApplyScenario writes the scenario's data and syncs its ledgers. Per-ledger
// failures are collected in the report.
func (h *Handler) ApplyScenario(ctx context.Context, id string) (payregister.BatchReport, error) {
	def, ok := findScenario(id)
	if !ok {
		return payregister.BatchReport{}, fmt.Errorf("unknown scenario %q", id)
	}

	s := &seeder{}
	def.build(s)

	if err := h.Store.ClearSources(ctx); err != nil {
		return payregister.BatchReport{}, err
	}
	if err := h.Store.SetCycleSettings(ctx, def.settings); err != nil {
		return payregister.BatchReport{}, err
	}
	for code, nature := range scenarioLeaveTypes {
		if err := h.Store.SaveLeaveType(ctx, code, nature); err != nil {
			return payregister.BatchReport{}, err
		}
	}
	for _, emp := range scenarioEmployees {
		if err := h.Store.SaveEmployee(ctx, emp); err != nil {
			return payregister.BatchReport{}, err
		}
	}
	if err := s.save(ctx, h); err != nil {
		return payregister.BatchReport{}, err
	}

	type unit struct {
		emp   payregister.Employee
		cycle payregister.CycleKey
	}
	var units []unit
	for _, c := range def.cycles {
		for _, emp := range scenarioEmployees {
			units = append(units, unit{emp, c})
		}
	}
	results := payregister.RunBatch(ctx, len(units), 1, func(ctx context.Context, i int) payregister.UnitResult {
		u := units[i]
		_, err := h.Engine.SyncLedger(ctx, u.emp.ID, u.cycle)
		return payregister.UnitResult{Label: fmt.Sprintf("Employee %s %s", u.emp.Number, u.cycle), Err: err}
	})
	report := payregister.Fold(results)

	h.mu.Lock()
	h.currentScenario = id
	h.mu.Unlock()

	h.log.Info("scenario loaded",
		slog.String("scenario", id),
		slog.Int("ledgers", report.Success),
		slog.Int("failed", report.Failed))
	return report, nil
}

// =============================================================================
// SEEDER
// =============================================================================

// seeder accumulates generated source rows.
type seeder struct {
	roster     []payregister.RosterEntry
	attendance []payregister.AttendanceEntry
	leaves     []payregister.LeaveRequest
	splits     []payregister.LeaveSplit
	ods        []payregister.ODRequest
	overtime   []payregister.OvertimeEntry
	policies   []string
}

func (s *seeder) save(ctx context.Context, h *Handler) error {
	if err := h.Store.SaveRoster(ctx, s.roster...); err != nil {
		return err
	}
	if err := h.Store.SaveAttendance(ctx, s.attendance...); err != nil {
		return err
	}
	if err := h.Store.SaveLeaves(ctx, s.leaves...); err != nil {
		return err
	}
	if err := h.Store.SaveLeaveSplits(ctx, s.splits...); err != nil {
		return err
	}
	if err := h.Store.SaveODs(ctx, s.ods...); err != nil {
		return err
	}
	if err := h.Store.SaveOvertime(ctx, s.overtime...); err != nil {
		return err
	}
	for _, doc := range s.policies {
		p, err := bonus.ParsePolicy([]byte(doc))
		if err != nil {
			return err
		}
		if _, err := h.Bonus.SavePolicy(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// month rosters every date of [from, to]: Sundays are week-offs, holidays
// are marked, and every other date gets the general shift plus a biometric
// PRESENT unless listed in skip.
func (s *seeder) month(emp payregister.Employee, from, to payregister.Date, holidays []payregister.Date, skip ...payregister.Date) {
	isHoliday := dateSet(holidays)
	skipped := dateSet(skip)
	for d := from; !d.After(to); d = d.AddDays(1) {
		switch {
		case d.Weekday() == time.Sunday:
			s.roster = append(s.roster, payregister.RosterEntry{EmployeeNumber: emp.Number, Date: d, Marker: payregister.MarkerWeekOff})
		case isHoliday[d]:
			s.roster = append(s.roster, payregister.RosterEntry{EmployeeNumber: emp.Number, Date: d, Marker: payregister.MarkerHoliday})
		default:
			s.roster = append(s.roster, payregister.RosterEntry{EmployeeNumber: emp.Number, Date: d, ShiftID: "GEN", ShiftName: "General 09:30-18:30"})
			if !skipped[d] {
				s.present(emp, d)
			}
		}
	}
}

func (s *seeder) present(emp payregister.Employee, d payregister.Date) {
	s.attendance = append(s.attendance, payregister.AttendanceEntry{
		ID:             fmt.Sprintf("att-%s-%s", emp.Number, d),
		EmployeeNumber: emp.Number,
		Date:           d,
		Status:         payregister.AttendancePresent,
	})
}

// mark rewrites the generated attendance for the date.
func (s *seeder) mark(emp payregister.Employee, d payregister.Date, fn func(a *payregister.AttendanceEntry)) {
	for i := range s.attendance {
		a := &s.attendance[i]
		if a.EmployeeNumber == emp.Number && a.Date == d {
			fn(a)
			return
		}
	}
}

func (s *seeder) leave(emp payregister.Employee, id, code string, from, to payregister.Date, status payregister.RequestStatus) {
	s.leaves = append(s.leaves, payregister.LeaveRequest{
		ID: id, EmployeeID: emp.ID, FromDate: from, ToDate: to, LeaveType: code, Status: status,
	})
}

func (s *seeder) halfDayLeave(emp payregister.Employee, id, code string, d payregister.Date, half payregister.HalfDayType) {
	s.leaves = append(s.leaves, payregister.LeaveRequest{
		ID: id, EmployeeID: emp.ID, FromDate: d, ToDate: d, IsHalfDay: true, HalfDayType: half,
		LeaveType: code, Status: payregister.RequestApproved,
	})
}

func (s *seeder) od(emp payregister.Employee, id, purpose string, from, to payregister.Date) {
	s.ods = append(s.ods, payregister.ODRequest{
		ID: id, EmployeeID: emp.ID, FromDate: from, ToDate: to, Purpose: purpose, Status: payregister.RequestApproved,
	})
}

func (s *seeder) ot(emp payregister.Employee, d payregister.Date, hours float64) {
	s.overtime = append(s.overtime, payregister.OvertimeEntry{
		ID: fmt.Sprintf("ot-%s-%s", emp.Number, d), EmployeeID: emp.ID, Date: d, OTHours: hours, Status: payregister.RequestApproved,
	})
}

func dateSet(dates []payregister.Date) map[payregister.Date]bool {
	m := make(map[payregister.Date]bool, len(dates))
	for _, d := range dates {
		m[d] = true
	}
	return m
}

func day(y int, m time.Month, d int) payregister.Date { return payregister.NewDate(y, m, d) }

// =============================================================================
// SCENARIO BUILDERS
// =============================================================================

func buildStandardMonth(s *seeder) {
	asha, vikram, meera := scenarioEmployees[0], scenarioEmployees[1], scenarioEmployees[2]
	from, to := day(2026, time.February, 1), day(2026, time.February, 28)
	holidays := []payregister.Date{day(2026, time.February, 17)}

	// Asha: full month, two late arrivals, overtime on a Saturday.
	s.month(asha, from, to, holidays)
	for _, d := range []payregister.Date{day(2026, time.February, 3), day(2026, time.February, 4)} {
		s.mark(asha, d, func(a *payregister.AttendanceEntry) { a.IsLate = true })
	}
	s.ot(asha, day(2026, time.February, 7), 2.5)

	// Vikram: two days CL, a half-day LWP, one unexplained absence.
	s.month(vikram, from, to, holidays,
		day(2026, time.February, 9), day(2026, time.February, 10), day(2026, time.February, 20))
	s.leave(vikram, "lv-vikram-cl", "CL", day(2026, time.February, 9), day(2026, time.February, 10), payregister.RequestApproved)
	s.mark(vikram, day(2026, time.February, 12), func(a *payregister.AttendanceEntry) { a.Status = payregister.AttendanceHalfDay })
	s.halfDayLeave(vikram, "lv-vikram-lwp", "LWP", day(2026, time.February, 12), payregister.SecondHalf)

	// Meera: two days on client visit, a pending leave that is not counted.
	s.month(meera, from, to, holidays, day(2026, time.February, 5), day(2026, time.February, 6))
	s.od(meera, "od-meera-client", "Client onboarding", day(2026, time.February, 5), day(2026, time.February, 6))
	s.leave(meera, "lv-meera-pending", "EL", day(2026, time.February, 24), day(2026, time.February, 24), payregister.RequestPending)
}

func buildMidMonthCycle(s *seeder) {
	asha, vikram, meera := scenarioEmployees[0], scenarioEmployees[1], scenarioEmployees[2]
	from, to := day(2026, time.February, 26), day(2026, time.March, 25)
	holidays := []payregister.Date{day(2026, time.March, 4)}

	// Asha: three days SL, the middle one corrected to LWP.
	s.month(asha, from, to, holidays, day(2026, time.March, 2), day(2026, time.March, 3), day(2026, time.March, 5))
	s.leave(asha, "lv-asha-sl", "SL", day(2026, time.March, 2), day(2026, time.March, 5), payregister.RequestApproved)
	s.splits = append(s.splits, payregister.LeaveSplit{
		ID: "split-asha-0303", EmployeeID: asha.ID, LeaveID: "lv-asha-sl", Date: day(2026, time.March, 3),
		LeaveType: "LWP", LeaveNature: payregister.NatureLOP, Status: payregister.RequestApproved,
	})

	// Vikram: leave that starts before the cycle and ends inside it.
	s.month(vikram, from, to, holidays, day(2026, time.February, 26), day(2026, time.February, 27))
	s.leave(vikram, "lv-vikram-el", "EL", day(2026, time.February, 24), day(2026, time.February, 27), payregister.RequestApproved)

	// Meera: half-day OD in the morning, present in the afternoon.
	s.month(meera, from, to, holidays)
	s.ods = append(s.ods, payregister.ODRequest{
		ID: "od-meera-bank", EmployeeID: meera.ID, FromDate: day(2026, time.March, 10), ToDate: day(2026, time.March, 10),
		IsHalfDay: true, HalfDayType: payregister.FirstHalf, Purpose: "Bank visit", Status: payregister.RequestApproved,
	})
	s.ot(meera, day(2026, time.March, 14), 3)
}

func buildBonusQuarter(s *seeder) {
	asha, vikram, meera := scenarioEmployees[0], scenarioEmployees[1], scenarioEmployees[2]
	for _, m := range []time.Month{time.January, time.February, time.March} {
		from := day(2026, m, 1)
		to := day(2026, m, payregister.LastDayOfMonth(2026, m))

		// Asha never misses a day.
		s.month(asha, from, to, nil)
		// Vikram misses the first three working days of each month.
		s.month(vikram, from, to, nil, firstWorkingDays(from, 3)...)
		// Meera misses the first seven.
		s.month(meera, from, to, nil, firstWorkingDays(from, 7)...)
	}
	s.policies = append(s.policies,
		bonus.AttendanceBonusJSON("attendance-bonus", "Attendance Bonus", 1),
		bonus.FixedBonusJSON("fixed-bonus", "Perfect Attendance Award", 5000),
	)
}

func firstWorkingDays(from payregister.Date, n int) []payregister.Date {
	var out []payregister.Date
	for d := from; len(out) < n; d = d.AddDays(1) {
		if d.Weekday() != time.Sunday {
			out = append(out, d)
		}
	}
	return out
}
