package payregister_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/warp/payregister-engine/payregister"
)

func fullLeave(code string, nature payregister.LeaveNature) *payregister.LeaveDay {
	return &payregister.LeaveDay{LeaveIDs: []string{"lv-1"}, LeaveType: code, Nature: nature}
}

func halfLeave(half payregister.HalfDayType) *payregister.LeaveDay {
	return &payregister.LeaveDay{LeaveIDs: []string{"lv-1"}, IsHalfDay: true, HalfDayType: half, LeaveType: "CL", Nature: payregister.NaturePaid}
}

func halfOD(half payregister.HalfDayType) *payregister.ODDay {
	return &payregister.ODDay{ODIDs: []string{"od-1"}, IsHalfDay: true, HalfDayType: half}
}

func attendance(s payregister.AttendanceStatus) *payregister.AttendanceEntry {
	return &payregister.AttendanceEntry{ID: "att-1", Status: s}
}

func TestResolveHalves_Precedence(t *testing.T) {
	tests := []struct {
		name       string
		sources    payregister.DaySources
		wantFirst  payregister.Status
		wantSecond payregister.Status
	}{
		{
			name:       "no data defaults to absent",
			wantFirst:  payregister.StatusAbsent,
			wantSecond: payregister.StatusAbsent,
		},
		{
			name:       "roster holiday baseline",
			sources:    payregister.DaySources{Roster: &payregister.RosterEntry{Marker: payregister.MarkerHoliday}},
			wantFirst:  payregister.StatusHoliday,
			wantSecond: payregister.StatusHoliday,
		},
		{
			name:       "roster week off baseline",
			sources:    payregister.DaySources{Roster: &payregister.RosterEntry{Marker: payregister.MarkerWeekOff}},
			wantFirst:  payregister.StatusWeekOff,
			wantSecond: payregister.StatusWeekOff,
		},
		{
			name:       "clock-in beats full-day leave",
			sources:    payregister.DaySources{Leave: fullLeave("CL", payregister.NaturePaid), Attendance: attendance(payregister.AttendancePresent)},
			wantFirst:  payregister.StatusPresent,
			wantSecond: payregister.StatusPresent,
		},
		{
			name:       "OD and leave on different halves",
			sources:    payregister.DaySources{Leave: halfLeave(payregister.SecondHalf), OD: halfOD(payregister.FirstHalf)},
			wantFirst:  payregister.StatusOD,
			wantSecond: payregister.StatusLeave,
		},
		{
			name:       "OD on the leave half is suppressed",
			sources:    payregister.DaySources{Leave: halfLeave(payregister.FirstHalf), OD: halfOD(payregister.FirstHalf)},
			wantFirst:  payregister.StatusLeave,
			wantSecond: payregister.StatusAbsent,
		},
		{
			name:       "full-day OD fills only the half leave left open",
			sources:    payregister.DaySources{Leave: halfLeave(payregister.FirstHalf), OD: &payregister.ODDay{ODIDs: []string{"od-1"}}},
			wantFirst:  payregister.StatusLeave,
			wantSecond: payregister.StatusOD,
		},
		{
			name:       "clock-in keeps a half-day leave",
			sources:    payregister.DaySources{Leave: halfLeave(payregister.FirstHalf), Attendance: attendance(payregister.AttendancePresent)},
			wantFirst:  payregister.StatusLeave,
			wantSecond: payregister.StatusPresent,
		},
		{
			name:       "clock-in keeps OD",
			sources:    payregister.DaySources{OD: &payregister.ODDay{ODIDs: []string{"od-1"}}, Attendance: attendance(payregister.AttendancePresent)},
			wantFirst:  payregister.StatusOD,
			wantSecond: payregister.StatusOD,
		},
		{
			name:       "OD on a week off",
			sources:    payregister.DaySources{Roster: &payregister.RosterEntry{Marker: payregister.MarkerWeekOff}, OD: &payregister.ODDay{}},
			wantFirst:  payregister.StatusOD,
			wantSecond: payregister.StatusOD,
		},
		{
			name:       "half-day attendance prefers first half",
			sources:    payregister.DaySources{Attendance: attendance(payregister.AttendanceHalfDay)},
			wantFirst:  payregister.StatusPresent,
			wantSecond: payregister.StatusAbsent,
		},
		{
			name:       "half-day attendance falls to second half",
			sources:    payregister.DaySources{Leave: halfLeave(payregister.FirstHalf), Attendance: attendance(payregister.AttendanceHalfDay)},
			wantFirst:  payregister.StatusLeave,
			wantSecond: payregister.StatusPresent,
		},
		{
			name:       "partial behaves like present",
			sources:    payregister.DaySources{Roster: &payregister.RosterEntry{Marker: payregister.MarkerHoliday}, Attendance: attendance(payregister.AttendancePartial)},
			wantFirst:  payregister.StatusPresent,
			wantSecond: payregister.StatusPresent,
		},
		{
			name:       "absent attendance changes nothing",
			sources:    payregister.DaySources{Attendance: attendance(payregister.AttendanceAbsent)},
			wantFirst:  payregister.StatusAbsent,
			wantSecond: payregister.StatusAbsent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, second := payregister.ResolveHalves(tt.sources)
			assert.Equal(t, tt.wantFirst, first.Status)
			assert.Equal(t, tt.wantSecond, second.Status)
		})
	}
}

func TestResolveHalves_LeaveCarriesNature(t *testing.T) {
	first, second := payregister.ResolveHalves(payregister.DaySources{Leave: fullLeave("LWP", payregister.NatureLOP)})

	assert.Equal(t, payregister.NatureLOP, first.LeaveNature)
	assert.Equal(t, "LWP", second.LeaveType)
	assert.False(t, first.IsOD)
}

func TestBuildRecord_AttachesOTShiftAndReferences(t *testing.T) {
	d := payregister.MustParseDate("2026-02-03")
	rec := payregister.BuildRecord(d, payregister.DaySources{
		Attendance: &payregister.AttendanceEntry{ID: "att-9", Status: payregister.AttendancePresent, ShiftID: "NIGHT", ShiftName: "Night", IsLate: true},
		Overtime:   &payregister.OvertimeDay{Hours: 3.5, OTIDs: []string{"ot-1", "ot-2"}},
	})

	assert.Equal(t, 3.5, rec.OTHours)
	assert.Equal(t, []string{"ot-1", "ot-2"}, rec.OTIDs)
	assert.Equal(t, "att-9", rec.AttendanceRecordID)
	assert.Equal(t, "NIGHT", rec.ShiftID, "shift falls back to the attendance record")
	assert.True(t, rec.IsLate)
	assert.False(t, rec.IsSplit)
	if assert.NotNil(t, rec.Status) {
		assert.Equal(t, payregister.StatusPresent, *rec.Status)
	}
}

func TestBuildRecord_SplitInvariant(t *testing.T) {
	rec := payregister.BuildRecord(payregister.MustParseDate("2026-02-10"), payregister.DaySources{
		Leave: halfLeave(payregister.SecondHalf),
		OD:    halfOD(payregister.FirstHalf),
	})

	assert.True(t, rec.IsSplit)
	assert.Nil(t, rec.Status)
	assert.Empty(t, rec.LeaveType)
	assert.False(t, rec.IsOD)
	assert.Equal(t, []string{"lv-1"}, rec.LeaveIDs)
	assert.Equal(t, []string{"od-1"}, rec.ODIDs)
}
