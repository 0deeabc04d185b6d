package payregister_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payregister-engine/payregister"
)

func statusPtr(s payregister.Status) *payregister.Status { return &s }
func floatPtr(f float64) *float64 { return &f }
func strPtr(s string) *string { return &s }

func TestDailyPatch_Validate(t *testing.T) {
	d := date("2026-02-10")
	tests := []struct {
		name  string
		patch payregister.DailyPatch
		ok    bool
	}{
		{"full-day present", payregister.DailyPatch{Status: statusPtr(payregister.StatusPresent)}, true},
		{"holiday is editable", payregister.DailyPatch{Status: statusPtr(payregister.StatusHoliday)}, true},
		{"week off is not editable", payregister.DailyPatch{Status: statusPtr(payregister.StatusWeekOff)}, false},
		{"unknown status", payregister.DailyPatch{Status: statusPtr("sleeping")}, false},
		{"leave without type", payregister.DailyPatch{Status: statusPtr(payregister.StatusLeave)}, false},
		{"leave with type", payregister.DailyPatch{Status: statusPtr(payregister.StatusLeave), LeaveType: strPtr("CL")}, true},
		{"leave type on present", payregister.DailyPatch{Status: statusPtr(payregister.StatusPresent), LeaveType: strPtr("CL")}, false},
		{"negative OT", payregister.DailyPatch{OTHours: floatPtr(-1)}, false},
		{
			"isOD on a present half",
			payregister.DailyPatch{FirstHalf: &payregister.HalfDayPatch{Status: payregister.StatusPresent, IsOD: true}},
			false,
		},
		{
			"half leave without type",
			payregister.DailyPatch{SecondHalf: &payregister.HalfDayPatch{Status: payregister.StatusLeave}},
			false,
		},
		{
			"half with negative OT",
			payregister.DailyPatch{FirstHalf: &payregister.HalfDayPatch{Status: payregister.StatusPresent, OTHours: floatPtr(-2)}},
			false,
		},
		{
			"split present and OD",
			payregister.DailyPatch{
				FirstHalf:  &payregister.HalfDayPatch{Status: payregister.StatusPresent},
				SecondHalf: &payregister.HalfDayPatch{Status: payregister.StatusOD, IsOD: true},
			},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.patch.Validate(d)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			var vErr *payregister.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.NotEmpty(t, vErr.Problems)
			assert.ErrorIs(t, err, payregister.ErrInvalidPatch)
		})
	}
}

func TestUpdateDailyRecord_InvalidPatchDoesNotMutate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	before, err := env.engine.GetOrCreateLedger(ctx, "emp-1", feb2026)
	require.NoError(t, err)

	_, err = env.engine.UpdateDailyRecord(ctx, "emp-1", feb2026, date("2026-02-10"),
		payregister.DailyPatch{
			FirstHalf: &payregister.HalfDayPatch{Status: payregister.StatusPresent},
			OTHours:   floatPtr(-3),
		}, hrActor)
	require.Error(t, err)
	assert.True(t, payregister.IsClientError(err))

	after, err := env.mem.GetLedger(ctx, "emp-1", feb2026)
	require.NoError(t, err)
	assert.Equal(t, before.Records, after.Records)
	assert.Empty(t, after.EditHistory)
}

func TestUpdateDailyRecord_OutsideCycleIsRejected(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.UpdateDailyRecord(context.Background(), "emp-1", feb2026, date("2026-03-01"),
		payregister.DailyPatch{Status: statusPtr(payregister.StatusPresent)}, hrActor)
	assert.ErrorIs(t, err, payregister.ErrInvalidPatch)
}

func TestUpdateDailyRecord_SplitDayAndAudit(t *testing.T) {
	// GIVEN: An all-absent ledger
	// WHEN: HR sets first half present and second half casual leave
	// THEN: The record is split, two history entries are appended, totals follow

	env := newTestEnv(t)
	ctx := context.Background()
	env.src.SetLeaveType("CL", payregister.NaturePaid)

	rec, err := env.engine.UpdateDailyRecord(ctx, "emp-1", feb2026, date("2026-02-10"),
		payregister.DailyPatch{
			FirstHalf:   &payregister.HalfDayPatch{Status: payregister.StatusPresent},
			SecondHalf:  &payregister.HalfDayPatch{Status: payregister.StatusLeave, LeaveType: "CL"},
			EditRemarks: "doctor visit",
		}, hrActor)
	require.NoError(t, err)

	assert.True(t, rec.IsSplit)
	assert.Nil(t, rec.Status)
	assert.True(t, rec.IsManuallyEdited)
	assert.Equal(t, payregister.NaturePaid, rec.SecondHalf.LeaveNature)

	history, err := env.engine.EditHistory(ctx, "emp-1", feb2026)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "firstHalf.status", history[0].Field)
	assert.Equal(t, "absent", history[0].OldValue)
	assert.Equal(t, "present", history[0].NewValue)
	assert.Equal(t, "secondHalf.status", history[1].Field)
	assert.Equal(t, "Priya", history[1].EditedByName)
	assert.Equal(t, "doctor visit", history[1].Remarks)
	assert.Equal(t, fixedNow, history[1].EditedAt)

	l, err := env.engine.GetOrCreateLedger(ctx, "emp-1", feb2026)
	require.NoError(t, err)
	assert.Equal(t, 0.5, l.Totals.TotalPresent)
	assert.Equal(t, 0.5, l.Totals.TotalPaidLeave)
	assert.Equal(t, "hr-1", l.LastEditedBy)
}

func TestUpdateDailyRecord_OTHandling(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	d := date("2026-02-10")

	rec, err := env.engine.UpdateDailyRecord(ctx, "emp-1", feb2026, d, payregister.DailyPatch{
		FirstHalf:  &payregister.HalfDayPatch{Status: payregister.StatusPresent, OTHours: floatPtr(1)},
		SecondHalf: &payregister.HalfDayPatch{Status: payregister.StatusPresent, OTHours: floatPtr(1.5)},
	}, hrActor)
	require.NoError(t, err)
	assert.Equal(t, 2.5, rec.OTHours, "day OT is the sum of the halves")

	rec, err = env.engine.UpdateDailyRecord(ctx, "emp-1", feb2026, d, payregister.DailyPatch{OTHours: floatPtr(4)}, hrActor)
	require.NoError(t, err)
	assert.Equal(t, 4.0, rec.OTHours, "full-day value overrides")

	history, err := env.engine.EditHistory(ctx, "emp-1", feb2026)
	require.NoError(t, err)
	last := history[len(history)-1]
	assert.Equal(t, "otHours", last.Field)
	assert.Equal(t, 2.5, last.OldValue)
	assert.Equal(t, 4.0, last.NewValue)
}

func TestUpdateDailyRecord_LeaveNatureLiteralsAndDefault(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rec, err := env.engine.UpdateDailyRecord(ctx, "emp-1", feb2026, date("2026-02-10"), payregister.DailyPatch{
		Status: statusPtr(payregister.StatusLeave), LeaveType: strPtr("loss_of_pay"),
	}, hrActor)
	require.NoError(t, err)
	assert.Equal(t, payregister.NatureLOP, rec.LeaveNature)

	rec, err = env.engine.UpdateDailyRecord(ctx, "emp-1", feb2026, date("2026-02-11"), payregister.DailyPatch{
		Status: statusPtr(payregister.StatusLeave), LeaveType: strPtr("UNKNOWN"),
	}, hrActor)
	require.NoError(t, err)
	assert.Equal(t, payregister.NaturePaid, rec.LeaveNature, "unresolvable codes are paid")
}

func TestUpdateDailyRecord_DefaultsActorName(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.engine.UpdateDailyRecord(ctx, "emp-1", feb2026, date("2026-02-10"),
		payregister.DailyPatch{ShiftID: strPtr("NIGHT")}, payregister.Actor{ID: "u-9"})
	require.NoError(t, err)

	history, err := env.engine.EditHistory(ctx, "emp-1", feb2026)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "shiftId", history[0].Field)
	assert.Equal(t, "System", history[0].EditedByName)
	assert.Equal(t, "system", history[0].EditedByRole)
}

func TestUpdateDailyRecord_EditsAreNeverGatedByProtection(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	d := date("2026-02-10")

	_, err := env.engine.UpdateDailyRecord(ctx, "emp-1", feb2026, d, payregister.DailyPatch{Status: statusPtr(payregister.StatusPresent)}, hrActor)
	require.NoError(t, err)
	rec, err := env.engine.UpdateDailyRecord(ctx, "emp-1", feb2026, d, payregister.DailyPatch{Status: statusPtr(payregister.StatusAbsent)}, hrActor)
	require.NoError(t, err)
	assert.Equal(t, payregister.StatusAbsent, rec.DayStatus())

	history, err := env.engine.EditHistory(ctx, "emp-1", feb2026)
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

func TestUpdateDailyRecord_LateDayEditedToLeaveDropsLate(t *testing.T) {
	// GIVEN: A synced late arrival
	env := newTestEnv(t)
	ctx := context.Background()
	env.src.AddAttendance(payregister.AttendanceEntry{ID: "att-1", EmployeeNumber: "E001", Date: date("2026-02-03"), Status: payregister.AttendancePresent, IsLate: true})
	l, err := env.engine.GetOrCreateLedger(ctx, "emp-1", feb2026)
	require.NoError(t, err)
	require.Equal(t, 1, l.Totals.LateCount)

	// WHEN: HR turns the day into leave
	_, err = env.engine.UpdateDailyRecord(ctx, "emp-1", feb2026, date("2026-02-03"),
		payregister.DailyPatch{Status: statusPtr(payregister.StatusLeave), LeaveType: strPtr("CL")}, hrActor)
	require.NoError(t, err)

	// THEN: The late no longer counts
	l, err = env.engine.GetOrCreateLedger(ctx, "emp-1", feb2026)
	require.NoError(t, err)
	assert.Zero(t, l.Totals.LateCount)
	assert.Equal(t, 1.0, l.Totals.TotalPaidLeave)
}
