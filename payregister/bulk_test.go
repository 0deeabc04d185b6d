package payregister_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payregister-engine/payregister"
)

// febLedger builds a February 2026 ledger whose Sundays (1, 8, 15, 22) are
// week-offs, leaving 24 working dates.
func febLedger(t *testing.T) *payregister.Ledger {
	t.Helper()
	r := feb2026.Resolve(payregister.DefaultCycleSettings())
	var records []payregister.DailyRecord
	for _, d := range r.Dates() {
		rec := payregister.NewDailyRecord(d)
		if d.Weekday() == time.Sunday {
			rec.FirstHalf.Status = payregister.StatusWeekOff
			rec.SecondHalf.Status = payregister.StatusWeekOff
			rec.Normalize()
		}
		records = append(records, rec)
	}
	return payregister.NewLedger("l-1", payregister.Employee{ID: "emp-1", Number: "E001"}, feb2026, r, records, fixedNow)
}

func TestDistribute_FillsWorkingDaysInOrder(t *testing.T) {
	l := febLedger(t)

	err := l.Distribute(payregister.SummaryRow{
		Present: 20, OD: 2, PaidLeave: 1.5, LOP: 1, Absent: 1,
		Lates: 3, OTHours: 6, ExtraDays: 1,
	}, hrActor, fixedNow)
	require.NoError(t, err)

	tot := l.Totals
	assert.Equal(t, 18.0, tot.TotalPresent, "present minus OD")
	assert.Equal(t, 2.0, tot.TotalOD)
	assert.Equal(t, 1.5, tot.TotalPaidLeave)
	assert.Equal(t, 1.0, tot.TotalLOP)
	assert.Equal(t, 1.5, tot.TotalAbsent, "fractional paid leave leaves a half absent")
	assert.Equal(t, 4.0, tot.TotalWeeklyOffs)
	assert.Equal(t, 3, tot.LateCount)
	assert.Equal(t, 6.0, tot.TotalOTHours)
	assert.Equal(t, 1.0, tot.ExtraDays)
	assert.Equal(t, 22.5, tot.TotalPayableShifts)

	feb2 := mustRecord(t, l, "2026-02-02")
	assert.Equal(t, payregister.StatusOD, feb2.DayStatus())
	assert.True(t, feb2.IsOD)
	assert.Equal(t, 6.0, feb2.OTHours, "OT lands on the first working record")
	assert.Equal(t, "Late Arrival (Uploaded)", feb2.Remarks)

	assert.True(t, mustRecord(t, l, "2026-02-04").IsLate)
	assert.False(t, mustRecord(t, l, "2026-02-05").IsLate)

	split := mustRecord(t, l, "2026-02-26")
	assert.True(t, split.IsSplit)
	assert.Equal(t, payregister.StatusLeave, split.FirstHalf.Status)
	assert.Equal(t, payregister.StatusAbsent, split.SecondHalf.Status)
}

func TestDistribute_Conservation(t *testing.T) {
	// GIVEN: Counts that fit in the working days
	// WHEN: Distributed
	// THEN: The distributed units equal the uploaded units

	l := febLedger(t)
	row := payregister.SummaryRow{Present: 12.5, OD: 1, PaidLeave: 2, LOP: 0.5, Absent: 6}
	require.NoError(t, l.Distribute(row, hrActor, fixedNow))

	tot := l.Totals
	distributed := tot.TotalPresent + tot.TotalOD + tot.TotalPaidLeave + tot.TotalLOP + tot.TotalAbsent
	assert.InDelta(t, 24.0, distributed, 0.01, "every working day is accounted for")
	assert.InDelta(t, row.Present, tot.TotalPresent+tot.TotalOD, 0.01)
	assert.InDelta(t, row.PaidLeave, tot.TotalPaidLeave, 0.01)
}

func TestDistribute_PresentOverflowsIntoWeekOffs(t *testing.T) {
	l := febLedger(t)
	require.NoError(t, l.Distribute(payregister.SummaryRow{Present: 26}, hrActor, fixedNow))

	assert.Equal(t, 26.0, l.Totals.TotalPresent)
	assert.Equal(t, 2.0, l.Totals.TotalWeeklyOffs)

	feb1 := mustRecord(t, l, "2026-02-01")
	assert.Equal(t, payregister.StatusPresent, feb1.DayStatus())
	assert.Equal(t, "Worked on Week Off (Uploaded)", feb1.Remarks)
	assert.True(t, feb1.IsManuallyEdited)
	assert.Equal(t, payregister.StatusWeekOff, mustRecord(t, l, "2026-02-15").DayStatus())
}

func TestDistribute_HalfOverflow(t *testing.T) {
	l := febLedger(t)
	require.NoError(t, l.Distribute(payregister.SummaryRow{Present: 24.5}, hrActor, fixedNow))

	feb1 := mustRecord(t, l, "2026-02-01")
	assert.True(t, feb1.IsSplit)
	assert.Equal(t, payregister.StatusPresent, feb1.FirstHalf.Status)
	assert.Equal(t, "Worked half-day on Week Off (Uploaded)", feb1.Remarks)
	assert.Equal(t, 24.0, l.Totals.TotalPresent)
	assert.Equal(t, 3.5, l.Totals.TotalWeeklyOffs)
}

func TestDistribute_LeaveNeverOverflows(t *testing.T) {
	l := febLedger(t)
	require.NoError(t, l.Distribute(payregister.SummaryRow{PaidLeave: 30}, hrActor, fixedNow))

	assert.Equal(t, 24.0, l.Totals.TotalPaidLeave)
	assert.Equal(t, 4.0, l.Totals.TotalWeeklyOffs)
}

func TestDistribute_HolidaysOnlyWhenPoolEmpty(t *testing.T) {
	r := feb2026.Resolve(payregister.DefaultCycleSettings())
	var records []payregister.DailyRecord
	for _, d := range r.Dates() {
		records = append(records, payregister.NewDailyRecord(d))
	}
	l := payregister.NewLedger("l-2", payregister.Employee{ID: "emp-1", Number: "E001"}, feb2026, r, records, fixedNow)

	require.NoError(t, l.Distribute(payregister.SummaryRow{Present: 20, Holidays: 2, Absent: 6}, hrActor, fixedNow))
	assert.Equal(t, 20.0, l.Totals.TotalPresent)
	assert.Equal(t, 2.0, l.Totals.TotalHolidays)
	assert.Equal(t, 6.0, l.Totals.TotalAbsent)

	// With a roster pool present the holiday count is ignored.
	wl := febLedger(t)
	require.NoError(t, wl.Distribute(payregister.SummaryRow{Present: 20, Holidays: 2}, hrActor, fixedNow))
	assert.Zero(t, wl.Totals.TotalHolidays)
}

func TestDistribute_ResetsPreviousState(t *testing.T) {
	l := febLedger(t)
	require.NoError(t, l.Distribute(payregister.SummaryRow{Present: 24, Lates: 5, OTHours: 3, ExtraDays: 2}, hrActor, fixedNow))
	require.NoError(t, l.Distribute(payregister.SummaryRow{}, hrActor, fixedNow))

	assert.Zero(t, l.Totals.TotalPresent)
	assert.Equal(t, 24.0, l.Totals.TotalAbsent)
	assert.Zero(t, l.Totals.LateCount)
	assert.Zero(t, l.Totals.TotalOTHours)
	assert.Zero(t, l.Totals.ExtraDays)
	assert.Empty(t, mustRecord(t, l, "2026-02-02").Remarks)
}

func TestDistributeBulkSummary_IsolatesRowFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	report := env.engine.DistributeBulkSummary(ctx, feb2026, []payregister.SummaryRow{
		{RowNumber: 1, EmployeeNumber: "E001", Present: 20, Absent: 8},
		{RowNumber: 2, EmployeeNumber: "", Present: 10},
		{RowNumber: 3, EmployeeNumber: "X999", Present: 10},
		{RowNumber: 4, EmployeeNumber: "E002", PaidLeave: 3, Absent: 25},
	}, hrActor)

	assert.Equal(t, 4, report.Total)
	assert.Equal(t, 2, report.Success)
	assert.Equal(t, 2, report.Failed)
	assert.Equal(t, []string{
		"Row 2: Missing Employee Code",
		"Employee X999: Not found in system",
	}, report.Errors)

	l, err := env.engine.GetOrCreateLedger(ctx, "emp-1", feb2026)
	require.NoError(t, err)
	assert.Equal(t, 20.0, l.Totals.TotalPresent)
	assert.Equal(t, 8.0, l.Totals.TotalAbsent)

	l2, err := env.engine.GetOrCreateLedger(ctx, "emp-2", feb2026)
	require.NoError(t, err)
	assert.Equal(t, 3.0, l2.Totals.TotalPaidLeave)
}

func TestDistributeBulkSummary_FinalizedLedgerFailsOnlyItsRow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.engine.GetOrCreateLedger(ctx, "emp-2", feb2026)
	require.NoError(t, err)
	_, err = env.engine.SetLedgerStatus(ctx, "emp-2", feb2026, payregister.LedgerFinalized, hrActor)
	require.NoError(t, err)

	report := env.engine.DistributeBulkSummary(ctx, feb2026, []payregister.SummaryRow{
		{RowNumber: 1, EmployeeNumber: "E001", Present: 5},
		{RowNumber: 2, EmployeeNumber: "E002", Present: 5},
	}, hrActor)
	assert.Equal(t, 1, report.Success)
	assert.Equal(t, 1, report.Failed)
	assert.Contains(t, report.Errors[0], "Row 2")
}
