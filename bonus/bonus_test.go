package bonus_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payregister-engine/bonus"
	"github.com/warp/payregister-engine/payregister"
	"github.com/warp/payregister-engine/payregister/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var (
	jan2026  = payregister.NewCycleKey(2026, time.January)
	feb2026  = payregister.NewCycleKey(2026, time.February)
	mar2026  = payregister.NewCycleKey(2026, time.March)
	fixedNow = time.Date(2026, time.April, 2, 10, 0, 0, 0, time.UTC)
	hrActor  = payregister.Actor{ID: "hr-1", Name: "Priya", Role: "hr"}

	asha = payregister.Employee{ID: "emp-1", Number: "E001", Name: "Asha", GrossSalary: 50000}
	ravi = payregister.Employee{ID: "emp-2", Number: "E002", Name: "Ravi", GrossSalary: 40000}
)

func flatPolicy(component bonus.SalaryComponent, tiers ...bonus.Tier) bonus.Policy {
	return bonus.Policy{
		ID:               "pol-1",
		Name:             "Attendance",
		SalaryComponent:  component,
		FixedBonusAmount: 10000,
		Tiers:            tiers,
		IsActive:         true,
	}
}

func totals(present, od, absent, leave float64) payregister.Totals {
	return payregister.Totals{TotalPresent: present, TotalOD: od, TotalAbsent: absent, TotalLeave: leave}
}

// ledger builds a ledger for the cycle with the first `present` dates present
// and the rest absent.
func ledger(emp payregister.Employee, cycle payregister.CycleKey, present int) *payregister.Ledger {
	r := cycle.Resolve(payregister.DefaultCycleSettings())
	var records []payregister.DailyRecord
	for i, d := range r.Dates() {
		rec := payregister.NewDailyRecord(d)
		if i < present {
			rec.FirstHalf.Status = payregister.StatusPresent
			rec.SecondHalf.Status = payregister.StatusPresent
			rec.Normalize()
		}
		records = append(records, rec)
	}
	return payregister.NewLedger(emp.ID+"-"+cycle.String(), emp, cycle, r, records, fixedNow)
}

type calcEnv struct {
	calc  *bonus.Calculator
	mem   *store.Memory
	bonus *store.BonusMemory
}

func newCalcEnv(t *testing.T) *calcEnv {
	t.Helper()
	mem := store.NewMemory()
	mem.SaveEmployee(asha)
	mem.SaveEmployee(ravi)
	bm := store.NewBonusMemory()
	calc := bonus.NewCalculator(mem, mem, bm, payregister.Options{
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Workers: 2,
		Now:     func() time.Time { return fixedNow },
	})
	return &calcEnv{calc: calc, mem: mem, bonus: bm}
}

// =============================================================================
// EVALUATE
// =============================================================================

func TestEvaluate_GrossSalaryTier(t *testing.T) {
	// GIVEN: Gross salary 50000, tier {0,100,10}, full attendance
	// WHEN: Evaluated
	// THEN: Bonus is 5000

	p := flatPolicy(bonus.ComponentGrossSalary, bonus.Tier{MinPercentage: 0, MaxPercentage: 100, BonusPercentage: 10})
	res := bonus.Evaluate(asha, p, []payregister.Totals{totals(22, 0, 0, 0)}, feb2026, feb2026)

	require.NotNil(t, res)
	assert.Equal(t, 100.0, res.AttendancePercentage)
	assert.Equal(t, 50000.0, res.SalaryComponentValue)
	assert.Equal(t, 5000.0, res.CalculatedBonus)
	assert.Equal(t, 5000.0, res.FinalBonus)
	assert.False(t, res.IsManualOverride)
	assert.Equal(t, "2026-02 to 2026-02", res.Month)
	assert.Equal(t, "E001", res.EmployeeNumber)
}

func TestEvaluate_FixedAmountTier(t *testing.T) {
	p := flatPolicy(bonus.ComponentFixedAmount, bonus.Tier{MinPercentage: 0, MaxPercentage: 100, BonusPercentage: 10})
	res := bonus.Evaluate(asha, p, []payregister.Totals{totals(22, 0, 0, 0)}, feb2026, feb2026)

	require.NotNil(t, res)
	assert.Equal(t, 10000.0, res.SalaryComponentValue)
	assert.Equal(t, 1000.0, res.CalculatedBonus)
}

func TestEvaluate_NoTotalsSkipsEmployee(t *testing.T) {
	p := flatPolicy(bonus.ComponentGrossSalary, bonus.Tier{MaxPercentage: 100, BonusPercentage: 10})
	assert.Nil(t, bonus.Evaluate(asha, p, nil, jan2026, mar2026))
}

func TestEvaluate_AggregatesAcrossCyclesAndRounds(t *testing.T) {
	// GIVEN: Two cycles, (10 present + 4 OD) over (14 + 5 absent + 2 leave) overall
	// WHEN: Evaluated
	// THEN: Percentage is 14/21 rounded to two decimals

	p := flatPolicy(bonus.ComponentGrossSalary)
	res := bonus.Evaluate(asha, p, []payregister.Totals{
		totals(6, 2, 3, 1),
		totals(4, 2, 2, 1),
	}, jan2026, feb2026)

	require.NotNil(t, res)
	assert.Equal(t, 66.67, res.AttendancePercentage)
	assert.Equal(t, 14.0, res.AttendanceDays)
	assert.Equal(t, 21.0, res.TotalMonthDays)
}

func TestEvaluate_ZeroDenominator(t *testing.T) {
	p := flatPolicy(bonus.ComponentGrossSalary, bonus.Tier{MinPercentage: 0, MaxPercentage: 0, BonusPercentage: 5})
	res := bonus.Evaluate(asha, p, []payregister.Totals{{TotalHolidays: 2}}, feb2026, feb2026)

	require.NotNil(t, res)
	assert.Zero(t, res.AttendancePercentage)
	assert.Equal(t, 2500.0, res.CalculatedBonus, "0% still matches a tier starting at 0")
}

func TestEvaluate_NoMatchingTier(t *testing.T) {
	p := flatPolicy(bonus.ComponentGrossSalary, bonus.Tier{MinPercentage: 90, MaxPercentage: 100, BonusPercentage: 10})
	res := bonus.Evaluate(asha, p, []payregister.Totals{totals(8, 0, 2, 0)}, feb2026, feb2026)

	require.NotNil(t, res)
	assert.Equal(t, 80.0, res.AttendancePercentage)
	assert.Nil(t, res.AppliedTier)
	assert.Zero(t, res.CalculatedBonus)
}

func TestEvaluate_FirstMatchingTierWins(t *testing.T) {
	p := flatPolicy(bonus.ComponentGrossSalary,
		bonus.Tier{MinPercentage: 50, MaxPercentage: 100, BonusPercentage: 4},
		bonus.Tier{MinPercentage: 90, MaxPercentage: 100, BonusPercentage: 10},
	)
	res := bonus.Evaluate(asha, p, []payregister.Totals{totals(20, 0, 0, 0)}, feb2026, feb2026)

	require.NotNil(t, res.AppliedTier)
	assert.Equal(t, 4.0, res.AppliedTier.BonusPercentage)
	assert.Equal(t, 2000.0, res.CalculatedBonus)
}

func TestEvaluate_MultiplierAndRounding(t *testing.T) {
	p := flatPolicy(bonus.ComponentGrossSalary, bonus.Tier{MaxPercentage: 100, BonusPercentage: 3.33})
	p.GrossSalaryMultiplier = 2
	res := bonus.Evaluate(payregister.Employee{ID: "x", GrossSalary: 12345}, p, []payregister.Totals{totals(1, 0, 0, 0)}, feb2026, feb2026)

	require.NotNil(t, res)
	assert.Equal(t, 24690.0, res.SalaryComponentValue)
	assert.Equal(t, 822.0, res.CalculatedBonus, "24690 * 3.33% = 822.177 rounds to 822")
}

// =============================================================================
// POLICY JSON
// =============================================================================

func TestParsePolicy_Defaults(t *testing.T) {
	p, err := bonus.ParsePolicy([]byte(`{"id":"p","name":"Attendance","tiers":[{"min_percentage":0,"max_percentage":100,"bonus_percentage":10}]}`))
	require.NoError(t, err)

	assert.Equal(t, bonus.ComponentGrossSalary, p.SalaryComponent)
	assert.Equal(t, 1.0, p.GrossSalaryMultiplier)
	assert.True(t, p.IsActive)
	assert.Len(t, p.Tiers, 1)
}

func TestParsePolicy_Presets(t *testing.T) {
	p, err := bonus.ParsePolicy([]byte(bonus.AttendanceBonusJSON("att", "Attendance", 2)))
	require.NoError(t, err)
	assert.Equal(t, 2.0, p.GrossSalaryMultiplier)
	assert.Len(t, p.Tiers, 3)

	f, err := bonus.ParsePolicy([]byte(bonus.FixedBonusJSON("fix", "Fixed", 7500)))
	require.NoError(t, err)
	assert.Equal(t, bonus.ComponentFixedAmount, f.SalaryComponent)
	assert.Equal(t, 7500.0, f.FixedBonusAmount)
}

func TestParsePolicy_Rejects(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"malformed", `{"name":`},
		{"unknown component", `{"name":"x","salary_component":"basic"}`},
		{"inverted tier", `{"name":"x","tiers":[{"min_percentage":90,"max_percentage":80,"bonus_percentage":5}]}`},
		{"missing name", `{"salary_component":"fixed_amount"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := bonus.ParsePolicy([]byte(tt.json))
			require.ErrorIs(t, err, bonus.ErrInvalidPolicy)
		})
	}

	_, err := bonus.ParsePolicy([]byte(`{"name":"x","salary_component":"basic"}`))
	assert.ErrorIs(t, err, bonus.ErrInvalidPolicy)
	assert.True(t, bonus.IsClientError(err))
}

// =============================================================================
// CALCULATOR AND BATCHES
// =============================================================================

func TestCalculator_EvaluateBonusUsesLedgersInRange(t *testing.T) {
	env := newCalcEnv(t)
	ctx := context.Background()
	require.NoError(t, env.mem.CreateLedger(ctx, ledger(asha, jan2026, 31)))
	require.NoError(t, env.mem.CreateLedger(ctx, ledger(asha, feb2026, 28)))
	require.NoError(t, env.mem.CreateLedger(ctx, ledger(asha, mar2026, 0)))

	p := flatPolicy(bonus.ComponentGrossSalary, bonus.Tier{MaxPercentage: 100, BonusPercentage: 10})
	res, err := env.calc.EvaluateBonus(ctx, asha, p, jan2026, feb2026)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 100.0, res.AttendancePercentage, "March is outside the range")

	_, err = env.calc.EvaluateBonus(ctx, asha, p, mar2026, jan2026)
	assert.ErrorIs(t, err, bonus.ErrInvalidRange)
}

func TestCreateBatch_SkipsEmployeesWithoutLedgers(t *testing.T) {
	// GIVEN: Asha has a February ledger, Ravi has none
	// WHEN: A batch is created for everyone
	// THEN: Asha gets a record, Ravi is skipped, totals follow

	env := newCalcEnv(t)
	ctx := context.Background()
	require.NoError(t, env.mem.CreateLedger(ctx, ledger(asha, feb2026, 28)))

	p, err := env.calc.SavePolicy(ctx, flatPolicy(bonus.ComponentGrossSalary, bonus.Tier{MaxPercentage: 100, BonusPercentage: 10}))
	require.NoError(t, err)

	b, err := env.calc.CreateBatch(ctx, bonus.BatchRequest{PolicyID: p.ID, StartMonth: feb2026, EndMonth: feb2026}, hrActor)
	require.NoError(t, err)

	assert.Equal(t, bonus.BatchPending, b.Status)
	assert.Equal(t, 1, b.TotalEmployees)
	assert.Equal(t, 5000.0, b.TotalBonusAmount)
	assert.Equal(t, []string{"E002"}, b.Skipped)
	assert.Equal(t, 2, b.Report.Success)
	assert.Equal(t, "Attendance 2026-02 to 2026-02", b.Name)
	assert.Equal(t, 2026, b.Year)

	_, err = env.calc.CreateBatch(ctx, bonus.BatchRequest{PolicyID: p.ID, StartMonth: feb2026, EndMonth: feb2026}, hrActor)
	assert.ErrorIs(t, err, bonus.ErrBatchExists)
}

func TestCreateBatch_Rejections(t *testing.T) {
	env := newCalcEnv(t)
	ctx := context.Background()

	_, err := env.calc.CreateBatch(ctx, bonus.BatchRequest{PolicyID: "missing", StartMonth: feb2026, EndMonth: feb2026}, hrActor)
	assert.True(t, bonus.IsNotFound(err))

	p, err := env.calc.SavePolicy(ctx, flatPolicy(bonus.ComponentGrossSalary))
	require.NoError(t, err)
	_, err = env.calc.CreateBatch(ctx, bonus.BatchRequest{PolicyID: p.ID, StartMonth: feb2026, EndMonth: feb2026}, hrActor)
	assert.ErrorIs(t, err, bonus.ErrNoResults, "nobody has ledgers")

	inactive := flatPolicy(bonus.ComponentGrossSalary)
	inactive.ID = "pol-off"
	inactive.IsActive = false
	_, err = env.calc.SavePolicy(ctx, inactive)
	require.NoError(t, err)
	_, err = env.calc.CreateBatch(ctx, bonus.BatchRequest{PolicyID: "pol-off", StartMonth: feb2026, EndMonth: feb2026}, hrActor)
	assert.ErrorIs(t, err, bonus.ErrPolicyInactive)
}

func TestBatch_StatusFlowAndOverrides(t *testing.T) {
	env := newCalcEnv(t)
	ctx := context.Background()
	require.NoError(t, env.mem.CreateLedger(ctx, ledger(asha, feb2026, 28)))
	require.NoError(t, env.mem.CreateLedger(ctx, ledger(ravi, feb2026, 14)))

	p, err := env.calc.SavePolicy(ctx, flatPolicy(bonus.ComponentGrossSalary, bonus.Tier{MaxPercentage: 100, BonusPercentage: 10}))
	require.NoError(t, err)
	b, err := env.calc.CreateBatch(ctx, bonus.BatchRequest{PolicyID: p.ID, StartMonth: feb2026, EndMonth: feb2026}, hrActor)
	require.NoError(t, err)
	assert.Equal(t, 9000.0, b.TotalBonusAmount, "5000 + 4000")

	// Override while pending
	res, err := env.calc.OverrideBonus(ctx, b.ID, "emp-2", 4500, "retention")
	require.NoError(t, err)
	assert.True(t, res.IsManualOverride)
	assert.Equal(t, 4000.0, res.CalculatedBonus)
	assert.Equal(t, 4500.0, res.FinalBonus)

	stored, err := env.calc.GetBatch(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 9500.0, stored.TotalBonusAmount)

	_, err = env.calc.OverrideBonus(ctx, b.ID, "emp-9", 1, "")
	assert.ErrorIs(t, err, bonus.ErrRecordNotFound)

	// pending -> frozen is not allowed
	_, err = env.calc.SetBatchStatus(ctx, b.ID, bonus.BatchFrozen, hrActor)
	assert.ErrorIs(t, err, bonus.ErrInvalidTransition)

	approved, err := env.calc.SetBatchStatus(ctx, b.ID, bonus.BatchApproved, hrActor)
	require.NoError(t, err)
	assert.Equal(t, "hr-1", approved.ApprovedBy)

	_, err = env.calc.OverrideBonus(ctx, b.ID, "emp-2", 1, "")
	assert.ErrorIs(t, err, bonus.ErrBatchLocked)

	frozen, err := env.calc.SetBatchStatus(ctx, b.ID, bonus.BatchFrozen, hrActor)
	require.NoError(t, err)
	assert.Equal(t, bonus.BatchFrozen, frozen.Status)

	_, err = env.calc.SetBatchStatus(ctx, b.ID, bonus.BatchApproved, hrActor)
	assert.ErrorIs(t, err, bonus.ErrInvalidTransition, "frozen is terminal")
}
