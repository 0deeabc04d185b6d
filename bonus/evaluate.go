package bonus

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/payregister-engine/payregister"
)

// =============================================================================
// EVALUATION
// =============================================================================

// Result is one employee's bonus outcome.
type Result struct {
	EmployeeID           string  `json:"employeeId"`
	EmployeeNumber       string  `json:"emp_no"`
	EmployeeName         string  `json:"employeeName,omitempty"`
	Month                string  `json:"month"`
	SalaryComponentValue float64 `json:"salaryComponentValue"`
	AttendancePercentage float64 `json:"attendancePercentage"`
	AttendanceDays       float64 `json:"attendanceDays"`
	TotalMonthDays       float64 `json:"totalMonthDays"`
	AppliedTier          *Tier   `json:"appliedTier"`
	CalculatedBonus      float64 `json:"calculatedBonus"`
	FinalBonus           float64 `json:"finalBonus"`
	IsManualOverride     bool    `json:"isManualOverride"`
	Remarks              string  `json:"remarks,omitempty"`
}

// AttendanceStats is the aggregate over a set of totals. The numerator is
// present + OD; the denominator adds absent and leave.
type AttendanceStats struct {
	Numerator   float64
	Denominator float64
	Percentage  float64
}

var hundred = decimal.NewFromInt(100)

// Stats aggregates totals into an attendance percentage rounded to two
// decimals. An empty denominator yields 0.
func Stats(totals []payregister.Totals) AttendanceStats {
	num, den := decimal.Zero, decimal.Zero
	for _, t := range totals {
		worked := decimal.NewFromFloat(t.TotalPresent).Add(decimal.NewFromFloat(t.TotalOD))
		num = num.Add(worked)
		den = den.Add(worked).
			Add(decimal.NewFromFloat(t.TotalAbsent)).
			Add(decimal.NewFromFloat(t.TotalLeave))
	}

	pct := decimal.Zero
	if den.IsPositive() {
		pct = num.Div(den).Mul(hundred).Round(2)
	}
	return AttendanceStats{
		Numerator:   num.InexactFloat64(),
		Denominator: den.InexactFloat64(),
		Percentage:  pct.InexactFloat64(),
	}
}

// BaseValue returns the amount tier percentages apply to.
func BaseValue(emp payregister.Employee, p Policy) decimal.Decimal {
	switch p.SalaryComponent {
	case ComponentFixedAmount:
		return decimal.NewFromFloat(p.FixedBonusAmount)
	default:
		return decimal.NewFromFloat(emp.GrossSalary).Mul(decimal.NewFromFloat(p.Multiplier()))
	}
}

// Evaluate computes the bonus for one employee from the totals of every
// ledger in [start, end]. It returns nil when there are no totals: employees
// without payroll data in the window are skipped, not failed.
func Evaluate(emp payregister.Employee, p Policy, totals []payregister.Totals, start, end payregister.CycleKey) *Result {
	if len(totals) == 0 {
		return nil
	}

	stats := Stats(totals)
	base := BaseValue(emp, p)

	res := &Result{
		EmployeeID:           emp.ID,
		EmployeeNumber:       emp.Number,
		EmployeeName:         emp.Name,
		Month:                fmt.Sprintf("%s to %s", start, end),
		SalaryComponentValue: base.InexactFloat64(),
		AttendancePercentage: stats.Percentage,
		AttendanceDays:       stats.Numerator,
		TotalMonthDays:       stats.Denominator,
	}

	if tier, ok := p.TierFor(stats.Percentage); ok {
		res.AppliedTier = &tier
		amount := base.Mul(decimal.NewFromFloat(tier.BonusPercentage)).Div(hundred).Round(0)
		res.CalculatedBonus = amount.InexactFloat64()
	}
	res.FinalBonus = res.CalculatedBonus
	return res
}

// EvaluateLedgers is Evaluate over the totals of ledgers.
func EvaluateLedgers(emp payregister.Employee, p Policy, ledgers []*payregister.Ledger, start, end payregister.CycleKey) *Result {
	totals := make([]payregister.Totals, 0, len(ledgers))
	for _, l := range ledgers {
		totals = append(totals, l.Totals)
	}
	return Evaluate(emp, p, totals, start, end)
}
