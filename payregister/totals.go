package payregister

import "github.com/shopspring/decimal"

// =============================================================================
// TOTALS - Derived summary of a ledger's daily records
// =============================================================================

// Totals is fully recomputable from the records except ExtraDays, which is a
// manual override carried across recalculation.
type Totals struct {
	PresentDays     float64 `json:"presentDays"`
	PresentHalfDays float64 `json:"presentHalfDays"`
	TotalPresent    float64 `json:"totalPresentDays"`

	AbsentDays     float64 `json:"absentDays"`
	AbsentHalfDays float64 `json:"absentHalfDays"`
	TotalAbsent    float64 `json:"totalAbsentDays"`

	PaidLeaveDays     float64 `json:"paidLeaveDays"`
	PaidLeaveHalfDays float64 `json:"paidLeaveHalfDays"`
	TotalPaidLeave    float64 `json:"totalPaidLeaveDays"`

	LOPDays     float64 `json:"lopDays"`
	LOPHalfDays float64 `json:"lopHalfDays"`
	TotalLOP    float64 `json:"totalLopDays"`

	// Always zero: non-paid leave is merged into LOP.
	TotalUnpaidLeave float64 `json:"totalUnpaidLeaveDays"`
	TotalLeave       float64 `json:"totalLeaveDays"`

	ODDays     float64 `json:"odDays"`
	ODHalfDays float64 `json:"odHalfDays"`
	TotalOD    float64 `json:"totalODDays"`

	TotalOTHours       float64 `json:"totalOTHours"`
	TotalHolidays      float64 `json:"totalHolidays"`
	TotalWeeklyOffs    float64 `json:"totalWeeklyOffs"`
	LateCount          int     `json:"lateCount"`
	EarlyOutCount      int     `json:"earlyOutCount"`
	ExtraDays          float64 `json:"extraDays"`
	TotalPayableShifts float64 `json:"totalPayableShifts"`
}

// counter accumulates in decimal so repeated half-day additions stay exact.
type counter struct {
	present, absent, paid, lop, od decimal.Decimal

	presentH, absentH, paidH, lopH, odH decimal.Decimal

	ot, holidays, weekOffs decimal.Decimal

	late, earlyOut int
}

var (
	one  = decimal.NewFromInt(1)
	half = decimal.NewFromFloat(0.5)
)

func (c *counter) full(h HalfDay) {
	switch h.Status {
	case StatusPresent:
		c.present = c.present.Add(one)
	case StatusAbsent:
		c.absent = c.absent.Add(one)
	case StatusOD:
		c.od = c.od.Add(one)
	case StatusLeave:
		if IsPaidLeave(h.LeaveNature) {
			c.paid = c.paid.Add(one)
		} else {
			c.lop = c.lop.Add(one)
		}
	}
}

func (c *counter) halfDay(h HalfDay) {
	switch h.Status {
	case StatusPresent:
		c.presentH = c.presentH.Add(one)
	case StatusAbsent:
		c.absentH = c.absentH.Add(one)
	case StatusOD:
		c.odH = c.odH.Add(one)
	case StatusLeave:
		if IsPaidLeave(h.LeaveNature) {
			c.paidH = c.paidH.Add(one)
		} else {
			c.lopH = c.lopH.Add(one)
		}
	}
}

func (c *counter) offDay(r DailyRecord) {
	if r.ActuallySplit() || r.Status == nil {
		for _, h := range []HalfDay{r.FirstHalf, r.SecondHalf} {
			switch h.Status {
			case StatusHoliday:
				c.holidays = c.holidays.Add(half)
			case StatusWeekOff:
				c.weekOffs = c.weekOffs.Add(half)
			}
		}
		return
	}
	switch *r.Status {
	case StatusHoliday:
		c.holidays = c.holidays.Add(one)
	case StatusWeekOff:
		c.weekOffs = c.weekOffs.Add(one)
	}
}

// CalculateTotals derives Totals from records. extraDays is the preserved
// manual override. The function is pure and idempotent.
func CalculateTotals(records []DailyRecord, extraDays float64) Totals {
	var c counter
	for _, r := range records {
		c.ot = c.ot.Add(decimal.NewFromFloat(r.OTHours))
		// Lates and early outs only count on a day with some presence.
		if r.HasWork() {
			if r.IsLate {
				c.late++
			}
			if r.IsEarlyOut {
				c.earlyOut++
			}
		}

		if r.IsOffDay() {
			c.offDay(r)
			continue
		}

		if r.ActuallySplit() {
			c.halfDay(r.FirstHalf)
			c.halfDay(r.SecondHalf)
			continue
		}

		h := r.FirstHalf
		if r.Status != nil {
			h.Status = *r.Status
			if r.LeaveNature != "" {
				h.LeaveNature = r.LeaveNature
			}
		}
		c.full(h)
	}

	combine := func(full, halves decimal.Decimal) decimal.Decimal {
		return full.Add(halves.Mul(half))
	}
	present := combine(c.present, c.presentH)
	absent := combine(c.absent, c.absentH)
	paid := combine(c.paid, c.paidH)
	lop := combine(c.lop, c.lopH)
	od := combine(c.od, c.odH)
	extra := decimal.NewFromFloat(extraDays)

	return Totals{
		PresentDays:     round2(c.present),
		PresentHalfDays: round2(c.presentH),
		TotalPresent:    round2(present),

		AbsentDays:     round2(c.absent),
		AbsentHalfDays: round2(c.absentH),
		TotalAbsent:    round2(absent),

		PaidLeaveDays:     round2(c.paid),
		PaidLeaveHalfDays: round2(c.paidH),
		TotalPaidLeave:    round2(paid),

		LOPDays:     round2(c.lop),
		LOPHalfDays: round2(c.lopH),
		TotalLOP:    round2(lop),

		TotalUnpaidLeave: 0,
		TotalLeave:       round2(paid.Add(lop)),

		ODDays:     round2(c.od),
		ODHalfDays: round2(c.odH),
		TotalOD:    round2(od),

		TotalOTHours:       round2(c.ot),
		TotalHolidays:      round2(c.holidays),
		TotalWeeklyOffs:    round2(c.weekOffs),
		LateCount:          c.late,
		EarlyOutCount:      c.earlyOut,
		ExtraDays:          round2(extra),
		TotalPayableShifts: round2(present.Add(od).Add(paid).Add(extra)),
	}
}

func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
