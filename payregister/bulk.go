/*
bulk.go - Redistribution of monthly summary counts across a ledger

PURPOSE:
  A bulk upload carries one row of monthly counts per employee (present,
  absent, paid leave, LOP, OD, holidays, lates, OT hours, extra days), not
  daily detail. Distribute turns those counts back into daily records so the
  totals reproduce the uploaded figures.

ALGORITHM:
  1. Every record is reset (remarks, late/early flags, OT, manual flag).
     Working dates also go back to absent/absent. Holiday and week-off dates
     keep their status and form the overflow pool, in date order.
  2. Two cursors walk the working dates and the pool. Each category consumes
     whole days; a fractional remainder fills only the first half of the
     next working date.
  3. Order is fixed: OD, present minus OD, paid leave, LOP, holiday (only
     when the pool is empty), absent.
  4. Only present and OD overflow into the pool once working dates run out.
     Counts beyond that are dropped.
  5. Lates mark the first N working records; the OT total goes to the first
     working record.
  6. Totals are recalculated, the extra-days override is set, and totals are
     recalculated again.

SEE ALSO:
  - engine.go: DistributeBulkSummary runs rows through a bounded pool
  - upload/: workbook parsing into SummaryRow
*/
package payregister

import "time"

// SummaryRow is one employee's monthly counts from a bulk upload.
type SummaryRow struct {
	RowNumber      int     `json:"row"`
	EmployeeNumber string  `json:"empNo"`
	Present        float64 `json:"present"`
	Absent         float64 `json:"absent"`
	PaidLeave      float64 `json:"paidLeave"`
	LOP            float64 `json:"lop"`
	OD             float64 `json:"od"`
	Holidays       float64 `json:"holidays"`
	Lates          float64 `json:"lates"`
	OTHours        float64 `json:"otHours"`
	ExtraDays      float64 `json:"extraDays"`
}

const remarkLateUploaded = "Late Arrival (Uploaded)"

// distributor holds the two cursors over a ledger's records.
type distributor struct {
	l       *Ledger
	working []int
	pool    []int
	wi, pi  int
}

func newDistributor(l *Ledger) *distributor {
	d := &distributor{l: l}
	for i := range l.Records {
		r := &l.Records[i]
		r.IsLate = false
		r.IsEarlyOut = false
		r.OTHours = 0
		r.FirstHalf.OTHours = 0
		r.SecondHalf.OTHours = 0
		r.Remarks = ""
		r.IsManuallyEdited = false

		if r.DayStatus().IsOff() {
			d.pool = append(d.pool, i)
			continue
		}
		d.working = append(d.working, i)
		r.FirstHalf.setStatus(StatusAbsent)
		r.SecondHalf.setStatus(StatusAbsent)
		r.Normalize()
	}
	return d
}

func (d *distributor) fill(h *HalfDay, status Status, nature LeaveNature) {
	h.setStatus(status)
	if status == StatusLeave {
		h.LeaveType = string(nature)
		h.LeaveNature = nature
	}
}

// distribute consumes count units of status and returns what could not be placed.
func (d *distributor) distribute(count float64, status Status, nature LeaveNature) float64 {
	remaining := count

	for remaining > 0 && d.wi < len(d.working) {
		r := &d.l.Records[d.working[d.wi]]
		if remaining >= 1 {
			d.fill(&r.FirstHalf, status, nature)
			d.fill(&r.SecondHalf, status, nature)
			remaining--
		} else {
			d.fill(&r.FirstHalf, status, nature)
			remaining = 0
		}
		r.Normalize()
		d.wi++
	}

	if remaining <= 0 || (status != StatusPresent && status != StatusOD) {
		return remaining
	}

	for remaining > 0 && d.pi < len(d.pool) {
		r := &d.l.Records[d.pool[d.pi]]
		label := "Week Off"
		if r.DayStatus() == StatusHoliday {
			label = "Holiday"
		}
		markWorked := func(h *HalfDay) {
			h.setStatus(StatusPresent)
			h.IsOD = status == StatusOD
		}
		if remaining >= 1 {
			markWorked(&r.FirstHalf)
			markWorked(&r.SecondHalf)
			r.appendRemark("Worked on " + label + " (Uploaded)")
			remaining--
		} else {
			markWorked(&r.FirstHalf)
			r.appendRemark("Worked half-day on " + label + " (Uploaded)")
			remaining = 0
		}
		r.IsManuallyEdited = true
		r.Normalize()
		d.pi++
	}
	return remaining
}

// Distribute rewrites the ledger's records from one summary row.
func (l *Ledger) Distribute(row SummaryRow, actor Actor, now time.Time) error {
	if err := l.EnsureMutable(); err != nil {
		return err
	}

	d := newDistributor(l)
	poolEmpty := len(d.pool) == 0

	d.distribute(row.OD, StatusOD, "")
	d.distribute(max(0, row.Present-row.OD), StatusPresent, "")
	d.distribute(row.PaidLeave, StatusLeave, NaturePaid)
	d.distribute(row.LOP, StatusLeave, NatureLOP)
	if row.Holidays > 0 && poolEmpty {
		d.distribute(row.Holidays, StatusHoliday, "")
	}
	d.distribute(row.Absent, StatusAbsent, "")

	lates := row.Lates
	for i := range l.Records {
		if lates <= 0 {
			break
		}
		r := &l.Records[i]
		if r.HasWork() {
			r.IsLate = true
			r.appendRemark(remarkLateUploaded)
			lates--
		}
	}

	if row.OTHours > 0 {
		for i := range l.Records {
			if l.Records[i].HasWork() {
				l.Records[i].OTHours = row.OTHours
				break
			}
		}
	}

	l.Recalculate()
	l.SetExtraDays(row.ExtraDays)
	l.markEdited(actor, now)
	return nil
}
