package payregister

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// DAILY RECORD PATCH
// =============================================================================

// HalfDayPatch replaces one half. Status is required when the half is patched.
type HalfDayPatch struct {
	Status    Status   `json:"status"`
	LeaveType string   `json:"leaveType,omitempty"`
	IsOD      bool     `json:"isOD,omitempty"`
	OTHours   *float64 `json:"otHours,omitempty"`
	ShiftID   *string  `json:"shiftId,omitempty"`
	Remarks   *string  `json:"remarks,omitempty"`
}

// DailyPatch is a manual change to one date. Nil fields are left alone.
// Full-day fields apply to both halves.
type DailyPatch struct {
	FirstHalf  *HalfDayPatch `json:"firstHalf,omitempty"`
	SecondHalf *HalfDayPatch `json:"secondHalf,omitempty"`

	Status    *Status  `json:"status,omitempty"`
	LeaveType *string  `json:"leaveType,omitempty"`
	IsOD      *bool    `json:"isOD,omitempty"`
	OTHours   *float64 `json:"otHours,omitempty"`
	ShiftID   *string  `json:"shiftId,omitempty"`
	ShiftName *string  `json:"shiftName,omitempty"`
	Remarks   *string  `json:"remarks,omitempty"`

	// EditRemarks is the reason recorded on every history entry.
	EditRemarks string `json:"editRemarks,omitempty"`
}

// editableStatuses are the statuses a manual edit may set. week_off comes
// only from the roster.
var editableStatuses = []Status{StatusPresent, StatusAbsent, StatusLeave, StatusOD, StatusHoliday}

func editable(s Status) bool {
	for _, v := range editableStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Validate checks the patch without touching any record.
func (p DailyPatch) Validate(d Date) error {
	var problems []string

	checkHalf := func(name string, h *HalfDayPatch) {
		if h == nil {
			return
		}
		if !editable(h.Status) {
			problems = append(problems, fmt.Sprintf("%s.status must be one of: present, absent, leave, od, holiday", name))
		}
		if h.Status == StatusLeave && h.LeaveType == "" {
			problems = append(problems, fmt.Sprintf("%s.leaveType is required when status is leave", name))
		}
		if h.Status != StatusLeave && h.LeaveType != "" {
			problems = append(problems, fmt.Sprintf("%s.leaveType should only be set when status is leave", name))
		}
		if h.Status != StatusOD && h.IsOD {
			problems = append(problems, fmt.Sprintf("%s.isOD should only be set when status is od", name))
		}
		if h.OTHours != nil && *h.OTHours < 0 {
			problems = append(problems, fmt.Sprintf("%s.otHours must be >= 0", name))
		}
	}
	checkHalf("firstHalf", p.FirstHalf)
	checkHalf("secondHalf", p.SecondHalf)

	if p.Status != nil {
		if !editable(*p.Status) {
			problems = append(problems, "status must be one of: present, absent, leave, od, holiday")
		}
		if *p.Status == StatusLeave && (p.LeaveType == nil || *p.LeaveType == "") {
			problems = append(problems, "leaveType is required when status is leave")
		}
		if *p.Status != StatusLeave && p.LeaveType != nil && *p.LeaveType != "" {
			problems = append(problems, "leaveType should only be set when status is leave")
		}
		if *p.Status != StatusOD && p.IsOD != nil && *p.IsOD {
			problems = append(problems, "isOD should only be set when status is od")
		}
	}
	if p.OTHours != nil && *p.OTHours < 0 {
		problems = append(problems, "otHours must be >= 0")
	}

	if len(problems) > 0 {
		return &ValidationError{Date: d, Problems: problems}
	}
	return nil
}

// =============================================================================
// APPLY
// =============================================================================

// ApplyPatch validates and applies p to date d, appending one history entry
// per changed field and recalculating totals. On any error the ledger is left
// unchanged.
func (l *Ledger) ApplyPatch(ctx context.Context, d Date, p DailyPatch, actor Actor, settings LeaveSettings, now time.Time) (DailyRecord, error) {
	if err := l.EnsureMutable(); err != nil {
		return DailyRecord{}, err
	}
	if !l.Range.Contains(d) {
		return DailyRecord{}, &ValidationError{
			Date:     d,
			Problems: []string{fmt.Sprintf("date is outside cycle %s %s", l.Cycle, l.Range)},
		}
	}
	if err := p.Validate(d); err != nil {
		return DailyRecord{}, err
	}
	if actor.Name == "" {
		actor.Name = SystemActor.Name
	}
	if actor.Role == "" {
		actor.Role = SystemActor.Role
	}

	// Natures are resolved up front so a lookup failure cannot leave a
	// half-applied record.
	natures := map[string]LeaveNature{}
	resolve := func(code string) error {
		if code == "" {
			return nil
		}
		if _, ok := natures[code]; ok {
			return nil
		}
		n, err := ResolveLeaveNature(ctx, settings, code)
		if err != nil {
			return &SourceFetchError{Source: "leave_settings", Err: err}
		}
		natures[code] = n
		return nil
	}
	for _, code := range p.leaveCodes() {
		if err := resolve(code); err != nil {
			return DailyRecord{}, err
		}
	}

	old, ok := l.Record(d)
	if !ok {
		old = NewDailyRecord(d)
	}
	rec := old.Clone()

	halfOTPatched := false
	applyHalf := func(h *HalfDay, hp *HalfDayPatch) {
		if hp == nil {
			return
		}
		h.setStatus(hp.Status)
		if hp.Status == StatusLeave {
			h.LeaveType = hp.LeaveType
			h.LeaveNature = natures[hp.LeaveType]
		}
		if hp.OTHours != nil {
			h.OTHours = *hp.OTHours
			halfOTPatched = true
		}
		if hp.ShiftID != nil {
			h.ShiftID = *hp.ShiftID
		}
		if hp.Remarks != nil {
			h.Remarks = *hp.Remarks
		}
	}
	applyHalf(&rec.FirstHalf, p.FirstHalf)
	applyHalf(&rec.SecondHalf, p.SecondHalf)

	if p.Status != nil {
		rec.FirstHalf.setStatus(*p.Status)
		rec.SecondHalf.setStatus(*p.Status)
	}
	if p.LeaveType != nil && *p.LeaveType != "" {
		for _, h := range []*HalfDay{&rec.FirstHalf, &rec.SecondHalf} {
			if h.Status == StatusLeave {
				h.LeaveType = *p.LeaveType
				h.LeaveNature = natures[*p.LeaveType]
			}
		}
	}
	if p.ShiftID != nil {
		rec.ShiftID = *p.ShiftID
		rec.FirstHalf.ShiftID = *p.ShiftID
		rec.SecondHalf.ShiftID = *p.ShiftID
	}
	if p.ShiftName != nil {
		rec.ShiftName = *p.ShiftName
	}
	if p.Remarks != nil {
		rec.Remarks = *p.Remarks
	}

	switch {
	case p.OTHours != nil:
		rec.OTHours = *p.OTHours
	case halfOTPatched:
		rec.OTHours = rec.FirstHalf.OTHours + rec.SecondHalf.OTHours
	}

	rec.Normalize()

	entries := diffRecords(old, rec, actor, now, p.EditRemarks)
	if len(entries) > 0 || p.EditRemarks != "" {
		rec.IsManuallyEdited = true
	}

	l.putRecord(rec)
	l.appendHistory(entries...)
	l.Recalculate()
	l.markEdited(actor, now)
	return rec.Clone(), nil
}

func (p DailyPatch) leaveCodes() []string {
	var codes []string
	if p.FirstHalf != nil && p.FirstHalf.Status == StatusLeave {
		codes = append(codes, p.FirstHalf.LeaveType)
	}
	if p.SecondHalf != nil && p.SecondHalf.Status == StatusLeave {
		codes = append(codes, p.SecondHalf.LeaveType)
	}
	if p.LeaveType != nil {
		codes = append(codes, *p.LeaveType)
	}
	return codes
}

// diffRecords returns one entry per audited field that changed.
func diffRecords(old, cur DailyRecord, actor Actor, now time.Time, remarks string) []EditHistoryEntry {
	var entries []EditHistoryEntry
	add := func(field string, oldValue, newValue any) {
		entries = append(entries, EditHistoryEntry{
			ID:           uuid.NewString(),
			Date:         cur.Date,
			Field:        field,
			OldValue:     oldValue,
			NewValue:     newValue,
			EditedBy:     actor.ID,
			EditedByName: actor.Name,
			EditedByRole: actor.Role,
			EditedAt:     now,
			Remarks:      remarks,
		})
	}
	if old.FirstHalf.Status != cur.FirstHalf.Status {
		add("firstHalf.status", string(old.FirstHalf.Status), string(cur.FirstHalf.Status))
	}
	if old.SecondHalf.Status != cur.SecondHalf.Status {
		add("secondHalf.status", string(old.SecondHalf.Status), string(cur.SecondHalf.Status))
	}
	if old.OTHours != cur.OTHours {
		add("otHours", old.OTHours, cur.OTHours)
	}
	if old.ShiftID != cur.ShiftID {
		add("shiftId", old.ShiftID, cur.ShiftID)
	}
	return entries
}
