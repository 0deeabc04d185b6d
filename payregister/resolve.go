package payregister

// =============================================================================
// CONFLICT RESOLUTION
// =============================================================================
//
// Precedence, lowest to highest:
//
//   baseline   holiday (HOL) / week_off (WO) / absent
//   leave      sets the covered half or both halves
//   OD         only halves leave did not set, and only if non-working
//   attendance a clock-in promotes non-working halves and full-day leave
//              halves to present; half-day leave and OD halves are kept
//
// HALF_DAY attendance promotes exactly one eligible half, the first if it can.

// ResolveHalves merges one date's sources into its two halves. It is pure.
func ResolveHalves(ds DaySources) (first, second HalfDay) {
	base := StatusAbsent
	if ds.Roster != nil {
		switch ds.Roster.Marker {
		case MarkerHoliday:
			base = StatusHoliday
		case MarkerWeekOff:
			base = StatusWeekOff
		}
	}
	first = HalfDay{Status: base}
	second = HalfDay{Status: base}

	var leaveFirst, leaveSecond bool
	fullDayLeave := false
	if l := ds.Leave; l != nil {
		setLeave := func(h *HalfDay) {
			h.setStatus(StatusLeave)
			h.LeaveType = l.LeaveType
			h.LeaveNature = l.Nature
		}
		switch {
		case !l.IsHalfDay:
			setLeave(&first)
			setLeave(&second)
			leaveFirst, leaveSecond, fullDayLeave = true, true, true
		case l.HalfDayType == SecondHalf:
			setLeave(&second)
			leaveSecond = true
		default:
			setLeave(&first)
			leaveFirst = true
		}
	}

	if od := ds.OD; od != nil {
		applyOD := func(h *HalfDay, takenByLeave bool) {
			if !takenByLeave && h.Status.IsNonWorking() {
				h.setStatus(StatusOD)
			}
		}
		switch {
		case !od.IsHalfDay:
			applyOD(&first, leaveFirst)
			applyOD(&second, leaveSecond)
		case od.HalfDayType == SecondHalf:
			applyOD(&second, leaveSecond)
		default:
			applyOD(&first, leaveFirst)
		}
	}

	if a := ds.Attendance; a != nil {
		canPromote := func(h HalfDay) bool {
			return h.Status.IsNonWorking() || (fullDayLeave && h.Status == StatusLeave)
		}
		switch a.Status {
		case AttendancePresent, AttendancePartial:
			if canPromote(first) {
				first.setStatus(StatusPresent)
			}
			if canPromote(second) {
				second.setStatus(StatusPresent)
			}
		case AttendanceHalfDay:
			if canPromote(first) {
				first.setStatus(StatusPresent)
			} else if canPromote(second) {
				second.setStatus(StatusPresent)
			}
		}
	}
	return first, second
}

// BuildRecord materializes the DailyRecord for one date. OT, shift and source
// references are attached independently of the status resolution.
func BuildRecord(d Date, ds DaySources) DailyRecord {
	rec := NewDailyRecord(d)
	rec.FirstHalf, rec.SecondHalf = ResolveHalves(ds)

	if ds.Roster != nil && ds.Roster.ShiftID != "" {
		rec.ShiftID, rec.ShiftName = ds.Roster.ShiftID, ds.Roster.ShiftName
	} else if ds.Attendance != nil && ds.Attendance.ShiftID != "" {
		rec.ShiftID, rec.ShiftName = ds.Attendance.ShiftID, ds.Attendance.ShiftName
	}
	rec.FirstHalf.ShiftID = rec.ShiftID
	rec.SecondHalf.ShiftID = rec.ShiftID

	if a := ds.Attendance; a != nil {
		rec.AttendanceRecordID = a.ID
		rec.IsLate = a.IsLate
		rec.IsEarlyOut = a.IsEarlyOut
	}
	if l := ds.Leave; l != nil {
		rec.LeaveIDs = cloneStrings(l.LeaveIDs)
		rec.LeaveSplitIDs = cloneStrings(l.SplitIDs)
	}
	if od := ds.OD; od != nil {
		rec.ODIDs = cloneStrings(od.ODIDs)
	}
	if ot := ds.Overtime; ot != nil {
		rec.OTHours = ot.Hours
		rec.OTIDs = cloneStrings(ot.OTIDs)
	}

	rec.Normalize()
	return rec
}

// BuildRecords returns one record per date of r, in order.
func BuildRecords(r CycleRange, snap *Snapshot) []DailyRecord {
	dates := r.Dates()
	records := make([]DailyRecord, 0, len(dates))
	for _, d := range dates {
		records = append(records, BuildRecord(d, snap.For(d)))
	}
	return records
}
