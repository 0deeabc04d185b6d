package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/warp/payregister-engine/payregister"
)

// =============================================================================
// SOURCE COLLECTIONS - Writes
// =============================================================================
//
// These are the feeds the engine reads. Upserts by primary key let a
// biometric or leave import be replayed.

func (s *Store) SaveAttendance(ctx context.Context, entries ...payregister.AttendanceEntry) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, e := range entries {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO attendance_daily (id, emp_no, date, status, shift_id, shift_name, is_late, is_early_out)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(emp_no, date) DO UPDATE SET
					id = excluded.id, status = excluded.status,
					shift_id = excluded.shift_id, shift_name = excluded.shift_name,
					is_late = excluded.is_late, is_early_out = excluded.is_early_out`,
				e.ID, e.EmployeeNumber, e.Date.String(), string(e.Status), e.ShiftID, e.ShiftName, e.IsLate, e.IsEarlyOut)
			if err != nil {
				return fmt.Errorf("failed to save attendance %s: %w", e.ID, err)
			}
		}
		return nil
	})
}

func (s *Store) SaveLeaves(ctx context.Context, leaves ...payregister.LeaveRequest) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, l := range leaves {
			_, err := tx.ExecContext(ctx, `
				INSERT OR REPLACE INTO leaves (id, employee_id, from_date, to_date, is_half_day, half_day_type, leave_type, status)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				l.ID, l.EmployeeID, l.FromDate.String(), l.ToDate.String(), l.IsHalfDay, string(l.HalfDayType), l.LeaveType, string(l.Status))
			if err != nil {
				return fmt.Errorf("failed to save leave %s: %w", l.ID, err)
			}
		}
		return nil
	})
}

func (s *Store) SaveLeaveSplits(ctx context.Context, splits ...payregister.LeaveSplit) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, l := range splits {
			_, err := tx.ExecContext(ctx, `
				INSERT OR REPLACE INTO leave_splits (id, employee_id, leave_id, date, is_half_day, half_day_type, leave_type, leave_nature, status)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				l.ID, l.EmployeeID, l.LeaveID, l.Date.String(), l.IsHalfDay, string(l.HalfDayType), l.LeaveType, string(l.LeaveNature), string(l.Status))
			if err != nil {
				return fmt.Errorf("failed to save leave split %s: %w", l.ID, err)
			}
		}
		return nil
	})
}

func (s *Store) SaveODs(ctx context.Context, ods ...payregister.ODRequest) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, o := range ods {
			_, err := tx.ExecContext(ctx, `
				INSERT OR REPLACE INTO ods (id, employee_id, from_date, to_date, is_half_day, half_day_type, purpose, status)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				o.ID, o.EmployeeID, o.FromDate.String(), o.ToDate.String(), o.IsHalfDay, string(o.HalfDayType), o.Purpose, string(o.Status))
			if err != nil {
				return fmt.Errorf("failed to save OD %s: %w", o.ID, err)
			}
		}
		return nil
	})
}

func (s *Store) SaveOvertime(ctx context.Context, entries ...payregister.OvertimeEntry) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, o := range entries {
			_, err := tx.ExecContext(ctx, `
				INSERT OR REPLACE INTO overtime (id, employee_id, date, ot_hours, status)
				VALUES (?, ?, ?, ?, ?)`,
				o.ID, o.EmployeeID, o.Date.String(), o.OTHours, string(o.Status))
			if err != nil {
				return fmt.Errorf("failed to save overtime %s: %w", o.ID, err)
			}
		}
		return nil
	})
}

func (s *Store) SaveRoster(ctx context.Context, entries ...payregister.RosterEntry) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, e := range entries {
			_, err := tx.ExecContext(ctx, `
				INSERT OR REPLACE INTO shift_roster (emp_no, date, shift_id, shift_name, marker)
				VALUES (?, ?, ?, ?, ?)`,
				e.EmployeeNumber, e.Date.String(), e.ShiftID, e.ShiftName, string(e.Marker))
			if err != nil {
				return fmt.Errorf("failed to save roster %s/%s: %w", e.EmployeeNumber, e.Date, err)
			}
		}
		return nil
	})
}

// ClearSources removes every source row. Ledgers and their history are kept.
func (s *Store) ClearSources(ctx context.Context) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"attendance_daily", "leaves", "leave_splits", "ods", "overtime", "shift_roster"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		return nil
	})
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// =============================================================================
// SOURCE COLLECTIONS - Reads (payregister source interfaces)
// =============================================================================

func (s *Store) FetchAttendance(ctx context.Context, employeeNumber string, r payregister.CycleRange) ([]payregister.AttendanceEntry, error) {
	var out []payregister.AttendanceEntry
	err := s.each(ctx, func(sc scanner) error {
		var (
			e            payregister.AttendanceEntry
			date, status string
		)
		if err := sc.Scan(&e.ID, &e.EmployeeNumber, &date, &status, &e.ShiftID, &e.ShiftName, &e.IsLate, &e.IsEarlyOut); err != nil {
			return err
		}
		d, err := parseDate(date)
		if err != nil {
			return err
		}
		e.Date = d
		e.Status = payregister.AttendanceStatus(status)
		out = append(out, e)
		return nil
	}, `
		SELECT id, emp_no, date, status, shift_id, shift_name, is_late, is_early_out
		FROM attendance_daily WHERE emp_no = ? AND date >= ? AND date <= ? ORDER BY date`,
		employeeNumber, r.Start.String(), r.End.String())
	return out, err
}

func (s *Store) FetchLeaves(ctx context.Context, employeeID string, r payregister.CycleRange) ([]payregister.LeaveRequest, error) {
	var out []payregister.LeaveRequest
	err := s.each(ctx, func(sc scanner) error {
		var (
			l                      payregister.LeaveRequest
			from, to, half, status string
		)
		if err := sc.Scan(&l.ID, &l.EmployeeID, &from, &to, &l.IsHalfDay, &half, &l.LeaveType, &status); err != nil {
			return err
		}
		var err error
		if l.FromDate, err = parseDate(from); err != nil {
			return err
		}
		if l.ToDate, err = parseDate(to); err != nil {
			return err
		}
		l.HalfDayType = payregister.HalfDayType(half)
		l.Status = payregister.RequestStatus(status)
		out = append(out, l)
		return nil
	}, `
		SELECT id, employee_id, from_date, to_date, is_half_day, half_day_type, leave_type, status
		FROM leaves WHERE employee_id = ? AND to_date >= ? AND from_date <= ? ORDER BY from_date, id`,
		employeeID, r.Start.String(), r.End.String())
	return out, err
}

func (s *Store) FetchLeaveSplits(ctx context.Context, employeeID string, r payregister.CycleRange) ([]payregister.LeaveSplit, error) {
	var out []payregister.LeaveSplit
	err := s.each(ctx, func(sc scanner) error {
		var (
			l                          payregister.LeaveSplit
			date, half, nature, status string
		)
		if err := sc.Scan(&l.ID, &l.EmployeeID, &l.LeaveID, &date, &l.IsHalfDay, &half, &l.LeaveType, &nature, &status); err != nil {
			return err
		}
		d, err := parseDate(date)
		if err != nil {
			return err
		}
		l.Date = d
		l.HalfDayType = payregister.HalfDayType(half)
		l.LeaveNature = payregister.LeaveNature(nature)
		l.Status = payregister.RequestStatus(status)
		out = append(out, l)
		return nil
	}, `
		SELECT id, employee_id, leave_id, date, is_half_day, half_day_type, leave_type, leave_nature, status
		FROM leave_splits WHERE employee_id = ? AND date >= ? AND date <= ? ORDER BY date, id`,
		employeeID, r.Start.String(), r.End.String())
	return out, err
}

func (s *Store) FetchODs(ctx context.Context, employeeID string, r payregister.CycleRange) ([]payregister.ODRequest, error) {
	var out []payregister.ODRequest
	err := s.each(ctx, func(sc scanner) error {
		var (
			o                      payregister.ODRequest
			from, to, half, status string
		)
		if err := sc.Scan(&o.ID, &o.EmployeeID, &from, &to, &o.IsHalfDay, &half, &o.Purpose, &status); err != nil {
			return err
		}
		var err error
		if o.FromDate, err = parseDate(from); err != nil {
			return err
		}
		if o.ToDate, err = parseDate(to); err != nil {
			return err
		}
		o.HalfDayType = payregister.HalfDayType(half)
		o.Status = payregister.RequestStatus(status)
		out = append(out, o)
		return nil
	}, `
		SELECT id, employee_id, from_date, to_date, is_half_day, half_day_type, purpose, status
		FROM ods WHERE employee_id = ? AND to_date >= ? AND from_date <= ? ORDER BY from_date, id`,
		employeeID, r.Start.String(), r.End.String())
	return out, err
}

func (s *Store) FetchOvertime(ctx context.Context, employeeID string, r payregister.CycleRange) ([]payregister.OvertimeEntry, error) {
	var out []payregister.OvertimeEntry
	err := s.each(ctx, func(sc scanner) error {
		var (
			o            payregister.OvertimeEntry
			date, status string
		)
		if err := sc.Scan(&o.ID, &o.EmployeeID, &date, &o.OTHours, &status); err != nil {
			return err
		}
		d, err := parseDate(date)
		if err != nil {
			return err
		}
		o.Date = d
		o.Status = payregister.RequestStatus(status)
		out = append(out, o)
		return nil
	}, `
		SELECT id, employee_id, date, ot_hours, status
		FROM overtime WHERE employee_id = ? AND date >= ? AND date <= ? ORDER BY date, id`,
		employeeID, r.Start.String(), r.End.String())
	return out, err
}

func (s *Store) FetchRoster(ctx context.Context, employeeNumber string, r payregister.CycleRange) ([]payregister.RosterEntry, error) {
	var out []payregister.RosterEntry
	err := s.each(ctx, func(sc scanner) error {
		var (
			e            payregister.RosterEntry
			date, marker string
		)
		if err := sc.Scan(&e.EmployeeNumber, &date, &e.ShiftID, &e.ShiftName, &marker); err != nil {
			return err
		}
		d, err := parseDate(date)
		if err != nil {
			return err
		}
		e.Date = d
		e.Marker = payregister.RosterMarker(marker)
		out = append(out, e)
		return nil
	}, `
		SELECT emp_no, date, shift_id, shift_name, marker
		FROM shift_roster WHERE emp_no = ? AND date >= ? AND date <= ? ORDER BY date`,
		employeeNumber, r.Start.String(), r.End.String())
	return out, err
}

// each runs query and hands every row to fn.
func (s *Store) each(ctx context.Context, fn func(scanner) error, query string, args ...any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}
