package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/warp/payregister-engine/payregister"
)

// =============================================================================
// EMPLOYEES (payregister.EmployeeDirectory interface)
// =============================================================================

// SaveEmployee inserts or replaces an employee.
func (s *Store) SaveEmployee(ctx context.Context, emp payregister.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (id, emp_no, name, gross_salary, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			emp_no = excluded.emp_no,
			name = excluded.name,
			gross_salary = excluded.gross_salary`,
		emp.ID, emp.Number, emp.Name, emp.GrossSalary, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

func (s *Store) GetEmployee(ctx context.Context, id string) (payregister.Employee, error) {
	return s.queryEmployee(ctx, "id", id)
}

func (s *Store) FindEmployeeByNumber(ctx context.Context, number string) (payregister.Employee, error) {
	return s.queryEmployee(ctx, "emp_no", strings.TrimSpace(number))
}

func (s *Store) queryEmployee(ctx context.Context, column, value string) (payregister.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var emp payregister.Employee
	err := s.db.QueryRowContext(ctx,
		"SELECT id, emp_no, name, gross_salary FROM employees WHERE "+column+" = ?", value,
	).Scan(&emp.ID, &emp.Number, &emp.Name, &emp.GrossSalary)
	if errors.Is(err, sql.ErrNoRows) {
		return payregister.Employee{}, &payregister.NotFoundError{Kind: "employee", Key: value}
	}
	if err != nil {
		return payregister.Employee{}, fmt.Errorf("failed to get employee: %w", err)
	}
	return emp, nil
}

func (s *Store) ListEmployees(ctx context.Context) ([]payregister.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, emp_no, name, gross_salary FROM employees ORDER BY emp_no")
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	var out []payregister.Employee
	for rows.Next() {
		var emp payregister.Employee
		if err := rows.Scan(&emp.ID, &emp.Number, &emp.Name, &emp.GrossSalary); err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}

// =============================================================================
// SETTINGS (payregister.SettingsStore interface)
// =============================================================================

// CycleSettings reads the payroll cycle start and end day. Missing or
// malformed values fall back to the defaults.
func (s *Store) CycleSettings(ctx context.Context) (payregister.CycleSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settings := payregister.DefaultCycleSettings()
	rows, err := s.db.QueryContext(ctx,
		"SELECT key, value FROM settings WHERE key IN (?, ?)",
		payregister.SettingCycleStartDay, payregister.SettingCycleEndDay)
	if err != nil {
		return settings, fmt.Errorf("failed to read settings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return settings, err
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			continue
		}
		switch key {
		case payregister.SettingCycleStartDay:
			settings.StartDay = n
		case payregister.SettingCycleEndDay:
			settings.EndDay = n
		}
	}
	return settings, rows.Err()
}

// SetCycleSettings writes both cycle settings.
func (s *Store) SetCycleSettings(ctx context.Context, cs payregister.CycleSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := formatTime(time.Now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?), (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		payregister.SettingCycleStartDay, strconv.Itoa(cs.StartDay), now,
		payregister.SettingCycleEndDay, strconv.Itoa(cs.EndDay), now,
	)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// SeedCycleSettings writes the cycle settings only where none are stored, so
// values changed through the API survive a restart.
func (s *Store) SeedCycleSettings(ctx context.Context, cs payregister.CycleSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := formatTime(time.Now())
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO settings (key, value, updated_at) VALUES (?, ?, ?), (?, ?, ?)`,
		payregister.SettingCycleStartDay, strconv.Itoa(cs.StartDay), now,
		payregister.SettingCycleEndDay, strconv.Itoa(cs.EndDay), now,
	)
	if err != nil {
		return fmt.Errorf("failed to seed settings: %w", err)
	}
	return nil
}

// =============================================================================
// LEAVE TYPES (payregister.LeaveSettings interface)
// =============================================================================

// SaveLeaveType maps a leave code to its nature. Codes are case-insensitive.
func (s *Store) SaveLeaveType(ctx context.Context, code string, nature payregister.LeaveNature) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leave_types (code, nature) VALUES (?, ?)
		ON CONFLICT(code) DO UPDATE SET nature = excluded.nature`,
		strings.ToUpper(strings.TrimSpace(code)), string(nature))
	if err != nil {
		return fmt.Errorf("failed to save leave type: %w", err)
	}
	return nil
}

func (s *Store) LeaveNature(ctx context.Context, code string) (payregister.LeaveNature, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var nature string
	err := s.db.QueryRowContext(ctx,
		"SELECT nature FROM leave_types WHERE code = ?", strings.ToUpper(strings.TrimSpace(code)),
	).Scan(&nature)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read leave type: %w", err)
	}
	return payregister.LeaveNature(nature), true, nil
}
