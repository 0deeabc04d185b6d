/*
cycle.go - Payroll cycle keys and date-range resolution

PURPOSE:
  A payroll cycle is identified by a CycleKey ("2026-02") but its actual
  calendar range depends on two configurable settings, the cycle start day
  and end day. The resolver turns (year, month, settings) into a concrete
  inclusive date range.

RESOLUTION RULES:
  1. startDay == 1 and endDay >= 28  -> plain calendar month, end clamped
  2. startDay <  endDay              -> same-month range, both ends clamped
  3. startDay >= endDay              -> previous month's startDay through
                                        this month's endDay, each end clamped
                                        to its own month

  Rule 3 means a nominal "26th to 26th" cycle for February produces 32 days
  when January has 31. Clamping absorbs invalid day numbers, so resolution
  never fails.

SETTINGS:
  Settings are fetched once per resolution through SettingsStore and passed
  as a value into ResolveCycle, which stays pure.

SEE ALSO:
  - engine.go: Engine.ResolveCycle wires the settings store in
  - date.go: Date arithmetic
*/
package payregister

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// CYCLE KEY
// =============================================================================

// CycleKey identifies one payroll cycle by its target calendar month.
type CycleKey struct {
	Year  int
	Month time.Month
}

func NewCycleKey(year int, month time.Month) CycleKey {
	return CycleKey{Year: year, Month: month}
}

// ParseCycleKey parses "YYYY-MM".
func ParseCycleKey(s string) (CycleKey, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) != 2 {
		return CycleKey{}, fmt.Errorf("%w: %q (use YYYY-MM)", ErrInvalidCycleKey, s)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return CycleKey{}, fmt.Errorf("%w: %q", ErrInvalidCycleKey, s)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return CycleKey{}, fmt.Errorf("%w: %q", ErrInvalidCycleKey, s)
	}
	return CycleKey{Year: year, Month: time.Month(month)}, nil
}

// String returns the "YYYY-MM" form. It sorts lexically in cycle order.
func (k CycleKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month))
}

// MonthName is the display name, e.g. "February 2026".
func (k CycleKey) MonthName() string {
	return fmt.Sprintf("%s %d", k.Month.String(), k.Year)
}

func (k CycleKey) Previous() CycleKey {
	if k.Month == time.January {
		return CycleKey{Year: k.Year - 1, Month: time.December}
	}
	return CycleKey{Year: k.Year, Month: k.Month - 1}
}

func (k CycleKey) Next() CycleKey {
	if k.Month == time.December {
		return CycleKey{Year: k.Year + 1, Month: time.January}
	}
	return CycleKey{Year: k.Year, Month: k.Month + 1}
}

// After reports whether k is a later cycle than o.
func (k CycleKey) After(o CycleKey) bool {
	if k.Year != o.Year {
		return k.Year > o.Year
	}
	return k.Month > o.Month
}

func (k CycleKey) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *CycleKey) UnmarshalText(b []byte) error {
	parsed, err := ParseCycleKey(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// =============================================================================
// CYCLE SETTINGS
// =============================================================================

const (
	SettingCycleStartDay = "payroll_cycle_start_day"
	SettingCycleEndDay   = "payroll_cycle_end_day"
)

// CycleSettings holds the configured cycle boundaries (1-31).
type CycleSettings struct {
	StartDay int `json:"startDay"`
	EndDay   int `json:"endDay"`
}

func DefaultCycleSettings() CycleSettings {
	return CycleSettings{StartDay: 1, EndDay: 31}
}

// SettingsStore provides the cycle settings. Implementations return the
// defaults for settings that were never written.
type SettingsStore interface {
	CycleSettings(ctx context.Context) (CycleSettings, error)
}

// StaticSettings is a fixed SettingsStore, handy for tests and tools.
type StaticSettings CycleSettings

func (s StaticSettings) CycleSettings(context.Context) (CycleSettings, error) {
	return CycleSettings(s), nil
}

// =============================================================================
// CYCLE RANGE
// =============================================================================

// CycleRange is the resolved, inclusive date range of a cycle.
type CycleRange struct {
	Start     Date `json:"startDate"`
	End       Date `json:"endDate"`
	TotalDays int  `json:"totalDays"`
}

func (r CycleRange) Contains(d Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// Dates returns every date in the range in order.
func (r CycleRange) Dates() []Date {
	dates := make([]Date, 0, r.TotalDays)
	for d := r.Start; !d.After(r.End); d = d.AddDays(1) {
		dates = append(dates, d)
	}
	return dates
}

func (r CycleRange) String() string {
	return "[" + r.Start.String() + ", " + r.End.String() + "]"
}

// ResolveCycle computes the cycle's date range for the target month.
func ResolveCycle(year int, month time.Month, s CycleSettings) CycleRange {
	startDay := clampDay(s.StartDay)
	endDay := clampDay(s.EndDay)
	lastDay := LastDayOfMonth(year, month)

	var start, end Date
	switch {
	case startDay == 1 && endDay >= 28:
		start = NewDate(year, month, 1)
		end = NewDate(year, month, min(endDay, lastDay))
	case startDay < endDay:
		start = NewDate(year, month, min(startDay, lastDay))
		end = NewDate(year, month, min(endDay, lastDay))
	default:
		prev := CycleKey{Year: year, Month: month}.Previous()
		prevLast := LastDayOfMonth(prev.Year, prev.Month)
		start = NewDate(prev.Year, prev.Month, min(startDay, prevLast))
		end = NewDate(year, month, min(endDay, lastDay))
	}

	return CycleRange{Start: start, End: end, TotalDays: DaysBetween(start, end) + 1}
}

// Resolve is ResolveCycle for a key.
func (k CycleKey) Resolve(s CycleSettings) CycleRange {
	return ResolveCycle(k.Year, k.Month, s)
}

func clampDay(d int) int {
	if d < 1 {
		return 1
	}
	if d > 31 {
		return 31
	}
	return d
}
