package payregister

import (
	"context"
	"strings"
)

// =============================================================================
// LEAVE NATURE POLICY
// =============================================================================
//
// Every place that needs to know whether a leave is paid goes through this
// file. Two rules live here and nowhere else:
//
//   1. Resolution: a leave-type code that is itself a nature literal maps
//      directly; any other code is looked up in leave settings, and an
//      unresolvable code is treated as paid.
//   2. Bucketing: for totals, anything that is not exactly "paid" counts as
//      LOP. without_pay is kept on the record but merged into LOP.

// LeaveSettings looks up the configured nature of a leave-type code.
// found is false for unknown codes; err is reserved for lookup failures.
type LeaveSettings interface {
	LeaveNature(ctx context.Context, leaveType string) (nature LeaveNature, found bool, err error)
}

// StaticLeaveSettings is a fixed code -> nature table.
type StaticLeaveSettings map[string]LeaveNature

func (s StaticLeaveSettings) LeaveNature(_ context.Context, code string) (LeaveNature, bool, error) {
	n, ok := s[strings.ToUpper(code)]
	return n, ok, nil
}

// natureLiteral maps codes that name a nature directly.
func natureLiteral(code string) (LeaveNature, bool) {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "paid":
		return NaturePaid, true
	case "lop", "loss_of_pay":
		return NatureLOP, true
	case "without_pay":
		return NatureWithoutPay, true
	}
	return "", false
}

// ResolveLeaveNature applies the resolution rule. A nil settings lookup
// behaves like an empty table.
func ResolveLeaveNature(ctx context.Context, settings LeaveSettings, code string) (LeaveNature, error) {
	if n, ok := natureLiteral(code); ok {
		return n, nil
	}
	if settings == nil || code == "" {
		return NaturePaid, nil
	}
	n, found, err := settings.LeaveNature(ctx, code)
	if err != nil {
		return "", err
	}
	if !found || n == "" {
		return NaturePaid, nil
	}
	return n, nil
}

// IsPaidLeave applies the bucketing rule.
func IsPaidLeave(n LeaveNature) bool { return n == NaturePaid }
