package payregister

// IsProtected reports whether d was ever manually edited. Sync skips protected
// dates; direct edits are never gated by it.
func IsProtected(l *Ledger, d Date) bool {
	for _, e := range l.EditHistory {
		if e.Date == d {
			return true
		}
	}
	return false
}

// ProtectedDates returns the set of dates with edit history, for callers that
// check many dates at once.
func ProtectedDates(l *Ledger) map[Date]bool {
	out := make(map[Date]bool, len(l.EditHistory))
	for _, e := range l.EditHistory {
		out[e.Date] = true
	}
	return out
}
