package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/warp/payregister-engine/payregister"
)

// =============================================================================
// LEDGER STORE (payregister.LedgerStore interface)
// =============================================================================

const ledgerColumns = `
	id, employee_id, emp_no, employee_name, cycle_key, month_name,
	range_start, range_end, total_days, status, notes,
	records_json, totals_json, synced_json, last_auto_synced_at,
	last_edited_by, last_edited_at, created_at, updated_at`

func (s *Store) GetLedger(ctx context.Context, employeeID string, cycle payregister.CycleKey) (*payregister.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+ledgerColumns+" FROM ledgers WHERE employee_id = ? AND cycle_key = ?",
		employeeID, cycle.String())
	l, err := scanLedger(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &payregister.NotFoundError{Kind: "ledger", Key: employeeID + "/" + cycle.String()}
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadHistory(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// CreateLedger inserts the ledger and any history it already carries.
func (s *Store) CreateLedger(ctx context.Context, l *payregister.Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	args, err := ledgerArgs(l)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO ledgers ("+ledgerColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		args...)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: %s/%s", payregister.ErrLedgerExists, l.EmployeeID, l.Cycle)
		}
		return fmt.Errorf("failed to insert ledger: %w", err)
	}
	if err := insertHistory(ctx, tx, l.ID, 0, l.EditHistory); err != nil {
		return err
	}
	return tx.Commit()
}

// SaveLedger rewrites the ledger row and appends history entries the
// database does not have yet.
func (s *Store) SaveLedger(ctx context.Context, l *payregister.Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	args, err := ledgerArgs(l)
	if err != nil {
		return err
	}
	// args[0] is the id, bound last for the WHERE clause.
	res, err := tx.ExecContext(ctx, `
		UPDATE ledgers SET
			employee_id = ?, emp_no = ?, employee_name = ?, cycle_key = ?, month_name = ?,
			range_start = ?, range_end = ?, total_days = ?, status = ?, notes = ?,
			records_json = ?, totals_json = ?, synced_json = ?, last_auto_synced_at = ?,
			last_edited_by = ?, last_edited_at = ?, created_at = ?, updated_at = ?
		WHERE id = ?`,
		append(args[1:], l.ID)...)
	if err != nil {
		return fmt.Errorf("failed to update ledger: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &payregister.NotFoundError{Kind: "ledger", Key: l.EmployeeID + "/" + l.Cycle.String()}
	}

	var stored int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM edit_history WHERE ledger_id = ?", l.ID).Scan(&stored); err != nil {
		return fmt.Errorf("failed to count history: %w", err)
	}
	if stored < len(l.EditHistory) {
		if err := insertHistory(ctx, tx, l.ID, stored, l.EditHistory[stored:]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) ListLedgers(ctx context.Context, cycle payregister.CycleKey) ([]*payregister.Ledger, error) {
	return s.queryLedgers(ctx,
		"SELECT "+ledgerColumns+" FROM ledgers WHERE cycle_key = ? ORDER BY emp_no",
		cycle.String())
}

func (s *Store) ListEmployeeLedgers(ctx context.Context, employeeID string, from, to payregister.CycleKey) ([]*payregister.Ledger, error) {
	return s.queryLedgers(ctx,
		"SELECT "+ledgerColumns+" FROM ledgers WHERE employee_id = ? AND cycle_key >= ? AND cycle_key <= ? ORDER BY cycle_key",
		employeeID, from.String(), to.String())
}

func (s *Store) queryLedgers(ctx context.Context, query string, args ...any) ([]*payregister.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledgers: %w", err)
	}
	var ledgers []*payregister.Ledger
	for rows.Next() {
		l, err := scanLedger(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		ledgers = append(ledgers, l)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	// History is loaded after the cursor is released.
	for _, l := range ledgers {
		if err := s.loadHistory(ctx, l); err != nil {
			return nil, err
		}
	}
	return ledgers, nil
}

// =============================================================================
// EDIT HISTORY (insert-only)
// =============================================================================

func insertHistory(ctx context.Context, db execer, ledgerID string, startSeq int, entries []payregister.EditHistoryEntry) error {
	for i, e := range entries {
		oldJSON, err := json.Marshal(e.OldValue)
		if err != nil {
			return fmt.Errorf("encode history value: %w", err)
		}
		newJSON, err := json.Marshal(e.NewValue)
		if err != nil {
			return fmt.Errorf("encode history value: %w", err)
		}
		_, err = db.ExecContext(ctx, `
			INSERT INTO edit_history
			(id, ledger_id, seq, date, field, old_value_json, new_value_json,
			 edited_by, edited_by_name, edited_by_role, edited_at, remarks)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, ledgerID, startSeq+i, e.Date.String(), e.Field, string(oldJSON), string(newJSON),
			e.EditedBy, e.EditedByName, e.EditedByRole, formatTime(e.EditedAt), e.Remarks,
		)
		if err != nil {
			return fmt.Errorf("failed to append history: %w", err)
		}
	}
	return nil
}

func (s *Store) loadHistory(ctx context.Context, l *payregister.Ledger) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, field, old_value_json, new_value_json,
		       edited_by, edited_by_name, edited_by_role, edited_at, remarks
		FROM edit_history WHERE ledger_id = ? ORDER BY seq`, l.ID)
	if err != nil {
		return fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	l.EditHistory = []payregister.EditHistoryEntry{}
	for rows.Next() {
		var (
			e                payregister.EditHistoryEntry
			date, editedAt   string
			oldJSON, newJSON sql.NullString
		)
		if err := rows.Scan(&e.ID, &date, &e.Field, &oldJSON, &newJSON,
			&e.EditedBy, &e.EditedByName, &e.EditedByRole, &editedAt, &e.Remarks); err != nil {
			return err
		}
		if e.Date, err = parseDate(date); err != nil {
			return err
		}
		e.EditedAt = parseTime(editedAt)
		e.OldValue = decodeValue(oldJSON)
		e.NewValue = decodeValue(newJSON)
		l.EditHistory = append(l.EditHistory, e)
	}
	return rows.Err()
}

func decodeValue(ns sql.NullString) any {
	if !ns.Valid {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(ns.String), &v); err != nil {
		return ns.String
	}
	return v
}

// =============================================================================
// ROW MAPPING
// =============================================================================

type scanner interface {
	Scan(dest ...any) error
}

func ledgerArgs(l *payregister.Ledger) ([]any, error) {
	records, err := json.Marshal(l.Records)
	if err != nil {
		return nil, fmt.Errorf("encode records: %w", err)
	}
	totals, err := json.Marshal(l.Totals)
	if err != nil {
		return nil, fmt.Errorf("encode totals: %w", err)
	}
	synced, err := json.Marshal(l.SyncedAt)
	if err != nil {
		return nil, fmt.Errorf("encode sync timestamps: %w", err)
	}
	return []any{
		l.ID, l.EmployeeID, l.EmployeeNumber, l.EmployeeName, l.Cycle.String(), l.MonthName,
		l.Range.Start.String(), l.Range.End.String(), l.Range.TotalDays, string(l.Status), l.Notes,
		string(records), string(totals), string(synced), nullTime(l.LastAutoSyncedAt),
		l.LastEditedBy, nullTime(l.LastEditedAt), formatTime(l.CreatedAt), formatTime(l.UpdatedAt),
	}, nil
}

func scanLedger(row scanner) (*payregister.Ledger, error) {
	var (
		l                         payregister.Ledger
		cycle, start, end, status string
		records, totals, synced   string
		autoSynced, lastEditedAt  sql.NullString
		createdAt, updatedAt      string
	)
	err := row.Scan(
		&l.ID, &l.EmployeeID, &l.EmployeeNumber, &l.EmployeeName, &cycle, &l.MonthName,
		&start, &end, &l.Range.TotalDays, &status, &l.Notes,
		&records, &totals, &synced, &autoSynced,
		&l.LastEditedBy, &lastEditedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if l.Cycle, err = payregister.ParseCycleKey(cycle); err != nil {
		return nil, err
	}
	if l.Range.Start, err = parseDate(start); err != nil {
		return nil, err
	}
	if l.Range.End, err = parseDate(end); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(records), &l.Records); err != nil {
		return nil, fmt.Errorf("decode records of ledger %s: %w", l.ID, err)
	}
	if err := json.Unmarshal([]byte(totals), &l.Totals); err != nil {
		return nil, fmt.Errorf("decode totals of ledger %s: %w", l.ID, err)
	}
	if err := json.Unmarshal([]byte(synced), &l.SyncedAt); err != nil {
		return nil, fmt.Errorf("decode sync timestamps of ledger %s: %w", l.ID, err)
	}
	l.Status = payregister.LedgerStatus(status)
	l.LastAutoSyncedAt = timePtr(autoSynced)
	l.LastEditedAt = timePtr(lastEditedAt)
	l.CreatedAt = parseTime(createdAt)
	l.UpdatedAt = parseTime(updatedAt)
	l.EditHistory = []payregister.EditHistoryEntry{}
	l.Reindex()
	return &l, nil
}
