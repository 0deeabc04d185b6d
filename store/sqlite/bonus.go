package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/warp/payregister-engine/bonus"
)

// =============================================================================
// BONUS POLICIES AND BATCHES (bonus.Store interface)
// =============================================================================

func (s *Store) SavePolicy(ctx context.Context, p bonus.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode policy: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO bonus_policies (id, name, is_active, policy_json, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, is_active = excluded.is_active,
			policy_json = excluded.policy_json, updated_at = excluded.updated_at`,
		p.ID, p.Name, p.IsActive, string(data), formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to save policy: %w", err)
	}
	return nil
}

func (s *Store) GetPolicy(ctx context.Context, id string) (bonus.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var data string
	err := s.db.QueryRowContext(ctx, "SELECT policy_json FROM bonus_policies WHERE id = ?", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return bonus.Policy{}, fmt.Errorf("%w: %s", bonus.ErrPolicyNotFound, id)
	}
	if err != nil {
		return bonus.Policy{}, fmt.Errorf("failed to get policy: %w", err)
	}
	var p bonus.Policy
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return bonus.Policy{}, fmt.Errorf("decode policy %s: %w", id, err)
	}
	return p, nil
}

func (s *Store) ListPolicies(ctx context.Context) ([]bonus.Policy, error) {
	var out []bonus.Policy
	err := s.each(ctx, func(sc scanner) error {
		var data string
		if err := sc.Scan(&data); err != nil {
			return err
		}
		var p bonus.Policy
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return fmt.Errorf("decode policy: %w", err)
		}
		out = append(out, p)
		return nil
	}, "SELECT policy_json FROM bonus_policies ORDER BY name")
	return out, err
}

func (s *Store) CreateBatch(ctx context.Context, b *bonus.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode batch: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO bonus_batches (id, name, policy_id, start_month, end_month, status, batch_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Name, b.PolicyID, b.StartMonth.String(), b.EndMonth.String(), string(b.Status),
		string(data), formatTime(b.CreatedAt), formatTime(b.UpdatedAt))
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: %s", bonus.ErrBatchExists, b.Name)
		}
		return fmt.Errorf("failed to create batch: %w", err)
	}
	return nil
}

func (s *Store) GetBatch(ctx context.Context, id string) (*bonus.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var data string
	err := s.db.QueryRowContext(ctx, "SELECT batch_json FROM bonus_batches WHERE id = ?", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", bonus.ErrBatchNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}
	var b bonus.Batch
	if err := json.Unmarshal([]byte(data), &b); err != nil {
		return nil, fmt.Errorf("decode batch %s: %w", id, err)
	}
	return &b, nil
}

func (s *Store) SaveBatch(ctx context.Context, b *bonus.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode batch: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE bonus_batches SET status = ?, batch_json = ?, updated_at = ? WHERE id = ?`,
		string(b.Status), string(data), formatTime(b.UpdatedAt), b.ID)
	if err != nil {
		return fmt.Errorf("failed to save batch: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", bonus.ErrBatchNotFound, b.ID)
	}
	return nil
}

func (s *Store) ListBatches(ctx context.Context) ([]*bonus.Batch, error) {
	var out []*bonus.Batch
	err := s.each(ctx, func(sc scanner) error {
		var data string
		if err := sc.Scan(&data); err != nil {
			return err
		}
		var b bonus.Batch
		if err := json.Unmarshal([]byte(data), &b); err != nil {
			return fmt.Errorf("decode batch: %w", err)
		}
		out = append(out, &b)
		return nil
	}, "SELECT batch_json FROM bonus_batches ORDER BY created_at DESC")
	return out, err
}
