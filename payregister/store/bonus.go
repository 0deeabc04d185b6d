package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/payregister-engine/bonus"
)

// BonusMemory is an in-memory bonus.Store.
type BonusMemory struct {
	mu       sync.RWMutex
	policies map[string]bonus.Policy
	batches  map[string]*bonus.Batch
}

var _ bonus.Store = (*BonusMemory)(nil)

func NewBonusMemory() *BonusMemory {
	return &BonusMemory{
		policies: make(map[string]bonus.Policy),
		batches:  make(map[string]*bonus.Batch),
	}
}

func (m *BonusMemory) SavePolicy(_ context.Context, p bonus.Policy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.Tiers = append([]bonus.Tier(nil), p.Tiers...)
	m.policies[p.ID] = p
	return nil
}

func (m *BonusMemory) GetPolicy(_ context.Context, id string) (bonus.Policy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.policies[id]
	if !ok {
		return bonus.Policy{}, fmt.Errorf("%w: %s", bonus.ErrPolicyNotFound, id)
	}
	p.Tiers = append([]bonus.Tier(nil), p.Tiers...)
	return p, nil
}

func (m *BonusMemory) ListPolicies(_ context.Context) ([]bonus.Policy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]bonus.Policy, 0, len(m.policies))
	for _, p := range m.policies {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *BonusMemory) CreateBatch(_ context.Context, b *bonus.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.batches {
		if existing.Name == b.Name {
			return fmt.Errorf("%w: %s", bonus.ErrBatchExists, b.Name)
		}
	}
	m.batches[b.ID] = b.Clone()
	return nil
}

func (m *BonusMemory) GetBatch(_ context.Context, id string) (*bonus.Batch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.batches[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", bonus.ErrBatchNotFound, id)
	}
	return b.Clone(), nil
}

func (m *BonusMemory) SaveBatch(_ context.Context, b *bonus.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.batches[b.ID]; !ok {
		return fmt.Errorf("%w: %s", bonus.ErrBatchNotFound, b.ID)
	}
	m.batches[b.ID] = b.Clone()
	return nil
}

func (m *BonusMemory) ListBatches(_ context.Context) ([]*bonus.Batch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*bonus.Batch, 0, len(m.batches))
	for _, b := range m.batches {
		out = append(out, b.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
