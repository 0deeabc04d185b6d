// Package store provides in-memory implementations of the engine's
// persistence and source interfaces.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/payregister-engine/payregister"
)

// =============================================================================
// MEMORY STORE - Ledgers, employees and cycle settings (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	ledgers   map[key]*payregister.Ledger
	employees map[string]payregister.Employee
	settings  payregister.CycleSettings
}

type key struct {
	EmployeeID string
	Cycle      payregister.CycleKey
}

func NewMemory() *Memory {
	return &Memory{
		ledgers:   make(map[key]*payregister.Ledger),
		employees: make(map[string]payregister.Employee),
		settings:  payregister.DefaultCycleSettings(),
	}
}

func (m *Memory) GetLedger(_ context.Context, employeeID string, cycle payregister.CycleKey) (*payregister.Ledger, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l, ok := m.ledgers[key{employeeID, cycle}]
	if !ok {
		return nil, &payregister.NotFoundError{Kind: "ledger", Key: employeeID + "/" + cycle.String()}
	}
	return l.Clone(), nil
}

func (m *Memory) CreateLedger(_ context.Context, l *payregister.Ledger) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key{l.EmployeeID, l.Cycle}
	if _, exists := m.ledgers[k]; exists {
		return fmt.Errorf("%w: %s/%s", payregister.ErrLedgerExists, l.EmployeeID, l.Cycle)
	}
	m.ledgers[k] = l.Clone()
	return nil
}

// SaveLedger replaces the stored ledger. History already stored is kept and
// only entries past it are appended.
func (m *Memory) SaveLedger(_ context.Context, l *payregister.Ledger) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key{l.EmployeeID, l.Cycle}
	stored, ok := m.ledgers[k]
	if !ok {
		return &payregister.NotFoundError{Kind: "ledger", Key: l.EmployeeID + "/" + l.Cycle.String()}
	}

	next := l.Clone()
	history := stored.EditHistory
	if len(l.EditHistory) > len(history) {
		history = append(history, l.EditHistory[len(history):]...)
	}
	next.EditHistory = history
	m.ledgers[k] = next
	return nil
}

func (m *Memory) ListLedgers(_ context.Context, cycle payregister.CycleKey) ([]*payregister.Ledger, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*payregister.Ledger
	for k, l := range m.ledgers {
		if k.Cycle == cycle {
			result = append(result, l.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].EmployeeNumber < result[j].EmployeeNumber
	})
	return result, nil
}

func (m *Memory) ListEmployeeLedgers(_ context.Context, employeeID string, from, to payregister.CycleKey) ([]*payregister.Ledger, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	lo, hi := from.String(), to.String()
	var result []*payregister.Ledger
	for k, l := range m.ledgers {
		c := k.Cycle.String()
		if k.EmployeeID == employeeID && lo <= c && c <= hi {
			result = append(result, l.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Cycle.String() < result[j].Cycle.String()
	})
	return result, nil
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func (m *Memory) SaveEmployee(emp payregister.Employee) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[emp.ID] = emp
}

func (m *Memory) GetEmployee(_ context.Context, id string) (payregister.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	emp, ok := m.employees[id]
	if !ok {
		return payregister.Employee{}, &payregister.NotFoundError{Kind: "employee", Key: id}
	}
	return emp, nil
}

func (m *Memory) FindEmployeeByNumber(_ context.Context, number string) (payregister.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, emp := range m.employees {
		if emp.Number == number {
			return emp, nil
		}
	}
	return payregister.Employee{}, &payregister.NotFoundError{Kind: "employee", Key: number}
}

func (m *Memory) ListEmployees(_ context.Context) ([]payregister.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]payregister.Employee, 0, len(m.employees))
	for _, emp := range m.employees {
		result = append(result, emp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Number < result[j].Number })
	return result, nil
}

// =============================================================================
// CYCLE SETTINGS
// =============================================================================

func (m *Memory) CycleSettings(_ context.Context) (payregister.CycleSettings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings, nil
}

func (m *Memory) SetCycleSettings(_ context.Context, s payregister.CycleSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = s
	return nil
}

var (
	_ payregister.LedgerStore       = (*Memory)(nil)
	_ payregister.EmployeeDirectory = (*Memory)(nil)
	_ payregister.SettingsStore     = (*Memory)(nil)
)
