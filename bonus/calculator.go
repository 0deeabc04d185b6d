package bonus

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/warp/payregister-engine/payregister"
)

// Store persists policies and batches.
type Store interface {
	SavePolicy(ctx context.Context, p Policy) error
	// GetPolicy returns an error matching ErrPolicyNotFound for unknown ids.
	GetPolicy(ctx context.Context, id string) (Policy, error)
	ListPolicies(ctx context.Context) ([]Policy, error)

	// CreateBatch returns ErrBatchExists when the name is taken.
	CreateBatch(ctx context.Context, b *Batch) error
	// GetBatch returns an error matching ErrBatchNotFound for unknown ids.
	GetBatch(ctx context.Context, id string) (*Batch, error)
	SaveBatch(ctx context.Context, b *Batch) error
	ListBatches(ctx context.Context) ([]*Batch, error)
}

// BatchRequest describes a batch to evaluate. An empty EmployeeIDs covers
// every employee in the directory.
type BatchRequest struct {
	Name        string               `json:"batchName"`
	PolicyID    string               `json:"policyId"`
	StartMonth  payregister.CycleKey `json:"startMonth"`
	EndMonth    payregister.CycleKey `json:"endMonth"`
	EmployeeIDs []string             `json:"employeeIds,omitempty"`
}

// Calculator evaluates policies against stored ledgers.
type Calculator struct {
	ledgers   payregister.LedgerStore
	employees payregister.EmployeeDirectory
	store     Store

	log     *slog.Logger
	workers int
	now     func() time.Time

	mu sync.Mutex // serializes batch read-modify-write
}

func NewCalculator(ledgers payregister.LedgerStore, employees payregister.EmployeeDirectory, store Store, opts payregister.Options) *Calculator {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Workers < 1 {
		opts.Workers = 4
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Calculator{
		ledgers:   ledgers,
		employees: employees,
		store:     store,
		log:       opts.Logger,
		workers:   opts.Workers,
		now:       opts.Now,
	}
}

// =============================================================================
// POLICIES
// =============================================================================

// SavePolicy validates and stores p, assigning an id when it has none.
func (c *Calculator) SavePolicy(ctx context.Context, p Policy) (Policy, error) {
	if p.SalaryComponent == "" {
		p.SalaryComponent = ComponentGrossSalary
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if err := c.store.SavePolicy(ctx, p); err != nil {
		return Policy{}, fmt.Errorf("save policy: %w", err)
	}
	return p, nil
}

func (c *Calculator) Policies(ctx context.Context) ([]Policy, error) {
	return c.store.ListPolicies(ctx)
}

// =============================================================================
// EVALUATION
// =============================================================================

// EvaluateBonus loads the employee's ledgers in [start, end] and evaluates p.
// A nil result means the employee has no ledgers in range.
func (c *Calculator) EvaluateBonus(ctx context.Context, emp payregister.Employee, p Policy, start, end payregister.CycleKey) (*Result, error) {
	if start.After(end) {
		return nil, ErrInvalidRange
	}
	ledgers, err := c.ledgers.ListEmployeeLedgers(ctx, emp.ID, start, end)
	if err != nil {
		return nil, fmt.Errorf("load ledgers for %s: %w", emp.Number, err)
	}
	return EvaluateLedgers(emp, p, ledgers, start, end), nil
}

// =============================================================================
// BATCHES
// =============================================================================

// CreateBatch evaluates the policy for every requested employee. Employees
// without ledgers are skipped; employees that fail are reported. A batch
// with no results at all is rejected.
func (c *Calculator) CreateBatch(ctx context.Context, req BatchRequest, actor payregister.Actor) (*Batch, error) {
	if req.StartMonth.After(req.EndMonth) {
		return nil, ErrInvalidRange
	}
	policy, err := c.store.GetPolicy(ctx, req.PolicyID)
	if err != nil {
		return nil, err
	}
	if !policy.IsActive {
		return nil, fmt.Errorf("%w: %s", ErrPolicyInactive, policy.ID)
	}

	employees, err := c.resolveEmployees(ctx, req.EmployeeIDs)
	if err != nil {
		return nil, err
	}

	results := make([]*Result, len(employees))
	units := payregister.RunBatch(ctx, len(employees), c.workers, func(ctx context.Context, i int) payregister.UnitResult {
		emp := employees[i]
		res, err := c.EvaluateBonus(ctx, emp, policy, req.StartMonth, req.EndMonth)
		if err != nil {
			c.log.Warn("bonus evaluation failed",
				slog.String("employee_id", emp.ID),
				slog.String("policy_id", policy.ID),
				slog.Any("error", err))
		}
		results[i] = res
		return payregister.UnitResult{Label: "Employee " + emp.Number, Err: err}
	})

	now := c.now()
	b := &Batch{
		ID:         uuid.NewString(),
		Name:       req.Name,
		PolicyID:   policy.ID,
		StartMonth: req.StartMonth,
		EndMonth:   req.EndMonth,
		Year:       req.StartMonth.Year,
		Status:     BatchPending,
		Records:    []Result{},
		Skipped:    []string{},
		Report:     payregister.Fold(units),
		CreatedBy:  actor.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if strings.TrimSpace(b.Name) == "" {
		b.Name = fmt.Sprintf("%s %s to %s", policy.Name, req.StartMonth, req.EndMonth)
	}
	for i, res := range results {
		switch {
		case units[i].Err != nil:
		case res == nil:
			b.Skipped = append(b.Skipped, employees[i].Number)
		default:
			b.Records = append(b.Records, *res)
		}
	}
	if len(b.Records) == 0 {
		return nil, ErrNoResults
	}
	b.Recount()

	if err := c.store.CreateBatch(ctx, b); err != nil {
		return nil, err
	}
	c.log.Info("bonus batch created",
		slog.String("batch_id", b.ID),
		slog.String("policy_id", policy.ID),
		slog.Int("employees", b.TotalEmployees),
		slog.Int("skipped", len(b.Skipped)),
		slog.Int("failed", b.Report.Failed),
		slog.Float64("total_bonus", b.TotalBonusAmount))
	return b, nil
}

func (c *Calculator) resolveEmployees(ctx context.Context, ids []string) ([]payregister.Employee, error) {
	if len(ids) == 0 {
		all, err := c.employees.ListEmployees(ctx)
		if err != nil {
			return nil, fmt.Errorf("list employees: %w", err)
		}
		sort.Slice(all, func(i, j int) bool { return all[i].Number < all[j].Number })
		return all, nil
	}
	out := make([]payregister.Employee, 0, len(ids))
	for _, id := range ids {
		emp, err := c.employees.GetEmployee(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	return out, nil
}

func (c *Calculator) GetBatch(ctx context.Context, id string) (*Batch, error) {
	return c.store.GetBatch(ctx, id)
}

func (c *Calculator) ListBatches(ctx context.Context) ([]*Batch, error) {
	return c.store.ListBatches(ctx)
}

// SetBatchStatus approves or freezes a batch.
func (c *Calculator) SetBatchStatus(ctx context.Context, id string, status BatchStatus, actor payregister.Actor) (*Batch, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, err := c.store.GetBatch(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := b.Transition(status, actor, c.now()); err != nil {
		return nil, fmt.Errorf("%w: %s -> %s", err, b.Status, status)
	}
	if err := c.store.SaveBatch(ctx, b); err != nil {
		return nil, fmt.Errorf("save batch: %w", err)
	}
	return b, nil
}

// OverrideBonus replaces one employee's final bonus on a pending batch.
func (c *Calculator) OverrideBonus(ctx context.Context, batchID, employeeID string, amount float64, remarks string) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, err := c.store.GetBatch(ctx, batchID)
	if err != nil {
		return Result{}, err
	}
	res, err := b.Override(employeeID, amount, remarks, c.now())
	if err != nil {
		return Result{}, err
	}
	if err := c.store.SaveBatch(ctx, b); err != nil {
		return Result{}, fmt.Errorf("save batch: %w", err)
	}
	return res, nil
}
