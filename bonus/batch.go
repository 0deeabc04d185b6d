package bonus

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payregister-engine/payregister"
)

// =============================================================================
// BATCH STATUS
// =============================================================================

type BatchStatus string

const (
	BatchPending  BatchStatus = "pending"
	BatchApproved BatchStatus = "approved"
	BatchFrozen   BatchStatus = "frozen"
)

// CanTransitionTo allows pending -> approved -> frozen only.
func (s BatchStatus) CanTransitionTo(next BatchStatus) bool {
	switch s {
	case BatchPending:
		return next == BatchApproved
	case BatchApproved:
		return next == BatchFrozen
	default:
		return false
	}
}

// =============================================================================
// BATCH
// =============================================================================

// Batch is the evaluation of one policy for a set of employees over a cycle
// range.
type Batch struct {
	ID               string                  `json:"id"`
	Name             string                  `json:"batchName"`
	PolicyID         string                  `json:"policyId"`
	StartMonth       payregister.CycleKey    `json:"startMonth"`
	EndMonth         payregister.CycleKey    `json:"endMonth"`
	Year             int                     `json:"year"`
	Status           BatchStatus             `json:"status"`
	TotalEmployees   int                     `json:"totalEmployees"`
	TotalBonusAmount float64                 `json:"totalBonusAmount"`
	Records          []Result                `json:"records"`
	Report           payregister.BatchReport `json:"report"`
	Skipped          []string                `json:"skipped"`
	CreatedBy        string                  `json:"createdBy,omitempty"`
	ApprovedBy       string                  `json:"approvedBy,omitempty"`
	FrozenBy         string                  `json:"frozenBy,omitempty"`
	CreatedAt        time.Time               `json:"createdAt"`
	UpdatedAt        time.Time               `json:"updatedAt"`
}

// Recount refreshes TotalEmployees and TotalBonusAmount from the records.
func (b *Batch) Recount() {
	sum := decimal.Zero
	for _, r := range b.Records {
		sum = sum.Add(decimal.NewFromFloat(r.FinalBonus))
	}
	b.TotalEmployees = len(b.Records)
	b.TotalBonusAmount = sum.InexactFloat64()
}

// Transition moves the batch forward, recording who approved or froze it.
func (b *Batch) Transition(next BatchStatus, actor payregister.Actor, now time.Time) error {
	if !b.Status.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	b.Status = next
	switch next {
	case BatchApproved:
		b.ApprovedBy = actor.ID
	case BatchFrozen:
		b.FrozenBy = actor.ID
	}
	b.UpdatedAt = now
	return nil
}

// Override replaces one employee's final bonus. Only pending batches accept
// overrides.
func (b *Batch) Override(employeeID string, amount float64, remarks string, now time.Time) (Result, error) {
	if b.Status != BatchPending {
		return Result{}, ErrBatchLocked
	}
	for i := range b.Records {
		if b.Records[i].EmployeeID != employeeID {
			continue
		}
		b.Records[i].FinalBonus = decimal.NewFromFloat(amount).Round(0).InexactFloat64()
		b.Records[i].IsManualOverride = true
		b.Records[i].Remarks = remarks
		b.Recount()
		b.UpdatedAt = now
		return b.Records[i], nil
	}
	return Result{}, ErrRecordNotFound
}

// Clone returns a deep copy.
func (b *Batch) Clone() *Batch {
	cp := *b
	cp.Records = make([]Result, len(b.Records))
	for i, r := range b.Records {
		if r.AppliedTier != nil {
			t := *r.AppliedTier
			r.AppliedTier = &t
		}
		cp.Records[i] = r
	}
	cp.Skipped = append([]string(nil), b.Skipped...)
	cp.Report.Errors = append([]string(nil), b.Report.Errors...)
	return &cp
}
