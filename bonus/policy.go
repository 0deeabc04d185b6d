/*
Package bonus evaluates attendance-based bonus policies against pay register
totals.

PURPOSE:
  A bonus policy maps an attendance percentage onto a bonus percentage of a
  base amount. The attendance percentage is aggregated over every ledger an
  employee has in a cycle range; the base is either the employee's gross
  salary (times a multiplier) or a fixed amount.

JSON SCHEMA:
  {
    "id": "attendance-2026",
    "name": "Attendance Bonus 2026",
    "salary_component": "gross_salary",
    "gross_salary_multiplier": 1,
    "tiers": [
      {"min_percentage": 90, "max_percentage": 100, "bonus_percentage": 10},
      {"min_percentage": 75, "max_percentage": 89.99, "bonus_percentage": 5}
    ],
    "is_active": true
  }

USAGE:
  policy, err := bonus.ParsePolicy([]byte(bonus.AttendanceBonusJSON("att", "Attendance", 1)))
  result := bonus.Evaluate(emp, policy, totals, start, end)

SEE ALSO:
  - evaluate.go: percentage aggregation and tier selection
  - batch.go: multi-employee batches with the pending/approved/frozen flow
*/
package bonus

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SalaryComponent selects the base amount a tier percentage applies to.
type SalaryComponent string

const (
	ComponentGrossSalary SalaryComponent = "gross_salary"
	ComponentFixedAmount SalaryComponent = "fixed_amount"
)

// Tier is an inclusive attendance-percentage range. Tiers are matched in
// declared order; overlap is not checked.
type Tier struct {
	MinPercentage   float64 `json:"min_percentage"`
	MaxPercentage   float64 `json:"max_percentage"`
	BonusPercentage float64 `json:"bonus_percentage"`
}

// Contains reports whether pct falls inside the tier.
func (t Tier) Contains(pct float64) bool {
	return pct >= t.MinPercentage && pct <= t.MaxPercentage
}

// Policy is a bonus policy.
type Policy struct {
	ID                    string          `json:"id"`
	Name                  string          `json:"name"`
	Description           string          `json:"description,omitempty"`
	SalaryComponent       SalaryComponent `json:"salary_component"`
	GrossSalaryMultiplier float64         `json:"gross_salary_multiplier"`
	FixedBonusAmount      float64         `json:"fixed_bonus_amount"`
	Tiers                 []Tier          `json:"tiers"`
	IsActive              bool            `json:"is_active"`
}

// TierFor returns the first tier containing pct.
func (p Policy) TierFor(pct float64) (Tier, bool) {
	for _, t := range p.Tiers {
		if t.Contains(pct) {
			return t, true
		}
	}
	return Tier{}, false
}

// Multiplier returns the gross salary multiplier, treating zero as 1.
func (p Policy) Multiplier() float64 {
	if p.GrossSalaryMultiplier == 0 {
		return 1
	}
	return p.GrossSalaryMultiplier
}

// Validate checks the policy shape.
func (p Policy) Validate() error {
	var problems []string
	if strings.TrimSpace(p.Name) == "" {
		problems = append(problems, "name is required")
	}
	switch p.SalaryComponent {
	case ComponentGrossSalary, ComponentFixedAmount:
	default:
		problems = append(problems, fmt.Sprintf("salary_component %q must be gross_salary or fixed_amount", p.SalaryComponent))
	}
	if p.GrossSalaryMultiplier < 0 {
		problems = append(problems, "gross_salary_multiplier cannot be negative")
	}
	if p.FixedBonusAmount < 0 {
		problems = append(problems, "fixed_bonus_amount cannot be negative")
	}
	for i, t := range p.Tiers {
		if t.MinPercentage > t.MaxPercentage {
			problems = append(problems, fmt.Sprintf("tiers[%d]: min_percentage %.2f exceeds max_percentage %.2f", i, t.MinPercentage, t.MaxPercentage))
		}
		if t.BonusPercentage < 0 {
			problems = append(problems, fmt.Sprintf("tiers[%d]: bonus_percentage cannot be negative", i))
		}
	}
	if len(problems) > 0 {
		return &PolicyError{Problems: problems}
	}
	return nil
}

// =============================================================================
// JSON FACTORY
// =============================================================================

// policyJSON mirrors Policy with optional fields so defaults can be told
// apart from explicit values.
type policyJSON struct {
	ID                    string   `json:"id"`
	Name                  string   `json:"name"`
	Description           string   `json:"description"`
	SalaryComponent       string   `json:"salary_component"`
	GrossSalaryMultiplier *float64 `json:"gross_salary_multiplier"`
	FixedBonusAmount      float64  `json:"fixed_bonus_amount"`
	Tiers                 []Tier   `json:"tiers"`
	IsActive              *bool    `json:"is_active"`
}

// ParsePolicy decodes and validates a JSON policy. Missing salary_component
// defaults to gross_salary, a missing multiplier to 1 and a missing
// is_active to true.
func ParsePolicy(data []byte) (Policy, error) {
	var pj policyJSON
	if err := json.Unmarshal(data, &pj); err != nil {
		return Policy{}, fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}

	p := Policy{
		ID:                    pj.ID,
		Name:                  pj.Name,
		Description:           pj.Description,
		SalaryComponent:       SalaryComponent(pj.SalaryComponent),
		GrossSalaryMultiplier: 1,
		FixedBonusAmount:      pj.FixedBonusAmount,
		Tiers:                 pj.Tiers,
		IsActive:              true,
	}
	if p.SalaryComponent == "" {
		p.SalaryComponent = ComponentGrossSalary
	}
	if pj.GrossSalaryMultiplier != nil {
		p.GrossSalaryMultiplier = *pj.GrossSalaryMultiplier
	}
	if pj.IsActive != nil {
		p.IsActive = *pj.IsActive
	}
	if p.Tiers == nil {
		p.Tiers = []Tier{}
	}

	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// AttendanceBonusJSON returns JSON for a gross-salary policy with the usual
// three attendance tiers.
func AttendanceBonusJSON(id, name string, multiplier float64) string {
	pj := map[string]interface{}{
		"id":                      id,
		"name":                    name,
		"salary_component":        "gross_salary",
		"gross_salary_multiplier": multiplier,
		"tiers": []map[string]interface{}{
			{"min_percentage": 95, "max_percentage": 100, "bonus_percentage": 10},
			{"min_percentage": 85, "max_percentage": 94.99, "bonus_percentage": 6},
			{"min_percentage": 75, "max_percentage": 84.99, "bonus_percentage": 3},
		},
		"is_active": true,
	}
	b, _ := json.MarshalIndent(pj, "", "  ")
	return string(b)
}

// FixedBonusJSON returns JSON for a fixed-amount policy paying the full
// amount at 90% attendance or more.
func FixedBonusJSON(id, name string, amount float64) string {
	pj := map[string]interface{}{
		"id":                 id,
		"name":               name,
		"salary_component":   "fixed_amount",
		"fixed_bonus_amount": amount,
		"tiers": []map[string]interface{}{
			{"min_percentage": 90, "max_percentage": 100, "bonus_percentage": 100},
		},
		"is_active": true,
	}
	b, _ := json.MarshalIndent(pj, "", "  ")
	return string(b)
}
