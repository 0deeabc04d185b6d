/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication that are not domain
  types already. Ledgers, daily records, history entries, bonus policies and
  batches are serialized as-is; the types here cover request bodies and
  wrapper responses.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

SEE ALSO:
  - handlers.go: Uses these types
  - payregister/types.go: DailyRecord, DailyPatch
*/
package api

import (
	"github.com/warp/payregister-engine/bonus"
	"github.com/warp/payregister-engine/payregister"
)

// =============================================================================
// CYCLES AND SETTINGS
// =============================================================================

// CycleDTO is a resolved payroll cycle.
type CycleDTO struct {
	Month     string `json:"month"`
	MonthName string `json:"monthName"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	TotalDays int    `json:"totalDays"`
}

func toCycleDTO(k payregister.CycleKey, r payregister.CycleRange) CycleDTO {
	return CycleDTO{
		Month:     k.String(),
		MonthName: k.MonthName(),
		StartDate: r.Start.String(),
		EndDate:   r.End.String(),
		TotalDays: r.TotalDays,
	}
}

// PayrollCycleSettingsDTO is read and written by /api/settings/payroll-cycle.
type PayrollCycleSettingsDTO struct {
	StartDay int `json:"startDay"`
	EndDay   int `json:"endDay"`
}

// =============================================================================
// PAY REGISTER
// =============================================================================

// RegisterRowDTO is one employee line of the register view. Daily records
// are only returned by the single-ledger endpoint.
type RegisterRowDTO struct {
	EmployeeID     string                   `json:"employeeId"`
	EmployeeNumber string                   `json:"empNo"`
	EmployeeName   string                   `json:"employeeName,omitempty"`
	Status         payregister.LedgerStatus `json:"status"`
	Totals         payregister.Totals       `json:"totals"`
	UpdatedAt      string                   `json:"updatedAt"`
}

// RegisterDTO is the response of GET /api/pay-register/{cycle}.
type RegisterDTO struct {
	Cycle   CycleDTO         `json:"cycle"`
	Ledgers []RegisterRowDTO `json:"ledgers"`
}

// EmployeeLedgerDTO is one cycle of an employee's ledger history.
type EmployeeLedgerDTO struct {
	Cycle     payregister.CycleKey     `json:"cycle"`
	MonthName string                   `json:"monthName"`
	Status    payregister.LedgerStatus `json:"status"`
	Totals    payregister.Totals       `json:"totals"`
}

// UpdateDailyRequest is the body of PUT .../daily/{date}.
type UpdateDailyRequest = payregister.DailyPatch

// UpdateStatusRequest is the body of both status endpoints.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateNotesRequest is the body of PUT .../notes.
type UpdateNotesRequest struct {
	Notes string `json:"notes"`
}

// DailyRecordResponse wraps an edited record with the ledger's new totals.
type DailyRecordResponse struct {
	Record payregister.DailyRecord `json:"record"`
	Totals payregister.Totals      `json:"totals"`
}

// UploadResponse is the result of a bulk summary upload.
type UploadResponse struct {
	Rows   int                     `json:"rows"`
	Report payregister.BatchReport `json:"report"`
}

// =============================================================================
// BONUS
// =============================================================================

// OverrideBonusRequest is the body of PUT /api/bonus/batches/{id}/records/{employeeID}.
type OverrideBonusRequest struct {
	FinalBonus float64 `json:"finalBonus"`
	Remarks    string  `json:"remarks"`
}

// BatchSummaryDTO lists a batch without its per-employee records.
type BatchSummaryDTO struct {
	ID               string            `json:"id"`
	Name             string            `json:"batchName"`
	PolicyID         string            `json:"policyId"`
	StartMonth       string            `json:"startMonth"`
	EndMonth         string            `json:"endMonth"`
	Status           bonus.BatchStatus `json:"status"`
	TotalEmployees   int               `json:"totalEmployees"`
	TotalBonusAmount float64           `json:"totalBonusAmount"`
	CreatedBy        string            `json:"createdBy,omitempty"`
}

func toBatchSummary(b *bonus.Batch) BatchSummaryDTO {
	return BatchSummaryDTO{
		ID:               b.ID,
		Name:             b.Name,
		PolicyID:         b.PolicyID,
		StartMonth:       b.StartMonth.String(),
		EndMonth:         b.EndMonth.String(),
		Status:           b.Status,
		TotalEmployees:   b.TotalEmployees,
		TotalBonusAmount: b.TotalBonusAmount,
		CreatedBy:        b.CreatedBy,
	}
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Cycle       string `json:"cycle"`
}

// LoadScenarioRequest is the body of POST /api/scenarios/load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error    string   `json:"error"`
	Details  string   `json:"details,omitempty"`
	Problems []string `json:"problems,omitempty"`
}
