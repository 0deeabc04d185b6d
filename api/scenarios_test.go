/*
scenarios_test.go - Tests for demo scenarios and the bonus endpoints

Tests for:
- Scenario listing and reload
- Bonus policy creation and validation
- Bonus batch evaluation, approval, override locking
*/
package api_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payregister-engine/api"
	"github.com/warp/payregister-engine/bonus"
	"github.com/warp/payregister-engine/payregister"
)

func TestScenarios_ListAndCurrent(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/api/scenarios", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]api.ScenarioDTO](t, rec)
	require.Len(t, list, 3)
	assert.Equal(t, "standard-month", list[0].ID)

	rec = do(t, router, http.MethodGet, "/api/scenarios/current", nil, nil)
	assert.Equal(t, "null\n", rec.Body.String())

	loadScenario(t, router, "mid-month-cycle")
	rec = do(t, router, http.MethodGet, "/api/scenarios/current", nil, nil)
	assert.Equal(t, "2026-03", decode[api.ScenarioDTO](t, rec).Cycle)
}

func TestScenarios_ReloadKeepsManualEdits(t *testing.T) {
	// GIVEN: A loaded scenario with one manual edit
	router, _ := newTestRouter(t)
	loadScenario(t, router, "standard-month")
	od := payregister.StatusOD
	rec := do(t, router, http.MethodPut, "/api/pay-register/2026-02/emp-vikram/daily/2026-02-20",
		payregister.DailyPatch{Status: &od}, hrHeaders)
	require.Equal(t, http.StatusOK, rec.Code)

	// WHEN: The scenario is loaded again
	loadScenario(t, router, "standard-month")

	// THEN: The ledger still has the edit and its history
	rec = do(t, router, http.MethodGet, "/api/pay-register/2026-02/emp-vikram", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	l := decode[payregister.Ledger](t, rec)
	l.Reindex()
	feb20, _ := l.Record(payregister.MustParseDate("2026-02-20"))
	assert.Equal(t, payregister.StatusOD, feb20.DayStatus())
	assert.NotEmpty(t, l.EditHistory)
}

func TestBonusPolicies_CreateAndValidate(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/bonus/policies",
		bytes.NewBufferString(bonus.FixedBonusJSON("", "Festival Bonus", 2500)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	p := decode[bonus.Policy](t, rec)
	assert.NotEmpty(t, p.ID, "an id is assigned")
	assert.Equal(t, bonus.ComponentFixedAmount, p.SalaryComponent)

	req = httptest.NewRequest(http.MethodPost, "/api/bonus/policies",
		bytes.NewBufferString(`{"name":"Broken","tiers":[{"min_percentage":90,"max_percentage":80,"bonus_percentage":5}]}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, decode[api.ErrorResponse](t, rec).Problems)

	rec = do(t, router, http.MethodGet, "/api/bonus/policies", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]bonus.Policy](t, rec), 1)
}

func TestBonusBatch_Lifecycle(t *testing.T) {
	// GIVEN: Three months of ledgers and the attendance bonus policy
	router, _ := newTestRouter(t)
	loadScenario(t, router, "bonus-quarter")

	// WHEN: A batch is evaluated over the quarter
	batchReq := map[string]any{"policyId": "attendance-bonus", "startMonth": "2026-01", "endMonth": "2026-03"}
	rec := do(t, router, http.MethodPost, "/api/bonus/batches", batchReq, hrHeaders)

	// THEN: Each employee lands in the tier their attendance earns
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	b := decode[bonus.Batch](t, rec)
	assert.Equal(t, bonus.BatchPending, b.Status)
	assert.Equal(t, 3, b.TotalEmployees)
	assert.Equal(t, 8700.0, b.TotalBonusAmount)
	assert.Equal(t, "hr-1", b.CreatedBy)

	byEmp := map[string]bonus.Result{}
	for _, r := range b.Records {
		byEmp[r.EmployeeID] = r
	}
	assert.Equal(t, 100.0, byEmp["emp-asha"].AttendancePercentage)
	assert.Equal(t, 6000.0, byEmp["emp-asha"].FinalBonus)
	assert.Equal(t, 88.31, byEmp["emp-vikram"].AttendancePercentage)
	assert.Equal(t, 2700.0, byEmp["emp-vikram"].FinalBonus)
	assert.Nil(t, byEmp["emp-meera"].AppliedTier)
	assert.Zero(t, byEmp["emp-meera"].FinalBonus)

	// AND: The same range cannot be evaluated twice under the same name
	rec = do(t, router, http.MethodPost, "/api/bonus/batches", batchReq, hrHeaders)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// WHEN: Meera's bonus is overridden while pending
	rec = do(t, router, http.MethodPut, "/api/bonus/batches/"+b.ID+"/records/emp-meera",
		api.OverrideBonusRequest{FinalBonus: 1000, Remarks: "project delivery"}, hrHeaders)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[bonus.Result](t, rec).IsManualOverride)

	// AND: The batch is approved
	rec = do(t, router, http.MethodPut, "/api/bonus/batches/"+b.ID+"/status", api.UpdateStatusRequest{Status: "approved"}, hrHeaders)
	require.Equal(t, http.StatusOK, rec.Code)
	approved := decode[bonus.Batch](t, rec)
	assert.Equal(t, 9700.0, approved.TotalBonusAmount)
	assert.Equal(t, "hr-1", approved.ApprovedBy)

	// THEN: Records are locked and the batch can only be frozen
	rec = do(t, router, http.MethodPut, "/api/bonus/batches/"+b.ID+"/records/emp-meera",
		api.OverrideBonusRequest{FinalBonus: 2000}, hrHeaders)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPut, "/api/bonus/batches/"+b.ID+"/status", api.UpdateStatusRequest{Status: "pending"}, hrHeaders)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/bonus/batches", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summaries := decode[[]api.BatchSummaryDTO](t, rec)
	require.Len(t, summaries, 1)
	assert.Equal(t, bonus.BatchApproved, summaries[0].Status)
}

func TestBonusBatch_RejectsBadRequests(t *testing.T) {
	router, _ := newTestRouter(t)
	loadScenario(t, router, "bonus-quarter")

	rec := do(t, router, http.MethodPost, "/api/bonus/batches",
		map[string]any{"policyId": "attendance-bonus", "startMonth": "2026-03", "endMonth": "2026-01"}, hrHeaders)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "inverted range")

	rec = do(t, router, http.MethodPost, "/api/bonus/batches",
		map[string]any{"policyId": "missing", "startMonth": "2026-01", "endMonth": "2026-03"}, hrHeaders)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/bonus/batches",
		map[string]any{"startMonth": "2026-01", "endMonth": "2026-03"}, hrHeaders)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/bonus/batches",
		map[string]any{"policyId": "attendance-bonus", "startMonth": "2025-01", "endMonth": "2025-03"}, hrHeaders)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "no ledgers in range")
}

func TestEmployeeLedgers_TotalsAcrossCycles(t *testing.T) {
	// GIVEN: The quarter of ledgers the bonus scenario builds
	router, _ := newTestRouter(t)
	loadScenario(t, router, "bonus-quarter")

	// WHEN: Two months of Asha's ledgers are requested
	rec := do(t, router, http.MethodGet, "/api/employees/emp-asha/ledgers?from=2026-02&to=2026-03", nil, nil)

	// THEN: Only the cycles in range come back, in cycle order
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rows := decode[[]api.EmployeeLedgerDTO](t, rec)
	require.Len(t, rows, 2)
	assert.Equal(t, payregister.NewCycleKey(2026, time.February), rows[0].Cycle)
	assert.Equal(t, payregister.NewCycleKey(2026, time.March), rows[1].Cycle)
	assert.Positive(t, rows[0].Totals.TotalPresent)

	rec = do(t, router, http.MethodGet, "/api/employees/emp-asha/ledgers?from=2026-03&to=2026-01", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, router, http.MethodGet, "/api/employees/emp-asha/ledgers?from=march", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
