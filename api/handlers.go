/*
handlers.go - HTTP API handlers for the pay register

PURPOSE:
  Exposes the pay register engine and the bonus calculator via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to the
  domain packages.

ENDPOINTS:
  Cycles & settings:
    GET    /api/cycles/{cycle}                          Resolve a cycle key
    GET    /api/settings/payroll-cycle                  Read start/end day
    PUT    /api/settings/payroll-cycle                  Write start/end day

  Pay register:
    GET    /api/pay-register/{cycle}                    Register view
    GET    /api/pay-register/{cycle}/export             Register as .xlsx
    POST   /api/pay-register/{cycle}/upload             Bulk summary upload
    POST   /api/pay-register/{cycle}/sync               Sync every ledger
    GET    /api/pay-register/{cycle}/{employeeID}       Get or create ledger
    PUT    .../{employeeID}/daily/{date}                Manual daily edit
    POST   .../{employeeID}/sync                        Sync one ledger
    PUT    .../{employeeID}/status                      Lifecycle move
    PUT    .../{employeeID}/notes                       Replace notes
    GET    .../{employeeID}/history                     Edit history

  Bonus:
    GET    /api/bonus/policies                          List policies
    POST   /api/bonus/policies                          Create policy from JSON
    GET    /api/bonus/batches                           List batches
    POST   /api/bonus/batches                           Evaluate a batch
    GET    /api/bonus/batches/{id}                      Batch with records
    PUT    /api/bonus/batches/{id}/status               Approve / freeze
    PUT    /api/bonus/batches/{id}/records/{employeeID} Manual override

ACTOR:
  The acting user is read from X-Actor-ID, X-Actor-Name and X-Actor-Role.
  Requests without X-Actor-ID act as the system user.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Employee, ledger, policy or batch not found
  - 409: Duplicate ledger or batch, finalized ledger
  - 502: A source collection could not be read
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/warp/payregister-engine/bonus"
	"github.com/warp/payregister-engine/payregister"
	"github.com/warp/payregister-engine/store/sqlite"
	"github.com/warp/payregister-engine/upload"
)

const (
	maxPolicyBytes = 1 << 20
	maxUploadBytes = 10 << 20
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  *sqlite.Store
	Engine *payregister.Engine
	Bonus  *bonus.Calculator

	log *slog.Logger

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler wires the engine and the bonus calculator to the store.
func NewHandler(store *sqlite.Store, opts payregister.Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Handler{
		Store:  store,
		Engine: payregister.NewEngine(store, store, store, store.Sources(), opts),
		Bonus:  bonus.NewCalculator(store, store, store, opts),
		log:    opts.Logger,
	}
}

// =============================================================================
// CYCLE & SETTINGS HANDLERS
// =============================================================================

// GetCycle resolves a cycle key against the current settings.
// GET /api/cycles/{cycle}
func (h *Handler) GetCycle(w http.ResponseWriter, r *http.Request) {
	cycle, ok := cycleParam(w, r)
	if !ok {
		return
	}
	rng, err := h.Engine.ResolveCycle(r.Context(), cycle)
	if err != nil {
		writeDomainError(w, "Failed to resolve cycle", err)
		return
	}
	writeJSON(w, http.StatusOK, toCycleDTO(cycle, rng))
}

// GetPayrollCycleSettings returns the configured start and end day.
// GET /api/settings/payroll-cycle
func (h *Handler) GetPayrollCycleSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.Store.CycleSettings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read settings", err)
		return
	}
	writeJSON(w, http.StatusOK, PayrollCycleSettingsDTO{StartDay: s.StartDay, EndDay: s.EndDay})
}

// UpdatePayrollCycleSettings writes the start and end day.
// PUT /api/settings/payroll-cycle
func (h *Handler) UpdatePayrollCycleSettings(w http.ResponseWriter, r *http.Request) {
	var req PayrollCycleSettingsDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.StartDay < 1 || req.StartDay > 31 || req.EndDay < 1 || req.EndDay > 31 {
		writeError(w, http.StatusBadRequest, "startDay and endDay must be between 1 and 31", nil)
		return
	}
	s := payregister.CycleSettings{StartDay: req.StartDay, EndDay: req.EndDay}
	if err := h.Store.SetCycleSettings(r.Context(), s); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save settings", err)
		return
	}
	h.log.Info("payroll cycle settings updated",
		slog.Int("start_day", s.StartDay),
		slog.Int("end_day", s.EndDay),
		slog.String("actor", actorFrom(r).ID))
	writeJSON(w, http.StatusOK, req)
}

// =============================================================================
// PAY REGISTER HANDLERS
// =============================================================================

// ListRegister returns one row per ledger of the cycle.
// GET /api/pay-register/{cycle}
func (h *Handler) ListRegister(w http.ResponseWriter, r *http.Request) {
	cycle, ok := cycleParam(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	rng, err := h.Engine.ResolveCycle(ctx, cycle)
	if err != nil {
		writeDomainError(w, "Failed to resolve cycle", err)
		return
	}
	ledgers, err := h.Engine.ListLedgers(ctx, cycle)
	if err != nil {
		writeDomainError(w, "Failed to list ledgers", err)
		return
	}

	rows := make([]RegisterRowDTO, len(ledgers))
	for i, l := range ledgers {
		rows[i] = RegisterRowDTO{
			EmployeeID:     l.EmployeeID,
			EmployeeNumber: l.EmployeeNumber,
			EmployeeName:   l.EmployeeName,
			Status:         l.Status,
			Totals:         l.Totals,
			UpdatedAt:      l.UpdatedAt.Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, RegisterDTO{Cycle: toCycleDTO(cycle, rng), Ledgers: rows})
}

// ExportRegister streams the cycle's register as an Excel workbook.
// GET /api/pay-register/{cycle}/export
func (h *Handler) ExportRegister(w http.ResponseWriter, r *http.Request) {
	cycle, ok := cycleParam(w, r)
	if !ok {
		return
	}
	ledgers, err := h.Engine.ListLedgers(r.Context(), cycle)
	if err != nil {
		writeDomainError(w, "Failed to list ledgers", err)
		return
	}
	data, err := upload.ExportRegister(ledgers)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build workbook", err)
		return
	}

	filename := fmt.Sprintf("pay-register-%s.xlsx", cycle)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// UploadSummary distributes a monthly summary workbook over the ledgers.
// POST /api/pay-register/{cycle}/upload (multipart field "file")
func (h *Handler) UploadSummary(w http.ResponseWriter, r *http.Request) {
	cycle, ok := cycleParam(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing upload file", err)
		return
	}
	defer file.Close()

	rows, err := upload.ParseSummaryWorkbook(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid summary workbook", err)
		return
	}
	report := h.Engine.DistributeBulkSummary(r.Context(), cycle, rows, actorFrom(r))
	h.log.Info("bulk summary distributed",
		slog.String("cycle", cycle.String()),
		slog.Int("rows", len(rows)),
		slog.Int("success", report.Success),
		slog.Int("failed", report.Failed))
	observeBatch(summaryRows, report)
	writeJSON(w, http.StatusOK, UploadResponse{Rows: len(rows), Report: report})
}

// SyncRegister re-syncs every non-finalized ledger of the cycle.
// POST /api/pay-register/{cycle}/sync
func (h *Handler) SyncRegister(w http.ResponseWriter, r *http.Request) {
	cycle, ok := cycleParam(w, r)
	if !ok {
		return
	}
	report, err := h.Engine.SyncAll(r.Context(), cycle)
	if err != nil {
		writeDomainError(w, "Failed to sync register", err)
		return
	}
	observeBatch(ledgerSyncs, report, "manual")
	writeJSON(w, http.StatusOK, report)
}

// GetLedger returns the employee's ledger, creating it on first access.
// GET /api/pay-register/{cycle}/{employeeID}
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	cycle, ok := cycleParam(w, r)
	if !ok {
		return
	}
	l, err := h.Engine.GetOrCreateLedger(r.Context(), chi.URLParam(r, "employeeID"), cycle)
	if err != nil {
		writeDomainError(w, "Failed to load ledger", err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// UpdateDailyRecord applies a manual edit to one date.
// PUT /api/pay-register/{cycle}/{employeeID}/daily/{date}
func (h *Handler) UpdateDailyRecord(w http.ResponseWriter, r *http.Request) {
	cycle, ok := cycleParam(w, r)
	if !ok {
		return
	}
	date, err := payregister.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}
	var patch UpdateDailyRequest
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	employeeID := chi.URLParam(r, "employeeID")
	rec, err := h.Engine.UpdateDailyRecord(ctx, employeeID, cycle, date, patch, actorFrom(r))
	if err != nil {
		writeDomainError(w, "Failed to update daily record", err)
		return
	}
	l, err := h.Engine.GetOrCreateLedger(ctx, employeeID, cycle)
	if err != nil {
		writeDomainError(w, "Failed to reload ledger", err)
		return
	}
	writeJSON(w, http.StatusOK, DailyRecordResponse{Record: rec, Totals: l.Totals})
}

// SyncLedger re-derives the employee's unprotected dates from the sources.
// POST /api/pay-register/{cycle}/{employeeID}/sync
func (h *Handler) SyncLedger(w http.ResponseWriter, r *http.Request) {
	cycle, ok := cycleParam(w, r)
	if !ok {
		return
	}
	l, err := h.Engine.SyncLedger(r.Context(), chi.URLParam(r, "employeeID"), cycle)
	if err != nil {
		ledgerSyncs.WithLabelValues("manual", "failed").Inc()
		writeDomainError(w, "Failed to sync ledger", err)
		return
	}
	ledgerSyncs.WithLabelValues("manual", "success").Inc()
	writeJSON(w, http.StatusOK, l)
}

// UpdateLedgerStatus moves the ledger through draft, in_review and finalized.
// PUT /api/pay-register/{cycle}/{employeeID}/status
func (h *Handler) UpdateLedgerStatus(w http.ResponseWriter, r *http.Request) {
	cycle, ok := cycleParam(w, r)
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	status := payregister.LedgerStatus(strings.TrimSpace(req.Status))
	l, err := h.Engine.SetLedgerStatus(r.Context(), chi.URLParam(r, "employeeID"), cycle, status, actorFrom(r))
	if err != nil {
		writeDomainError(w, "Failed to update ledger status", err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// UpdateLedgerNotes replaces the ledger's notes.
// PUT /api/pay-register/{cycle}/{employeeID}/notes
func (h *Handler) UpdateLedgerNotes(w http.ResponseWriter, r *http.Request) {
	cycle, ok := cycleParam(w, r)
	if !ok {
		return
	}
	var req UpdateNotesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	l, err := h.Engine.SetNotes(r.Context(), chi.URLParam(r, "employeeID"), cycle, req.Notes, actorFrom(r))
	if err != nil {
		writeDomainError(w, "Failed to update notes", err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// ListEmployeeLedgers returns the totals of an employee's ledgers in a
// cycle range. Ledgers are not created here.
// GET /api/employees/{employeeID}/ledgers?from=YYYY-MM&to=YYYY-MM
func (h *Handler) ListEmployeeLedgers(w http.ResponseWriter, r *http.Request) {
	from, err := payregister.ParseCycleKey(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from cycle (use YYYY-MM)", err)
		return
	}
	to, err := payregister.ParseCycleKey(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to cycle (use YYYY-MM)", err)
		return
	}
	if from.After(to) {
		writeError(w, http.StatusBadRequest, "from must not be after to", nil)
		return
	}

	ledgers, err := h.Engine.EmployeeLedgers(r.Context(), chi.URLParam(r, "employeeID"), from, to)
	if err != nil {
		writeDomainError(w, "Failed to list ledgers", err)
		return
	}
	out := make([]EmployeeLedgerDTO, len(ledgers))
	for i, l := range ledgers {
		out[i] = EmployeeLedgerDTO{Cycle: l.Cycle, MonthName: l.MonthName, Status: l.Status, Totals: l.Totals}
	}
	writeJSON(w, http.StatusOK, out)
}

// GetEditHistory returns the ledger's audit log in append order.
// GET /api/pay-register/{cycle}/{employeeID}/history
func (h *Handler) GetEditHistory(w http.ResponseWriter, r *http.Request) {
	cycle, ok := cycleParam(w, r)
	if !ok {
		return
	}
	history, err := h.Engine.EditHistory(r.Context(), chi.URLParam(r, "employeeID"), cycle)
	if err != nil {
		writeDomainError(w, "Failed to load edit history", err)
		return
	}
	if history == nil {
		history = []payregister.EditHistoryEntry{}
	}
	writeJSON(w, http.StatusOK, history)
}

// =============================================================================
// BONUS HANDLERS
// =============================================================================

// ListBonusPolicies returns every bonus policy.
// GET /api/bonus/policies
func (h *Handler) ListBonusPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.Bonus.Policies(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list policies", err)
		return
	}
	if policies == nil {
		policies = []bonus.Policy{}
	}
	writeJSON(w, http.StatusOK, policies)
}

// CreateBonusPolicy parses and stores a policy JSON document.
// POST /api/bonus/policies
func (h *Handler) CreateBonusPolicy(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPolicyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read body", err)
		return
	}
	p, err := bonus.ParsePolicy(body)
	if err != nil {
		writeDomainError(w, "Invalid policy", err)
		return
	}
	saved, err := h.Bonus.SavePolicy(r.Context(), p)
	if err != nil {
		writeDomainError(w, "Failed to save policy", err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// ListBonusBatches returns batch summaries, newest first.
// GET /api/bonus/batches
func (h *Handler) ListBonusBatches(w http.ResponseWriter, r *http.Request) {
	batches, err := h.Bonus.ListBatches(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list batches", err)
		return
	}
	dtos := make([]BatchSummaryDTO, len(batches))
	for i, b := range batches {
		dtos[i] = toBatchSummary(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateBonusBatch evaluates a policy over a cycle range.
// POST /api/bonus/batches
func (h *Handler) CreateBonusBatch(w http.ResponseWriter, r *http.Request) {
	var req bonus.BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.PolicyID == "" {
		writeError(w, http.StatusBadRequest, "policyId is required", nil)
		return
	}
	b, err := h.Bonus.CreateBatch(r.Context(), req, actorFrom(r))
	if err != nil {
		writeDomainError(w, "Failed to create batch", err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// GetBonusBatch returns a batch with its records.
// GET /api/bonus/batches/{id}
func (h *Handler) GetBonusBatch(w http.ResponseWriter, r *http.Request) {
	b, err := h.Bonus.GetBatch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to load batch", err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// UpdateBonusBatchStatus approves or freezes a batch.
// PUT /api/bonus/batches/{id}/status
func (h *Handler) UpdateBonusBatchStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	status := bonus.BatchStatus(strings.TrimSpace(req.Status))
	b, err := h.Bonus.SetBatchStatus(r.Context(), chi.URLParam(r, "id"), status, actorFrom(r))
	if err != nil {
		writeDomainError(w, "Failed to update batch status", err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// OverrideBonus replaces one employee's final bonus on a pending batch.
// PUT /api/bonus/batches/{id}/records/{employeeID}
func (h *Handler) OverrideBonus(w http.ResponseWriter, r *http.Request) {
	var req OverrideBonusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.FinalBonus < 0 {
		writeError(w, http.StatusBadRequest, "finalBonus cannot be negative", nil)
		return
	}
	res, err := h.Bonus.OverrideBonus(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "employeeID"), req.FinalBonus, req.Remarks)
	if err != nil {
		writeDomainError(w, "Failed to override bonus", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// =============================================================================
// HELPERS
// =============================================================================

// actorFrom reads the acting user from the X-Actor-* headers.
func actorFrom(r *http.Request) payregister.Actor {
	id := strings.TrimSpace(r.Header.Get("X-Actor-ID"))
	if id == "" {
		return payregister.SystemActor
	}
	return payregister.Actor{
		ID:   id,
		Name: strings.TrimSpace(r.Header.Get("X-Actor-Name")),
		Role: strings.TrimSpace(r.Header.Get("X-Actor-Role")),
	}
}

func cycleParam(w http.ResponseWriter, r *http.Request) (payregister.CycleKey, bool) {
	cycle, err := payregister.ParseCycleKey(chi.URLParam(r, "cycle"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid cycle (use YYYY-MM)", err)
		return payregister.CycleKey{}, false
	}
	return cycle, true
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, payregister.ErrLedgerExists),
		errors.Is(err, payregister.ErrLedgerFinalized),
		errors.Is(err, bonus.ErrBatchExists):
		return http.StatusConflict
	case payregister.IsNotFound(err), bonus.IsNotFound(err):
		return http.StatusNotFound
	case payregister.IsClientError(err), bonus.IsClientError(err):
		return http.StatusBadRequest
	case errors.Is(err, payregister.ErrSourceFetch):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeDomainError(w http.ResponseWriter, message string, err error) {
	resp := ErrorResponse{Error: message, Details: err.Error()}
	var verr *payregister.ValidationError
	if errors.As(err, &verr) {
		resp.Problems = verr.Problems
	}
	var perr *bonus.PolicyError
	if errors.As(err, &perr) {
		resp.Problems = perr.Problems
	}
	writeJSON(w, statusFor(err), resp)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
