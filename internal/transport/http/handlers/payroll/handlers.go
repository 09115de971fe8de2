package payrollhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"carepay/internal/auth"
	"carepay/internal/domain/audit"
	"carepay/internal/domain/payroll"
	"carepay/internal/export"
	"carepay/internal/platform/jobs"
	"carepay/internal/transport/http/api"
	"carepay/internal/transport/http/middleware"
	"carepay/internal/transport/http/shared"
)

// JobQueue runs work in the background and keeps a history of runs.
type JobQueue interface {
	Enqueue(jobType string, run func(context.Context) (any, error)) bool
	RunNow(ctx context.Context, jobType string, run func(context.Context) (any, error)) (any, error)
	ListRuns(ctx context.Context, jobType string, limit int) ([]jobs.Run, error)
}

// Auditor keeps a trail of the actions taken on payroll data.
type Auditor interface {
	Record(ctx context.Context, actorID, action, entityType, entityID, requestID, ip string, before, after any) error
}

type Handler struct {
	Service *payroll.Service
	Jobs    JobQueue
	Audit   Auditor
	// Limit guards the bulk endpoints. Nil means unlimited.
	Limit func(http.Handler) http.Handler
}

func NewHandler(svc *payroll.Service, queue JobQueue, auditor Auditor, limit func(http.Handler) http.Handler) *Handler {
	return &Handler{Service: svc, Jobs: queue, Audit: auditor, Limit: limit}
}

// record writes an audit event. A failed write is logged and never fails the
// request, whose change is already stored.
func (h *Handler) record(r *http.Request, action, entityType, entityID string, before, after any) {
	if h.Audit == nil {
		return
	}
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())
	if err := h.Audit.Record(r.Context(), user.UserID, action, entityType, entityID, requestID, shared.ClientIP(r), before, after); err != nil {
		slog.Warn("audit record failed", "action", action, "entityId", entityID, "err", err, "requestId", requestID)
	}
}

type statusSnapshot struct {
	Status      string `json:"status"`
	CheckNumber *int64 `json:"checkNumber,omitempty"`
}

func snapshotOf(rec payroll.PayrollRecord) statusSnapshot {
	return statusSnapshot{Status: rec.Status, CheckNumber: rec.CheckNumber}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermPayrollRead)
	run := middleware.RequirePermission(auth.PermPayrollRun)
	approve := middleware.RequirePermission(auth.PermPayrollApprove)
	finalize := middleware.RequirePermission(auth.PermPayrollFinalize)
	limit := h.Limit
	if limit == nil {
		limit = func(next http.Handler) http.Handler { return next }
	}

	r.Route("/payroll", func(r chi.Router) {
		r.With(read).Get("/settings", h.handleGetSettings)
		r.With(middleware.RequirePermission(auth.PermSettingsWrite)).Put("/settings", h.handleUpdateSettings)
		r.With(read).Get("/recompute-runs", h.handleListRecomputeRuns)
		r.With(run, limit).Post("/recompute", h.handleRecompute)

		r.With(read).Get("/periods", h.handleListPeriods)
		r.With(run).Post("/periods", h.handleCreatePeriod)
		r.With(run, limit).Post("/periods/{periodID}/run", h.handleRunPeriod)
		r.With(read).Get("/periods/{periodID}/records", h.handleListRecords)
		r.With(approve, limit).Post("/periods/{periodID}/approve-all", h.handleApproveAll)
		r.With(finalize, limit).Post("/periods/{periodID}/process-all", h.handleProcessAll)
		r.With(read).Get("/periods/{periodID}/discrepancies", h.handleDiscrepancies)
		r.With(read).Get("/periods/{periodID}/export/register.csv", h.handleExportRegisterCSV)
		r.With(read).Get("/periods/{periodID}/export/register.xlsx", h.handleExportRegisterXLSX)
		r.With(read).Get("/periods/{periodID}/export/journal.csv", h.handleExportJournal)

		r.With(read).Get("/records/{recordID}", h.handleGetRecord)
		r.With(approve).Post("/records/{recordID}/approve", h.handleApprove)
		r.With(finalize).Post("/records/{recordID}/process", h.handleProcess)
		r.With(finalize).Post("/records/{recordID}/mark-paid", h.handleMarkPaid)
		r.With(read).Get("/records/{recordID}/stub.pdf", h.handlePayStub)
	})
}

type settingsPayload struct {
	DefaultHourlyRate      *decimal.Decimal `json:"defaultHourlyRate"`
	OvertimeThreshold      *decimal.Decimal `json:"overtimeThreshold"`
	OvertimeRate           *decimal.Decimal `json:"overtimeRate"`
	DailyOvertimeEnabled   bool             `json:"dailyOvertimeEnabled"`
	DailyOvertimeThreshold *decimal.Decimal `json:"dailyOvertimeThreshold"`
	WeekendDifferential    *decimal.Decimal `json:"weekendDifferential"`
	NightDifferential      *decimal.Decimal `json:"nightDifferential"`
	MileageRate            *decimal.Decimal `json:"mileageRate"`
	FederalTaxRate         *decimal.Decimal `json:"federalTaxRate"`
	StateTaxRate           *decimal.Decimal `json:"stateTaxRate"`
	SocialSecurityRate     *decimal.Decimal `json:"socialSecurityRate"`
	MedicareRate           *decimal.Decimal `json:"medicareRate"`
}

func (p settingsPayload) settings(v *shared.Validator) payroll.PayrollSettings {
	return payroll.PayrollSettings{
		DefaultHourlyRate:      v.Decimal("defaultHourlyRate", p.DefaultHourlyRate),
		OvertimeThreshold:      v.Decimal("overtimeThreshold", p.OvertimeThreshold),
		OvertimeRate:           v.Decimal("overtimeRate", p.OvertimeRate),
		DailyOvertimeEnabled:   p.DailyOvertimeEnabled,
		DailyOvertimeThreshold: v.Decimal("dailyOvertimeThreshold", p.DailyOvertimeThreshold),
		WeekendDifferential:    v.Decimal("weekendDifferential", p.WeekendDifferential),
		NightDifferential:      v.Decimal("nightDifferential", p.NightDifferential),
		MileageRate:            v.Decimal("mileageRate", p.MileageRate),
		FederalTaxRate:         v.Decimal("federalTaxRate", p.FederalTaxRate),
		StateTaxRate:           v.Decimal("stateTaxRate", p.StateTaxRate),
		SocialSecurityRate:     v.Decimal("socialSecurityRate", p.SocialSecurityRate),
		MedicareRate:           v.Decimal("medicareRate", p.MedicareRate),
	}
}

func (h *Handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Service.Settings(r.Context())
	if err != nil {
		writeError(w, r, err, "settings_failed", "failed to load settings")
		return
	}
	api.Success(w, settings, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var payload settingsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	validator := shared.NewValidator()
	settings := payload.settings(validator)
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	before, err := h.Service.Settings(r.Context())
	if err != nil {
		writeError(w, r, err, "settings_update_failed", "failed to update settings")
		return
	}
	if err := h.Service.UpdateSettings(r.Context(), settings); err != nil {
		writeError(w, r, err, "settings_update_failed", "failed to update settings")
		return
	}
	h.record(r, audit.ActionSettingsUpdate, audit.EntitySettings, "default", before, settings)

	queued := false
	if h.Jobs != nil {
		queued = h.Jobs.Enqueue(jobs.JobPayrollRecompute, func(ctx context.Context) (any, error) {
			results, err := h.Service.RecomputeOpenPeriods(ctx)
			return summarizeRuns(results), err
		})
	}
	user, _ := middleware.GetUser(r.Context())
	slog.Info("payroll settings updated", "userId", user.UserID, "recomputeQueued", queued, "requestId", middleware.GetRequestID(r.Context()))
	api.Success(w, map[string]any{"settings": settings, "recomputeQueued": queued}, middleware.GetRequestID(r.Context()))
}

type runSummary struct {
	PeriodID   string `json:"periodId"`
	Saved      int    `json:"saved"`
	Retained   int    `json:"retained"`
	Failures   int    `json:"failures"`
	Incomplete int    `json:"incompleteShifts"`
}

func summarizeRuns(results []payroll.RunResult) []runSummary {
	out := make([]runSummary, 0, len(results))
	for _, res := range results {
		out = append(out, runSummary{
			PeriodID:   res.PeriodID,
			Saved:      len(res.Saved),
			Retained:   len(res.Retained),
			Failures:   len(res.Failures),
			Incomplete: len(res.IncompleteShifts),
		})
	}
	return out
}

// handleRecompute re-runs every period inside the request. The run is kept in
// the same job history as the recomputes queued by settings updates.
func (h *Handler) handleRecompute(w http.ResponseWriter, r *http.Request) {
	recompute := func(ctx context.Context) (any, error) {
		results, err := h.Service.RecomputeOpenPeriods(ctx)
		return summarizeRuns(results), err
	}
	var (
		details any
		err     error
	)
	if h.Jobs != nil {
		details, err = h.Jobs.RunNow(r.Context(), jobs.JobPayrollRecompute, recompute)
	} else {
		details, err = recompute(r.Context())
	}
	if err != nil {
		writeError(w, r, err, "payroll_recompute_failed", "failed to recompute periods")
		return
	}
	h.record(r, audit.ActionRecompute, audit.EntityPeriod, "all", nil, details)
	api.Success(w, details, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListRecomputeRuns(w http.ResponseWriter, r *http.Request) {
	if h.Jobs == nil {
		api.Success(w, []jobs.Run{}, middleware.GetRequestID(r.Context()))
		return
	}
	runs, err := h.Jobs.ListRuns(r.Context(), jobs.JobPayrollRecompute, 20)
	if err != nil {
		writeError(w, r, err, "job_runs_failed", "failed to list recompute runs")
		return
	}
	api.Success(w, runs, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListPeriods(w http.ResponseWriter, r *http.Request) {
	periods, err := h.Service.ListPeriods(r.Context())
	if err != nil {
		writeError(w, r, err, "payroll_periods_failed", "failed to list periods")
		return
	}
	api.Success(w, periods, middleware.GetRequestID(r.Context()))
}

type periodPayload struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

func (h *Handler) handleCreatePeriod(w http.ResponseWriter, r *http.Request) {
	var payload periodPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	validator := shared.NewValidator()
	start, _ := validator.Date("startDate", payload.StartDate)
	end, _ := validator.Date("endDate", payload.EndDate)
	validator.DateOrder("startDate", start, "endDate", end)
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	period, err := h.Service.CreatePeriod(r.Context(), start, end)
	if err != nil {
		writeError(w, r, err, "payroll_period_create_failed", "failed to create period")
		return
	}
	h.record(r, audit.ActionPeriodCreate, audit.EntityPeriod, period.ID, nil, period)
	api.Created(w, period, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRunPeriod(w http.ResponseWriter, r *http.Request) {
	force := false
	if raw := r.URL.Query().Get("force"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			shared.FailValidation(w, middleware.GetRequestID(r.Context()), []shared.ValidationIssue{{Field: "force", Reason: "must be true or false"}})
			return
		}
		force = parsed
	}

	result, err := h.Service.RunPeriod(r.Context(), chi.URLParam(r, "periodID"), force)
	if err != nil {
		writeError(w, r, err, "payroll_run_failed", "failed to run payroll")
		return
	}
	h.record(r, audit.ActionPeriodRun, audit.EntityPeriod, result.PeriodID, nil, map[string]any{
		"force":            force,
		"saved":            len(result.Saved),
		"retained":         len(result.Retained),
		"failures":         len(result.Failures),
		"incompleteShifts": len(result.IncompleteShifts),
	})
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListRecords(w http.ResponseWriter, r *http.Request) {
	records, err := h.Service.ListRecords(r.Context(), chi.URLParam(r, "periodID"))
	if err != nil {
		writeError(w, r, err, "payroll_records_failed", "failed to list records")
		return
	}
	if records == nil {
		records = []payroll.PayrollRecord{}
	}
	api.Success(w, records, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleApproveAll(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, h.Service.ApproveAll, audit.ActionApproveAll, "payroll_approve_failed", "failed to approve records")
}

func (h *Handler) handleProcessAll(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, h.Service.ProcessAll, audit.ActionProcessAll, "payroll_process_failed", "failed to process records")
}

func (h *Handler) bulk(w http.ResponseWriter, r *http.Request, fn func(context.Context, string) (payroll.BulkResult, error), action, code, message string) {
	periodID := chi.URLParam(r, "periodID")
	result, err := fn(r.Context(), periodID)
	if err != nil {
		writeError(w, r, err, code, message)
		return
	}
	updated := make([]string, 0, len(result.Updated))
	for _, rec := range result.Updated {
		updated = append(updated, rec.ID)
	}
	h.record(r, action, audit.EntityPeriod, periodID, nil, map[string]any{
		"updated":  updated,
		"skipped":  len(result.Skipped),
		"failures": len(result.Failures),
	})
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDiscrepancies(w http.ResponseWriter, r *http.Request) {
	report, err := h.Service.Discrepancies(r.Context(), chi.URLParam(r, "periodID"))
	if err != nil {
		writeError(w, r, err, "discrepancy_report_failed", "failed to build discrepancy report")
		return
	}
	api.Success(w, report, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Service.Record(r.Context(), chi.URLParam(r, "recordID"))
	if err != nil {
		writeError(w, r, err, "payroll_record_failed", "failed to load record")
		return
	}
	api.Success(w, rec, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.Approve, audit.ActionRecordApprove, payroll.StatusDraft)
}

func (h *Handler) handleProcess(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.Process, audit.ActionRecordProcess, payroll.StatusApproved)
}

func (h *Handler) handleMarkPaid(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.MarkPaid, audit.ActionRecordMarkPaid, payroll.StatusProcessed)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(context.Context, string) (payroll.PayrollRecord, error), action, from string) {
	rec, err := fn(r.Context(), chi.URLParam(r, "recordID"))
	if err != nil {
		writeError(w, r, err, "payroll_transition_failed", "failed to update record status")
		return
	}
	h.record(r, action, audit.EntityRecord, rec.ID, statusSnapshot{Status: from}, snapshotOf(rec))
	api.Success(w, rec, middleware.GetRequestID(r.Context()))
}

func (h *Handler) periodRecords(ctx context.Context, periodID string) (payroll.Period, []payroll.PayrollRecord, map[string]string, error) {
	period, err := h.Service.Period(ctx, periodID)
	if err != nil {
		return payroll.Period{}, nil, nil, err
	}
	records, err := h.Service.ListRecords(ctx, periodID)
	if err != nil {
		return payroll.Period{}, nil, nil, err
	}
	names, err := h.Service.CaregiverNames(ctx)
	if err != nil {
		return payroll.Period{}, nil, nil, err
	}
	return period, records, names, nil
}

func (h *Handler) handleExportRegisterCSV(w http.ResponseWriter, r *http.Request) {
	_, records, names, err := h.periodRecords(r.Context(), chi.URLParam(r, "periodID"))
	if err != nil {
		writeError(w, r, err, "export_failed", "failed to export register")
		return
	}
	var buf bytes.Buffer
	if err := export.WriteRegisterCSV(&buf, records, names); err != nil {
		writeError(w, r, err, "export_failed", "failed to export register")
		return
	}
	writeFile(w, "text/csv", "payroll-register.csv", buf.Bytes())
}

func (h *Handler) handleExportRegisterXLSX(w http.ResponseWriter, r *http.Request) {
	period, records, names, err := h.periodRecords(r.Context(), chi.URLParam(r, "periodID"))
	if err != nil {
		writeError(w, r, err, "export_failed", "failed to export register")
		return
	}
	var buf bytes.Buffer
	if err := export.WriteRegisterXLSX(&buf, period, records, names); err != nil {
		writeError(w, r, err, "export_failed", "failed to export register")
		return
	}
	writeFile(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "payroll-register.xlsx", buf.Bytes())
}

func (h *Handler) handleExportJournal(w http.ResponseWriter, r *http.Request) {
	_, records, _, err := h.periodRecords(r.Context(), chi.URLParam(r, "periodID"))
	if err != nil {
		writeError(w, r, err, "export_failed", "failed to export journal")
		return
	}
	var buf bytes.Buffer
	if err := export.WriteJournalCSV(&buf, records); err != nil {
		writeError(w, r, err, "export_failed", "failed to export journal")
		return
	}
	writeFile(w, "text/csv", "payroll-journal.csv", buf.Bytes())
}

func (h *Handler) handlePayStub(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Service.Record(r.Context(), chi.URLParam(r, "recordID"))
	if err != nil {
		writeError(w, r, err, "pay_stub_failed", "failed to render pay stub")
		return
	}
	period, err := h.Service.Period(r.Context(), rec.PeriodID)
	if err != nil {
		writeError(w, r, err, "pay_stub_failed", "failed to render pay stub")
		return
	}
	names, err := h.Service.CaregiverNames(r.Context())
	if err != nil {
		writeError(w, r, err, "pay_stub_failed", "failed to render pay stub")
		return
	}
	var buf bytes.Buffer
	if err := export.WritePayStub(&buf, period, rec, names[rec.CaregiverID]); err != nil {
		writeError(w, r, err, "pay_stub_failed", "failed to render pay stub")
		return
	}
	writeFile(w, "application/pdf", fmt.Sprintf("pay-stub-%s.pdf", rec.ID), buf.Bytes())
}

func writeFile(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		slog.Warn("write file failed", "filename", filename, "err", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	requestID := middleware.GetRequestID(r.Context())

	var settingsErr *payroll.InvalidSettingsError
	var transitionErr *payroll.InvalidTransitionError
	switch {
	case errors.As(err, &settingsErr):
		api.FailWithDetails(w, http.StatusUnprocessableEntity, "invalid_settings", settingsErr.Error(),
			map[string]string{"field": settingsErr.Field, "reason": settingsErr.Reason}, requestID)
	case errors.As(err, &transitionErr):
		api.FailWithDetails(w, http.StatusConflict, "invalid_transition", transitionErr.Error(),
			map[string]string{"recordId": transitionErr.RecordID, "from": transitionErr.From, "action": transitionErr.Action}, requestID)
	case errors.Is(err, payroll.ErrRecordNotFound):
		api.Fail(w, http.StatusNotFound, "record_not_found", "payroll record not found", requestID)
	case errors.Is(err, payroll.ErrPeriodNotFound):
		api.Fail(w, http.StatusNotFound, "period_not_found", "payroll period not found", requestID)
	case errors.Is(err, payroll.ErrInvalidPeriod):
		shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: "endDate", Reason: "must be on or after startDate"}})
	case errors.Is(err, context.DeadlineExceeded):
		api.Fail(w, http.StatusGatewayTimeout, "timeout", "request timed out", requestID)
	default:
		slog.Error(message, "err", err, "path", r.URL.Path, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}
