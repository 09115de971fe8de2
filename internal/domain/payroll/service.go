package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RunObserver is told about every finished period run.
type RunObserver interface {
	ObserveRun(saved, retained, failed, incomplete int, duration time.Duration)
}

type Service struct {
	store    StoreAPI
	numberer CheckNumberer
	workers  int
	locks    *lockset
	observer RunObserver
	now      func() time.Time
	newID    func() string
}

type Option func(*Service)

func WithWorkers(workers int) Option {
	return func(s *Service) { s.workers = workers }
}

func WithObserver(observer RunObserver) Option {
	return func(s *Service) { s.observer = observer }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithCheckNumberer replaces the store's check sequence.
func WithCheckNumberer(numberer CheckNumberer) Option {
	return func(s *Service) { s.numberer = numberer }
}

func NewService(store StoreAPI, opts ...Option) *Service {
	s := &Service{
		store:    store,
		numberer: store,
		workers:  4,
		locks:    newLockset(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type RunResult struct {
	PeriodID         string             `json:"periodId"`
	Saved            []PayrollRecord    `json:"saved"`
	Retained         []PayrollRecord    `json:"retained"`
	Failures         []CaregiverFailure `json:"failures"`
	IncompleteShifts []IncompleteShift  `json:"incompleteShifts"`
}

type BulkResult struct {
	Updated  []PayrollRecord    `json:"updated"`
	Skipped  []string           `json:"skipped"`
	Failures []CaregiverFailure `json:"failures"`
}

type DiscrepancyReport struct {
	PeriodID         string             `json:"periodId"`
	Shifts           []Reconciliation   `json:"shifts"`
	Summary          DiscrepancySummary `json:"summary"`
	IncompleteShifts []IncompleteShift  `json:"incompleteShifts"`
}

func (s *Service) Settings(ctx context.Context) (PayrollSettings, error) {
	settings, found, err := s.store.LoadSettings(ctx)
	if err != nil {
		return PayrollSettings{}, fmt.Errorf("load settings: %w", err)
	}
	if !found {
		return DefaultSettings(), nil
	}
	return settings, nil
}

// UpdateSettings validates and stores new settings. Callers re-run open
// periods afterwards; only draft records pick up the change.
func (s *Service) UpdateSettings(ctx context.Context, settings PayrollSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	if err := s.store.SaveSettings(ctx, settings); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

func (s *Service) CreatePeriod(ctx context.Context, start, end time.Time) (Period, error) {
	if end.Before(start) {
		return Period{}, ErrInvalidPeriod
	}
	period := Period{ID: s.newID(), StartDate: dateOf(start), EndDate: dateOf(end), CreatedAt: s.now().UTC()}
	if err := s.store.CreatePeriod(ctx, period); err != nil {
		return Period{}, fmt.Errorf("create period: %w", err)
	}
	return period, nil
}

func (s *Service) ListPeriods(ctx context.Context) ([]Period, error) {
	return s.store.ListPeriods(ctx)
}

// CaregiverNames maps caregiver ids to display names, inactive caregivers
// included.
func (s *Service) CaregiverNames(ctx context.Context) (map[string]string, error) {
	caregivers, err := s.store.ListCaregivers(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(caregivers))
	for _, c := range caregivers {
		names[c.ID] = c.Name
	}
	return names, nil
}

func (s *Service) Period(ctx context.Context, id string) (Period, error) {
	return s.store.GetPeriod(ctx, id)
}

func (s *Service) Record(ctx context.Context, id string) (PayrollRecord, error) {
	return s.store.GetRecord(ctx, id)
}

func (s *Service) ListRecords(ctx context.Context, periodID string) ([]PayrollRecord, error) {
	if _, err := s.store.GetPeriod(ctx, periodID); err != nil {
		return nil, err
	}
	return s.store.ListRecords(ctx, periodID)
}

// RunPeriod calculates every active caregiver for the period and merges the
// results into the store. Records that are no longer drafts are retained as
// they are unless force is set, in which case approved records are reopened.
func (s *Service) RunPeriod(ctx context.Context, periodID string, force bool) (RunResult, error) {
	started := s.now()
	settings, err := s.Settings(ctx)
	if err != nil {
		return RunResult{}, err
	}
	if err := settings.Validate(); err != nil {
		return RunResult{}, err
	}
	period, err := s.store.GetPeriod(ctx, periodID)
	if err != nil {
		return RunResult{}, err
	}
	inputs, err := s.store.ListCaregiverInputs(ctx, period)
	if err != nil {
		return RunResult{}, fmt.Errorf("load caregiver inputs: %w", err)
	}

	batch, err := RunBatch(ctx, period, settings, inputs, s.workers)
	if err != nil {
		return RunResult{}, err
	}

	result := RunResult{PeriodID: period.ID, Failures: batch.Failures, IncompleteShifts: batch.Incomplete}
	overwritable := OverwritableStatuses(force)
	calculatedAt := s.now().UTC()
	for _, item := range batch.Results {
		rec := item.Record
		rec.ID = s.newID()
		rec.CalculatedAt = calculatedAt

		stored, saved, err := s.save(ctx, rec, overwritable)
		if err != nil {
			result.Failures = append(result.Failures, CaregiverFailure{CaregiverID: rec.CaregiverID, Reason: "save failed: " + err.Error(), Err: err})
			continue
		}
		if !saved {
			result.Retained = append(result.Retained, stored)
			continue
		}
		if err := s.store.SaveReconciliations(ctx, item.Shifts); err != nil {
			slog.Warn("shift reconciliation write-back failed", "periodId", period.ID, "caregiverId", rec.CaregiverID, "err", err)
		}
		result.Saved = append(result.Saved, stored)
	}

	if s.observer != nil {
		s.observer.ObserveRun(len(result.Saved), len(result.Retained), len(result.Failures), len(result.IncompleteShifts), s.now().Sub(started))
	}
	slog.Info("payroll period calculated",
		"periodId", period.ID,
		"saved", len(result.Saved),
		"retained", len(result.Retained),
		"failures", len(result.Failures),
		"incompleteShifts", len(result.IncompleteShifts),
		"force", force,
	)
	return result, nil
}

// RecomputeOpenPeriods re-runs every period without force, which refreshes
// drafts and leaves everything else alone.
func (s *Service) RecomputeOpenPeriods(ctx context.Context) ([]RunResult, error) {
	periods, err := s.store.ListPeriods(ctx)
	if err != nil {
		return nil, err
	}
	var out []RunResult
	for _, period := range periods {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		result, err := s.RunPeriod(ctx, period.ID, false)
		if err != nil {
			return out, fmt.Errorf("recompute period %s: %w", period.ID, err)
		}
		out = append(out, result)
	}
	return out, nil
}

func (s *Service) Discrepancies(ctx context.Context, periodID string) (DiscrepancyReport, error) {
	settings, err := s.Settings(ctx)
	if err != nil {
		return DiscrepancyReport{}, err
	}
	period, err := s.store.GetPeriod(ctx, periodID)
	if err != nil {
		return DiscrepancyReport{}, err
	}
	inputs, err := s.store.ListCaregiverInputs(ctx, period)
	if err != nil {
		return DiscrepancyReport{}, fmt.Errorf("load caregiver inputs: %w", err)
	}
	records, err := s.store.ListRecords(ctx, period.ID)
	if err != nil {
		return DiscrepancyReport{}, fmt.Errorf("load records: %w", err)
	}
	// Records past draft keep the rate they were calculated with.
	frozenRates := make(map[string]decimal.Decimal, len(records))
	for _, rec := range records {
		if rec.Status != StatusDraft {
			frozenRates[rec.CaregiverID] = rec.HourlyRate
		}
	}

	report := DiscrepancyReport{PeriodID: period.ID}
	for _, input := range inputs {
		rate, frozen := frozenRates[input.Caregiver.ID]
		if !frozen {
			rate = settings.HourlyRateFor(input.Caregiver)
		}
		for _, shift := range input.Shifts {
			if !period.Contains(shift.ServiceDate()) {
				continue
			}
			rec, err := Reconcile(shift, rate)
			if err != nil {
				var incompleteErr *IncompleteShiftError
				if errors.As(err, &incompleteErr) {
					report.IncompleteShifts = append(report.IncompleteShifts, IncompleteShift{ShiftID: shift.ID, CaregiverID: shift.CaregiverID, Reason: incompleteErr.Reason})
				}
				continue
			}
			report.Shifts = append(report.Shifts, rec)
		}
	}
	report.Summary = SummarizeDiscrepancies(report.Shifts)
	return report, nil
}

func (s *Service) Approve(ctx context.Context, id string) (PayrollRecord, error) {
	return s.transition(ctx, id, ActionApprove)
}

func (s *Service) Process(ctx context.Context, id string) (PayrollRecord, error) {
	return s.transition(ctx, id, ActionProcess)
}

func (s *Service) MarkPaid(ctx context.Context, id string) (PayrollRecord, error) {
	return s.transition(ctx, id, ActionMarkPaid)
}

// ApproveAll approves every draft of the period. Records in any other status
// are skipped without error.
func (s *Service) ApproveAll(ctx context.Context, periodID string) (BulkResult, error) {
	return s.bulk(ctx, periodID, StatusDraft, ActionApprove)
}

// ProcessAll processes every approved record of the period in caregiver
// order, so check numbers follow that order.
func (s *Service) ProcessAll(ctx context.Context, periodID string) (BulkResult, error) {
	return s.bulk(ctx, periodID, StatusApproved, ActionProcess)
}

func (s *Service) bulk(ctx context.Context, periodID, from, action string) (BulkResult, error) {
	records, err := s.ListRecords(ctx, periodID)
	if err != nil {
		return BulkResult{}, err
	}
	var out BulkResult
	for _, rec := range records {
		if rec.Status != from {
			out.Skipped = append(out.Skipped, rec.ID)
			continue
		}
		updated, err := s.transition(ctx, rec.ID, action)
		switch {
		case errors.Is(err, ErrInvalidTransition):
			out.Skipped = append(out.Skipped, rec.ID)
		case err != nil:
			out.Failures = append(out.Failures, CaregiverFailure{CaregiverID: rec.CaregiverID, Reason: err.Error(), Err: err})
		default:
			out.Updated = append(out.Updated, updated)
		}
	}
	return out, nil
}

func (s *Service) transition(ctx context.Context, id, action string) (PayrollRecord, error) {
	rec, err := s.store.GetRecord(ctx, id)
	if err != nil {
		return PayrollRecord{}, err
	}
	unlock := s.locks.Lock(recordKey(rec.PeriodID, rec.CaregiverID))
	defer unlock()

	rec, err = s.store.GetRecord(ctx, id)
	if err != nil {
		return PayrollRecord{}, err
	}
	if _, err := NextStatus(rec, action); err != nil {
		return rec, err
	}

	var checkNumber *int64
	if action == ActionProcess {
		number, err := s.numberer.NextCheckNumber(ctx)
		if err != nil {
			return rec, fmt.Errorf("assign check number: %w", err)
		}
		checkNumber = &number
	}
	next, err := Apply(rec, action, s.now(), checkNumber)
	if err != nil {
		return rec, err
	}
	if err := s.store.UpdateStatus(ctx, next, rec.Status); err != nil {
		return rec, err
	}
	slog.Info("payroll record transitioned", "recordId", id, "from", rec.Status, "to", next.Status)
	return next, nil
}

func (s *Service) save(ctx context.Context, rec PayrollRecord, overwritable []string) (PayrollRecord, bool, error) {
	unlock := s.locks.Lock(recordKey(rec.PeriodID, rec.CaregiverID))
	defer unlock()
	return s.store.SaveRecord(ctx, rec, overwritable)
}
