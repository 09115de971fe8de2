package payroll

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type CaregiverFailure struct {
	CaregiverID string `json:"caregiverId"`
	Reason      string `json:"reason"`
	Err         error  `json:"-"`
}

type IncompleteShift struct {
	ShiftID     string `json:"shiftId"`
	CaregiverID string `json:"caregiverId"`
	Reason      string `json:"reason"`
}

type CaregiverResult struct {
	Record PayrollRecord    `json:"record"`
	Shifts []Reconciliation `json:"shifts"`
}

type BatchResult struct {
	Results    []CaregiverResult  `json:"results"`
	Failures   []CaregiverFailure `json:"failures"`
	Incomplete []IncompleteShift  `json:"incompleteShifts"`
}

type caregiverOutcome struct {
	result     *CaregiverResult
	failure    *CaregiverFailure
	incomplete []IncompleteShift
}

// RunBatch calculates one record per caregiver. Settings are checked before
// anything is calculated; a bad configuration fails the whole run. Failures of
// a single caregiver are collected and never stop the others.
func RunBatch(ctx context.Context, period Period, settings PayrollSettings, inputs []CaregiverInput, workers int) (BatchResult, error) {
	if err := settings.Validate(); err != nil {
		return BatchResult{}, err
	}
	if workers <= 0 {
		workers = 1
	}

	outcomes := make([]caregiverOutcome, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, input := range inputs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			outcomes[i] = calculateIsolated(period, settings, input)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return BatchResult{}, err
	}

	var out BatchResult
	for _, outcome := range outcomes {
		out.Incomplete = append(out.Incomplete, outcome.incomplete...)
		switch {
		case outcome.failure != nil:
			out.Failures = append(out.Failures, *outcome.failure)
		case outcome.result != nil:
			out.Results = append(out.Results, *outcome.result)
		}
	}
	sort.Slice(out.Results, func(i, j int) bool {
		return out.Results[i].Record.CaregiverID < out.Results[j].Record.CaregiverID
	})
	sort.Slice(out.Failures, func(i, j int) bool {
		return out.Failures[i].CaregiverID < out.Failures[j].CaregiverID
	})
	return out, nil
}

func calculateIsolated(period Period, settings PayrollSettings, input CaregiverInput) (outcome caregiverOutcome) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("calculation panicked: %v", r)
			outcome = caregiverOutcome{failure: &CaregiverFailure{CaregiverID: input.Caregiver.ID, Reason: err.Error(), Err: err}}
		}
	}()

	result, incomplete, err := CalculateCaregiver(period, settings, input)
	if err != nil {
		return caregiverOutcome{
			failure:    &CaregiverFailure{CaregiverID: input.Caregiver.ID, Reason: err.Error(), Err: err},
			incomplete: incomplete,
		}
	}
	return caregiverOutcome{result: &result, incomplete: incomplete}
}

// CalculateCaregiver runs reconcile, aggregate and calculate for one
// caregiver. Inputs dated outside the period are ignored.
func CalculateCaregiver(period Period, settings PayrollSettings, input CaregiverInput) (CaregiverResult, []IncompleteShift, error) {
	rate := settings.HourlyRateFor(input.Caregiver)

	var reconciled []Reconciliation
	var incomplete []IncompleteShift
	flagged := 0
	overage := decimal.Zero
	for _, shift := range input.Shifts {
		if !period.Contains(shift.ServiceDate()) {
			continue
		}
		rec, err := Reconcile(shift, rate)
		if err != nil {
			var incompleteErr *IncompleteShiftError
			if errors.As(err, &incompleteErr) {
				incomplete = append(incomplete, IncompleteShift{ShiftID: shift.ID, CaregiverID: input.Caregiver.ID, Reason: incompleteErr.Reason})
				continue
			}
			return CaregiverResult{}, incomplete, err
		}
		if rec.Flagged {
			flagged++
		}
		overage = overage.Add(rec.OverageCost)
		reconciled = append(reconciled, rec)
	}

	miles := decimal.Zero
	for _, entry := range input.Mileage {
		if period.Contains(entry.Date) {
			miles = miles.Add(entry.Miles)
		}
	}
	var pto []PTOEntry
	for _, entry := range input.PTO {
		if period.Contains(entry.StartDate) {
			pto = append(pto, entry)
		}
	}

	record, err := Calculate(CalculationInput{
		Hours:      Aggregate(reconciled, settings, period.StartDate),
		Miles:      miles,
		PTO:        pto,
		HourlyRate: rate,
	}, settings)
	if err != nil {
		return CaregiverResult{}, incomplete, err
	}
	record.PeriodID = period.ID
	record.CaregiverID = input.Caregiver.ID
	record.FlaggedShifts = flagged
	record.IncompleteShifts = len(incomplete)
	record.OverageCost = overage
	return CaregiverResult{Record: record, Shifts: reconciled}, incomplete, nil
}
