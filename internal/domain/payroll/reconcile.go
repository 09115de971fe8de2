package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

var sixty = decimal.NewFromInt(60)

// Reconciliation is the per-shift comparison of allotted and worked time.
type Reconciliation struct {
	ShiftID     string `json:"shiftId"`
	CaregiverID string `json:"caregiverId"`
	ClientID    string `json:"clientId"`

	AllottedMinutes    int  `json:"allottedMinutes"`
	WorkedMinutes      int  `json:"workedMinutes"`
	BillableMinutes    int  `json:"billableMinutes"`
	DiscrepancyMinutes int  `json:"discrepancyMinutes"`
	LateMinutes        int  `json:"lateMinutes"`
	Flagged            bool `json:"flagged"`

	// WindowStart and WindowEnd bound the allotment once it has been moved to
	// start at the actual clock-in.
	WindowStart time.Time `json:"windowStart"`
	WindowEnd   time.Time `json:"windowEnd"`

	BillablePay decimal.Decimal `json:"billablePay"`
	ActualPay   decimal.Decimal `json:"actualPay"`
	OverageCost decimal.Decimal `json:"overageCost"`

	ClockIn   time.Time `json:"clockIn"`
	IsWeekend bool      `json:"isWeekend"`
	IsNight   bool      `json:"isNight"`
}

func Reconcile(shift ShiftRecord, hourlyRate decimal.Decimal) (Reconciliation, error) {
	punch, err := shift.Punch()
	if err != nil {
		return Reconciliation{}, err
	}

	worked := punch.WorkedMinutes()
	allotted := shift.AllottedMinutes
	if allotted < 0 {
		allotted = 0
	}

	late := 0
	if !shift.ScheduledStart.IsZero() && punch.In.After(shift.ScheduledStart) {
		late = int(punch.In.Sub(shift.ScheduledStart) / time.Minute)
	}

	billable := min(worked, allotted)
	discrepancy := worked - allotted

	billablePay := minutesToHours(billable).Mul(hourlyRate)
	actualPay := minutesToHours(worked).Mul(hourlyRate)
	overage := actualPay.Sub(billablePay)
	if overage.IsNegative() {
		overage = decimal.Zero
	}

	return Reconciliation{
		ShiftID:            shift.ID,
		CaregiverID:        shift.CaregiverID,
		ClientID:           shift.ClientID,
		AllottedMinutes:    allotted,
		WorkedMinutes:      worked,
		BillableMinutes:    billable,
		DiscrepancyMinutes: discrepancy,
		LateMinutes:        late,
		Flagged:            abs(discrepancy) >= DiscrepancyToleranceMinutes,
		WindowStart:        punch.In,
		WindowEnd:          punch.In.Add(time.Duration(allotted) * time.Minute),
		BillablePay:        money(billablePay),
		ActualPay:          money(actualPay),
		OverageCost:        money(overage),
		ClockIn:            punch.In,
		IsWeekend:          shift.IsWeekend,
		IsNight:            shift.IsNight,
	}, nil
}

type DiscrepancySummary struct {
	Shifts               int             `json:"shifts"`
	Flagged              int             `json:"flagged"`
	Over                 int             `json:"over"`
	Under                int             `json:"under"`
	OverageMinutes       int             `json:"overageMinutes"`
	ShortfallMinutes     int             `json:"shortfallMinutes"`
	TotalBillableMinutes int             `json:"totalBillableMinutes"`
	TotalOverageCost     decimal.Decimal `json:"totalOverageCost"`
}

func SummarizeDiscrepancies(items []Reconciliation) DiscrepancySummary {
	summary := DiscrepancySummary{TotalOverageCost: decimal.Zero}
	for _, item := range items {
		summary.Shifts++
		summary.TotalBillableMinutes += item.BillableMinutes
		if item.Flagged {
			summary.Flagged++
		}
		switch {
		case item.DiscrepancyMinutes > 0:
			summary.Over++
			summary.OverageMinutes += item.DiscrepancyMinutes
		case item.DiscrepancyMinutes < 0:
			summary.Under++
			summary.ShortfallMinutes -= item.DiscrepancyMinutes
		}
		summary.TotalOverageCost = summary.TotalOverageCost.Add(item.OverageCost)
	}
	return summary
}

func minutesToHours(minutes int) decimal.Decimal {
	return decimal.NewFromInt(int64(minutes)).Div(sixty)
}

func money(value decimal.Decimal) decimal.Decimal {
	return value.Round(2)
}

func abs(value int) int {
	if value < 0 {
		return -value
	}
	return value
}
