package payroll

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type CalculationInput struct {
	Hours      HourTotals
	Miles      decimal.Decimal
	PTO        []PTOEntry
	HourlyRate decimal.Decimal
}

// SplitPTO totals leave hours into the paid part and the unpaid part.
func SplitPTO(entries []PTOEntry) (paid, unpaid decimal.Decimal) {
	paid, unpaid = decimal.Zero, decimal.Zero
	for _, entry := range entries {
		if entry.Type.Paid() {
			paid = paid.Add(entry.Hours)
		} else {
			unpaid = unpaid.Add(entry.Hours)
		}
	}
	return paid, unpaid
}

// Calculate turns aggregated hours, mileage and leave into an unsaved draft
// record. Mileage is a reimbursement: it stays out of taxable wages and is
// added to net pay once.
func Calculate(in CalculationInput, settings PayrollSettings) (PayrollRecord, error) {
	if err := settings.Validate(); err != nil {
		return PayrollRecord{}, err
	}
	if in.HourlyRate.IsNegative() {
		return PayrollRecord{}, &InvalidSettingsError{Field: "hourlyRate", Reason: "must not be negative"}
	}
	if in.Miles.IsNegative() {
		return PayrollRecord{}, fmt.Errorf("mileage total %s is negative", in.Miles)
	}
	for _, entry := range in.PTO {
		if !entry.Type.Valid() {
			return PayrollRecord{}, fmt.Errorf("pto entry %s has type %q: %w", entry.ID, entry.Type, ErrUnknownPTOType)
		}
		if entry.Hours.IsNegative() {
			return PayrollRecord{}, fmt.Errorf("pto entry %s has negative hours", entry.ID)
		}
	}

	ptoHours, unpaidHours := SplitPTO(in.PTO)

	// Regular hours are derived after rounding so that regular plus overtime
	// always equals the total shown on the record.
	totalHours := hours(in.Hours.TotalHours)
	overtimeHours := hours(in.Hours.OvertimeHours)
	regularHours := totalHours.Sub(overtimeHours)
	weekendHours := hours(in.Hours.WeekendHours)
	nightHours := hours(in.Hours.NightHours)

	regularPay := money(regularHours.Mul(in.HourlyRate))
	overtimePay := money(overtimeHours.Mul(in.HourlyRate).Mul(settings.OvertimeRate))
	mileage := money(in.Miles.Mul(settings.MileageRate))
	weekendPay := money(weekendHours.Mul(settings.WeekendDifferential))
	nightPay := money(nightHours.Mul(settings.NightDifferential))
	ptoPay := money(ptoHours.Mul(in.HourlyRate))

	taxable := regularPay.Add(overtimePay).Add(weekendPay).Add(nightPay).Add(ptoPay)
	federal := money(taxable.Mul(settings.FederalTaxRate))
	state := money(taxable.Mul(settings.StateTaxRate))
	socialSecurity := money(taxable.Mul(settings.SocialSecurityRate))
	medicare := money(taxable.Mul(settings.MedicareRate))
	deductions := federal.Add(state).Add(socialSecurity).Add(medicare)

	return PayrollRecord{
		TotalHours:       totalHours,
		RegularHours:     regularHours,
		OvertimeHours:    overtimeHours,
		WeekendHours:     weekendHours,
		NightHours:       nightHours,
		PTOHours:         ptoHours,
		UnpaidLeaveHours: unpaidHours,
		TotalMiles:       in.Miles,
		HourlyRate:       in.HourlyRate,

		RegularPay:           regularPay,
		OvertimePay:          overtimePay,
		MileageReimbursement: mileage,
		WeekendPay:           weekendPay,
		NightPay:             nightPay,
		PTOPay:               ptoPay,
		TaxableWages:         taxable,
		GrossPay:             taxable.Add(mileage),

		FederalTax:      federal,
		StateTax:        state,
		SocialSecurity:  socialSecurity,
		Medicare:        medicare,
		TotalDeductions: deductions,
		NetPay:          taxable.Sub(deductions).Add(mileage),

		OverageCost: decimal.Zero,
		Status:      StatusDraft,
	}, nil
}

func hours(value decimal.Decimal) decimal.Decimal {
	return value.Round(4)
}
