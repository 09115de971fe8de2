package payroll

import "github.com/shopspring/decimal"

// DefaultSettings mirrors the values the agency ships with before anyone
// edits them.
func DefaultSettings() PayrollSettings {
	return PayrollSettings{
		DefaultHourlyRate:      decimal.NewFromInt(18),
		OvertimeThreshold:      decimal.NewFromInt(40),
		OvertimeRate:           decimal.RequireFromString("1.5"),
		DailyOvertimeEnabled:   false,
		DailyOvertimeThreshold: decimal.NewFromInt(8),
		WeekendDifferential:    decimal.NewFromInt(2),
		NightDifferential:      decimal.RequireFromString("1.5"),
		MileageRate:            decimal.RequireFromString("0.67"),
		FederalTaxRate:         decimal.RequireFromString("0.12"),
		StateTaxRate:           decimal.RequireFromString("0.05"),
		SocialSecurityRate:     decimal.RequireFromString("0.062"),
		MedicareRate:           decimal.RequireFromString("0.0145"),
	}
}

func (s PayrollSettings) Validate() error {
	if !s.OvertimeThreshold.IsPositive() {
		return &InvalidSettingsError{Field: "overtimeThreshold", Reason: "must be greater than zero"}
	}
	if s.DailyOvertimeEnabled && !s.DailyOvertimeThreshold.IsPositive() {
		return &InvalidSettingsError{Field: "dailyOvertimeThreshold", Reason: "must be greater than zero when daily overtime is enabled"}
	}
	nonNegative := []struct {
		field string
		value decimal.Decimal
	}{
		{"defaultHourlyRate", s.DefaultHourlyRate},
		{"overtimeRate", s.OvertimeRate},
		{"weekendDifferential", s.WeekendDifferential},
		{"nightDifferential", s.NightDifferential},
		{"mileageRate", s.MileageRate},
		{"federalTaxRate", s.FederalTaxRate},
		{"stateTaxRate", s.StateTaxRate},
		{"socialSecurityRate", s.SocialSecurityRate},
		{"medicareRate", s.MedicareRate},
	}
	for _, item := range nonNegative {
		if item.value.IsNegative() {
			return &InvalidSettingsError{Field: item.field, Reason: "must not be negative"}
		}
	}
	withholding := s.FederalTaxRate.Add(s.StateTaxRate).Add(s.SocialSecurityRate).Add(s.MedicareRate)
	if withholding.GreaterThan(decimal.NewFromInt(1)) {
		return &InvalidSettingsError{Field: "taxRates", Reason: "must not withhold more than 100% of wages"}
	}
	return nil
}

// HourlyRateFor picks the caregiver's own rate, falling back to the default.
func (s PayrollSettings) HourlyRateFor(c Caregiver) decimal.Decimal {
	if c.HourlyRate.IsZero() {
		return s.DefaultHourlyRate
	}
	return c.HourlyRate
}
