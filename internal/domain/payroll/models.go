package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

type Caregiver struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	HourlyRate decimal.Decimal `json:"hourlyRate"`
	Active     bool            `json:"active"`
}

type Period struct {
	ID        string    `json:"id"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	CreatedAt time.Time `json:"createdAt"`
}

// Contains reports whether t falls on a calendar day inside the period,
// end date included.
func (p Period) Contains(t time.Time) bool {
	day := dateOf(t)
	return !day.Before(dateOf(p.StartDate)) && !day.After(dateOf(p.EndDate))
}

type ShiftRecord struct {
	ID              string     `json:"id"`
	CaregiverID     string     `json:"caregiverId"`
	ClientID        string     `json:"clientId"`
	ScheduledStart  time.Time  `json:"scheduledStart"`
	ScheduledEnd    time.Time  `json:"scheduledEnd"`
	AllottedMinutes int        `json:"allottedMinutes"`
	ClockIn         *time.Time `json:"clockIn,omitempty"`
	ClockOut        *time.Time `json:"clockOut,omitempty"`
	IsWeekend       bool       `json:"isWeekend"`
	IsNight         bool       `json:"isNight"`
}

// Punch is a shift with both clock times present.
type Punch struct {
	In  time.Time
	Out time.Time
}

func (p Punch) WorkedMinutes() int {
	return int(p.Out.Sub(p.In) / time.Minute)
}

func (s ShiftRecord) Punch() (Punch, error) {
	switch {
	case s.ClockIn == nil && s.ClockOut == nil:
		return Punch{}, &IncompleteShiftError{ShiftID: s.ID, CaregiverID: s.CaregiverID, Reason: "no clock-in or clock-out"}
	case s.ClockIn == nil:
		return Punch{}, &IncompleteShiftError{ShiftID: s.ID, CaregiverID: s.CaregiverID, Reason: "no clock-in"}
	case s.ClockOut == nil:
		return Punch{}, &IncompleteShiftError{ShiftID: s.ID, CaregiverID: s.CaregiverID, Reason: "no clock-out"}
	case s.ClockOut.Before(*s.ClockIn):
		return Punch{}, &IncompleteShiftError{ShiftID: s.ID, CaregiverID: s.CaregiverID, Reason: "clock-out before clock-in"}
	}
	return Punch{In: *s.ClockIn, Out: *s.ClockOut}, nil
}

// ServiceDate is the day the shift counts toward: the scheduled start, or
// the clock-in for unscheduled visits.
func (s ShiftRecord) ServiceDate() time.Time {
	if !s.ScheduledStart.IsZero() || s.ClockIn == nil {
		return s.ScheduledStart
	}
	return *s.ClockIn
}

// AllottedFromUnits converts authorized billing units into minutes.
func AllottedFromUnits(units int) int {
	return units * MinutesPerServiceUnit
}

type MileageEntry struct {
	ID           string          `json:"id"`
	CaregiverID  string          `json:"caregiverId"`
	Date         time.Time       `json:"date"`
	Miles        decimal.Decimal `json:"miles"`
	FromLocation string          `json:"fromLocation,omitempty"`
	ToLocation   string          `json:"toLocation,omitempty"`
}

type PTOType string

// Paid reports whether hours of this type are paid at the hourly rate.
// Unknown types report false; Calculate rejects them before asking.
func (t PTOType) Paid() bool {
	switch string(t) {
	case PTOVacation, PTOSick, PTOPersonal, PTOBereavement, PTOJuryDuty:
		return true
	case PTOUnpaid:
		return false
	default:
		return false
	}
}

func (t PTOType) Valid() bool {
	for _, candidate := range PTOTypes {
		if string(t) == candidate {
			return true
		}
	}
	return false
}

type PTOEntry struct {
	ID          string          `json:"id"`
	CaregiverID string          `json:"caregiverId"`
	Type        PTOType         `json:"type"`
	StartDate   time.Time       `json:"startDate"`
	EndDate     time.Time       `json:"endDate"`
	Hours       decimal.Decimal `json:"hours"`
}

type PayrollSettings struct {
	DefaultHourlyRate      decimal.Decimal `json:"defaultHourlyRate" mapstructure:"default_hourly_rate"`
	OvertimeThreshold      decimal.Decimal `json:"overtimeThreshold" mapstructure:"overtime_threshold"`
	OvertimeRate           decimal.Decimal `json:"overtimeRate" mapstructure:"overtime_rate"`
	DailyOvertimeEnabled   bool            `json:"dailyOvertimeEnabled" mapstructure:"daily_overtime_enabled"`
	DailyOvertimeThreshold decimal.Decimal `json:"dailyOvertimeThreshold" mapstructure:"daily_overtime_threshold"`
	WeekendDifferential    decimal.Decimal `json:"weekendDifferential" mapstructure:"weekend_differential"`
	NightDifferential      decimal.Decimal `json:"nightDifferential" mapstructure:"night_differential"`
	MileageRate            decimal.Decimal `json:"mileageRate" mapstructure:"mileage_rate"`
	FederalTaxRate         decimal.Decimal `json:"federalTaxRate" mapstructure:"federal_tax_rate"`
	StateTaxRate           decimal.Decimal `json:"stateTaxRate" mapstructure:"state_tax_rate"`
	SocialSecurityRate     decimal.Decimal `json:"socialSecurityRate" mapstructure:"social_security_rate"`
	MedicareRate           decimal.Decimal `json:"medicareRate" mapstructure:"medicare_rate"`
}

type PayrollRecord struct {
	ID          string `json:"id"`
	PeriodID    string `json:"periodId"`
	CaregiverID string `json:"caregiverId"`

	TotalHours       decimal.Decimal `json:"totalHours"`
	RegularHours     decimal.Decimal `json:"regularHours"`
	OvertimeHours    decimal.Decimal `json:"overtimeHours"`
	WeekendHours     decimal.Decimal `json:"weekendHours"`
	NightHours       decimal.Decimal `json:"nightHours"`
	PTOHours         decimal.Decimal `json:"ptoHours"`
	UnpaidLeaveHours decimal.Decimal `json:"unpaidLeaveHours"`
	TotalMiles       decimal.Decimal `json:"totalMiles"`
	HourlyRate       decimal.Decimal `json:"hourlyRate"`

	RegularPay           decimal.Decimal `json:"regularPay"`
	OvertimePay          decimal.Decimal `json:"overtimePay"`
	MileageReimbursement decimal.Decimal `json:"mileageReimbursement"`
	WeekendPay           decimal.Decimal `json:"weekendPay"`
	NightPay             decimal.Decimal `json:"nightPay"`
	PTOPay               decimal.Decimal `json:"ptoPay"`
	TaxableWages         decimal.Decimal `json:"taxableWages"`
	GrossPay             decimal.Decimal `json:"grossPay"`

	FederalTax      decimal.Decimal `json:"federalTax"`
	StateTax        decimal.Decimal `json:"stateTax"`
	SocialSecurity  decimal.Decimal `json:"socialSecurity"`
	Medicare        decimal.Decimal `json:"medicare"`
	TotalDeductions decimal.Decimal `json:"totalDeductions"`
	NetPay          decimal.Decimal `json:"netPay"`

	FlaggedShifts    int             `json:"flaggedShifts"`
	IncompleteShifts int             `json:"incompleteShifts"`
	OverageCost      decimal.Decimal `json:"overageCost"`

	Status       string     `json:"status"`
	CheckNumber  *int64     `json:"checkNumber,omitempty"`
	CalculatedAt time.Time  `json:"calculatedAt"`
	ApprovedAt   *time.Time `json:"approvedAt,omitempty"`
	ProcessedAt  *time.Time `json:"processedAt,omitempty"`
	PaidAt       *time.Time `json:"paidAt,omitempty"`
}

// Figures lists the hour and money fields in a fixed order. Identity and
// lifecycle fields are not included.
func (r PayrollRecord) Figures() []decimal.Decimal {
	return []decimal.Decimal{
		r.TotalHours, r.RegularHours, r.OvertimeHours, r.WeekendHours, r.NightHours, r.PTOHours,
		r.UnpaidLeaveHours, r.TotalMiles, r.HourlyRate,
		r.RegularPay, r.OvertimePay, r.MileageReimbursement, r.WeekendPay, r.NightPay, r.PTOPay,
		r.TaxableWages, r.GrossPay,
		r.FederalTax, r.StateTax, r.SocialSecurity, r.Medicare, r.TotalDeductions, r.NetPay,
	}
}

// CaregiverInput bundles everything the calculation needs for one caregiver
// in one period. The calling layer fetches it; the pipeline never does I/O.
type CaregiverInput struct {
	Caregiver Caregiver
	Shifts    []ShiftRecord
	Mileage   []MileageEntry
	PTO       []PTOEntry
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
