// Package export renders payroll records for people outside the system:
// the period register and journal for accounting, and pay stubs for
// caregivers.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"

	"carepay/internal/domain/payroll"
)

var registerHeader = []string{
	"caregiver_id", "caregiver_name", "status", "check_number",
	"total_hours", "regular_hours", "overtime_hours", "weekend_hours", "night_hours", "pto_hours", "unpaid_leave_hours",
	"hourly_rate", "regular_pay", "overtime_pay", "weekend_pay", "night_pay", "pto_pay",
	"taxable_wages", "mileage_reimbursement", "gross_pay",
	"federal_tax", "state_tax", "social_security", "medicare", "total_deductions", "net_pay",
	"flagged_shifts", "incomplete_shifts", "overage_cost",
}

func registerRow(rec payroll.PayrollRecord, name string) []string {
	checkNumber := ""
	if rec.CheckNumber != nil {
		checkNumber = strconv.FormatInt(*rec.CheckNumber, 10)
	}
	return []string{
		rec.CaregiverID, name, rec.Status, checkNumber,
		hours(rec.TotalHours), hours(rec.RegularHours), hours(rec.OvertimeHours), hours(rec.WeekendHours),
		hours(rec.NightHours), hours(rec.PTOHours), hours(rec.UnpaidLeaveHours),
		money(rec.HourlyRate), money(rec.RegularPay), money(rec.OvertimePay), money(rec.WeekendPay),
		money(rec.NightPay), money(rec.PTOPay),
		money(rec.TaxableWages), money(rec.MileageReimbursement), money(rec.GrossPay),
		money(rec.FederalTax), money(rec.StateTax), money(rec.SocialSecurity), money(rec.Medicare),
		money(rec.TotalDeductions), money(rec.NetPay),
		strconv.Itoa(rec.FlaggedShifts), strconv.Itoa(rec.IncompleteShifts), money(rec.OverageCost),
	}
}

// WriteRegisterCSV writes one row per record. names maps caregiver ids to
// display names; missing names are left blank.
func WriteRegisterCSV(w io.Writer, records []payroll.PayrollRecord, names map[string]string) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(registerHeader); err != nil {
		return fmt.Errorf("write register header: %w", err)
	}
	for _, rec := range records {
		if err := writer.Write(registerRow(rec, names[rec.CaregiverID])); err != nil {
			return fmt.Errorf("write register row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func hours(d decimal.Decimal) string {
	return d.StringFixed(2)
}
