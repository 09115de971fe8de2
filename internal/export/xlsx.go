package export

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"carepay/internal/domain/payroll"
)

const registerSheet = "Register"

// WriteRegisterXLSX writes the register as a workbook with a title row, a
// header row and one row per record. Figures are numeric cells.
func WriteRegisterXLSX(w io.Writer, period payroll.Period, records []payroll.PayrollRecord, names map[string]string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", registerSheet); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return err
	}

	title := fmt.Sprintf("Payroll register %s to %s", period.StartDate.Format("2006-01-02"), period.EndDate.Format("2006-01-02"))
	if err := f.SetCellValue(registerSheet, "A1", title); err != nil {
		return err
	}

	header := make([]any, len(registerHeader))
	for i, h := range registerHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(registerSheet, "A2", &header); err != nil {
		return err
	}
	lastCol, err := excelize.ColumnNumberToName(len(registerHeader))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(registerSheet, "A2", lastCol+"2", headerStyle); err != nil {
		return err
	}

	for i, rec := range records {
		row := i + 3
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		values := registerValues(rec, names[rec.CaregiverID])
		if err := f.SetSheetRow(registerSheet, cell, &values); err != nil {
			return err
		}
		// Money columns start at hourly_rate.
		first, _ := excelize.CoordinatesToCellName(12, row)
		last, _ := excelize.CoordinatesToCellName(26, row)
		if err := f.SetCellStyle(registerSheet, first, last, moneyStyle); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(registerSheet, "A", "B", 22); err != nil {
		return err
	}
	if err := f.SetColWidth(registerSheet, "C", lastCol, 14); err != nil {
		return err
	}
	return f.Write(w)
}

func registerValues(rec payroll.PayrollRecord, name string) []any {
	var checkNumber any
	if rec.CheckNumber != nil {
		checkNumber = *rec.CheckNumber
	}
	values := []any{rec.CaregiverID, name, rec.Status, checkNumber}
	figures := []decimal.Decimal{
		rec.TotalHours, rec.RegularHours, rec.OvertimeHours, rec.WeekendHours, rec.NightHours, rec.PTOHours, rec.UnpaidLeaveHours,
		rec.HourlyRate, rec.RegularPay, rec.OvertimePay, rec.WeekendPay, rec.NightPay, rec.PTOPay,
		rec.TaxableWages, rec.MileageReimbursement, rec.GrossPay,
		rec.FederalTax, rec.StateTax, rec.SocialSecurity, rec.Medicare, rec.TotalDeductions, rec.NetPay,
	}
	for _, figure := range figures {
		values = append(values, figure.InexactFloat64())
	}
	return append(values, rec.FlaggedShifts, rec.IncompleteShifts, rec.OverageCost.InexactFloat64())
}
