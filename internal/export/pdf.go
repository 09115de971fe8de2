package export

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"carepay/internal/domain/payroll"
)

type stubLine struct {
	label  string
	amount decimal.Decimal
}

// WritePayStub renders a one page pay stub for rec.
func WritePayStub(w io.Writer, period payroll.Period, rec payroll.PayrollRecord, name string) error {
	pdf := gofpdf.New("P", "mm", "Letter", "")
	pdf.SetTitle("Pay stub", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Pay Stub")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	if name == "" {
		name = rec.CaregiverID
	}
	pdf.Cell(0, 7, fmt.Sprintf("Caregiver: %s (%s)", name, rec.CaregiverID))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Period: %s to %s", period.StartDate.Format("2006-01-02"), period.EndDate.Format("2006-01-02")))
	pdf.Ln(6)
	status := rec.Status
	if rec.CheckNumber != nil {
		status = fmt.Sprintf("%s, check #%d", status, *rec.CheckNumber)
	}
	pdf.Cell(0, 7, "Status: "+status)
	pdf.Ln(10)

	section(pdf, "Hours", []stubLine{
		{"Regular", rec.RegularHours},
		{"Overtime", rec.OvertimeHours},
		{"Weekend", rec.WeekendHours},
		{"Night", rec.NightHours},
		{"Paid time off", rec.PTOHours},
		{"Unpaid leave", rec.UnpaidLeaveHours},
		{"Total worked", rec.TotalHours},
	}, hours)

	section(pdf, "Earnings", []stubLine{
		{"Regular pay", rec.RegularPay},
		{"Overtime pay", rec.OvertimePay},
		{"Weekend differential", rec.WeekendPay},
		{"Night differential", rec.NightPay},
		{"Paid time off", rec.PTOPay},
		{"Taxable wages", rec.TaxableWages},
		{"Mileage reimbursement (non-taxable)", rec.MileageReimbursement},
		{"Gross pay", rec.GrossPay},
	}, money)

	section(pdf, "Deductions", []stubLine{
		{"Federal income tax", rec.FederalTax},
		{"State income tax", rec.StateTax},
		{"Social Security", rec.SocialSecurity},
		{"Medicare", rec.Medicare},
		{"Total deductions", rec.TotalDeductions},
	}, money)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(120, 9, "Net pay", "T", 0, "L", false, 0, "")
	pdf.CellFormat(50, 9, money(rec.NetPay), "T", 1, "R", false, 0, "")

	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}

func section(pdf *gofpdf.Fpdf, title string, lines []stubLine, format func(decimal.Decimal) string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, title)
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	for _, line := range lines {
		pdf.CellFormat(120, 6, line.label, "", 0, "L", false, 0, "")
		pdf.CellFormat(50, 6, format(line.amount), "", 1, "R", false, 0, "")
	}
	pdf.Ln(4)
}
