package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"carepay/internal/domain/payroll"
)

type JournalLine struct {
	Account string
	Debit   decimal.Decimal
	Credit  decimal.Decimal
}

// Journal summarizes a period as balanced ledger lines. Wages and mileage
// are debited; withholdings and the net cash paid out are credited. Mileage
// reaches the caregiver through net pay, so debits equal credits.
func Journal(records []payroll.PayrollRecord) []JournalLine {
	var wages, mileage, federal, state, ss, medicare, net decimal.Decimal
	for _, rec := range records {
		wages = wages.Add(rec.TaxableWages)
		mileage = mileage.Add(rec.MileageReimbursement)
		federal = federal.Add(rec.FederalTax)
		state = state.Add(rec.StateTax)
		ss = ss.Add(rec.SocialSecurity)
		medicare = medicare.Add(rec.Medicare)
		net = net.Add(rec.NetPay)
	}
	return []JournalLine{
		{Account: "Wages Expense", Debit: wages},
		{Account: "Mileage Reimbursement Expense", Debit: mileage},
		{Account: "Federal Income Tax Payable", Credit: federal},
		{Account: "State Income Tax Payable", Credit: state},
		{Account: "Social Security Payable", Credit: ss},
		{Account: "Medicare Payable", Credit: medicare},
		{Account: "Payroll Cash", Credit: net},
	}
}

func WriteJournalCSV(w io.Writer, records []payroll.PayrollRecord) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"account", "debit", "credit"}); err != nil {
		return fmt.Errorf("write journal header: %w", err)
	}
	for _, line := range Journal(records) {
		debit, credit := "", ""
		if !line.Debit.IsZero() {
			debit = money(line.Debit)
		}
		if !line.Credit.IsZero() {
			credit = money(line.Credit)
		}
		if err := writer.Write([]string{line.Account, debit, credit}); err != nil {
			return fmt.Errorf("write journal row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}
