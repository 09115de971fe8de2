package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"carepay/internal/domain/payroll"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleRecords() []payroll.PayrollRecord {
	check := int64(1042)
	return []payroll.PayrollRecord{
		{
			CaregiverID: "cg-1", Status: payroll.StatusProcessed, CheckNumber: &check,
			TotalHours: d("45"), RegularHours: d("40"), OvertimeHours: d("5"), HourlyRate: d("20"),
			RegularPay: d("800"), OvertimePay: d("150"), TaxableWages: d("950"),
			MileageReimbursement: d("33.50"), GrossPay: d("983.50"),
			FederalTax: d("114"), StateTax: d("47.50"), SocialSecurity: d("58.90"), Medicare: d("13.78"),
			TotalDeductions: d("234.18"), NetPay: d("749.32"),
		},
		{
			CaregiverID: "cg-2", Status: payroll.StatusDraft,
			TotalHours: d("10"), RegularHours: d("10"), HourlyRate: d("18"),
			RegularPay: d("180"), TaxableWages: d("180"), GrossPay: d("180"),
			FederalTax: d("21.60"), StateTax: d("9"), SocialSecurity: d("11.16"), Medicare: d("2.61"),
			TotalDeductions: d("44.37"), NetPay: d("135.63"),
		},
	}
}

func samplePeriod() payroll.Period {
	return payroll.Period{
		ID:        "p-1",
		StartDate: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 3, 17, 0, 0, 0, 0, time.UTC),
	}
}

func TestWriteRegisterCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRegisterCSV(&buf, sampleRecords(), map[string]string{"cg-1": "Ada Lovelace"}))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, registerHeader, rows[0])

	first := rows[1]
	assert.Equal(t, "cg-1", first[0])
	assert.Equal(t, "Ada Lovelace", first[1])
	assert.Equal(t, "1042", first[3])
	assert.Equal(t, "749.32", first[25])
	assert.Equal(t, "", rows[2][1])
	assert.Equal(t, "", rows[2][3])
}

func TestJournalBalances(t *testing.T) {
	lines := Journal(sampleRecords())
	debits, credits := decimal.Zero, decimal.Zero
	for _, line := range lines {
		debits = debits.Add(line.Debit)
		credits = credits.Add(line.Credit)
	}
	assert.True(t, debits.Equal(credits), "debits %s credits %s", debits, credits)
	assert.True(t, debits.Equal(d("1163.50")))
}

func TestWriteJournalCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJournalCSV(&buf, sampleRecords()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 8)
	assert.Equal(t, []string{"Wages Expense", "1130.00", ""}, rows[1])
	assert.Equal(t, []string{"Payroll Cash", "", "884.95"}, rows[7])
}

func TestWriteRegisterXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRegisterXLSX(&buf, samplePeriod(), sampleRecords(), map[string]string{"cg-1": "Ada Lovelace"}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(registerSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Contains(t, rows[0][0], "2024-03-04")
	assert.Equal(t, "caregiver_id", rows[1][0])
	assert.Equal(t, "Ada Lovelace", rows[2][1])

	net, err := f.GetCellValue(registerSheet, "Z3", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "749.32", net)
}

func TestWritePayStub(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePayStub(&buf, samplePeriod(), sampleRecords()[0], "Ada Lovelace"))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}
