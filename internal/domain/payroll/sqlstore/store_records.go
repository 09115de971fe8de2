package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"carepay/internal/domain/payroll"
)

var recordColumns = []string{
	"id", "period_id", "caregiver_id",
	"total_hours", "regular_hours", "overtime_hours", "weekend_hours", "night_hours",
	"pto_hours", "unpaid_leave_hours", "total_miles", "hourly_rate",
	"regular_pay", "overtime_pay", "mileage_reimbursement", "weekend_pay", "night_pay", "pto_pay",
	"taxable_wages", "gross_pay",
	"federal_tax", "state_tax", "social_security", "medicare", "total_deductions", "net_pay",
	"flagged_shifts", "incomplete_shifts", "overage_cost",
	"status", "check_number", "calculated_at", "approved_at", "processed_at", "paid_at",
}

// recalculated lists the figure columns a recalculation replaces. The
// lifecycle columns are reset rather than copied.
var recalculated = recordColumns[3:29]

var selectRecord = "SELECT " + strings.Join(recordColumns, ", ") + " FROM payroll_records"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (payroll.PayrollRecord, error) {
	var rec payroll.PayrollRecord
	var checkNumber sql.NullInt64
	var approvedAt, processedAt, paidAt sql.NullTime
	err := row.Scan(
		&rec.ID, &rec.PeriodID, &rec.CaregiverID,
		&rec.TotalHours, &rec.RegularHours, &rec.OvertimeHours, &rec.WeekendHours, &rec.NightHours,
		&rec.PTOHours, &rec.UnpaidLeaveHours, &rec.TotalMiles, &rec.HourlyRate,
		&rec.RegularPay, &rec.OvertimePay, &rec.MileageReimbursement, &rec.WeekendPay, &rec.NightPay, &rec.PTOPay,
		&rec.TaxableWages, &rec.GrossPay,
		&rec.FederalTax, &rec.StateTax, &rec.SocialSecurity, &rec.Medicare, &rec.TotalDeductions, &rec.NetPay,
		&rec.FlaggedShifts, &rec.IncompleteShifts, &rec.OverageCost,
		&rec.Status, &checkNumber, &rec.CalculatedAt, &approvedAt, &processedAt, &paidAt,
	)
	if err != nil {
		return payroll.PayrollRecord{}, err
	}
	if checkNumber.Valid {
		number := checkNumber.Int64
		rec.CheckNumber = &number
	}
	rec.CalculatedAt = rec.CalculatedAt.UTC()
	rec.ApprovedAt = timePtr(approvedAt)
	rec.ProcessedAt = timePtr(processedAt)
	rec.PaidAt = timePtr(paidAt)
	return rec, nil
}

func recordArgs(rec payroll.PayrollRecord) []any {
	var checkNumber any
	if rec.CheckNumber != nil {
		checkNumber = *rec.CheckNumber
	}
	return []any{
		rec.ID, rec.PeriodID, rec.CaregiverID,
		rec.TotalHours, rec.RegularHours, rec.OvertimeHours, rec.WeekendHours, rec.NightHours,
		rec.PTOHours, rec.UnpaidLeaveHours, rec.TotalMiles, rec.HourlyRate,
		rec.RegularPay, rec.OvertimePay, rec.MileageReimbursement, rec.WeekendPay, rec.NightPay, rec.PTOPay,
		rec.TaxableWages, rec.GrossPay,
		rec.FederalTax, rec.StateTax, rec.SocialSecurity, rec.Medicare, rec.TotalDeductions, rec.NetPay,
		rec.FlaggedShifts, rec.IncompleteShifts, rec.OverageCost,
		rec.Status, checkNumber, utc(rec.CalculatedAt), nullableTime(rec.ApprovedAt), nullableTime(rec.ProcessedAt), nullableTime(rec.PaidAt),
	}
}

func (s *Store) GetRecord(ctx context.Context, id string) (payroll.PayrollRecord, error) {
	rec, err := scanRecord(s.DB.QueryRowContext(ctx, selectRecord+" WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return payroll.PayrollRecord{}, payroll.ErrRecordNotFound
	}
	return rec, err
}

func (s *Store) FindRecord(ctx context.Context, periodID, caregiverID string) (payroll.PayrollRecord, error) {
	rec, err := scanRecord(s.DB.QueryRowContext(ctx, selectRecord+" WHERE period_id = $1 AND caregiver_id = $2", periodID, caregiverID))
	if errors.Is(err, sql.ErrNoRows) {
		return payroll.PayrollRecord{}, payroll.ErrRecordNotFound
	}
	return rec, err
}

func (s *Store) ListRecords(ctx context.Context, periodID string) ([]payroll.PayrollRecord, error) {
	rows, err := s.DB.QueryContext(ctx, selectRecord+" WHERE period_id = $1 ORDER BY caregiver_id", periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []payroll.PayrollRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SaveRecord is a single upsert whose update branch only fires while the
// stored status is one of overwritable, so a concurrent approve or process
// can never be overwritten by a recalculation.
func (s *Store) SaveRecord(ctx context.Context, rec payroll.PayrollRecord, overwritable []string) (payroll.PayrollRecord, bool, error) {
	if len(overwritable) == 0 {
		overwritable = []string{payroll.StatusDraft}
	}

	sets := make([]string, 0, len(recalculated)+6)
	for _, column := range recalculated {
		sets = append(sets, column+" = excluded."+column)
	}
	sets = append(sets,
		"status = excluded.status",
		"check_number = NULL",
		"calculated_at = excluded.calculated_at",
		"approved_at = NULL",
		"processed_at = NULL",
		"paid_at = NULL",
	)

	args := recordArgs(rec)
	query := fmt.Sprintf(`
    INSERT INTO payroll_records (%s)
    VALUES (%s)
    ON CONFLICT (period_id, caregiver_id) DO UPDATE SET %s
    WHERE payroll_records.status IN (%s)
  `, strings.Join(recordColumns, ", "), placeholders(1, len(args)), strings.Join(sets, ", "), placeholders(len(args)+1, len(overwritable)))
	for _, status := range overwritable {
		args = append(args, status)
	}

	res, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return payroll.PayrollRecord{}, false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return payroll.PayrollRecord{}, false, err
	}
	stored, err := s.FindRecord(ctx, rec.PeriodID, rec.CaregiverID)
	if err != nil {
		return payroll.PayrollRecord{}, false, err
	}
	return stored, affected > 0, nil
}

func (s *Store) UpdateStatus(ctx context.Context, rec payroll.PayrollRecord, from string) error {
	var checkNumber any
	if rec.CheckNumber != nil {
		checkNumber = *rec.CheckNumber
	}
	res, err := s.DB.ExecContext(ctx, `
    UPDATE payroll_records
    SET status = $1, check_number = $2, approved_at = $3, processed_at = $4, paid_at = $5
    WHERE id = $6 AND status = $7
  `, rec.Status, checkNumber, nullableTime(rec.ApprovedAt), nullableTime(rec.ProcessedAt), nullableTime(rec.PaidAt), rec.ID, from)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	current, err := s.GetRecord(ctx, rec.ID)
	if err != nil {
		return err
	}
	return &payroll.InvalidTransitionError{RecordID: rec.ID, From: current.Status, Action: payroll.ActionTo(rec.Status)}
}

func (s *Store) NextCheckNumber(ctx context.Context) (int64, error) {
	var number int64
	err := s.DB.QueryRowContext(ctx, `
    UPDATE check_sequence
    SET next_value = next_value + 1
    WHERE id = 1
    RETURNING next_value - 1
  `).Scan(&number)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, errors.New("check sequence is not initialised")
	}
	return number, err
}
