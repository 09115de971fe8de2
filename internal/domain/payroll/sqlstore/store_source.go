package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"carepay/internal/domain/payroll"
)

func (s *Store) CreatePeriod(ctx context.Context, period payroll.Period) error {
	_, err := s.DB.ExecContext(ctx, `
    INSERT INTO pay_periods (id, start_date, end_date, created_at)
    VALUES ($1,$2,$3,$4)
  `, period.ID, utc(period.StartDate), utc(period.EndDate), utc(period.CreatedAt))
	return err
}

func (s *Store) GetPeriod(ctx context.Context, id string) (payroll.Period, error) {
	var p payroll.Period
	err := s.DB.QueryRowContext(ctx, `
    SELECT id, start_date, end_date, created_at
    FROM pay_periods
    WHERE id = $1
  `, id).Scan(&p.ID, &p.StartDate, &p.EndDate, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return payroll.Period{}, payroll.ErrPeriodNotFound
	}
	if err != nil {
		return payroll.Period{}, err
	}
	return normalizePeriod(p), nil
}

func (s *Store) ListPeriods(ctx context.Context) ([]payroll.Period, error) {
	rows, err := s.DB.QueryContext(ctx, `
    SELECT id, start_date, end_date, created_at
    FROM pay_periods
    ORDER BY start_date, id
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var periods []payroll.Period
	for rows.Next() {
		var p payroll.Period
		if err := rows.Scan(&p.ID, &p.StartDate, &p.EndDate, &p.CreatedAt); err != nil {
			return nil, err
		}
		periods = append(periods, normalizePeriod(p))
	}
	return periods, rows.Err()
}

func normalizePeriod(p payroll.Period) payroll.Period {
	p.StartDate = p.StartDate.UTC()
	p.EndDate = p.EndDate.UTC()
	p.CreatedAt = p.CreatedAt.UTC()
	return p
}

// ListCaregiverInputs loads every active caregiver with the shifts, mileage
// and leave dated around the period. The window is a day wider on each side
// so that the calculation, which filters by calendar day, decides membership.
func (s *Store) ListCaregiverInputs(ctx context.Context, period payroll.Period) ([]payroll.CaregiverInput, error) {
	from := utc(period.StartDate).AddDate(0, 0, -1)
	to := utc(period.EndDate).AddDate(0, 0, 2)

	caregivers, err := s.listActiveCaregivers(ctx)
	if err != nil {
		return nil, err
	}
	index := make(map[string]int, len(caregivers))
	inputs := make([]payroll.CaregiverInput, len(caregivers))
	for i, c := range caregivers {
		index[c.ID] = i
		inputs[i].Caregiver = c
	}

	shifts, err := s.listShifts(ctx, from, to)
	if err != nil {
		return nil, err
	}
	for _, shift := range shifts {
		if i, ok := index[shift.CaregiverID]; ok {
			inputs[i].Shifts = append(inputs[i].Shifts, shift)
		}
	}

	mileage, err := s.listMileage(ctx, from, to)
	if err != nil {
		return nil, err
	}
	for _, entry := range mileage {
		if i, ok := index[entry.CaregiverID]; ok {
			inputs[i].Mileage = append(inputs[i].Mileage, entry)
		}
	}

	pto, err := s.listPTO(ctx, from, to)
	if err != nil {
		return nil, err
	}
	for _, entry := range pto {
		if i, ok := index[entry.CaregiverID]; ok {
			inputs[i].PTO = append(inputs[i].PTO, entry)
		}
	}
	return inputs, nil
}

func (s *Store) ListCaregivers(ctx context.Context) ([]payroll.Caregiver, error) {
	return s.queryCaregivers(ctx, `
    SELECT id, name, hourly_rate, active
    FROM caregivers
    ORDER BY id
  `)
}

func (s *Store) listActiveCaregivers(ctx context.Context) ([]payroll.Caregiver, error) {
	return s.queryCaregivers(ctx, `
    SELECT id, name, hourly_rate, active
    FROM caregivers
    WHERE active = TRUE
    ORDER BY id
  `)
}

func (s *Store) queryCaregivers(ctx context.Context, query string) ([]payroll.Caregiver, error) {
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []payroll.Caregiver
	for rows.Next() {
		var c payroll.Caregiver
		if err := rows.Scan(&c.ID, &c.Name, &c.HourlyRate, &c.Active); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) listShifts(ctx context.Context, from, to time.Time) ([]payroll.ShiftRecord, error) {
	rows, err := s.DB.QueryContext(ctx, `
    SELECT id, caregiver_id, client_id, scheduled_start, scheduled_end, allotted_minutes, clock_in, clock_out, is_weekend, is_night
    FROM shifts
    WHERE scheduled_start >= $1 AND scheduled_start < $2
    ORDER BY caregiver_id, scheduled_start, id
  `, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []payroll.ShiftRecord
	for rows.Next() {
		var shift payroll.ShiftRecord
		var clockIn, clockOut sql.NullTime
		if err := rows.Scan(&shift.ID, &shift.CaregiverID, &shift.ClientID, &shift.ScheduledStart, &shift.ScheduledEnd,
			&shift.AllottedMinutes, &clockIn, &clockOut, &shift.IsWeekend, &shift.IsNight); err != nil {
			return nil, err
		}
		shift.ScheduledStart = shift.ScheduledStart.UTC()
		shift.ScheduledEnd = shift.ScheduledEnd.UTC()
		shift.ClockIn = timePtr(clockIn)
		shift.ClockOut = timePtr(clockOut)
		out = append(out, shift)
	}
	return out, rows.Err()
}

func (s *Store) listMileage(ctx context.Context, from, to time.Time) ([]payroll.MileageEntry, error) {
	rows, err := s.DB.QueryContext(ctx, `
    SELECT id, caregiver_id, entry_date, miles, from_location, to_location
    FROM mileage_entries
    WHERE entry_date >= $1 AND entry_date < $2
    ORDER BY caregiver_id, entry_date, id
  `, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []payroll.MileageEntry
	for rows.Next() {
		var entry payroll.MileageEntry
		if err := rows.Scan(&entry.ID, &entry.CaregiverID, &entry.Date, &entry.Miles, &entry.FromLocation, &entry.ToLocation); err != nil {
			return nil, err
		}
		entry.Date = entry.Date.UTC()
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (s *Store) listPTO(ctx context.Context, from, to time.Time) ([]payroll.PTOEntry, error) {
	rows, err := s.DB.QueryContext(ctx, `
    SELECT id, caregiver_id, pto_type, start_date, end_date, hours
    FROM pto_entries
    WHERE start_date >= $1 AND start_date < $2
    ORDER BY caregiver_id, start_date, id
  `, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []payroll.PTOEntry
	for rows.Next() {
		var entry payroll.PTOEntry
		var ptoType string
		if err := rows.Scan(&entry.ID, &entry.CaregiverID, &ptoType, &entry.StartDate, &entry.EndDate, &entry.Hours); err != nil {
			return nil, err
		}
		entry.Type = payroll.PTOType(ptoType)
		entry.StartDate = entry.StartDate.UTC()
		entry.EndDate = entry.EndDate.UTC()
		out = append(out, entry)
	}
	return out, rows.Err()
}

// SaveReconciliations writes the computed billing fields back onto the shifts.
func (s *Store) SaveReconciliations(ctx context.Context, items []payroll.Reconciliation) error {
	if len(items) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, item := range items {
			if _, err := tx.ExecContext(ctx, `
        UPDATE shifts
        SET billable_minutes = $1, discrepancy_minutes = $2, flagged = $3, overage_cost = $4
        WHERE id = $5
      `, item.BillableMinutes, item.DiscrepancyMinutes, item.Flagged, item.OverageCost, item.ShiftID); err != nil {
				return err
			}
		}
		return nil
	})
}
