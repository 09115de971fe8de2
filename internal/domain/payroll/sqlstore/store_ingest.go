package sqlstore

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"carepay/internal/domain/payroll"
)

// The writers below load the source feeds. Upstream scheduling and EVV
// systems own this data; the payroll engine only reads it.

func (s *Store) UpsertCaregiver(ctx context.Context, c payroll.Caregiver) error {
	_, err := s.DB.ExecContext(ctx, `
    INSERT INTO caregivers (id, name, hourly_rate, active)
    VALUES ($1,$2,$3,$4)
    ON CONFLICT (id) DO UPDATE SET name = excluded.name, hourly_rate = excluded.hourly_rate, active = excluded.active
  `, c.ID, c.Name, c.HourlyRate, c.Active)
	return err
}

func (s *Store) InsertShift(ctx context.Context, shift payroll.ShiftRecord) error {
	_, err := s.DB.ExecContext(ctx, `
    INSERT INTO shifts (id, caregiver_id, client_id, scheduled_start, scheduled_end, allotted_minutes, clock_in, clock_out, is_weekend, is_night)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
  `, shift.ID, shift.CaregiverID, shift.ClientID, utc(shift.ScheduledStart), utc(shift.ScheduledEnd), shift.AllottedMinutes,
		nullableTime(shift.ClockIn), nullableTime(shift.ClockOut), shift.IsWeekend, shift.IsNight)
	return err
}

func (s *Store) InsertMileage(ctx context.Context, entry payroll.MileageEntry) error {
	_, err := s.DB.ExecContext(ctx, `
    INSERT INTO mileage_entries (id, caregiver_id, entry_date, miles, from_location, to_location)
    VALUES ($1,$2,$3,$4,$5,$6)
  `, entry.ID, entry.CaregiverID, utc(entry.Date), entry.Miles, entry.FromLocation, entry.ToLocation)
	return err
}

func (s *Store) InsertPTO(ctx context.Context, entry payroll.PTOEntry) error {
	_, err := s.DB.ExecContext(ctx, `
    INSERT INTO pto_entries (id, caregiver_id, pto_type, start_date, end_date, hours)
    VALUES ($1,$2,$3,$4,$5,$6)
  `, entry.ID, entry.CaregiverID, string(entry.Type), utc(entry.StartDate), utc(entry.EndDate), entry.Hours)
	return err
}

type ShiftBilling struct {
	BillableMinutes    int
	DiscrepancyMinutes int
	Flagged            bool
	OverageCost        decimal.Decimal
}

// ShiftBilling returns the billing fields written back onto a shift. ok is
// false while the shift has not been reconciled.
func (s *Store) ShiftBilling(ctx context.Context, shiftID string) (ShiftBilling, bool, error) {
	var billable, discrepancy sql.NullInt64
	var flagged sql.NullBool
	var overage decimal.NullDecimal
	err := s.DB.QueryRowContext(ctx, `
    SELECT billable_minutes, discrepancy_minutes, flagged, overage_cost
    FROM shifts
    WHERE id = $1
  `, shiftID).Scan(&billable, &discrepancy, &flagged, &overage)
	if err != nil {
		return ShiftBilling{}, false, err
	}
	if !billable.Valid {
		return ShiftBilling{}, false, nil
	}
	return ShiftBilling{
		BillableMinutes:    int(billable.Int64),
		DiscrepancyMinutes: int(discrepancy.Int64),
		Flagged:            flagged.Bool,
		OverageCost:        overage.Decimal,
	}, true, nil
}
