package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"carepay/internal/domain/payroll"
)

func (s *Store) LoadSettings(ctx context.Context) (payroll.PayrollSettings, bool, error) {
	var payload string
	err := s.DB.QueryRowContext(ctx, `SELECT settings_json FROM payroll_settings WHERE id = 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return payroll.PayrollSettings{}, false, nil
	}
	if err != nil {
		return payroll.PayrollSettings{}, false, err
	}
	var settings payroll.PayrollSettings
	if err := json.Unmarshal([]byte(payload), &settings); err != nil {
		return payroll.PayrollSettings{}, false, err
	}
	return settings, true, nil
}

func (s *Store) SaveSettings(ctx context.Context, settings payroll.PayrollSettings) error {
	payload, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx, `
    INSERT INTO payroll_settings (id, settings_json, updated_at)
    VALUES (1, $1, $2)
    ON CONFLICT (id) DO UPDATE SET settings_json = excluded.settings_json, updated_at = excluded.updated_at
  `, string(payload), time.Now().UTC())
	return err
}
