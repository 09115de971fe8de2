package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"carepay/internal/domain/payroll"
)

// Seed stores initial payroll settings and the first check number. Values
// that already exist are kept, so restarts never reset an edited
// configuration or reuse check numbers.
func Seed(ctx context.Context, sqlDB *sql.DB, settings payroll.PayrollSettings, checkNumberStart int64) error {
	payload, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	if _, err := sqlDB.ExecContext(ctx, `
    INSERT INTO payroll_settings (id, settings_json, updated_at)
    VALUES (1, $1, $2)
    ON CONFLICT (id) DO NOTHING
  `, string(payload), time.Now().UTC()); err != nil {
		return err
	}
	_, err = sqlDB.ExecContext(ctx, `
    INSERT INTO check_sequence (id, next_value)
    VALUES (1, $1)
    ON CONFLICT (id) DO NOTHING
  `, checkNumberStart)
	return err
}
