package payroll

import "context"

type RecordStore interface {
	GetRecord(ctx context.Context, id string) (PayrollRecord, error)
	FindRecord(ctx context.Context, periodID, caregiverID string) (PayrollRecord, error)
	ListRecords(ctx context.Context, periodID string) ([]PayrollRecord, error)
	// SaveRecord inserts rec, or replaces the figures of the stored record for
	// the same period and caregiver when its status is one of overwritable.
	// The returned record is what is stored afterwards; saved is false when
	// the stored record was left untouched.
	SaveRecord(ctx context.Context, rec PayrollRecord, overwritable []string) (stored PayrollRecord, saved bool, err error)
	// UpdateStatus writes the lifecycle fields of rec only if the stored
	// status still equals from.
	UpdateStatus(ctx context.Context, rec PayrollRecord, from string) error
	NextCheckNumber(ctx context.Context) (int64, error)
}

type SettingsStore interface {
	LoadSettings(ctx context.Context) (PayrollSettings, bool, error)
	SaveSettings(ctx context.Context, settings PayrollSettings) error
}

type SourceStore interface {
	CreatePeriod(ctx context.Context, period Period) error
	GetPeriod(ctx context.Context, id string) (Period, error)
	ListPeriods(ctx context.Context) ([]Period, error)
	ListCaregivers(ctx context.Context) ([]Caregiver, error)
	ListCaregiverInputs(ctx context.Context, period Period) ([]CaregiverInput, error)
	SaveReconciliations(ctx context.Context, items []Reconciliation) error
}

type StoreAPI interface {
	RecordStore
	SettingsStore
	SourceStore
}
