package payroll

import (
	"errors"
	"fmt"
)

var (
	ErrPeriodNotFound    = errors.New("payroll period not found")
	ErrRecordNotFound    = errors.New("payroll record not found")
	ErrIncompleteShift   = errors.New("shift is missing clock-in or clock-out")
	ErrInvalidSettings   = errors.New("invalid payroll settings")
	ErrInvalidTransition = errors.New("invalid payroll status transition")
	ErrInvalidPeriod     = errors.New("period end date is before start date")
	ErrUnknownPTOType    = errors.New("unknown pto type")
)

// IncompleteShiftError marks a shift that cannot be reconciled. Such shifts
// are left out of the period totals and reported next to the batch.
type IncompleteShiftError struct {
	ShiftID     string
	CaregiverID string
	Reason      string
}

func (e *IncompleteShiftError) Error() string {
	return fmt.Sprintf("shift %s for caregiver %s is incomplete: %s", e.ShiftID, e.CaregiverID, e.Reason)
}

func (e *IncompleteShiftError) Unwrap() error {
	return ErrIncompleteShift
}

type InvalidSettingsError struct {
	Field  string
	Reason string
}

func (e *InvalidSettingsError) Error() string {
	return fmt.Sprintf("invalid payroll settings: %s %s", e.Field, e.Reason)
}

func (e *InvalidSettingsError) Unwrap() error {
	return ErrInvalidSettings
}

type InvalidTransitionError struct {
	RecordID string
	From     string
	Action   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s payroll record %s in status %q", e.Action, e.RecordID, e.From)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidSettings) || errors.Is(err, ErrInvalidTransition)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound) || errors.Is(err, ErrPeriodNotFound)
}
