package payroll

import (
	"context"
	"time"
)

// CheckNumberer hands out check numbers when a record is processed.
type CheckNumberer interface {
	NextCheckNumber(ctx context.Context) (int64, error)
}

type transition struct {
	from string
	to   string
}

var transitions = map[string]transition{
	ActionApprove:  {from: StatusDraft, to: StatusApproved},
	ActionProcess:  {from: StatusApproved, to: StatusProcessed},
	ActionMarkPaid: {from: StatusProcessed, to: StatusPaid},
}

// NextStatus returns the status a record moves to under action, or an
// InvalidTransitionError when the record's current status does not allow it.
func NextStatus(rec PayrollRecord, action string) (string, error) {
	t, ok := transitions[action]
	if !ok || rec.Status != t.from {
		return "", &InvalidTransitionError{RecordID: rec.ID, From: rec.Status, Action: action}
	}
	return t.to, nil
}

// Apply returns a copy of rec moved through action. rec itself is left as is,
// including when the transition is rejected.
func Apply(rec PayrollRecord, action string, at time.Time, checkNumber *int64) (PayrollRecord, error) {
	next, err := NextStatus(rec, action)
	if err != nil {
		return rec, err
	}
	out := rec
	out.Status = next
	stamp := at.UTC()
	switch action {
	case ActionApprove:
		out.ApprovedAt = &stamp
	case ActionProcess:
		if checkNumber == nil {
			return rec, &InvalidTransitionError{RecordID: rec.ID, From: rec.Status, Action: action}
		}
		number := *checkNumber
		out.CheckNumber = &number
		out.ProcessedAt = &stamp
	case ActionMarkPaid:
		out.PaidAt = &stamp
	}
	return out, nil
}

// CanOverwrite reports whether a recalculation may replace the stored figures
// of rec. Only drafts may be replaced; force additionally reopens approved
// records. Processed and paid records are frozen.
func CanOverwrite(status string, force bool) bool {
	switch status {
	case StatusDraft:
		return true
	case StatusApproved:
		return force
	case StatusProcessed, StatusPaid:
		return false
	default:
		return false
	}
}

// OverwritableStatuses lists the statuses CanOverwrite accepts.
func OverwritableStatuses(force bool) []string {
	var out []string
	for _, status := range []string{StatusDraft, StatusApproved, StatusProcessed, StatusPaid} {
		if CanOverwrite(status, force) {
			out = append(out, status)
		}
	}
	return out
}

// ActionTo names the action that moves a record into status, or "" when no
// action does.
func ActionTo(status string) string {
	for action, t := range transitions {
		if t.to == status {
			return action
		}
	}
	return ""
}
