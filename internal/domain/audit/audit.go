package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	ActionSettingsUpdate = "payroll.settings.update"
	ActionPeriodCreate   = "payroll.period.create"
	ActionPeriodRun      = "payroll.period.run"
	ActionRecompute      = "payroll.recompute"
	ActionApproveAll     = "payroll.period.approve_all"
	ActionProcessAll     = "payroll.period.process_all"
	ActionRecordApprove  = "payroll.record.approve"
	ActionRecordProcess  = "payroll.record.process"
	ActionRecordMarkPaid = "payroll.record.mark_paid"

	EntitySettings = "payroll_settings"
	EntityPeriod   = "pay_period"
	EntityRecord   = "payroll_record"
)

type Event struct {
	ID         string          `json:"id"`
	ActorID    string          `json:"actorId"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	RequestID  string          `json:"requestId"`
	IP         string          `json:"ip"`
	CreatedAt  time.Time       `json:"createdAt"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
}

type Filter struct {
	Action     string
	EntityType string
	EntityID   string
	ActorUser  string
}

type Service struct {
	DB  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *Service {
	return &Service{DB: db, now: time.Now}
}

func (s *Service) Record(ctx context.Context, actorID, action, entityType, entityID, requestID, ip string, before, after any) error {
	beforeJSON, err := marshalState(before)
	if err != nil {
		return err
	}
	afterJSON, err := marshalState(after)
	if err != nil {
		return err
	}

	_, err = s.DB.ExecContext(ctx, `
    INSERT INTO audit_events (id, actor_user_id, action, entity_type, entity_id, before_json, after_json, request_id, ip, created_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
  `, uuid.NewString(), actorID, action, entityType, entityID, beforeJSON, afterJSON, requestID, ip, s.now().UTC())
	return err
}

func marshalState(state any) (sql.NullString, error) {
	if state == nil {
		return sql.NullString{}, nil
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal audit state: %w", err)
	}
	return sql.NullString{String: string(payload), Valid: true}, nil
}

func (s *Service) Count(ctx context.Context, filter Filter) (int, error) {
	query, args := buildBaseQuery("SELECT COUNT(1)", filter)
	var total int
	if err := s.DB.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// List returns matching events newest first. Before and after states are
// only loaded when includeDetails is set.
func (s *Service) List(ctx context.Context, filter Filter, includeDetails bool, limit, offset int) ([]Event, error) {
	query, args := buildBaseQuery("SELECT id, actor_user_id, action, entity_type, entity_id, request_id, ip, created_at, before_json, after_json", filter)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var evt Event
		var before, after sql.NullString
		if err := rows.Scan(&evt.ID, &evt.ActorID, &evt.Action, &evt.EntityType, &evt.EntityID, &evt.RequestID, &evt.IP, &evt.CreatedAt, &before, &after); err != nil {
			return nil, err
		}
		evt.CreatedAt = evt.CreatedAt.UTC()
		if includeDetails {
			evt.Before = rawState(before)
			evt.After = rawState(after)
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}

func rawState(value sql.NullString) json.RawMessage {
	if !value.Valid || value.String == "" {
		return nil
	}
	return json.RawMessage(value.String)
}

func buildBaseQuery(prefix string, filter Filter) (string, []any) {
	query := prefix + " FROM audit_events WHERE 1 = 1"
	var args []any
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		query += fmt.Sprintf(" AND %s = $%d", column, len(args))
	}
	add("action", filter.Action)
	add("entity_type", filter.EntityType)
	add("entity_id", filter.EntityID)
	add("actor_user_id", filter.ActorUser)
	return query, args
}
