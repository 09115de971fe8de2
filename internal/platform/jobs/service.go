package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	JobPayrollRecompute = "payroll_recompute"
)

// Service runs background jobs one at a time and keeps a row per run in
// job_runs. DB may be nil, in which case runs are only logged.
type Service struct {
	DB    *sql.DB
	queue chan job
	wg    sync.WaitGroup
}

type job struct {
	Type string
	Run  func(context.Context) (any, error)
}

func New(db *sql.DB) *Service {
	return &Service{
		DB:    db,
		queue: make(chan job, 128),
	}
}

func (s *Service) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.worker(ctx)
	}()
}

// Wait blocks until the worker has returned after its context is cancelled.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) Enqueue(jobType string, run func(context.Context) (any, error)) bool {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
		return true
	default:
		slog.Warn("job queue full", "jobType", jobType)
		return false
	}
}

func (s *Service) RunNow(ctx context.Context, jobType string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Run: run})
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID := ""
	if s.DB != nil {
		id := uuid.NewString()
		if _, err := s.DB.ExecContext(ctx, `
      INSERT INTO job_runs (id, job_type, status, started_at)
      VALUES ($1,$2,$3,$4)
    `, id, j.Type, "running", time.Now().UTC()); err != nil {
			slog.Warn("job run insert failed", "err", err)
		} else {
			runID = id
		}
	}

	started := time.Now()
	details, err := j.Run(ctx)
	status := "completed"
	if err != nil {
		status = "failed"
	}
	slog.Info("job run finished", "jobType", j.Type, "status", status, "durationMs", time.Since(started).Milliseconds())

	detailsJSON, marshalErr := json.Marshal(details)
	if marshalErr != nil {
		slog.Warn("job details marshal failed", "err", marshalErr)
		detailsJSON = []byte("{}")
	}
	if runID != "" {
		if _, updErr := s.DB.ExecContext(ctx, `
      UPDATE job_runs
      SET status = $1, details_json = $2, completed_at = $3
      WHERE id = $4
    `, status, string(detailsJSON), time.Now().UTC(), runID); updErr != nil {
			slog.Warn("job run update failed", "err", updErr)
		}
	}
	return details, err
}

type Run struct {
	ID          string     `json:"id"`
	JobType     string     `json:"jobType"`
	Status      string     `json:"status"`
	Details     string     `json:"details,omitempty"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// ListRuns returns the most recent runs of jobType, newest first.
func (s *Service) ListRuns(ctx context.Context, jobType string, limit int) ([]Run, error) {
	if s.DB == nil {
		return nil, nil
	}
	rows, err := s.DB.QueryContext(ctx, `
    SELECT id, job_type, status, details_json, started_at, completed_at
    FROM job_runs
    WHERE job_type = $1
    ORDER BY started_at DESC
    LIMIT $2
  `, jobType, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var details sql.NullString
		var completedAt sql.NullTime
		if err := rows.Scan(&r.ID, &r.JobType, &r.Status, &details, &r.StartedAt, &completedAt); err != nil {
			return nil, err
		}
		r.Details = details.String
		if completedAt.Valid {
			t := completedAt.Time.UTC()
			r.CompletedAt = &t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
