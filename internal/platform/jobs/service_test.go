package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carepay/internal/platform/db"
)

func newJobs(t *testing.T) *Service {
	t.Helper()
	sqlDB, err := db.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.Migrate(context.Background(), sqlDB))
	return New(sqlDB)
}

func TestRunNowRecordsRun(t *testing.T) {
	svc := newJobs(t)
	ctx := context.Background()

	details, err := svc.RunNow(ctx, JobPayrollRecompute, func(context.Context) (any, error) {
		return map[string]int{"periods": 2}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"periods": 2}, details)

	_, err = svc.RunNow(ctx, JobPayrollRecompute, func(context.Context) (any, error) {
		return nil, errors.New("boom")
	})
	require.Error(t, err)

	runs, err := svc.ListRuns(ctx, JobPayrollRecompute, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	statuses := []string{runs[0].Status, runs[1].Status}
	assert.ElementsMatch(t, []string{"completed", "failed"}, statuses)
	for _, run := range runs {
		assert.NotNil(t, run.CompletedAt)
	}
}

func TestWorkerRunsQueuedJobs(t *testing.T) {
	svc := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	svc.Start(ctx)

	done := make(chan struct{})
	require.True(t, svc.Enqueue(JobPayrollRecompute, func(context.Context) (any, error) {
		close(done)
		return nil, nil
	}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("queued job did not run")
	}
	cancel()
	svc.Wait()
}
