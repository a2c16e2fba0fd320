package inmemory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rfogliato/statement-import/internal/jobs"
)

func newJob(statementID string) *jobs.ExtractStatementJob {
	return &jobs.ExtractStatementJob{
		StatementID: statementID,
		AccountID:   "acc-1",
		GCSURI:      "gs://bucket/statements/" + statementID + ".pdf",
	}
}

func TestQueue_PublishFillsDefaults(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store)
	defer q.Close()

	job := newJob("st-1")
	require.NoError(t, q.PublishExtractStatement(context.Background(), job))

	assert.NotEmpty(t, job.JobID)
	assert.Equal(t, jobs.JobStatusPending, job.Status)
	assert.False(t, job.CreatedAt.IsZero())
	assert.Equal(t, 3, job.MaxRetries)

	saved, err := store.GetJob(context.Background(), job.JobID)
	require.NoError(t, err)
	assert.Equal(t, "st-1", saved.StatementID)
}

func TestQueue_ProcessesJobs(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store)
	defer q.Close()

	var (
		mu        sync.Mutex
		processed []string
	)
	done := make(chan struct{}, 2)

	handler := func(ctx context.Context, job jobs.Job) error {
		extractJob := job.(*jobs.ExtractStatementJob)
		mu.Lock()
		processed = append(processed, extractJob.StatementID)
		mu.Unlock()
		done <- struct{}{}
		return nil
	}

	ctx := context.Background()
	require.NoError(t, q.Start(ctx, handler))

	require.NoError(t, q.PublishExtractStatement(ctx, newJob("st-1")))
	require.NoError(t, q.PublishExtractStatement(ctx, newJob("st-2")))

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for jobs")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"st-1", "st-2"}, processed)
}

func TestQueue_MarksJobCompleted(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store)
	defer q.Close()

	done := make(chan string, 1)
	handler := func(ctx context.Context, job jobs.Job) error {
		done <- job.GetID()
		return nil
	}

	ctx := context.Background()
	require.NoError(t, q.Start(ctx, handler))
	require.NoError(t, q.PublishExtractStatement(ctx, newJob("st-1")))

	var jobID string
	select {
	case jobID = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for job")
	}

	// The status write races the handler return by a hair; poll briefly.
	require.Eventually(t, func() bool {
		saved, err := store.GetJob(ctx, jobID)
		return err == nil && saved.Status == jobs.JobStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
}

func TestQueue_RetriesFailedJobs(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store)
	defer q.Close()

	var (
		mu       sync.Mutex
		attempts int
	)
	succeeded := make(chan struct{}, 1)

	handler := func(ctx context.Context, job jobs.Job) error {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		if n < 2 {
			return errors.New("transient failure")
		}
		succeeded <- struct{}{}
		return nil
	}

	ctx := context.Background()
	require.NoError(t, q.Start(ctx, handler))
	require.NoError(t, q.PublishExtractStatement(ctx, newJob("st-1")))

	select {
	case <-succeeded:
	case <-time.After(5 * time.Second):
		t.Fatal("job was not retried to success")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, attempts)
}

func TestQueue_PublishAfterCloseFails(t *testing.T) {
	q := NewQueue(10, NewStore())
	require.NoError(t, q.Close())

	err := q.PublishExtractStatement(context.Background(), newJob("st-1"))
	assert.Error(t, err)
}

func TestStore_ListJobsFilters(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	seed := []*jobs.ExtractStatementJob{
		{JobID: "j1", StatementID: "st-1", AccountID: "acc-1", Status: jobs.JobStatusCompleted, CreatedAt: base},
		{JobID: "j2", StatementID: "st-2", AccountID: "acc-1", Status: jobs.JobStatusPending, CreatedAt: base.Add(time.Minute)},
		{JobID: "j3", StatementID: "st-3", AccountID: "acc-2", Status: jobs.JobStatusPending, CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, j := range seed {
		require.NoError(t, store.SaveJob(ctx, j))
	}

	byAccount, err := store.ListJobs(ctx, jobs.JobFilter{AccountID: "acc-1"})
	require.NoError(t, err)
	require.Len(t, byAccount, 2)
	assert.Equal(t, "j1", byAccount[0].JobID) // sorted by creation time

	byStatus, err := store.ListJobs(ctx, jobs.JobFilter{Status: jobs.JobStatusPending})
	require.NoError(t, err)
	assert.Len(t, byStatus, 2)

	byStatement, err := store.ListJobs(ctx, jobs.JobFilter{StatementID: "st-3"})
	require.NoError(t, err)
	require.Len(t, byStatement, 1)
	assert.Equal(t, "j3", byStatement[0].JobID)

	paged, err := store.ListJobs(ctx, jobs.JobFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, "j2", paged[0].JobID)
}

func TestStore_GetJobReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	require.NoError(t, store.SaveJob(ctx, &jobs.ExtractStatementJob{JobID: "j1", Status: jobs.JobStatusPending}))

	got, err := store.GetJob(ctx, "j1")
	require.NoError(t, err)
	got.Status = jobs.JobStatusFailed

	again, err := store.GetJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusPending, again.Status)
}

func TestStore_UpdateJobStatus(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	require.NoError(t, store.SaveJob(ctx, &jobs.ExtractStatementJob{JobID: "j1", Status: jobs.JobStatusRunning}))

	require.NoError(t, store.UpdateJobStatus(ctx, "j1", jobs.JobStatusFailed, "boom"))
	got, err := store.GetJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusFailed, got.Status)
	assert.Equal(t, "boom", got.Error)

	assert.Error(t, store.UpdateJobStatus(ctx, "missing", jobs.JobStatusFailed, ""))
}
