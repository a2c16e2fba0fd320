package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rfogliato/statement-import/internal/jobs"
)

// defaultWorkerCount is how many jobs one consumer processes concurrently.
// Extraction calls are slow and network-bound; a small pool is plenty, and
// independent imports stay parallelizable without shared state.
const defaultWorkerCount = 4

// Queue is an in-memory publisher/consumer over a Go channel. Suitable for
// single-instance deployments and tests; production multi-instance setups
// would swap in Cloud Tasks or Pub/Sub behind the same interfaces.
type Queue struct {
	jobChan   chan *jobs.ExtractStatementJob
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	store     jobs.JobStore
	workers   int
	closed    bool
}

// NewQueue creates an in-memory job queue. bufferSize bounds how many jobs
// can wait before PublishExtractStatement blocks.
func NewQueue(bufferSize int, store jobs.JobStore) *Queue {
	return &Queue{
		jobChan:   make(chan *jobs.ExtractStatementJob, bufferSize),
		closeChan: make(chan struct{}),
		store:     store,
		workers:   defaultWorkerCount,
	}
}

// PublishExtractStatement implements jobs.Publisher.
func (q *Queue) PublishExtractStatement(ctx context.Context, job *jobs.ExtractStatementJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return fmt.Errorf("queue is closed")
	}

	if job.JobID == "" {
		job.JobID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = jobs.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = 3
	}

	if q.store != nil {
		if err := q.store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("saving job: %w", err)
		}
	}

	select {
	case q.jobChan <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closeChan:
		return fmt.Errorf("queue is closed")
	}
}

// Start implements jobs.Consumer.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return fmt.Errorf("queue is closed")
	}
	q.mu.RUnlock()

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}
	return nil
}

func (q *Queue) worker(ctx context.Context, handler jobs.JobHandler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case job := <-q.jobChan:
			if job == nil {
				return
			}
			q.processJob(ctx, job, handler)
		}
	}
}

// processJob executes one job with retry and exponential backoff.
func (q *Queue) processJob(ctx context.Context, job *jobs.ExtractStatementJob, handler jobs.JobHandler) {
	job.Status = jobs.JobStatusRunning
	now := time.Now()
	job.StartedAt = &now

	if q.store != nil {
		_ = q.store.SaveJob(ctx, job)
	}

	err := handler(ctx, job)

	completedAt := time.Now()
	job.CompletedAt = &completedAt

	if err != nil {
		job.Error = err.Error()

		if job.RetryCount < job.MaxRetries {
			job.RetryCount++
			job.Status = jobs.JobStatusRetrying

			backoff := time.Duration(job.RetryCount) * time.Second
			time.AfterFunc(backoff, func() {
				job.Status = jobs.JobStatusPending
				job.StartedAt = nil
				job.CompletedAt = nil
				_ = q.PublishExtractStatement(ctx, job)
			})
		} else {
			job.Status = jobs.JobStatusFailed
		}
	} else {
		job.Status = jobs.JobStatusCompleted
		job.Error = ""
	}

	if q.store != nil {
		_ = q.store.SaveJob(ctx, job)
	}
}

// Stop implements jobs.Consumer. It waits for in-flight jobs to finish or
// the shutdown context to expire.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements jobs.Publisher.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

var _ jobs.Publisher = (*Queue)(nil)
var _ jobs.Consumer = (*Queue)(nil)
