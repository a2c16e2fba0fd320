package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rfogliato/statement-import/internal/jobs"
)

// Store is an in-memory JobStore. Safe for concurrent use; state is lost on
// restart.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*jobs.ExtractStatementJob
}

// NewStore creates a new in-memory job store.
func NewStore() *Store {
	return &Store{jobs: make(map[string]*jobs.ExtractStatementJob)}
}

// SaveJob implements jobs.JobStore.
func (s *Store) SaveJob(ctx context.Context, job *jobs.ExtractStatementJob) error {
	if job.JobID == "" {
		return fmt.Errorf("job ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	jobCopy := *job
	s.jobs[job.JobID] = &jobCopy
	return nil
}

// GetJob implements jobs.JobStore.
func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.ExtractStatementJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}

	jobCopy := *job
	return &jobCopy, nil
}

// ListJobs implements jobs.JobStore.
func (s *Store) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.ExtractStatementJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*jobs.ExtractStatementJob
	for _, job := range s.jobs {
		if filter.StatementID != "" && job.StatementID != filter.StatementID {
			continue
		}
		if filter.AccountID != "" && job.AccountID != filter.AccountID {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		jobCopy := *job
		result = append(result, &jobCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []*jobs.ExtractStatementJob{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

// UpdateJobStatus implements jobs.JobStore.
func (s *Store) UpdateJobStatus(ctx context.Context, jobID string, status jobs.JobStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	job.Status = status
	if errorMsg != "" {
		job.Error = errorMsg
	}
	return nil
}

var _ jobs.JobStore = (*Store)(nil)
