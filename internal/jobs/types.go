package jobs

import (
	"context"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeExtractStatement is a PDF statement extraction job.
	JobTypeExtractStatement JobType = "extract_statement"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// ExtractStatementJob asks a worker to pull a statement document from GCS and
// run it through the extraction import path for one account.
type ExtractStatementJob struct {
	JobID string `json:"job_id"`

	// StatementID identifies the uploaded statement record.
	StatementID string `json:"statement_id"`

	// AccountID scopes dedup and the reconciliation queue.
	AccountID string `json:"account_id"`

	// GCSURI locates the document bytes.
	GCSURI string `json:"gcs_uri"`

	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains failure details for the last attempt.
	Error string `json:"error,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`
}

// Job is a generic interface for all job types.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

func (j *ExtractStatementJob) GetID() string        { return j.JobID }
func (j *ExtractStatementJob) GetType() JobType     { return JobTypeExtractStatement }
func (j *ExtractStatementJob) GetStatus() JobStatus { return j.Status }

// Publisher publishes jobs to a queue. The abstraction keeps Cloud Tasks or
// Pub/Sub swappable for the in-memory implementation.
type Publisher interface {
	PublishExtractStatement(ctx context.Context, job *ExtractStatementJob) error
	Close() error
}

// Consumer consumes jobs from a queue.
type Consumer interface {
	// Start begins consuming; handler is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes one job. A returned error marks the attempt failed
// and eligible for retry.
type JobHandler func(ctx context.Context, job Job) error

// JobStore persists job state so execution is observable across the API.
type JobStore interface {
	SaveJob(ctx context.Context, job *ExtractStatementJob) error
	GetJob(ctx context.Context, jobID string) (*ExtractStatementJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*ExtractStatementJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	StatementID string
	AccountID   string
	Status      JobStatus
	Limit       int
	Offset      int
}
