// Package jobs defines the audit job model and the queue abstractions the
// worker builds on.
package jobs

import (
	"context"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeAudit represents a full audit-run job.
	JobTypeAudit JobType = "audit_run"
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

// AuditJob represents one queued audit run. Paths may be local files or
// gs:// URIs.
type AuditJob struct {
	JobID string `json:"job_id"`

	TransactionsPath string `json:"transactions_path"`
	EmailsPath       string `json:"emails_path"`

	// AuditRunID is filled in once the run is registered in BigQuery.
	AuditRunID string `json:"audit_run_id,omitempty"`

	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

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

func (j *AuditJob) GetID() string        { return j.JobID }
func (j *AuditJob) GetType() JobType     { return JobTypeAudit }
func (j *AuditJob) GetStatus() JobStatus { return j.Status }

// Publisher defines the interface for publishing jobs to a queue. The
// abstraction allows different queue backends (in-memory, Cloud Tasks,
// Pub/Sub).
type Publisher interface {
	PublishAudit(ctx context.Context, job *AuditJob) error
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs; the handler is called for each job.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes one job. A returned error marks the job failed and
// eligible for retry.
type JobHandler func(ctx context.Context, job Job) error

// JobStore tracks job state so it can be inspected across the worker's
// lifetime.
type JobStore interface {
	SaveJob(ctx context.Context, job *AuditJob) error
	GetJob(ctx context.Context, jobID string) (*AuditJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*AuditJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	Status JobStatus
	Limit  int
	Offset int
}
