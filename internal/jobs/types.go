package jobs

import (
	"context"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeForwardDeposit represents a downstream deposit forwarding job.
	JobTypeForwardDeposit JobType = "forward_deposit"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

// ForwardDepositJob represents one downstream deposit forward for a recorded
// check. The idempotency key derived from CheckID makes re-execution safe.
type ForwardDepositJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// CheckID is the canonical identity of the check being forwarded.
	CheckID string `json:"check_id"`

	// AccountID is the destination internal account.
	AccountID string `json:"account_id"`

	// AmountCents is the canonical deposit amount in minor units.
	AmountCents int64 `json:"amount_cents"`

	// RecordID is the approved ledger record this forward belongs to.
	RecordID string `json:"record_id,omitempty"`

	// DepositID is the downstream identifier returned on success.
	DepositID string `json:"deposit_id,omitempty"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	// CreatedAt is when the job was created.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt is when the job started processing.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when the job completed (success or failure).
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	// RetryCount is the number of times this job has been retried.
	RetryCount int `json:"retry_count"`

	// MaxRetries is the maximum number of retries allowed. Zero means the
	// forward is attempted exactly once; retrying is the caller's concern.
	MaxRetries int `json:"max_retries"`
}

// Job is a generic interface for all job types.
type Job interface {
	// GetID returns the unique job identifier.
	GetID() string

	// GetType returns the job type.
	GetType() JobType

	// GetStatus returns the current job status.
	GetStatus() JobStatus
}

// GetID implements the Job interface.
func (j *ForwardDepositJob) GetID() string {
	return j.JobID
}

// GetType implements the Job interface.
func (j *ForwardDepositJob) GetType() JobType {
	return JobTypeForwardDeposit
}

// GetStatus implements the Job interface.
func (j *ForwardDepositJob) GetStatus() JobStatus {
	return j.Status
}

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	// PublishForwardDeposit publishes a deposit forwarding job.
	PublishForwardDeposit(ctx context.Context, job *ForwardDepositJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler is a function that processes a job.
// It should return an error if the job failed.
type JobHandler func(ctx context.Context, job Job) error

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *ForwardDepositJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*ForwardDepositJob, error)

	// ListJobs retrieves jobs with optional filtering.
	ListJobs(ctx context.Context, filter JobFilter) ([]*ForwardDepositJob, error)

	// UpdateJobStatus updates the status of a job.
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// CheckID filters jobs by check identity.
	CheckID string

	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
