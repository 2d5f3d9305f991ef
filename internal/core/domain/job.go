package domain

import "time"

type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// IngestJob tracks one asynchronous document ingestion from upload to a
// terminal state. Only the worker executing the job mutates it.
type IngestJob struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	DocName   string    `json:"doc_name"`
	FileRef   string    `json:"file_ref"`
	Status    JobStatus `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Terminal reports whether the status permits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// CanTransition enforces the one-directional lifecycle
// pending -> processing -> {completed, failed}.
func (s JobStatus) CanTransition(to JobStatus) bool {
	switch s {
	case JobPending:
		return to == JobProcessing
	case JobProcessing:
		return to == JobCompleted || to == JobFailed
	default:
		return false
	}
}
