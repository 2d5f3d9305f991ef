package ports

import (
	"context"
	"io"

	"github.com/kirillkom/knowledge-hub/internal/core/domain"
)

// IngestService is the inbound contract for uploads and status polling.
type IngestService interface {
	Submit(ctx context.Context, userID int64, docName string, file io.Reader) (*domain.IngestJob, error)
	Status(ctx context.Context, jobID string, userID int64) (*domain.IngestJob, error)
}

// JobRunner executes one ingest job to a terminal state.
type JobRunner interface {
	Run(ctx context.Context, jobID string) error
}

// QueryService answers one question against a user's document set.
type QueryService interface {
	Answer(ctx context.Context, userID int64, docName, query string) (*domain.Answer, error)
}
