package ports

import (
	"context"
	"io"

	"github.com/kirillkom/knowledge-hub/internal/core/domain"
)

// TextExtractor turns an uploaded document into plain text. The declared
// name drives format dispatch (pdf, docx, xlsx, else plain text).
type TextExtractor interface {
	Extract(ctx context.Context, source io.Reader, docName string) (string, error)
}

// Embedder builds a fixed-dimension vector for one text. Empty input
// yields an empty vector without a provider call.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Chunker splits text into ordered bounded-size chunks.
type Chunker interface {
	Split(text string) []string
}

// CompletionModel is the single-shot LLM collaborator.
type CompletionModel interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// UploadStore keeps raw uploads until the ingest worker consumes them.
type UploadStore interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// JobRepository persists ingest job state.
type JobRepository interface {
	Create(ctx context.Context, job *domain.IngestJob) error
	GetByID(ctx context.Context, id string) (*domain.IngestJob, error)
	UpdateStatus(ctx context.Context, id string, status domain.JobStatus, errMessage string) error
}

// ChunkBatch collects the chunks of one document. Close releases the
// underlying session on every exit path; closing without Commit discards
// uncommitted work when the store runs in per-document transaction mode.
type ChunkBatch interface {
	Insert(ctx context.Context, chunk domain.DocumentChunk) error
	Commit(ctx context.Context) error
	Close() error
}

// ChunkStore is the retrieval-facing storage contract. Every read is
// scoped by user id; cross-user rows must never be returned.
type ChunkStore interface {
	BeginDocument(ctx context.Context, userID int64, docName string) (ChunkBatch, error)
	VectorSearch(ctx context.Context, userID int64, queryVec []float32, k int, docName string) ([]domain.RetrievalCandidate, error)
	KeywordSearch(ctx context.Context, userID int64, query string, k int, docName string) ([]domain.RetrievalCandidate, error)
	ChunksForDocument(ctx context.Context, userID int64, docName string) ([]domain.DocumentChunk, error)
	ListDocuments(ctx context.Context, userID int64) ([]string, error)
}

// UserRepository persists account records for the thin auth surface.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

// JobQueue hands submitted job ids to the worker side.
type JobQueue interface {
	Enqueue(ctx context.Context, jobID string) error
}

// JobConsumer delivers queued job ids to a handler until ctx is done.
type JobConsumer interface {
	Subscribe(ctx context.Context, handler func(context.Context, string) error) error
}
