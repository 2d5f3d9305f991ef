package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/knowledge-hub/internal/core/domain"
	"github.com/kirillkom/knowledge-hub/internal/core/ports"
)

// SubmitIngestUseCase creates pending jobs for uploads and serves
// ownership-checked status reads. Execution happens elsewhere: Submit
// only persists the upload, records the job, and enqueues its id.
type SubmitIngestUseCase struct {
	jobs    ports.JobRepository
	uploads ports.UploadStore
	queue   ports.JobQueue
	log     *slog.Logger
}

func NewSubmitIngestUseCase(
	jobs ports.JobRepository,
	uploads ports.UploadStore,
	queue ports.JobQueue,
	log *slog.Logger,
) *SubmitIngestUseCase {
	if log == nil {
		log = slog.Default()
	}
	return &SubmitIngestUseCase{jobs: jobs, uploads: uploads, queue: queue, log: log}
}

func (uc *SubmitIngestUseCase) Submit(ctx context.Context, userID int64, docName string, file io.Reader) (*domain.IngestJob, error) {
	if strings.TrimSpace(docName) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit ingest", fmt.Errorf("document name is empty"))
	}

	id := uuid.NewString()
	fileRef := fmt.Sprintf("%d_%s_%s", userID, id, sanitizeDocName(docName))
	now := time.Now().UTC()

	if err := uc.uploads.Save(ctx, fileRef, file); err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}

	job := &domain.IngestJob{
		ID:        id,
		UserID:    userID,
		DocName:   docName,
		FileRef:   fileRef,
		Status:    domain.JobPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create ingest job: %w", err)
	}

	if err := uc.queue.Enqueue(ctx, job.ID); err != nil {
		return nil, fmt.Errorf("enqueue ingest job: %w", err)
	}

	uc.log.Info("ingest job queued", "job_id", job.ID, "user_id", userID, "doc_name", docName)
	return job, nil
}

// Status returns the job only to its owner; a missing or foreign job is
// indistinguishable from the caller's point of view.
func (uc *SubmitIngestUseCase) Status(ctx context.Context, jobID string, userID int64) (*domain.IngestJob, error) {
	job, err := uc.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.UserID != userID {
		return nil, domain.WrapError(domain.ErrJobNotFound, "job status", fmt.Errorf("job %s not owned by caller", jobID))
	}
	return job, nil
}

func sanitizeDocName(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "document.bin"
	}
	return base
}
