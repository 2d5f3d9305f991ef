package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/knowledge-hub/internal/core/domain"
	"github.com/kirillkom/knowledge-hub/internal/core/ports"
)

// RunIngestJobUseCase drives one job through the state machine
// pending -> processing -> completed|failed. Pipeline errors are recorded
// on the job and never propagate past the worker boundary; the returned
// error exists for worker-side logging only. The temporary upload is
// removed on every outcome.
type RunIngestJobUseCase struct {
	jobs      ports.JobRepository
	uploads   ports.UploadStore
	extractor ports.TextExtractor
	chunker   ports.Chunker
	embedder  ports.Embedder
	chunks    ports.ChunkStore
	throttle  *rate.Limiter
	log       *slog.Logger
}

// NewRunIngestJobUseCase wires the ingest pipeline. embedInterval spaces
// consecutive embedding calls to respect provider rate limits; zero
// disables throttling.
func NewRunIngestJobUseCase(
	jobs ports.JobRepository,
	uploads ports.UploadStore,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	chunks ports.ChunkStore,
	embedInterval time.Duration,
	log *slog.Logger,
) *RunIngestJobUseCase {
	var throttle *rate.Limiter
	if embedInterval > 0 {
		throttle = rate.NewLimiter(rate.Every(embedInterval), 1)
	}
	if log == nil {
		log = slog.Default()
	}
	return &RunIngestJobUseCase{
		jobs:      jobs,
		uploads:   uploads,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		chunks:    chunks,
		throttle:  throttle,
		log:       log,
	}
}

func (uc *RunIngestJobUseCase) Run(ctx context.Context, jobID string) error {
	job, err := uc.jobs.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}

	// The upload is consumed by this run whatever happens; removal must
	// survive a canceled pipeline context.
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)
		if err := uc.uploads.Remove(cleanupCtx, job.FileRef); err != nil {
			uc.log.Warn("could not remove uploaded file", "job_id", job.ID, "file_ref", job.FileRef, "error", err)
		}
	}()

	if err := uc.jobs.UpdateStatus(ctx, job.ID, domain.JobProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	if err := uc.ingest(ctx, job); err != nil {
		uc.log.Error("ingest job failed", "job_id", job.ID, "error", err)
		if failErr := uc.jobs.UpdateStatus(context.WithoutCancel(ctx), job.ID, domain.JobFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.jobs.UpdateStatus(ctx, job.ID, domain.JobCompleted, ""); err != nil {
		return fmt.Errorf("set status=completed: %w", err)
	}
	uc.log.Info("ingest job completed", "job_id", job.ID, "doc_name", job.DocName)
	return nil
}

func (uc *RunIngestJobUseCase) ingest(ctx context.Context, job *domain.IngestJob) error {
	source, err := uc.uploads.Open(ctx, job.FileRef)
	if err != nil {
		return domain.WrapError(domain.ErrExtraction, "open upload", err)
	}
	defer source.Close()

	text, err := uc.extractor.Extract(ctx, source, job.DocName)
	if err != nil {
		return err
	}

	chunks := uc.chunker.Split(text)
	uc.log.Info("document chunked", "job_id", job.ID, "doc_name", job.DocName, "chunks", len(chunks))
	if len(chunks) == 0 {
		return nil
	}

	batch, err := uc.chunks.BeginDocument(ctx, job.UserID, job.DocName)
	if err != nil {
		return err
	}
	defer batch.Close()

	// Chunks are embedded and inserted strictly in index order; chunk
	// i+1 starts only after chunk i is stored.
	for idx, content := range chunks {
		if err := uc.waitThrottle(ctx); err != nil {
			return domain.WrapError(domain.ErrEmbedding, "embedding throttle", err)
		}
		vector, err := uc.embedder.Embed(ctx, content)
		if err != nil {
			return err
		}
		if err := batch.Insert(ctx, domain.DocumentChunk{
			UserID:    job.UserID,
			DocName:   job.DocName,
			Index:     idx,
			Content:   content,
			Embedding: vector,
		}); err != nil {
			return err
		}
	}

	return batch.Commit(ctx)
}

func (uc *RunIngestJobUseCase) waitThrottle(ctx context.Context) error {
	if uc.throttle == nil {
		return nil
	}
	return uc.throttle.Wait(ctx)
}
