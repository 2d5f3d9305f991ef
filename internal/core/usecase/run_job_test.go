package usecase

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/kirillkom/knowledge-hub/internal/core/domain"
	"github.com/kirillkom/knowledge-hub/internal/core/ports"
)

type runExtractorFake struct {
	text string
	err  error
}

func (f *runExtractorFake) Extract(context.Context, io.Reader, string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type runChunkerFake struct {
	chunks []string
}

func (f *runChunkerFake) Split(string) []string { return f.chunks }

type runEmbedderFake struct {
	failAt int // 1-based call index that fails; 0 never fails
	calls  int
}

func (f *runEmbedderFake) Embed(context.Context, string) ([]float32, error) {
	f.calls++
	if f.failAt > 0 && f.calls == f.failAt {
		return nil, domain.WrapError(domain.ErrEmbedding, "embed", errors.New("provider down"))
	}
	return []float32{0.1, 0.2}, nil
}

type runBatchFake struct {
	inserted  []domain.DocumentChunk
	insertErr error
	committed bool
	closed    bool
}

func (f *runBatchFake) Insert(_ context.Context, chunk domain.DocumentChunk) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, chunk)
	return nil
}

func (f *runBatchFake) Commit(context.Context) error {
	f.committed = true
	return nil
}

func (f *runBatchFake) Close() error {
	f.closed = true
	return nil
}

type runStoreFake struct {
	batch    *runBatchFake
	beginErr error
}

func (f *runStoreFake) BeginDocument(context.Context, int64, string) (ports.ChunkBatch, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	return f.batch, nil
}

func (f *runStoreFake) VectorSearch(context.Context, int64, []float32, int, string) ([]domain.RetrievalCandidate, error) {
	return nil, nil
}

func (f *runStoreFake) KeywordSearch(context.Context, int64, string, int, string) ([]domain.RetrievalCandidate, error) {
	return nil, nil
}

func (f *runStoreFake) ChunksForDocument(context.Context, int64, string) ([]domain.DocumentChunk, error) {
	return nil, nil
}

func (f *runStoreFake) ListDocuments(context.Context, int64) ([]string, error) {
	return nil, nil
}

func pendingJob() *domain.IngestJob {
	return &domain.IngestJob{
		ID:      "job-1",
		UserID:  7,
		DocName: "notes.txt",
		FileRef: "7_job-1_notes.txt",
		Status:  domain.JobPending,
	}
}

func TestRunJobSuccessStoresChunksInOrder(t *testing.T) {
	repo := &jobRepoFake{stored: pendingJob()}
	uploads := &uploadStoreFake{openBody: "raw"}
	batch := &runBatchFake{}
	uc := NewRunIngestJobUseCase(
		repo, uploads,
		&runExtractorFake{text: "extracted"},
		&runChunkerFake{chunks: []string{"a", "b", "c"}},
		&runEmbedderFake{},
		&runStoreFake{batch: batch},
		0, nil,
	)

	if err := uc.Run(context.Background(), "job-1"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(repo.statusCalls) != 2 {
		t.Fatalf("expected processing+completed, got %+v", repo.statusCalls)
	}
	if repo.statusCalls[0].status != domain.JobProcessing || repo.statusCalls[1].status != domain.JobCompleted {
		t.Fatalf("unexpected status sequence: %+v", repo.statusCalls)
	}
	if repo.statusCalls[1].errMsg != "" {
		t.Fatalf("completed job must clear the error, got %q", repo.statusCalls[1].errMsg)
	}
	if len(batch.inserted) != 3 {
		t.Fatalf("expected 3 chunks inserted, got %d", len(batch.inserted))
	}
	for i, chunk := range batch.inserted {
		if chunk.Index != i {
			t.Fatalf("chunk %d has index %d", i, chunk.Index)
		}
		if chunk.UserID != 7 || chunk.DocName != "notes.txt" {
			t.Fatalf("chunk identity wrong: %+v", chunk)
		}
	}
	if !batch.committed || !batch.closed {
		t.Fatalf("batch must be committed and closed, got commit=%v close=%v", batch.committed, batch.closed)
	}
	if uploads.removedKey != "7_job-1_notes.txt" {
		t.Fatalf("upload must be removed, got %q", uploads.removedKey)
	}
}

func TestRunJobExtractionFailureWritesNoChunks(t *testing.T) {
	repo := &jobRepoFake{stored: pendingJob()}
	uploads := &uploadStoreFake{}
	batch := &runBatchFake{}
	uc := NewRunIngestJobUseCase(
		repo, uploads,
		&runExtractorFake{err: domain.WrapError(domain.ErrExtraction, "extract", errors.New("corrupt pdf"))},
		&runChunkerFake{chunks: []string{"a"}},
		&runEmbedderFake{},
		&runStoreFake{batch: batch},
		0, nil,
	)

	err := uc.Run(context.Background(), "job-1")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
	last := repo.statusCalls[len(repo.statusCalls)-1]
	if last.status != domain.JobFailed || last.errMsg == "" {
		t.Fatalf("expected failed status with recorded error, got %+v", last)
	}
	if len(batch.inserted) != 0 {
		t.Fatalf("no chunks may be written on extraction failure")
	}
	if uploads.removedKey == "" {
		t.Fatalf("upload must be removed even on failure")
	}
}

func TestRunJobEmbeddingFailureMarksFailedAndClosesBatch(t *testing.T) {
	repo := &jobRepoFake{stored: pendingJob()}
	batch := &runBatchFake{}
	uc := NewRunIngestJobUseCase(
		repo, &uploadStoreFake{},
		&runExtractorFake{text: "extracted"},
		&runChunkerFake{chunks: []string{"a", "b", "c"}},
		&runEmbedderFake{failAt: 2},
		&runStoreFake{batch: batch},
		0, nil,
	)

	err := uc.Run(context.Background(), "job-1")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrEmbedding) {
		t.Fatalf("expected ErrEmbedding, got %v", err)
	}
	last := repo.statusCalls[len(repo.statusCalls)-1]
	if last.status != domain.JobFailed {
		t.Fatalf("expected failed status, got %+v", last)
	}
	// Chunk 0 was inserted before the failure; the batch decides its
	// durability via the configured commit policy.
	if len(batch.inserted) != 1 {
		t.Fatalf("expected 1 chunk inserted before failure, got %d", len(batch.inserted))
	}
	if batch.committed {
		t.Fatalf("failed document must not be committed")
	}
	if !batch.closed {
		t.Fatalf("batch must be closed on the failure path")
	}
}

func TestRunJobZeroChunksCompletes(t *testing.T) {
	repo := &jobRepoFake{stored: pendingJob()}
	uc := NewRunIngestJobUseCase(
		repo, &uploadStoreFake{},
		&runExtractorFake{text: "   "},
		&runChunkerFake{chunks: nil},
		&runEmbedderFake{},
		&runStoreFake{batch: &runBatchFake{}},
		0, nil,
	)

	if err := uc.Run(context.Background(), "job-1"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	last := repo.statusCalls[len(repo.statusCalls)-1]
	if last.status != domain.JobCompleted {
		t.Fatalf("expected completed, got %+v", last)
	}
}

func TestRunJobUnknownIDFails(t *testing.T) {
	repo := &jobRepoFake{}
	uc := NewRunIngestJobUseCase(
		repo, &uploadStoreFake{},
		&runExtractorFake{},
		&runChunkerFake{},
		&runEmbedderFake{},
		&runStoreFake{batch: &runBatchFake{}},
		0, nil,
	)

	if err := uc.Run(context.Background(), "missing"); !domain.IsKind(err, domain.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}
