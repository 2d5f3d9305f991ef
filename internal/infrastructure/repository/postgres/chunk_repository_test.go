package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pgvector/pgvector-go"

	"github.com/kirillkom/knowledge-hub/internal/core/domain"
)

func newChunkRepo(t *testing.T, policy CommitPolicy) (*ChunkRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewChunkRepository(db, policy), mock
}

func TestChunkBatchPerDocumentCommits(t *testing.T) {
	repo, mock := newChunkRepo(t, CommitPerDocument)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO document_chunks")).
		WithArgs(int64(7), "report.pdf", 0, "alpha", pgvector.NewVector([]float32{0.1, 0.2})).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO document_chunks")).
		WithArgs(int64(7), "report.pdf", 1, "beta", pgvector.NewVector([]float32{0.3, 0.4})).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	batch, err := repo.BeginDocument(ctx, 7, "report.pdf")
	if err != nil {
		t.Fatalf("BeginDocument() error = %v", err)
	}
	chunks := []domain.DocumentChunk{
		{UserID: 7, DocName: "report.pdf", Index: 0, Content: "alpha", Embedding: []float32{0.1, 0.2}},
		{UserID: 7, DocName: "report.pdf", Index: 1, Content: "beta", Embedding: []float32{0.3, 0.4}},
	}
	for _, c := range chunks {
		if err := batch.Insert(ctx, c); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}
	if err := batch.Commit(ctx); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if err := batch.Close(); err != nil {
		t.Fatalf("Close() after commit must be a no-op: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestChunkBatchPerDocumentRollsBackOnClose(t *testing.T) {
	repo, mock := newChunkRepo(t, CommitPerDocument)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO document_chunks")).
		WithArgs(int64(7), "report.pdf", 0, "alpha", pgvector.NewVector([]float32{0.1})).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectRollback()

	batch, err := repo.BeginDocument(ctx, 7, "report.pdf")
	if err != nil {
		t.Fatalf("BeginDocument() error = %v", err)
	}
	if err := batch.Insert(ctx, domain.DocumentChunk{
		UserID: 7, DocName: "report.pdf", Index: 0, Content: "alpha", Embedding: []float32{0.1},
	}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := batch.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestChunkBatchPerChunkWritesImmediately(t *testing.T) {
	repo, mock := newChunkRepo(t, CommitPerChunk)
	ctx := context.Background()

	// No transaction expectations: every insert stands alone.
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO document_chunks")).
		WithArgs(int64(7), "report.pdf", 0, "alpha", pgvector.NewVector([]float32{0.1})).
		WillReturnResult(sqlmock.NewResult(1, 1))

	batch, err := repo.BeginDocument(ctx, 7, "report.pdf")
	if err != nil {
		t.Fatalf("BeginDocument() error = %v", err)
	}
	if err := batch.Insert(ctx, domain.DocumentChunk{
		UserID: 7, DocName: "report.pdf", Index: 0, Content: "alpha", Embedding: []float32{0.1},
	}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := batch.Commit(ctx); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if err := batch.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestVectorSearchOrdersByDistance(t *testing.T) {
	repo, mock := newChunkRepo(t, CommitPerDocument)

	rows := sqlmock.NewRows([]string{"doc_name", "chunk_index", "content", "score"}).
		AddRow("report.pdf", 2, "closest", -0.92).
		AddRow("notes.txt", 0, "further", -0.41)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY embedding <#> $2::vector ASC")).
		WithArgs(int64(7), pgvector.NewVector([]float32{0.5, 0.5}), 5, "").
		WillReturnRows(rows)

	got, err := repo.VectorSearch(context.Background(), 7, []float32{0.5, 0.5}, 5, "")
	if err != nil {
		t.Fatalf("VectorSearch() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2", len(got))
	}
	if got[0].DocName != "report.pdf" || got[0].ChunkIndex != 2 {
		t.Fatalf("unexpected first candidate %+v", got[0])
	}
}

func TestKeywordSearchUsesRank(t *testing.T) {
	repo, mock := newChunkRepo(t, CommitPerDocument)

	rows := sqlmock.NewRows([]string{"doc_name", "chunk_index", "content", "score"}).
		AddRow("report.pdf", 1, "revenue grew", 0.61)

	mock.ExpectQuery(regexp.QuoteMeta("ts_rank_cd(content_tsv, plainto_tsquery('english', $2))")).
		WithArgs(int64(7), "revenue", 5, "report.pdf").
		WillReturnRows(rows)

	got, err := repo.KeywordSearch(context.Background(), 7, "revenue", 5, "report.pdf")
	if err != nil {
		t.Fatalf("KeywordSearch() error = %v", err)
	}
	if len(got) != 1 || got[0].Content != "revenue grew" {
		t.Fatalf("unexpected candidates %+v", got)
	}
}

func TestKeywordSearchWrapsStorageErrors(t *testing.T) {
	repo, mock := newChunkRepo(t, CommitPerDocument)

	mock.ExpectQuery(regexp.QuoteMeta("ts_rank_cd")).
		WithArgs(int64(7), "revenue", 5, "").
		WillReturnError(errors.New("connection reset"))

	_, err := repo.KeywordSearch(context.Background(), 7, "revenue", 5, "")
	if !domain.IsKind(err, domain.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}

func TestChunksForDocumentOrdersByIndex(t *testing.T) {
	repo, mock := newChunkRepo(t, CommitPerDocument)

	rows := sqlmock.NewRows([]string{"chunk_index", "content"}).
		AddRow(0, "first").
		AddRow(1, "second")

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY chunk_index ASC")).
		WithArgs(int64(7), "report.pdf").
		WillReturnRows(rows)

	got, err := repo.ChunksForDocument(context.Background(), 7, "report.pdf")
	if err != nil {
		t.Fatalf("ChunksForDocument() error = %v", err)
	}
	if len(got) != 2 || got[0].Content != "first" || got[1].Index != 1 {
		t.Fatalf("unexpected chunks %+v", got)
	}
}

func TestListDocuments(t *testing.T) {
	repo, mock := newChunkRepo(t, CommitPerDocument)

	rows := sqlmock.NewRows([]string{"doc_name"}).
		AddRow("notes.txt").
		AddRow("report.pdf")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT doc_name")).
		WithArgs(int64(7)).
		WillReturnRows(rows)

	got, err := repo.ListDocuments(context.Background(), 7)
	if err != nil {
		t.Fatalf("ListDocuments() error = %v", err)
	}
	if len(got) != 2 || got[0] != "notes.txt" {
		t.Fatalf("unexpected documents %v", got)
	}
}
