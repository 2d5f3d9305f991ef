package postgres

import (
	"context"
	"database/sql"

	"github.com/pgvector/pgvector-go"

	"github.com/kirillkom/knowledge-hub/internal/core/domain"
	"github.com/kirillkom/knowledge-hub/internal/core/ports"
)

// CommitPolicy selects how chunk writes become durable during ingestion.
type CommitPolicy string

const (
	// CommitPerDocument stores all chunks of a document in one transaction.
	CommitPerDocument CommitPolicy = "document"
	// CommitPerChunk makes each chunk durable as soon as it is embedded.
	CommitPerChunk CommitPolicy = "chunk"
)

type ChunkRepository struct {
	db     *sql.DB
	policy CommitPolicy
}

func NewChunkRepository(db *sql.DB, policy CommitPolicy) *ChunkRepository {
	if policy != CommitPerChunk {
		policy = CommitPerDocument
	}
	return &ChunkRepository{db: db, policy: policy}
}

const insertChunkSQL = `
INSERT INTO document_chunks (user_id, doc_name, chunk_index, content, embedding)
VALUES ($1,$2,$3,$4,$5)
`

func (r *ChunkRepository) BeginDocument(ctx context.Context, userID int64, docName string) (ports.ChunkBatch, error) {
	if r.policy == CommitPerChunk {
		return &chunkBatch{db: r.db}, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "begin chunk tx", err)
	}
	return &chunkBatch{tx: tx}, nil
}

type chunkBatch struct {
	db   *sql.DB
	tx   *sql.Tx
	done bool
}

func (b *chunkBatch) Insert(ctx context.Context, chunk domain.DocumentChunk) error {
	var err error
	vec := pgvector.NewVector(chunk.Embedding)
	if b.tx != nil {
		_, err = b.tx.ExecContext(ctx, insertChunkSQL,
			chunk.UserID, chunk.DocName, chunk.Index, chunk.Content, vec)
	} else {
		_, err = b.db.ExecContext(ctx, insertChunkSQL,
			chunk.UserID, chunk.DocName, chunk.Index, chunk.Content, vec)
	}
	if err != nil {
		return domain.WrapError(domain.ErrStorage, "insert chunk", err)
	}
	return nil
}

func (b *chunkBatch) Commit(ctx context.Context) error {
	if b.tx == nil {
		return nil
	}
	b.done = true
	if err := b.tx.Commit(); err != nil {
		return domain.WrapError(domain.ErrStorage, "commit chunk tx", err)
	}
	return nil
}

// Close rolls back an uncommitted transactional batch. Per-chunk batches
// have nothing to undo.
func (b *chunkBatch) Close() error {
	if b.tx == nil || b.done {
		return nil
	}
	b.done = true
	if err := b.tx.Rollback(); err != nil {
		return domain.WrapError(domain.ErrStorage, "rollback chunk tx", err)
	}
	return nil
}

// VectorSearch orders by inner-product distance, closest first. An empty
// docName searches the user's whole corpus.
func (r *ChunkRepository) VectorSearch(ctx context.Context, userID int64, queryVec []float32, k int, docName string) ([]domain.RetrievalCandidate, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT doc_name, chunk_index, content, embedding <#> $2::vector AS score
FROM document_chunks
WHERE user_id = $1 AND embedding IS NOT NULL AND ($4 = '' OR doc_name = $4)
ORDER BY embedding <#> $2::vector ASC
LIMIT $3
`, userID, pgvector.NewVector(queryVec), k, docName)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "vector search", err)
	}
	defer rows.Close()
	return scanCandidates(rows)
}

func (r *ChunkRepository) KeywordSearch(ctx context.Context, userID int64, query string, k int, docName string) ([]domain.RetrievalCandidate, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT doc_name, chunk_index, content,
       ts_rank_cd(content_tsv, plainto_tsquery('english', $2)) AS score
FROM document_chunks
WHERE user_id = $1 AND content_tsv @@ plainto_tsquery('english', $2) AND ($4 = '' OR doc_name = $4)
ORDER BY score DESC
LIMIT $3
`, userID, query, k, docName)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "keyword search", err)
	}
	defer rows.Close()
	return scanCandidates(rows)
}

func (r *ChunkRepository) ChunksForDocument(ctx context.Context, userID int64, docName string) ([]domain.DocumentChunk, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT chunk_index, content
FROM document_chunks
WHERE user_id = $1 AND doc_name = $2
ORDER BY chunk_index ASC
`, userID, docName)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "list document chunks", err)
	}
	defer rows.Close()

	var chunks []domain.DocumentChunk
	for rows.Next() {
		chunk := domain.DocumentChunk{UserID: userID, DocName: docName}
		if err := rows.Scan(&chunk.Index, &chunk.Content); err != nil {
			return nil, domain.WrapError(domain.ErrStorage, "scan document chunk", err)
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "iterate document chunks", err)
	}
	return chunks, nil
}

func (r *ChunkRepository) ListDocuments(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT DISTINCT doc_name
FROM document_chunks
WHERE user_id = $1
ORDER BY doc_name ASC
`, userID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "list documents", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, domain.WrapError(domain.ErrStorage, "scan document name", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "iterate documents", err)
	}
	return names, nil
}

func scanCandidates(rows *sql.Rows) ([]domain.RetrievalCandidate, error) {
	var out []domain.RetrievalCandidate
	for rows.Next() {
		var c domain.RetrievalCandidate
		if err := rows.Scan(&c.DocName, &c.ChunkIndex, &c.Content, &c.Score); err != nil {
			return nil, domain.WrapError(domain.ErrStorage, "scan retrieval candidate", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "iterate retrieval candidates", err)
	}
	return out, nil
}
