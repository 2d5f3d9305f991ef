package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/knowledge-hub/internal/core/domain"
)

type JobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Create(ctx context.Context, job *domain.IngestJob) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO ingest_jobs (id, user_id, doc_name, file_ref, status, error_message, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
		job.ID, job.UserID, job.DocName, job.FileRef, string(job.Status), job.Error, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return domain.WrapError(domain.ErrStorage, "insert ingest job", err)
	}
	return nil
}

func (r *JobRepository) GetByID(ctx context.Context, id string) (*domain.IngestJob, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, user_id, doc_name, file_ref, status, error_message, created_at, updated_at
FROM ingest_jobs
WHERE id = $1
`, id)

	var job domain.IngestJob
	var status string
	err := row.Scan(
		&job.ID, &job.UserID, &job.DocName, &job.FileRef, &status, &job.Error, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrJobNotFound, "get ingest job", fmt.Errorf("id %s", id))
		}
		return nil, domain.WrapError(domain.ErrStorage, "scan ingest job", err)
	}
	job.Status = domain.JobStatus(status)
	return &job, nil
}

// UpdateStatus writes the next lifecycle state. Terminal rows are guarded
// in SQL so a completed or failed job can never transition again.
func (r *JobRepository) UpdateStatus(ctx context.Context, id string, status domain.JobStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE ingest_jobs
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1 AND status NOT IN ('completed', 'failed')
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return domain.WrapError(domain.ErrStorage, "update job status", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return domain.WrapError(domain.ErrStorage, "update job status", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "update job status",
			fmt.Errorf("job %s missing or already terminal", id))
	}
	return nil
}
