package usecase

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/kirillkom/knowledge-hub/internal/core/domain"
)

type jobRepoFake struct {
	created   *domain.IngestJob
	stored    *domain.IngestJob
	createErr error
	getErr    error

	statusCalls []statusCall
	statusErr   error
}

type statusCall struct {
	status domain.JobStatus
	errMsg string
}

func (f *jobRepoFake) Create(_ context.Context, job *domain.IngestJob) error {
	if f.createErr != nil {
		return f.createErr
	}
	copyJob := *job
	f.created = &copyJob
	return nil
}

func (f *jobRepoFake) GetByID(context.Context, string) (*domain.IngestJob, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.stored == nil {
		return nil, domain.WrapError(domain.ErrJobNotFound, "get job", errors.New("missing"))
	}
	copyJob := *f.stored
	return &copyJob, nil
}

func (f *jobRepoFake) UpdateStatus(_ context.Context, _ string, status domain.JobStatus, errMessage string) error {
	f.statusCalls = append(f.statusCalls, statusCall{status: status, errMsg: errMessage})
	return f.statusErr
}

type uploadStoreFake struct {
	savedKey  string
	savedBody string
	saveErr   error

	openBody string
	openErr  error

	removedKey string
}

func (f *uploadStoreFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.savedKey = key
	f.savedBody = string(raw)
	return nil
}

func (f *uploadStoreFake) Open(context.Context, string) (io.ReadCloser, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	return io.NopCloser(strings.NewReader(f.openBody)), nil
}

func (f *uploadStoreFake) Remove(_ context.Context, key string) error {
	f.removedKey = key
	return nil
}

type queueFake struct {
	jobID string
	err   error
}

func (f *queueFake) Enqueue(_ context.Context, jobID string) error {
	if f.err != nil {
		return f.err
	}
	f.jobID = jobID
	return nil
}

func TestSubmitCreatesPendingJobAndEnqueues(t *testing.T) {
	repo := &jobRepoFake{}
	uploads := &uploadStoreFake{}
	queue := &queueFake{}
	uc := NewSubmitIngestUseCase(repo, uploads, queue, nil)

	job, err := uc.Submit(context.Background(), 7, "notes.txt", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if job.Status != domain.JobPending {
		t.Fatalf("expected pending status, got %s", job.Status)
	}
	if repo.created == nil || repo.created.UserID != 7 || repo.created.DocName != "notes.txt" {
		t.Fatalf("unexpected created job: %+v", repo.created)
	}
	if uploads.savedBody != "hello" {
		t.Fatalf("upload body not saved, got %q", uploads.savedBody)
	}
	if queue.jobID != job.ID {
		t.Fatalf("expected job %s enqueued, got %s", job.ID, queue.jobID)
	}
}

func TestSubmitRejectsBlankDocName(t *testing.T) {
	uc := NewSubmitIngestUseCase(&jobRepoFake{}, &uploadStoreFake{}, &queueFake{}, nil)

	_, err := uc.Submit(context.Background(), 7, "  ", strings.NewReader("x"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSubmitFailsWhenRepoRejects(t *testing.T) {
	repo := &jobRepoFake{createErr: errors.New("insert failed")}
	uc := NewSubmitIngestUseCase(repo, &uploadStoreFake{}, &queueFake{}, nil)

	if _, err := uc.Submit(context.Background(), 7, "notes.txt", strings.NewReader("x")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestStatusChecksOwnership(t *testing.T) {
	repo := &jobRepoFake{stored: &domain.IngestJob{ID: "job-1", UserID: 7, Status: domain.JobCompleted}}
	uc := NewSubmitIngestUseCase(repo, &uploadStoreFake{}, &queueFake{}, nil)

	job, err := uc.Status(context.Background(), "job-1", 7)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if job.Status != domain.JobCompleted {
		t.Fatalf("unexpected status %s", job.Status)
	}

	_, err = uc.Status(context.Background(), "job-1", 8)
	if err == nil {
		t.Fatalf("expected not-found for foreign job")
	}
	if !domain.IsKind(err, domain.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}
