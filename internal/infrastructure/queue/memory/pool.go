// Package memory runs ingest jobs on an in-process worker pool. It backs
// single-binary deployments where no broker is available.
package memory

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/knowledge-hub/internal/core/domain"
)

type Pool struct {
	jobs      chan string
	workers   int
	log       *slog.Logger
	onDequeue func(wait time.Duration)

	mu       sync.Mutex
	inflight map[string]time.Time
}

func NewPool(workers, depth int, log *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 2
	}
	if depth <= 0 {
		depth = 64
	}
	return &Pool{
		jobs:     make(chan string, depth),
		workers:  workers,
		log:      log,
		inflight: make(map[string]time.Time),
	}
}

// OnDequeue registers a callback invoked with the time each job spent
// waiting in the queue before a worker picked it up. Must be called
// before Run.
func (p *Pool) OnDequeue(fn func(wait time.Duration)) {
	p.onDequeue = fn
}

// Enqueue hands a job id to the pool without blocking. A full queue is
// reported as a temporary failure so callers can surface backpressure.
func (p *Pool) Enqueue(_ context.Context, jobID string) error {
	p.mu.Lock()
	if _, ok := p.inflight[jobID]; ok {
		p.mu.Unlock()
		return nil
	}
	p.inflight[jobID] = time.Now()
	p.mu.Unlock()

	select {
	case p.jobs <- jobID:
		return nil
	default:
		p.forget(jobID)
		return domain.WrapError(domain.ErrTemporary, "enqueue ingest job",
			errors.New("ingest queue full"))
	}
}

// Depth reports how many jobs are waiting for a worker.
func (p *Pool) Depth() int {
	return len(p.jobs)
}

// Run blocks until ctx is cancelled and every in-flight handler has
// returned, feeding queued job ids to handler. Handler failures are
// logged and never stop the pool; the job row keeps the authoritative
// outcome.
func (p *Pool) Run(ctx context.Context, handler func(context.Context, string) error) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case jobID := <-p.jobs:
					p.reportWait(jobID)
					if err := handler(ctx, jobID); err != nil {
						p.log.Error("ingest job handler failed", "job_id", jobID, "error", err)
					}
					p.forget(jobID)
				}
			}
		})
	}
	return g.Wait()
}

func (p *Pool) reportWait(jobID string) {
	if p.onDequeue == nil {
		return
	}
	p.mu.Lock()
	enqueuedAt, ok := p.inflight[jobID]
	p.mu.Unlock()
	if ok {
		p.onDequeue(time.Since(enqueuedAt))
	}
}

func (p *Pool) forget(jobID string) {
	p.mu.Lock()
	delete(p.inflight, jobID)
	p.mu.Unlock()
}
