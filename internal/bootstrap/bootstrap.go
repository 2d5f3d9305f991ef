// Package bootstrap wires configuration, storage, queue and model
// collaborators into the use cases both binaries share.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/knowledge-hub/internal/config"
	"github.com/kirillkom/knowledge-hub/internal/core/ports"
	"github.com/kirillkom/knowledge-hub/internal/core/usecase"
	"github.com/kirillkom/knowledge-hub/internal/infrastructure/chunking"
	"github.com/kirillkom/knowledge-hub/internal/infrastructure/extractor"
	"github.com/kirillkom/knowledge-hub/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/knowledge-hub/internal/infrastructure/queue/memory"
	natsqueue "github.com/kirillkom/knowledge-hub/internal/infrastructure/queue/nats"
	"github.com/kirillkom/knowledge-hub/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/knowledge-hub/internal/infrastructure/resilience"
	"github.com/kirillkom/knowledge-hub/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config
	Log    *slog.Logger

	Ingest ports.IngestService
	Runner ports.JobRunner
	Query  ports.QueryService

	Users  ports.UserRepository
	Chunks ports.ChunkStore
	Queue  ports.JobQueue

	// MemoryPool is set when QueueDriver is "memory"; NATSQueue when
	// it is "nats". Exactly one of them is non-nil.
	MemoryPool *memory.Pool
	NATSQueue  *natsqueue.Queue

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db, cfg.EmbedDim); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	jobs := postgres.NewJobRepository(db)
	chunks := postgres.NewChunkRepository(db, postgres.CommitPolicy(cfg.CommitPolicy))
	users := postgres.NewUserRepository(db)

	uploads, err := localfs.New(cfg.UploadDir)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init upload store: %w", err)
	}

	ollamaExecutor := resilience.NewExecutor(resilience.OllamaProfile())
	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, ollamaExecutor)
	embedder := ollama.NewEmbedder(ollamaClient)
	generator := ollama.NewGenerator(ollamaClient)

	app := &App{
		Config: cfg,
		Log:    log,
		Users:  users,
		Chunks: chunks,
	}

	switch cfg.QueueDriver {
	case "nats":
		queue, err := natsqueue.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, natsqueue.Options{
			ResilienceExecutor: resilience.NewExecutor(resilience.NATSProfile()),
			Logger:             log,
		})
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("init nats queue: %w", err)
		}
		app.Queue = queue
		app.NATSQueue = queue
		app.closeFn = func() {
			queue.Close()
			_ = db.Close()
		}
	case "memory":
		pool := memory.NewPool(cfg.WorkerCount, cfg.QueueDepth, log)
		app.Queue = pool
		app.MemoryPool = pool
		app.closeFn = func() {
			_ = db.Close()
		}
	default:
		db.Close()
		return nil, fmt.Errorf("unknown queue driver %q", cfg.QueueDriver)
	}

	app.Ingest = usecase.NewSubmitIngestUseCase(jobs, uploads, app.Queue, log)
	app.Runner = usecase.NewRunIngestJobUseCase(
		jobs,
		uploads,
		extractor.New(),
		chunking.NewSplitter(cfg.ChunkSize),
		embedder,
		chunks,
		cfg.EmbedThrottle,
		log,
	)
	app.Query = usecase.NewAnswerQueryUseCase(
		usecase.NewQueryClassifier(),
		embedder,
		chunks,
		generator,
		cfg.TopK,
		cfg.MaxContextChars,
		log,
	)

	return app, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
