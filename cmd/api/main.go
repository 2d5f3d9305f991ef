package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/knowledge-hub/internal/adapters/http"
	"github.com/kirillkom/knowledge-hub/internal/bootstrap"
	"github.com/kirillkom/knowledge-hub/internal/config"
	"github.com/kirillkom/knowledge-hub/internal/observability/logging"
	"github.com/kirillkom/knowledge-hub/internal/observability/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	log := logging.NewJSONLogger("api", cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Error("bootstrap", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	// With the memory driver the api binary also runs the ingest
	// workers; nats deployments run them in the worker binary. The pool
	// goroutine is joined after server shutdown so an in-flight job can
	// reach a terminal status before the process exits.
	poolDone := make(chan struct{})
	var workerMetricsServer *http.Server
	if app.MemoryPool != nil {
		workerMetrics := metrics.NewWorkerMetrics("api")
		app.MemoryPool.OnDequeue(func(wait time.Duration) {
			workerMetrics.ObserveQueueLag("api", wait)
		})
		go func() {
			ticker := time.NewTicker(5 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					workerMetrics.SetQueueDepth(app.MemoryPool.Depth())
				}
			}
		}()

		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", workerMetrics.Handler())
		workerMetricsServer = &http.Server{
			Addr:    ":" + cfg.WorkerMetricsPort,
			Handler: metricsMux,
		}
		go func() {
			log.Info("worker metrics listening", "port", cfg.WorkerMetricsPort)
			if err := workerMetricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("worker metrics server", "error", err)
			}
		}()

		go func() {
			defer close(poolDone)
			_ = app.MemoryPool.Run(ctx, func(jobCtx context.Context, jobID string) error {
				runCtx, cancel := context.WithTimeout(jobCtx, 10*time.Minute)
				defer cancel()

				workerMetrics.StartJob()
				start := time.Now()
				runErr := app.Runner.Run(runCtx, jobID)
				workerMetrics.FinishJob("api", time.Since(start), runErr)
				return runErr
			})
		}()
	} else {
		close(poolDone)
	}

	tokens := httpadapter.NewTokenManager(cfg.JWTSecret, 24*time.Hour)
	httpMetrics := metrics.NewHTTPServerMetrics("api")
	router := httpadapter.NewRouter(app.Ingest, app.Query, app.Users, app.Chunks, tokens, httpMetrics, log)

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("api listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("api server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("api shutdown", "error", err)
	}

	<-poolDone
	if workerMetricsServer != nil {
		_ = workerMetricsServer.Shutdown(shutdownCtx)
	}
}
