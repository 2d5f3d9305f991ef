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
	log := logging.NewJSONLogger("worker", cfg.LogLevel)
	slog.SetDefault(log)

	// A standalone worker can only drain a broker-backed queue.
	if cfg.QueueDriver != "nats" {
		log.Error("worker requires QUEUE_DRIVER=nats", "driver", cfg.QueueDriver)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Error("bootstrap", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", workerMetrics.Handler())
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: metricsMux,
	}
	go func() {
		log.Info("worker metrics listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("worker metrics server", "error", err)
		}
	}()

	log.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.NATSQueue.Subscribe(ctx, func(handlerCtx context.Context, jobID string) error {
		runCtx, cancel := context.WithTimeout(handlerCtx, 10*time.Minute)
		defer cancel()

		workerMetrics.StartJob()
		start := time.Now()
		runErr := app.Runner.Run(runCtx, jobID)
		workerMetrics.FinishJob("worker", time.Since(start), runErr)
		return runErr
	})
	if err != nil {
		log.Error("worker subscribe", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
}
