package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/macmajerczyk-dot/ml-pipeline/internal/adapters/classifier"
	kafkaadapter "github.com/macmajerczyk-dot/ml-pipeline/internal/adapters/kafka"
	"github.com/macmajerczyk-dot/ml-pipeline/internal/adapters/metrics"
	"github.com/macmajerczyk-dot/ml-pipeline/internal/application"
	"github.com/macmajerczyk-dot/ml-pipeline/internal/ports"
)

type WorkerRuntime struct {
	cfg           Config
	logger        *slog.Logger
	worker        *application.Worker
	metricsServer *http.Server
	grpcServer    *grpc.Server
	grpcLis       net.Listener
	cleanupFn     func()
}

func NewWorkerRuntime(ctx context.Context, configPath string) (*WorkerRuntime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.WorkerServiceName, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := kafkaadapter.Await(ctx, logger, cfg.KafkaBrokers, cfg.ConnectRetries, cfg.ConnectBackoff); err != nil {
		return nil, err
	}

	requests, err := kafkaadapter.NewConsumer(cfg.KafkaBrokers, cfg.WorkerConsumerGroup, cfg.RequestsTopic)
	if err != nil {
		return nil, err
	}
	closers := []io.Closer{requests}
	closeAll := func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}

	results, err := kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.ResultsTopic)
	if err != nil {
		closeAll()
		return nil, err
	}
	closers = append(closers, results)

	var deadLetter ports.Publisher
	if cfg.DeadLetterTopic != "" {
		dlq, dlqErr := kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.DeadLetterTopic)
		if dlqErr != nil {
			closeAll()
			return nil, dlqErr
		}
		deadLetter = dlq
		closers = append(closers, dlq)
	}

	workerMetrics := metrics.NewWorker(nil)
	worker := application.NewWorker(application.WorkerDeps{
		Logger:        logger,
		Requests:      requests,
		Results:       results,
		DeadLetter:    deadLetter,
		Classifier:    classifier.NewLexicon(cfg.ModelName),
		Metrics:       workerMetrics,
		RequestsTopic: cfg.RequestsTopic,
		ResultsTopic:  cfg.ResultsTopic,
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", workerMetrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WorkerMetricsPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer, grpcLis, err := newHealthServer(cfg.WorkerGRPCPort)
	if err != nil {
		closeAll()
		return nil, err
	}

	return &WorkerRuntime{
		cfg:           cfg,
		logger:        logger,
		worker:        worker,
		metricsServer: metricsServer,
		grpcServer:    grpcServer,
		grpcLis:       grpcLis,
		cleanupFn:     closeAll,
	}, nil
}

// Run drives the consume loop until a signal arrives, then lets the
// in-flight message finish, commits, and releases broker connections.
func (r *WorkerRuntime) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		r.logger.InfoContext(ctx, "metrics server listening", "addr", r.metricsServer.Addr)
		if err := r.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.ErrorContext(ctx, "metrics server failed", "error", err)
		}
	}()
	go func() {
		if err := r.grpcServer.Serve(r.grpcLis); err != nil {
			r.logger.ErrorContext(ctx, "grpc server failed", "error", err)
		}
	}()

	err := r.worker.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		r.logger.ErrorContext(ctx, "worker loop failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = r.metricsServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	r.cleanupFn()
	r.logger.Info("worker stopped")
	return nil
}
