// Package bootstrap builds and runs the two service binaries.
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
	"strings"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	httpadapter "github.com/macmajerczyk-dot/ml-pipeline/internal/adapters/http"
	kafkaadapter "github.com/macmajerczyk-dot/ml-pipeline/internal/adapters/kafka"
	"github.com/macmajerczyk-dot/ml-pipeline/internal/adapters/metrics"
	"github.com/macmajerczyk-dot/ml-pipeline/internal/adapters/ratelimit"
	"github.com/macmajerczyk-dot/ml-pipeline/internal/application"
	"github.com/macmajerczyk-dot/ml-pipeline/internal/ports"
	"github.com/macmajerczyk-dot/ml-pipeline/internal/store"
)

const shutdownTimeout = 10 * time.Second

type GatewayRuntime struct {
	cfg        Config
	logger     *slog.Logger
	gateway    *application.Gateway
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcLis    net.Listener
	cleanupFn  func()
}

func NewGatewayRuntime(ctx context.Context, configPath string) (*GatewayRuntime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.GatewayServiceName, cfg.LogLevel)
	slog.SetDefault(logger)

	// Broker unreachable after bounded retries is fatal for the instance.
	if err := kafkaadapter.Await(ctx, logger, cfg.KafkaBrokers, cfg.ConnectRetries, cfg.ConnectBackoff); err != nil {
		return nil, err
	}

	requests, err := kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.RequestsTopic)
	if err != nil {
		return nil, err
	}
	closers := []io.Closer{requests}
	closeAll := func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}

	results, err := kafkaadapter.NewConsumer(cfg.KafkaBrokers, cfg.GatewayConsumerGroup, cfg.ResultsTopic)
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

	limiter, limiterCloser, err := newRateLimiter(ctx, logger, cfg)
	if err != nil {
		closeAll()
		return nil, err
	}
	if limiterCloser != nil {
		closers = append(closers, limiterCloser)
	}

	resultStore := store.NewResultStore(cfg.ResultStoreCapacity)
	gatewayMetrics := metrics.NewGateway(nil, resultStore.Len)

	gateway := application.NewGateway(application.GatewayDeps{
		Logger:        logger,
		Store:         resultStore,
		Requests:      requests,
		Results:       results,
		DeadLetter:    deadLetter,
		Metrics:       gatewayMetrics,
		RequestsTopic: cfg.RequestsTopic,
	})

	handler := httpadapter.NewHandler(gateway, cfg.GatewayServiceName, cfg.Version, nil)
	router := httpadapter.NewRouter(handler, limiter, gatewayMetrics)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer, grpcLis, err := newHealthServer(cfg.GatewayGRPCPort)
	if err != nil {
		closeAll()
		return nil, err
	}

	return &GatewayRuntime{
		cfg:        cfg,
		logger:     logger,
		gateway:    gateway,
		httpServer: httpServer,
		grpcServer: grpcServer,
		grpcLis:    grpcLis,
		cleanupFn:  closeAll,
	}, nil
}

// Run serves HTTP and gRPC health alongside the result-drain task until a
// signal or a server failure, then shuts down in order: stop accepting
// API calls, drain in-flight consumption, release broker connections.
func (r *GatewayRuntime) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	drainCtx, cancelDrain := context.WithCancel(context.Background())
	drainDone := make(chan struct{})
	go func() {
		defer close(drainDone)
		if err := r.gateway.DrainResults(drainCtx); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.ErrorContext(drainCtx, "result drain failed", "error", err)
		}
	}()

	errCh := make(chan error, 2)
	go func() {
		r.logger.InfoContext(ctx, "http server listening", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		if err := r.grpcServer.Serve(r.grpcLis); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		r.logger.ErrorContext(ctx, "runtime failure", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()

	cancelDrain()
	select {
	case <-drainDone:
	case <-shutdownCtx.Done():
	}
	r.cleanupFn()
	r.logger.Info("gateway stopped")
	return nil
}

func newRateLimiter(ctx context.Context, logger *slog.Logger, cfg Config) (ports.RateLimiter, io.Closer, error) {
	if cfg.RedisURL == "" {
		return ratelimit.NewMemoryLimiter(cfg.MaxRequestsPerMinute, time.Minute), nil, nil
	}
	client, err := ratelimit.Connect(ctx, cfg.RedisURL)
	if err != nil {
		logger.WarnContext(ctx, "redis unavailable, using in-memory rate limiter", "error", err)
		return ratelimit.NewMemoryLimiter(cfg.MaxRequestsPerMinute, time.Minute), nil, nil
	}
	return ratelimit.NewRedisLimiter(client, cfg.MaxRequestsPerMinute, time.Minute), client, nil
}

func newHealthServer(port int) (*grpc.Server, net.Listener, error) {
	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, nil, err
	}
	return grpcServer, lis, nil
}

func newLogger(service, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN", "WARNING":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})).With("service", service)
}
