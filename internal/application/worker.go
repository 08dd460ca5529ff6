package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/macmajerczyk-dot/ml-pipeline/internal/adapters/metrics"
	"github.com/macmajerczyk-dot/ml-pipeline/internal/domain"
	"github.com/macmajerczyk-dot/ml-pipeline/internal/ports"
)

// Worker consumes prediction requests, runs the classifier, and publishes
// results keyed by the request id. Instances share a consumer group; the
// broker rebalances partitions across them, so scaling out needs no
// coordination here.
type Worker struct {
	logger        *slog.Logger
	requests      ports.Consumer
	results       ports.Publisher
	deadLetter    ports.Publisher // optional
	classifier    ports.Classifier
	metrics       *metrics.Worker
	requestsTopic string
	resultsTopic  string
	nowFn         func() time.Time
}

type WorkerDeps struct {
	Logger        *slog.Logger
	Requests      ports.Consumer
	Results       ports.Publisher
	DeadLetter    ports.Publisher
	Classifier    ports.Classifier
	Metrics       *metrics.Worker
	RequestsTopic string
	ResultsTopic  string
}

func NewWorker(deps WorkerDeps) *Worker {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := deps.Metrics
	if m == nil {
		m = metrics.NewWorker(nil)
	}
	return &Worker{
		logger:        logger,
		requests:      deps.Requests,
		results:       deps.Results,
		deadLetter:    deps.DeadLetter,
		classifier:    deps.Classifier,
		metrics:       m,
		requestsTopic: deps.RequestsTopic,
		resultsTopic:  deps.ResultsTopic,
		nowFn:         func() time.Time { return time.Now().UTC() },
	}
}

// Run is the main loop: fetch, infer, publish, commit. The commit comes
// strictly after the result publish; a crash in between redelivers the
// request and produces a duplicate result, which the gateway's store
// absorbs. Returns when ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "worker ready", "model", w.classifier.Name())
	for {
		msg, err := w.requests.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.InfoContext(ctx, "worker stopping")
				return ctx.Err()
			}
			w.logger.ErrorContext(ctx, "request fetch failed", "error", err)
			if !sleepCtx(ctx, fetchRetryDelay) {
				return ctx.Err()
			}
			continue
		}
		w.metrics.MessagesConsumed.WithLabelValues(w.requestsTopic).Inc()

		var req domain.PredictionRequest
		if err := json.Unmarshal(msg.Value, &req); err != nil || req.RequestID == "" {
			if err == nil {
				err = errors.New("missing request_id")
			}
			w.metrics.ProcessingErrors.WithLabelValues("decode").Inc()
			deadLetter(ctx, w.logger, w.deadLetter, msg, err)
			w.commit(ctx, msg)
			continue
		}

		result := w.process(ctx, req)
		payload, err := json.Marshal(result)
		if err != nil {
			w.metrics.ProcessingErrors.WithLabelValues("encode").Inc()
			w.logger.ErrorContext(ctx, "result encode failed", "request_id", req.RequestID, "error", err)
			w.commit(ctx, msg)
			continue
		}

		if err := w.results.Publish(ctx, result.RequestID, payload); err != nil {
			// No commit: the request is redelivered and inference runs
			// again, which is the accepted at-least-once trade-off.
			w.metrics.ProcessingErrors.WithLabelValues("publish").Inc()
			w.logger.ErrorContext(ctx, "result publish failed",
				"request_id", req.RequestID,
				"topic", w.resultsTopic,
				"error", err,
			)
			continue
		}
		w.metrics.ResultsProduced.WithLabelValues(w.resultsTopic).Inc()
		w.commit(ctx, msg)

		w.logger.InfoContext(ctx, "request completed",
			"request_id", result.RequestID,
			"label", result.Label,
			"score", result.Score,
			"status", string(result.Status),
			"inference_ms", result.InferenceTimeMs,
		)
	}
}

// process never returns an error: inference failure becomes a failed
// result so the requester gets a terminal status instead of a silent
// drop.
func (w *Worker) process(ctx context.Context, req domain.PredictionRequest) domain.PredictionResult {
	start := time.Now()
	pred, err := w.classifier.Classify(ctx, req.Text)
	elapsed := time.Since(start)
	w.metrics.InferenceLatency.Observe(elapsed.Seconds())
	if err != nil {
		w.metrics.InferenceCount.WithLabelValues("error").Inc()
		w.metrics.ProcessingErrors.WithLabelValues(fmt.Sprintf("%T", err)).Inc()
		w.logger.ErrorContext(ctx, "inference failed", "request_id", req.RequestID, "error", err)
		return domain.NewFailedResult(req.RequestID, w.classifier.Name(), w.nowFn())
	}
	w.metrics.InferenceCount.WithLabelValues("success").Inc()
	return domain.NewCompletedResult(req.RequestID, pred.Label, pred.Score, w.classifier.Name(), elapsed, w.nowFn())
}

func (w *Worker) commit(ctx context.Context, msg ports.BrokerMessage) {
	if err := w.requests.Commit(ctx, msg); err != nil && ctx.Err() == nil {
		w.logger.WarnContext(ctx, "offset commit failed",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
	}
}
