// Package application implements the gateway orchestrator and the worker
// loop on top of the broker, store, and classifier ports.
package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/macmajerczyk-dot/ml-pipeline/internal/adapters/metrics"
	"github.com/macmajerczyk-dot/ml-pipeline/internal/domain"
	"github.com/macmajerczyk-dot/ml-pipeline/internal/ports"
	"github.com/macmajerczyk-dot/ml-pipeline/internal/store"
)

// fetchRetryDelay spaces out fetch retries after transient broker errors.
const fetchRetryDelay = time.Second

type Gateway struct {
	logger        *slog.Logger
	store         *store.ResultStore
	requests      ports.Publisher
	results       ports.Consumer
	deadLetter    ports.Publisher // optional
	metrics       *metrics.Gateway
	requestsTopic string
	nowFn         func() time.Time
	idFn          func() string
}

type GatewayDeps struct {
	Logger        *slog.Logger
	Store         *store.ResultStore
	Requests      ports.Publisher
	Results       ports.Consumer
	DeadLetter    ports.Publisher
	Metrics       *metrics.Gateway
	RequestsTopic string
}

func NewGateway(deps GatewayDeps) *Gateway {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := deps.Metrics
	if m == nil {
		m = metrics.NewGateway(nil, nil)
	}
	return &Gateway{
		logger:        logger,
		store:         deps.Store,
		requests:      deps.Requests,
		results:       deps.Results,
		deadLetter:    deps.DeadLetter,
		metrics:       m,
		requestsTopic: deps.RequestsTopic,
		nowFn:         func() time.Time { return time.Now().UTC() },
		idFn:          uuid.NewString,
	}
}

// Submit accepts a prediction request: validate, record it as pending,
// publish it keyed by id, and return the id immediately. Accepted means
// enqueued, not completed. A failed publish rolls the pending entry back
// so the id does not linger as a never-resolving pending state.
func (g *Gateway) Submit(ctx context.Context, text string) (string, error) {
	if err := domain.ValidateText(text); err != nil {
		return "", err
	}

	req := domain.PredictionRequest{
		RequestID: g.idFn(),
		Text:      text,
		CreatedAt: g.nowFn(),
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode prediction request: %w", err)
	}

	g.store.PutPending(req.RequestID)
	if err := g.requests.Publish(ctx, req.RequestID, payload); err != nil {
		g.store.Delete(req.RequestID)
		g.metrics.ProduceErrors.WithLabelValues(g.requestsTopic).Inc()
		g.logger.ErrorContext(ctx, "request publish failed",
			"request_id", req.RequestID,
			"topic", g.requestsTopic,
			"error", err,
		)
		return "", fmt.Errorf("%w: enqueue prediction request", domain.ErrDependencyUnavailable)
	}
	g.metrics.MessagesProduced.WithLabelValues(g.requestsTopic).Inc()
	g.logger.InfoContext(ctx, "prediction submitted", "request_id", req.RequestID)
	return req.RequestID, nil
}

// Status looks the id up in the result store only; it never touches the
// broker. A missing entry means the id was never issued or has been
// evicted, which callers surface as not-found.
func (g *Gateway) Status(_ context.Context, requestID string) (store.CacheEntry, error) {
	entry, ok := g.store.Get(requestID)
	if !ok {
		return store.CacheEntry{}, domain.ErrNotFound
	}
	return entry, nil
}

// DrainResults runs until ctx is cancelled, moving result messages into
// the store. The offset is committed only after the store write, so a
// crash in between redelivers the message; the pending-only transition in
// the store makes that redelivery a no-op.
func (g *Gateway) DrainResults(ctx context.Context) error {
	g.logger.InfoContext(ctx, "results consumer started")
	for {
		msg, err := g.results.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				g.logger.InfoContext(ctx, "results consumer stopping")
				return ctx.Err()
			}
			g.logger.ErrorContext(ctx, "result fetch failed", "error", err)
			if !sleepCtx(ctx, fetchRetryDelay) {
				return ctx.Err()
			}
			continue
		}

		var result domain.PredictionResult
		if err := json.Unmarshal(msg.Value, &result); err != nil || result.RequestID == "" {
			if err == nil {
				err = errors.New("missing request_id")
			}
			deadLetter(ctx, g.logger, g.deadLetter, msg, err)
			g.commit(ctx, msg)
			continue
		}

		if applied := g.store.Complete(result); !applied {
			g.logger.WarnContext(ctx, "duplicate result absorbed",
				"request_id", result.RequestID,
				"partition", msg.Partition,
				"offset", msg.Offset,
			)
		} else {
			g.logger.InfoContext(ctx, "result received",
				"request_id", result.RequestID,
				"label", result.Label,
				"score", result.Score,
				"status", string(result.Status),
			)
		}
		g.metrics.ResultsReceived.WithLabelValues(string(result.Status)).Inc()
		g.commit(ctx, msg)
	}
}

func (g *Gateway) commit(ctx context.Context, msg ports.BrokerMessage) {
	// A failed commit is tolerable: the message is redelivered and the
	// store upsert is idempotent.
	if err := g.results.Commit(ctx, msg); err != nil && ctx.Err() == nil {
		g.logger.WarnContext(ctx, "offset commit failed",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
	}
}
