package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/macmajerczyk-dot/ml-pipeline/internal/ports"
)

// deadLetter handles a payload that cannot be decoded. Decode failures
// are deterministic, so the message is forwarded to the dead-letter topic
// (when one is configured) and then skipped; retrying would fail
// identically and wedge the partition.
func deadLetter(ctx context.Context, logger *slog.Logger, dlq ports.Publisher, msg ports.BrokerMessage, cause error) {
	logger.WarnContext(ctx, "malformed message skipped",
		"topic", msg.Topic,
		"partition", msg.Partition,
		"offset", msg.Offset,
		"error", cause,
	)
	if dlq == nil {
		return
	}
	if err := dlq.Publish(ctx, string(msg.Key), msg.Value); err != nil {
		logger.ErrorContext(ctx, "dead-letter publish failed",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
	}
}

// sleepCtx waits for d or until ctx is cancelled, reporting whether the
// full delay elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
