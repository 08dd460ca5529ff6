// Package kafka adapts the broker primitives (connect, publish, fetch,
// commit) shared by the gateway and the worker.
package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

const maxBackoff = 30 * time.Second

// Await blocks until one of the brokers accepts a connection, retrying
// with exponential backoff. Exhausting the attempts is fatal for the
// owning service; the returned error carries the last dial failure.
func Await(ctx context.Context, logger *slog.Logger, brokers []string, maxAttempts int, backoffBase time.Duration) error {
	if len(brokers) == 0 {
		return fmt.Errorf("kafka: at least one broker address required")
	}
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	if backoffBase <= 0 {
		backoffBase = 500 * time.Millisecond
	}

	backoff := backoffBase
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		for _, addr := range brokers {
			conn, err := kafka.DialContext(ctx, "tcp", addr)
			if err == nil {
				_ = conn.Close()
				logger.InfoContext(ctx, "kafka broker reachable", "broker", addr, "attempt", attempt)
				return nil
			}
			lastErr = err
		}
		if attempt == maxAttempts {
			break
		}
		logger.WarnContext(ctx, "kafka dial failed, retrying",
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"backoff", backoff.String(),
			"error", lastErr,
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
	return fmt.Errorf("kafka: brokers unreachable after %d attempts: %w", maxAttempts, lastErr)
}
