// Package ratelimit bounds submission throughput per client. The Redis
// limiter coordinates across gateway replicas; the in-memory limiter is
// the degraded single-instance fallback.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/macmajerczyk-dot/ml-pipeline/internal/ports"
)

// Connect parses the URL and verifies the server responds before the
// limiter is wired in.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// RedisLimiter implements a fixed-window counter, one key per client per
// window. Fails open: a Redis error admits the request rather than
// turning the limiter into an outage amplifier.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RedisLimiter{client: client, limit: limit, window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	bucket := fmt.Sprintf("ratelimit:%s:%d", key, time.Now().Unix()/int64(l.window.Seconds()))
	count, err := l.client.Incr(ctx, bucket).Result()
	if err != nil {
		return true, fmt.Errorf("ratelimit incr: %w", err)
	}
	if count == 1 {
		// First hit in the window sets the expiry; one extra second so
		// the key outlives the window boundary.
		if err := l.client.Expire(ctx, bucket, l.window+time.Second).Err(); err != nil {
			return true, fmt.Errorf("ratelimit expire: %w", err)
		}
	}
	return count <= int64(l.limit), nil
}

var _ ports.RateLimiter = (*RedisLimiter)(nil)
