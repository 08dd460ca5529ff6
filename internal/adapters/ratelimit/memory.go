package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/macmajerczyk-dot/ml-pipeline/internal/ports"
)

type window struct {
	start time.Time
	count int
}

// MemoryLimiter is the in-process fixed-window limiter used when no Redis
// URL is configured. Limits apply per gateway instance.
type MemoryLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	buckets map[string]*window
	nowFn   func() time.Time
}

func NewMemoryLimiter(limit int, windowSize time.Duration) *MemoryLimiter {
	if limit <= 0 {
		limit = 60
	}
	if windowSize <= 0 {
		windowSize = time.Minute
	}
	return &MemoryLimiter{
		limit:   limit,
		window:  windowSize,
		buckets: make(map[string]*window),
		nowFn:   time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := l.nowFn()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok || now.Sub(b.start) >= l.window {
		l.buckets[key] = &window{start: now, count: 1}
		l.prune(now)
		return true, nil
	}
	b.count++
	return b.count <= l.limit, nil
}

// prune drops expired buckets so idle keys do not accumulate. Called with
// l.mu held, on the window-rollover path only.
func (l *MemoryLimiter) prune(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.start) >= l.window {
			delete(l.buckets, key)
		}
	}
}

var _ ports.RateLimiter = (*MemoryLimiter)(nil)
