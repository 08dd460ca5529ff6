package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/macmajerczyk-dot/ml-pipeline/internal/ports"
)

type publishedMessage struct {
	Key   string
	Value []byte
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []publishedMessage
	attempts int
	failWith error
}

func (p *fakePublisher) Publish(_ context.Context, key string, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts++
	if p.failWith != nil {
		return p.failWith
	}
	p.messages = append(p.messages, publishedMessage{Key: key, Value: append([]byte(nil), value...)})
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) published() []publishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedMessage(nil), p.messages...)
}

func (p *fakePublisher) attemptCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempts
}

type fakeConsumer struct {
	ch        chan ports.BrokerMessage
	mu        sync.Mutex
	committed []int64
}

func newFakeConsumer(buffer int) *fakeConsumer {
	return &fakeConsumer{ch: make(chan ports.BrokerMessage, buffer)}
}

func (c *fakeConsumer) Fetch(ctx context.Context) (ports.BrokerMessage, error) {
	select {
	case <-ctx.Done():
		return ports.BrokerMessage{}, ctx.Err()
	case msg := <-c.ch:
		return msg, nil
	}
}

func (c *fakeConsumer) Commit(_ context.Context, msg ports.BrokerMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.committed = append(c.committed, msg.Offset)
	return nil
}

func (c *fakeConsumer) Close() error { return nil }

func (c *fakeConsumer) committedOffsets() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int64(nil), c.committed...)
}

type fakeClassifier struct {
	label string
	score float64
	err   error
}

func (f *fakeClassifier) Classify(_ context.Context, _ string) (ports.Prediction, error) {
	if f.err != nil {
		return ports.Prediction{}, f.err
	}
	return ports.Prediction{Label: f.label, Score: f.score}, nil
}

func (f *fakeClassifier) Name() string { return "fake-model" }

var errBrokerDown = errors.New("broker down")

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within deadline")
}
