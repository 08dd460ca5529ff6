package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/macmajerczyk-dot/ml-pipeline/internal/domain"
	"github.com/macmajerczyk-dot/ml-pipeline/internal/ports"
	"github.com/macmajerczyk-dot/ml-pipeline/internal/store"
)

func newTestGateway(requests *fakePublisher, results *fakeConsumer, dlq ports.Publisher, capacity int) (*Gateway, *store.ResultStore) {
	s := store.NewResultStore(capacity)
	g := NewGateway(GatewayDeps{
		Store:         s,
		Requests:      requests,
		Results:       results,
		DeadLetter:    dlq,
		RequestsTopic: "ml.prediction.requests",
	})
	return g, s
}

func resultPayload(t *testing.T, result domain.PredictionResult) []byte {
	t.Helper()
	payload, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}
	return payload
}

func TestSubmitPublishesKeyedRequestAndReturnsPending(t *testing.T) {
	t.Parallel()

	requests := &fakePublisher{}
	g, s := newTestGateway(requests, newFakeConsumer(1), nil, 16)

	id, err := g.Submit(context.Background(), "great product")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if id == "" {
		t.Fatalf("expected a request id")
	}

	entry, ok := s.Get(id)
	if !ok || entry.Status != domain.TaskStatusPending {
		t.Fatalf("expected pending entry, got %+v ok=%v", entry, ok)
	}

	published := requests.published()
	if len(published) != 1 {
		t.Fatalf("expected 1 published message, got %d", len(published))
	}
	if published[0].Key != id {
		t.Fatalf("message key %q does not match request id %q", published[0].Key, id)
	}
	var req domain.PredictionRequest
	if err := json.Unmarshal(published[0].Value, &req); err != nil {
		t.Fatalf("unmarshal published request: %v", err)
	}
	if req.RequestID != id || req.Text != "great product" {
		t.Fatalf("unexpected payload: %+v", req)
	}
}

func TestSubmitRejectsInvalidText(t *testing.T) {
	t.Parallel()

	requests := &fakePublisher{}
	g, _ := newTestGateway(requests, newFakeConsumer(1), nil, 16)

	for _, text := range []string{"", "   "} {
		if _, err := g.Submit(context.Background(), text); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("text %q: expected ErrInvalidInput, got %v", text, err)
		}
	}
	if requests.attemptCount() != 0 {
		t.Fatalf("invalid input must not reach the broker")
	}
}

func TestSubmitPublishFailureRollsBackPendingEntry(t *testing.T) {
	t.Parallel()

	requests := &fakePublisher{failWith: errBrokerDown}
	g, s := newTestGateway(requests, newFakeConsumer(1), nil, 16)

	_, err := g.Submit(context.Background(), "great product")
	if !errors.Is(err, domain.ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}
	if got := s.Len(); got != 0 {
		t.Fatalf("expected pending entry rollback, store has %d entries", got)
	}
}

func TestStatusUnknownIDReturnsNotFound(t *testing.T) {
	t.Parallel()

	g, _ := newTestGateway(&fakePublisher{}, newFakeConsumer(1), nil, 16)
	if _, err := g.Status(context.Background(), "never-issued"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDrainStoresResultThenCommits(t *testing.T) {
	t.Parallel()

	results := newFakeConsumer(4)
	g, s := newTestGateway(&fakePublisher{}, results, nil, 16)

	id, err := g.Submit(context.Background(), "great product")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = g.DrainResults(ctx)
	}()

	result := domain.PredictionResult{
		RequestID: id,
		Label:     "POSITIVE",
		Score:     0.97,
		ModelName: "fake-model",
		Status:    domain.TaskStatusCompleted,
		CreatedAt: time.Now().UTC(),
	}
	results.ch <- ports.BrokerMessage{Topic: "ml.prediction.results", Offset: 7, Key: []byte(id), Value: resultPayload(t, result)}

	waitFor(t, func() bool {
		entry, ok := s.Get(id)
		return ok && entry.Status == domain.TaskStatusCompleted
	})
	waitFor(t, func() bool { return len(results.committedOffsets()) == 1 })
	if offsets := results.committedOffsets(); offsets[0] != 7 {
		t.Fatalf("expected offset 7 committed, got %v", offsets)
	}

	entry, _ := s.Get(id)
	if entry.Result == nil || entry.Result.Label != "POSITIVE" || entry.Result.Score != 0.97 {
		t.Fatalf("unexpected stored result: %+v", entry.Result)
	}

	cancel()
	<-done
}

func TestDrainAbsorbsDuplicateResults(t *testing.T) {
	t.Parallel()

	results := newFakeConsumer(4)
	g, s := newTestGateway(&fakePublisher{}, results, nil, 16)

	id, err := g.Submit(context.Background(), "great product")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = g.DrainResults(ctx)
	}()

	first := domain.PredictionResult{RequestID: id, Label: "POSITIVE", Score: 0.9, Status: domain.TaskStatusCompleted}
	second := domain.PredictionResult{RequestID: id, Label: "NEGATIVE", Score: 0.1, Status: domain.TaskStatusFailed}
	results.ch <- ports.BrokerMessage{Offset: 1, Value: resultPayload(t, first)}
	results.ch <- ports.BrokerMessage{Offset: 2, Value: resultPayload(t, second)}

	// Both offsets commit, but only the first terminal transition lands.
	waitFor(t, func() bool { return len(results.committedOffsets()) == 2 })
	entry, _ := s.Get(id)
	if entry.Status != domain.TaskStatusCompleted || entry.Result.Label != "POSITIVE" {
		t.Fatalf("duplicate overwrote terminal state: %+v", entry)
	}

	cancel()
	<-done
}

func TestDrainDeadLettersMalformedPayloadAndCommits(t *testing.T) {
	t.Parallel()

	results := newFakeConsumer(4)
	dlq := &fakePublisher{}
	g, _ := newTestGateway(&fakePublisher{}, results, dlq, 16)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = g.DrainResults(ctx)
	}()

	results.ch <- ports.BrokerMessage{Offset: 3, Key: []byte("poison"), Value: []byte("{not json")}
	results.ch <- ports.BrokerMessage{Offset: 4, Value: []byte(`{"label":"x"}`)} // missing request_id

	waitFor(t, func() bool { return len(results.committedOffsets()) == 2 })
	if got := len(dlq.published()); got != 2 {
		t.Fatalf("expected 2 dead-lettered payloads, got %d", got)
	}

	cancel()
	<-done
}

func TestDrainStopsOnCancel(t *testing.T) {
	t.Parallel()

	g, _ := newTestGateway(&fakePublisher{}, newFakeConsumer(1), nil, 16)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.DrainResults(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("drain did not stop after cancellation")
	}
}

func TestConcurrentSubmitsYieldDistinctResolvingIDs(t *testing.T) {
	t.Parallel()

	const k = 32
	results := newFakeConsumer(k)
	g, s := newTestGateway(&fakePublisher{}, results, nil, k*2)

	ids := make([]string, k)
	var wg sync.WaitGroup
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := g.Submit(context.Background(), fmt.Sprintf("review number %d is great", i))
			if err != nil {
				t.Errorf("submit %d: %v", i, err)
				return
			}
			ids[i] = id
		}(i)
	}
	wg.Wait()

	seen := make(map[string]struct{}, k)
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate request id %q", id)
		}
		seen[id] = struct{}{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = g.DrainResults(ctx)
	}()
	for i, id := range ids {
		status := domain.TaskStatusCompleted
		if i%5 == 0 {
			status = domain.TaskStatusFailed
		}
		res := domain.PredictionResult{RequestID: id, Label: "POSITIVE", Score: 0.8, Status: status}
		results.ch <- ports.BrokerMessage{Offset: int64(i), Value: resultPayload(t, res)}
	}

	waitFor(t, func() bool {
		for _, id := range ids {
			entry, ok := s.Get(id)
			if !ok || !entry.Status.Terminal() {
				return false
			}
		}
		return true
	})

	cancel()
	<-done
}
