// Package store holds the gateway's bounded in-memory result cache.
package store

import (
	"container/list"
	"sync"
	"time"

	"github.com/macmajerczyk-dot/ml-pipeline/internal/domain"
)

const DefaultCapacity = 10000

// CacheEntry tracks one submitted request from acceptance to terminal
// state. An entry may be evicted at any time regardless of status; the
// caller then observes not-found rather than stale data.
type CacheEntry struct {
	RequestID    string
	Status       domain.TaskStatus
	Result       *domain.PredictionResult
	StoredAt     time.Time
	LastAccessed time.Time
}

// ResultStore maps request id -> CacheEntry with least-recently-used
// eviction beyond a fixed capacity. A single mutex serializes the
// API-serving readers and the result-drain writer: Get mutates recency
// order, so a read lock would not be enough.
type ResultStore struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List // front = most recently accessed
	nowFn    func() time.Time
}

func NewResultStore(capacity int) *ResultStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &ResultStore{
		capacity: capacity,
		entries:  make(map[string]*list.Element, capacity),
		order:    list.New(),
		nowFn:    func() time.Time { return time.Now().UTC() },
	}
}

// PutPending records a freshly accepted request. Re-putting an existing
// id only refreshes its recency; it never regresses a terminal status.
func (s *ResultStore) PutPending(requestID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if el, ok := s.entries[requestID]; ok {
		s.touch(el)
		return
	}
	s.insert(&CacheEntry{
		RequestID: requestID,
		Status:    domain.TaskStatusPending,
	})
}

// Get returns a copy of the entry and refreshes its recency.
func (s *ResultStore) Get(requestID string) (CacheEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.entries[requestID]
	if !ok {
		return CacheEntry{}, false
	}
	s.touch(el)
	entry := el.Value.(*CacheEntry)
	return *entry, true
}

// Complete applies a result message. The transition out of pending
// happens at most once: a duplicate delivery for an already-terminal
// entry is a no-op and reports false. An id with no entry (evicted before
// its result arrived, or redelivered after eviction) is re-inserted in
// terminal state so late polls can still see it.
func (s *ResultStore) Complete(result domain.PredictionResult) bool {
	if !result.Status.Terminal() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	res := result
	if el, ok := s.entries[result.RequestID]; ok {
		entry := el.Value.(*CacheEntry)
		if entry.Status.Terminal() {
			return false
		}
		entry.Status = result.Status
		entry.Result = &res
		s.touch(el)
		return true
	}
	s.insert(&CacheEntry{
		RequestID: result.RequestID,
		Status:    result.Status,
		Result:    &res,
	})
	return true
}

// Delete removes an entry, if present. Used to roll back the pending
// entry when the request publish fails.
func (s *ResultStore) Delete(requestID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if el, ok := s.entries[requestID]; ok {
		s.remove(el)
	}
}

func (s *ResultStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

// insert adds a new entry at the front and evicts from the back until the
// store is within capacity. Callers hold s.mu.
func (s *ResultStore) insert(entry *CacheEntry) {
	now := s.nowFn()
	entry.StoredAt = now
	entry.LastAccessed = now
	s.entries[entry.RequestID] = s.order.PushFront(entry)
	for s.order.Len() > s.capacity {
		s.remove(s.order.Back())
	}
}

func (s *ResultStore) touch(el *list.Element) {
	el.Value.(*CacheEntry).LastAccessed = s.nowFn()
	s.order.MoveToFront(el)
}

func (s *ResultStore) remove(el *list.Element) {
	entry := el.Value.(*CacheEntry)
	delete(s.entries, entry.RequestID)
	s.order.Remove(el)
}
