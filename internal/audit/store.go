package audit

import (
	"context"
	"sync"
)

// Sink persists edit-log events. Implementations: in-memory (tests, default
// deployment) and Kafka (shared log for ops tooling).
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// MemoryStore is an append-only in-memory sink with a read side for tests and
// the admin debug view.
type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// List returns a copy of all recorded events in append order.
func (s *MemoryStore) List(_ context.Context) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.events...), nil
}
