package document

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"outing/pkg/platform/sentinel"
)

// FallbackMetrics is the slice of platform metrics the fallback layer reports to.
type FallbackMetrics interface {
	// Called once per read served from the local copy instead of the backend.
	StoreFallback()
}

// FallbackStore is a read-through wrapper around a remote Store. Reads that
// fail with a transport error are answered from the last successfully read
// copy; a key never seen reads as absent, so callers proceed with empty
// collections instead of blocking. Writes always go to the remote and
// propagate failure, because a silently lost write would corrupt the
// admission and edit accounting for everyone else.
type FallbackStore struct {
	remote  Store
	metrics FallbackMetrics

	mu    sync.RWMutex
	cache map[string]json.RawMessage
}

func NewFallbackStore(remote Store, metrics FallbackMetrics) *FallbackStore {
	return &FallbackStore{
		remote:  remote,
		metrics: metrics,
		cache:   make(map[string]json.RawMessage),
	}
}

func (s *FallbackStore) Get(ctx context.Context, key string) (json.RawMessage, error) {
	doc, err := s.remote.Get(ctx, key)
	switch {
	case err == nil:
		s.remember(key, doc)
		return doc, nil
	case errors.Is(err, sentinel.ErrNotFound):
		s.forget(key)
		return nil, sentinel.ErrNotFound
	}

	// Transport failure: serve the stale copy when we have one.
	s.mu.RLock()
	cached, ok := s.cache[key]
	s.mu.RUnlock()
	if ok {
		if s.metrics != nil {
			s.metrics.StoreFallback()
		}
		return cached, nil
	}
	return nil, err
}

func (s *FallbackStore) Set(ctx context.Context, key string, doc json.RawMessage) error {
	if err := s.remote.Set(ctx, key, doc); err != nil {
		return err
	}
	s.remember(key, doc)
	return nil
}

func (s *FallbackStore) Delete(ctx context.Context, key string) error {
	if err := s.remote.Delete(ctx, key); err != nil {
		return err
	}
	s.forget(key)
	return nil
}

func (s *FallbackStore) remember(key string, doc json.RawMessage) {
	stored := make(json.RawMessage, len(doc))
	copy(stored, doc)
	s.mu.Lock()
	s.cache[key] = stored
	s.mu.Unlock()
}

func (s *FallbackStore) forget(key string) {
	s.mu.Lock()
	delete(s.cache, key)
	s.mu.Unlock()
}
