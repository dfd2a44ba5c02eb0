package document

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"

	"outing/pkg/platform/sentinel"
)

// flakyStore wraps a MemoryStore and fails every call while down is set,
// simulating backend unavailability.
type flakyStore struct {
	inner *MemoryStore
	down  atomic.Bool
}

func (f *flakyStore) Get(ctx context.Context, key string) (json.RawMessage, error) {
	if f.down.Load() {
		return nil, fmt.Errorf("get %s: %w", key, sentinel.ErrUnavailable)
	}
	return f.inner.Get(ctx, key)
}

func (f *flakyStore) Set(ctx context.Context, key string, doc json.RawMessage) error {
	if f.down.Load() {
		return fmt.Errorf("set %s: %w", key, sentinel.ErrUnavailable)
	}
	return f.inner.Set(ctx, key, doc)
}

func (f *flakyStore) Delete(ctx context.Context, key string) error {
	if f.down.Load() {
		return fmt.Errorf("del %s: %w", key, sentinel.ErrUnavailable)
	}
	return f.inner.Delete(ctx, key)
}

type countingMetrics struct {
	fallbacks atomic.Int64
}

func (m *countingMetrics) StoreFallback() { m.fallbacks.Add(1) }

type FallbackStoreSuite struct {
	suite.Suite
	remote  *flakyStore
	metrics *countingMetrics
	store   *FallbackStore
	ctx     context.Context
}

func TestFallbackStoreSuite(t *testing.T) {
	suite.Run(t, new(FallbackStoreSuite))
}

func (s *FallbackStoreSuite) SetupTest() {
	s.remote = &flakyStore{inner: NewMemoryStore()}
	s.metrics = &countingMetrics{}
	s.store = NewFallbackStore(s.remote, s.metrics)
	s.ctx = context.Background()
}

func (s *FallbackStoreSuite) TestReadThroughServesStaleCopyWhenBackendDown() {
	s.Require().NoError(s.store.Set(s.ctx, KeyRegistrations, json.RawMessage(`[{"id":"a"}]`)))

	s.remote.down.Store(true)

	doc, err := s.store.Get(s.ctx, KeyRegistrations)
	s.Require().NoError(err, "reads degrade to the cached copy instead of failing")
	s.JSONEq(`[{"id":"a"}]`, string(doc))
	s.EqualValues(1, s.metrics.fallbacks.Load())
}

func (s *FallbackStoreSuite) TestReadWithNoCacheSurfacesUnavailable() {
	s.remote.down.Store(true)

	_, err := s.store.Get(s.ctx, KeyRegistrations)
	s.ErrorIs(err, sentinel.ErrUnavailable)
}

func (s *FallbackStoreSuite) TestAbsentKeyStaysNotFound() {
	_, err := s.store.Get(s.ctx, KeyRegistrations)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *FallbackStoreSuite) TestWriteFailurePropagatesAndKeepsOldCache() {
	s.Require().NoError(s.store.Set(s.ctx, KeyRegistrations, json.RawMessage(`[{"id":"a"}]`)))

	s.remote.down.Store(true)
	err := s.store.Set(s.ctx, KeyRegistrations, json.RawMessage(`[{"id":"b"}]`))
	s.ErrorIs(err, sentinel.ErrUnavailable, "write failures must surface to the submitter")

	doc, err := s.store.Get(s.ctx, KeyRegistrations)
	s.Require().NoError(err)
	s.JSONEq(`[{"id":"a"}]`, string(doc), "a failed write must not poison the cached copy")
}

func (s *FallbackStoreSuite) TestSuccessfulReadRefreshesCache() {
	s.Require().NoError(s.remote.inner.Set(s.ctx, KeyAppConfig, json.RawMessage(`{"maxCapacity":28}`)))

	doc, err := s.store.Get(s.ctx, KeyAppConfig)
	s.Require().NoError(err)
	s.JSONEq(`{"maxCapacity":28}`, string(doc))

	s.remote.down.Store(true)
	doc, err = s.store.Get(s.ctx, KeyAppConfig)
	s.Require().NoError(err)
	s.JSONEq(`{"maxCapacity":28}`, string(doc))
}

func (s *FallbackStoreSuite) TestDeleteDropsCache() {
	s.Require().NoError(s.store.Set(s.ctx, KeyRegistrations, json.RawMessage(`[]`)))
	s.Require().NoError(s.store.Delete(s.ctx, KeyRegistrations))

	s.remote.down.Store(true)
	_, err := s.store.Get(s.ctx, KeyRegistrations)
	s.Error(err, "a cleared key must not resurrect from the cache")
}
