package document

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/suite"

	"outing/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *MemoryStore
	ctx   context.Context
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewMemoryStore()
	s.ctx = context.Background()
}

func (s *MemoryStoreSuite) TestAbsentKeyReadsAsNotFound() {
	_, err := s.store.Get(s.ctx, KeyRegistrations)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestSetReplacesWholeDocument() {
	s.Require().NoError(s.store.Set(s.ctx, KeyRegistrations, json.RawMessage(`[{"id":"a"}]`)))
	s.Require().NoError(s.store.Set(s.ctx, KeyRegistrations, json.RawMessage(`[{"id":"b"}]`)))

	doc, err := s.store.Get(s.ctx, KeyRegistrations)
	s.Require().NoError(err)
	s.JSONEq(`[{"id":"b"}]`, string(doc), "every set fully replaces the prior value")
}

func (s *MemoryStoreSuite) TestKeysAreIndependent() {
	s.Require().NoError(s.store.Set(s.ctx, KeyRegistrations, json.RawMessage(`[]`)))
	s.Require().NoError(s.store.Set(s.ctx, KeyAppConfig, json.RawMessage(`{"maxCapacity":28}`)))

	s.Require().NoError(s.store.Delete(s.ctx, KeyRegistrations))

	_, err := s.store.Get(s.ctx, KeyRegistrations)
	s.ErrorIs(err, sentinel.ErrNotFound)

	doc, err := s.store.Get(s.ctx, KeyAppConfig)
	s.Require().NoError(err)
	s.JSONEq(`{"maxCapacity":28}`, string(doc))
}

func (s *MemoryStoreSuite) TestDeleteAbsentKeyIsIdempotent() {
	s.NoError(s.store.Delete(s.ctx, KeyCampusGuide))
}

func (s *MemoryStoreSuite) TestReturnedDocumentIsACopy() {
	s.Require().NoError(s.store.Set(s.ctx, KeyCampusGuide, json.RawMessage(`[1]`)))

	doc, err := s.store.Get(s.ctx, KeyCampusGuide)
	s.Require().NoError(err)
	doc[1] = '9'

	again, err := s.store.Get(s.ctx, KeyCampusGuide)
	s.Require().NoError(err)
	s.JSONEq(`[1]`, string(again), "callers must not be able to mutate stored state")
}
