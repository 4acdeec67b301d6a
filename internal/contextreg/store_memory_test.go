package contextreg

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "tokenctx/pkg/domain"
	"tokenctx/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *InMemoryStore
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemoryStore()
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) TestCreateAndGet() {
	hash := id.ComputeCtxHash("alice", []byte("scope"))
	record := Context{Controller: "ctrl", DetachingDuration: time.Hour, Active: true}

	s.Require().NoError(s.store.Create(s.ctx, hash, record))

	got, err := s.store.Get(s.ctx, hash)
	s.Require().NoError(err)
	s.Equal(record, *got)
}

func (s *InMemoryStoreSuite) TestCreateConflict() {
	hash := id.ComputeCtxHash("alice", []byte("scope"))
	record := Context{Controller: "ctrl", Active: true}

	s.Require().NoError(s.store.Create(s.ctx, hash, record))
	s.ErrorIs(s.store.Create(s.ctx, hash, record), sentinel.ErrConflict)
}

func (s *InMemoryStoreSuite) TestGetMissing() {
	_, err := s.store.Get(s.ctx, id.ComputeCtxHash("alice", []byte("missing")))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestUpdate() {
	hash := id.ComputeCtxHash("alice", []byte("scope"))
	s.Require().NoError(s.store.Create(s.ctx, hash, Context{Controller: "ctrl", Active: true}))

	updated := Context{Controller: "other", DetachingDuration: 2 * time.Hour, Active: false}
	s.Require().NoError(s.store.Update(s.ctx, hash, updated))

	got, err := s.store.Get(s.ctx, hash)
	s.Require().NoError(err)
	s.Equal(updated, *got)
}

func (s *InMemoryStoreSuite) TestUpdateMissing() {
	err := s.store.Update(s.ctx, id.ComputeCtxHash("alice", []byte("missing")), Context{})
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestGetReturnsCopy() {
	hash := id.ComputeCtxHash("alice", []byte("scope"))
	s.Require().NoError(s.store.Create(s.ctx, hash, Context{Controller: "ctrl", Active: true}))

	got, err := s.store.Get(s.ctx, hash)
	s.Require().NoError(err)
	got.Active = false

	again, err := s.store.Get(s.ctx, hash)
	s.Require().NoError(err)
	s.True(again.Active, "mutating a returned record must not touch the store")
}
