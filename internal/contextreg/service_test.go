package contextreg

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"tokenctx/internal/event"
	id "tokenctx/pkg/domain"
	dErrors "tokenctx/pkg/domain-errors"
)

const maxDetaching = 7 * 24 * time.Hour

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	events  *event.InMemoryStore
	service *Service
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.events = event.NewInMemoryStore()
	s.service = New(NewInMemoryStore(), maxDetaching,
		WithEventPublisher(event.NewPublisher(s.events)),
	)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) TestCreate() {
	hash, err := s.service.Create(s.ctx, "alice", "ctrl", time.Hour, []byte("scope"))
	s.Require().NoError(err)
	s.Equal(id.ComputeCtxHash("alice", []byte("scope")), hash)

	record, err := s.service.Get(s.ctx, hash)
	s.Require().NoError(err)
	s.Equal(id.Identity("ctrl"), record.Controller)
	s.Equal(time.Hour, record.DetachingDuration)
	s.True(record.Active)

	events, err := s.events.ListAll(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(event.TypeContextUpdated, events[0].Type)
}

func (s *ServiceSuite) TestCreateRejectsZeroController() {
	_, err := s.service.Create(s.ctx, "alice", id.ZeroIdentity, time.Hour, []byte("scope"))
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidController))
}

func (s *ServiceSuite) TestCreateRejectsExcessiveDuration() {
	_, err := s.service.Create(s.ctx, "alice", "ctrl", maxDetaching+time.Second, []byte("scope"))
	s.True(dErrors.HasCode(err, dErrors.CodeExceededMaxDetachingDuration))
}

func (s *ServiceSuite) TestCreateAllowsZeroDuration() {
	_, err := s.service.Create(s.ctx, "alice", "ctrl", 0, []byte("scope"))
	s.NoError(err)
}

func (s *ServiceSuite) TestCreateDuplicateFails() {
	_, err := s.service.Create(s.ctx, "alice", "ctrl", time.Hour, []byte("scope"))
	s.Require().NoError(err)

	// Same creator, same message: same hash, even with other parameters.
	_, err = s.service.Create(s.ctx, "alice", "other", 2*time.Hour, []byte("scope"))
	s.True(dErrors.HasCode(err, dErrors.CodeExistentContext))
}

func (s *ServiceSuite) TestUpdate() {
	hash, err := s.service.Create(s.ctx, "alice", "ctrl", time.Hour, []byte("scope"))
	s.Require().NoError(err)

	s.Run("non-controller cannot update", func() {
		err := s.service.Update(s.ctx, "mallory", hash, "mallory", time.Hour)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidController))
	})

	s.Run("controller updates both parameters", func() {
		s.Require().NoError(s.service.Update(s.ctx, "ctrl", hash, "ctrl2", 2*time.Hour))

		record, err := s.service.Get(s.ctx, hash)
		s.Require().NoError(err)
		s.Equal(id.Identity("ctrl2"), record.Controller)
		s.Equal(2*time.Hour, record.DetachingDuration)
	})

	s.Run("old controller loses rights after handover", func() {
		err := s.service.Update(s.ctx, "ctrl", hash, "ctrl", time.Hour)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidController))
	})
}

func (s *ServiceSuite) TestUpdateMissingContext() {
	hash := id.ComputeCtxHash("nobody", []byte("missing"))
	err := s.service.Update(s.ctx, "ctrl", hash, "ctrl", time.Hour)
	s.True(dErrors.HasCode(err, dErrors.CodeInactiveContext))
}

func (s *ServiceSuite) TestDeprecateIsOneWay() {
	hash, err := s.service.Create(s.ctx, "alice", "ctrl", time.Hour, []byte("scope"))
	s.Require().NoError(err)

	s.Require().NoError(s.service.Deprecate(s.ctx, "ctrl", hash))

	record, err := s.service.Get(s.ctx, hash)
	s.Require().NoError(err)
	s.False(record.Active)

	s.Run("deprecated context cannot be updated", func() {
		err := s.service.Update(s.ctx, "ctrl", hash, "ctrl2", time.Hour)
		s.True(dErrors.HasCode(err, dErrors.CodeInactiveContext))
	})

	s.Run("deprecated context cannot be deprecated again", func() {
		err := s.service.Deprecate(s.ctx, "ctrl", hash)
		s.True(dErrors.HasCode(err, dErrors.CodeInactiveContext))
	})

	s.Run("hash stays registered forever", func() {
		_, err := s.service.Create(s.ctx, "alice", "ctrl", time.Hour, []byte("scope"))
		s.True(dErrors.HasCode(err, dErrors.CodeExistentContext))
	})
}

func (s *ServiceSuite) TestGetMissing() {
	_, err := s.service.Get(s.ctx, id.ComputeCtxHash("nobody", []byte("missing")))
	s.True(dErrors.HasCode(err, dErrors.CodeNonexistentContext))
}

func (s *ServiceSuite) TestRequireController() {
	hash, err := s.service.Create(s.ctx, "alice", "ctrl", time.Hour, []byte("scope"))
	s.Require().NoError(err)

	record, err := s.service.RequireController(s.ctx, "ctrl", hash)
	s.Require().NoError(err)
	s.Equal(id.Identity("ctrl"), record.Controller)

	_, err = s.service.RequireController(s.ctx, "mallory", hash)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidController))
}
