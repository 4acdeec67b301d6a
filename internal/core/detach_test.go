package core

import (
	"time"

	"go.uber.org/mock/gomock"

	"tokenctx/internal/attachment"
	"tokenctx/internal/event"
	id "tokenctx/pkg/domain"
	dErrors "tokenctx/pkg/domain-errors"
)

// lockAndRequest brings the suite pair to the waiting state and returns the
// instant the detachment becomes executable.
func (s *CoreSuite) lockAndRequest() time.Time {
	s.attach()
	s.Require().NoError(s.service.SetContextLock(s.ctx, ctrl, s.hash, tokenOne, true))
	s.Require().NoError(s.service.RequestDetachContext(s.ctx, owner, s.hash, tokenOne, nil))
	return testNow.Add(detachingDuration)
}

func (s *CoreSuite) TestUnlockedRequestDetachesImmediately() {
	s.attach()

	s.Require().NoError(s.service.RequestDetachContext(s.ctx, owner, s.hash, tokenOne, nil))

	_, err := s.service.TokenContextOf(s.ctx, s.hash, tokenOne)
	s.True(dErrors.HasCode(err, dErrors.CodeNonexistentAttachedContext))

	types := s.eventTypes()
	s.Equal(event.TypeContextDetached, types[len(types)-1])
	s.NotContains(types, event.TypeContextDetachmentRequested)
}

func (s *CoreSuite) TestLockedRequestStartsTimer() {
	readyAt := s.lockAndRequest()

	record, err := s.service.TokenContextOf(s.ctx, s.hash, tokenOne)
	s.Require().NoError(err)
	s.Equal(readyAt, record.ReadyForDetachmentAt)
	s.Equal(attachment.StateLockedRequestedWaiting, record.State(testNow))
	s.Equal(attachment.StateLockedRequestedPassed, record.State(readyAt))

	types := s.eventTypes()
	s.Equal(event.TypeContextDetachmentRequested, types[len(types)-1])

	s.Run("second request rejected", func() {
		err := s.service.RequestDetachContext(s.ctx, owner, s.hash, tokenOne, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeRequestedForDetachment))
	})
}

func (s *CoreSuite) TestRequestAuthorization() {
	s.attach()

	s.Run("stranger rejected", func() {
		err := s.service.RequestDetachContext(s.ctx, mallory, s.hash, tokenOne, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeNotOwnerAuthorized))
	})

	s.Run("free pair rejected", func() {
		other, err := s.service.CreateContext(s.ctx, ctrl, ctrl, detachingDuration, []byte("other"))
		s.Require().NoError(err)
		reqErr := s.service.RequestDetachContext(s.ctx, owner, other, tokenOne, nil)
		s.True(dErrors.HasCode(reqErr, dErrors.CodeNonexistentAttachedContext))
	})
}

func (s *CoreSuite) TestControllerRequestBypassesLock() {
	s.attach()
	s.Require().NoError(s.service.SetContextLock(s.ctx, ctrl, s.hash, tokenOne, true))

	s.Require().NoError(s.service.RequestDetachContext(s.ctx, ctrl, s.hash, tokenOne, nil))

	_, err := s.service.TokenContextOf(s.ctx, s.hash, tokenOne)
	s.True(dErrors.HasCode(err, dErrors.CodeNonexistentAttachedContext))
}

func (s *CoreSuite) TestRequestNotifiesController() {
	impl := s.newMockController(ctrl)
	impl.EXPECT().
		OnAttached(gomock.Any(), s.hash, tokenOne, owner, gomock.Any()).
		Return(nil)
	impl.EXPECT().
		OnDetachRequested(gomock.Any(), s.hash, tokenOne, owner, []byte("reason")).
		Return(nil)

	s.attach()
	s.Require().NoError(s.service.SetContextLock(s.ctx, ctrl, s.hash, tokenOne, true))
	s.Require().NoError(s.service.RequestDetachContext(s.ctx, owner, s.hash, tokenOne, []byte("reason")))

	s.Run("callback failure does not undo the request", func() {
		record, err := s.service.TokenContextOf(s.ctx, s.hash, tokenOne)
		s.Require().NoError(err)
		s.True(record.Requested())
	})
}

func (s *CoreSuite) TestExecDetachTimer() {
	readyAt := s.lockAndRequest()

	s.Run("one second early fails", func() {
		err := s.service.ExecDetachContext(s.at(readyAt.Add(-time.Second)), owner, s.hash, tokenOne, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeUnreadyForDetachment))
	})

	s.Run("one instant early fails", func() {
		err := s.service.ExecDetachContext(s.at(readyAt.Add(-time.Nanosecond)), owner, s.hash, tokenOne, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeUnreadyForDetachment))
	})

	s.Run("exactly on time succeeds", func() {
		s.Require().NoError(s.service.ExecDetachContext(s.at(readyAt), owner, s.hash, tokenOne, nil))

		_, err := s.service.TokenContextOf(s.ctx, s.hash, tokenOne)
		s.True(dErrors.HasCode(err, dErrors.CodeNonexistentAttachedContext))

		types := s.eventTypes()
		s.Equal(event.TypeContextDetached, types[len(types)-1])
	})
}

func (s *CoreSuite) TestExecDetachGating() {
	s.attach()

	s.Run("without a request", func() {
		err := s.service.ExecDetachContext(s.ctx, owner, s.hash, tokenOne, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeNotRequestedForDetachment))
	})

	readyAt := func() time.Time {
		s.Require().NoError(s.service.SetContextLock(s.ctx, ctrl, s.hash, tokenOne, true))
		s.Require().NoError(s.service.RequestDetachContext(s.ctx, owner, s.hash, tokenOne, nil))
		return testNow.Add(detachingDuration)
	}()

	s.Run("stranger rejected", func() {
		err := s.service.ExecDetachContext(s.at(readyAt), mallory, s.hash, tokenOne, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeNotOwnerAuthorized))
	})

	s.Run("second exec finds a free pair", func() {
		s.Require().NoError(s.service.ExecDetachContext(s.at(readyAt), owner, s.hash, tokenOne, nil))
		err := s.service.ExecDetachContext(s.at(readyAt), owner, s.hash, tokenOne, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeNonexistentAttachedContext))
	})
}

func (s *CoreSuite) TestExecDetachCarriesPreResetUser() {
	impl := s.newMockController(ctrl)
	impl.EXPECT().
		OnAttached(gomock.Any(), s.hash, tokenOne, owner, gomock.Any()).
		Return(nil)
	impl.EXPECT().
		OnExecDetachContext(gomock.Any(), s.hash, tokenOne, id.Identity("alice"), owner, gomock.Nil()).
		Return(nil)

	s.attach()
	s.Require().NoError(s.service.SetContextUser(s.ctx, ctrl, s.hash, tokenOne, "alice"))
	s.Require().NoError(s.service.RequestDetachContext(s.ctx, owner, s.hash, tokenOne, nil))
}

func (s *CoreSuite) TestDeprecationDoesNotBlockDetach() {
	s.attach()
	s.Require().NoError(s.service.DeprecateContext(s.ctx, ctrl, s.hash))

	s.NoError(s.service.RequestDetachContext(s.ctx, owner, s.hash, tokenOne, nil))
}

func (s *CoreSuite) TestReattachStartsClean() {
	readyAt := s.lockAndRequest()
	s.Require().NoError(s.service.SetContextUser(s.ctx, ctrl, s.hash, tokenOne, "alice"))
	s.Require().NoError(s.service.ExecDetachContext(s.at(readyAt), owner, s.hash, tokenOne, nil))

	s.Require().NoError(s.service.AttachContext(s.at(readyAt), owner, s.hash, tokenOne, nil))

	record, err := s.service.TokenContextOf(s.ctx, s.hash, tokenOne)
	s.Require().NoError(err)
	s.True(record.Attached)
	s.False(record.Locked)
	s.True(record.User.IsZero())
	s.False(record.Requested())
}
