package core

import (
	"errors"
	"time"

	"go.uber.org/mock/gomock"

	"tokenctx/internal/attachment"
	"tokenctx/internal/event"
	id "tokenctx/pkg/domain"
	dErrors "tokenctx/pkg/domain-errors"
)

func (s *CoreSuite) TestAttachContext() {
	s.attach()

	record, err := s.service.TokenContextOf(s.ctx, s.hash, tokenOne)
	s.Require().NoError(err)
	s.True(record.Attached)
	s.False(record.Locked)
	s.Equal(attachment.StateAttachedUnlocked, record.State(testNow))

	types := s.eventTypes()
	s.Equal(event.TypeContextAttached, types[len(types)-1])
}

func (s *CoreSuite) TestAttachAuthorization() {
	s.Run("stranger cannot attach", func() {
		err := s.service.AttachContext(s.ctx, mallory, s.hash, tokenOne, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeNotOwnerAuthorized))
	})

	s.Run("owner's operator can attach", func() {
		s.Require().NoError(s.ledger.SetApprovalForAll(s.ctx, owner, "manager", true))
		s.NoError(s.service.AttachContext(s.ctx, "manager", s.hash, tokenOne, nil))
	})
}

func (s *CoreSuite) TestAttachUnderActiveDelegation() {
	until := testNow.Add(time.Hour)
	s.Require().NoError(s.service.StartDelegateOwnership(s.ctx, owner, tokenOne, delegatee, until))
	s.Require().NoError(s.service.AcceptOwnershipDelegation(s.ctx, delegatee, tokenOne))

	s.Run("owner loses the right", func() {
		err := s.service.AttachContext(s.ctx, owner, s.hash, tokenOne, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeInsufficientApproval))
	})

	s.Run("delegatee gains it", func() {
		s.NoError(s.service.AttachContext(s.ctx, delegatee, s.hash, tokenOne, nil))
	})
}

func (s *CoreSuite) TestAttachDuplicateFails() {
	s.attach()

	err := s.service.AttachContext(s.ctx, owner, s.hash, tokenOne, nil)
	s.True(dErrors.HasCode(err, dErrors.CodeAlreadyAttachedContext))
}

func (s *CoreSuite) TestAttachUnknownContextFails() {
	unknown := id.ComputeCtxHash("nobody", []byte("missing"))
	err := s.service.AttachContext(s.ctx, owner, unknown, tokenOne, nil)
	s.True(dErrors.HasCode(err, dErrors.CodeNonexistentContext))
}

func (s *CoreSuite) TestAttachDeprecatedContextFails() {
	s.Require().NoError(s.service.DeprecateContext(s.ctx, ctrl, s.hash))

	err := s.service.AttachContext(s.ctx, owner, s.hash, tokenOne, nil)
	s.True(dErrors.HasCode(err, dErrors.CodeInactiveContext))
}

func (s *CoreSuite) TestAttachControllerAcceptance() {
	impl := s.newMockController(ctrl)
	impl.EXPECT().
		OnAttached(gomock.Any(), s.hash, tokenOne, owner, []byte("payload")).
		Return(nil)

	s.NoError(s.service.AttachContext(s.ctx, owner, s.hash, tokenOne, []byte("payload")))
}

func (s *CoreSuite) TestAttachControllerVetoRollsBack() {
	impl := s.newMockController(ctrl)
	impl.EXPECT().
		OnAttached(gomock.Any(), s.hash, tokenOne, owner, gomock.Any()).
		Return(errors.New("not eligible"))

	err := s.service.AttachContext(s.ctx, owner, s.hash, tokenOne, nil)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))

	s.Run("pair is free again", func() {
		_, err := s.service.TokenContextOf(s.ctx, s.hash, tokenOne)
		s.True(dErrors.HasCode(err, dErrors.CodeNonexistentAttachedContext))
	})

	s.Run("no attach event emitted", func() {
		s.NotContains(s.eventTypes(), event.TypeContextAttached)
	})

	s.Run("attach succeeds once the controller agrees", func() {
		impl.EXPECT().
			OnAttached(gomock.Any(), s.hash, tokenOne, owner, gomock.Any()).
			Return(nil)
		s.NoError(s.service.AttachContext(s.ctx, owner, s.hash, tokenOne, nil))
	})
}

func (s *CoreSuite) TestSetContextLock() {
	s.attach()

	s.Require().NoError(s.service.SetContextLock(s.ctx, ctrl, s.hash, tokenOne, true))

	record, err := s.service.TokenContextOf(s.ctx, s.hash, tokenOne)
	s.Require().NoError(err)
	s.True(record.Locked)
	s.Equal(attachment.StateLockedNotRequested, record.State(testNow))

	types := s.eventTypes()
	s.Equal(event.TypeContextLockUpdated, types[len(types)-1])

	s.Run("unlock again", func() {
		s.Require().NoError(s.service.SetContextLock(s.ctx, ctrl, s.hash, tokenOne, false))
		record, err := s.service.TokenContextOf(s.ctx, s.hash, tokenOne)
		s.Require().NoError(err)
		s.False(record.Locked)
	})
}

func (s *CoreSuite) TestSetContextLockGating() {
	s.attach()

	s.Run("only the controller may lock", func() {
		err := s.service.SetContextLock(s.ctx, owner, s.hash, tokenOne, true)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidController))
	})

	s.Run("detached pair cannot be locked", func() {
		other, err := s.service.CreateContext(s.ctx, ctrl, ctrl, detachingDuration, []byte("other"))
		s.Require().NoError(err)
		lockErr := s.service.SetContextLock(s.ctx, ctrl, other, tokenOne, true)
		s.True(dErrors.HasCode(lockErr, dErrors.CodeNonexistentAttachedContext))
	})

	s.Run("frozen while detachment is requested", func() {
		s.Require().NoError(s.service.SetContextLock(s.ctx, ctrl, s.hash, tokenOne, true))
		s.Require().NoError(s.service.RequestDetachContext(s.ctx, owner, s.hash, tokenOne, nil))

		err := s.service.SetContextLock(s.ctx, ctrl, s.hash, tokenOne, false)
		s.True(dErrors.HasCode(err, dErrors.CodeRequestedForDetachment))
	})
}

func (s *CoreSuite) TestSetContextUser() {
	s.attach()

	s.Require().NoError(s.service.SetContextUser(s.ctx, ctrl, s.hash, tokenOne, "alice"))

	record, err := s.service.TokenContextOf(s.ctx, s.hash, tokenOne)
	s.Require().NoError(err)
	s.Equal(id.Identity("alice"), record.User)

	types := s.eventTypes()
	s.Equal(event.TypeContextUserAssigned, types[len(types)-1])
}

func (s *CoreSuite) TestSetContextUserGating() {
	s.attach()

	s.Run("only the controller may assign", func() {
		err := s.service.SetContextUser(s.ctx, owner, s.hash, tokenOne, "alice")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidController))
	})

	s.Run("zero user rejected", func() {
		err := s.service.SetContextUser(s.ctx, ctrl, s.hash, tokenOne, id.ZeroIdentity)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidContextUser))
	})

	s.Run("allowed while detachment is requested", func() {
		s.Require().NoError(s.service.SetContextLock(s.ctx, ctrl, s.hash, tokenOne, true))
		s.Require().NoError(s.service.RequestDetachContext(s.ctx, owner, s.hash, tokenOne, nil))
		s.NoError(s.service.SetContextUser(s.ctx, ctrl, s.hash, tokenOne, "bob"))
	})
}
