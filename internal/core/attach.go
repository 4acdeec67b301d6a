package core

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"tokenctx/internal/attachment"
	"tokenctx/internal/event"
	id "tokenctx/pkg/domain"
	dErrors "tokenctx/pkg/domain-errors"
	"tokenctx/pkg/platform/sentinel"
)

// AttachContext claims the token for the context. The caller must be the
// token's current ownership manager and the context must be active.
//
// This is the only operation a controller may veto: the attach hook runs
// synchronously after the attachment is committed, and a rejection rolls the
// attachment back so no partial attach survives.
func (s *Service) AttachContext(ctx context.Context, operator id.Identity, hash id.CtxHash, token id.TokenID, data []byte) error {
	ctx, span := s.startSpan(ctx, "AttachContext",
		attribute.String("ctx_hash", hash.String()),
		attribute.String("token", token.String()),
	)
	defer span.End()

	s.mu.Lock()
	ctxRecord, err := s.contexts.Get(ctx, hash)
	if err != nil {
		s.mu.Unlock()
		return s.finishSpan(span, err)
	}
	if !ctxRecord.Active {
		s.mu.Unlock()
		return s.finishSpan(span, dErrors.New(dErrors.CodeInactiveContext, "context is deprecated"))
	}
	if err := s.guard.RequireOwnershipManager(ctx, token, operator); err != nil {
		s.mu.Unlock()
		return s.finishSpan(span, err)
	}
	if err := s.attachments.Attach(ctx, token, hash, attachment.TokenContext{Attached: true}); err != nil {
		s.mu.Unlock()
		if errors.Is(err, sentinel.ErrConflict) {
			return s.finishSpan(span, dErrors.New(dErrors.CodeAlreadyAttachedContext, "context already attached to token"))
		}
		return s.finishSpan(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store attachment"))
	}
	s.mu.Unlock()

	// State is committed; the controller may veto from here, and may
	// re-enter through any public operation while we wait.
	if err := s.dispatcher.Attached(ctx, ctxRecord.Controller, hash, token, operator, data); err != nil {
		s.mu.Lock()
		if detachErr := s.attachments.Detach(ctx, token, hash); detachErr != nil && !errors.Is(detachErr, sentinel.ErrNotFound) {
			s.logger.ErrorContext(ctx, "failed to roll back rejected attachment",
				"ctx_hash", hash.String(),
				"token", token.String(),
				"error", detachErr.Error(),
			)
		}
		s.mu.Unlock()
		return s.finishSpan(span, dErrors.Wrap(err, dErrors.CodeBadRequest, "attachment rejected by controller"))
	}

	s.emit(ctx, event.Event{
		Type:     event.TypeContextAttached,
		CtxHash:  hash,
		Token:    token,
		Operator: operator,
	})
	if s.metrics != nil {
		s.metrics.Attachments.Inc()
	}
	return nil
}

// SetContextLock toggles the lock flag of an attached pair. Controller-gated;
// rejected while a detachment request is pending. No controller callback.
func (s *Service) SetContextLock(ctx context.Context, operator id.Identity, hash id.CtxHash, token id.TokenID, lock bool) error {
	ctx, span := s.startSpan(ctx, "SetContextLock",
		attribute.String("ctx_hash", hash.String()),
		attribute.String("token", token.String()),
		attribute.Bool("lock", lock),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.contexts.RequireController(ctx, operator, hash); err != nil {
		return s.finishSpan(span, err)
	}
	record, err := s.requireAttached(ctx, token, hash)
	if err != nil {
		return s.finishSpan(span, err)
	}
	if record.Requested() {
		return s.finishSpan(span, dErrors.New(dErrors.CodeRequestedForDetachment, "detachment already requested"))
	}

	record.Locked = lock
	if err := s.attachments.Update(ctx, token, hash, *record); err != nil {
		return s.finishSpan(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update attachment"))
	}

	s.emit(ctx, event.Event{
		Type:     event.TypeContextLockUpdated,
		CtxHash:  hash,
		Token:    token,
		Locked:   lock,
		Operator: operator,
	})
	return nil
}

// SetContextUser assigns the descriptive user of an attached pair. It has no
// effect on attach/detach mechanics; a pending detachment request is
// irrelevant here.
func (s *Service) SetContextUser(ctx context.Context, operator id.Identity, hash id.CtxHash, token id.TokenID, user id.Identity) error {
	ctx, span := s.startSpan(ctx, "SetContextUser",
		attribute.String("ctx_hash", hash.String()),
		attribute.String("token", token.String()),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.contexts.RequireController(ctx, operator, hash); err != nil {
		return s.finishSpan(span, err)
	}
	if user.IsZero() {
		return s.finishSpan(span, dErrors.New(dErrors.CodeInvalidContextUser, "context user cannot be the zero identity"))
	}
	record, err := s.requireAttached(ctx, token, hash)
	if err != nil {
		return s.finishSpan(span, err)
	}

	record.User = user
	if err := s.attachments.Update(ctx, token, hash, *record); err != nil {
		return s.finishSpan(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update attachment"))
	}

	s.emit(ctx, event.Event{
		Type:     event.TypeContextUserAssigned,
		CtxHash:  hash,
		Token:    token,
		User:     user,
		Operator: operator,
	})
	return nil
}
