package core

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"tokenctx/internal/event"
	id "tokenctx/pkg/domain"
	dErrors "tokenctx/pkg/domain-errors"
	"tokenctx/pkg/requestcontext"
)

// Detachment reasons for metrics.
const (
	detachReasonUnlocked   = "request_unlocked"
	detachReasonController = "controller"
	detachReasonExec       = "exec"
	detachReasonTransfer   = "transfer"
)

// RequestDetachContext starts (or completes) the detachment of an attached
// pair. Two caller classes are accepted:
//
//   - the ownership manager: an unlocked attachment detaches immediately; a
//     locked one records a ready-at timestamp of now plus the context's
//     detaching duration and notifies the controller;
//   - the context's controller: detaches immediately regardless of the lock,
//     since the lock exists to protect the controller, not to bind it.
func (s *Service) RequestDetachContext(ctx context.Context, operator id.Identity, hash id.CtxHash, token id.TokenID, data []byte) error {
	ctx, span := s.startSpan(ctx, "RequestDetachContext",
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
	record, err := s.requireAttached(ctx, token, hash)
	if err != nil {
		s.mu.Unlock()
		return s.finishSpan(span, err)
	}

	if managerErr := s.guard.RequireOwnershipManager(ctx, token, operator); managerErr != nil {
		if operator != ctxRecord.Controller {
			s.mu.Unlock()
			return s.finishSpan(span, managerErr)
		}
		// Controller-initiated: immediate, lock is irrelevant.
		done, err := s.detachLocked(ctx, operator, hash, token, detachReasonController)
		if err != nil {
			s.mu.Unlock()
			return s.finishSpan(span, err)
		}
		s.mu.Unlock()
		done(ctx, ctxRecord.Controller, data)
		return nil
	}

	if !record.Locked {
		done, err := s.detachLocked(ctx, operator, hash, token, detachReasonUnlocked)
		if err != nil {
			s.mu.Unlock()
			return s.finishSpan(span, err)
		}
		s.mu.Unlock()
		done(ctx, ctxRecord.Controller, data)
		return nil
	}

	if record.Requested() {
		s.mu.Unlock()
		return s.finishSpan(span, dErrors.New(dErrors.CodeRequestedForDetachment, "detachment already requested"))
	}

	record.ReadyForDetachmentAt = requestcontext.Now(ctx).Add(ctxRecord.DetachingDuration)
	if err := s.attachments.Update(ctx, token, hash, *record); err != nil {
		s.mu.Unlock()
		return s.finishSpan(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update attachment"))
	}
	s.mu.Unlock()

	s.emit(ctx, event.Event{
		Type:     event.TypeContextDetachmentRequested,
		CtxHash:  hash,
		Token:    token,
		Operator: operator,
	})
	s.dispatcher.DetachRequested(ctx, ctxRecord.Controller, hash, token, operator, data)
	return nil
}

// ExecDetachContext completes a previously requested detachment once the
// waiting period has elapsed.
func (s *Service) ExecDetachContext(ctx context.Context, operator id.Identity, hash id.CtxHash, token id.TokenID, data []byte) error {
	ctx, span := s.startSpan(ctx, "ExecDetachContext",
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
	record, err := s.requireAttached(ctx, token, hash)
	if err != nil {
		s.mu.Unlock()
		return s.finishSpan(span, err)
	}
	if err := s.guard.RequireOwnershipManager(ctx, token, operator); err != nil {
		s.mu.Unlock()
		return s.finishSpan(span, err)
	}
	if !record.Requested() {
		s.mu.Unlock()
		return s.finishSpan(span, dErrors.New(dErrors.CodeNotRequestedForDetachment, "detachment has not been requested"))
	}
	if now := requestcontext.Now(ctx); now.Before(record.ReadyForDetachmentAt) {
		s.mu.Unlock()
		return s.finishSpan(span, dErrors.Newf(dErrors.CodeUnreadyForDetachment,
			"detachment not ready until %s (now %s)",
			record.ReadyForDetachmentAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
			now.UTC().Format("2006-01-02T15:04:05Z07:00"),
		))
	}

	done, err := s.detachLocked(ctx, operator, hash, token, detachReasonExec)
	if err != nil {
		s.mu.Unlock()
		return s.finishSpan(span, err)
	}
	s.mu.Unlock()
	done(ctx, ctxRecord.Controller, data)
	return nil
}

// detachLocked removes the attachment record while the service mutex is held
// and returns the interaction tail to run after the mutex is released. The
// tail emits the detach event, bumps metrics, and fires the best-effort
// controller callback with the user captured before the record was removed.
func (s *Service) detachLocked(ctx context.Context, operator id.Identity, hash id.CtxHash, token id.TokenID, reason string) (func(context.Context, id.Identity, []byte), error) {
	record, err := s.requireAttached(ctx, token, hash)
	if err != nil {
		return nil, err
	}
	user := record.User
	if err := s.attachments.Detach(ctx, token, hash); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove attachment")
	}

	return func(ctx context.Context, controllerID id.Identity, data []byte) {
		if reason != detachReasonTransfer {
			s.emit(ctx, event.Event{
				Type:     event.TypeContextDetached,
				CtxHash:  hash,
				Token:    token,
				Operator: operator,
			})
		}
		if s.metrics != nil {
			s.metrics.IncDetachment(reason)
		}
		s.dispatcher.ExecDetach(ctx, controllerID, hash, token, user, operator, data)
	}, nil
}
