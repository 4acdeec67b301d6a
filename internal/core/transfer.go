package core

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	id "tokenctx/pkg/domain"
	dErrors "tokenctx/pkg/domain-errors"
)

// BeforeTokenMove resets all per-token state ahead of a transfer or burn:
// every attached context is force-detached (last attached first) and any
// ownership delegation is cleared, so the token reaches its next owner
// clean. Mints skip the authorization check since the token has no owner
// yet.
//
// Satisfies the asset move hook, so wiring the ledger to the core closes the
// loop without either package importing the other's concrete type.
func (s *Service) BeforeTokenMove(ctx context.Context, token id.TokenID, caller id.Identity, mint bool) error {
	ctx, span := s.startSpan(ctx, "BeforeTokenMove",
		attribute.String("token", token.String()),
		attribute.Bool("mint", mint),
	)
	defer span.End()

	s.mu.Lock()
	if !mint {
		if err := s.guard.RequireOwnershipManager(ctx, token, caller); err != nil {
			s.mu.Unlock()
			return s.finishSpan(span, err)
		}
	}
	if err := s.delegations.ClearOnMove(ctx, token); err != nil {
		s.mu.Unlock()
		return s.finishSpan(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear delegation"))
	}

	hashes, err := s.attachments.List(ctx, token)
	if err != nil {
		s.mu.Unlock()
		return s.finishSpan(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list attachments"))
	}

	type detached struct {
		hash       id.CtxHash
		controller id.Identity
		tail       func(context.Context, id.Identity, []byte)
	}
	tails := make([]detached, 0, len(hashes))
	for i := len(hashes) - 1; i >= 0; i-- {
		hash := hashes[i]
		ctxRecord, err := s.contexts.Get(ctx, hash)
		if err != nil {
			s.mu.Unlock()
			return s.finishSpan(span, err)
		}
		tail, err := s.detachLocked(ctx, caller, hash, token, detachReasonTransfer)
		if err != nil {
			s.mu.Unlock()
			return s.finishSpan(span, err)
		}
		tails = append(tails, detached{hash: hash, controller: ctxRecord.Controller, tail: tail})
	}
	s.mu.Unlock()

	for _, d := range tails {
		d.tail(ctx, d.controller, nil)
	}
	return nil
}
