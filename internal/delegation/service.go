package delegation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"tokenctx/internal/asset"
	"tokenctx/internal/event"
	"tokenctx/internal/platform/metrics"
	id "tokenctx/pkg/domain"
	dErrors "tokenctx/pkg/domain-errors"
	"tokenctx/pkg/platform/sentinel"
	"tokenctx/pkg/requestcontext"
)

// EventPublisher records state transition notifications.
type EventPublisher interface {
	Emit(ctx context.Context, e event.Event) error
}

// Service owns the pending/active/stopped delegation state machine. Starting
// is gated by the asset registry's owner authorization, deliberately not by
// the current ownership manager, so an active delegatee can never renew its
// own grant.
type Service struct {
	store    Store
	registry asset.Registry
	events   EventPublisher
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithEventPublisher(publisher EventPublisher) Option {
	return func(s *Service) {
		s.events = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(store Store, registry asset.Registry, opts ...Option) *Service {
	s := &Service{
		store:    store,
		registry: registry,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start creates (or overwrites) a pending delegation for the token.
func (s *Service) Start(ctx context.Context, operator id.Identity, token id.TokenID, delegatee id.Identity, until time.Time) error {
	now := requestcontext.Now(ctx)

	owner, err := s.registry.OwnerOf(ctx, token)
	if err != nil {
		return err
	}
	ok, err := s.registry.IsAuthorized(ctx, owner, operator, token)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check owner authorization")
	}
	if !ok {
		return dErrors.New(dErrors.CodeNotOwnerAuthorized, "caller is not owner nor approved")
	}

	if delegatee.IsZero() || delegatee == owner {
		return dErrors.New(dErrors.CodeInvalidDelegatee, "delegatee cannot be the owner or the zero identity")
	}
	if !until.After(now) {
		return dErrors.New(dErrors.CodeInvalidDelegationExpiration, "delegation expiration must be in the future")
	}

	current, err := s.get(ctx, token)
	if err != nil {
		return err
	}
	if current.StateAt(now) == StateActive {
		return dErrors.Newf(dErrors.CodeAlreadyDelegatedOwnership,
			"ownership already delegated to %s until %s", current.Delegatee, current.Until.Format(time.RFC3339))
	}

	// A pending record is silently overwritten.
	record := Delegation{Delegatee: delegatee, Until: until}
	if err := s.store.Put(ctx, token, record); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store delegation")
	}

	s.emit(ctx, event.Event{
		Type:      event.TypeDelegationStarted,
		Token:     token,
		Delegatee: delegatee,
		Until:     until,
		Operator:  operator,
	})
	if s.metrics != nil {
		s.metrics.DelegationsStarted.Inc()
	}
	return nil
}

// Accept promotes a pending delegation to active. Caller must be the
// delegatee or one of its approved operators.
func (s *Service) Accept(ctx context.Context, operator id.Identity, token id.TokenID) error {
	now := requestcontext.Now(ctx)

	current, err := s.get(ctx, token)
	if err != nil {
		return err
	}
	if current.StateAt(now) != StatePending {
		return dErrors.New(dErrors.CodeNonexistentPendingOwnershipDelegation, "no pending delegation for token")
	}
	if err := s.requireDelegateeAuth(ctx, current.Delegatee, operator); err != nil {
		return err
	}

	record := Delegation{Delegatee: current.Delegatee, Until: current.Until, Delegated: true}
	if err := s.store.Put(ctx, token, record); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store delegation")
	}

	s.emit(ctx, event.Event{
		Type:      event.TypeDelegationAccepted,
		Token:     token,
		Delegatee: record.Delegatee,
		Until:     record.Until,
		Operator:  operator,
	})
	if s.metrics != nil {
		s.metrics.DelegationsActive.Inc()
	}
	return nil
}

// Stop ends an active delegation and deletes the record entirely.
func (s *Service) Stop(ctx context.Context, operator id.Identity, token id.TokenID) error {
	now := requestcontext.Now(ctx)

	current, err := s.get(ctx, token)
	if err != nil {
		return err
	}
	if current.StateAt(now) != StateActive {
		return dErrors.New(dErrors.CodeInactiveOwnershipDelegation, "no active delegation for token")
	}
	if err := s.requireDelegateeAuth(ctx, current.Delegatee, operator); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, token); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete delegation")
	}

	s.emit(ctx, event.Event{
		Type:      event.TypeDelegationStopped,
		Token:     token,
		Delegatee: current.Delegatee,
		Until:     current.Until,
		Operator:  operator,
	})
	if s.metrics != nil {
		s.metrics.DelegationsStopped.Inc()
	}
	return nil
}

// ManagerOf resolves the token's current ownership manager: the delegatee
// under an active delegation, otherwise the asset owner. This is the sole
// authorization anchor for attach and detach.
func (s *Service) ManagerOf(ctx context.Context, token id.TokenID) (id.Identity, error) {
	current, err := s.get(ctx, token)
	if err != nil {
		return id.ZeroIdentity, err
	}
	if current.StateAt(requestcontext.Now(ctx)) == StateActive {
		return current.Delegatee, nil
	}
	return s.registry.OwnerOf(ctx, token)
}

// ActiveDelegation returns the delegation record when it is currently
// active, nil otherwise. The guard uses it to pick the authorization path.
func (s *Service) ActiveDelegation(ctx context.Context, token id.TokenID) (*Delegation, error) {
	current, err := s.get(ctx, token)
	if err != nil {
		return nil, err
	}
	if current.StateAt(requestcontext.Now(ctx)) != StateActive {
		return nil, nil
	}
	return current, nil
}

// DelegateeOf returns the active delegatee. Fails
// CodeInactiveOwnershipDelegation when the delegation is missing, pending,
// or expired, so callers can distinguish "accepted" from "nothing pending".
func (s *Service) DelegateeOf(ctx context.Context, token id.TokenID) (id.Identity, error) {
	current, err := s.get(ctx, token)
	if err != nil {
		return id.ZeroIdentity, err
	}
	if current.StateAt(requestcontext.Now(ctx)) != StateActive {
		return id.ZeroIdentity, dErrors.New(dErrors.CodeInactiveOwnershipDelegation, "no active delegation for token")
	}
	return current.Delegatee, nil
}

// PendingDelegateeOf returns the pending delegatee. Fails
// CodeNonexistentPendingOwnershipDelegation when the delegation is missing,
// already accepted, or expired.
func (s *Service) PendingDelegateeOf(ctx context.Context, token id.TokenID) (id.Identity, error) {
	current, err := s.get(ctx, token)
	if err != nil {
		return id.ZeroIdentity, err
	}
	if current.StateAt(requestcontext.Now(ctx)) != StatePending {
		return id.ZeroIdentity, dErrors.New(dErrors.CodeNonexistentPendingOwnershipDelegation, "no pending delegation for token")
	}
	return current.Delegatee, nil
}

// Describe returns the stored delegation record together with its derived
// state. A missing or expired record reports StateNone with a nil record.
func (s *Service) Describe(ctx context.Context, token id.TokenID) (*Delegation, State, error) {
	current, err := s.get(ctx, token)
	if err != nil {
		return nil, StateNone, err
	}
	state := current.StateAt(requestcontext.Now(ctx))
	if state == StateNone {
		return nil, StateNone, nil
	}
	return current, state, nil
}

// ClearOnMove unconditionally deletes the delegation record. No validity
// check, no event: delegation is owner-scoped and must never survive a
// change of owner.
func (s *Service) ClearOnMove(ctx context.Context, token id.TokenID) error {
	return s.store.Delete(ctx, token)
}

// get normalizes the store's not-found into a nil record.
func (s *Service) get(ctx context.Context, token id.TokenID) (*Delegation, error) {
	record, err := s.store.Get(ctx, token)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load delegation")
	}
	return record, nil
}

func (s *Service) requireDelegateeAuth(ctx context.Context, delegatee, operator id.Identity) error {
	if operator == delegatee {
		return nil
	}
	ok, err := s.registry.IsApprovedForAll(ctx, delegatee, operator)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check delegatee approval")
	}
	if !ok {
		return dErrors.New(dErrors.CodeInsufficientApproval, "caller is not the delegatee nor its operator")
	}
	return nil
}

func (s *Service) emit(ctx context.Context, e event.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Emit(ctx, e); err != nil {
		s.logger.WarnContext(ctx, "failed to emit event",
			"type", string(e.Type),
			"token", e.Token.String(),
			"error", err.Error(),
		)
	}
}
