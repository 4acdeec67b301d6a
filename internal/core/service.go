// Package core composes the context registry, attachment store, delegation
// service, authorization guard, and callback dispatcher into the public
// operation surface. Every mutating operation runs as one atomic unit under
// the service mutex; controller callbacks are dispatched only after all
// state is committed and the mutex released, so a re-entrant controller can
// never observe a half-updated state.
package core

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"tokenctx/internal/attachment"
	"tokenctx/internal/contextreg"
	"tokenctx/internal/controller"
	"tokenctx/internal/delegation"
	"tokenctx/internal/event"
	"tokenctx/internal/guard"
	"tokenctx/internal/platform/metrics"
	id "tokenctx/pkg/domain"
	dErrors "tokenctx/pkg/domain-errors"
	"tokenctx/pkg/platform/sentinel"
)

// ContextRegistry is the context lifecycle surface the core depends on. The
// enumerable decorator satisfies it too, so wiring the global sequence is a
// composition choice, not a core concern.
type ContextRegistry interface {
	Create(ctx context.Context, operator, ctrl id.Identity, detachingDuration time.Duration, message []byte) (id.CtxHash, error)
	Update(ctx context.Context, operator id.Identity, hash id.CtxHash, newController id.Identity, newDetachingDuration time.Duration) error
	Deprecate(ctx context.Context, operator id.Identity, hash id.CtxHash) error
	Get(ctx context.Context, hash id.CtxHash) (*contextreg.Context, error)
	RequireController(ctx context.Context, caller id.Identity, hash id.CtxHash) (*contextreg.Context, error)
	MaxDetachingDuration() time.Duration
}

// EventPublisher records state transition notifications.
type EventPublisher interface {
	Emit(ctx context.Context, e event.Event) error
}

// Service is the orchestrating type behind every public operation.
type Service struct {
	mu sync.Mutex

	contexts    ContextRegistry
	attachments attachment.Store
	delegations *delegation.Service
	guard       *guard.Guard
	dispatcher  *controller.Dispatcher
	events      EventPublisher
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
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

// New constructs the core service.
func New(
	contexts ContextRegistry,
	attachments attachment.Store,
	delegations *delegation.Service,
	g *guard.Guard,
	dispatcher *controller.Dispatcher,
	opts ...Option,
) *Service {
	s := &Service{
		contexts:    contexts,
		attachments: attachments,
		delegations: delegations,
		guard:       g,
		dispatcher:  dispatcher,
		logger:      slog.New(slog.DiscardHandler),
		tracer:      otel.Tracer("tokenctx/core"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxDetachingDuration returns the process-wide immutable bound.
func (s *Service) MaxDetachingDuration() time.Duration {
	return s.contexts.MaxDetachingDuration()
}

// CreateContext registers a new context keyed by hash(operator, message).
func (s *Service) CreateContext(ctx context.Context, operator, ctrl id.Identity, detachingDuration time.Duration, message []byte) (id.CtxHash, error) {
	ctx, span := s.startSpan(ctx, "CreateContext")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	hash, err := s.contexts.Create(ctx, operator, ctrl, detachingDuration, message)
	return hash, s.finishSpan(span, err)
}

// UpdateContext replaces an active context's controller and duration.
func (s *Service) UpdateContext(ctx context.Context, operator id.Identity, hash id.CtxHash, newController id.Identity, newDetachingDuration time.Duration) error {
	ctx, span := s.startSpan(ctx, "UpdateContext", attribute.String("ctx_hash", hash.String()))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finishSpan(span, s.contexts.Update(ctx, operator, hash, newController, newDetachingDuration))
}

// DeprecateContext retires a context one-way.
func (s *Service) DeprecateContext(ctx context.Context, operator id.Identity, hash id.CtxHash) error {
	ctx, span := s.startSpan(ctx, "DeprecateContext", attribute.String("ctx_hash", hash.String()))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finishSpan(span, s.contexts.Deprecate(ctx, operator, hash))
}

// GetContext returns the stored record for the hash.
func (s *Service) GetContext(ctx context.Context, hash id.CtxHash) (*contextreg.Context, error) {
	return s.contexts.Get(ctx, hash)
}

// IsAttachedWithContext reports whether the pair is currently attached.
func (s *Service) IsAttachedWithContext(ctx context.Context, hash id.CtxHash, token id.TokenID) (bool, error) {
	_, err := s.attachments.Get(ctx, token, hash)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read attachment")
	}
	return true, nil
}

// TokenContextOf returns the full attachment record of an attached pair.
func (s *Service) TokenContextOf(ctx context.Context, hash id.CtxHash, token id.TokenID) (*attachment.TokenContext, error) {
	return s.requireAttached(ctx, token, hash)
}

// ContextUserOf returns the user assigned to an attached pair.
func (s *Service) ContextUserOf(ctx context.Context, hash id.CtxHash, token id.TokenID) (id.Identity, error) {
	record, err := s.requireAttached(ctx, token, hash)
	if err != nil {
		return id.ZeroIdentity, err
	}
	return record.User, nil
}

// IsTokenContextLocked reports the lock flag of an attached pair.
func (s *Service) IsTokenContextLocked(ctx context.Context, hash id.CtxHash, token id.TokenID) (bool, error) {
	record, err := s.requireAttached(ctx, token, hash)
	if err != nil {
		return false, err
	}
	return record.Locked, nil
}

// OwnershipManagerOf resolves the token's current ownership manager.
func (s *Service) OwnershipManagerOf(ctx context.Context, token id.TokenID) (id.Identity, error) {
	return s.delegations.ManagerOf(ctx, token)
}

// OwnershipDelegateeOf returns the active delegatee.
func (s *Service) OwnershipDelegateeOf(ctx context.Context, token id.TokenID) (id.Identity, error) {
	return s.delegations.DelegateeOf(ctx, token)
}

// PendingOwnershipDelegateeOf returns the pending delegatee.
func (s *Service) PendingOwnershipDelegateeOf(ctx context.Context, token id.TokenID) (id.Identity, error) {
	return s.delegations.PendingDelegateeOf(ctx, token)
}

// OwnershipDelegationOf returns the delegation record and derived state.
func (s *Service) OwnershipDelegationOf(ctx context.Context, token id.TokenID) (*delegation.Delegation, delegation.State, error) {
	return s.delegations.Describe(ctx, token)
}

// StartDelegateOwnership begins a pending delegation.
func (s *Service) StartDelegateOwnership(ctx context.Context, operator id.Identity, token id.TokenID, delegatee id.Identity, until time.Time) error {
	ctx, span := s.startSpan(ctx, "StartDelegateOwnership", attribute.String("token", token.String()))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finishSpan(span, s.delegations.Start(ctx, operator, token, delegatee, until))
}

// AcceptOwnershipDelegation promotes a pending delegation to active.
func (s *Service) AcceptOwnershipDelegation(ctx context.Context, operator id.Identity, token id.TokenID) error {
	ctx, span := s.startSpan(ctx, "AcceptOwnershipDelegation", attribute.String("token", token.String()))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finishSpan(span, s.delegations.Accept(ctx, operator, token))
}

// StopOwnershipDelegation ends an active delegation.
func (s *Service) StopOwnershipDelegation(ctx context.Context, operator id.Identity, token id.TokenID) error {
	ctx, span := s.startSpan(ctx, "StopOwnershipDelegation", attribute.String("token", token.String()))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finishSpan(span, s.delegations.Stop(ctx, operator, token))
}

func (s *Service) requireAttached(ctx context.Context, token id.TokenID, hash id.CtxHash) (*attachment.TokenContext, error) {
	record, err := s.attachments.Get(ctx, token, hash)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNonexistentAttachedContext, "context is not attached to token")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read attachment")
	}
	return record, nil
}

func (s *Service) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "core."+op, trace.WithAttributes(attrs...))
}

func (s *Service) finishSpan(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// emit publishes a notification; failures are logged, never propagated.
func (s *Service) emit(ctx context.Context, e event.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Emit(ctx, e); err != nil {
		s.logger.WarnContext(ctx, "failed to emit event",
			"type", string(e.Type),
			"ctx_hash", e.CtxHash.String(),
			"token", e.Token.String(),
			"error", err.Error(),
		)
	}
}
