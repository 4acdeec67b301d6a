package contextreg

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"tokenctx/internal/event"
	"tokenctx/internal/platform/metrics"
	id "tokenctx/pkg/domain"
	dErrors "tokenctx/pkg/domain-errors"
	"tokenctx/pkg/platform/sentinel"
)

// EventPublisher records state transition notifications.
type EventPublisher interface {
	Emit(ctx context.Context, e event.Event) error
}

// Service owns the context lifecycle: creation, parameter updates, and the
// one-way deprecation transition. Attachment mechanics live in the core
// service; this registry only answers who controls a context and whether it
// is still active.
type Service struct {
	store                Store
	maxDetachingDuration time.Duration
	events               EventPublisher
	logger               *slog.Logger
	metrics              *metrics.Metrics
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

// New constructs a Service. maxDetachingDuration is immutable for the life of
// the service.
func New(store Store, maxDetachingDuration time.Duration, opts ...Option) *Service {
	s := &Service{
		store:                store,
		maxDetachingDuration: maxDetachingDuration,
		logger:               slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxDetachingDuration returns the process-wide upper bound for per-context
// detaching durations.
func (s *Service) MaxDetachingDuration() time.Duration {
	return s.maxDetachingDuration
}

// Create registers a new context keyed by hash(operator, message).
func (s *Service) Create(ctx context.Context, operator, controller id.Identity, detachingDuration time.Duration, message []byte) (id.CtxHash, error) {
	if err := s.validateParams(controller, detachingDuration); err != nil {
		return "", err
	}

	hash := id.ComputeCtxHash(operator, message)
	record := Context{
		Controller:        controller,
		DetachingDuration: detachingDuration,
		Active:            true,
	}
	if err := s.store.Create(ctx, hash, record); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return "", dErrors.New(dErrors.CodeExistentContext, "context already registered")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to create context")
	}

	s.emit(ctx, event.Event{
		Type:              event.TypeContextUpdated,
		CtxHash:           hash,
		Controller:        controller,
		DetachingDuration: detachingDuration,
		Operator:          operator,
	})
	if s.metrics != nil {
		s.metrics.ContextsCreated.Inc()
	}
	return hash, nil
}

// Update replaces the controller and detaching duration of an active context.
// Only the current controller may update.
func (s *Service) Update(ctx context.Context, operator id.Identity, hash id.CtxHash, newController id.Identity, newDetachingDuration time.Duration) error {
	record, err := s.requireActiveController(ctx, operator, hash)
	if err != nil {
		return err
	}
	if err := s.validateParams(newController, newDetachingDuration); err != nil {
		return err
	}

	record.Controller = newController
	record.DetachingDuration = newDetachingDuration
	if err := s.store.Update(ctx, hash, *record); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update context")
	}

	s.emit(ctx, event.Event{
		Type:              event.TypeContextUpdated,
		CtxHash:           hash,
		Controller:        newController,
		DetachingDuration: newDetachingDuration,
		Operator:          operator,
	})
	return nil
}

// Deprecate retires a context. One-way: a deprecated context never becomes
// active again, but already-attached tokens can still detach.
func (s *Service) Deprecate(ctx context.Context, operator id.Identity, hash id.CtxHash) error {
	record, err := s.requireActiveController(ctx, operator, hash)
	if err != nil {
		return err
	}

	record.Active = false
	if err := s.store.Update(ctx, hash, *record); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to deprecate context")
	}

	s.emit(ctx, event.Event{
		Type:     event.TypeContextDeprecated,
		CtxHash:  hash,
		Operator: operator,
	})
	if s.metrics != nil {
		s.metrics.ContextsDeprecated.Inc()
	}
	return nil
}

// Get returns the context record. Fails CodeNonexistentContext when the hash
// was never registered.
func (s *Service) Get(ctx context.Context, hash id.CtxHash) (*Context, error) {
	record, err := s.store.Get(ctx, hash)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNonexistentContext, "context does not exist")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load context")
	}
	return record, nil
}

// RequireController validates that caller controls an active context and
// returns its record. Nonexistent and deprecated contexts both fail
// CodeInactiveContext; a wrong caller fails CodeInvalidController.
func (s *Service) RequireController(ctx context.Context, caller id.Identity, hash id.CtxHash) (*Context, error) {
	return s.requireActiveController(ctx, caller, hash)
}

func (s *Service) requireActiveController(ctx context.Context, caller id.Identity, hash id.CtxHash) (*Context, error) {
	record, err := s.store.Get(ctx, hash)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeInactiveContext, "context does not exist")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load context")
	}
	if !record.Active {
		return nil, dErrors.New(dErrors.CodeInactiveContext, "context is deprecated")
	}
	if record.Controller != caller {
		return nil, dErrors.New(dErrors.CodeInvalidController, "caller is not the context controller")
	}
	return record, nil
}

func (s *Service) validateParams(controller id.Identity, detachingDuration time.Duration) error {
	if controller.IsZero() {
		return dErrors.New(dErrors.CodeInvalidController, "controller cannot be the zero identity")
	}
	if detachingDuration < 0 || detachingDuration > s.maxDetachingDuration {
		return dErrors.Newf(dErrors.CodeExceededMaxDetachingDuration,
			"detaching duration %s exceeds maximum %s", detachingDuration, s.maxDetachingDuration)
	}
	return nil
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
			"error", err.Error(),
		)
	}
}
