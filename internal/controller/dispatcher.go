package controller

import (
	"context"
	"log/slog"
	"time"

	"tokenctx/internal/platform/metrics"
	id "tokenctx/pkg/domain"
)

// Hook labels for diagnostics.
const (
	hookAttached        = "on_attached"
	hookDetachRequested = "on_detach_requested"
	hookExecDetach      = "on_exec_detach"
)

// Dispatcher invokes controller callbacks with a per-call-site policy.
// Attached is blocking: its error propagates and aborts the attach.
// DetachRequested and ExecDetach are best-effort: failures are swallowed,
// observed only through logs and metrics, so a misbehaving controller can
// never block a detachment.
//
// Callers must commit all state mutations before dispatching: callbacks may
// re-enter the system.
type Dispatcher struct {
	resolver Resolver
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

func NewDispatcher(resolver Resolver, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		resolver: resolver,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Attached invokes the controller's attach hook and returns its error. A
// plain-account controller (no registered implementation) accepts by
// default.
func (d *Dispatcher) Attached(ctx context.Context, controllerID id.Identity, hash id.CtxHash, token id.TokenID, operator id.Identity, data []byte) error {
	impl, ok := d.resolver.Resolve(controllerID)
	if !ok {
		return nil
	}
	start := time.Now()
	err := impl.OnAttached(ctx, hash, token, operator, data)
	d.metrics.ObserveCallback(hookAttached, time.Since(start), err != nil)
	return err
}

// DetachRequested fires the advisory request hook; the outcome is discarded.
func (d *Dispatcher) DetachRequested(ctx context.Context, controllerID id.Identity, hash id.CtxHash, token id.TokenID, operator id.Identity, data []byte) {
	impl, ok := d.resolver.Resolve(controllerID)
	if !ok {
		return
	}
	start := time.Now()
	err := impl.OnDetachRequested(ctx, hash, token, operator, data)
	d.metrics.ObserveCallback(hookDetachRequested, time.Since(start), err != nil)
	if err != nil {
		d.logger.WarnContext(ctx, "detach request callback failed",
			"controller", controllerID.String(),
			"ctx_hash", hash.String(),
			"token", token.String(),
			"error", err.Error(),
		)
	}
}

// ExecDetach fires the advisory detach hook with the user captured before
// the record was reset; the outcome is discarded.
func (d *Dispatcher) ExecDetach(ctx context.Context, controllerID id.Identity, hash id.CtxHash, token id.TokenID, user, operator id.Identity, data []byte) {
	impl, ok := d.resolver.Resolve(controllerID)
	if !ok {
		return
	}
	start := time.Now()
	err := impl.OnExecDetachContext(ctx, hash, token, user, operator, data)
	d.metrics.ObserveCallback(hookExecDetach, time.Since(start), err != nil)
	if err != nil {
		d.logger.WarnContext(ctx, "detach callback failed",
			"controller", controllerID.String(),
			"ctx_hash", hash.String(),
			"token", token.String(),
			"error", err.Error(),
		)
	}
}
