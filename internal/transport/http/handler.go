// Package httptransport exposes the core operations over a JSON HTTP API.
// Handlers stay thin: decode, resolve the operator from the request context,
// call the service, map the result. All domain rules live below.
package httptransport

import (
	"context"
	"log/slog"
	"time"

	"tokenctx/internal/attachment"
	"tokenctx/internal/contextreg"
	"tokenctx/internal/core"
	"tokenctx/internal/delegation"
	"tokenctx/internal/enumerable"
	"tokenctx/internal/platform/metrics"
	id "tokenctx/pkg/domain"
	dErrors "tokenctx/pkg/domain-errors"
	"tokenctx/pkg/requestcontext"
)

// Service defines the core operation surface the handlers depend on.
type Service interface {
	CreateContext(ctx context.Context, operator, controller id.Identity, detachingDuration time.Duration, message []byte) (id.CtxHash, error)
	UpdateContext(ctx context.Context, operator id.Identity, hash id.CtxHash, newController id.Identity, newDetachingDuration time.Duration) error
	DeprecateContext(ctx context.Context, operator id.Identity, hash id.CtxHash) error
	GetContext(ctx context.Context, hash id.CtxHash) (*contextreg.Context, error)
	MaxDetachingDuration() time.Duration

	AttachContext(ctx context.Context, operator id.Identity, hash id.CtxHash, token id.TokenID, data []byte) error
	SetContextLock(ctx context.Context, operator id.Identity, hash id.CtxHash, token id.TokenID, lock bool) error
	SetContextUser(ctx context.Context, operator id.Identity, hash id.CtxHash, token id.TokenID, user id.Identity) error
	RequestDetachContext(ctx context.Context, operator id.Identity, hash id.CtxHash, token id.TokenID, data []byte) error
	ExecDetachContext(ctx context.Context, operator id.Identity, hash id.CtxHash, token id.TokenID, data []byte) error

	IsAttachedWithContext(ctx context.Context, hash id.CtxHash, token id.TokenID) (bool, error)
	TokenContextOf(ctx context.Context, hash id.CtxHash, token id.TokenID) (*attachment.TokenContext, error)
	ContextUserOf(ctx context.Context, hash id.CtxHash, token id.TokenID) (id.Identity, error)
	IsTokenContextLocked(ctx context.Context, hash id.CtxHash, token id.TokenID) (bool, error)

	StartDelegateOwnership(ctx context.Context, operator id.Identity, token id.TokenID, delegatee id.Identity, until time.Time) error
	AcceptOwnershipDelegation(ctx context.Context, operator id.Identity, token id.TokenID) error
	StopOwnershipDelegation(ctx context.Context, operator id.Identity, token id.TokenID) error
	OwnershipManagerOf(ctx context.Context, token id.TokenID) (id.Identity, error)
	OwnershipDelegationOf(ctx context.Context, token id.TokenID) (*delegation.Delegation, delegation.State, error)
}

var _ Service = (*core.Service)(nil)

// Handler wires the HTTP endpoints to the core service and the enumeration
// indexes.
type Handler struct {
	service       Service
	index         *enumerable.Index
	tokenContexts *enumerable.TokenContexts
	logger        *slog.Logger
	metrics       *metrics.Metrics
}

// NewHandler constructs the handler with its dependencies.
func NewHandler(service Service, index *enumerable.Index, tokenContexts *enumerable.TokenContexts, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		service:       service,
		index:         index,
		tokenContexts: tokenContexts,
		logger:        logger,
		metrics:       m,
	}
}

// requireOperator returns the authenticated operator from the request
// context. The auth middleware guarantees it is set on protected routes.
func requireOperator(ctx context.Context) (id.Identity, error) {
	operator := requestcontext.Operator(ctx)
	if operator.IsZero() {
		return id.ZeroIdentity, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	return operator, nil
}
