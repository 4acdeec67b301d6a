package contextreg

import (
	"context"

	id "tokenctx/pkg/domain"
)

// Store persists Context records keyed by CtxHash. Implementations return
// sentinel errors (pkg/platform/sentinel) for factual states.
type Store interface {
	// Create inserts a new record. Returns ErrConflict when the hash is
	// already registered, deprecated or not.
	Create(ctx context.Context, hash id.CtxHash, record Context) error
	// Get returns the record. Returns ErrNotFound when never created.
	Get(ctx context.Context, hash id.CtxHash) (*Context, error)
	// Update overwrites an existing record. Returns ErrNotFound when never
	// created.
	Update(ctx context.Context, hash id.CtxHash, record Context) error
}
