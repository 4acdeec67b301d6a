package delegation

import (
	"context"

	id "tokenctx/pkg/domain"
)

// Store persists the per-token Delegation record.
type Store interface {
	// Get returns the record. Returns ErrNotFound when no record exists;
	// expired records may be reported as missing, callers must still
	// derive state via StateAt.
	Get(ctx context.Context, token id.TokenID) (*Delegation, error)
	// Put creates or overwrites the record.
	Put(ctx context.Context, token id.TokenID, record Delegation) error
	// Delete removes the record. Deleting a missing record is not an
	// error.
	Delete(ctx context.Context, token id.TokenID) error
}
