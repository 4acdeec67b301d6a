package attachment

import (
	"context"

	id "tokenctx/pkg/domain"
)

// Store persists TokenContext records together with the per-token membership
// index. The index invariant is the store's to keep: a context appears in a
// token's list exactly when its record has Attached == true.
//
// List order is insertion order, except that removal swaps the removed slot
// with the last element; order is not preserved across removals.
type Store interface {
	// Attach creates the record and appends the context to the token's
	// list. Returns ErrConflict when the pair is already attached.
	Attach(ctx context.Context, token id.TokenID, hash id.CtxHash, record TokenContext) error
	// Update overwrites an attached record without touching the index.
	// Returns ErrNotFound when the pair is not attached.
	Update(ctx context.Context, token id.TokenID, hash id.CtxHash, record TokenContext) error
	// Detach deletes the record and swap-removes the index entry.
	// Returns ErrNotFound when the pair is not attached.
	Detach(ctx context.Context, token id.TokenID, hash id.CtxHash) error
	// Get returns the record. Returns ErrNotFound when the pair is not
	// attached (state Free).
	Get(ctx context.Context, token id.TokenID, hash id.CtxHash) (*TokenContext, error)
	// List returns the token's attached contexts.
	List(ctx context.Context, token id.TokenID) ([]id.CtxHash, error)
	// Count returns the number of attached contexts for the token.
	Count(ctx context.Context, token id.TokenID) (int, error)
	// At returns the context at position index. Returns ErrNotFound when
	// the index is out of range.
	At(ctx context.Context, token id.TokenID, index int) (id.CtxHash, error)
}
