package asset

import (
	"context"

	id "tokenctx/pkg/domain"
)

// Registry is the port onto the underlying asset ledger. The core consumes
// it for owner lookups and standard approval checks; it never mutates assets
// itself.
type Registry interface {
	// OwnerOf returns the current owner. Fails CodeNotFound for a token
	// that does not exist.
	OwnerOf(ctx context.Context, token id.TokenID) (id.Identity, error)
	// IsAuthorized reports whether operator may act on the token on behalf
	// of claimant under the ledger's standard approval semantics: operator
	// is the claimant, the token's approved address, or one of the
	// claimant's operators.
	IsAuthorized(ctx context.Context, claimant, operator id.Identity, token id.TokenID) (bool, error)
	// IsApprovedForAll reports whether operator is an approved operator
	// for every token of owner.
	IsApprovedForAll(ctx context.Context, owner, operator id.Identity) (bool, error)
}

// MoveHook is invoked by the ledger before any transfer or burn completes.
// The core implements it to clear delegations and force-detach contexts.
type MoveHook interface {
	BeforeTokenMove(ctx context.Context, token id.TokenID, caller id.Identity, mint bool) error
}
