// Package guard holds the pure authorization decisions that tie the
// delegation state machine to the asset registry. It mutates nothing.
package guard

import (
	"context"

	"tokenctx/internal/asset"
	"tokenctx/internal/delegation"
	id "tokenctx/pkg/domain"
	dErrors "tokenctx/pkg/domain-errors"
)

// DelegationResolver reports the currently active delegation, if any.
type DelegationResolver interface {
	ActiveDelegation(ctx context.Context, token id.TokenID) (*delegation.Delegation, error)
}

// Guard validates callers against the token's current ownership manager.
type Guard struct {
	delegations DelegationResolver
	registry    asset.Registry
}

func New(delegations DelegationResolver, registry asset.Registry) *Guard {
	return &Guard{delegations: delegations, registry: registry}
}

// RequireOwnershipManager fails unless operator is authorized to manage the
// token's attachments. Under an active delegation the delegatee path applies:
// operator must be the delegatee or one of its approved operators
// (CodeInsufficientApproval otherwise). Without one, the asset registry's
// standard owner-path check applies (CodeNotOwnerAuthorized otherwise). The
// two failure codes stay distinct so callers can tell which path was
// evaluated.
func (g *Guard) RequireOwnershipManager(ctx context.Context, token id.TokenID, operator id.Identity) error {
	active, err := g.delegations.ActiveDelegation(ctx, token)
	if err != nil {
		return err
	}
	if active != nil {
		if operator == active.Delegatee {
			return nil
		}
		ok, err := g.registry.IsApprovedForAll(ctx, active.Delegatee, operator)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check delegatee approval")
		}
		if !ok {
			return dErrors.New(dErrors.CodeInsufficientApproval, "caller is not the delegatee nor its operator")
		}
		return nil
	}

	owner, err := g.registry.OwnerOf(ctx, token)
	if err != nil {
		return err
	}
	ok, err := g.registry.IsAuthorized(ctx, owner, operator, token)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check owner authorization")
	}
	if !ok {
		return dErrors.New(dErrors.CodeNotOwnerAuthorized, "caller is not owner nor approved")
	}
	return nil
}
