package asset

import (
	"context"
	"sync"

	id "tokenctx/pkg/domain"
	dErrors "tokenctx/pkg/domain-errors"
)

// Ledger is an in-memory asset registry with standard non-fungible approval
// semantics. It backs development and tests; production deployments adapt an
// external ledger to the Registry port instead.
//
// Before any transfer or burn completes, the configured MoveHook runs; a hook
// error aborts the move with no state change.
type Ledger struct {
	mu             sync.RWMutex
	owners         map[id.TokenID]id.Identity
	tokenApproval  map[id.TokenID]id.Identity
	operatorForAll map[id.Identity]map[id.Identity]bool
	hook           MoveHook
}

func NewLedger() *Ledger {
	return &Ledger{
		owners:         make(map[id.TokenID]id.Identity),
		tokenApproval:  make(map[id.TokenID]id.Identity),
		operatorForAll: make(map[id.Identity]map[id.Identity]bool),
	}
}

// SetMoveHook wires the transfer/burn integration hook. Called once during
// composition; the ledger and the core reference each other, so the hook
// cannot be a constructor argument.
func (l *Ledger) SetMoveHook(hook MoveHook) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hook = hook
}

func (l *Ledger) OwnerOf(_ context.Context, token id.TokenID) (id.Identity, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	owner, exists := l.owners[token]
	if !exists {
		return id.ZeroIdentity, dErrors.New(dErrors.CodeNotFound, "token does not exist")
	}
	return owner, nil
}

func (l *Ledger) IsAuthorized(_ context.Context, claimant, operator id.Identity, token id.TokenID) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if operator.IsZero() {
		return false, nil
	}
	if operator == claimant {
		return true, nil
	}
	if l.operatorForAll[claimant][operator] {
		return true, nil
	}
	return l.tokenApproval[token] == operator, nil
}

func (l *Ledger) IsApprovedForAll(_ context.Context, owner, operator id.Identity) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.operatorForAll[owner][operator], nil
}

// Approve sets the single approved address for a token. Caller must be the
// owner or one of the owner's operators.
func (l *Ledger) Approve(ctx context.Context, caller, approved id.Identity, token id.TokenID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	owner, exists := l.owners[token]
	if !exists {
		return dErrors.New(dErrors.CodeNotFound, "token does not exist")
	}
	if caller != owner && !l.operatorForAll[owner][caller] {
		return dErrors.New(dErrors.CodeNotOwnerAuthorized, "caller cannot approve for this token")
	}
	if approved.IsZero() {
		delete(l.tokenApproval, token)
	} else {
		l.tokenApproval[token] = approved
	}
	return nil
}

// SetApprovalForAll grants or revokes operator rights over every token of the
// caller.
func (l *Ledger) SetApprovalForAll(_ context.Context, caller, operator id.Identity, approved bool) error {
	if operator.IsZero() {
		return dErrors.New(dErrors.CodeBadRequest, "operator cannot be the zero identity")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	ops := l.operatorForAll[caller]
	if ops == nil {
		ops = make(map[id.Identity]bool)
		l.operatorForAll[caller] = ops
	}
	if approved {
		ops[operator] = true
	} else {
		delete(ops, operator)
	}
	return nil
}

// Mint creates a token owned by to. The move hook still runs (with mint set)
// so the core observes every ledger move through one code path.
func (l *Ledger) Mint(ctx context.Context, to id.Identity, token id.TokenID) error {
	if to.IsZero() {
		return dErrors.New(dErrors.CodeBadRequest, "cannot mint to the zero identity")
	}
	l.mu.Lock()
	if _, exists := l.owners[token]; exists {
		l.mu.Unlock()
		return dErrors.New(dErrors.CodeBadRequest, "token already exists")
	}
	hook := l.hook
	l.mu.Unlock()

	if hook != nil {
		if err := hook.BeforeTokenMove(ctx, token, id.ZeroIdentity, true); err != nil {
			return err
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.owners[token] = to
	return nil
}

// Transfer moves a token to a new owner. The caller must pass the ledger's
// own approval check; the move hook then enforces the stricter
// delegation-aware consent and clears attachments.
func (l *Ledger) Transfer(ctx context.Context, caller, to id.Identity, token id.TokenID) error {
	if to.IsZero() {
		return dErrors.New(dErrors.CodeBadRequest, "cannot transfer to the zero identity")
	}
	if err := l.checkMoveAuth(ctx, caller, token); err != nil {
		return err
	}

	l.mu.RLock()
	hook := l.hook
	l.mu.RUnlock()
	if hook != nil {
		if err := hook.BeforeTokenMove(ctx, token, caller, false); err != nil {
			return err
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.owners[token] = to
	delete(l.tokenApproval, token)
	return nil
}

// Burn destroys a token. Authorization and hook discipline match Transfer.
func (l *Ledger) Burn(ctx context.Context, caller id.Identity, token id.TokenID) error {
	if err := l.checkMoveAuth(ctx, caller, token); err != nil {
		return err
	}

	l.mu.RLock()
	hook := l.hook
	l.mu.RUnlock()
	if hook != nil {
		if err := hook.BeforeTokenMove(ctx, token, caller, false); err != nil {
			return err
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.owners, token)
	delete(l.tokenApproval, token)
	return nil
}

// checkMoveAuth is the ledger's own owner-path approval check. Its failure
// code stays distinct from the delegatee-path CodeInsufficientApproval so
// callers can tell which authorization path rejected them.
func (l *Ledger) checkMoveAuth(ctx context.Context, caller id.Identity, token id.TokenID) error {
	owner, err := l.OwnerOf(ctx, token)
	if err != nil {
		return err
	}
	ok, err := l.IsAuthorized(ctx, owner, caller, token)
	if err != nil {
		return err
	}
	if !ok {
		return dErrors.New(dErrors.CodeNotOwnerAuthorized, "caller is not owner nor approved")
	}
	return nil
}
