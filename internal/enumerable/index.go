// Package enumerable adds external iteration over contexts. It is a
// decorator around context creation and the attachment index, not a
// structural dependency of the core state machine.
package enumerable

import (
	"context"
	"errors"
	"sync"
	"time"

	"tokenctx/internal/attachment"
	"tokenctx/internal/contextreg"
	id "tokenctx/pkg/domain"
	dErrors "tokenctx/pkg/domain-errors"
	"tokenctx/pkg/platform/sentinel"
)

// Index is the global append-only sequence of registered context hashes.
// A hash is appended exactly once, on successful creation; updates and
// deprecation never touch the sequence.
type Index struct {
	mu     sync.RWMutex
	hashes []id.CtxHash
}

func NewIndex() *Index {
	return &Index{}
}

func (i *Index) append(hash id.CtxHash) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.hashes = append(i.hashes, hash)
}

// ContextAt returns the hash at the given position in creation order.
func (i *Index) ContextAt(index int) (id.CtxHash, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if index < 0 || index >= len(i.hashes) {
		return "", dErrors.New(dErrors.CodeBadRequest, "context index out of range")
	}
	return i.hashes[index], nil
}

// ContextCount returns the number of contexts ever created.
func (i *Index) ContextCount() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.hashes)
}

// Registry decorates the context registry so each successful creation is
// recorded in the global sequence.
type Registry struct {
	*contextreg.Service
	index *Index
}

func NewRegistry(inner *contextreg.Service, index *Index) *Registry {
	return &Registry{Service: inner, index: index}
}

// Create registers the context and appends its hash to the global sequence.
func (r *Registry) Create(ctx context.Context, operator, controller id.Identity, detachingDuration time.Duration, message []byte) (id.CtxHash, error) {
	hash, err := r.Service.Create(ctx, operator, controller, detachingDuration, message)
	if err != nil {
		return "", err
	}
	r.index.append(hash)
	return hash, nil
}

// TokenContexts exposes the per-token attachment index read-only, with the
// same bounds-checked access as the global sequence.
type TokenContexts struct {
	store attachment.Store
}

func NewTokenContexts(store attachment.Store) *TokenContexts {
	return &TokenContexts{store: store}
}

// At returns the context at the given position of the token's list.
func (t *TokenContexts) At(ctx context.Context, token id.TokenID, index int) (id.CtxHash, error) {
	hash, err := t.store.At(ctx, token, index)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", dErrors.New(dErrors.CodeBadRequest, "token context index out of range")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to read token contexts")
	}
	return hash, nil
}

// Count returns the number of contexts attached to the token.
func (t *TokenContexts) Count(ctx context.Context, token id.TokenID) (int, error) {
	return t.store.Count(ctx, token)
}

// List returns the token's attached contexts.
func (t *TokenContexts) List(ctx context.Context, token id.TokenID) ([]id.CtxHash, error) {
	return t.store.List(ctx, token)
}
