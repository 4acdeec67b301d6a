package controller

import (
	"context"
	"sync"

	id "tokenctx/pkg/domain"
)

// Controller is the callback contract a context controller implements to
// receive notifications and exercise veto power over attachment.
//
// OnAttached may reject; it is invoked synchronously and its error aborts
// the attach. The other two hooks are advisory: their outcome is ignored.
type Controller interface {
	OnAttached(ctx context.Context, hash id.CtxHash, token id.TokenID, operator id.Identity, data []byte) error
	OnDetachRequested(ctx context.Context, hash id.CtxHash, token id.TokenID, operator id.Identity, data []byte) error
	OnExecDetachContext(ctx context.Context, hash id.CtxHash, token id.TokenID, user, operator id.Identity, data []byte) error
}

// Resolver maps a controller identity to its callback implementation.
// Identities with no registered implementation are plain accounts and
// receive no callbacks at all.
type Resolver interface {
	Resolve(controller id.Identity) (Controller, bool)
}

// RegistryResolver is the in-process Resolver: controllers register their
// callback implementation under their identity.
type RegistryResolver struct {
	mu          sync.RWMutex
	controllers map[id.Identity]Controller
}

func NewRegistryResolver() *RegistryResolver {
	return &RegistryResolver{controllers: make(map[id.Identity]Controller)}
}

// Register binds a callback implementation to a controller identity,
// replacing any previous binding.
func (r *RegistryResolver) Register(controller id.Identity, impl Controller) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.controllers[controller] = impl
}

// Unregister removes the binding; the identity becomes a plain account.
func (r *RegistryResolver) Unregister(controller id.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.controllers, controller)
}

func (r *RegistryResolver) Resolve(controller id.Identity) (Controller, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	impl, ok := r.controllers[controller]
	return impl, ok
}
