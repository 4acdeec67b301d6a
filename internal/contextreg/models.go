package contextreg

import (
	"time"

	id "tokenctx/pkg/domain"
)

// Context is a controller-owned capability scope attachable to tokens.
//
// Invariants: once created the record exists forever; Active transitions
// true to false exactly once (deprecation) and never back. Deprecation blocks
// new attachments, updates, lock toggles, and user reassignment, but never
// detachment of already-attached tokens.
type Context struct {
	Controller        id.Identity
	DetachingDuration time.Duration
	Active            bool
}
