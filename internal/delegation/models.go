package delegation

import (
	"time"

	id "tokenctx/pkg/domain"
)

// State derives the delegation state machine position. Both Pending and
// Active decay to None once the expiration passes; decay is lazy, evaluated
// against the caller's clock, never via a scheduled wake-up.
type State string

const (
	StateNone    State = "none"
	StatePending State = "pending"
	StateActive  State = "active"
)

// Delegation is the per-token record of time-bounded ownership-management
// rights. It is owned exclusively by its token and never shared.
type Delegation struct {
	Delegatee id.Identity
	Until     time.Time
	Delegated bool
}

// StateAt derives the state at the given time. A nil record is None.
func (d *Delegation) StateAt(now time.Time) State {
	if d == nil || !now.Before(d.Until) {
		return StateNone
	}
	if d.Delegated {
		return StateActive
	}
	return StatePending
}
