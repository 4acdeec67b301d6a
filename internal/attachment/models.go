package attachment

import (
	"time"

	id "tokenctx/pkg/domain"
)

// State derives the position of a (token, context) pair in the attachment
// state machine. Transitions:
//
//	Free -> AttachedUnlocked -> LockedNotRequested ->
//	LockedRequestedWaiting -> LockedRequestedPassed -> Free
type State string

const (
	StateFree                   State = "free"
	StateAttachedUnlocked       State = "attached_unlocked"
	StateLockedNotRequested     State = "locked_not_requested"
	StateLockedRequestedWaiting State = "locked_requested_waiting"
	StateLockedRequestedPassed  State = "locked_requested_passed"
)

// TokenContext is the per-(token, context) attachment record.
//
// Invariant: Attached == false implies every other field is at its zero
// value. Detach resets the whole record rather than marking it inactive, so
// a pair can cycle through attach/detach indefinitely.
type TokenContext struct {
	Attached             bool
	Locked               bool
	User                 id.Identity
	ReadyForDetachmentAt time.Time // zero = detachment not requested
}

// Requested reports whether a detachment request is pending.
func (t TokenContext) Requested() bool {
	return !t.ReadyForDetachmentAt.IsZero()
}

// State derives the state machine position at the given time.
func (t TokenContext) State(now time.Time) State {
	switch {
	case !t.Attached:
		return StateFree
	case !t.Locked && !t.Requested():
		return StateAttachedUnlocked
	case !t.Requested():
		return StateLockedNotRequested
	case now.Before(t.ReadyForDetachmentAt):
		return StateLockedRequestedWaiting
	default:
		return StateLockedRequestedPassed
	}
}
