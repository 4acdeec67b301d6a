package event

import (
	"time"

	"github.com/google/uuid"

	id "tokenctx/pkg/domain"
)

// Type names a state transition notification.
type Type string

const (
	TypeContextUpdated             Type = "context.updated"
	TypeContextDeprecated          Type = "context.deprecated"
	TypeContextAttached            Type = "context.attached"
	TypeContextDetachmentRequested Type = "context.detachment_requested"
	TypeContextDetached            Type = "context.detached"
	TypeContextUserAssigned        Type = "context.user_assigned"
	TypeContextLockUpdated         Type = "context.lock_updated"
	TypeDelegationStarted          Type = "delegation.started"
	TypeDelegationAccepted         Type = "delegation.accepted"
	TypeDelegationStopped          Type = "delegation.stopped"
)

// Event is emitted from domain logic to capture state transitions. It carries
// the identifiers needed to reconstruct the transition and stays
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID                uuid.UUID     `json:"id"`
	Type              Type          `json:"type"`
	Timestamp         time.Time     `json:"timestamp"`
	CtxHash           id.CtxHash    `json:"ctx_hash,omitempty"`
	Token             id.TokenID    `json:"token,omitempty"`
	Controller        id.Identity   `json:"controller,omitempty"`
	Delegatee         id.Identity   `json:"delegatee,omitempty"`
	User              id.Identity   `json:"user,omitempty"`
	Operator          id.Identity   `json:"operator,omitempty"`
	Locked            bool          `json:"locked,omitempty"`
	DetachingDuration time.Duration `json:"detaching_duration,omitempty"`
	Until             time.Time     `json:"until,omitzero"`
}
