// Package domainerrors defines the coded error vocabulary shared by services
// and transport. Services translate store sentinels and validation failures
// into coded errors; the HTTP layer maps codes onto status responses.
//
// Every failure is synchronous and aborts its operation with no partial
// effect; there is no retry policy encoded here.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain failure.
type Code string

// Generic codes used across layers.
const (
	CodeBadRequest   Code = "bad_request"
	CodeUnauthorized Code = "unauthorized"
	CodeNotFound     Code = "not_found"
	CodeInternal     Code = "internal_error"
)

// Context lifecycle codes.
const (
	CodeInvalidController            Code = "invalid_controller"
	CodeExceededMaxDetachingDuration Code = "exceeded_max_detaching_duration"
	CodeExistentContext              Code = "existent_context"
	CodeNonexistentContext           Code = "nonexistent_context"
	CodeInactiveContext              Code = "inactive_context"
)

// Attachment codes.
const (
	CodeAlreadyAttachedContext     Code = "already_attached_context"
	CodeNonexistentAttachedContext Code = "nonexistent_attached_context"
	CodeRequestedForDetachment     Code = "requested_for_detachment"
	CodeNotRequestedForDetachment  Code = "not_requested_for_detachment"
	CodeUnreadyForDetachment       Code = "unready_for_detachment"
	CodeInvalidContextUser         Code = "invalid_context_user"
)

// Delegation and authorization codes. CodeInsufficientApproval marks a failure
// on the delegatee authorization path; CodeNotOwnerAuthorized marks the asset
// registry's own owner-path failure. They stay distinct so callers can tell
// which path was evaluated.
const (
	CodeInsufficientApproval                  Code = "insufficient_approval"
	CodeNotOwnerAuthorized                    Code = "not_owner_authorized"
	CodeAlreadyDelegatedOwnership             Code = "already_delegated_ownership"
	CodeInactiveOwnershipDelegation           Code = "inactive_ownership_delegation"
	CodeNonexistentPendingOwnershipDelegation Code = "nonexistent_pending_ownership_delegation"
	CodeInvalidDelegatee                      Code = "invalid_delegatee"
	CodeInvalidDelegationExpiration           Code = "invalid_delegation_expiration"
)

// DomainError carries a code plus a human-readable message. It may wrap an
// underlying cause for diagnostics.
type DomainError struct {
	Code    Code
	Message string
	cause   error
}

func (e *DomainError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.cause
}

// New constructs a coded domain error.
func New(code Code, message string) error {
	return &DomainError{Code: code, Message: message}
}

// Newf constructs a coded domain error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, message string) error {
	return &DomainError{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for uncoded
// errors.
func CodeOf(err error) Code {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a domain code onto an HTTP status for the transport layer.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeInvalidController, CodeExceededMaxDetachingDuration,
		CodeInvalidContextUser, CodeInvalidDelegatee, CodeInvalidDelegationExpiration:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeInsufficientApproval, CodeNotOwnerAuthorized:
		return http.StatusForbidden
	case CodeNotFound, CodeNonexistentContext, CodeNonexistentAttachedContext,
		CodeNonexistentPendingOwnershipDelegation:
		return http.StatusNotFound
	case CodeExistentContext, CodeAlreadyAttachedContext, CodeRequestedForDetachment,
		CodeNotRequestedForDetachment, CodeUnreadyForDetachment,
		CodeAlreadyDelegatedOwnership, CodeInactiveOwnershipDelegation,
		CodeInactiveContext:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
