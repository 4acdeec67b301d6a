package domain

import (
	"strings"

	dErrors "tokenctx/pkg/domain-errors"
)

// Identity is a domain value naming an account that can own tokens, control
// contexts, or act as a delegatee. It is an opaque, case-insensitive
// address-like string normalized to lowercase.
//
// Usage: construct via ParseIdentity at trust boundaries; direct casting
// bypasses normalization.
type Identity string

// ZeroIdentity is the null identity. It is never a valid controller,
// delegatee, or context user.
const ZeroIdentity Identity = ""

const maxIdentityLen = 128

// ParseIdentity constructs an Identity from external input.
//
// Errors: returns CodeBadRequest when the value is empty, too long, or
// contains whitespace; no other errors are expected.
func ParseIdentity(s string) (Identity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ZeroIdentity, dErrors.New(dErrors.CodeBadRequest, "identity cannot be empty")
	}
	if len(s) > maxIdentityLen {
		return ZeroIdentity, dErrors.New(dErrors.CodeBadRequest, "identity too long")
	}
	if strings.ContainsAny(s, " \t\n") {
		return ZeroIdentity, dErrors.New(dErrors.CodeBadRequest, "identity cannot contain whitespace")
	}
	return Identity(strings.ToLower(s)), nil
}

// IsZero reports whether the identity is the null identity.
func (i Identity) IsZero() bool {
	return i == ZeroIdentity
}

// String returns the string representation of the identity.
func (i Identity) String() string {
	return string(i)
}
