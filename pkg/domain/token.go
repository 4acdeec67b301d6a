package domain

import (
	"strconv"

	dErrors "tokenctx/pkg/domain-errors"
)

// TokenID uniquely identifies an asset in the underlying registry.
type TokenID uint64

// ParseTokenID constructs a TokenID from its decimal string form.
//
// Usage: call from handlers when parsing path parameters.
func ParseTokenID(s string) (TokenID, error) {
	if s == "" {
		return 0, dErrors.New(dErrors.CodeBadRequest, "token id cannot be empty")
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeBadRequest, "invalid token id")
	}
	return TokenID(v), nil
}

// String returns the decimal string representation of the token ID.
func (t TokenID) String() string {
	return strconv.FormatUint(uint64(t), 10)
}
