package domain

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"

	dErrors "tokenctx/pkg/domain-errors"
)

// CtxHashSize is the byte length of a context identifier.
const CtxHashSize = 32

// CtxHash is the content-derived identifier of a context: a SHA3-256 digest
// over the creator identity and an opaque creation message. Namespacing by
// creator means two creators can never collide on the same hash, so a context
// identifier cannot be squatted.
type CtxHash string

// ComputeCtxHash derives the context identifier for a creator/message pair.
// The derivation is deterministic: the same pair always yields the same hash.
func ComputeCtxHash(creator Identity, message []byte) CtxHash {
	h := sha3.New256()
	h.Write([]byte(creator))
	h.Write(message)
	return CtxHash(hex.EncodeToString(h.Sum(nil)))
}

// ParseCtxHash constructs a CtxHash from external input.
//
// Errors: returns CodeBadRequest when the value is not a 64-character hex
// string; no other errors are expected.
func ParseCtxHash(s string) (CtxHash, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != CtxHashSize*2 {
		return "", dErrors.New(dErrors.CodeBadRequest, "context hash must be 32 bytes hex-encoded")
	}
	if _, err := hex.DecodeString(s); err != nil {
		return "", dErrors.New(dErrors.CodeBadRequest, "context hash must be valid hex")
	}
	return CtxHash(s), nil
}

// String returns the hex string representation of the hash.
func (c CtxHash) String() string {
	return string(c)
}
