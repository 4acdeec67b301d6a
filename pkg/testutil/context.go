package testutil

import (
	"net/http"
	"time"

	id "tokenctx/pkg/domain"
	"tokenctx/pkg/requestcontext"
)

// WithOperator adds an operator identity to the request context. This
// simulates what the auth middleware would do for authenticated requests.
// Invalid identities are silently ignored.
func WithOperator(req *http.Request, operator string) *http.Request {
	parsed, err := id.ParseIdentity(operator)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithOperator(req.Context(), parsed))
}

// WithTime pins the request-scoped clock, so handlers evaluate time-gated
// transitions against a fixed instant.
func WithTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}
