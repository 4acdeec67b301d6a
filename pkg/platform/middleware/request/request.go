// Package request assigns each HTTP request a unique ID for log correlation.
package request

import (
	"net/http"

	"github.com/google/uuid"

	"tokenctx/pkg/requestcontext"
)

// HeaderRequestID is echoed on every response so clients can report it.
const HeaderRequestID = "X-Request-Id"

// Middleware generates a request ID (or adopts the caller-supplied one) and
// stores it in the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, requestID)
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
