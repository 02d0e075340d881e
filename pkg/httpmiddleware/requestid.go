package httpmiddleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"

	// maxRequestIDLen bounds client-supplied request IDs so they stay usable
	// as log fields.
	maxRequestIDLen = 128
)

type requestIDKey struct{}

// RequestIDFromContext returns the request ID stored by RequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestID tags every request with an identifier, echoed on the response
// header and stored in the request context. A client-supplied X-Request-ID is
// kept when it is visible ASCII within the length bound; anything else is
// replaced with a fresh UUID.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := acceptRequestID(r.Header.Get(requestIDHeader))
			w.Header().Set(requestIDHeader, id)

			ctx := context.WithValue(r.Context(), requestIDKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func acceptRequestID(id string) string {
	usable := id != "" && len(id) <= maxRequestIDLen &&
		!strings.ContainsFunc(id, func(c rune) bool { return c < '!' || c > '~' })
	if !usable {
		return uuid.New().String()
	}
	return id
}
