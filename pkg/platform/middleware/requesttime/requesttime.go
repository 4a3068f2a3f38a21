// Package requesttime provides middleware for request-scoped time.
// All lifecycle decisions within a single HTTP request (expiry checks,
// lastActionDate, audit timestamps) use the same "now".
package requesttime

import (
	"net/http"
	"time"

	"xs2acms/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
