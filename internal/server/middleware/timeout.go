package middleware

import (
	"context"
	"net/http"
	"time"
)

// timeoutBody is the response written when a handler overruns its deadline,
// shaped like the handlers' error envelope.
const timeoutBody = `{"success":false,"error":{"code":"TIMEOUT","message":"request timed out"}}`

// Timeout bounds every request to the given duration. The deadline propagates
// through the request context so storage and processor calls are cut off too,
// and the 503 body matches the API's envelope.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		bounded := http.TimeoutHandler(next, timeout, timeoutBody)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			bounded.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
