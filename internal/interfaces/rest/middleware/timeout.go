package middleware

import (
	"context"
	"net/http"
	"time"
)

const timeoutBody = `{"success":false,"message":"Request timeout","code":"TIMEOUT"}`

// Timeout bounds handler execution. Handlers observe the deadline through the
// request context and the client receives timeoutBody with a 503.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			r = r.WithContext(ctx)

			timeoutHandler := http.TimeoutHandler(next, timeout, timeoutBody)
			timeoutHandler.ServeHTTP(w, r)
		})
	}
}
