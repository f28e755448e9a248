// Package middleware adapts the request limit service to chi.
package middleware

import (
	"net/http"
	"strconv"

	"gmarup/internal/http/shared"
	"gmarup/internal/ratelimit/service/requestlimit"
	"gmarup/pkg/requestcontext"
)

// Limit rejects requests over the per-IP budget with 429. Rate limit headers
// are set on every response so clients can pace themselves before hitting
// the wall.
func Limit(limiter *requestlimit.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result := limiter.CheckIP(r.Context(), requestcontext.ClientIP(r.Context()))

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed {
				shared.WriteJSON(w, http.StatusTooManyRequests, shared.Envelope{
					"success": false,
					"error":   "too many requests",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
