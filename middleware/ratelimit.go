package middleware

import (
	"net/http"

	"github.com/MrEthical07/edgeauth"
	"github.com/MrEthical07/edgeauth/internal/rate"
	"github.com/MrEthical07/edgeauth/internal/respond"
)

// RateLimit counts the request against class, keyed by client IP and, when
// RequireAccessToken ran first, the caller's user id. Denied requests get 429 with
// Retry-After; a store failure denies with 503.
func RateLimit(engine *edgeauth.Engine, class edgeauth.RateClass) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				respond.Error(w, edgeauth.ErrInternal)
				return
			}

			ip := edgeauth.ClientIPFromContext(r.Context())
			if ip == "" {
				ip = rate.ClientIP(r)
			}
			userID := ""
			if claims, ok := ClaimsFromContext(r.Context()); ok {
				userID = claims.Subject
			}

			d, err := engine.RateLimit(r.Context(), class, ip, userID)
			respond.RateLimitHeaders(w, d)
			if err != nil {
				respond.Error(w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
