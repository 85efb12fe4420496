package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/MrEthical07/edgeauth"
	"github.com/MrEthical07/edgeauth/internal/respond"
	"github.com/MrEthical07/edgeauth/jwt"
	"github.com/MrEthical07/edgeauth/permission"
)

type claimsContextKey struct{}
type roleContextKey struct{}

// ClaimsFromContext returns the access claims stored by RequireAccessToken.
func ClaimsFromContext(ctx context.Context) (*jwt.Claims, bool) {
	c, ok := ctx.Value(claimsContextKey{}).(*jwt.Claims)
	return c, ok && c != nil
}

// RoleFromContext returns the effective role resolved by RequireRole.
func RoleFromContext(ctx context.Context) (permission.Role, bool) {
	r, ok := ctx.Value(roleContextKey{}).(permission.Role)
	return r, ok
}

// RequireAccessToken verifies the bearer access token and stores its claims in the
// request context. It never touches the store.
func RequireAccessToken(engine *edgeauth.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				respond.Error(w, edgeauth.ErrInternal)
				return
			}

			claims, err := engine.RequireAccessToken(bearerToken(r.Header.Get("Authorization")))
			if err != nil {
				respond.Error(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole resolves the caller's effective role and rejects it unless it meets one
// of allowed. It must run after RequireAccessToken.
func RequireRole(engine *edgeauth.Engine, allowed ...permission.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				respond.Error(w, edgeauth.ErrInternal)
				return
			}

			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				respond.Error(w, edgeauth.ErrMissingToken)
				return
			}

			role, err := engine.RequireRole(r.Context(), claims, allowed...)
			if err != nil {
				respond.Error(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), roleContextKey{}, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken returns "" when the header is absent or not a Bearer credential.
func bearerToken(value string) string {
	const bearer = "bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return ""
	}
	return strings.TrimSpace(value[len(bearer):])
}
