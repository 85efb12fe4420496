package test

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/MrEthical07/edgeauth"
	"github.com/MrEthical07/edgeauth/middleware"
	"github.com/MrEthical07/edgeauth/permission"
	"github.com/redis/go-redis/v9"
)

// Example_newEngine demonstrates engine construction with a Redis store and an
// application-supplied credential check.
func Example_newEngine() {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})

	cfg := edgeauth.DefaultConfig()
	cfg.JWT.Secret = []byte("replace-with-32-or-more-random-bytes")
	cfg.Admin.Emails = []string{"ops@example.com"}

	engine, err := edgeauth.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithAuthenticator(edgeauth.AuthenticatorFunc(func(ctx context.Context, email, password string) (edgeauth.Identity, error) {
			return edgeauth.Identity{}, edgeauth.ErrInvalidCredentials
		})).
		Build()
	if err != nil {
		return
	}
	defer engine.Close()
}

// Example_refreshReuse shows how a client reacts to reuse detection.
func Example_refreshReuse() {
	var engine *edgeauth.Engine
	_, err := engine.Refresh(context.Background(), "presented-refresh-token")
	switch {
	case errors.Is(err, edgeauth.ErrRefreshReuse), errors.Is(err, edgeauth.ErrSessionRevoked):
		// the session is gone; the user must log in again
	case err != nil:
		_ = err
	}
}

// Example_requireRole guards a route with the access-token and role middleware.
func Example_requireRole() {
	var engine *edgeauth.Engine
	mux := http.NewServeMux()
	mux.Handle("/dj/ping", middleware.RequireAccessToken(engine)(
		middleware.RequireRole(engine, permission.RoleDJ)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, _ := middleware.RoleFromContext(r.Context())
			fmt.Fprintf(w, "hello %s", role)
		})),
	))
}
