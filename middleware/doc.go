// Package middleware adapts the Engine's access guard and rate limiter to
// func(http.Handler) http.Handler middleware.
//
//   - [RequireAccessToken] verifies the bearer token and stores its claims.
//   - [RequireRole] resolves the effective role (admin override, stored role, claim)
//     and checks it against the allowed roles.
//   - [RateLimit] applies a fixed-window policy per client IP and user.
//
// Failures are written as the JSON error envelope. All decisions are delegated to
// the Engine; this package never parses tokens or talks to the store itself.
package middleware
