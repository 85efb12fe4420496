// Package edgeauth provides token-based authentication and session lifecycle
// management for stateless backends: HS256 access/refresh token pairs, refresh
// rotation on every use, reuse detection that revokes the whole session, effective
// role resolution with an admin override, and fixed-window rate limiting.
//
// Engine methods are safe to call from multiple goroutines after [Builder.Build].
//
// # Architecture boundaries
//
// edgeauth is the public surface. It exposes [Engine], [Builder], [Config], the
// [Error] taxonomy and value types. Flow orchestration lives in internal/flows, the
// limiter in internal/rate and audit dispatch in internal/audit.
//
// # What this package must NOT do
//
//   - Expose raw store bytes; all records cross the kv typed JSON boundary.
//   - Log or render the signing secret.
//   - Import any sub-package that re-imports edgeauth (no import cycles).
//
// # Performance contract
//
// RequireAccessToken is the hot path and performs no store round-trip. RequireRole
// performs one read. Refresh performs a read, an atomic get-and-delete and two writes.
package edgeauth
