// Package permission defines the ordered role set and the resolver that turns a user
// identity into an effective role.
//
// # Precedence
//
//  1. Admin override (configured email or user id) always yields [RoleAdmin].
//  2. The stored role at userrole:{userId}, when present and recognised.
//  3. The caller-supplied fallback (token snapshot or authenticator seed).
//
// A role embedded in a token is a snapshot taken at issue time and is only ever used
// as the fallback.
//
// # What this package must NOT do
//
//   - Read or write session and refresh-token records.
//   - Import edgeauth, jwt, or session.
package permission
