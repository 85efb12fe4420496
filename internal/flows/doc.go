// Package flows contains the orchestration behind every Engine operation.
//
// Each flow function (RunLogin, RunRefresh, RunLogout, RunValidateAccess, RunAuthorize)
// accepts a typed dependency struct and returns a result with a failure kind instead
// of a host-level error. The Engine maps kinds onto its error taxonomy, metrics and
// audit events.
//
// # Architecture boundaries
//
// Flow functions coordinate the token codec, session store and role resolver. They do
// NOT own any of these resources; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import edgeauth (to avoid import cycles).
//   - Perform I/O directly; all I/O is mediated through dependency interfaces.
package flows
