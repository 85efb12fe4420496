// Package session persists session records and single-use refresh-token records on
// top of the kv adapter.
//
// # Keys
//
//	session:{sessionId}  -> Session
//	rt:{tokenId}         -> RefreshRecord
//
// Both are written with the refresh-token lifetime as TTL.
//
// # Architecture boundaries
//
// This package owns record layout and the atomic consume of refresh records. It does
// NOT interpret tokens, resolve roles, or decide what a missing record means; those
// decisions belong to the Engine.
package session
