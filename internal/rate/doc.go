// Package rate implements fixed-window request counters over the kv adapter.
//
// # Window semantics
//
// First request for a key (or first after resetAt) creates {count: 1, resetAt: now+window}
// with TTL = window. Later requests increment count and refresh the TTL to the time left.
// A request is denied once count exceeds the limit; RetryAfter is the time left rounded
// up to whole seconds, never less than one.
//
// Keys: rl:{prefix}:{ip}:{userId|anon}.
//
// # What this package must NOT do
//
//   - Decide what a store failure means for the request (the caller denies).
//   - Be imported outside the edgeauth module.
package rate
