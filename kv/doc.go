// Package kv is the key-value adapter behind sessions, refresh-token records, role
// records and rate-limit buckets.
//
// # Implementations
//
//   - [Redis] for deployments with a Redis address; GetAndDelete is a Lua script.
//   - [Memory] as the in-process fallback.
//
// Both are usually wrapped with [WithTimeout] so that no call blocks past a bound.
//
// # Serialization
//
// Values are opaque bytes at the [Store] level. Callers go through [GetJSON], [SetJSON]
// and [TakeJSON], which are the only place stored values are decoded.
package kv
