package kv

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Get and GetAndDelete when the key is absent or expired.
	ErrNotFound = errors.New("kv: key not found")
	// ErrUnavailable wraps backend failures, including call timeouts.
	ErrUnavailable = errors.New("kv: store unavailable")
	// ErrCorrupt is returned by the typed helpers when a stored value cannot be decoded.
	ErrCorrupt = errors.New("kv: corrupt value")
)

// Store is the narrow key-value contract the auth core depends on.
//
// A ttl <= 0 on Set means the key never expires. GetAndDelete must behave as a single
// atomic read-then-remove: of any number of concurrent callers for the same key, at most
// one observes the value.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	GetAndDelete(ctx context.Context, key string) ([]byte, error)
}
