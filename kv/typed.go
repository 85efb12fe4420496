package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// GetJSON reads key and decodes it into a T.
func GetJSON[T any](ctx context.Context, s Store, key string) (T, error) {
	var out T
	raw, err := s.Get(ctx, key)
	if err != nil {
		return out, err
	}
	return decode[T](raw)
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("kv: encode %s: %w", key, err)
	}
	return s.Set(ctx, key, raw, ttl)
}

// TakeJSON atomically removes key and decodes the value it held.
func TakeJSON[T any](ctx context.Context, s Store, key string) (T, error) {
	var out T
	raw, err := s.GetAndDelete(ctx, key)
	if err != nil {
		return out, err
	}
	return decode[T](raw)
}

func decode[T any](raw []byte) (T, error) {
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return out, nil
}
