package kv

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type timeoutStore struct {
	next Store
	d    time.Duration
}

// WithTimeout bounds every call on next by d. Deadline and cancellation errors are
// reported as ErrUnavailable so callers fail closed. A d <= 0 returns next unchanged.
func WithTimeout(next Store, d time.Duration) Store {
	if d <= 0 {
		return next
	}
	return &timeoutStore{next: next, d: d}
}

func (s *timeoutStore) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.d)
	defer cancel()
	v, err := s.next.Get(ctx, key)
	return v, mapContextErr(err)
}

func (s *timeoutStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, s.d)
	defer cancel()
	return mapContextErr(s.next.Set(ctx, key, value, ttl))
}

func (s *timeoutStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, s.d)
	defer cancel()
	return mapContextErr(s.next.Delete(ctx, key))
}

func (s *timeoutStore) GetAndDelete(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.d)
	defer cancel()
	v, err := s.next.GetAndDelete(ctx, key)
	return v, mapContextErr(err)
}

func mapContextErr(err error) error {
	if err == nil || errors.Is(err, ErrUnavailable) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
