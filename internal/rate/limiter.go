package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/edgeauth/kv"
)

// Policy is one endpoint class: at most Limit requests per Window per identity.
// A Limit <= 0 disables the policy.
type Policy struct {
	Prefix string
	Limit  int
	Window time.Duration
}

// Decision is the outcome of one Check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	ResetAt    time.Time
}

type bucket struct {
	Count   int   `json:"count"`
	ResetAt int64 `json:"resetAt"`
}

// Limiter enforces fixed-window counters stored in a kv.Store. Counters are advisory:
// concurrent bursts from one identity may be miscounted by a few near the boundary.
type Limiter struct {
	kv  kv.Store
	now func() time.Time
}

// New creates a Limiter. A nil now uses time.Now.
func New(store kv.Store, now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	return &Limiter{kv: store, now: now}
}

// Check counts one request for id under p and reports whether it is allowed.
// Store failures are returned as ErrStoreUnavailable and the caller decides to deny.
func (l *Limiter) Check(ctx context.Context, p Policy, id Identity) (Decision, error) {
	if p.Limit <= 0 || p.Window <= 0 {
		return Decision{Allowed: true, Limit: p.Limit}, nil
	}

	key := id.Key(p.Prefix)
	now := l.now()
	nowMs := now.UnixMilli()

	b, err := kv.GetJSON[bucket](ctx, l.kv, key)
	switch {
	case err == nil:
	case errors.Is(err, kv.ErrNotFound), errors.Is(err, kv.ErrCorrupt):
		b = bucket{}
	default:
		return Decision{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var ttl time.Duration
	if b.Count == 0 || nowMs >= b.ResetAt {
		b = bucket{Count: 1, ResetAt: now.Add(p.Window).UnixMilli()}
		ttl = p.Window
	} else {
		b.Count++
		ttl = ceilSeconds(b.ResetAt - nowMs)
	}

	if err := kv.SetJSON(ctx, l.kv, key, b, ttl); err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	d := Decision{
		Allowed:   b.Count <= p.Limit,
		Limit:     p.Limit,
		Remaining: max(0, p.Limit-b.Count),
		ResetAt:   time.UnixMilli(b.ResetAt),
	}
	if !d.Allowed {
		d.RetryAfter = ceilSeconds(b.ResetAt - nowMs)
	}
	return d, nil
}

// ceilSeconds rounds a millisecond span up to whole seconds, with a floor of one.
func ceilSeconds(ms int64) time.Duration {
	secs := (ms + 999) / 1000
	if secs < 1 {
		secs = 1
	}
	return time.Duration(secs) * time.Second
}
