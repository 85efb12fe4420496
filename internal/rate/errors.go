package rate

import "errors"

var (
	// ErrRateLimited is returned by callers that turn a denied Decision into an error.
	ErrRateLimited = errors.New("rate limited")
	// ErrStoreUnavailable is returned when a bucket cannot be read or written.
	ErrStoreUnavailable = errors.New("rate limit store unavailable")
)
