package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/edgeauth/kv"
	"github.com/google/uuid"
)

var (
	// ErrSessionNotFound is returned when the session record is absent, i.e. revoked
	// or expired.
	ErrSessionNotFound = errors.New("session not found")
	// ErrRefreshNotFound is returned by ConsumeRefresh when the refresh record was
	// already consumed or never existed.
	ErrRefreshNotFound = errors.New("refresh record not found")
	// ErrStoreUnavailable wraps backend failures and undecodable records.
	ErrStoreUnavailable = errors.New("session store unavailable")
)

const (
	sessionKeyPrefix = "session:"
	refreshKeyPrefix = "rt:"
)

// Store persists session and refresh-token records on a kv.Store.
type Store struct {
	kv kv.Store
}

// NewStore wraps store.
func NewStore(store kv.Store) *Store {
	return &Store{kv: store}
}

// NewID returns a fresh random identifier for a session or token. Identifiers are
// UUIDv4 strings and are never reissued.
func NewID() string {
	return uuid.NewString()
}

func sessionKey(sessionID string) string { return sessionKeyPrefix + sessionID }

func refreshKey(tokenID string) string { return refreshKeyPrefix + tokenID }

// Create writes the session record for sessionID with the given lifetime.
func (s *Store) Create(ctx context.Context, sessionID string, sess *Session, ttl time.Duration) error {
	if sessionID == "" || sess == nil {
		return errors.New("session id and record are required")
	}
	return mapErr(kv.SetJSON(ctx, s.kv, sessionKey(sessionID), sess, ttl))
}

// Get returns the session record for sessionID.
func (s *Store) Get(ctx context.Context, sessionID string) (*Session, error) {
	sess, err := kv.GetJSON[Session](ctx, s.kv, sessionKey(sessionID))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, mapErr(err)
	}
	return &sess, nil
}

// Delete removes the session record. Deleting an absent session is not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	return mapErr(s.kv.Delete(ctx, sessionKey(sessionID)))
}

// IssueRefresh writes the single-use record backing refresh token tokenID.
func (s *Store) IssueRefresh(ctx context.Context, tokenID string, rec *RefreshRecord, ttl time.Duration) error {
	if tokenID == "" || rec == nil {
		return errors.New("token id and record are required")
	}
	return mapErr(kv.SetJSON(ctx, s.kv, refreshKey(tokenID), rec, ttl))
}

// ConsumeRefresh atomically takes the record for tokenID. Only one caller can ever
// receive a given record; every later call gets ErrRefreshNotFound.
func (s *Store) ConsumeRefresh(ctx context.Context, tokenID string) (*RefreshRecord, error) {
	rec, err := kv.TakeJSON[RefreshRecord](ctx, s.kv, refreshKey(tokenID))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, ErrRefreshNotFound
		}
		return nil, mapErr(err)
	}
	return &rec, nil
}

// DeleteRefresh removes the record for tokenID if present.
func (s *Store) DeleteRefresh(ctx context.Context, tokenID string) error {
	return mapErr(s.kv.Delete(ctx, refreshKey(tokenID)))
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, kv.ErrUnavailable) || errors.Is(err, kv.ErrCorrupt) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return err
}
