package permission

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/edgeauth/kv"
)

var (
	// ErrStoreUnavailable is returned when the stored role cannot be read or written.
	ErrStoreUnavailable = errors.New("role store unavailable")
	// ErrInvalidRole is returned by Set for an unknown role.
	ErrInvalidRole = errors.New("invalid role")
)

const roleKeyPrefix = "userrole:"

// AdminConfig lists identities that always resolve to the top role. Email matching
// is case-insensitive; user ids match exactly.
type AdminConfig struct {
	Emails  []string
	UserIDs []string
}

// Resolver computes effective roles from the per-user role record and the admin
// override. It never touches session or refresh records.
type Resolver struct {
	kv     kv.Store
	emails map[string]struct{}
	ids    map[string]struct{}
}

// NewResolver builds a Resolver. Blank entries in admins are ignored.
func NewResolver(store kv.Store, admins AdminConfig) *Resolver {
	r := &Resolver{
		kv:     store,
		emails: make(map[string]struct{}, len(admins.Emails)),
		ids:    make(map[string]struct{}, len(admins.UserIDs)),
	}
	for _, e := range admins.Emails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			r.emails[e] = struct{}{}
		}
	}
	for _, id := range admins.UserIDs {
		if id = strings.TrimSpace(id); id != "" {
			r.ids[id] = struct{}{}
		}
	}
	return r
}

func roleKey(userID string) string { return roleKeyPrefix + userID }

// Override returns the top role when subject or email is a configured admin.
func (r *Resolver) Override(subject, email string) (Role, bool) {
	if subject != "" {
		if _, ok := r.ids[subject]; ok {
			return Top, true
		}
	}
	if email != "" {
		if _, ok := r.emails[strings.ToLower(strings.TrimSpace(email))]; ok {
			return Top, true
		}
	}
	return RoleNone, false
}

// Resolve returns the stored role for userID, or fallback when none is stored or the
// stored value is not a known role. Store failures are returned so callers can deny.
func (r *Resolver) Resolve(ctx context.Context, userID string, fallback Role) (Role, error) {
	if userID == "" {
		return fallback, nil
	}
	stored, err := kv.GetJSON[string](ctx, r.kv, roleKey(userID))
	switch {
	case err == nil:
	case errors.Is(err, kv.ErrNotFound), errors.Is(err, kv.ErrCorrupt):
		return fallback, nil
	default:
		return RoleNone, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	role, ok := ParseRole(stored)
	if !ok {
		return fallback, nil
	}
	return role, nil
}

// Effective applies the admin override first and falls back to Resolve.
func (r *Resolver) Effective(ctx context.Context, subject, email string, fallback Role) (Role, error) {
	if role, ok := r.Override(subject, email); ok {
		return role, nil
	}
	return r.Resolve(ctx, subject, fallback)
}

// Set stores role for userID without expiry.
func (r *Resolver) Set(ctx context.Context, userID string, role Role) error {
	if userID == "" {
		return errors.New("user id is required")
	}
	if !role.Valid() {
		return ErrInvalidRole
	}
	if err := kv.SetJSON(ctx, r.kv, roleKey(userID), string(role), 0); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
