package permission

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/edgeauth/kv"
)

type failingStore struct{ kv.Store }

func (failingStore) Get(context.Context, string) ([]byte, error) {
	return nil, kv.ErrUnavailable
}

func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return kv.ErrUnavailable
}

func TestResolveStoredAndFallback(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory(nil)
	r := NewResolver(store, AdminConfig{})

	got, err := r.Resolve(ctx, "u1", RoleUser)
	if err != nil || got != RoleUser {
		t.Fatalf("expected fallback user, got %q %v", got, err)
	}

	if err := r.Set(ctx, "u1", RoleDJ); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err = r.Resolve(ctx, "u1", RoleUser)
	if err != nil || got != RoleDJ {
		t.Fatalf("expected stored dj, got %q %v", got, err)
	}

	_ = kv.SetJSON(ctx, store, "userrole:u2", "superuser", 0)
	got, err = r.Resolve(ctx, "u2", RoleUser)
	if err != nil || got != RoleUser {
		t.Fatalf("expected fallback for unknown stored role, got %q %v", got, err)
	}

	_ = store.Set(ctx, "userrole:u3", []byte("garbage"), 0)
	got, err = r.Resolve(ctx, "u3", RoleDJ)
	if err != nil || got != RoleDJ {
		t.Fatalf("expected fallback for undecodable role, got %q %v", got, err)
	}
}

func TestOverrideBeatsStoredRole(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory(nil)
	r := NewResolver(store, AdminConfig{Emails: []string{" Boss@Example.com "}, UserIDs: []string{"root-id"}})

	_ = r.Set(ctx, "u1", RoleUser)
	got, err := r.Effective(ctx, "u1", "boss@example.COM", RoleUser)
	if err != nil || got != RoleAdmin {
		t.Fatalf("expected admin via email override, got %q %v", got, err)
	}

	got, err = r.Effective(ctx, "root-id", "", RoleNone)
	if err != nil || got != RoleAdmin {
		t.Fatalf("expected admin via id override, got %q %v", got, err)
	}

	got, err = r.Effective(ctx, "u1", "someone@example.com", RoleAdmin)
	if err != nil || got != RoleUser {
		t.Fatalf("stored role should beat a token snapshot, got %q %v", got, err)
	}
}

func TestOverrideIgnoresBlankConfig(t *testing.T) {
	r := NewResolver(kv.NewMemory(nil), AdminConfig{Emails: []string{"", "  "}, UserIDs: []string{""}})
	if _, ok := r.Override("", ""); ok {
		t.Fatal("blank identity must not match blank admin entries")
	}
}

func TestResolveFailsClosed(t *testing.T) {
	r := NewResolver(failingStore{}, AdminConfig{Emails: []string{"boss@example.com"}})
	ctx := context.Background()

	if _, err := r.Resolve(ctx, "u1", RoleAdmin); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	got, err := r.Effective(ctx, "u1", "boss@example.com", RoleNone)
	if err != nil || got != RoleAdmin {
		t.Fatalf("override should not need the store, got %q %v", got, err)
	}
	if err := r.Set(ctx, "u1", RoleDJ); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable from set, got %v", err)
	}
}

func TestSetRejectsInvalidRole(t *testing.T) {
	r := NewResolver(kv.NewMemory(nil), AdminConfig{})
	if err := r.Set(context.Background(), "u1", Role("root")); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}
