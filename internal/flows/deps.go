package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/edgeauth/jwt"
	"github.com/MrEthical07/edgeauth/permission"
	"github.com/MrEthical07/edgeauth/session"
)

// Deps groups flow dependency sets. Root engine builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	Login    LoginDeps
	Refresh  RefreshDeps
	Logout   LogoutDeps
	Validate ValidateDeps
}

// TokenCodec is the subset of jwt.Manager used by flows.
type TokenCodec interface {
	Sign(claims jwt.Claims, ttl time.Duration) (string, error)
	VerifyType(token string, want jwt.TokenType) (*jwt.Claims, error)
}

// SessionStore is the subset of session.Store used by flows.
type SessionStore interface {
	Create(ctx context.Context, sessionID string, sess *session.Session, ttl time.Duration) error
	Get(ctx context.Context, sessionID string) (*session.Session, error)
	Delete(ctx context.Context, sessionID string) error
	IssueRefresh(ctx context.Context, tokenID string, rec *session.RefreshRecord, ttl time.Duration) error
	ConsumeRefresh(ctx context.Context, tokenID string) (*session.RefreshRecord, error)
	DeleteRefresh(ctx context.Context, tokenID string) error
}

// RoleResolver is the subset of permission.Resolver used by flows.
type RoleResolver interface {
	Effective(ctx context.Context, subject, email string, fallback permission.Role) (permission.Role, error)
}

// IssueDeps carries what is needed to mint a token pair for a session.
type IssueDeps struct {
	Tokens     TokenCodec
	Sessions   SessionStore
	NewID      func() string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}
