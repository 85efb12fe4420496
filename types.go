package edgeauth

import (
	"context"
	"time"

	internalaudit "github.com/MrEthical07/edgeauth/internal/audit"
	"github.com/MrEthical07/edgeauth/permission"
)

// Identity is an authenticated principal. Role is only a seed: a stored role or an
// admin override takes precedence, and the seed is never persisted.
type Identity struct {
	UserID string
	Email  string
	Role   permission.Role
}

// Authenticator verifies login credentials. Implementations return
// ErrInvalidCredentials (or an error wrapping it) on rejection.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (Identity, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(ctx context.Context, email, password string) (Identity, error)

func (f AuthenticatorFunc) Authenticate(ctx context.Context, email, password string) (Identity, error) {
	return f(ctx, email, password)
}

// TokenPair is an access/refresh pair bound to one session.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// LoginResult is returned by Engine.Login and Engine.LoginIdentity.
type LoginResult struct {
	TokenPair
	SessionID string
	User      Identity
}

// RateClass selects the rate limit policy for an endpoint.
type RateClass string

const (
	RateClassLogin   RateClass = "login"
	RateClassRefresh RateClass = "refresh"
	RateClassAPI     RateClass = "api"
)

// RateDecision is the outcome of Engine.RateLimit.
type RateDecision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	ResetAt    time.Time
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives AuditEvent values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an AuditSink that discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based AuditSink.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON object per event to an io.Writer.
type JSONWriterSink = internalaudit.JSONWriterSink

// ZapSink writes audit events through a zap logger.
type ZapSink = internalaudit.ZapSink
