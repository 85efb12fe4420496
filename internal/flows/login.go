package flows

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/edgeauth/permission"
	"github.com/MrEthical07/edgeauth/session"
)

// LoginFailureKind classifies login flow failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureInvalidIdentity
	LoginFailureStoreUnavailable
	LoginFailureIssue
)

// LoginIdentity is the authenticated principal handed over by the authenticator.
// Role is only a seed used when no role is stored for Subject.
type LoginIdentity struct {
	Subject string
	Email   string
	Role    permission.Role
}

// LoginResult carries either the issued token pair or failure metadata.
type LoginResult struct {
	Failure   LoginFailureKind
	Err       error
	SessionID string
	Subject   string
	Email     string
	Role      permission.Role
	Tokens    TokenPair
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	Issue IssueDeps
	Roles RoleResolver
	Now   func() time.Time
	Warn  func(string, ...any)
}

// RunLogin opens a new session for id and issues its first token pair.
func RunLogin(ctx context.Context, id LoginIdentity, deps LoginDeps) LoginResult {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}

	subject := strings.TrimSpace(id.Subject)
	email := strings.TrimSpace(id.Email)
	if subject == "" {
		return LoginResult{
			Failure: LoginFailureInvalidIdentity,
			Err:     errors.New("login identity has no subject"),
		}
	}

	seed := id.Role
	if !seed.Valid() {
		seed = permission.RoleUser
	}
	role, err := deps.Roles.Effective(ctx, subject, email, seed)
	if err != nil {
		return LoginResult{
			Failure: LoginFailureStoreUnavailable,
			Err:     err,
			Subject: subject,
		}
	}

	sessionID := deps.Issue.NewID()
	sess := &session.Session{
		Subject:   subject,
		Email:     email,
		Role:      role.String(),
		CreatedAt: deps.Now().UTC(),
	}
	if err := deps.Issue.Sessions.Create(ctx, sessionID, sess, deps.Issue.RefreshTTL); err != nil {
		return LoginResult{
			Failure:   LoginFailureStoreUnavailable,
			Err:       err,
			SessionID: sessionID,
			Subject:   subject,
		}
	}

	pair, err := issuePair(ctx, issueSubject{
		SessionID: sessionID,
		Subject:   subject,
		Email:     email,
		Role:      role,
	}, deps.Issue)
	if err != nil {
		if delErr := deps.Issue.Sessions.Delete(ctx, sessionID); delErr != nil {
			deps.Warn("edgeauth: orphaned session cleanup failed", "session_id", sessionID, "error", delErr)
		}
		kind := LoginFailureIssue
		if errors.Is(err, session.ErrStoreUnavailable) {
			kind = LoginFailureStoreUnavailable
		}
		return LoginResult{
			Failure:   kind,
			Err:       err,
			SessionID: sessionID,
			Subject:   subject,
		}
	}

	return LoginResult{
		Failure:   LoginFailureNone,
		SessionID: sessionID,
		Subject:   subject,
		Email:     email,
		Role:      role,
		Tokens:    pair,
	}
}
