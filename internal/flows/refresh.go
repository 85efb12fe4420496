package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/edgeauth/jwt"
	"github.com/MrEthical07/edgeauth/permission"
	"github.com/MrEthical07/edgeauth/session"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureInvalidToken
	RefreshFailureSessionRevoked
	RefreshFailureReuse
	RefreshFailureStoreUnavailable
	RefreshFailureIssue
)

// RefreshResult carries either the rotated token pair or failure metadata.
// Revoked reports whether the session record was deleted as part of this call.
type RefreshResult struct {
	Failure   RefreshFailureKind
	Err       error
	SessionID string
	Subject   string
	Role      permission.Role
	Revoked   bool
	Tokens    TokenPair
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	Issue IssueDeps
	Roles RoleResolver
	Warn  func(string, ...any)
}

// RunRefresh consumes the refresh record behind token and rotates it.
//
// A record that is already gone, or that belongs to another session, is reuse: the
// whole session is deleted so every token in the chain dies with it.
func RunRefresh(ctx context.Context, token string, deps RefreshDeps) RefreshResult {
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}

	claims, err := deps.Issue.Tokens.VerifyType(token, jwt.TokenRefresh)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureInvalidToken, Err: err}
	}
	if claims.SessionID == "" || claims.ID == "" || claims.Subject == "" {
		return RefreshResult{
			Failure: RefreshFailureInvalidToken,
			Err:     jwt.ErrMalformedToken,
		}
	}
	sessionID := claims.SessionID

	sess, err := deps.Issue.Sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return RefreshResult{
				Failure:   RefreshFailureSessionRevoked,
				Err:       err,
				SessionID: sessionID,
				Subject:   claims.Subject,
			}
		}
		return RefreshResult{
			Failure:   RefreshFailureStoreUnavailable,
			Err:       err,
			SessionID: sessionID,
			Subject:   claims.Subject,
		}
	}

	// The role is read before the record is consumed: a store failure here must
	// leave the token usable for a retry instead of turning it into reuse.
	fallback, ok := permission.ParseRole(sess.Role)
	if !ok {
		fallback = permission.RoleUser
	}
	role, err := deps.Roles.Effective(ctx, sess.Subject, sess.Email, fallback)
	if err != nil {
		return RefreshResult{
			Failure:   RefreshFailureStoreUnavailable,
			Err:       err,
			SessionID: sessionID,
			Subject:   sess.Subject,
		}
	}

	rec, err := deps.Issue.Sessions.ConsumeRefresh(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, session.ErrRefreshNotFound) {
			return revokeOnReuse(ctx, sessionID, claims.Subject, err, deps)
		}
		return RefreshResult{
			Failure:   RefreshFailureStoreUnavailable,
			Err:       err,
			SessionID: sessionID,
			Subject:   claims.Subject,
		}
	}
	if rec.SessionID != sessionID || rec.Subject != claims.Subject || sess.Subject != claims.Subject {
		return revokeOnReuse(ctx, sessionID, claims.Subject, errors.New("refresh record bound to another session"), deps)
	}

	pair, err := issuePair(ctx, issueSubject{
		SessionID: sessionID,
		Subject:   sess.Subject,
		Email:     sess.Email,
		Role:      role,
	}, deps.Issue)
	if err != nil {
		kind := RefreshFailureIssue
		if errors.Is(err, session.ErrStoreUnavailable) {
			kind = RefreshFailureStoreUnavailable
		}
		return RefreshResult{
			Failure:   kind,
			Err:       err,
			SessionID: sessionID,
			Subject:   sess.Subject,
		}
	}

	return RefreshResult{
		Failure:   RefreshFailureNone,
		SessionID: sessionID,
		Subject:   sess.Subject,
		Role:      role,
		Tokens:    pair,
	}
}

func revokeOnReuse(ctx context.Context, sessionID, subject string, cause error, deps RefreshDeps) RefreshResult {
	revoked := true
	if err := deps.Issue.Sessions.Delete(ctx, sessionID); err != nil {
		revoked = false
		deps.Warn("edgeauth: session revocation after refresh reuse failed", "session_id", sessionID, "error", err)
	}
	return RefreshResult{
		Failure:   RefreshFailureReuse,
		Err:       cause,
		SessionID: sessionID,
		Subject:   subject,
		Revoked:   revoked,
	}
}
