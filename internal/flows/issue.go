package flows

import (
	"context"
	"fmt"

	"github.com/MrEthical07/edgeauth/jwt"
	"github.com/MrEthical07/edgeauth/permission"
	"github.com/MrEthical07/edgeauth/session"
	gjwt "github.com/golang-jwt/jwt/v5"
)

// TokenPair is an issued access/refresh pair bound to one session.
type TokenPair struct {
	AccessToken    string
	RefreshToken   string
	RefreshTokenID string
}

type issueSubject struct {
	SessionID string
	Subject   string
	Email     string
	Role      permission.Role
}

// issuePair writes a fresh refresh record and signs both tokens. The access token gets
// its own id; the refresh token carries the record id.
func issuePair(ctx context.Context, s issueSubject, deps IssueDeps) (TokenPair, error) {
	refreshID := deps.NewID()
	rec := &session.RefreshRecord{SessionID: s.SessionID, Subject: s.Subject}
	if err := deps.Sessions.IssueRefresh(ctx, refreshID, rec, deps.RefreshTTL); err != nil {
		return TokenPair{}, err
	}

	access, err := deps.Tokens.Sign(jwt.Claims{
		Email:     s.Email,
		Role:      s.Role.String(),
		Type:      jwt.TokenAccess,
		SessionID: s.SessionID,
		RegisteredClaims: gjwt.RegisteredClaims{
			Subject: s.Subject,
			ID:      deps.NewID(),
		},
	}, deps.AccessTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := deps.Tokens.Sign(jwt.Claims{
		Email:     s.Email,
		Role:      s.Role.String(),
		Type:      jwt.TokenRefresh,
		SessionID: s.SessionID,
		RegisteredClaims: gjwt.RegisteredClaims{
			Subject: s.Subject,
			ID:      refreshID,
		},
	}, deps.RefreshTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return TokenPair{
		AccessToken:    access,
		RefreshToken:   refresh,
		RefreshTokenID: refreshID,
	}, nil
}
