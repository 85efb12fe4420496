package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/edgeauth/jwt"
)

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	Tokens   TokenCodec
	Sessions SessionStore
}

// LogoutResult describes what a logout managed to clean up. Err is informational;
// logout itself never fails.
type LogoutResult struct {
	SessionID string
	Subject   string
	Revoked   bool
	Err       error
}

// RunLogout deletes the session and refresh record behind token when token verifies.
// Missing, garbage and expired tokens are a successful no-op.
func RunLogout(ctx context.Context, token string, deps LogoutDeps) LogoutResult {
	if token == "" {
		return LogoutResult{}
	}
	claims, err := deps.Tokens.VerifyType(token, jwt.TokenRefresh)
	if err != nil {
		return LogoutResult{Err: err}
	}

	res := LogoutResult{SessionID: claims.SessionID, Subject: claims.Subject}
	var errs []error
	if claims.SessionID != "" {
		if err := deps.Sessions.Delete(ctx, claims.SessionID); err != nil {
			errs = append(errs, err)
		}
	}
	if claims.ID != "" {
		if err := deps.Sessions.DeleteRefresh(ctx, claims.ID); err != nil {
			errs = append(errs, err)
		}
	}
	res.Err = errors.Join(errs...)
	res.Revoked = res.Err == nil && claims.SessionID != ""
	return res
}
