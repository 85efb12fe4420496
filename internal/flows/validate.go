package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/edgeauth/jwt"
	"github.com/MrEthical07/edgeauth/permission"
)

// ValidateFailureKind classifies access-guard failures for root-level mapping.
type ValidateFailureKind int

const (
	ValidateFailureNone ValidateFailureKind = iota
	ValidateFailureMissingToken
	ValidateFailureInvalidToken
	ValidateFailureWrongTokenType
	ValidateFailureMissingRole
	ValidateFailureForbidden
	ValidateFailureStoreUnavailable
)

// ValidateResult returns either the verified claims and effective role or a
// classified failure.
type ValidateResult struct {
	Failure ValidateFailureKind
	Err     error
	Claims  *jwt.Claims
	Role    permission.Role
}

// ValidateDeps captures access-guard dependencies.
type ValidateDeps struct {
	Tokens TokenCodec
	Roles  RoleResolver
}

// RunValidateAccess verifies an access token without touching the store.
func RunValidateAccess(token string, deps ValidateDeps) ValidateResult {
	if token == "" {
		return ValidateResult{Failure: ValidateFailureMissingToken}
	}
	claims, err := deps.Tokens.VerifyType(token, jwt.TokenAccess)
	if err != nil {
		if errors.Is(err, jwt.ErrWrongTokenType) {
			return ValidateResult{Failure: ValidateFailureWrongTokenType, Err: err}
		}
		return ValidateResult{Failure: ValidateFailureInvalidToken, Err: err}
	}
	return ValidateResult{Failure: ValidateFailureNone, Claims: claims}
}

// RunAuthorize computes the effective role for claims and checks it against allowed.
// The role carried by the token is only the fallback. An empty allowed list accepts
// any resolved role.
func RunAuthorize(ctx context.Context, claims *jwt.Claims, allowed []permission.Role, deps ValidateDeps) ValidateResult {
	if claims == nil {
		return ValidateResult{Failure: ValidateFailureMissingToken}
	}

	fallback, _ := permission.ParseRole(claims.Role)
	role, err := deps.Roles.Effective(ctx, claims.Subject, claims.Email, fallback)
	if err != nil {
		return ValidateResult{Failure: ValidateFailureStoreUnavailable, Err: err, Claims: claims}
	}
	if !role.Valid() {
		return ValidateResult{Failure: ValidateFailureMissingRole, Claims: claims}
	}
	if len(allowed) > 0 && !role.MeetsAny(allowed...) {
		return ValidateResult{Failure: ValidateFailureForbidden, Claims: claims, Role: role}
	}
	return ValidateResult{Failure: ValidateFailureNone, Claims: claims, Role: role}
}
