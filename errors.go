package edgeauth

import (
	"errors"
	"net/http"

	"github.com/MrEthical07/edgeauth/jwt"
)

// ErrorCode is the stable machine-readable identifier carried by every engine error.
// HTTP responses expose it as error.code.
type ErrorCode string

const (
	CodeMalformedToken      ErrorCode = "malformed_token"
	CodeInvalidSignature    ErrorCode = "invalid_signature"
	CodeTokenExpired        ErrorCode = "token_expired"
	CodeWrongTokenType      ErrorCode = "wrong_token_type"
	CodeMissingToken        ErrorCode = "missing_token"
	CodeMissingRole         ErrorCode = "missing_role"
	CodeForbidden           ErrorCode = "forbidden"
	CodeSessionRevoked      ErrorCode = "session_revoked"
	CodeRefreshReuse        ErrorCode = "refresh_reuse"
	CodeStoreUnavailable    ErrorCode = "store_unavailable"
	CodeRateLimited         ErrorCode = "rate_limited"
	CodeInvalidRefreshToken ErrorCode = "invalid_refresh_token"
	CodeMissingRefreshToken ErrorCode = "missing_refresh_token"
	CodeInvalidCredentials  ErrorCode = "invalid_credentials"
	CodeBadRequest          ErrorCode = "bad_request"
	CodeInternal            ErrorCode = "internal_error"
)

// Error is the engine error type. Two errors match under errors.Is when their codes
// are equal, so a wrapped instance still matches its sentinel.
type Error struct {
	Code    ErrorCode
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Wrap returns a copy of e carrying cause.
func (e *Error) Wrap(cause error) *Error {
	out := *e
	out.Err = cause
	return &out
}

func newError(code ErrorCode, status int, msg string) *Error {
	return &Error{Code: code, Message: msg, Status: status}
}

var (
	// ErrMalformedToken is returned when a token is not a well-formed HS256 JWT.
	ErrMalformedToken = newError(CodeMalformedToken, http.StatusUnauthorized, "malformed token")
	// ErrInvalidSignature is returned when the MAC does not match.
	ErrInvalidSignature = newError(CodeInvalidSignature, http.StatusUnauthorized, "invalid signature")
	// ErrTokenExpired is returned when exp is not after the current time.
	ErrTokenExpired = newError(CodeTokenExpired, http.StatusUnauthorized, "token expired")
	// ErrWrongTokenType is returned when a refresh token is presented as an access token or the reverse.
	ErrWrongTokenType = newError(CodeWrongTokenType, http.StatusUnauthorized, "wrong token type")
	// ErrMissingToken is returned when no bearer token was supplied.
	ErrMissingToken = newError(CodeMissingToken, http.StatusUnauthorized, "missing token")
	// ErrMissingRole is returned when no effective role can be determined.
	ErrMissingRole = newError(CodeMissingRole, http.StatusUnauthorized, "missing role")
	// ErrForbidden is returned when the effective role is not allowed.
	ErrForbidden = newError(CodeForbidden, http.StatusForbidden, "forbidden")
	// ErrSessionRevoked is returned by Refresh when the session record is gone.
	ErrSessionRevoked = newError(CodeSessionRevoked, http.StatusUnauthorized, "session revoked")
	// ErrRefreshReuse is returned by Refresh when a refresh token is presented twice.
	// The session has been deleted by the time the caller sees it.
	ErrRefreshReuse = newError(CodeRefreshReuse, http.StatusUnauthorized, "refresh token reuse detected")
	// ErrStoreUnavailable is returned when the key-value store fails or times out.
	ErrStoreUnavailable = newError(CodeStoreUnavailable, http.StatusServiceUnavailable, "store unavailable")
	// ErrRateLimited is returned when a rate limit policy denies the request.
	ErrRateLimited = newError(CodeRateLimited, http.StatusTooManyRequests, "rate limited")
	// ErrInvalidRefreshToken is returned by Refresh when the token fails verification.
	ErrInvalidRefreshToken = newError(CodeInvalidRefreshToken, http.StatusUnauthorized, "invalid refresh token")
	// ErrMissingRefreshToken is returned when neither cookie nor body carries a refresh token.
	ErrMissingRefreshToken = newError(CodeMissingRefreshToken, http.StatusUnauthorized, "missing refresh token")
	// ErrInvalidCredentials is returned by authenticators on a failed login.
	ErrInvalidCredentials = newError(CodeInvalidCredentials, http.StatusUnauthorized, "invalid credentials")
	// ErrBadRequest is returned for malformed request input.
	ErrBadRequest = newError(CodeBadRequest, http.StatusBadRequest, "bad request")
	// ErrInternal covers unexpected failures such as signing errors.
	ErrInternal = newError(CodeInternal, http.StatusInternalServerError, "internal error")

	// ErrEngineNotReady is returned when an Engine method is called on a nil or unbuilt engine.
	ErrEngineNotReady = errors.New("edgeauth: engine not initialized")
)

// AsError extracts the *Error from err, falling back to ErrInternal wrapping err.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return ErrInternal.Wrap(err)
}

// tokenError maps codec sentinels onto the engine taxonomy, keeping the cause.
func tokenError(err error) *Error {
	switch {
	case errors.Is(err, jwt.ErrInvalidSignature):
		return ErrInvalidSignature.Wrap(err)
	case errors.Is(err, jwt.ErrExpired):
		return ErrTokenExpired.Wrap(err)
	case errors.Is(err, jwt.ErrWrongTokenType):
		return ErrWrongTokenType.Wrap(err)
	default:
		return ErrMalformedToken.Wrap(err)
	}
}
