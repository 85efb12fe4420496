package edgeauth

import (
	"context"
	"errors"
	"net/http"
	"time"

	internalaudit "github.com/MrEthical07/edgeauth/internal/audit"
	internalflows "github.com/MrEthical07/edgeauth/internal/flows"
	"github.com/MrEthical07/edgeauth/internal/rate"
	"github.com/MrEthical07/edgeauth/jwt"
	"github.com/MrEthical07/edgeauth/kv"
	"github.com/MrEthical07/edgeauth/permission"
	"github.com/MrEthical07/edgeauth/session"
	"go.uber.org/zap"
)

// Engine owns the token codec, store adapters, role resolver and rate limiter, and
// exposes the session lifecycle on top of them. Build one with New().Build().
//
// Engine is safe for concurrent use. Every store call is bounded by
// Config.Store.OpTimeout and fails closed.
type Engine struct {
	config        Config
	tokens        *jwt.Manager
	store         kv.Store
	sessions      *session.Store
	roles         *permission.Resolver
	limiter       *rate.Limiter
	authenticator Authenticator
	audit         *internalaudit.Dispatcher
	metrics       *Metrics
	log           *zap.Logger
	now           func() time.Time
	flows         internalflows.Deps
}

// Close flushes and stops the audit dispatcher, waiting at most
// Config.Audit.FlushTimeout for queued events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if err := e.audit.Close(); err != nil {
		e.log.Warn("audit flush cut short", zap.Error(err), zap.Uint64("dropped", e.audit.Dropped()))
	}
	_ = e.log.Sync()
}

// AuditDropped reports how many audit events were dropped on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return emptySnapshot()
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the configuration the engine was built with.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) warn(msg string, keysAndValues ...any) {
	e.log.Sugar().Warnw(msg, keysAndValues...)
}

func (e *Engine) storeFailure(err error) *Error {
	e.metricInc(MetricStoreUnavailable)
	return ErrStoreUnavailable.Wrap(err)
}

/*
====================================
LOGIN
====================================
*/

// Login authenticates email/password through the configured Authenticator and opens
// a session for the resulting identity.
func (e *Engine) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if e == nil || e.authenticator == nil {
		return nil, ErrEngineNotReady
	}
	if email == "" || password == "" {
		e.metricInc(MetricLoginFailure)
		return nil, ErrBadRequest.Wrap(errors.New("missing credentials"))
	}

	id, err := e.authenticator.Authenticate(ctx, email, password)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		failure := ErrInvalidCredentials.Wrap(err)
		var typed *Error
		if errors.As(err, &typed) {
			failure = typed
		}
		e.emitAudit(ctx, AuditLoginFailure, false, "", "", failure, func() map[string]string {
			return map[string]string{"reason": "authenticate"}
		})
		return nil, failure
	}

	return e.LoginIdentity(ctx, id)
}

// LoginIdentity opens a session for an already authenticated identity: it resolves
// the effective role, writes the session and refresh records, and signs both tokens.
func (e *Engine) LoginIdentity(ctx context.Context, id Identity) (*LoginResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	res := internalflows.RunLogin(ctx, internalflows.LoginIdentity{
		Subject: id.UserID,
		Email:   id.Email,
		Role:    id.Role,
	}, e.flows.Login)

	if res.Failure != internalflows.LoginFailureNone {
		e.metricInc(MetricLoginFailure)
		var failure *Error
		switch res.Failure {
		case internalflows.LoginFailureInvalidIdentity:
			failure = ErrBadRequest.Wrap(res.Err)
		case internalflows.LoginFailureStoreUnavailable:
			failure = e.storeFailure(res.Err)
		default:
			failure = ErrInternal.Wrap(res.Err)
		}
		e.emitAudit(ctx, AuditLoginFailure, false, res.Subject, res.SessionID, failure, nil)
		return nil, failure
	}

	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, AuditLoginSuccess, true, res.Subject, res.SessionID, nil, func() map[string]string {
		return map[string]string{"role": res.Role.String()}
	})

	return &LoginResult{
		TokenPair: TokenPair{
			AccessToken:  res.Tokens.AccessToken,
			RefreshToken: res.Tokens.RefreshToken,
		},
		SessionID: res.SessionID,
		User: Identity{
			UserID: res.Subject,
			Email:  res.Email,
			Role:   res.Role,
		},
	}, nil
}

/*
====================================
REFRESH
====================================
*/

// Refresh rotates a refresh token. The presented token is consumed; a second
// presentation of it is reuse and revokes the whole session.
//
// Errors: ErrMissingRefreshToken, ErrInvalidRefreshToken (wrapping the codec cause),
// ErrSessionRevoked, ErrRefreshReuse, ErrStoreUnavailable.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if refreshToken == "" {
		e.metricInc(MetricRefreshFailure)
		return nil, ErrMissingRefreshToken
	}

	res := internalflows.RunRefresh(ctx, refreshToken, e.flows.Refresh)

	if res.Failure == internalflows.RefreshFailureNone {
		e.metricInc(MetricRefreshSuccess)
		e.emitAudit(ctx, AuditRefreshSuccess, true, res.Subject, res.SessionID, nil, nil)
		return &TokenPair{
			AccessToken:  res.Tokens.AccessToken,
			RefreshToken: res.Tokens.RefreshToken,
		}, nil
	}

	e.metricInc(MetricRefreshFailure)

	var failure *Error
	switch res.Failure {
	case internalflows.RefreshFailureInvalidToken:
		failure = ErrInvalidRefreshToken.Wrap(tokenError(res.Err))
	case internalflows.RefreshFailureSessionRevoked:
		failure = ErrSessionRevoked.Wrap(res.Err)
	case internalflows.RefreshFailureReuse:
		failure = ErrRefreshReuse.Wrap(res.Err)
		e.metricInc(MetricRefreshReuseDetected)
		if res.Revoked {
			e.metricInc(MetricSessionRevoked)
		}
		e.log.Warn("refresh token reuse detected",
			zap.String("session_id", res.SessionID),
			zap.String("user_id", res.Subject),
			zap.Bool("session_revoked", res.Revoked),
		)
		e.emitAudit(ctx, AuditRefreshReuseDetected, false, res.Subject, res.SessionID, failure, func() map[string]string {
			if res.Revoked {
				return map[string]string{"session_revoked": "true"}
			}
			return map[string]string{"session_revoked": "false"}
		})
		return nil, failure
	case internalflows.RefreshFailureStoreUnavailable:
		failure = e.storeFailure(res.Err)
	default:
		failure = ErrInternal.Wrap(res.Err)
	}

	e.emitAudit(ctx, AuditRefreshFailure, false, res.Subject, res.SessionID, failure, nil)
	return nil, failure
}

/*
====================================
LOGOUT
====================================
*/

// Logout deletes the session and refresh record behind refreshToken. It never fails:
// absent, garbage and expired tokens are a no-op. The result reports whether server
// state was deleted.
func (e *Engine) Logout(ctx context.Context, refreshToken string) bool {
	if e == nil {
		return false
	}

	res := internalflows.RunLogout(ctx, refreshToken, e.flows.Logout)
	e.metricInc(MetricLogout)

	if res.Err != nil {
		if res.SessionID != "" {
			e.warn("logout cleanup failed", "session_id", res.SessionID, "error", res.Err)
		} else {
			e.log.Debug("logout with unverifiable token", zap.Error(res.Err))
		}
	}
	if res.Revoked {
		e.metricInc(MetricSessionRevoked)
	}
	if res.SessionID != "" {
		e.emitAudit(ctx, AuditLogout, res.Revoked, res.Subject, res.SessionID, nil, nil)
	}
	return res.Revoked
}

/*
====================================
ACCESS GUARD
====================================
*/

// RequireAccessToken verifies an access token without touching the store.
func (e *Engine) RequireAccessToken(token string) (*jwt.Claims, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	start := time.Now()
	defer func() { e.metrics.Observe(MetricAccessLatency, time.Since(start)) }()

	res := internalflows.RunValidateAccess(token, e.flows.Validate)
	switch res.Failure {
	case internalflows.ValidateFailureNone:
		return res.Claims, nil
	case internalflows.ValidateFailureMissingToken:
		e.metricInc(MetricAccessDenied)
		return nil, ErrMissingToken
	default:
		e.metricInc(MetricAccessDenied)
		return nil, tokenError(res.Err)
	}
}

// RequireRole computes the effective role for claims and checks it against allowed.
// An empty allowed list accepts any resolved role.
func (e *Engine) RequireRole(ctx context.Context, claims *jwt.Claims, allowed ...permission.Role) (permission.Role, error) {
	if e == nil {
		return permission.RoleNone, ErrEngineNotReady
	}

	res := internalflows.RunAuthorize(ctx, claims, allowed, e.flows.Validate)
	switch res.Failure {
	case internalflows.ValidateFailureNone:
		return res.Role, nil
	case internalflows.ValidateFailureMissingToken:
		e.metricInc(MetricAccessDenied)
		return permission.RoleNone, ErrMissingToken
	case internalflows.ValidateFailureMissingRole:
		e.metricInc(MetricForbidden)
		return permission.RoleNone, ErrMissingRole
	case internalflows.ValidateFailureForbidden:
		e.metricInc(MetricForbidden)
		return res.Role, ErrForbidden
	default:
		return permission.RoleNone, e.storeFailure(res.Err)
	}
}

/*
====================================
RATE LIMITING
====================================
*/

func (e *Engine) policy(class RateClass) (rate.Policy, bool) {
	switch class {
	case RateClassLogin:
		return e.config.RateLimit.Login.toRate(string(class)), true
	case RateClassRefresh:
		return e.config.RateLimit.Refresh.toRate(string(class)), true
	case RateClassAPI:
		return e.config.RateLimit.API.toRate(string(class)), true
	}
	return rate.Policy{}, false
}

// RateLimit counts one request for (class, ip, userID). A denied request returns
// the decision together with ErrRateLimited; a store failure returns
// ErrStoreUnavailable and callers deny.
func (e *Engine) RateLimit(ctx context.Context, class RateClass, ip, userID string) (RateDecision, error) {
	if e == nil {
		return RateDecision{}, ErrEngineNotReady
	}
	p, ok := e.policy(class)
	if !ok {
		return RateDecision{}, ErrBadRequest.Wrap(errors.New("unknown rate class " + string(class)))
	}

	d, err := e.limiter.Check(ctx, p, rate.Identity{IP: ip, UserID: userID})
	if err != nil {
		return RateDecision{}, e.storeFailure(err)
	}
	out := RateDecision{
		Allowed:    d.Allowed,
		Limit:      d.Limit,
		Remaining:  d.Remaining,
		RetryAfter: d.RetryAfter,
		ResetAt:    d.ResetAt,
	}
	if !d.Allowed {
		e.emitRateLimit(ctx, class, ip, userID)
		return out, ErrRateLimited
	}
	return out, nil
}

/*
====================================
ROLES
====================================
*/

// SetUserRole stores role for userID. Existing sessions pick it up on their next
// refresh or guarded request.
func (e *Engine) SetUserRole(ctx context.Context, userID string, role permission.Role) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if userID == "" {
		return ErrBadRequest.Wrap(errors.New("missing userId"))
	}
	if err := e.roles.Set(ctx, userID, role); err != nil {
		if errors.Is(err, permission.ErrInvalidRole) {
			return ErrBadRequest.Wrap(err)
		}
		return e.storeFailure(err)
	}
	e.emitAudit(ctx, AuditRoleChanged, true, userID, "", nil, func() map[string]string {
		return map[string]string{"role": role.String()}
	})
	return nil
}

// EffectiveRole resolves the role a user would get right now.
func (e *Engine) EffectiveRole(ctx context.Context, userID, email string) (permission.Role, error) {
	if e == nil {
		return permission.RoleNone, ErrEngineNotReady
	}
	role, err := e.roles.Effective(ctx, userID, email, permission.RoleUser)
	if err != nil {
		return permission.RoleNone, e.storeFailure(err)
	}
	return role, nil
}

/*
====================================
COOKIES
====================================
*/

// RefreshCookie returns the Set-Cookie value carrying refreshToken.
func (e *Engine) RefreshCookie(refreshToken string) *http.Cookie {
	return &http.Cookie{
		Name:     e.config.Cookie.Name,
		Value:    refreshToken,
		Path:     "/",
		MaxAge:   int(e.config.JWT.RefreshTTL / time.Second),
		HttpOnly: true,
		Secure:   e.config.Cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// ClearRefreshCookie returns a Set-Cookie value that removes the refresh cookie.
func (e *Engine) ClearRefreshCookie() *http.Cookie {
	return &http.Cookie{
		Name:     e.config.Cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   e.config.Cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// CookieName is the configured refresh cookie name.
func (e *Engine) CookieName() string {
	return e.config.Cookie.Name
}

/*
====================================
HEALTH
====================================
*/

const healthCheckKey = "health:check"

// Ping checks that the key-value store answers within the operation timeout.
func (e *Engine) Ping(ctx context.Context) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if _, err := e.store.Get(ctx, healthCheckKey); err != nil && !errors.Is(err, kv.ErrNotFound) {
		return ErrStoreUnavailable.Wrap(err)
	}
	return nil
}
