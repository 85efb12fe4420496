package edgeauth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/edgeauth/internal/rate"
	"github.com/MrEthical07/edgeauth/permission"
)

// Config is the complete engine configuration. Build it from DefaultConfig and
// override what differs; Validate runs inside Builder.Build.
type Config struct {
	JWT        JWTConfig
	Admin      AdminConfig
	RateLimit  RateLimitConfig
	Store      StoreConfig
	Cookie     CookieConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
	Production bool
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures the HS256 token codec and token lifetimes.
// Secret is never rendered by String.
type JWTConfig struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

/*
====================================
ADMIN CONFIG
====================================
*/

// AdminConfig lists principals that always resolve to the admin role.
type AdminConfig struct {
	Emails  []string
	UserIDs []string
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RatePolicy is one fixed-window limit. Limit <= 0 disables it.
type RatePolicy struct {
	Limit  int
	Window time.Duration
}

// RateLimitConfig holds one policy per endpoint class.
type RateLimitConfig struct {
	Login   RatePolicy
	Refresh RatePolicy
	API     RatePolicy
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreConfig bounds key-value calls. OpTimeout == 0 disables the bound, which
// Validate rejects in production.
type StoreConfig struct {
	OpTimeout   time.Duration
	RedisPrefix string
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig shapes the refresh-token cookie.
type CookieConfig struct {
	Name   string
	Secure bool
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher. FlushTimeout bounds how
// long Engine.Close waits for queued events; <= 0 waits until the queue is empty.
type AuditConfig struct {
	Enabled      bool
	BufferSize   int
	DropIfFull   bool
	FlushTimeout time.Duration
}

// MetricsConfig toggles in-process counters and the access-guard latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration. JWT.Secret is left empty and
// must be supplied.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 30 * 24 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			Login:   RatePolicy{Limit: 10, Window: 60 * time.Second},
			Refresh: RatePolicy{Limit: 30, Window: 60 * time.Second},
			API:     RatePolicy{Limit: 120, Window: 60 * time.Second},
		},
		Store: StoreConfig{
			OpTimeout: 2 * time.Second,
		},
		Cookie: CookieConfig{
			Name: "refresh_token",
		},
		Audit: AuditConfig{
			Enabled:      false,
			BufferSize:   1024,
			DropIfFull:   true,
			FlushTimeout: 5 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = cloneBytes(cfg.JWT.Secret)
	out.Admin.Emails = cloneStrings(cfg.Admin.Emails)
	out.Admin.UserIDs = cloneStrings(cfg.Admin.UserIDs)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// String renders the configuration with the secret redacted.
func (c Config) String() string {
	secret := "<empty>"
	if len(c.JWT.Secret) > 0 {
		secret = "<redacted>"
	}
	return fmt.Sprintf(
		"edgeauth.Config{secret=%s issuer=%q access_ttl=%s refresh_ttl=%s admins=%d/%d login=%d/%s refresh=%d/%s api=%d/%s op_timeout=%s cookie=%q secure=%t production=%t}",
		secret, c.JWT.Issuer, c.JWT.AccessTTL, c.JWT.RefreshTTL,
		len(c.Admin.Emails), len(c.Admin.UserIDs),
		c.RateLimit.Login.Limit, c.RateLimit.Login.Window,
		c.RateLimit.Refresh.Limit, c.RateLimit.Refresh.Window,
		c.RateLimit.API.Limit, c.RateLimit.API.Window,
		c.Store.OpTimeout, c.Cookie.Name, c.Cookie.Secure, c.Production,
	)
}

/*
====================================
VALIDATION
====================================
*/

const minProductionSecretBytes = 32

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	// JWT
	if len(c.JWT.Secret) == 0 {
		return errors.New("JWT Secret must be set")
	}
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.AccessTTL > c.JWT.RefreshTTL {
		return errors.New("JWT AccessTTL must not exceed RefreshTTL")
	}

	// Rate limits
	for name, p := range map[string]RatePolicy{
		"Login":   c.RateLimit.Login,
		"Refresh": c.RateLimit.Refresh,
		"API":     c.RateLimit.API,
	} {
		if p.Limit > 0 && p.Window <= 0 {
			return fmt.Errorf("RateLimit %s Window must be > 0 when Limit is set", name)
		}
		if p.Window < 0 {
			return fmt.Errorf("RateLimit %s Window must be >= 0", name)
		}
	}

	// Store
	if c.Store.OpTimeout < 0 {
		return errors.New("Store OpTimeout must be >= 0")
	}

	// Cookie
	if strings.TrimSpace(c.Cookie.Name) == "" {
		return errors.New("Cookie Name must be set")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Production posture
	if c.Production {
		if len(c.JWT.Secret) < minProductionSecretBytes {
			return fmt.Errorf("JWT Secret must be at least %d bytes in production", minProductionSecretBytes)
		}
		if !c.Cookie.Secure {
			return errors.New("Cookie Secure must be true in production")
		}
		if c.Store.OpTimeout == 0 {
			return errors.New("Store OpTimeout must be > 0 in production")
		}
	}

	return nil
}

/*
====================================
LINT
====================================
*/

// LintWarning is a non-fatal configuration observation.
type LintWarning struct {
	Code    string
	Message string
}

// LintWarnings is the ordered result of Lint.
type LintWarnings []LintWarning

// Codes returns the warning codes in order.
func (ws LintWarnings) Codes() []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Code)
	}
	return out
}

// Lint reports settings that are valid but usually a mistake outside development.
func (c Config) Lint() LintWarnings {
	var ws LintWarnings
	add := func(code, msg string) {
		ws = append(ws, LintWarning{Code: code, Message: msg})
	}

	if len(c.JWT.Secret) > 0 && len(c.JWT.Secret) < minProductionSecretBytes {
		add("secret_short", "JWT secret is shorter than 32 bytes")
	}
	if c.JWT.AccessTTL > time.Hour {
		add("access_ttl_long", "access tokens live longer than one hour")
	}
	if c.JWT.RefreshTTL > 30*24*time.Hour {
		add("refresh_ttl_long", "refresh tokens live longer than 30 days")
	}
	if c.RateLimit.Login.Limit <= 0 && c.RateLimit.Refresh.Limit <= 0 && c.RateLimit.API.Limit <= 0 {
		add("rate_limits_disabled", "every rate limit policy is disabled")
	} else if c.RateLimit.Login.Limit <= 0 {
		add("login_rate_limit_disabled", "login is not rate limited")
	}
	if c.Store.OpTimeout <= 0 {
		add("store_timeout_disabled", "key-value calls are not bounded by a timeout")
	}
	if !c.Cookie.Secure {
		add("cookie_insecure", "refresh cookie is sent without the Secure attribute")
	}
	if len(c.Admin.Emails) == 0 && len(c.Admin.UserIDs) == 0 {
		add("no_admins", "no admin override is configured")
	}
	return ws
}

func (p RatePolicy) toRate(prefix string) rate.Policy {
	return rate.Policy{Prefix: prefix, Limit: p.Limit, Window: p.Window}
}

func (a AdminConfig) toPermission() permission.AdminConfig {
	return permission.AdminConfig{Emails: cloneStrings(a.Emails), UserIDs: cloneStrings(a.UserIDs)}
}
