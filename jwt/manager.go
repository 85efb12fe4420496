package jwt

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformedToken is returned when a token does not split into exactly three
	// segments or its header/payload cannot be decoded.
	ErrMalformedToken = errors.New("malformed token")
	// ErrInvalidSignature is returned when the signature segment does not match the
	// HMAC of header.payload under the configured secret.
	ErrInvalidSignature = errors.New("invalid token signature")
	// ErrExpired is returned when exp is not after the verification time.
	ErrExpired = errors.New("token expired")
	// ErrWrongTokenType is returned by VerifyType when the type claim differs from the
	// one the caller expects.
	ErrWrongTokenType = errors.New("wrong token type")
)

// TokenType distinguishes access tokens from refresh tokens.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// Config holds the signing secret and optional issuer. Now overrides the clock used
// for iat/exp and for expiry checks; nil means time.Now.
type Config struct {
	Secret []byte
	Issuer string
	Now    func() time.Time
}

// String never renders the secret.
func (c Config) String() string {
	return fmt.Sprintf("jwt.Config{Issuer:%q Secret:[redacted %d bytes]}", c.Issuer, len(c.Secret))
}

// Manager signs and verifies HS256 compact tokens. It holds no mutable state and is
// safe for concurrent use.
type Manager struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// Claims is the claim set carried by both token types.
//
// Subject (sub), ID (jti), IssuedAt (iat) and ExpiresAt (exp) come from the embedded
// registered claims.
type Claims struct {
	Email     string    `json:"email,omitempty"`
	Role      string    `json:"role,omitempty"`
	Type      TokenType `json:"type"`
	SessionID string    `json:"sid"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and returns a Manager. An empty secret is rejected.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("jwt secret is required")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)

	return &Manager{
		secret: secret,
		issuer: strings.TrimSpace(cfg.Issuer),
		now:    now,
	}, nil
}

// Sign stamps iat/exp on a copy of claims and returns the signed compact token.
func (m *Manager) Sign(claims Claims, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", errors.New("invalid token ttl")
	}
	if claims.Type != TokenAccess && claims.Type != TokenRefresh {
		return "", fmt.Errorf("unsupported token type %q", claims.Type)
	}

	now := m.now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	if m.issuer != "" {
		claims.Issuer = m.issuer
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify checks structure, signature and expiry, in that order, and returns the
// decoded claims. The clock is read on every call.
func (m *Manager) Verify(tokenStr string) (*Claims, error) {
	parts := strings.Split(tokenStr, ".")
	if len(parts) != 3 {
		return nil, ErrMalformedToken
	}
	// Strict decoding makes every altered signature character observable; the
	// lenient decoder would ignore changes confined to the trailing pad bits.
	if _, err := base64.RawURLEncoding.Strict().DecodeString(parts[2]); err != nil {
		return nil, ErrInvalidSignature
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		options = append(options, jwt.WithIssuer(m.issuer))
	}

	claims := &Claims{}
	token, err := jwt.NewParser(options...).ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, classify(err)
	}
	if !token.Valid {
		return nil, ErrInvalidSignature
	}

	return claims, nil
}

// VerifyType verifies the token and additionally requires its type claim to equal want.
func (m *Manager) VerifyType(tokenStr string, want TokenType) (*Claims, error) {
	claims, err := m.Verify(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.Type != want {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	default:
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
}
