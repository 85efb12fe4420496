package edgeauth

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/MrEthical07/edgeauth/password"
	"github.com/MrEthical07/edgeauth/permission"
)

// StaticAuthenticatorConfig configures the built-in authenticator used when no
// user directory is wired in.
//
// Bypass accepts any non-empty credentials and uses the email as the user id. It is
// for development only and is rejected by NewStaticAuthenticator in production.
type StaticAuthenticatorConfig struct {
	Bypass     bool
	Production bool

	TestUserEmail    string
	TestUserPassword string // plain value or argon2id PHC hash
	TestUserID       string
}

// StaticAuthenticator authenticates a single configured test user, or everyone in
// bypass mode.
type StaticAuthenticator struct {
	cfg    StaticAuthenticatorConfig
	hasher *password.Argon2
}

// NewStaticAuthenticator validates cfg. A configuration with neither bypass nor a
// test user is valid and rejects every login.
func NewStaticAuthenticator(cfg StaticAuthenticatorConfig) (*StaticAuthenticator, error) {
	if cfg.Bypass && cfg.Production {
		return nil, errors.New("auth bypass is not allowed in production")
	}
	if (cfg.TestUserEmail == "") != (cfg.TestUserPassword == "") {
		return nil, errors.New("test user requires both email and password")
	}
	if cfg.TestUserID == "" {
		cfg.TestUserID = "test-user"
	}
	hasher, err := password.NewArgon2(password.DefaultConfig())
	if err != nil {
		return nil, err
	}
	return &StaticAuthenticator{cfg: cfg, hasher: hasher}, nil
}

func (a *StaticAuthenticator) Authenticate(_ context.Context, email, pass string) (Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" || pass == "" {
		return Identity{}, ErrInvalidCredentials
	}

	if a.cfg.Bypass {
		return Identity{UserID: email, Email: email, Role: permission.RoleUser}, nil
	}

	if a.cfg.TestUserEmail == "" || !strings.EqualFold(email, a.cfg.TestUserEmail) {
		return Identity{}, ErrInvalidCredentials
	}
	if !a.passwordMatches(pass) {
		return Identity{}, ErrInvalidCredentials
	}
	return Identity{
		UserID: a.cfg.TestUserID,
		Email:  a.cfg.TestUserEmail,
		Role:   permission.RoleUser,
	}, nil
}

func (a *StaticAuthenticator) passwordMatches(pass string) bool {
	stored := a.cfg.TestUserPassword
	if password.IsHash(stored) {
		ok, err := a.hasher.Verify(pass, stored)
		return err == nil && ok
	}
	return subtle.ConstantTimeCompare([]byte(pass), []byte(stored)) == 1
}

// Lint reports test-user settings that are accepted but weak. A configured PHC hash
// is checked against password.DefaultConfig.
func (a *StaticAuthenticator) Lint() LintWarnings {
	var ws LintWarnings
	add := func(code, msg string) {
		ws = append(ws, LintWarning{Code: code, Message: msg})
	}

	if a.cfg.Bypass {
		add("auth_bypass", "every non-empty credential is accepted")
	}

	stored := a.cfg.TestUserPassword
	switch {
	case stored == "":
	case !password.IsHash(stored):
		if a.cfg.Production {
			add("test_user_plain_password", "test user password is configured in plain text")
		}
	default:
		weak, err := a.hasher.NeedsUpgrade(stored)
		switch {
		case err != nil:
			add("test_user_hash_malformed", "test user hash is not a valid argon2id PHC string")
		case weak:
			add("test_user_hash_weak", "test user hash uses weaker argon2id parameters than the defaults")
		}
	}
	return ws
}
