package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/edgeauth"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const (
	userEmail  = "tester@example.com"
	userPass   = "correct-horse"
	adminEmail = "boss@example.com"
)

type harness struct {
	t      *testing.T
	engine *edgeauth.Engine
	mr     *miniredis.Miniredis
	h      http.Handler
}

func newHarness(t *testing.T, mutate func(*edgeauth.Config)) *harness {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := edgeauth.DefaultConfig()
	cfg.JWT.Secret = []byte("httpapi-test-secret-0123456789abcdef")
	cfg.Store.OpTimeout = 500 * time.Millisecond
	cfg.Admin.Emails = []string{adminEmail}
	if mutate != nil {
		mutate(&cfg)
	}

	users := map[string]edgeauth.Identity{
		userEmail:  {UserID: "u-tester", Email: userEmail},
		adminEmail: {UserID: "u-boss", Email: adminEmail},
	}
	auth := edgeauth.AuthenticatorFunc(func(_ context.Context, email, pass string) (edgeauth.Identity, error) {
		id, ok := users[email]
		if !ok || pass != userPass {
			return edgeauth.Identity{}, edgeauth.ErrInvalidCredentials
		}
		return id, nil
	})

	engine, err := edgeauth.New().WithConfig(cfg).WithRedis(rdb).WithAuthenticator(auth).Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("edgeauth_logout_total 0\n"))
	})

	return &harness{
		t:      t,
		engine: engine,
		mr:     mr,
		h:      NewRouter(Options{Engine: engine, Metrics: metrics}),
	}
}

type reqOpt func(*http.Request)

func withBearer(token string) reqOpt {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func withCookie(c *http.Cookie) reqOpt {
	return func(r *http.Request) { r.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value}) }
}

func (h *harness) do(method, path string, body any, opts ...reqOpt) *httptest.ResponseRecorder {
	h.t.Helper()
	var rdr *bytes.Reader
	switch b := body.(type) {
	case nil:
		rdr = bytes.NewReader(nil)
	case string:
		rdr = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(h.t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("X-Forwarded-For", "203.0.113.10")
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	h.h.ServeHTTP(rec, req)
	return rec
}

func (h *harness) login(email string) (loginResponse, *http.Cookie) {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/auth/login", loginRequest{Email: email, Password: userPass})
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())
	var res loginResponse
	require.NoError(h.t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res, refreshCookie(h.t, rec)
}

func refreshCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "refresh_token" {
			return c
		}
	}
	t.Fatalf("no refresh cookie in response")
	return nil
}

func errCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	require.NotEmpty(t, body.Error.Message)
	return body.Error.Code
}

func TestLoginIssuesTokensAndCookie(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(http.MethodPost, "/auth/login", loginRequest{Email: userEmail, Password: userPass}, func(r *http.Request) {
		r.Header.Set("X-Request-Id", "req-123")
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "req-123", rec.Header().Get("X-Request-Id"))
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "10", rec.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "9", rec.Header().Get("X-RateLimit-Remaining"))

	var res loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.NotEmpty(t, res.AccessToken)
	require.NotEmpty(t, res.RefreshToken)
	require.Equal(t, userBody{ID: "u-tester", Email: userEmail, Role: "user"}, res.User)

	c := refreshCookie(t, rec)
	require.Equal(t, res.RefreshToken, c.Value)
	require.True(t, c.HttpOnly)
	require.Equal(t, http.SameSiteStrictMode, c.SameSite)
	require.Equal(t, "/", c.Path)
	require.Equal(t, int((30 * 24 * time.Hour).Seconds()), c.MaxAge)
}

func TestLoginFailures(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(http.MethodPost, "/auth/login", "{not json")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "bad_request", errCode(t, rec))

	rec = h.do(http.MethodPost, "/auth/login", loginRequest{Email: userEmail})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, "/auth/login", loginRequest{Email: userEmail, Password: "nope"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "invalid_credentials", errCode(t, rec))

	rec = h.do(http.MethodGet, "/auth/login", nil)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRefreshRotationAndReuse(t *testing.T) {
	h := newHarness(t, nil)
	_, original := h.login(userEmail)

	rec := h.do(http.MethodPost, "/auth/refresh", nil, withCookie(original))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var pair tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pair))
	rotated := refreshCookie(t, rec)
	require.Equal(t, pair.RefreshToken, rotated.Value)
	require.NotEqual(t, original.Value, rotated.Value)

	rec = h.do(http.MethodPost, "/auth/refresh", nil, withCookie(original))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "refresh_reuse", errCode(t, rec))
	require.True(t, strings.Contains(rec.Header().Get("Set-Cookie"), "Max-Age=0"))

	rec = h.do(http.MethodPost, "/auth/refresh", nil, withCookie(rotated))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "session_revoked", errCode(t, rec))
}

func TestRefreshFromBody(t *testing.T) {
	h := newHarness(t, nil)
	res, _ := h.login(userEmail)

	rec := h.do(http.MethodPost, "/auth/refresh", refreshRequest{RefreshToken: res.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(http.MethodPost, "/auth/refresh", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "missing_refresh_token", errCode(t, rec))

	rec = h.do(http.MethodPost, "/auth/refresh", refreshRequest{RefreshToken: res.AccessToken})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "invalid_refresh_token", errCode(t, rec))
}

func TestRefreshMalformedBodyIsMissingToken(t *testing.T) {
	h := newHarness(t, nil)

	for _, body := range []string{"{not json", "[]", "\"token\""} {
		rec := h.do(http.MethodPost, "/auth/refresh", body)
		require.Equal(t, http.StatusUnauthorized, rec.Code, "body %q", body)
		require.Equal(t, "missing_refresh_token", errCode(t, rec), "body %q", body)
	}
}

func TestLogout(t *testing.T) {
	h := newHarness(t, nil)
	_, c := h.login(userEmail)

	rec := h.do(http.MethodPost, "/auth/logout", nil, withCookie(&http.Cookie{Name: "refresh_token", Value: "garbage"}))
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Contains(t, rec.Header().Get("Set-Cookie"), "Max-Age=0")

	rec = h.do(http.MethodPost, "/auth/logout", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = h.do(http.MethodPost, "/auth/logout", nil, withCookie(c))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = h.do(http.MethodPost, "/auth/refresh", nil, withCookie(c))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "session_revoked", errCode(t, rec))
}

func TestMe(t *testing.T) {
	h := newHarness(t, nil)
	res, _ := h.login(userEmail)

	rec := h.do(http.MethodGet, "/me", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "missing_token", errCode(t, rec))

	rec = h.do(http.MethodGet, "/me", nil, withBearer(res.RefreshToken))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "wrong_token_type", errCode(t, rec))

	rec = h.do(http.MethodGet, "/me", nil, withBearer(res.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code)
	var me meResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	require.Equal(t, meResponse{Sub: "u-tester", Email: userEmail, Role: "user"}, me)
	require.True(t, h.mr.Exists("rl:api:203.0.113.10:u-tester"))
}

func TestRoleAdministration(t *testing.T) {
	h := newHarness(t, nil)
	user, _ := h.login(userEmail)
	admin, _ := h.login(adminEmail)

	rec := h.do(http.MethodGet, "/dj/ping", nil, withBearer(user.AccessToken))
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "forbidden", errCode(t, rec))

	rec = h.do(http.MethodPost, "/admin/role", setRoleRequest{UserID: "u-tester", Role: "dj"}, withBearer(user.AccessToken))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(http.MethodGet, "/admin/ping", nil, withBearer(admin.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"ok":true,"scope":"admin"}`, rec.Body.String())

	rec = h.do(http.MethodPost, "/admin/role", setRoleRequest{UserID: "u-tester", Role: "superstar"}, withBearer(admin.AccessToken))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	rec = h.do(http.MethodPost, "/admin/role", setRoleRequest{Role: "dj"}, withBearer(admin.AccessToken))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, "/admin/role", setRoleRequest{UserID: "u-tester", Role: "DJ"}, withBearer(admin.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"ok":true,"userId":"u-tester","role":"dj"}`, rec.Body.String())

	// The stored role applies to the existing access token.
	rec = h.do(http.MethodGet, "/dj/ping", nil, withBearer(user.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"ok":true,"scope":"dj"}`, rec.Body.String())

	// Demoting the admin through the store does not beat the override.
	rec = h.do(http.MethodPost, "/admin/role", setRoleRequest{UserID: "u-boss", Role: "user"}, withBearer(admin.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code)
	rec = h.do(http.MethodGet, "/admin/ping", nil, withBearer(admin.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginRateLimited(t *testing.T) {
	h := newHarness(t, func(c *edgeauth.Config) {
		c.RateLimit.Login = edgeauth.RatePolicy{Limit: 2, Window: time.Minute}
	})

	for i := 0; i < 2; i++ {
		rec := h.do(http.MethodPost, "/auth/login", loginRequest{Email: userEmail, Password: "nope"})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := h.do(http.MethodPost, "/auth/login", loginRequest{Email: userEmail, Password: userPass})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "rate_limited", errCode(t, rec))
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"ok":true}`, rec.Body.String())

	rec = h.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "edgeauth_logout_total")

	rec = h.do(http.MethodGet, "/nowhere", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "not_found", errCode(t, rec))

	h.mr.Close()
	rec = h.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "store_unavailable", errCode(t, rec))
}

func TestRequestIDGenerated(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(http.MethodGet, "/health", nil)
	require.Len(t, rec.Header().Get("X-Request-Id"), 36)
}
