package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/MrEthical07/edgeauth"
	"github.com/MrEthical07/edgeauth/internal/respond"
	"github.com/MrEthical07/edgeauth/middleware"
	"github.com/MrEthical07/edgeauth/permission"
	"go.uber.org/zap"
)

const maxBodyBytes = 64 << 10

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userBody struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type loginResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	User         userBody `json:"user"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type meResponse struct {
	Sub   string `json:"sub"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
}

type setRoleRequest struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

type setRoleResponse struct {
	OK     bool   `json:"ok"`
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

type pingResponse struct {
	OK    bool   `json:"ok"`
	Scope string `json:"scope,omitempty"`
}

// decode reads a JSON body. An empty body decodes to the zero value when
// allowEmpty is set.
func decode(r *http.Request, dst any, allowEmpty bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return edgeauth.ErrBadRequest.Wrap(err)
	}
	return nil
}

func (s *server) fail(w http.ResponseWriter, r *http.Request, err error) {
	e := edgeauth.AsError(err)
	if e.Status >= http.StatusInternalServerError {
		s.log.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", edgeauth.RequestIDFromContext(r.Context())),
			zap.Error(err),
		)
	}
	respond.Error(w, e)
}

func (s *server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		s.fail(w, r, edgeauth.ErrBadRequest.Wrap(errors.New("missing credentials")))
		return
	}

	res, err := s.engine.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	http.SetCookie(w, s.engine.RefreshCookie(res.RefreshToken))
	respond.JSON(w, http.StatusOK, loginResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		User: userBody{
			ID:    res.User.UserID,
			Email: res.User.Email,
			Role:  res.User.Role.String(),
		},
	})
}

// refreshToken prefers the cookie and falls back to the JSON body. An unreadable
// body counts as empty, so the caller sees missing_refresh_token rather than 400.
func (s *server) refreshToken(r *http.Request) string {
	if c, err := r.Cookie(s.engine.CookieName()); err == nil && c.Value != "" {
		return c.Value
	}
	var req refreshRequest
	if err := decode(r, &req, true); err != nil {
		return ""
	}
	return req.RefreshToken
}

func (s *server) refresh(w http.ResponseWriter, r *http.Request) {
	pair, err := s.engine.Refresh(r.Context(), s.refreshToken(r))
	if err != nil {
		if errors.Is(err, edgeauth.ErrRefreshReuse) || errors.Is(err, edgeauth.ErrSessionRevoked) {
			http.SetCookie(w, s.engine.ClearRefreshCookie())
		}
		s.fail(w, r, err)
		return
	}

	http.SetCookie(w, s.engine.RefreshCookie(pair.RefreshToken))
	respond.JSON(w, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// logout always answers 204 and clears the cookie.
func (s *server) logout(w http.ResponseWriter, r *http.Request) {
	if token := s.refreshToken(r); token != "" {
		s.engine.Logout(r.Context(), token)
	}
	http.SetCookie(w, s.engine.ClearRefreshCookie())
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) me(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())
	role, _ := middleware.RoleFromContext(r.Context())
	respond.JSON(w, http.StatusOK, meResponse{
		Sub:   claims.Subject,
		Email: claims.Email,
		Role:  role.String(),
	})
}

func (s *server) ping(scope string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		respond.JSON(w, http.StatusOK, pingResponse{OK: true, Scope: scope})
	}
}

func (s *server) setRole(w http.ResponseWriter, r *http.Request) {
	var req setRoleRequest
	if err := decode(r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}
	if strings.TrimSpace(req.UserID) == "" || req.Role == "" {
		s.fail(w, r, edgeauth.ErrBadRequest.Wrap(errors.New("missing userId or role")))
		return
	}
	role, ok := permission.ParseRole(req.Role)
	if !ok {
		s.fail(w, r, edgeauth.ErrBadRequest.Wrap(permission.ErrInvalidRole))
		return
	}

	if err := s.engine.SetUserRole(r.Context(), req.UserID, role); err != nil {
		s.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, setRoleResponse{OK: true, UserID: req.UserID, Role: role.String()})
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Ping(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, pingResponse{OK: true})
}
