// Package respond writes JSON bodies, the error envelope and the security headers
// shared by every HTTP endpoint.
package respond

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/MrEthical07/edgeauth"
)

var securityHeaders = [][2]string{
	{"Cache-Control", "no-store"},
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Referrer-Policy", "no-referrer"},
	{"Permissions-Policy", "geolocation=(), microphone=(), camera=()"},
	{"Cross-Origin-Resource-Policy", "same-site"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
}

// SecurityHeaders sets the hardening headers before next runs, so handlers and
// error paths inherit them.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for _, kv := range securityHeaders {
			h.Set(kv[0], kv[1])
		}
		next.ServeHTTP(w, r)
	})
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// JSON writes v with status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes the {"error":{"code","message"}} envelope for err. Causes are never
// exposed; errors outside the taxonomy become internal_error.
func Error(w http.ResponseWriter, err error) {
	e := edgeauth.AsError(err)
	if e == nil {
		e = edgeauth.ErrInternal
	}
	JSON(w, e.Status, errorEnvelope{Error: errorBody{Code: string(e.Code), Message: e.Message}})
}

// RateLimitHeaders sets the X-RateLimit-* headers for d, and Retry-After when the
// request was denied.
func RateLimitHeaders(w http.ResponseWriter, d edgeauth.RateDecision) {
	if d.Limit <= 0 {
		return
	}
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	if !d.ResetAt.IsZero() {
		h.Set("X-RateLimit-Reset", strconv.FormatInt(ceilUnix(d.ResetAt), 10))
	}
	if !d.Allowed {
		h.Set("Retry-After", strconv.FormatInt(int64(d.RetryAfter/time.Second), 10))
	}
}

func ceilUnix(t time.Time) int64 {
	secs := t.Unix()
	if t.Nanosecond() > 0 {
		secs++
	}
	return secs
}
