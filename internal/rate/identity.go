package rate

import (
	"net/http"
	"strings"
)

// UnknownIP is the shared bucket for requests without a forwarding header.
const UnknownIP = "unknown"

// Identity is the client a bucket is keyed on.
type Identity struct {
	IP     string
	UserID string
}

// Key renders rl:{prefix}:{ip}:{userId|anon}.
func (i Identity) Key(prefix string) string {
	ip := i.IP
	if ip == "" {
		ip = UnknownIP
	}
	user := i.UserID
	if user == "" {
		user = "anon"
	}
	return "rl:" + prefix + ":" + ip + ":" + user
}

// ClientIP returns the first X-Forwarded-For element, then X-Real-IP, then UnknownIP.
// The edge proxy in front of the service is trusted to set these headers.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return UnknownIP
}
