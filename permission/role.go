package permission

import "strings"

// Role is an authorization level. Roles are totally ordered:
// RoleNone < RoleUser < RoleDJ < RoleAdmin.
type Role string

const (
	RoleNone  Role = ""
	RoleUser  Role = "user"
	RoleDJ    Role = "dj"
	RoleAdmin Role = "admin"
)

// Top is the role granted by the admin override.
const Top = RoleAdmin

func (r Role) rank() int {
	switch r {
	case RoleUser:
		return 1
	case RoleDJ:
		return 2
	case RoleAdmin:
		return 3
	default:
		return 0
	}
}

// Valid reports whether r is one of the known non-empty roles.
func (r Role) Valid() bool { return r.rank() > 0 }

func (r Role) String() string { return string(r) }

// Meets reports whether r is at least need. RoleNone never meets anything.
func (r Role) Meets(need Role) bool {
	return HasRole(r, need)
}

// MeetsAny reports whether r meets at least one of needs.
func (r Role) MeetsAny(needs ...Role) bool {
	for _, need := range needs {
		if r.Meets(need) {
			return true
		}
	}
	return false
}

// HasRole is the total-order comparison have >= need.
func HasRole(have, need Role) bool {
	if !have.Valid() {
		return false
	}
	return have.rank() >= need.rank()
}

// ParseRole maps s (case-insensitive, surrounding space ignored) to a known role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return RoleNone, false
	}
	return r, true
}
