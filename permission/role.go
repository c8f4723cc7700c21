package permission

import (
	"errors"
	"fmt"
	"strings"
)

// Role is a Kinvex user role as sent by the API.
type Role string

const (
	// Viewer may browse inventory.
	Viewer Role = "VIEWER"
	// Operator may also move stock.
	Operator Role = "OPERATOR"
	// Manager may also manage orders and read reports.
	Manager Role = "MANAGER"
	// Admin may do everything.
	Admin Role = "ADMIN"
)

// ErrUnknownRole is returned by ParseRole for values outside the hierarchy.
var ErrUnknownRole = errors.New("unknown role")

// Roles lists every defined role in ascending rank.
func Roles() []Role {
	return []Role{Viewer, Operator, Manager, Admin}
}

// Valid reports whether r is one of the four defined roles.
func (r Role) Valid() bool {
	return r.rank() > 0
}

// Rank returns the position of r in the hierarchy, starting at 1.
// It panics if r is not a defined role.
func (r Role) Rank() int {
	n := r.rank()
	if n == 0 {
		panic(fmt.Sprintf("permission: undefined role %q", string(r)))
	}
	return n
}

func (r Role) rank() int {
	switch r {
	case Viewer:
		return 1
	case Operator:
		return 2
	case Manager:
		return 3
	case Admin:
		return 4
	default:
		return 0
	}
}

// String returns the role name.
func (r Role) String() string {
	return string(r)
}

// ParseRole validates a role received from outside the process. Matching is
// case-insensitive and ignores surrounding whitespace.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}

// Allows reports whether holder satisfies required. Both must be defined roles.
func Allows(holder, required Role) bool {
	return holder.Rank() >= required.Rank()
}

// AllowsAny reports whether holder satisfies at least one of required.
// An empty list is never satisfied.
func AllowsAny(holder Role, required ...Role) bool {
	h := holder.Rank()
	for _, r := range required {
		if h >= r.Rank() {
			return true
		}
	}
	return false
}
