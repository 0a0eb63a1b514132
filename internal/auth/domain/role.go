package domain

import (
	"strings"

	"github.com/smallbiznis/mywill/internal/errs"
)

// Role is a user's privilege level. Roles are totally ordered:
// broker < broker_admin < platform_admin.
type Role string

const (
	RoleBroker        Role = "broker"
	RoleBrokerAdmin   Role = "broker_admin"
	RolePlatformAdmin Role = "platform_admin"
)

var ErrInvalidRole = errs.New(errs.KindValidationFailed, "invalid_role")

// Roles lists every role from least to most privileged.
func Roles() []Role {
	return []Role{RoleBroker, RoleBrokerAdmin, RolePlatformAdmin}
}

func (r Role) rank() int {
	switch r {
	case RoleBroker:
		return 1
	case RoleBrokerAdmin:
		return 2
	case RolePlatformAdmin:
		return 3
	default:
		return 0
	}
}

func (r Role) Valid() bool {
	return r.rank() > 0
}

// Compare returns -1, 0 or 1 as r is below, equal to or above other.
func (r Role) Compare(other Role) int {
	a, b := r.rank(), other.rank()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether r grants everything min grants. Unknown roles grant nothing.
func (r Role) AtLeast(min Role) bool {
	return r.Valid() && r.Compare(min) >= 0
}

func (r Role) String() string {
	return string(r)
}

func ParseRole(raw string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	if !r.Valid() {
		return "", ErrInvalidRole
	}
	return r, nil
}
