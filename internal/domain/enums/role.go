package enums

import (
	"fmt"
	"strings"
)

// Role is the closed set of account kinds. Code that behaves differently
// per role switches on it exhaustively instead of comparing strings.
type Role string

const (
	RoleJobSeeker Role = "jobseeker"
	RoleRecruiter Role = "recruiter"
)

func ParseRole(value string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(value))) {
	case RoleJobSeeker:
		return RoleJobSeeker, nil
	case RoleRecruiter:
		return RoleRecruiter, nil
	default:
		return "", fmt.Errorf("unknown role %q", value)
	}
}

func (r Role) Valid() bool {
	return r == RoleJobSeeker || r == RoleRecruiter
}

func (r Role) String() string {
	return string(r)
}
