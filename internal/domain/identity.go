package domain

import (
	"fmt"
	"strings"
)

// Role is the caller's role within a salon.
type Role string

const (
	RoleOwner Role = "OWNER"
	RoleStaff Role = "STAFF"
)

func (r Role) String() string { return string(r) }

func (r Role) IsValid() bool {
	switch r {
	case RoleOwner, RoleStaff:
		return true
	}
	return false
}

func ParseRoleFromString(s string) (Role, error) {
	role := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !role.IsValid() {
		return "", fmt.Errorf("%w: invalid role %q", ErrValidation, s)
	}
	return role, nil
}

// Identity is the resolved caller of a request. TenantID is the salon the caller belongs to.
type Identity struct {
	UserID   string
	TenantID string
	Role     Role
}

func (i Identity) Validate() error {
	if strings.TrimSpace(i.UserID) == "" {
		return fmt.Errorf("%w: user id is required", ErrUnauthorized)
	}
	if strings.TrimSpace(i.TenantID) == "" {
		return fmt.Errorf("%w: tenant id is required", ErrUnauthorized)
	}
	if !i.Role.IsValid() {
		return fmt.Errorf("%w: invalid role %q", ErrUnauthorized, i.Role)
	}
	return nil
}

func (i Identity) IsOwner() bool { return i.Role == RoleOwner }
