package models

import (
	"fmt"
	"strings"
)

// Role is the closed set of account kinds. Stored by its string value.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleOwner  Role = "OWNER"
	RoleTenant Role = "TENANT"
)

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleOwner, RoleTenant:
		return true
	default:
		return false
	}
}
