package domain

import (
	"fmt"
	"strings"
)

// Role is the participant role fixed for a session
type Role string

const (
	RoleFisherman Role = "FISHERMAN"
	RoleNGO       Role = "NGO"
	RoleAdmin     Role = "ADMIN"
	RoleCorporate Role = "CORPORATE"
)

// Roles lists every role in display order
var Roles = []Role{RoleFisherman, RoleNGO, RoleAdmin, RoleCorporate}

// Valid reports whether r is one of the four known roles
func (r Role) Valid() bool {
	switch r {
	case RoleFisherman, RoleNGO, RoleAdmin, RoleCorporate:
		return true
	}
	return false
}

// ParseRole converts user input (any case) into a Role
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", &ValidationError{Field: "role", Reason: fmt.Sprintf("unknown role %q", s)}
	}
	return r, nil
}

// User is the acting participant of a session. Immutable once created.
type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Role         Role   `json:"role"`
	Organization string `json:"organization,omitempty"`
	Region       string `json:"region,omitempty"`
}
