package auth

// Package auth contains domain-level types for the portal session lifecycle.
// It is pure and free of framework/adapter concerns.

import (
	"encoding/json"
	"strings"
)

// Role represents a portal authorization role.
// The identity service sends free-form strings; ParseRole normalises them and
// anything outside the closed set below is kept verbatim as an unknown role.
type Role string

const (
	RoleAdmin           Role = "admin"
	RoleManager         Role = "manager"
	RoleEmployee        Role = "employee"
	RoleCustomer        Role = "customer"
	RoleContractor      Role = "contractor"
	RoleServiceEngineer Role = "service_engineer"
)

// Roles returns the closed set of known roles in a stable order.
func Roles() []Role {
	return []Role{
		RoleAdmin,
		RoleManager,
		RoleEmployee,
		RoleCustomer,
		RoleContractor,
		RoleServiceEngineer,
	}
}

// ParseRole maps a wire value onto a Role. Known values are matched
// case-insensitively; unknown values are returned unchanged.
func ParseRole(s string) Role {
	norm := Role(strings.ToLower(strings.TrimSpace(s)))
	if norm.Known() {
		return norm
	}
	return Role(s)
}

// Known reports whether r belongs to the closed role set.
func (r Role) Known() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleEmployee, RoleCustomer, RoleContractor, RoleServiceEngineer:
		return true
	default:
		return false
	}
}

// UnmarshalText implements encoding.TextUnmarshaler so JSON decoding goes through ParseRole.
func (r *Role) UnmarshalText(text []byte) error {
	*r = ParseRole(string(text))
	return nil
}

// Credential is an opaque bearer token proving an authenticated session.
type Credential string

// IsZero reports whether the credential is absent.
func (c Credential) IsZero() bool { return c == "" }

// Redacted returns a log-safe form of the credential.
func (c Credential) Redacted() string {
	const visible = 4
	if len(c) <= visible*2 {
		return "[redacted]"
	}
	return string(c[:visible]) + "…" + string(c[len(c)-visible:])
}

// Identity is the authenticated user's profile as resolved by the identity service.
// It is never persisted; it is re-derived from the Credential on every bootstrap.
type Identity struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	MiddleName string `json:"middle_name,omitempty"`
	Role       Role   `json:"role"`
	IsActive   bool   `json:"is_active"`
}

// IsZero reports whether the identity carries no user.
func (i Identity) IsZero() bool {
	return i.ID == 0 && i.Username == ""
}

// DisplayName joins the name parts, falling back to the username.
func (i Identity) DisplayName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{i.FirstName, i.MiddleName, i.LastName} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return i.Username
	}
	return strings.Join(parts, " ")
}

// identityWire mirrors Identity but tolerates a missing is_active field,
// which older identity service builds omit; absent means active.
type identityWire struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	MiddleName string `json:"middle_name"`
	Role       Role   `json:"role"`
	IsActive   *bool  `json:"is_active"`
}

// UnmarshalJSON decodes the identity service wire shape.
func (i *Identity) UnmarshalJSON(data []byte) error {
	var w identityWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*i = Identity{
		ID:         w.ID,
		Username:   w.Username,
		Email:      w.Email,
		FirstName:  w.FirstName,
		LastName:   w.LastName,
		MiddleName: w.MiddleName,
		Role:       w.Role,
		IsActive:   w.IsActive == nil || *w.IsActive,
	}
	return nil
}
