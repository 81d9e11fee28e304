package models

import (
	"strings"
	"time"
)

// Role is the coarse access class carried in a bearer token
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

var rolePermissions = map[Role][]string{
	RoleStudent: {"courses:read", "progress:*", "presence:write", "presence:counts"},
	RoleAdmin:   {"*"},
}

// Principal is the authenticated caller of the API
type Principal struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Avatar    string    `json:"avatar,omitempty"`
	Role      Role      `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Permissions returns the permission list granted by the principal's role
func (p *Principal) Permissions() []string {
	if p == nil {
		return nil
	}
	return rolePermissions[p.Role]
}

// HasPermission checks if the principal has a specific permission
// Supports wildcard permissions like "progress:*"
func (p *Principal) HasPermission(required string) bool {
	if p == nil {
		return false
	}

	for _, perm := range p.Permissions() {
		if perm == required || perm == "*" {
			return true
		}

		// "progress:*" matches "progress:write"
		if strings.HasSuffix(perm, ":*") {
			prefix := strings.TrimSuffix(perm, "*")
			if strings.HasPrefix(required, prefix) {
				return true
			}
		}
	}

	return false
}

// IsAdmin reports whether the principal may see other students' presence
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}
