package model

import "slices"

// Authentication methods recorded on a Principal.
const (
	AuthMethodBearer = "bearer"
	AuthMethodBasic  = "basic"
)

// Principal is the authenticated identity attached to a request.
type Principal struct {
	UserID      string   `json:"user_id"`
	Username    string   `json:"username"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
	AuthMethod  string   `json:"auth_method,omitempty"`
}

// NewPrincipal snapshots u's identity, roles and effective permissions.
func NewPrincipal(u *User, method string) *Principal {
	return &Principal{
		UserID:      u.ID,
		Username:    u.Username,
		Roles:       u.RoleNames(),
		Permissions: u.Permissions(),
		AuthMethod:  method,
	}
}

// HasRole reports whether the principal was granted the named role.
func (p *Principal) HasRole(name string) bool {
	if p == nil {
		return false
	}
	return slices.Contains(p.Roles, NormalizeRoleName(name))
}

// HasPermission reports whether the principal holds the named permission.
func (p *Principal) HasPermission(name string) bool {
	if p == nil {
		return false
	}
	return slices.Contains(p.Permissions, NormalizePermissionName(name))
}

// IsAdmin reports whether the principal holds the ADMIN role.
func (p *Principal) IsAdmin() bool {
	return p.HasRole(RoleAdmin)
}
