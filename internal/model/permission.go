package model

// Permission is a named capability such as "news:write".
type Permission struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Roles       []*Role `json:"-"`
}

// NewPermission creates a permission with a normalized name.
func NewPermission(name, description string) *Permission {
	return &Permission{Name: NormalizePermissionName(name), Description: description}
}

// Equal reports whether p and other denote the same permission.
// A permission with an empty name only equals itself.
func (p *Permission) Equal(other *Permission) bool {
	if p == other {
		return true
	}
	if p == nil || other == nil {
		return false
	}
	key := NormalizePermissionName(p.Name)
	return key != "" && key == NormalizePermissionName(other.Name)
}

func (p *Permission) linkRole(r *Role) {
	for _, existing := range p.Roles {
		if existing.Equal(r) {
			return
		}
	}
	p.Roles = append(p.Roles, r)
}

func (p *Permission) unlinkRole(r *Role) {
	for i, existing := range p.Roles {
		if existing.Equal(r) {
			p.Roles = append(p.Roles[:i:i], p.Roles[i+1:]...)
			return
		}
	}
}
