package model

// Role groups permissions. Its business key is the normalized name.
type Role struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Permissions []*Permission `json:"permissions"`
	Users       []*User       `json:"-"`
}

// NewRole creates a role with a normalized name.
func NewRole(name, description string) *Role {
	return &Role{Name: NormalizeRoleName(name), Description: description}
}

// SetName stores the normalized form of name.
func (r *Role) SetName(name string) {
	r.Name = NormalizeRoleName(name)
}

// Equal reports whether r and other denote the same role.
// A role with an empty name only equals itself.
func (r *Role) Equal(other *Role) bool {
	if r == other {
		return true
	}
	if r == nil || other == nil {
		return false
	}
	key := NormalizeRoleName(r.Name)
	return key != "" && key == NormalizeRoleName(other.Name)
}

// AddPermission attaches p and records r on p's back-reference.
// Nil and already-present permissions are ignored.
func (r *Role) AddPermission(p *Permission) {
	if p == nil || r.permissionIndex(p) >= 0 {
		return
	}
	r.Permissions = append(r.Permissions, p)
	p.linkRole(r)
}

// RemovePermission detaches p from r on both sides.
func (r *Role) RemovePermission(p *Permission) {
	if p == nil {
		return
	}
	i := r.permissionIndex(p)
	if i < 0 {
		return
	}
	stored := r.Permissions[i]
	r.Permissions = append(r.Permissions[:i:i], r.Permissions[i+1:]...)
	stored.unlinkRole(r)
	if stored != p {
		p.unlinkRole(r)
	}
}

// SetPermissions replaces the permission set, keeping back-references consistent.
func (r *Role) SetPermissions(perms []*Permission) {
	for _, p := range append([]*Permission(nil), r.Permissions...) {
		r.RemovePermission(p)
	}
	for _, p := range perms {
		r.AddPermission(p)
	}
}

// HasPermission reports whether r grants the named permission.
func (r *Role) HasPermission(name string) bool {
	want := NormalizePermissionName(name)
	for _, p := range r.Permissions {
		if p != nil && NormalizePermissionName(p.Name) == want {
			return true
		}
	}
	return false
}

func (r *Role) permissionIndex(p *Permission) int {
	for i, existing := range r.Permissions {
		if existing.Equal(p) {
			return i
		}
	}
	return -1
}

// linkUser and unlinkUser maintain the back-reference only.
func (r *Role) linkUser(u *User) {
	for _, existing := range r.Users {
		if existing.Equal(u) {
			return
		}
	}
	r.Users = append(r.Users, u)
}

func (r *Role) unlinkUser(u *User) {
	for i, existing := range r.Users {
		if existing.Equal(u) {
			r.Users = append(r.Users[:i:i], r.Users[i+1:]...)
			return
		}
	}
}
