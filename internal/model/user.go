package model

import (
	"fmt"
	"sort"
	"time"
)

// User is a CMS account. Its business key is the normalized username.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Email        string    `json:"email"`
	Active       bool      `json:"active"`
	Roles        []*Role   `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewUser creates an inactive user with normalized username and email.
func NewUser(username, email string) *User {
	return &User{
		Username: NormalizeUsername(username),
		Email:    NormalizeEmail(email),
	}
}

// SetUsername stores the normalized form of username.
func (u *User) SetUsername(username string) {
	u.Username = NormalizeUsername(username)
}

// SetEmail stores the normalized form of email.
func (u *User) SetEmail(email string) {
	u.Email = NormalizeEmail(email)
}

// Equal reports whether u and other denote the same user.
// A user with an empty username only equals itself.
func (u *User) Equal(other *User) bool {
	if u == other {
		return true
	}
	if u == nil || other == nil {
		return false
	}
	key := NormalizeUsername(u.Username)
	return key != "" && key == NormalizeUsername(other.Username)
}

// AddRole attaches r and records u on r's back-reference.
// Nil and already-present roles are ignored.
func (u *User) AddRole(r *Role) {
	if r == nil || u.roleIndex(r) >= 0 {
		return
	}
	u.Roles = append(u.Roles, r)
	r.linkUser(u)
}

// RemoveRole detaches r from u on both sides. Absent or nil roles are ignored.
func (u *User) RemoveRole(r *Role) {
	if r == nil {
		return
	}
	i := u.roleIndex(r)
	if i < 0 {
		return
	}
	stored := u.Roles[i]
	u.Roles = append(u.Roles[:i:i], u.Roles[i+1:]...)
	stored.unlinkUser(u)
	if stored != r {
		r.unlinkUser(u)
	}
}

// SetRoles replaces the role set, keeping back-references consistent.
func (u *User) SetRoles(roles []*Role) {
	for _, r := range append([]*Role(nil), u.Roles...) {
		u.RemoveRole(r)
	}
	for _, r := range roles {
		u.AddRole(r)
	}
}

// HasRole reports whether u holds the named role.
func (u *User) HasRole(name string) bool {
	want := NormalizeRoleName(name)
	for _, r := range u.Roles {
		if r != nil && NormalizeRoleName(r.Name) == want {
			return true
		}
	}
	return false
}

// RoleNames returns the normalized role names, sorted.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	seen := make(map[string]struct{}, len(u.Roles))
	for _, r := range u.Roles {
		if r == nil {
			continue
		}
		n := NormalizeRoleName(r.Name)
		if _, ok := seen[n]; ok || n == "" {
			continue
		}
		seen[n] = struct{}{}
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Permissions returns the union of permission names across all roles.
func (u *User) Permissions() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, r := range u.Roles {
		if r == nil {
			continue
		}
		for _, p := range r.Permissions {
			if p == nil {
				continue
			}
			n := NormalizePermissionName(p.Name)
			if _, ok := seen[n]; ok || n == "" {
				continue
			}
			seen[n] = struct{}{}
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

func (u *User) String() string {
	return fmt.Sprintf("User{id=%s, username='%s', email='%s', active=%t}",
		u.ID, u.Username, u.Email, u.Active)
}

func (u *User) roleIndex(r *Role) int {
	for i, existing := range u.Roles {
		if existing.Equal(r) {
			return i
		}
	}
	return -1
}
