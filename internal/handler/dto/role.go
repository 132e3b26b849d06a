package dto

import "github.com/phoebe/phoebe/internal/model"

// RoleRequest is the body of role create and update requests. On update
// omitted fields are left unchanged.
type RoleRequest struct {
	Name          *string   `json:"name" validate:"omitnil,min=1,max=50"`
	Description   *string   `json:"description" validate:"omitnil,max=255"`
	PermissionIDs *[]string `json:"permission_ids" validate:"omitnil,dive,required"`
}

// PermissionResponse describes a permission.
type PermissionResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// RoleResponse describes a role and its permissions.
type RoleResponse struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	Permissions []PermissionResponse `json:"permissions"`
}

// ToPermissionResponse converts a permission.
func ToPermissionResponse(p *model.Permission) PermissionResponse {
	return PermissionResponse{ID: p.ID, Name: p.Name, Description: p.Description}
}

// ToPermissionResponses converts a list of permissions.
func ToPermissionResponses(perms []*model.Permission) []PermissionResponse {
	out := make([]PermissionResponse, len(perms))
	for i, p := range perms {
		out[i] = ToPermissionResponse(p)
	}
	return out
}

// ToRoleResponse converts a role.
func ToRoleResponse(r *model.Role) RoleResponse {
	return RoleResponse{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Permissions: ToPermissionResponses(r.Permissions),
	}
}

// ToRoleResponses converts a list of roles.
func ToRoleResponses(roles []*model.Role) []RoleResponse {
	out := make([]RoleResponse, len(roles))
	for i, r := range roles {
		out[i] = ToRoleResponse(r)
	}
	return out
}
