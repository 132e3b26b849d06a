package dto

import (
	"time"

	"github.com/phoebe/phoebe/internal/model"
)

// CreateUserRequest is the body of POST /api/admin/users.
type CreateUserRequest struct {
	Username string   `json:"username" validate:"required,min=3,max=50"`
	Password string   `json:"password" validate:"required,min=8,max=128"`
	Email    string   `json:"email" validate:"omitempty,email,max=255"`
	Active   *bool    `json:"active"`
	RoleIDs  []string `json:"role_ids" validate:"dive,required"`
}

// UpdateUserRequest is the body of PUT /api/admin/users/{id}. Omitted
// fields are left unchanged.
type UpdateUserRequest struct {
	Username *string   `json:"username" validate:"omitnil,min=3,max=50"`
	Password *string   `json:"password" validate:"omitnil,min=8,max=128"`
	Email    *string   `json:"email" validate:"omitnil,omitempty,email,max=255"`
	Active   *bool     `json:"active"`
	RoleIDs  *[]string `json:"role_ids" validate:"omitnil,dive,required"`
}

// UserResponse is a user without credentials.
type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Active    bool      `json:"active"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToUserResponse converts a user.
func ToUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Active:    u.Active,
		Roles:     nonNil(u.RoleNames()),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// ToUserResponses converts a list of users.
func ToUserResponses(users []*model.User) []UserResponse {
	out := make([]UserResponse, len(users))
	for i, u := range users {
		out[i] = ToUserResponse(u)
	}
	return out
}
