package dto

import (
	"time"

	"github.com/phoebe/phoebe/internal/model"
)

// LoginRequest is the body of POST /api/admin/auth/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=50"`
	Password string `json:"password" validate:"required,max=128"`
}

// LoginResponse carries the issued bearer token.
type LoginResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// MeResponse describes the authenticated principal.
type MeResponse struct {
	UserID      string   `json:"user_id"`
	Username    string   `json:"username"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
	AuthMethod  string   `json:"auth_method"`
}

// ToMeResponse converts a principal.
func ToMeResponse(p *model.Principal) MeResponse {
	return MeResponse{
		UserID:      p.UserID,
		Username:    p.Username,
		Roles:       nonNil(p.Roles),
		Permissions: nonNil(p.Permissions),
		AuthMethod:  p.AuthMethod,
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
