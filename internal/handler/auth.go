package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/phoebe/phoebe/internal/auth"
	"github.com/phoebe/phoebe/internal/handler/dto"
	"github.com/phoebe/phoebe/internal/service"
)

// Authenticator issues bearer tokens.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*service.LoginResult, error)
}

// AuthHandler handles login and identity endpoints.
type AuthHandler struct {
	svc    Authenticator
	logger *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc Authenticator, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, logger: logger}
}

// Login handles POST /api/admin/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.LoginResponse{
		Token:     result.Token,
		TokenType: "Bearer",
		ExpiresAt: result.ExpiresAt,
		User:      dto.ToUserResponse(result.User),
	})
}

// Me handles GET /api/admin/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p := auth.MustPrincipalFromContext(r.Context())
	writeJSON(w, http.StatusOK, dto.ToMeResponse(p))
}
