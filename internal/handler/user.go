package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/phoebe/phoebe/internal/handler/dto"
	"github.com/phoebe/phoebe/internal/model"
	"github.com/phoebe/phoebe/internal/service"
)

// UserManager is the user service as seen by the HTTP layer.
type UserManager interface {
	CreateUser(ctx context.Context, input service.CreateUserInput) (*model.User, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	ListUsers(ctx context.Context) ([]*model.User, error)
	UpdateUser(ctx context.Context, input service.UpdateUserInput) (*model.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// UserHandler handles user administration endpoints.
type UserHandler struct {
	svc    UserManager
	logger *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc UserManager, logger *slog.Logger) *UserHandler {
	return &UserHandler{svc: svc, logger: logger}
}

// List handles GET /api/admin/users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToUserResponses(users))
}

// Get handles GET /api/admin/users/{id}.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToUserResponse(user))
}

// Create handles POST /api/admin/users.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	user, err := h.svc.CreateUser(r.Context(), service.CreateUserInput{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
		Active:   active,
		RoleIDs:  req.RoleIDs,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	h.logger.Info("user_created", "user_id", user.ID, "username", user.Username)
	writeJSON(w, http.StatusCreated, dto.ToUserResponse(user))
}

// Update handles PUT /api/admin/users/{id}.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.svc.UpdateUser(r.Context(), service.UpdateUserInput{
		ID:       chi.URLParam(r, "id"),
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Active:   req.Active,
		RoleIDs:  req.RoleIDs,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	h.logger.Info("user_updated",
		"user_id", user.ID,
		"password_changed", req.Password != nil,
		"roles_changed", req.RoleIDs != nil,
	)
	writeJSON(w, http.StatusOK, dto.ToUserResponse(user))
}

// Delete handles DELETE /api/admin/users/{id}.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteUser(r.Context(), id); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	h.logger.Info("user_deleted", "user_id", id)
	w.WriteHeader(http.StatusNoContent)
}
