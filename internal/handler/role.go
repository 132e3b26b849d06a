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

// RoleManager is the role and permission service as seen by the HTTP layer.
type RoleManager interface {
	CreateRole(ctx context.Context, input service.RoleInput) (*model.Role, error)
	GetRole(ctx context.Context, id string) (*model.Role, error)
	ListRoles(ctx context.Context) ([]*model.Role, error)
	ListRolesByUser(ctx context.Context, userID string) ([]*model.Role, error)
	UpdateRole(ctx context.Context, id string, input service.RoleInput) (*model.Role, error)
	DeleteRole(ctx context.Context, id string) error
	ListPermissions(ctx context.Context) ([]*model.Permission, error)
	GetPermission(ctx context.Context, id string) (*model.Permission, error)
}

// RoleHandler handles role and permission endpoints.
type RoleHandler struct {
	svc    RoleManager
	logger *slog.Logger
}

// NewRoleHandler creates a new RoleHandler.
func NewRoleHandler(svc RoleManager, logger *slog.Logger) *RoleHandler {
	return &RoleHandler{svc: svc, logger: logger}
}

// List handles GET /api/admin/roles.
func (h *RoleHandler) List(w http.ResponseWriter, r *http.Request) {
	roles, err := h.svc.ListRoles(r.Context())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToRoleResponses(roles))
}

// ListByUser handles GET /api/admin/roles/user/{userId}.
func (h *RoleHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	roles, err := h.svc.ListRolesByUser(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToRoleResponses(roles))
}

// Get handles GET /api/admin/roles/{id}.
func (h *RoleHandler) Get(w http.ResponseWriter, r *http.Request) {
	role, err := h.svc.GetRole(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToRoleResponse(role))
}

// Create handles POST /api/admin/roles.
func (h *RoleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.RoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	role, err := h.svc.CreateRole(r.Context(), roleInput(req))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	h.logger.Info("role_created", "role_id", role.ID, "name", role.Name)
	writeJSON(w, http.StatusCreated, dto.ToRoleResponse(role))
}

// Update handles PUT /api/admin/roles/{id}.
func (h *RoleHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.RoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	role, err := h.svc.UpdateRole(r.Context(), chi.URLParam(r, "id"), roleInput(req))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	h.logger.Info("role_updated", "role_id", role.ID, "permissions_changed", req.PermissionIDs != nil)
	writeJSON(w, http.StatusOK, dto.ToRoleResponse(role))
}

// Delete handles DELETE /api/admin/roles/{id}.
func (h *RoleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteRole(r.Context(), id); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	h.logger.Info("role_deleted", "role_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// ListPermissions handles GET /api/admin/permissions.
func (h *RoleHandler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.svc.ListPermissions(r.Context())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToPermissionResponses(perms))
}

// GetPermission handles GET /api/admin/permissions/{id}.
func (h *RoleHandler) GetPermission(w http.ResponseWriter, r *http.Request) {
	perm, err := h.svc.GetPermission(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToPermissionResponse(perm))
}

func roleInput(req dto.RoleRequest) service.RoleInput {
	return service.RoleInput{
		Name:          req.Name,
		Description:   req.Description,
		PermissionIDs: req.PermissionIDs,
	}
}
