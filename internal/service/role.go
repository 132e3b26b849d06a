package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/phoebe/phoebe/internal/model"
	"github.com/phoebe/phoebe/internal/repository"
)

// RoleService manages roles and their permission sets.
type RoleService struct {
	roles       RoleStore
	perms       PermissionStore
	users       UserStore
	invalidator PrincipalInvalidator
	logger      *slog.Logger
}

// NewRoleService creates a new RoleService.
func NewRoleService(roles RoleStore, perms PermissionStore, users UserStore, invalidator PrincipalInvalidator, logger *slog.Logger) *RoleService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RoleService{
		roles:       roles,
		perms:       perms,
		users:       users,
		invalidator: invalidator,
		logger:      logger,
	}
}

// RoleInput defines input for creating or updating a role. On update,
// nil fields are unchanged.
type RoleInput struct {
	Name          *string
	Description   *string
	PermissionIDs *[]string
}

// CreateRole stores a new role.
func (s *RoleService) CreateRole(ctx context.Context, input RoleInput) (*model.Role, error) {
	if input.Name == nil {
		return nil, invalid("name is required")
	}
	role := model.NewRole(*input.Name, "")
	if err := validateRoleName(role.Name); err != nil {
		return nil, err
	}
	if input.Description != nil {
		role.Description = *input.Description
	}
	if input.PermissionIDs != nil {
		perms, err := s.resolvePermissions(ctx, *input.PermissionIDs)
		if err != nil {
			return nil, err
		}
		role.SetPermissions(perms)
	}
	role.ID = newID()

	if err := s.roles.CreateRole(ctx, role); err != nil {
		return nil, mapRoleError(err)
	}
	return role, nil
}

// GetRole retrieves a role by ID.
func (s *RoleService) GetRole(ctx context.Context, id string) (*model.Role, error) {
	role, err := s.roles.GetRoleByID(ctx, id)
	if err != nil {
		return nil, mapRoleError(err)
	}
	return role, nil
}

// ListRoles returns every role.
func (s *RoleService) ListRoles(ctx context.Context) ([]*model.Role, error) {
	return s.roles.ListRoles(ctx)
}

// ListRolesByUser returns the roles held by userID.
func (s *RoleService) ListRolesByUser(ctx context.Context, userID string) ([]*model.Role, error) {
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return nil, mapUserError(err)
	}
	return s.roles.ListRolesByUserID(ctx, userID)
}

// UpdateRole applies a partial update. Members' cached principals are
// invalidated so the change applies on their next request.
func (s *RoleService) UpdateRole(ctx context.Context, id string, input RoleInput) (*model.Role, error) {
	role, err := s.roles.GetRoleByID(ctx, id)
	if err != nil {
		return nil, mapRoleError(err)
	}

	if input.Name != nil {
		name := model.NormalizeRoleName(*input.Name)
		if err := validateRoleName(name); err != nil {
			return nil, err
		}
		if role.Name == model.RoleAdmin && name != model.RoleAdmin {
			return nil, invalid("the ADMIN role cannot be renamed")
		}
		role.SetName(name)
	}
	if input.Description != nil {
		role.Description = *input.Description
	}
	if input.PermissionIDs != nil {
		perms, err := s.resolvePermissions(ctx, *input.PermissionIDs)
		if err != nil {
			return nil, err
		}
		role.SetPermissions(perms)
	}

	if err := s.roles.UpdateRole(ctx, role); err != nil {
		return nil, mapRoleError(err)
	}
	s.invalidateMembers(ctx, role.ID)
	return role, nil
}

// DeleteRole removes a role. The ADMIN role cannot be deleted.
func (s *RoleService) DeleteRole(ctx context.Context, id string) error {
	role, err := s.roles.GetRoleByID(ctx, id)
	if err != nil {
		return mapRoleError(err)
	}
	if role.Name == model.RoleAdmin {
		return invalid("the ADMIN role cannot be deleted")
	}

	members, err := s.users.ListUserIDsByRole(ctx, id)
	if err != nil {
		return err
	}
	if err := s.roles.DeleteRole(ctx, id); err != nil {
		return mapRoleError(err)
	}
	for _, userID := range members {
		s.invalidator.InvalidatePrincipal(ctx, userID)
	}

	s.logger.InfoContext(ctx, "role deleted",
		slog.String("role", role.Name),
		slog.Int("members", len(members)),
	)
	return nil
}

// ListPermissions returns the permission catalogue.
func (s *RoleService) ListPermissions(ctx context.Context) ([]*model.Permission, error) {
	return s.perms.ListPermissions(ctx)
}

// GetPermission retrieves one permission.
func (s *RoleService) GetPermission(ctx context.Context, id string) (*model.Permission, error) {
	p, err := s.perms.GetPermissionByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrPermissionNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *RoleService) invalidateMembers(ctx context.Context, roleID string) {
	members, err := s.users.ListUserIDsByRole(ctx, roleID)
	if err != nil {
		s.logger.WarnContext(ctx, "list role members failed",
			slog.String("role_id", roleID),
			slog.String("error", err.Error()),
		)
		return
	}
	for _, userID := range members {
		s.invalidator.InvalidatePrincipal(ctx, userID)
	}
}

func (s *RoleService) resolvePermissions(ctx context.Context, ids []string) ([]*model.Permission, error) {
	ids = uniqueStrings(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	perms, err := s.perms.GetPermissionsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(perms) != len(ids) {
		return nil, invalid("unknown permission id")
	}
	return perms, nil
}

func validateRoleName(name string) error {
	if name == "" {
		return invalid("name is required")
	}
	if len(name) > 50 {
		return invalid("name must be at most 50 characters")
	}
	return nil
}

func mapRoleError(err error) error {
	switch {
	case errors.Is(err, repository.ErrRoleNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrRoleExists):
		return conflict("role already exists")
	default:
		return err
	}
}
