package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/phoebe/phoebe/internal/model"
)

// Common errors for role and permission repository operations.
var (
	ErrRoleNotFound       = errors.New("role not found")
	ErrRoleExists         = errors.New("role already exists")
	ErrPermissionNotFound = errors.New("permission not found")
)

// CreateRole inserts a role and its permission links.
func (r *Repository) CreateRole(ctx context.Context, role *model.Role) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO roles (id, name, description) VALUES ($1, $2, $3)`,
			role.ID, model.NormalizeRoleName(role.Name), role.Description,
		)
		if err != nil {
			if _, ok := uniqueViolation(err); ok {
				return ErrRoleExists
			}
			return fmt.Errorf("failed to create role: %w", err)
		}
		return replaceRolePermissions(ctx, tx, role)
	})
}

// GetRoleByID retrieves a role with its permissions.
func (r *Repository) GetRoleByID(ctx context.Context, id string) (*model.Role, error) {
	var role model.Role
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, description FROM roles WHERE id = $1`, id,
	).Scan(&role.ID, &role.Name, &role.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}

	if err := loadRolePermissions(ctx, r.pool, map[string]*model.Role{role.ID: &role}); err != nil {
		return nil, err
	}
	return &role, nil
}

// ListRoles returns all roles ordered by name.
func (r *Repository) ListRoles(ctx context.Context) ([]*model.Role, error) {
	return r.queryRoles(ctx, `SELECT id, name, description FROM roles ORDER BY name`)
}

// GetRolesByIDs returns the roles among ids that exist.
func (r *Repository) GetRolesByIDs(ctx context.Context, ids []string) ([]*model.Role, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.queryRoles(ctx, `SELECT id, name, description FROM roles WHERE id = ANY($1) ORDER BY name`, ids)
}

// ListRolesByUserID returns the roles held by a user.
func (r *Repository) ListRolesByUserID(ctx context.Context, userID string) ([]*model.Role, error) {
	return r.queryRoles(ctx, `
		SELECT r.id, r.name, r.description
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.name
	`, userID)
}

func (r *Repository) queryRoles(ctx context.Context, query string, args ...any) ([]*model.Role, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query roles: %w", err)
	}
	defer rows.Close()

	var roles []*model.Role
	byID := make(map[string]*model.Role)
	for rows.Next() {
		var role model.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, &role)
		byID[role.ID] = &role
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate roles: %w", err)
	}

	if err := loadRolePermissions(ctx, r.pool, byID); err != nil {
		return nil, err
	}
	return roles, nil
}

// UpdateRole writes name and description and replaces permission links.
func (r *Repository) UpdateRole(ctx context.Context, role *model.Role) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE roles SET name = $2, description = $3 WHERE id = $1`,
			role.ID, model.NormalizeRoleName(role.Name), role.Description,
		)
		if err != nil {
			if _, ok := uniqueViolation(err); ok {
				return ErrRoleExists
			}
			return fmt.Errorf("failed to update role: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrRoleNotFound
		}
		return replaceRolePermissions(ctx, tx, role)
	})
}

// DeleteRole removes a role. User and permission links cascade.
func (r *Repository) DeleteRole(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRoleNotFound
	}
	return nil
}

// ListPermissions returns all permissions ordered by name.
func (r *Repository) ListPermissions(ctx context.Context) ([]*model.Permission, error) {
	return r.queryPermissions(ctx, `SELECT id, name, description FROM permissions ORDER BY name`)
}

// GetPermissionsByIDs returns the permissions among ids that exist.
func (r *Repository) GetPermissionsByIDs(ctx context.Context, ids []string) ([]*model.Permission, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.queryPermissions(ctx, `SELECT id, name, description FROM permissions WHERE id = ANY($1) ORDER BY name`, ids)
}

// GetPermissionByID retrieves one permission.
func (r *Repository) GetPermissionByID(ctx context.Context, id string) (*model.Permission, error) {
	var p model.Permission
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, description FROM permissions WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPermissionNotFound
		}
		return nil, fmt.Errorf("failed to get permission: %w", err)
	}
	return &p, nil
}

func (r *Repository) queryPermissions(ctx context.Context, query string, args ...any) ([]*model.Permission, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query permissions: %w", err)
	}
	defer rows.Close()

	var perms []*model.Permission
	for rows.Next() {
		var p model.Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		perms = append(perms, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate permissions: %w", err)
	}
	return perms, nil
}

func replaceRolePermissions(ctx context.Context, tx pgx.Tx, role *model.Role) error {
	if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, role.ID); err != nil {
		return fmt.Errorf("failed to clear role permissions: %w", err)
	}
	for _, p := range role.Permissions {
		if p == nil || p.ID == "" {
			continue
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			role.ID, p.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to link role permission: %w", err)
		}
	}
	return nil
}

// loadRolePermissions attaches permissions to the given roles, sharing
// permission instances across roles.
func loadRolePermissions(ctx context.Context, q querier, roles map[string]*model.Role) error {
	if len(roles) == 0 {
		return nil
	}

	ids := make([]string, 0, len(roles))
	for id := range roles {
		ids = append(ids, id)
	}

	rows, err := q.Query(ctx, `
		SELECT rp.role_id, p.id, p.name, p.description
		FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role_id = ANY($1)
		ORDER BY p.name
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to load role permissions: %w", err)
	}
	defer rows.Close()

	perms := make(map[string]*model.Permission)
	for rows.Next() {
		var roleID string
		var p model.Permission
		if err := rows.Scan(&roleID, &p.ID, &p.Name, &p.Description); err != nil {
			return fmt.Errorf("failed to scan role permission: %w", err)
		}
		shared, ok := perms[p.ID]
		if !ok {
			shared = &p
			perms[p.ID] = shared
		}
		roles[roleID].AddPermission(shared)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate role permissions: %w", err)
	}
	return nil
}
