package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/phoebe/phoebe/internal/model"
)

// Common errors for user repository operations.
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrUsernameExists = errors.New("username already exists")
	ErrEmailExists    = errors.New("email already exists")
	ErrUserHasNews    = errors.New("user still authors news")
)

const userColumns = `id, username, password_hash, COALESCE(email, ''), active, created_at, updated_at`

// CreateUser inserts a user and its role links.
func (r *Repository) CreateUser(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (id, username, password_hash, email, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	return r.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, query,
			user.ID,
			user.Username,
			user.PasswordHash,
			nullableString(user.Email),
			user.Active,
			user.CreatedAt,
			user.UpdatedAt,
		)
		if err != nil {
			return mapUserWriteError(err, "create user")
		}
		return replaceUserRoles(ctx, tx, user)
	})
}

// GetUserByID retrieves a user with roles and permissions.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.getUser(ctx, query, id)
}

// GetUserByUsername retrieves a user by normalized username.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return r.getUser(ctx, query, model.NormalizeUsername(username))
}

func (r *Repository) getUser(ctx context.Context, query string, arg any) (*model.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := loadUserRoles(ctx, r.pool, []*model.User{user}); err != nil {
		return nil, err
	}
	return user, nil
}

// ListUsers returns all users ordered by username.
func (r *Repository) ListUsers(ctx context.Context) ([]*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY username`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	if err := loadUserRoles(ctx, r.pool, users); err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateUser writes all user columns and replaces its role links.
func (r *Repository) UpdateUser(ctx context.Context, user *model.User) error {
	query := `
		UPDATE users
		SET username = $2, password_hash = $3, email = $4, active = $5, updated_at = $6
		WHERE id = $1
	`

	return r.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, query,
			user.ID,
			user.Username,
			user.PasswordHash,
			nullableString(user.Email),
			user.Active,
			user.UpdatedAt,
		)
		if err != nil {
			return mapUserWriteError(err, "update user")
		}
		if tag.RowsAffected() == 0 {
			return ErrUserNotFound
		}
		return replaceUserRoles(ctx, tx, user)
	})
}

// DeleteUser removes a user. Role links cascade.
func (r *Repository) DeleteUser(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		if foreignKeyViolation(err) {
			return ErrUserHasNews
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ListUserIDsByRole returns the IDs of users holding roleID.
func (r *Repository) ListUserIDsByRole(ctx context.Context, roleID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT user_id FROM user_roles WHERE role_id = $1`, roleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list role members: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to collect role members: %w", err)
	}
	return ids, nil
}

func replaceUserRoles(ctx context.Context, tx pgx.Tx, user *model.User) error {
	if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, user.ID); err != nil {
		return fmt.Errorf("failed to clear user roles: %w", err)
	}
	for _, role := range user.Roles {
		if role == nil || role.ID == "" {
			continue
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			user.ID, role.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to link user role: %w", err)
		}
	}
	return nil
}

// loadUserRoles attaches roles (with permissions) to users. Role instances
// are shared between users so back-references stay consistent.
func loadUserRoles(ctx context.Context, q querier, users []*model.User) error {
	if len(users) == 0 {
		return nil
	}

	byID := make(map[string]*model.User, len(users))
	ids := make([]string, 0, len(users))
	for _, u := range users {
		byID[u.ID] = u
		ids = append(ids, u.ID)
	}

	rows, err := q.Query(ctx, `
		SELECT ur.user_id, r.id, r.name, r.description
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = ANY($1)
		ORDER BY r.name
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to load user roles: %w", err)
	}
	defer rows.Close()

	roles := make(map[string]*model.Role)
	type link struct{ userID, roleID string }
	var links []link
	for rows.Next() {
		var userID string
		var role model.Role
		if err := rows.Scan(&userID, &role.ID, &role.Name, &role.Description); err != nil {
			return fmt.Errorf("failed to scan user role: %w", err)
		}
		if _, ok := roles[role.ID]; !ok {
			roles[role.ID] = &role
		}
		links = append(links, link{userID: userID, roleID: role.ID})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate user roles: %w", err)
	}

	if err := loadRolePermissions(ctx, q, roles); err != nil {
		return err
	}

	for _, l := range links {
		byID[l.userID].AddRole(roles[l.roleID])
	}
	return nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(
		&u.ID,
		&u.Username,
		&u.PasswordHash,
		&u.Email,
		&u.Active,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}

func mapUserWriteError(err error, op string) error {
	if constraint, ok := uniqueViolation(err); ok {
		if constraint == "idx_users_email" {
			return ErrEmailExists
		}
		return ErrUsernameExists
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
