package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"time"

	"github.com/phoebe/phoebe/internal/auth"
	"github.com/phoebe/phoebe/internal/model"
	"github.com/phoebe/phoebe/internal/repository"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// PrincipalInvalidator drops cached principals after identity changes.
type PrincipalInvalidator interface {
	InvalidatePrincipal(ctx context.Context, userID string)
}

// UserService manages accounts and their role assignments.
type UserService struct {
	users       UserStore
	roles       RoleStore
	invalidator PrincipalInvalidator
	hash        func(string) (string, error)
	logger      *slog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(users UserStore, roles RoleStore, invalidator PrincipalInvalidator, logger *slog.Logger) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{
		users:       users,
		roles:       roles,
		invalidator: invalidator,
		hash:        auth.HashPassword,
		logger:      logger,
	}
}

// CreateUserInput defines input for creating a user.
type CreateUserInput struct {
	Username string
	Password string
	Email    string
	Active   bool
	RoleIDs  []string
}

// UpdateUserInput defines a partial user update. Nil fields are unchanged.
type UpdateUserInput struct {
	ID       string
	Username *string
	Email    *string
	Password *string
	Active   *bool
	RoleIDs  *[]string
}

// CreateUser validates input, hashes the password and stores the user.
func (s *UserService) CreateUser(ctx context.Context, input CreateUserInput) (*model.User, error) {
	user := model.NewUser(input.Username, input.Email)
	if err := validateUsername(user.Username); err != nil {
		return nil, err
	}
	if err := validateEmail(user.Email); err != nil {
		return nil, err
	}
	if len(input.Password) < MinPasswordLength {
		return nil, invalid("password must be at least %d characters", MinPasswordLength)
	}

	roles, err := s.resolveRoles(ctx, input.RoleIDs)
	if err != nil {
		return nil, err
	}

	hash, err := s.hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user.ID = newID()
	user.PasswordHash = hash
	user.Active = input.Active
	user.SetRoles(roles)
	user.CreatedAt = now
	user.UpdatedAt = now

	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, mapUserError(err)
	}

	s.logger.InfoContext(ctx, "user created",
		slog.String("user_id", user.ID),
		slog.Any("roles", user.RoleNames()),
	)
	return user, nil
}

// GetUser retrieves a user by ID.
func (s *UserService) GetUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, mapUserError(err)
	}
	return user, nil
}

// ListUsers returns every user.
func (s *UserService) ListUsers(ctx context.Context) ([]*model.User, error) {
	return s.users.ListUsers(ctx)
}

// UpdateUser applies a partial update and invalidates the cached principal.
func (s *UserService) UpdateUser(ctx context.Context, input UpdateUserInput) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, input.ID)
	if err != nil {
		return nil, mapUserError(err)
	}

	if input.Username != nil {
		user.SetUsername(*input.Username)
		if err := validateUsername(user.Username); err != nil {
			return nil, err
		}
	}
	if input.Email != nil {
		user.SetEmail(*input.Email)
		if err := validateEmail(user.Email); err != nil {
			return nil, err
		}
	}
	if input.Password != nil {
		if len(*input.Password) < MinPasswordLength {
			return nil, invalid("password must be at least %d characters", MinPasswordLength)
		}
		hash, err := s.hash(*input.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
	}
	if input.Active != nil {
		user.Active = *input.Active
	}
	if input.RoleIDs != nil {
		roles, err := s.resolveRoles(ctx, *input.RoleIDs)
		if err != nil {
			return nil, err
		}
		user.SetRoles(roles)
	}
	user.UpdatedAt = time.Now().UTC()

	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, mapUserError(err)
	}
	s.invalidator.InvalidatePrincipal(ctx, user.ID)

	return user, nil
}

// DeleteUser removes a user and invalidates the cached principal.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	if err := s.users.DeleteUser(ctx, id); err != nil {
		return mapUserError(err)
	}
	s.invalidator.InvalidatePrincipal(ctx, id)
	s.logger.InfoContext(ctx, "user deleted", slog.String("user_id", id))
	return nil
}

func (s *UserService) resolveRoles(ctx context.Context, ids []string) ([]*model.Role, error) {
	ids = uniqueStrings(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	roles, err := s.roles.GetRolesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(roles) != len(ids) {
		return nil, invalid("unknown role id")
	}
	return roles, nil
}

func validateUsername(username string) error {
	if username == "" {
		return invalid("username is required")
	}
	if len(username) > 100 {
		return invalid("username must be at most 100 characters")
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return nil
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return invalid("email is not valid")
	}
	return nil
}

func mapUserError(err error) error {
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrUsernameExists):
		return conflict("username already exists")
	case errors.Is(err, repository.ErrEmailExists):
		return conflict("email already exists")
	case errors.Is(err, repository.ErrUserHasNews):
		return conflict("user still authors news")
	default:
		return err
	}
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
