// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/phoebe/phoebe/internal/model"
	"github.com/phoebe/phoebe/internal/repository"
)

// Service errors. Handlers map these onto HTTP status codes.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrConflict           = errors.New("resource conflict")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrStaleVersion       = errors.New("resource was modified concurrently")
	ErrBulkNotConfirmed   = errors.New("bulk action requires confirmation")
)

// invalid wraps ErrInvalidInput with a client-facing message.
func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// conflict wraps ErrConflict with a client-facing message.
func conflict(msg string) error {
	return fmt.Errorf("%w: %s", ErrConflict, msg)
}

// Message returns the client-facing part of a service error.
func Message(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{ErrInvalidInput, ErrConflict, ErrNotFound} {
		if prefix := sentinel.Error() + ": "; strings.HasPrefix(msg, prefix) {
			return strings.TrimPrefix(msg, prefix)
		}
	}
	return msg
}

func newID() string {
	return ulid.Make().String()
}

// UserStore persists users.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	ListUsers(ctx context.Context) ([]*model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
	DeleteUser(ctx context.Context, id string) error
	ListUserIDsByRole(ctx context.Context, roleID string) ([]string, error)
}

// RoleStore persists roles.
type RoleStore interface {
	CreateRole(ctx context.Context, role *model.Role) error
	GetRoleByID(ctx context.Context, id string) (*model.Role, error)
	ListRoles(ctx context.Context) ([]*model.Role, error)
	GetRolesByIDs(ctx context.Context, ids []string) ([]*model.Role, error)
	ListRolesByUserID(ctx context.Context, userID string) ([]*model.Role, error)
	UpdateRole(ctx context.Context, role *model.Role) error
	DeleteRole(ctx context.Context, id string) error
}

// PermissionStore reads the fixed permission catalogue.
type PermissionStore interface {
	ListPermissions(ctx context.Context) ([]*model.Permission, error)
	GetPermissionByID(ctx context.Context, id string) (*model.Permission, error)
	GetPermissionsByIDs(ctx context.Context, ids []string) ([]*model.Permission, error)
}

// TermStore persists taxonomy terms.
type TermStore interface {
	CreateTerm(ctx context.Context, term *model.Term) error
	GetTermByID(ctx context.Context, id string) (*model.Term, error)
	GetTermsByIDs(ctx context.Context, ids []string) ([]*model.Term, error)
	ListTerms(ctx context.Context, vocabulary string) ([]*model.Term, error)
	UpdateTerm(ctx context.Context, term *model.Term) error
	DeleteTerm(ctx context.Context, id string) error
}

// NewsStore persists news items.
type NewsStore interface {
	CreateNews(ctx context.Context, news *model.News) error
	GetNewsByID(ctx context.Context, id string) (*model.News, error)
	UpdateNews(ctx context.Context, news *model.News) error
	DeleteNews(ctx context.Context, id string) error
	ListNews(ctx context.Context, filter repository.NewsFilter, page, size int) ([]*model.News, int64, error)
	ListPublishedByTerms(ctx context.Context, termIDs []string, limit int) ([]*model.News, error)
	BulkDeleteNews(ctx context.Context, sel model.NewsSelector) (int64, error)
	BulkUnpublishNews(ctx context.Context, sel model.NewsSelector) (int64, error)
}

// HomepageStore persists homepage blocks and the homepage mode.
type HomepageStore interface {
	CreateBlock(ctx context.Context, b *model.HomePageBlock) error
	GetBlockByID(ctx context.Context, id string) (*model.HomePageBlock, error)
	ListBlocks(ctx context.Context) ([]*model.HomePageBlock, error)
	UpdateBlock(ctx context.Context, b *model.HomePageBlock) error
	DeleteBlock(ctx context.Context, id string) error
	GetHomepageSettings(ctx context.Context) (*model.HomepageSettings, error)
	SaveHomepageSettings(ctx context.Context, s *model.HomepageSettings) error
}

// ChannelStore persists the channel settings singleton.
type ChannelStore interface {
	GetChannelSettings(ctx context.Context) (*model.ChannelSettings, error)
	SaveChannelSettings(ctx context.Context, s *model.ChannelSettings) error
}

// PrincipalCache caches resolved principals and verified Basic credentials.
type PrincipalCache interface {
	GetPrincipal(ctx context.Context, userID string) (*model.Principal, error)
	SetPrincipal(ctx context.Context, p *model.Principal) error
	DeletePrincipal(ctx context.Context, userID string) error
	GetCredentialUser(ctx context.Context, digest string) (string, error)
	SetCredentialUser(ctx context.Context, digest, userID string) error
}

// HomepageCache caches the rendered public homepage.
type HomepageCache interface {
	GetHomepage(ctx context.Context) ([]byte, error)
	SetHomepage(ctx context.Context, data []byte) error
	InvalidateHomepage(ctx context.Context) error
}

type noopPrincipalCache struct{}

func (noopPrincipalCache) GetPrincipal(context.Context, string) (*model.Principal, error) {
	return nil, nil
}
func (noopPrincipalCache) SetPrincipal(context.Context, *model.Principal) error { return nil }
func (noopPrincipalCache) DeletePrincipal(context.Context, string) error { return nil }
func (noopPrincipalCache) GetCredentialUser(context.Context, string) (string, error) {
	return "", nil
}
func (noopPrincipalCache) SetCredentialUser(context.Context, string, string) error { return nil }

type noopHomepageCache struct{}

func (noopHomepageCache) GetHomepage(context.Context) ([]byte, error) { return nil, nil }
func (noopHomepageCache) SetHomepage(context.Context, []byte) error   { return nil }
func (noopHomepageCache) InvalidateHomepage(context.Context) error    { return nil }
