package access

import (
	"context"
	"errors"

	"github.com/phoebe/phoebe/internal/model"
	"github.com/phoebe/phoebe/internal/repository"
)

// NewsFinder loads a single news item by ID.
// It returns repository.ErrNewsNotFound when the item does not exist.
type NewsFinder interface {
	GetNewsByID(ctx context.Context, id string) (*model.News, error)
}

// AuthorVerifier decides whether a principal may act on a news item.
type AuthorVerifier struct {
	finder NewsFinder
}

// NewAuthorVerifier creates an AuthorVerifier backed by finder.
func NewAuthorVerifier(finder NewsFinder) *AuthorVerifier {
	return &AuthorVerifier{finder: finder}
}

// HasAccess reports whether p may act on the news item newsID.
//
// Admins are allowed without a lookup. A missing principal or ID is denied
// without a lookup. A missing item is a plain denial so callers cannot probe
// for existence. Other storage errors are returned with a false result.
func (v *AuthorVerifier) HasAccess(ctx context.Context, p *model.Principal, newsID string) (bool, error) {
	if p == nil || newsID == "" {
		return false, nil
	}
	if p.IsAdmin() {
		return true, nil
	}

	news, err := v.finder.GetNewsByID(ctx, newsID)
	if err != nil {
		if errors.Is(err, repository.ErrNewsNotFound) {
			return false, nil
		}
		return false, err
	}

	return IsAuthor(p, news), nil
}

// RequireAuthor is HasAccess mapped onto ErrAccessDenied.
func (v *AuthorVerifier) RequireAuthor(ctx context.Context, p *model.Principal, newsID string) error {
	ok, err := v.HasAccess(ctx, p, newsID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAccessDenied
	}
	return nil
}

// IsAuthor reports whether p wrote news. Both IDs must be non-empty.
func IsAuthor(p *model.Principal, news *model.News) bool {
	if p == nil || news == nil {
		return false
	}
	return p.UserID != "" && news.AuthorID != "" && p.UserID == news.AuthorID
}
