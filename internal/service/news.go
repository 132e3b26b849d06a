package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/phoebe/phoebe/internal/access"
	"github.com/phoebe/phoebe/internal/metrics"
	"github.com/phoebe/phoebe/internal/model"
	"github.com/phoebe/phoebe/internal/repository"
)

// Page size bounds for news listings.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// NewsService handles news business logic. Admin operations take the
// acting principal and apply the author ownership check.
type NewsService struct {
	news     NewsStore
	terms    TermStore
	verifier *access.AuthorVerifier
	homepage HomepageCache
	metrics  metrics.Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewNewsService creates a new NewsService.
func NewNewsService(news NewsStore, terms TermStore, homepage HomepageCache, recorder metrics.Recorder, logger *slog.Logger) *NewsService {
	if homepage == nil {
		homepage = noopHomepageCache{}
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NewsService{
		news:     news,
		terms:    terms,
		verifier: access.NewAuthorVerifier(news),
		homepage: homepage,
		metrics:  recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// NewsInput defines the writable fields of a news item.
type NewsInput struct {
	Title           string
	Body            string
	Teaser          string
	PublicationDate *time.Time
	Published       bool
	TermIDs         []string
	// Version must equal the stored version on update.
	Version int64
}

// NewsQuery narrows an admin or public listing.
type NewsQuery struct {
	Page   int
	Size   int
	TermID string
	Query  string
}

// BulkInput describes a bulk action request.
type BulkInput struct {
	Action    model.BulkAction
	Filter    model.BulkFilterType
	IDs       []string
	TermID    string
	AuthorID  string
	Confirmed bool
}

// CreateNews stores a news item authored by p.
func (s *NewsService) CreateNews(ctx context.Context, p *model.Principal, input NewsInput) (*model.News, error) {
	if p == nil {
		return nil, access.ErrAccessDenied
	}
	if err := validateNews(input); err != nil {
		return nil, err
	}

	terms, err := s.resolveTerms(ctx, input.TermIDs)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	news := &model.News{
		ID:              newID(),
		AuthorID:        p.UserID,
		AuthorUsername:  p.Username,
		Terms:           []*model.Term{},
		CreatedAt:       now,
		UpdatedAt:       now,
		PublicationDate: now,
	}
	applyNewsInput(news, input, terms)

	if err := s.news.CreateNews(ctx, news); err != nil {
		return nil, err
	}

	s.metrics.IncNewsCreated()
	s.invalidateHomepage(ctx, news.Published)
	return news, nil
}

// GetNews returns an item p may manage.
func (s *NewsService) GetNews(ctx context.Context, p *model.Principal, id string) (*model.News, error) {
	if err := s.verifier.RequireAuthor(ctx, p, id); err != nil {
		return nil, err
	}
	return s.getNews(ctx, id)
}

// UpdateNews overwrites an item p may manage. input.Version must match the
// stored version.
func (s *NewsService) UpdateNews(ctx context.Context, p *model.Principal, id string, input NewsInput) (*model.News, error) {
	if err := s.verifier.RequireAuthor(ctx, p, id); err != nil {
		return nil, err
	}
	if err := validateNews(input); err != nil {
		return nil, err
	}

	news, err := s.getNews(ctx, id)
	if err != nil {
		return nil, err
	}
	if news.Version != input.Version {
		return nil, ErrStaleVersion
	}

	terms, err := s.resolveTerms(ctx, input.TermIDs)
	if err != nil {
		return nil, err
	}

	wasPublished := news.Published
	news.Terms = []*model.Term{}
	applyNewsInput(news, input, terms)
	news.UpdatedAt = s.now().UTC()

	if err := s.news.UpdateNews(ctx, news); err != nil {
		return nil, mapNewsError(err)
	}

	s.metrics.IncNewsUpdated()
	s.invalidateHomepage(ctx, wasPublished || news.Published)
	return news, nil
}

// DeleteNews removes an item p may manage.
func (s *NewsService) DeleteNews(ctx context.Context, p *model.Principal, id string) error {
	if err := s.verifier.RequireAuthor(ctx, p, id); err != nil {
		return err
	}
	if err := s.news.DeleteNews(ctx, id); err != nil {
		return mapNewsError(err)
	}

	s.metrics.IncNewsDeleted(1)
	s.invalidateHomepage(ctx, true)
	return nil
}

// ListNews lists items for the admin area. Admins see every item, other
// principals only their own.
func (s *NewsService) ListNews(ctx context.Context, p *model.Principal, q NewsQuery) (model.Page[*model.News], error) {
	if p == nil {
		return model.Page[*model.News]{}, access.ErrAccessDenied
	}
	filter := repository.NewsFilter{TermID: q.TermID, Query: q.Query}
	if !p.IsAdmin() {
		filter.AuthorID = p.UserID
	}
	return s.list(ctx, filter, q)
}

// ListPublished lists visible items, newest first.
func (s *NewsService) ListPublished(ctx context.Context, q NewsQuery) (model.Page[*model.News], error) {
	return s.list(ctx, repository.NewsFilter{OnlyVisible: true, TermID: q.TermID}, q)
}

// SearchPublished lists visible items whose title, teaser or body match q.Query.
func (s *NewsService) SearchPublished(ctx context.Context, q NewsQuery) (model.Page[*model.News], error) {
	if strings.TrimSpace(q.Query) == "" {
		return model.Page[*model.News]{}, invalid("query is required")
	}
	return s.list(ctx, repository.NewsFilter{OnlyVisible: true, Query: q.Query}, q)
}

// GetPublished returns a visible item. Unpublished and scheduled items are
// reported as not found.
func (s *NewsService) GetPublished(ctx context.Context, id string) (*model.News, error) {
	news, err := s.getNews(ctx, id)
	if err != nil {
		return nil, err
	}
	if !news.Published || news.PublicationDate.After(s.now()) {
		return nil, ErrNotFound
	}
	return news, nil
}

// Bulk applies a delete or unpublish action to every matching item. Only
// admins may run it and the request must be confirmed.
func (s *NewsService) Bulk(ctx context.Context, input BulkInput) (int64, error) {
	return access.Guarded(ctx, access.Role(model.RoleAdmin), func(ctx context.Context) (int64, error) {
		if !input.Action.IsValid() {
			return 0, invalid("unknown action %q", input.Action)
		}
		sel, err := selectorFor(input)
		if err != nil {
			return 0, err
		}
		if !input.Confirmed {
			return 0, ErrBulkNotConfirmed
		}

		var n int64
		switch input.Action {
		case model.BulkActionDelete:
			n, err = s.news.BulkDeleteNews(ctx, sel)
			if err == nil {
				s.metrics.IncNewsDeleted(int(n))
			}
		case model.BulkActionUnpublish:
			n, err = s.news.BulkUnpublishNews(ctx, sel)
		}
		if err != nil {
			return 0, err
		}

		s.logger.InfoContext(ctx, "bulk news action",
			slog.String("action", string(input.Action)),
			slog.String("filter", string(input.Filter)),
			slog.Int64("affected", n),
		)
		if n > 0 {
			s.invalidateHomepage(ctx, true)
		}
		return n, nil
	})
}

func (s *NewsService) list(ctx context.Context, filter repository.NewsFilter, q NewsQuery) (model.Page[*model.News], error) {
	page, size := normalizePage(q.Page, q.Size)
	items, total, err := s.news.ListNews(ctx, filter, page, size)
	if err != nil {
		return model.Page[*model.News]{}, err
	}
	return model.NewPage(items, page, size, total), nil
}

func (s *NewsService) getNews(ctx context.Context, id string) (*model.News, error) {
	news, err := s.news.GetNewsByID(ctx, id)
	if err != nil {
		return nil, mapNewsError(err)
	}
	return news, nil
}

func (s *NewsService) resolveTerms(ctx context.Context, ids []string) ([]*model.Term, error) {
	ids = uniqueStrings(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	terms, err := s.terms.GetTermsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(terms) != len(ids) {
		return nil, invalid("unknown term id")
	}
	return terms, nil
}

func (s *NewsService) invalidateHomepage(ctx context.Context, affectsPublic bool) {
	if !affectsPublic {
		return
	}
	if err := s.homepage.InvalidateHomepage(ctx); err != nil {
		s.logger.WarnContext(ctx, "homepage cache invalidation failed", slog.String("error", err.Error()))
	}
}

func applyNewsInput(news *model.News, input NewsInput, terms []*model.Term) {
	news.Title = strings.TrimSpace(input.Title)
	news.Body = input.Body
	news.Teaser = strings.TrimSpace(input.Teaser)
	news.Published = input.Published
	if input.PublicationDate != nil {
		news.PublicationDate = input.PublicationDate.UTC()
	}
	for _, t := range terms {
		news.AddTerm(t)
	}
}

func validateNews(input NewsInput) error {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return invalid("title is required")
	}
	if utf8.RuneCountInString(title) > model.MaxNewsTitleLength {
		return invalid("title must be at most %d characters", model.MaxNewsTitleLength)
	}
	if utf8.RuneCountInString(strings.TrimSpace(input.Teaser)) > model.MaxNewsTeaserLength {
		return invalid("teaser must be at most %d characters", model.MaxNewsTeaserLength)
	}
	return nil
}

func selectorFor(input BulkInput) (model.NewsSelector, error) {
	sel := model.NewsSelector{Filter: input.Filter}
	switch input.Filter {
	case model.BulkFilterByIDs:
		sel.IDs = uniqueStrings(input.IDs)
		if len(sel.IDs) == 0 {
			return sel, invalid("ids are required for BY_IDS")
		}
	case model.BulkFilterByTerm:
		if input.TermID == "" {
			return sel, invalid("term_id is required for BY_TERM")
		}
		sel.TermID = input.TermID
	case model.BulkFilterByAuthor:
		if input.AuthorID == "" {
			return sel, invalid("author_id is required for BY_AUTHOR")
		}
		sel.AuthorID = input.AuthorID
	case model.BulkFilterAll:
	default:
		return sel, invalid("unknown filter %q", input.Filter)
	}
	return sel, nil
}

func normalizePage(page, size int) (int, int) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

func mapNewsError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNewsNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrStaleVersion):
		return ErrStaleVersion
	default:
		return err
	}
}
