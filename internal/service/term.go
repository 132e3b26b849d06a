package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/phoebe/phoebe/internal/model"
	"github.com/phoebe/phoebe/internal/repository"
)

// TermService manages taxonomy terms.
type TermService struct {
	terms    TermStore
	homepage HomepageCache
	logger   *slog.Logger
}

// NewTermService creates a new TermService. A nil homepage cache disables
// invalidation.
func NewTermService(terms TermStore, homepage HomepageCache, logger *slog.Logger) *TermService {
	if homepage == nil {
		homepage = noopHomepageCache{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TermService{terms: terms, homepage: homepage, logger: logger}
}

// CreateTerm stores a new term. Names are unique per vocabulary.
func (s *TermService) CreateTerm(ctx context.Context, name, vocabulary string) (*model.Term, error) {
	term := model.NewTerm(name, vocabulary)
	if err := validateTerm(term); err != nil {
		return nil, err
	}
	term.ID = newID()

	if err := s.terms.CreateTerm(ctx, term); err != nil {
		return nil, mapTermError(err)
	}
	return term, nil
}

// GetTerm retrieves a term by ID.
func (s *TermService) GetTerm(ctx context.Context, id string) (*model.Term, error) {
	term, err := s.terms.GetTermByID(ctx, id)
	if err != nil {
		return nil, mapTermError(err)
	}
	return term, nil
}

// ListTerms returns terms, optionally restricted to one vocabulary.
func (s *TermService) ListTerms(ctx context.Context, vocabulary string) ([]*model.Term, error) {
	return s.terms.ListTerms(ctx, model.NewTerm("", vocabulary).Vocabulary)
}

// UpdateTerm renames a term or moves it to another vocabulary.
func (s *TermService) UpdateTerm(ctx context.Context, id, name, vocabulary string) (*model.Term, error) {
	term, err := s.terms.GetTermByID(ctx, id)
	if err != nil {
		return nil, mapTermError(err)
	}
	term.SetName(name)
	term.SetVocabulary(vocabulary)
	if err := validateTerm(term); err != nil {
		return nil, err
	}

	if err := s.terms.UpdateTerm(ctx, term); err != nil {
		return nil, mapTermError(err)
	}
	s.invalidateHomepage(ctx)
	return term, nil
}

// DeleteTerm removes a term and its links to news and blocks.
func (s *TermService) DeleteTerm(ctx context.Context, id string) error {
	if err := s.terms.DeleteTerm(ctx, id); err != nil {
		return mapTermError(err)
	}
	s.invalidateHomepage(ctx)
	return nil
}

func (s *TermService) invalidateHomepage(ctx context.Context) {
	if err := s.homepage.InvalidateHomepage(ctx); err != nil {
		s.logger.WarnContext(ctx, "homepage cache invalidation failed", slog.String("error", err.Error()))
	}
}

func validateTerm(t *model.Term) error {
	if t.Name == "" {
		return invalid("name is required")
	}
	if len(t.Name) > 255 {
		return invalid("name must be at most 255 characters")
	}
	if t.Vocabulary == "" {
		return invalid("vocabulary is required")
	}
	if len(t.Vocabulary) > 100 {
		return invalid("vocabulary must be at most 100 characters")
	}
	return nil
}

func mapTermError(err error) error {
	switch {
	case errors.Is(err, repository.ErrTermNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrTermExists):
		return conflict("term already exists in vocabulary")
	default:
		return err
	}
}
