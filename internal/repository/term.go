package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/phoebe/phoebe/internal/model"
)

// Common errors for term repository operations.
var (
	ErrTermNotFound = errors.New("term not found")
	ErrTermExists   = errors.New("term already exists in vocabulary")
)

// CreateTerm inserts a new taxonomy term.
func (r *Repository) CreateTerm(ctx context.Context, term *model.Term) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO terms (id, name, vocabulary) VALUES ($1, $2, $3)`,
		term.ID, term.Name, term.Vocabulary,
	)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return ErrTermExists
		}
		return fmt.Errorf("failed to create term: %w", err)
	}
	return nil
}

// GetTermByID retrieves a term.
func (r *Repository) GetTermByID(ctx context.Context, id string) (*model.Term, error) {
	var t model.Term
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, vocabulary FROM terms WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.Vocabulary)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTermNotFound
		}
		return nil, fmt.Errorf("failed to get term: %w", err)
	}
	return &t, nil
}

// GetTermsByIDs returns the terms among ids that exist.
func (r *Repository) GetTermsByIDs(ctx context.Context, ids []string) ([]*model.Term, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.queryTerms(ctx,
		`SELECT id, name, vocabulary FROM terms WHERE id = ANY($1) ORDER BY vocabulary, name`, ids)
}

// ListTerms returns terms, optionally restricted to one vocabulary.
func (r *Repository) ListTerms(ctx context.Context, vocabulary string) ([]*model.Term, error) {
	if vocabulary == "" {
		return r.queryTerms(ctx, `SELECT id, name, vocabulary FROM terms ORDER BY vocabulary, name`)
	}
	return r.queryTerms(ctx,
		`SELECT id, name, vocabulary FROM terms WHERE vocabulary = $1 ORDER BY name`, vocabulary)
}

// UpdateTerm renames a term or moves it to another vocabulary.
func (r *Repository) UpdateTerm(ctx context.Context, term *model.Term) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE terms SET name = $2, vocabulary = $3 WHERE id = $1`,
		term.ID, term.Name, term.Vocabulary,
	)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return ErrTermExists
		}
		return fmt.Errorf("failed to update term: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTermNotFound
	}
	return nil
}

// DeleteTerm removes a term. News and block links cascade.
func (r *Repository) DeleteTerm(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM terms WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete term: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTermNotFound
	}
	return nil
}

func (r *Repository) queryTerms(ctx context.Context, query string, args ...any) ([]*model.Term, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query terms: %w", err)
	}
	defer rows.Close()

	var terms []*model.Term
	for rows.Next() {
		var t model.Term
		if err := rows.Scan(&t.ID, &t.Name, &t.Vocabulary); err != nil {
			return nil, fmt.Errorf("failed to scan term: %w", err)
		}
		terms = append(terms, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate terms: %w", err)
	}
	return terms, nil
}
