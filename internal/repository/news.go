package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/phoebe/phoebe/internal/model"
)

// Common errors for news repository operations.
var (
	ErrNewsNotFound = errors.New("news not found")
	ErrStaleVersion = errors.New("news was modified concurrently")
)

// NewsFilter narrows news listings. Zero values are ignored.
type NewsFilter struct {
	AuthorID  string
	TermID    string
	Query     string
	Published *bool
	// OnlyVisible keeps published items whose publication date has passed.
	OnlyVisible bool
}

const newsSelect = `
	SELECT c.id, c.title, c.body, c.teaser, c.publication_date, c.published,
		c.author_id, COALESCE(u.username, ''), c.created_at, c.updated_at, c.version
	FROM content c
	LEFT JOIN users u ON u.id = c.author_id
`

// CreateNews inserts a news item and its term links.
func (r *Repository) CreateNews(ctx context.Context, news *model.News) error {
	query := `
		INSERT INTO content (id, title, body, teaser, publication_date, published, author_id, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	return r.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, query,
			news.ID,
			news.Title,
			news.Body,
			news.Teaser,
			news.PublicationDate,
			news.Published,
			news.AuthorID,
			news.Version,
			news.CreatedAt,
			news.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create news: %w", err)
		}
		return replaceNewsTerms(ctx, tx, news)
	})
}

// GetNewsByID retrieves a news item with author username and terms.
func (r *Repository) GetNewsByID(ctx context.Context, id string) (*model.News, error) {
	news, err := scanNews(r.pool.QueryRow(ctx, newsSelect+` WHERE c.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNewsNotFound
		}
		return nil, fmt.Errorf("failed to get news: %w", err)
	}

	if err := loadNewsTerms(ctx, r.pool, []*model.News{news}); err != nil {
		return nil, err
	}
	return news, nil
}

// UpdateNews writes the item if its stored version still equals
// news.Version, then increments news.Version.
func (r *Repository) UpdateNews(ctx context.Context, news *model.News) error {
	query := `
		UPDATE content
		SET title = $3, body = $4, teaser = $5, publication_date = $6,
			published = $7, author_id = $8, updated_at = $9, version = version + 1
		WHERE id = $1 AND version = $2
		RETURNING version
	`

	return r.withTx(ctx, func(tx pgx.Tx) error {
		var version int64
		err := tx.QueryRow(ctx, query,
			news.ID,
			news.Version,
			news.Title,
			news.Body,
			news.Teaser,
			news.PublicationDate,
			news.Published,
			news.AuthorID,
			news.UpdatedAt,
		).Scan(&version)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				var exists bool
				if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM content WHERE id = $1)`, news.ID).Scan(&exists); err != nil {
					return fmt.Errorf("failed to check news: %w", err)
				}
				if !exists {
					return ErrNewsNotFound
				}
				return ErrStaleVersion
			}
			return fmt.Errorf("failed to update news: %w", err)
		}

		if err := replaceNewsTerms(ctx, tx, news); err != nil {
			return err
		}
		news.Version = version
		return nil
	})
}

// DeleteNews removes a news item.
func (r *Repository) DeleteNews(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM content WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete news: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNewsNotFound
	}
	return nil
}

// ListNews returns one page of news matching filter, newest first, and the
// total number of matches.
func (r *Repository) ListNews(ctx context.Context, filter NewsFilter, page, size int) ([]*model.News, int64, error) {
	where, args := filter.clause()
	limit, offset := pageBounds(page, size)

	var total int64
	countQuery := `SELECT COUNT(*) FROM content c` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count news: %w", err)
	}

	query := fmt.Sprintf("%s%s ORDER BY c.publication_date DESC, c.id LIMIT $%d OFFSET $%d",
		newsSelect, where, len(args)+1, len(args)+2)
	items, err := r.queryNews(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListPublishedByTerms returns up to limit published items tagged with any
// of termIDs. An empty termIDs matches every published item.
func (r *Repository) ListPublishedByTerms(ctx context.Context, termIDs []string, limit int) ([]*model.News, error) {
	if limit <= 0 {
		return nil, nil
	}
	if len(termIDs) == 0 {
		return r.queryNews(ctx, newsSelect+`
			WHERE c.published AND c.publication_date <= NOW()
			ORDER BY c.publication_date DESC, c.id
			LIMIT $1`, limit)
	}
	return r.queryNews(ctx, newsSelect+`
		WHERE c.published AND c.publication_date <= NOW()
			AND EXISTS (SELECT 1 FROM content_terms ct WHERE ct.content_id = c.id AND ct.term_id = ANY($1))
		ORDER BY c.publication_date DESC, c.id
		LIMIT $2`, termIDs, limit)
}

// BulkDeleteNews deletes every item matching sel and returns the count.
func (r *Repository) BulkDeleteNews(ctx context.Context, sel model.NewsSelector) (int64, error) {
	where, args, err := selectorClause(sel)
	if err != nil {
		return 0, err
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM content c`+where, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk delete news: %w", err)
	}
	return tag.RowsAffected(), nil
}

// BulkUnpublishNews unpublishes every published item matching sel.
func (r *Repository) BulkUnpublishNews(ctx context.Context, sel model.NewsSelector) (int64, error) {
	where, args, err := selectorClause(sel)
	if err != nil {
		return 0, err
	}
	if where == "" {
		where = " WHERE c.published"
	} else {
		where += " AND c.published"
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE content c SET published = FALSE, version = version + 1, updated_at = NOW()`+where, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk unpublish news: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *Repository) queryNews(ctx context.Context, query string, args ...any) ([]*model.News, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query news: %w", err)
	}
	defer rows.Close()

	var items []*model.News
	for rows.Next() {
		n, err := scanNews(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan news: %w", err)
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate news: %w", err)
	}

	if err := loadNewsTerms(ctx, r.pool, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (f NewsFilter) clause() (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.AuthorID != "" {
		add("c.author_id = $%d", f.AuthorID)
	}
	if f.TermID != "" {
		add("EXISTS (SELECT 1 FROM content_terms ct WHERE ct.content_id = c.id AND ct.term_id = $%d)", f.TermID)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		add("(c.title ILIKE $%[1]d OR c.teaser ILIKE $%[1]d OR c.body ILIKE $%[1]d)", "%"+escapeLike(q)+"%")
	}
	if f.Published != nil {
		add("c.published = $%d", *f.Published)
	}
	if f.OnlyVisible {
		conds = append(conds, "c.published AND c.publication_date <= NOW()")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func selectorClause(sel model.NewsSelector) (string, []any, error) {
	switch sel.Filter {
	case model.BulkFilterByIDs:
		return " WHERE c.id = ANY($1)", []any{sel.IDs}, nil
	case model.BulkFilterByTerm:
		return " WHERE EXISTS (SELECT 1 FROM content_terms ct WHERE ct.content_id = c.id AND ct.term_id = $1)", []any{sel.TermID}, nil
	case model.BulkFilterByAuthor:
		return " WHERE c.author_id = $1", []any{sel.AuthorID}, nil
	case model.BulkFilterAll:
		return "", nil, nil
	default:
		return "", nil, fmt.Errorf("unknown bulk filter %q", sel.Filter)
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func replaceNewsTerms(ctx context.Context, tx pgx.Tx, news *model.News) error {
	if _, err := tx.Exec(ctx, `DELETE FROM content_terms WHERE content_id = $1`, news.ID); err != nil {
		return fmt.Errorf("failed to clear news terms: %w", err)
	}
	for _, id := range news.TermIDs() {
		_, err := tx.Exec(ctx,
			`INSERT INTO content_terms (content_id, term_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			news.ID, id,
		)
		if err != nil {
			return fmt.Errorf("failed to link news term: %w", err)
		}
	}
	return nil
}

func loadNewsTerms(ctx context.Context, q querier, items []*model.News) error {
	if len(items) == 0 {
		return nil
	}

	byID := make(map[string]*model.News, len(items))
	ids := make([]string, 0, len(items))
	for _, n := range items {
		n.Terms = []*model.Term{}
		byID[n.ID] = n
		ids = append(ids, n.ID)
	}

	rows, err := q.Query(ctx, `
		SELECT ct.content_id, t.id, t.name, t.vocabulary
		FROM content_terms ct
		JOIN terms t ON t.id = ct.term_id
		WHERE ct.content_id = ANY($1)
		ORDER BY t.vocabulary, t.name
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to load news terms: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var contentID string
		var t model.Term
		if err := rows.Scan(&contentID, &t.ID, &t.Name, &t.Vocabulary); err != nil {
			return fmt.Errorf("failed to scan news term: %w", err)
		}
		byID[contentID].AddTerm(&t)
	}
	return rows.Err()
}

func scanNews(row pgx.Row) (*model.News, error) {
	var n model.News
	if err := row.Scan(
		&n.ID,
		&n.Title,
		&n.Body,
		&n.Teaser,
		&n.PublicationDate,
		&n.Published,
		&n.AuthorID,
		&n.AuthorUsername,
		&n.CreatedAt,
		&n.UpdatedAt,
		&n.Version,
	); err != nil {
		return nil, err
	}
	return &n, nil
}
