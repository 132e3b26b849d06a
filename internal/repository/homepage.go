package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/phoebe/phoebe/internal/model"
)

// ErrBlockNotFound is returned when a homepage block does not exist.
var ErrBlockNotFound = errors.New("homepage block not found")

const blockColumns = `id, weight, block_type, news_count, show_teaser, title_font_size, content, created_at, updated_at`

// CreateBlock inserts a homepage block and its term links.
func (r *Repository) CreateBlock(ctx context.Context, b *model.HomePageBlock) error {
	query := `
		INSERT INTO home_page_blocks (` + blockColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	return r.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, query,
			b.ID, b.Weight, string(b.BlockType), b.NewsCount, b.ShowTeaser,
			b.TitleFontSize, b.Content, b.CreatedAt, b.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create block: %w", err)
		}
		return replaceBlockTerms(ctx, tx, b)
	})
}

// GetBlockByID retrieves a homepage block.
func (r *Repository) GetBlockByID(ctx context.Context, id string) (*model.HomePageBlock, error) {
	b, err := scanBlock(r.pool.QueryRow(ctx, `SELECT `+blockColumns+` FROM home_page_blocks WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBlockNotFound
		}
		return nil, fmt.Errorf("failed to get block: %w", err)
	}
	if err := loadBlockTerms(ctx, r.pool, []*model.HomePageBlock{b}); err != nil {
		return nil, err
	}
	return b, nil
}

// ListBlocks returns all blocks ordered by ascending weight.
func (r *Repository) ListBlocks(ctx context.Context) ([]*model.HomePageBlock, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+blockColumns+` FROM home_page_blocks ORDER BY weight, created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list blocks: %w", err)
	}
	defer rows.Close()

	var blocks []*model.HomePageBlock
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan block: %w", err)
		}
		blocks = append(blocks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate blocks: %w", err)
	}

	if err := loadBlockTerms(ctx, r.pool, blocks); err != nil {
		return nil, err
	}
	return blocks, nil
}

// UpdateBlock writes all block columns and replaces its term links.
func (r *Repository) UpdateBlock(ctx context.Context, b *model.HomePageBlock) error {
	query := `
		UPDATE home_page_blocks
		SET weight = $2, block_type = $3, news_count = $4, show_teaser = $5,
			title_font_size = $6, content = $7, updated_at = $8
		WHERE id = $1
	`
	return r.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, query,
			b.ID, b.Weight, string(b.BlockType), b.NewsCount, b.ShowTeaser,
			b.TitleFontSize, b.Content, b.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to update block: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrBlockNotFound
		}
		return replaceBlockTerms(ctx, tx, b)
	})
}

// DeleteBlock removes a homepage block.
func (r *Repository) DeleteBlock(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM home_page_blocks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete block: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBlockNotFound
	}
	return nil
}

// GetHomepageSettings returns the stored settings, or the default mode if
// none were saved yet.
func (r *Repository) GetHomepageSettings(ctx context.Context) (*model.HomepageSettings, error) {
	var s model.HomepageSettings
	var mode string
	err := r.pool.QueryRow(ctx, `SELECT mode, updated_at FROM homepage_settings WHERE id = 1`).Scan(&mode, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &model.HomepageSettings{Mode: model.DefaultHomepageMode}, nil
		}
		return nil, fmt.Errorf("failed to get homepage settings: %w", err)
	}
	s.Mode = model.HomepageMode(mode)
	return &s, nil
}

// SaveHomepageSettings upserts the singleton settings row.
func (r *Repository) SaveHomepageSettings(ctx context.Context, s *model.HomepageSettings) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO homepage_settings (id, mode, updated_at) VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET mode = EXCLUDED.mode, updated_at = EXCLUDED.updated_at
	`, string(s.Mode), s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save homepage settings: %w", err)
	}
	return nil
}

func replaceBlockTerms(ctx context.Context, tx pgx.Tx, b *model.HomePageBlock) error {
	if _, err := tx.Exec(ctx, `DELETE FROM home_page_block_terms WHERE block_id = $1`, b.ID); err != nil {
		return fmt.Errorf("failed to clear block terms: %w", err)
	}
	for _, termID := range b.TermIDs {
		_, err := tx.Exec(ctx,
			`INSERT INTO home_page_block_terms (block_id, term_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			b.ID, termID,
		)
		if err != nil {
			return fmt.Errorf("failed to link block term: %w", err)
		}
	}
	return nil
}

func loadBlockTerms(ctx context.Context, q querier, blocks []*model.HomePageBlock) error {
	if len(blocks) == 0 {
		return nil
	}

	byID := make(map[string]*model.HomePageBlock, len(blocks))
	ids := make([]string, 0, len(blocks))
	for _, b := range blocks {
		b.TermIDs = []string{}
		byID[b.ID] = b
		ids = append(ids, b.ID)
	}

	rows, err := q.Query(ctx,
		`SELECT block_id, term_id FROM home_page_block_terms WHERE block_id = ANY($1) ORDER BY term_id`, ids)
	if err != nil {
		return fmt.Errorf("failed to load block terms: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var blockID, termID string
		if err := rows.Scan(&blockID, &termID); err != nil {
			return fmt.Errorf("failed to scan block term: %w", err)
		}
		byID[blockID].TermIDs = append(byID[blockID].TermIDs, termID)
	}
	return rows.Err()
}

func scanBlock(row pgx.Row) (*model.HomePageBlock, error) {
	var b model.HomePageBlock
	var blockType string
	if err := row.Scan(
		&b.ID,
		&b.Weight,
		&blockType,
		&b.NewsCount,
		&b.ShowTeaser,
		&b.TitleFontSize,
		&b.Content,
		&b.CreatedAt,
		&b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	b.BlockType = model.BlockType(blockType)
	return &b, nil
}
