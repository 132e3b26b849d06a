package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/phoebe/phoebe/internal/model"
)

// ErrChannelSettingsNotFound is returned before settings are first saved.
var ErrChannelSettingsNotFound = errors.New("channel settings not found")

// GetChannelSettings reads the singleton settings row.
func (r *Repository) GetChannelSettings(ctx context.Context) (*model.ChannelSettings, error) {
	var s model.ChannelSettings
	err := r.pool.QueryRow(ctx, `
		SELECT site_title, meta_description, meta_keywords, site_url, logo_url,
			header_html, footer_html, main_menu_term_ids, updated_at
		FROM channel_settings WHERE id = 1
	`).Scan(
		&s.SiteTitle,
		&s.MetaDescription,
		&s.MetaKeywords,
		&s.SiteURL,
		&s.LogoURL,
		&s.HeaderHTML,
		&s.FooterHTML,
		&s.MainMenuTermIDs,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrChannelSettingsNotFound
		}
		return nil, fmt.Errorf("failed to get channel settings: %w", err)
	}
	if s.MainMenuTermIDs == nil {
		s.MainMenuTermIDs = []string{}
	}
	return &s, nil
}

// SaveChannelSettings upserts the singleton settings row.
func (r *Repository) SaveChannelSettings(ctx context.Context, s *model.ChannelSettings) error {
	menu := s.MainMenuTermIDs
	if menu == nil {
		menu = []string{}
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO channel_settings (id, site_title, meta_description, meta_keywords, site_url,
			logo_url, header_html, footer_html, main_menu_term_ids, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			site_title = EXCLUDED.site_title,
			meta_description = EXCLUDED.meta_description,
			meta_keywords = EXCLUDED.meta_keywords,
			site_url = EXCLUDED.site_url,
			logo_url = EXCLUDED.logo_url,
			header_html = EXCLUDED.header_html,
			footer_html = EXCLUDED.footer_html,
			main_menu_term_ids = EXCLUDED.main_menu_term_ids,
			updated_at = EXCLUDED.updated_at
	`,
		s.SiteTitle,
		s.MetaDescription,
		s.MetaKeywords,
		s.SiteURL,
		s.LogoURL,
		s.HeaderHTML,
		s.FooterHTML,
		menu,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save channel settings: %w", err)
	}
	return nil
}
