package service

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/phoebe/phoebe/internal/model"
	"github.com/phoebe/phoebe/internal/repository"
)

// ChannelSettingsService manages the site-wide channel settings.
type ChannelSettingsService struct {
	store  ChannelStore
	terms  TermStore
	logger *slog.Logger
}

// NewChannelSettingsService creates a new ChannelSettingsService.
func NewChannelSettingsService(store ChannelStore, terms TermStore, logger *slog.Logger) *ChannelSettingsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChannelSettingsService{store: store, terms: terms, logger: logger}
}

// Get returns the settings, creating the defaults on first use.
func (s *ChannelSettingsService) Get(ctx context.Context) (*model.ChannelSettings, error) {
	settings, err := s.store.GetChannelSettings(ctx)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, repository.ErrChannelSettingsNotFound) {
		return nil, err
	}

	settings = model.DefaultChannelSettings()
	settings.UpdatedAt = time.Now().UTC()
	if err := s.store.SaveChannelSettings(ctx, settings); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "channel settings initialized")
	return settings, nil
}

// Update replaces the settings.
func (s *ChannelSettingsService) Update(ctx context.Context, in model.ChannelSettings) (*model.ChannelSettings, error) {
	in.SiteTitle = strings.TrimSpace(in.SiteTitle)
	if in.SiteTitle == "" {
		return nil, invalid("site_title is required")
	}
	if utf8.RuneCountInString(in.SiteTitle) > model.MaxSiteTitleLength {
		return nil, invalid("site_title must be at most %d characters", model.MaxSiteTitleLength)
	}
	for field, raw := range map[string]string{"site_url": in.SiteURL, "logo_url": in.LogoURL} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, invalid("%s must be an absolute http(s) URL", field)
		}
	}

	in.MainMenuTermIDs = uniqueStrings(in.MainMenuTermIDs)
	if len(in.MainMenuTermIDs) > 0 {
		terms, err := s.terms.GetTermsByIDs(ctx, in.MainMenuTermIDs)
		if err != nil {
			return nil, err
		}
		if len(terms) != len(in.MainMenuTermIDs) {
			return nil, invalid("unknown term id in main_menu_term_ids")
		}
	}
	in.UpdatedAt = time.Now().UTC()

	if err := s.store.SaveChannelSettings(ctx, &in); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "channel settings updated")
	return &in, nil
}
