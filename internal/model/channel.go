package model

import "time"

// MaxSiteTitleLength bounds ChannelSettings.SiteTitle.
const MaxSiteTitleLength = 255

// ChannelSettings holds site-wide metadata. There is exactly one row.
type ChannelSettings struct {
	SiteTitle       string    `json:"site_title"`
	MetaDescription string    `json:"meta_description"`
	MetaKeywords    string    `json:"meta_keywords"`
	SiteURL         string    `json:"site_url"`
	LogoURL         string    `json:"logo_url"`
	HeaderHTML      string    `json:"header_html"`
	FooterHTML      string    `json:"footer_html"`
	MainMenuTermIDs []string  `json:"main_menu_term_ids"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DefaultChannelSettings returns the values used when no row exists yet.
func DefaultChannelSettings() *ChannelSettings {
	return &ChannelSettings{
		SiteTitle:       "Phoebe",
		MainMenuTermIDs: []string{},
	}
}
