package dto

import "github.com/phoebe/phoebe/internal/model"

// ChannelSettingsRequest is the body of PUT /api/admin/channel-settings.
type ChannelSettingsRequest struct {
	SiteTitle       string   `json:"site_title" validate:"required,max=255"`
	MetaDescription string   `json:"meta_description" validate:"max=500"`
	MetaKeywords    string   `json:"meta_keywords" validate:"max=500"`
	SiteURL         string   `json:"site_url" validate:"omitempty,http_url"`
	LogoURL         string   `json:"logo_url" validate:"omitempty,http_url"`
	HeaderHTML      string   `json:"header_html"`
	FooterHTML      string   `json:"footer_html"`
	MainMenuTermIDs []string `json:"main_menu_term_ids" validate:"dive,required"`
}

// ToModel converts the request into settings.
func (r ChannelSettingsRequest) ToModel() model.ChannelSettings {
	return model.ChannelSettings{
		SiteTitle:       r.SiteTitle,
		MetaDescription: r.MetaDescription,
		MetaKeywords:    r.MetaKeywords,
		SiteURL:         r.SiteURL,
		LogoURL:         r.LogoURL,
		HeaderHTML:      r.HeaderHTML,
		FooterHTML:      r.FooterHTML,
		MainMenuTermIDs: r.MainMenuTermIDs,
	}
}
