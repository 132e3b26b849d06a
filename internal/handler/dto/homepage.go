package dto

// BlockRequest is the body of homepage block create and update requests.
type BlockRequest struct {
	Weight        int      `json:"weight"`
	BlockType     string   `json:"block_type" validate:"required,oneof=NEWS_BLOCK WIDGET_BLOCK"`
	TermIDs       []string `json:"taxonomy_term_ids" validate:"dive,required"`
	NewsCount     int      `json:"news_count" validate:"min=0,max=50"`
	ShowTeaser    bool     `json:"show_teaser"`
	TitleFontSize string   `json:"title_font_size" validate:"max=20"`
	Content       string   `json:"content"`
}

// ModeRequest is the body of PATCH /api/admin/homepage/mode.
type ModeRequest struct {
	Mode string `json:"mode" validate:"required"`
}
