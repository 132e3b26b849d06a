package model

import (
	"strings"
	"time"
)

// BlockType distinguishes homepage block kinds.
type BlockType string

const (
	BlockTypeNews   BlockType = "NEWS_BLOCK"
	BlockTypeWidget BlockType = "WIDGET_BLOCK"
)

// IsValid reports whether b is a known block type.
func (b BlockType) IsValid() bool {
	return b == BlockTypeNews || b == BlockTypeWidget
}

// HomepageMode selects how the public homepage is assembled.
type HomepageMode string

const (
	HomepageModeSimple HomepageMode = "SIMPLE"
	HomepageModeBlocks HomepageMode = "BLOCKS"
)

// DefaultHomepageMode is used until an administrator picks one.
const DefaultHomepageMode = HomepageModeSimple

// ParseHomepageMode accepts a mode name in any case.
func ParseHomepageMode(s string) (HomepageMode, bool) {
	m := HomepageMode(strings.ToUpper(strings.TrimSpace(s)))
	return m, m == HomepageModeSimple || m == HomepageModeBlocks
}

// HomePageBlock is one weighted section of the BLOCKS homepage.
type HomePageBlock struct {
	ID            string    `json:"id"`
	Weight        int       `json:"weight"`
	BlockType     BlockType `json:"block_type"`
	TermIDs       []string  `json:"taxonomy_term_ids"`
	NewsCount     int       `json:"news_count"`
	ShowTeaser    bool      `json:"show_teaser"`
	TitleFontSize string    `json:"title_font_size,omitempty"`
	Content       string    `json:"content,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// HomepageSettings holds the singleton homepage configuration.
type HomepageSettings struct {
	Mode      HomepageMode `json:"mode"`
	UpdatedAt time.Time    `json:"updated_at"`
}
