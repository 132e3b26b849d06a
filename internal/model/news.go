package model

import "time"

// News field limits.
const (
	MaxNewsTitleLength  = 50
	MaxNewsTeaserLength = 250
)

// News is a content item owned by exactly one author.
type News struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Body            string    `json:"body"`
	Teaser          string    `json:"teaser"`
	PublicationDate time.Time `json:"publication_date"`
	Published       bool      `json:"published"`
	AuthorID        string    `json:"author_id"`
	AuthorUsername  string    `json:"author_username,omitempty"`
	Terms           []*Term   `json:"terms"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Version         int64     `json:"version"`
}

// Equal compares by identifier. Unsaved items only equal themselves.
func (n *News) Equal(other *News) bool {
	if n == other {
		return true
	}
	if n == nil || other == nil {
		return false
	}
	return n.ID != "" && n.ID == other.ID
}

// AddTerm attaches t unless nil or already present.
func (n *News) AddTerm(t *Term) {
	if t == nil {
		return
	}
	for _, existing := range n.Terms {
		if existing.Equal(t) || (existing.ID != "" && existing.ID == t.ID) {
			return
		}
	}
	n.Terms = append(n.Terms, t)
}

// TermIDs returns the identifiers of attached, persisted terms.
func (n *News) TermIDs() []string {
	ids := make([]string, 0, len(n.Terms))
	for _, t := range n.Terms {
		if t != nil && t.ID != "" {
			ids = append(ids, t.ID)
		}
	}
	return ids
}
