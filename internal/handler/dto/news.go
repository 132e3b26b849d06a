package dto

import (
	"time"

	"github.com/phoebe/phoebe/internal/model"
)

// NewsRequest is the body of news create and update requests. Version is
// required to match the stored version on update.
type NewsRequest struct {
	Title           string     `json:"title" validate:"required,max=50"`
	Body            string     `json:"body"`
	Teaser          string     `json:"teaser" validate:"max=250"`
	PublicationDate *time.Time `json:"publication_date"`
	Published       bool       `json:"published"`
	TermIDs         []string   `json:"taxonomy_term_ids" validate:"dive,required"`
	Version         int64      `json:"version" validate:"min=0"`
}

// BulkRequest is the body of POST /api/admin/news/bulk.
type BulkRequest struct {
	Action    string   `json:"action" validate:"required,oneof=DELETE UNPUBLISH"`
	Filter    string   `json:"filter_type" validate:"required,oneof=BY_IDS BY_TERM BY_AUTHOR ALL"`
	IDs       []string `json:"ids" validate:"dive,required"`
	TermID    string   `json:"term_id"`
	AuthorID  string   `json:"author_id"`
	Confirmed bool     `json:"confirmed"`
}

// BulkResponse reports how many items a bulk action touched.
type BulkResponse struct {
	AffectedCount int64 `json:"affected_count"`
}

// NewsResponse describes a news item.
type NewsResponse struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	Body            string         `json:"body"`
	Teaser          string         `json:"teaser"`
	PublicationDate time.Time      `json:"publication_date"`
	Published       bool           `json:"published"`
	AuthorID        string         `json:"author_id"`
	AuthorUsername  string         `json:"author_username,omitempty"`
	Terms           []TermResponse `json:"terms"`
	Version         int64          `json:"version"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// ToNewsResponse converts a news item.
func ToNewsResponse(n *model.News) NewsResponse {
	return NewsResponse{
		ID:              n.ID,
		Title:           n.Title,
		Body:            n.Body,
		Teaser:          n.Teaser,
		PublicationDate: n.PublicationDate,
		Published:       n.Published,
		AuthorID:        n.AuthorID,
		AuthorUsername:  n.AuthorUsername,
		Terms:           ToTermResponses(n.Terms),
		Version:         n.Version,
		CreatedAt:       n.CreatedAt,
		UpdatedAt:       n.UpdatedAt,
	}
}

// ToNewsPage converts a page of news items.
func ToNewsPage(p model.Page[*model.News]) model.Page[NewsResponse] {
	items := make([]NewsResponse, len(p.Items))
	for i, n := range p.Items {
		items[i] = ToNewsResponse(n)
	}
	return model.NewPage(items, p.Page, p.Size, p.TotalItems)
}
