package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/phoebe/phoebe/internal/auth"
	"github.com/phoebe/phoebe/internal/handler/dto"
	"github.com/phoebe/phoebe/internal/middleware"
	"github.com/phoebe/phoebe/internal/model"
	"github.com/phoebe/phoebe/internal/service"
)

// NewsManager is the news service as seen by the HTTP layer.
type NewsManager interface {
	CreateNews(ctx context.Context, p *model.Principal, input service.NewsInput) (*model.News, error)
	GetNews(ctx context.Context, p *model.Principal, id string) (*model.News, error)
	UpdateNews(ctx context.Context, p *model.Principal, id string, input service.NewsInput) (*model.News, error)
	DeleteNews(ctx context.Context, p *model.Principal, id string) error
	ListNews(ctx context.Context, p *model.Principal, q service.NewsQuery) (model.Page[*model.News], error)
	ListPublished(ctx context.Context, q service.NewsQuery) (model.Page[*model.News], error)
	SearchPublished(ctx context.Context, q service.NewsQuery) (model.Page[*model.News], error)
	GetPublished(ctx context.Context, id string) (*model.News, error)
	Bulk(ctx context.Context, input service.BulkInput) (int64, error)
}

// NewsHandler handles admin and public news endpoints.
type NewsHandler struct {
	svc    NewsManager
	logger *slog.Logger
}

// NewNewsHandler creates a new NewsHandler.
func NewNewsHandler(svc NewsManager, logger *slog.Logger) *NewsHandler {
	return &NewsHandler{svc: svc, logger: logger}
}

// List handles GET /api/admin/news.
func (h *NewsHandler) List(w http.ResponseWriter, r *http.Request) {
	q, ok := newsQuery(w, r)
	if !ok {
		return
	}
	page, err := h.svc.ListNews(r.Context(), auth.PrincipalFromContext(r.Context()), q)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToNewsPage(page))
}

// Get handles GET /api/admin/news/{id}.
func (h *NewsHandler) Get(w http.ResponseWriter, r *http.Request) {
	news, err := h.svc.GetNews(r.Context(), auth.PrincipalFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToNewsResponse(news))
}

// Create handles POST /api/admin/news.
func (h *NewsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.NewsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p := auth.PrincipalFromContext(r.Context())
	news, err := h.svc.CreateNews(r.Context(), p, newsInput(req))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	h.logger.Info("news_created",
		"news_id", news.ID,
		"author_id", news.AuthorID,
		"published", news.Published,
	)
	writeJSON(w, http.StatusCreated, dto.ToNewsResponse(news))
}

// Update handles PUT /api/admin/news/{id}.
func (h *NewsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.NewsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p := auth.PrincipalFromContext(r.Context())
	news, err := h.svc.UpdateNews(r.Context(), p, chi.URLParam(r, "id"), newsInput(req))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	h.logger.Info("news_updated", "news_id", news.ID, "version", news.Version, "user_id", p.UserID)
	writeJSON(w, http.StatusOK, dto.ToNewsResponse(news))
}

// Delete handles DELETE /api/admin/news/{id}.
func (h *NewsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p := auth.PrincipalFromContext(r.Context())
	if err := h.svc.DeleteNews(r.Context(), p, id); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	h.logger.Info("news_deleted", "news_id", id, "user_id", p.UserID)
	w.WriteHeader(http.StatusNoContent)
}

// Bulk handles POST /api/admin/news/bulk.
func (h *NewsHandler) Bulk(w http.ResponseWriter, r *http.Request) {
	var req dto.BulkRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	n, err := h.svc.Bulk(r.Context(), service.BulkInput{
		Action:    model.BulkAction(req.Action),
		Filter:    model.BulkFilterType(req.Filter),
		IDs:       req.IDs,
		TermID:    req.TermID,
		AuthorID:  req.AuthorID,
		Confirmed: req.Confirmed,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.BulkResponse{AffectedCount: n})
}

// PublicList handles GET /api/public/news.
func (h *NewsHandler) PublicList(w http.ResponseWriter, r *http.Request) {
	q, ok := newsQuery(w, r)
	if !ok {
		return
	}
	q.Query = ""
	h.writePublicPage(w, r, q, h.svc.ListPublished)
}

// PublicByTerm handles GET /api/public/news/term/{termId}.
func (h *NewsHandler) PublicByTerm(w http.ResponseWriter, r *http.Request) {
	q, ok := newsQuery(w, r)
	if !ok {
		return
	}
	q.TermID = chi.URLParam(r, "termId")
	q.Query = ""
	h.writePublicPage(w, r, q, h.svc.ListPublished)
}

// PublicSearch handles GET /api/public/news/search?q=.
func (h *NewsHandler) PublicSearch(w http.ResponseWriter, r *http.Request) {
	q, ok := newsQuery(w, r)
	if !ok {
		return
	}
	q.TermID = ""
	h.writePublicPage(w, r, q, h.svc.SearchPublished)
}

// PublicGet handles GET /api/public/news/{id}.
func (h *NewsHandler) PublicGet(w http.ResponseWriter, r *http.Request) {
	news, err := h.svc.GetPublished(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToNewsResponse(news))
}

func (h *NewsHandler) writePublicPage(w http.ResponseWriter, r *http.Request, q service.NewsQuery,
	list func(context.Context, service.NewsQuery) (model.Page[*model.News], error)) {
	page, err := list(r.Context(), q)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToNewsPage(page))
}

func newsQuery(w http.ResponseWriter, r *http.Request) (service.NewsQuery, bool) {
	page, size, err := pageParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, middleware.CodeValidationFailed, err.Error())
		return service.NewsQuery{}, false
	}
	return service.NewsQuery{
		Page:   page,
		Size:   size,
		TermID: r.URL.Query().Get("term_id"),
		Query:  r.URL.Query().Get("q"),
	}, true
}

func newsInput(req dto.NewsRequest) service.NewsInput {
	return service.NewsInput{
		Title:           req.Title,
		Body:            req.Body,
		Teaser:          req.Teaser,
		PublicationDate: req.PublicationDate,
		Published:       req.Published,
		TermIDs:         req.TermIDs,
		Version:         req.Version,
	}
}
