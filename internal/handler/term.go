package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/phoebe/phoebe/internal/handler/dto"
	"github.com/phoebe/phoebe/internal/model"
)

// TermManager is the taxonomy service as seen by the HTTP layer.
type TermManager interface {
	CreateTerm(ctx context.Context, name, vocabulary string) (*model.Term, error)
	GetTerm(ctx context.Context, id string) (*model.Term, error)
	ListTerms(ctx context.Context, vocabulary string) ([]*model.Term, error)
	UpdateTerm(ctx context.Context, id, name, vocabulary string) (*model.Term, error)
	DeleteTerm(ctx context.Context, id string) error
}

// TermHandler handles taxonomy term endpoints.
type TermHandler struct {
	svc    TermManager
	logger *slog.Logger
}

// NewTermHandler creates a new TermHandler.
func NewTermHandler(svc TermManager, logger *slog.Logger) *TermHandler {
	return &TermHandler{svc: svc, logger: logger}
}

// List handles GET /api/admin/terms and GET /api/public/terms.
// The optional vocabulary query parameter narrows the list.
func (h *TermHandler) List(w http.ResponseWriter, r *http.Request) {
	terms, err := h.svc.ListTerms(r.Context(), r.URL.Query().Get("vocabulary"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToTermResponses(terms))
}

// Get handles GET /api/admin/terms/{id}.
func (h *TermHandler) Get(w http.ResponseWriter, r *http.Request) {
	term, err := h.svc.GetTerm(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToTermResponse(term))
}

// Create handles POST /api/admin/terms.
func (h *TermHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.TermRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	term, err := h.svc.CreateTerm(r.Context(), req.Name, req.Vocabulary)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	h.logger.Info("term_created", "term_id", term.ID, "vocabulary", term.Vocabulary)
	writeJSON(w, http.StatusCreated, dto.ToTermResponse(term))
}

// Update handles PUT /api/admin/terms/{id}.
func (h *TermHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.TermRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	term, err := h.svc.UpdateTerm(r.Context(), chi.URLParam(r, "id"), req.Name, req.Vocabulary)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToTermResponse(term))
}

// Delete handles DELETE /api/admin/terms/{id}.
func (h *TermHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteTerm(r.Context(), id); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	h.logger.Info("term_deleted", "term_id", id)
	w.WriteHeader(http.StatusNoContent)
}
