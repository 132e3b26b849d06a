package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/phoebe/phoebe/internal/handler/dto"
	"github.com/phoebe/phoebe/internal/model"
	"github.com/phoebe/phoebe/internal/service"
)

// HomepageManager is the homepage service as seen by the HTTP layer.
type HomepageManager interface {
	CreateBlock(ctx context.Context, input service.BlockInput) (*model.HomePageBlock, error)
	GetBlock(ctx context.Context, id string) (*model.HomePageBlock, error)
	ListBlocks(ctx context.Context) ([]*model.HomePageBlock, error)
	UpdateBlock(ctx context.Context, id string, input service.BlockInput) (*model.HomePageBlock, error)
	DeleteBlock(ctx context.Context, id string) error
	GetMode(ctx context.Context) (*model.HomepageSettings, error)
	SetMode(ctx context.Context, mode string) (*model.HomepageSettings, error)
	Build(ctx context.Context) ([]byte, error)
}

// HomepageHandler handles homepage block, mode and public homepage endpoints.
type HomepageHandler struct {
	svc    HomepageManager
	logger *slog.Logger
}

// NewHomepageHandler creates a new HomepageHandler.
func NewHomepageHandler(svc HomepageManager, logger *slog.Logger) *HomepageHandler {
	return &HomepageHandler{svc: svc, logger: logger}
}

// ListBlocks handles GET /api/admin/homepage-blocks.
func (h *HomepageHandler) ListBlocks(w http.ResponseWriter, r *http.Request) {
	blocks, err := h.svc.ListBlocks(r.Context())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	if blocks == nil {
		blocks = []*model.HomePageBlock{}
	}
	writeJSON(w, http.StatusOK, blocks)
}

// GetBlock handles GET /api/admin/homepage-blocks/{id}.
func (h *HomepageHandler) GetBlock(w http.ResponseWriter, r *http.Request) {
	block, err := h.svc.GetBlock(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, block)
}

// CreateBlock handles POST /api/admin/homepage-blocks.
func (h *HomepageHandler) CreateBlock(w http.ResponseWriter, r *http.Request) {
	var req dto.BlockRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	block, err := h.svc.CreateBlock(r.Context(), blockInput(req))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	h.logger.Info("homepage_block_created", "block_id", block.ID, "block_type", block.BlockType)
	writeJSON(w, http.StatusCreated, block)
}

// UpdateBlock handles PUT /api/admin/homepage-blocks/{id}.
func (h *HomepageHandler) UpdateBlock(w http.ResponseWriter, r *http.Request) {
	var req dto.BlockRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	block, err := h.svc.UpdateBlock(r.Context(), chi.URLParam(r, "id"), blockInput(req))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, block)
}

// DeleteBlock handles DELETE /api/admin/homepage-blocks/{id}.
func (h *HomepageHandler) DeleteBlock(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteBlock(r.Context(), id); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	h.logger.Info("homepage_block_deleted", "block_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// GetMode handles GET /api/public/homepage/mode.
func (h *HomepageHandler) GetMode(w http.ResponseWriter, r *http.Request) {
	settings, err := h.svc.GetMode(r.Context())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// SetMode handles PATCH /api/admin/homepage/mode.
func (h *HomepageHandler) SetMode(w http.ResponseWriter, r *http.Request) {
	var req dto.ModeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	settings, err := h.svc.SetMode(r.Context(), req.Mode)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	h.logger.Info("homepage_mode_changed", "mode", settings.Mode)
	writeJSON(w, http.StatusOK, settings)
}

// Public handles GET /api/public/homepage. The body is served as built,
// which may come straight from the cache.
func (h *HomepageHandler) Public(w http.ResponseWriter, r *http.Request) {
	body, err := h.svc.Build(r.Context())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func blockInput(req dto.BlockRequest) service.BlockInput {
	return service.BlockInput{
		Weight:        req.Weight,
		BlockType:     model.BlockType(req.BlockType),
		TermIDs:       req.TermIDs,
		NewsCount:     req.NewsCount,
		ShowTeaser:    req.ShowTeaser,
		TitleFontSize: req.TitleFontSize,
		Content:       req.Content,
	}
}
