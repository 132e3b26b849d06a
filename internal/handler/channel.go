package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/phoebe/phoebe/internal/handler/dto"
	"github.com/phoebe/phoebe/internal/model"
)

// ChannelSettingsManager reads and replaces the site-wide settings.
type ChannelSettingsManager interface {
	Get(ctx context.Context) (*model.ChannelSettings, error)
	Update(ctx context.Context, in model.ChannelSettings) (*model.ChannelSettings, error)
}

// ChannelHandler handles channel settings endpoints.
type ChannelHandler struct {
	svc    ChannelSettingsManager
	logger *slog.Logger
}

// NewChannelHandler creates a new ChannelHandler.
func NewChannelHandler(svc ChannelSettingsManager, logger *slog.Logger) *ChannelHandler {
	return &ChannelHandler{svc: svc, logger: logger}
}

// Get handles GET /api/admin/channel-settings and GET /api/public/channel-settings.
func (h *ChannelHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.svc.Get(r.Context())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// Update handles PUT /api/admin/channel-settings.
func (h *ChannelHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.ChannelSettingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	settings, err := h.svc.Update(r.Context(), req.ToModel())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	h.logger.Info("channel_settings_updated", "site_title", settings.SiteTitle)
	writeJSON(w, http.StatusOK, settings)
}
