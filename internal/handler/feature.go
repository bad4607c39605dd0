package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/yourorg/staffdesk/internal/domain"
	"github.com/yourorg/staffdesk/internal/service"
)

// FeatureHandler handles feature entitlement endpoints
type FeatureHandler struct {
	featureService *service.FeatureService
	actors         *service.ActorResolver
	logger         *slog.Logger
}

// NewFeatureHandler creates a new feature handler
func NewFeatureHandler(featureService *service.FeatureService, actors *service.ActorResolver, logger *slog.Logger) *FeatureHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeatureHandler{
		featureService: featureService,
		actors:         actors,
		logger:         logger,
	}
}

// FeatureResponse is the wire form of an entitlement
type FeatureResponse struct {
	FeatureKey string         `json:"featureKey"`
	IsEnabled  bool           `json:"isEnabled"`
	Settings   map[string]any `json:"settings,omitempty"`
	EnabledAt  *time.Time     `json:"enabledAt,omitempty"`
}

func toFeatureResponse(e *domain.FeatureEntitlement) FeatureResponse {
	return FeatureResponse{
		FeatureKey: e.FeatureKey,
		IsEnabled:  e.IsEnabled,
		Settings:   e.Settings,
		EnabledAt:  e.EnabledAt,
	}
}

// List handles GET /api/businesses/{slug}/features
func (h *FeatureHandler) List(w http.ResponseWriter, r *http.Request) {
	actor := resolveActor(w, r, h.actors, h.logger)
	if actor == nil {
		return
	}
	features, err := h.featureService.List(r.Context(), actor, r.PathValue("slug"))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	out := make([]FeatureResponse, 0, len(features))
	for _, e := range features {
		out = append(out, toFeatureResponse(e))
	}
	writeJSON(w, http.StatusOK, out)
}

// SetFeatureRequest flips one feature for a business
type SetFeatureRequest struct {
	Enabled  bool           `json:"enabled"`
	Settings map[string]any `json:"settings,omitempty"`
}

// Set handles PUT /api/businesses/{slug}/features/{key}
func (h *FeatureHandler) Set(w http.ResponseWriter, r *http.Request) {
	actor := resolveActor(w, r, h.actors, h.logger)
	if actor == nil {
		return
	}
	var req SetFeatureRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	e, err := h.featureService.Set(r.Context(), actor, r.PathValue("slug"), r.PathValue("key"), req.Enabled, req.Settings)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toFeatureResponse(e))
}
