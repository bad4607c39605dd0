package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/yourorg/staffdesk/internal/domain"
	"github.com/yourorg/staffdesk/internal/service"
)

// BusinessHandler handles tenant lifecycle endpoints
type BusinessHandler struct {
	businessService *service.BusinessService
	actors          *service.ActorResolver
	logger          *slog.Logger
}

// NewBusinessHandler creates a new business handler
func NewBusinessHandler(businessService *service.BusinessService, actors *service.ActorResolver, logger *slog.Logger) *BusinessHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BusinessHandler{
		businessService: businessService,
		actors:          actors,
		logger:          logger,
	}
}

// BusinessResponse is the wire form of a business
type BusinessResponse struct {
	ID        string     `json:"id"`
	Slug      string     `json:"slug"`
	Name      string     `json:"name"`
	OwnerID   string     `json:"ownerId"`
	CreatedAt time.Time  `json:"createdAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

func toBusinessResponse(b *domain.Business) BusinessResponse {
	return BusinessResponse{
		ID:        b.ID,
		Slug:      b.Slug,
		Name:      b.Name,
		OwnerID:   b.OwnerUserID,
		CreatedAt: b.CreatedAt,
		DeletedAt: b.DeletedAt,
	}
}

// CreateBusinessRequest represents a business creation request
type CreateBusinessRequest struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Create handles POST /api/businesses
func (h *BusinessHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := resolveActor(w, r, h.actors, h.logger)
	if actor == nil {
		return
	}
	var req CreateBusinessRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	business, err := h.businessService.Create(r.Context(), actor, req.Slug, req.Name)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBusinessResponse(business))
}

// List handles GET /api/businesses
func (h *BusinessHandler) List(w http.ResponseWriter, r *http.Request) {
	actor := resolveActor(w, r, h.actors, h.logger)
	if actor == nil {
		return
	}
	businesses, err := h.businessService.List(r.Context(), actor)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	out := make([]BusinessResponse, 0, len(businesses))
	for _, b := range businesses {
		out = append(out, toBusinessResponse(b))
	}
	writeJSON(w, http.StatusOK, out)
}

// Get handles GET /api/businesses/{slug}
func (h *BusinessHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor := resolveActor(w, r, h.actors, h.logger)
	if actor == nil {
		return
	}
	business, err := h.businessService.Get(r.Context(), actor, r.PathValue("slug"))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toBusinessResponse(business))
}

// UpdateBusinessRequest represents a rename request
type UpdateBusinessRequest struct {
	Name string `json:"name"`
}

// Update handles PUT /api/businesses/{slug}
func (h *BusinessHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor := resolveActor(w, r, h.actors, h.logger)
	if actor == nil {
		return
	}
	var req UpdateBusinessRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	business, err := h.businessService.Update(r.Context(), actor, r.PathValue("slug"), req.Name)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toBusinessResponse(business))
}

// Delete handles DELETE /api/businesses/{slug}
func (h *BusinessHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := resolveActor(w, r, h.actors, h.logger)
	if actor == nil {
		return
	}
	if err := h.businessService.SoftDelete(r.Context(), actor, r.PathValue("slug")); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Restore handles POST /api/businesses/{slug}/restore
func (h *BusinessHandler) Restore(w http.ResponseWriter, r *http.Request) {
	actor := resolveActor(w, r, h.actors, h.logger)
	if actor == nil {
		return
	}
	business, err := h.businessService.Restore(r.Context(), actor, r.PathValue("slug"))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toBusinessResponse(business))
}

// ForceDelete handles DELETE /api/businesses/{slug}/force
func (h *BusinessHandler) ForceDelete(w http.ResponseWriter, r *http.Request) {
	actor := resolveActor(w, r, h.actors, h.logger)
	if actor == nil {
		return
	}
	if err := h.businessService.ForceDelete(r.Context(), actor, r.PathValue("slug")); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
