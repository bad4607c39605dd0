package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/yourorg/staffdesk/internal/domain"
	"github.com/yourorg/staffdesk/internal/service"
)

// MembershipHandler handles roster endpoints under a business
type MembershipHandler struct {
	memberService *service.MembershipService
	actors        *service.ActorResolver
	logger        *slog.Logger
}

// NewMembershipHandler creates a new membership handler
func NewMembershipHandler(memberService *service.MembershipService, actors *service.ActorResolver, logger *slog.Logger) *MembershipHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MembershipHandler{
		memberService: memberService,
		actors:        actors,
		logger:        logger,
	}
}

// MemberResponse is the wire form of a membership row
type MemberResponse struct {
	ID               string     `json:"id"`
	BusinessID       string     `json:"businessId"`
	UserID           *string    `json:"userId,omitempty"`
	Email            string     `json:"email"`
	Role             string     `json:"role"`
	EmploymentStatus string     `json:"employmentStatus"`
	InviteState      string     `json:"inviteState"`
	JoinedDate       *time.Time `json:"joinedDate,omitempty"`
}

func toMemberResponse(m *domain.Membership) MemberResponse {
	return MemberResponse{
		ID:               m.ID,
		BusinessID:       m.BusinessID,
		UserID:           m.UserID,
		Email:            m.Email,
		Role:             string(m.Role),
		EmploymentStatus: string(m.EmploymentStatus),
		InviteState:      string(m.State()),
		JoinedDate:       m.JoinedDate,
	}
}

// List handles GET /api/businesses/{slug}/members
func (h *MembershipHandler) List(w http.ResponseWriter, r *http.Request) {
	actor := resolveActor(w, r, h.actors, h.logger)
	if actor == nil {
		return
	}
	members, err := h.memberService.ListMembers(r.Context(), actor, r.PathValue("slug"))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	out := make([]MemberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, toMemberResponse(m))
	}
	writeJSON(w, http.StatusOK, out)
}

// AddMemberRequest represents a direct member add
type AddMemberRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Add handles POST /api/businesses/{slug}/members
func (h *MembershipHandler) Add(w http.ResponseWriter, r *http.Request) {
	actor := resolveActor(w, r, h.actors, h.logger)
	if actor == nil {
		return
	}
	var req AddMemberRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	if req.Email == "" || req.Role == "" {
		writeError(w, http.StatusBadRequest, "email and role are required")
		return
	}
	role, ok := domain.ParseBusinessRole(req.Role)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown role")
		return
	}
	m, err := h.memberService.AddMember(r.Context(), actor, r.PathValue("slug"), req.Email, role)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMemberResponse(m))
}

// UpdateMemberRequest represents a role or status change
type UpdateMemberRequest struct {
	Role             string `json:"role"`
	EmploymentStatus string `json:"employmentStatus,omitempty"`
}

// Update handles PUT /api/businesses/{slug}/members/{userId}
func (h *MembershipHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor := resolveActor(w, r, h.actors, h.logger)
	if actor == nil {
		return
	}
	var req UpdateMemberRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	role, ok := domain.ParseBusinessRole(req.Role)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown role")
		return
	}
	m, err := h.memberService.UpdateMember(r.Context(), actor, r.PathValue("slug"), r.PathValue("userId"), role, domain.EmploymentStatus(req.EmploymentStatus))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toMemberResponse(m))
}

// Remove handles DELETE /api/businesses/{slug}/members/{userId}
func (h *MembershipHandler) Remove(w http.ResponseWriter, r *http.Request) {
	actor := resolveActor(w, r, h.actors, h.logger)
	if actor == nil {
		return
	}
	if err := h.memberService.RemoveMember(r.Context(), actor, r.PathValue("slug"), r.PathValue("userId")); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListMine handles GET /api/memberships
func (h *MembershipHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor := resolveActor(w, r, h.actors, h.logger)
	if actor == nil {
		return
	}
	members, err := h.memberService.ListMine(r.Context(), actor)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	out := make([]MemberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, toMemberResponse(m))
	}
	writeJSON(w, http.StatusOK, out)
}
