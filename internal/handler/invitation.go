package handler

import (
	"log/slog"
	"net/http"

	"github.com/yourorg/staffdesk/internal/domain"
	"github.com/yourorg/staffdesk/internal/service"
)

// InvitationHandler handles the invitation lifecycle endpoints
type InvitationHandler struct {
	invitationService *service.InvitationService
	actors            *service.ActorResolver
	logger            *slog.Logger
}

// NewInvitationHandler creates a new invitation handler
func NewInvitationHandler(invitationService *service.InvitationService, actors *service.ActorResolver, logger *slog.Logger) *InvitationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &InvitationHandler{
		invitationService: invitationService,
		actors:            actors,
		logger:            logger,
	}
}

// InviteRequest represents an invitation request
type InviteRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// InviteResponse carries the single-use token back to the caller, who is
// responsible for delivering it to the invitee.
type InviteResponse struct {
	Token string `json:"token"`
}

// Invite handles POST /api/businesses/{slug}/invitations
func (h *InvitationHandler) Invite(w http.ResponseWriter, r *http.Request) {
	actor := resolveActor(w, r, h.actors, h.logger)
	if actor == nil {
		return
	}
	var req InviteRequest
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

	token, err := h.invitationService.Invite(r.Context(), actor, r.PathValue("slug"), req.Email, role)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, InviteResponse{Token: token})
}

// Accept handles POST /api/invitations/{token}/accept. The caller must be
// authenticated; the token binds to their account only when the invited email
// matches.
func (h *InvitationHandler) Accept(w http.ResponseWriter, r *http.Request) {
	actor := resolveActor(w, r, h.actors, h.logger)
	if actor == nil {
		return
	}
	accepted, err := h.invitationService.AcceptByToken(r.Context(), r.PathValue("token"), actor.User.Email, actor.ID())
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	status := "applied"
	if !accepted {
		// Stale token, wrong email, or already accepted. Reported, not failed.
		status = "noop"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

// Decline handles POST /api/invitations/{token}/decline. Public: a recipient
// without an account can decline straight from the email link.
func (h *InvitationHandler) Decline(w http.ResponseWriter, r *http.Request) {
	if err := h.invitationService.DeclineByToken(r.Context(), r.PathValue("token")); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
