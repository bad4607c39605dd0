package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/yourorg/staffdesk/internal/domain"
	"github.com/yourorg/staffdesk/internal/service"
)

// UserHandler handles the user directory endpoints
type UserHandler struct {
	userService *service.UserService
	actors      *service.ActorResolver
	logger      *slog.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *service.UserService, actors *service.ActorResolver, logger *slog.Logger) *UserHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserHandler{
		userService: userService,
		actors:      actors,
		logger:      logger,
	}
}

// UserResponse is the wire form of a user
type UserResponse struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	GlobalRole string    `json:"globalRole,omitempty"`
	Status     string    `json:"status,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	JobTitle   string    `json:"jobTitle,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

func toUserResponse(u *domain.User, p *domain.Profile) UserResponse {
	resp := UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt,
	}
	if p != nil {
		resp.GlobalRole = string(p.Role)
		resp.Status = string(p.Status)
		resp.Phone = p.Phone
		resp.JobTitle = p.JobTitle
	}
	return resp
}

// List handles GET /api/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	actor := resolveActor(w, r, h.actors, h.logger)
	if actor == nil {
		return
	}
	users, err := h.userService.List(r.Context(), actor)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u, nil))
	}
	writeJSON(w, http.StatusOK, out)
}

// Get handles GET /api/users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor := resolveActor(w, r, h.actors, h.logger)
	if actor == nil {
		return
	}
	user, profile, err := h.userService.Get(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user, profile))
}

// UpdateUserRequest carries the editable fields; absent fields stay put
type UpdateUserRequest struct {
	Name     *string `json:"name,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	JobTitle *string `json:"jobTitle,omitempty"`
}

// Update handles PUT /api/users/{id}
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor := resolveActor(w, r, h.actors, h.logger)
	if actor == nil {
		return
	}
	var req UpdateUserRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	user, err := h.userService.Update(r.Context(), actor, r.PathValue("id"), service.ProfileUpdate{
		Name:     req.Name,
		Phone:    req.Phone,
		JobTitle: req.JobTitle,
	})
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user, nil))
}

// Delete handles DELETE /api/users/{id}
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := resolveActor(w, r, h.actors, h.logger)
	if actor == nil {
		return
	}
	if err := h.userService.Delete(r.Context(), actor, r.PathValue("id")); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ChangeRoleRequest represents a global role change
type ChangeRoleRequest struct {
	Role string `json:"role"`
}

// ChangeRole handles PUT /api/users/{id}/role
func (h *UserHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	actor := resolveActor(w, r, h.actors, h.logger)
	if actor == nil {
		return
	}
	var req ChangeRoleRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	role, ok := domain.ParseGlobalRole(req.Role)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown role")
		return
	}
	if err := h.userService.ChangeRole(r.Context(), actor, r.PathValue("id"), role); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "role updated"})
}

// ImpersonateResponse carries the short-lived impersonation token
type ImpersonateResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Impersonate handles POST /api/users/{id}/impersonate
func (h *UserHandler) Impersonate(w http.ResponseWriter, r *http.Request) {
	actor := resolveActor(w, r, h.actors, h.logger)
	if actor == nil {
		return
	}
	ttl := time.Hour
	token, err := h.userService.Impersonate(r.Context(), actor, r.PathValue("id"), ttl)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ImpersonateResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(ttl),
	})
}
