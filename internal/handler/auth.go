package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/yourorg/staffdesk/internal/service"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *service.AuthService
	actors      *service.ActorResolver
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, actors *service.ActorResolver, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		authService: authService,
		actors:      actors,
		logger:      logger,
	}
}

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Email           string `json:"email"`
	Name            string `json:"name"`
	Password        string `json:"password"`
	InvitationToken string `json:"invitationToken,omitempty"`
}

// RegisterResponse carries the new account, its token, and what happened to
// the invitation token if one was supplied.
type RegisterResponse struct {
	UserID         string `json:"userId"`
	Email          string `json:"email"`
	Token          string `json:"token"`
	InvitationLink string `json:"invitationLink"`
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	result, err := h.authService.Register(r.Context(), req.Email, req.Name, req.Password, req.InvitationToken)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, RegisterResponse{
		UserID:         result.User.ID,
		Email:          result.User.Email,
		Token:          result.Token,
		InvitationLink: string(result.InvitationLink),
	})
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse contains the session token
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	result, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		// Generic error to prevent user enumeration
		writeDomainError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Token:     result.Token,
		ExpiresAt: time.Now().Add(24 * time.Hour),
		UserID:    result.User.ID,
		Email:     result.User.Email,
	})
}

// ChangePasswordRequest represents a change password request
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// ChangePassword handles POST /api/auth/change-password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	actor := resolveActor(w, r, h.actors, h.logger)
	if actor == nil {
		return
	}
	var req ChangePasswordRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "oldPassword and newPassword are required")
		return
	}

	if err := h.authService.ChangePassword(r.Context(), actor.ID(), req.OldPassword, req.NewPassword); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "password changed successfully"})
}

// MeResponse describes the acting identity
type MeResponse struct {
	UserID     string `json:"userId"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	GlobalRole string `json:"globalRole,omitempty"`
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor := resolveActor(w, r, h.actors, h.logger)
	if actor == nil {
		return
	}
	writeJSON(w, http.StatusOK, MeResponse{
		UserID:     actor.ID(),
		Email:      actor.User.Email,
		Name:       actor.User.Name,
		GlobalRole: string(actor.GlobalRole()),
	})
}
