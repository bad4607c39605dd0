package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/yourorg/staffdesk/internal/domain"
	"github.com/yourorg/staffdesk/internal/observability/metrics"
	"github.com/yourorg/staffdesk/internal/security/auth"
)

// InvitationLinkResult names the outcome of the best-effort invitation link
// attempted during registration.
type InvitationLinkResult string

const (
	InvitationLinkApplied InvitationLinkResult = "applied"
	InvitationLinkSkipped InvitationLinkResult = "skipped"
	InvitationLinkFailed  InvitationLinkResult = "failed"
)

// RegisterResult is what a successful registration hands back: the new user,
// a session token, and what happened to the invitation token (if any).
type RegisterResult struct {
	User           *domain.User
	Token          string
	InvitationLink InvitationLinkResult
}

// LoginResult pairs the authenticated user with a fresh session token.
type LoginResult struct {
	User  *domain.User
	Token string
}

// AuthService handles registration, login, and password changes.
type AuthService struct {
	users       domain.UserRepository
	invitations *InvitationService
	tokens      *auth.TokenManager
	tokenTTL    time.Duration
	logger      *slog.Logger
}

// NewAuthService creates an auth service
func NewAuthService(users domain.UserRepository, invitations *InvitationService, tokens *auth.TokenManager, tokenTTL time.Duration, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{
		users:       users,
		invitations: invitations,
		tokens:      tokens,
		tokenTTL:    tokenTTL,
		logger:      logger,
	}
}

// Register creates a user account. When inviteToken is set the matching
// pending invitation is linked best-effort: the account is created either
// way and the outcome is reported in the result.
func (s *AuthService) Register(ctx context.Context, email, name, password, inviteToken string) (*RegisterResult, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("email and password required: %w", domain.ErrInvalidCredentials)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
	}
	profile := &domain.Profile{
		Role:   domain.GlobalRoleNone,
		Status: domain.ProfileStatusActive,
	}
	if err := s.users.Create(user, profile); err != nil {
		if errors.Is(err, domain.ErrEmailAlreadyRegistered) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	link := s.invitations.LinkPendingInvitation(ctx, inviteToken, email, user.ID)
	metrics.ObserveRegistration(string(link))

	token, err := s.tokens.GenerateToken(user.ID, user.Email, string(profile.Role), s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	s.logger.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("invitation_link", string(link)),
	)
	return &RegisterResult{User: user, Token: token, InvitationLink: link}, nil
}

// Login verifies credentials and mints a session token. A missing user and a
// wrong password produce the same error so the endpoint never confirms which
// emails exist.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	role := domain.GlobalRoleNone
	if profile, err := s.users.GetProfile(user.ID); err == nil {
		role = profile.Role
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Email, string(role), s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	return &LoginResult{User: user, Token: token}, nil
}

// ChangePassword verifies the current password before setting a new one.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if len(newPassword) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	user, err := s.users.GetByID(userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return domain.ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = string(hash)
	if err := s.users.Update(user); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	s.logger.Info("password changed", slog.String("user_id", userID))
	return nil
}
