package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yourorg/staffdesk/internal/authz"
	"github.com/yourorg/staffdesk/internal/domain"
	"github.com/yourorg/staffdesk/internal/security/audit"
	"github.com/yourorg/staffdesk/internal/security/auth"
)

// UserService manages user accounts: directory listing, profile updates,
// global role changes, soft deletion, and impersonation.
type UserService struct {
	users    domain.UserRepository
	engine   *authz.Engine
	tokens   *auth.TokenManager
	auditLog *audit.Logger
	logger   *slog.Logger
}

// NewUserService creates a user service
func NewUserService(users domain.UserRepository, engine *authz.Engine, tokens *auth.TokenManager, auditLog *audit.Logger, logger *slog.Logger) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{
		users:    users,
		engine:   engine,
		tokens:   tokens,
		auditLog: auditLog,
		logger:   logger,
	}
}

// List returns the full user directory
func (s *UserService) List(ctx context.Context, actor *authz.Actor) ([]*domain.User, error) {
	if d := s.engine.Check(ctx, actor, authz.ActionUserViewAny, authz.Target{}); !d.Allow {
		return nil, forbidden(d)
	}
	return s.users.List()
}

// Get returns one user together with their profile
func (s *UserService) Get(ctx context.Context, actor *authz.Actor, userID string) (*domain.User, *domain.Profile, error) {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return nil, nil, err
	}
	if d := s.engine.Check(ctx, actor, authz.ActionUserView, authz.Target{User: user}); !d.Allow {
		return nil, nil, forbidden(d)
	}
	profile, err := s.users.GetProfile(userID)
	if err != nil {
		return nil, nil, err
	}
	return user, profile, nil
}

// ProfileUpdate carries the editable profile fields. Nil pointers mean
// "leave unchanged".
type ProfileUpdate struct {
	Name     *string
	Phone    *string
	JobTitle *string
}

// Update edits a user's name and profile fields. Role and status are out of
// reach here; ChangeRole handles the former.
func (s *UserService) Update(ctx context.Context, actor *authz.Actor, userID string, upd ProfileUpdate) (*domain.User, error) {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if d := s.engine.Check(ctx, actor, authz.ActionUserUpdate, authz.Target{User: user}); !d.Allow {
		return nil, forbidden(d)
	}

	if upd.Name != nil {
		user.Name = *upd.Name
		if err := s.users.Update(user); err != nil {
			return nil, err
		}
	}
	if upd.Phone != nil || upd.JobTitle != nil {
		profile, err := s.users.GetProfile(userID)
		if err != nil {
			return nil, err
		}
		if upd.Phone != nil {
			profile.Phone = *upd.Phone
		}
		if upd.JobTitle != nil {
			profile.JobTitle = *upd.JobTitle
		}
		if err := s.users.UpdateProfile(profile); err != nil {
			return nil, err
		}
	}
	return user, nil
}

// Delete soft-deletes a user account. Self-deletion is denied for everyone,
// superadmins included.
func (s *UserService) Delete(ctx context.Context, actor *authz.Actor, userID string) error {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return err
	}
	targetRole := domain.GlobalRoleNone
	if profile, err := s.users.GetProfile(userID); err == nil {
		targetRole = profile.Role
	}
	if d := s.engine.Check(ctx, actor, authz.ActionUserDelete, authz.Target{User: user, UserRole: targetRole}); !d.Allow {
		s.auditLog.LogDenied(ctx, actor.ID(), "user_delete", d.Reason)
		return forbidden(d)
	}
	if err := s.users.SoftDelete(userID); err != nil {
		return err
	}
	s.auditLog.Record(ctx, audit.Event{
		ActorID:    actor.ID(),
		Action:     "user_delete",
		Resource:   "user",
		ResourceID: userID,
		Status:     "ok",
	})
	return nil
}

// ChangeRole sets a user's global role
func (s *UserService) ChangeRole(ctx context.Context, actor *authz.Actor, userID string, newRole domain.GlobalRole) error {
	if _, ok := domain.ParseGlobalRole(string(newRole)); !ok {
		return fmt.Errorf("unknown global role %q", newRole)
	}
	user, err := s.users.GetByID(userID)
	if err != nil {
		return err
	}
	profile, err := s.users.GetProfile(userID)
	if err != nil {
		return err
	}
	if d := s.engine.Check(ctx, actor, authz.ActionUserChangeRole, authz.Target{User: user, UserRole: profile.Role, NewRole: newRole}); !d.Allow {
		return forbidden(d)
	}
	if err := s.users.SetGlobalRole(userID, newRole); err != nil {
		return err
	}
	s.auditLog.Record(ctx, audit.Event{
		ActorID:    actor.ID(),
		Action:     "user_change_role",
		Resource:   "user",
		ResourceID: userID,
		Status:     "ok",
		Details:    fmt.Sprintf("%s -> %s", profile.Role, newRole),
	})
	return nil
}

// Impersonate mints a short-lived token acting as the target user. The token
// records the real actor, and every use of it is attributable to them.
func (s *UserService) Impersonate(ctx context.Context, actor *authz.Actor, userID string, ttl time.Duration) (string, error) {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return "", err
	}
	if user.Deleted() {
		return "", domain.ErrUserNotFound
	}
	targetRole := domain.GlobalRoleNone
	if profile, err := s.users.GetProfile(userID); err == nil {
		targetRole = profile.Role
	}
	if d := s.engine.Check(ctx, actor, authz.ActionUserImpersonate, authz.Target{User: user, UserRole: targetRole}); !d.Allow {
		s.auditLog.LogDenied(ctx, actor.ID(), "user_impersonate", d.Reason)
		return "", forbidden(d)
	}
	if ttl <= 0 || ttl > time.Hour {
		ttl = time.Hour
	}
	token, err := s.tokens.GenerateImpersonationToken(user.ID, user.Email, string(targetRole), actor.ID(), ttl)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	s.auditLog.Record(ctx, audit.Event{
		ActorID:    actor.ID(),
		Action:     "user_impersonate",
		Resource:   "user",
		ResourceID: userID,
		Status:     "ok",
	})
	s.logger.Warn("impersonation token issued",
		slog.String("actor_id", actor.ID()),
		slog.String("target_id", userID),
	)
	return token, nil
}
