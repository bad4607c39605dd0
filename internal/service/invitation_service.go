package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yourorg/staffdesk/internal/authz"
	"github.com/yourorg/staffdesk/internal/domain"
	"github.com/yourorg/staffdesk/internal/observability/metrics"
	"github.com/yourorg/staffdesk/internal/security/audit"
)

// InvitationService drives the invitation state machine over the membership
// ledger: NONE -> INVITED -> ACCEPTED, with decline deleting the row.
type InvitationService struct {
	users       domain.UserRepository
	businesses  domain.BusinessRepository
	memberships domain.MembershipRepository
	engine      *authz.Engine
	roleCache   CacheInvalidator
	auditLog    *audit.Logger
	logger      *slog.Logger
}

// NewInvitationService creates an invitation service
func NewInvitationService(
	users domain.UserRepository,
	businesses domain.BusinessRepository,
	memberships domain.MembershipRepository,
	engine *authz.Engine,
	roleCache CacheInvalidator,
	auditLog *audit.Logger,
	logger *slog.Logger,
) *InvitationService {
	if logger == nil {
		logger = slog.Default()
	}
	if roleCache == nil {
		roleCache = NoopInvalidator{}
	}
	return &InvitationService{
		users:       users,
		businesses:  businesses,
		memberships: memberships,
		engine:      engine,
		roleCache:   roleCache,
		auditLog:    auditLog,
		logger:      logger,
	}
}

// Invite creates or refreshes a pending membership for email in the business
// named by slug and returns the single-use token. Token delivery (email) is
// the caller's concern.
func (s *InvitationService) Invite(ctx context.Context, actor *authz.Actor, slug, email string, role domain.BusinessRole) (string, error) {
	if email == "" {
		return "", fmt.Errorf("email required: %w", domain.ErrConflict)
	}
	if _, ok := domain.ParseBusinessRole(string(role)); !ok {
		return "", fmt.Errorf("unknown business role %q", role)
	}
	// Businesses never gain a second owner through an invitation.
	if role == domain.BusinessRoleOwner {
		return "", fmt.Errorf("cannot invite an owner: %w", domain.ErrForbidden)
	}

	// The target user may not exist yet; fetch it and the business
	// concurrently and tolerate a missing user.
	var (
		business   *domain.Business
		targetUser *domain.User
	)
	var group errgroup.Group
	group.Go(func() error {
		b, err := s.businesses.GetBySlug(slug)
		if err != nil {
			return err
		}
		business = b
		return nil
	})
	group.Go(func() error {
		u, err := s.users.GetByEmail(email)
		if err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				return nil
			}
			return err
		}
		targetUser = u
		return nil
	})
	if err := group.Wait(); err != nil {
		return "", err
	}
	if business.Deleted() {
		return "", domain.ErrBusinessNotFound
	}

	if d := s.engine.Check(ctx, actor, authz.ActionBusinessInvite, authz.Target{Business: business}); !d.Allow {
		return "", forbidden(d)
	}

	// An accepted membership for this (user, business) blocks re-invitation.
	if targetUser != nil {
		if _, ok, err := s.memberships.RoleOf(targetUser.ID, business.ID); err != nil {
			return "", err
		} else if ok {
			return "", domain.ErrAlreadyMember
		}
	}

	token := uuid.NewString()
	m := &domain.Membership{
		BusinessID:       business.ID,
		Email:            email,
		Role:             role,
		EmploymentStatus: domain.EmploymentStatusActive,
		InvitationToken:  &token,
	}
	if targetUser != nil {
		m.UserID = &targetUser.ID
	}
	if err := s.memberships.Upsert(m); err != nil {
		return "", err
	}

	metrics.ObserveInvitation("invited")
	s.auditLog.Record(ctx, audit.Event{
		ActorID:    actor.ID(),
		BusinessID: business.ID,
		Action:     "invite",
		Resource:   "membership",
		ResourceID: m.ID,
		Status:     "pending",
		Details:    fmt.Sprintf("invited %s as %s", email, role),
	})
	return token, nil
}

// AcceptByToken consumes a pending invitation for the acting user. The email
// cross-check stops a token stolen from another inbox from binding the wrong
// account. Reuse of a consumed token is a silent no-op by design: a stale
// token must never block registration.
func (s *InvitationService) AcceptByToken(ctx context.Context, token, email, userID string) (bool, error) {
	if token == "" {
		return false, nil
	}
	// Look up the row first so the cache entry for its business can be
	// dropped. The conditional update below stays the single source of truth
	// for whether the accept happened.
	var businessID string
	if m, err := s.memberships.GetByInvitationToken(token); err == nil {
		businessID = m.BusinessID
	} else if !errors.Is(err, domain.ErrInvitationNotFound) {
		return false, err
	}

	accepted, err := s.memberships.AcceptInvitation(token, email, userID)
	if err != nil {
		return false, err
	}
	if !accepted {
		metrics.ObserveInvitation("noop")
		return false, nil
	}

	s.roleCache.Invalidate(ctx, userID, businessID)
	metrics.ObserveInvitation("accepted")
	s.auditLog.Record(ctx, audit.Event{
		ActorID:    userID,
		BusinessID: businessID,
		Action:     "invitation_accept",
		Resource:   "membership",
		Status:     "accepted",
	})
	return true, nil
}

// DeclineByToken deletes the pending row. No declined state is persisted;
// after a decline the ledger reads as if the invitation never existed.
func (s *InvitationService) DeclineByToken(ctx context.Context, token string) error {
	m, err := s.memberships.GetByInvitationToken(token)
	if err != nil {
		return err
	}
	if err := s.memberships.DeleteByInvitationToken(token); err != nil {
		return err
	}
	if m.UserID != nil {
		s.roleCache.Invalidate(ctx, *m.UserID, m.BusinessID)
	}
	metrics.ObserveInvitation("declined")
	s.auditLog.Record(ctx, audit.Event{
		BusinessID: m.BusinessID,
		Action:     "invitation_decline",
		Resource:   "membership",
		ResourceID: m.ID,
		Status:     "declined",
	})
	return nil
}

// LinkPendingInvitation is the best-effort hook run during registration.
// Failures are logged and reported as a named outcome, never propagated:
// a broken invitation must not block a registration.
func (s *InvitationService) LinkPendingInvitation(ctx context.Context, token, email, userID string) InvitationLinkResult {
	if token == "" {
		return InvitationLinkSkipped
	}

	result := InvitationLinkSkipped
	func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("invitation linking panicked",
					slog.String("user_id", userID),
					slog.Any("panic", r),
				)
				result = InvitationLinkFailed
			}
		}()
		accepted, err := s.AcceptByToken(ctx, token, email, userID)
		if err != nil {
			s.logger.Error("invitation linking failed",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
			result = InvitationLinkFailed
			return
		}
		if accepted {
			result = InvitationLinkApplied
		}
	}()
	return result
}

// ExpireBefore removes pending invitations created before cutoff. The
// background reaper calls this on an interval.
func (s *InvitationService) ExpireBefore(cutoff time.Time) (int, error) {
	n, err := s.memberships.DeleteExpiredInvitations(cutoff)
	if err != nil {
		return 0, err
	}
	for i := 0; i < n; i++ {
		metrics.ObserveInvitation("expired")
	}
	return n, nil
}
