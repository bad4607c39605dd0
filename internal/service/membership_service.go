package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yourorg/staffdesk/internal/authz"
	"github.com/yourorg/staffdesk/internal/domain"
	"github.com/yourorg/staffdesk/internal/security/audit"
)

// MembershipService manages the roster of a business: listing members,
// direct adds, role and status changes, and removals.
type MembershipService struct {
	users       domain.UserRepository
	businesses  domain.BusinessRepository
	memberships domain.MembershipRepository
	engine      *authz.Engine
	roleCache   CacheInvalidator
	auditLog    *audit.Logger
	logger      *slog.Logger
}

// NewMembershipService creates a membership service
func NewMembershipService(
	users domain.UserRepository,
	businesses domain.BusinessRepository,
	memberships domain.MembershipRepository,
	engine *authz.Engine,
	roleCache CacheInvalidator,
	auditLog *audit.Logger,
	logger *slog.Logger,
) *MembershipService {
	if logger == nil {
		logger = slog.Default()
	}
	if roleCache == nil {
		roleCache = NoopInvalidator{}
	}
	return &MembershipService{
		users:       users,
		businesses:  businesses,
		memberships: memberships,
		engine:      engine,
		roleCache:   roleCache,
		auditLog:    auditLog,
		logger:      logger,
	}
}

func (s *MembershipService) activeBusiness(slug string) (*domain.Business, error) {
	business, err := s.businesses.GetBySlug(slug)
	if err != nil {
		return nil, err
	}
	if business.Deleted() {
		return nil, domain.ErrBusinessNotFound
	}
	return business, nil
}

// ListMembers returns every membership row of the business, pending
// invitations included, for actors allowed to manage users.
func (s *MembershipService) ListMembers(ctx context.Context, actor *authz.Actor, slug string) ([]*domain.Membership, error) {
	business, err := s.activeBusiness(slug)
	if err != nil {
		return nil, err
	}
	if d := s.engine.Check(ctx, actor, authz.ActionBusinessManageUsers, authz.Target{Business: business}); !d.Allow {
		return nil, forbidden(d)
	}
	return s.memberships.ListByBusiness(business.ID)
}

// AddMember adds a registered user straight onto the roster, skipping the
// invitation flow. The row is accepted immediately.
func (s *MembershipService) AddMember(ctx context.Context, actor *authz.Actor, slug, email string, role domain.BusinessRole) (*domain.Membership, error) {
	if _, ok := domain.ParseBusinessRole(string(role)); !ok {
		return nil, fmt.Errorf("unknown business role %q", role)
	}
	if role == domain.BusinessRoleOwner {
		return nil, fmt.Errorf("cannot add a second owner: %w", domain.ErrForbidden)
	}
	business, err := s.activeBusiness(slug)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if d := s.engine.Check(ctx, actor, authz.ActionBusinessManageUser, authz.Target{Business: business, User: user}); !d.Allow {
		return nil, forbidden(d)
	}
	if _, ok, err := s.memberships.RoleOf(user.ID, business.ID); err != nil {
		return nil, err
	} else if ok {
		return nil, domain.ErrAlreadyMember
	}

	now := time.Now()
	m := &domain.Membership{
		BusinessID:       business.ID,
		UserID:           &user.ID,
		Email:            user.Email,
		Role:             role,
		EmploymentStatus: domain.EmploymentStatusActive,
		JoinedDate:       &now,
	}
	if err := s.memberships.Upsert(m); err != nil {
		return nil, err
	}
	s.roleCache.Invalidate(ctx, user.ID, business.ID)

	s.auditLog.Record(ctx, audit.Event{
		ActorID:    actor.ID(),
		BusinessID: business.ID,
		Action:     "member_add",
		Resource:   "membership",
		ResourceID: m.ID,
		Status:     "ok",
		Details:    fmt.Sprintf("added %s as %s", email, role),
	})
	return m, nil
}

// UpdateMember changes a member's business role or employment status.
// The owner row cannot be demoted this way.
func (s *MembershipService) UpdateMember(ctx context.Context, actor *authz.Actor, slug, userID string, role domain.BusinessRole, status domain.EmploymentStatus) (*domain.Membership, error) {
	if _, ok := domain.ParseBusinessRole(string(role)); !ok {
		return nil, fmt.Errorf("unknown business role %q", role)
	}
	business, err := s.activeBusiness(slug)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if d := s.engine.Check(ctx, actor, authz.ActionBusinessManageUser, authz.Target{Business: business, User: user}); !d.Allow {
		return nil, forbidden(d)
	}

	m, err := s.memberships.GetMember(userID, business.ID)
	if err != nil {
		return nil, err
	}
	if m.Role == domain.BusinessRoleOwner && role != domain.BusinessRoleOwner {
		return nil, fmt.Errorf("owner role cannot be reassigned here: %w", domain.ErrForbidden)
	}
	if m.Role != domain.BusinessRoleOwner && role == domain.BusinessRoleOwner {
		return nil, fmt.Errorf("cannot promote to owner: %w", domain.ErrForbidden)
	}

	m.Role = role
	if status != "" {
		m.EmploymentStatus = status
	}
	if err := s.memberships.Upsert(m); err != nil {
		return nil, err
	}
	s.roleCache.Invalidate(ctx, userID, business.ID)

	s.auditLog.Record(ctx, audit.Event{
		ActorID:    actor.ID(),
		BusinessID: business.ID,
		Action:     "member_update",
		Resource:   "membership",
		ResourceID: m.ID,
		Status:     "ok",
		Details:    fmt.Sprintf("role=%s status=%s", m.Role, m.EmploymentStatus),
	})
	return m, nil
}

// RemoveMember hard-deletes the member's pivot row. The business owner
// cannot be removed.
func (s *MembershipService) RemoveMember(ctx context.Context, actor *authz.Actor, slug, userID string) error {
	business, err := s.activeBusiness(slug)
	if err != nil {
		return err
	}
	user, err := s.users.GetByID(userID)
	if err != nil {
		return err
	}
	if d := s.engine.Check(ctx, actor, authz.ActionBusinessManageUser, authz.Target{Business: business, User: user}); !d.Allow {
		return forbidden(d)
	}

	m, err := s.memberships.GetMember(userID, business.ID)
	if err != nil {
		return err
	}
	if m.Role == domain.BusinessRoleOwner {
		return fmt.Errorf("owner cannot be removed: %w", domain.ErrForbidden)
	}
	if err := s.memberships.Remove(userID, business.ID); err != nil {
		return err
	}
	s.roleCache.Invalidate(ctx, userID, business.ID)

	s.auditLog.Record(ctx, audit.Event{
		ActorID:    actor.ID(),
		BusinessID: business.ID,
		Action:     "member_remove",
		Resource:   "membership",
		ResourceID: m.ID,
		Status:     "ok",
	})
	return nil
}

// ListMine returns the actor's own membership rows across businesses,
// pending invitations included.
func (s *MembershipService) ListMine(ctx context.Context, actor *authz.Actor) ([]*domain.Membership, error) {
	if actor.ID() == "" {
		return nil, domain.ErrUnauthenticated
	}
	return s.memberships.ListByUser(actor.ID())
}
