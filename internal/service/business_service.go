package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/yourorg/staffdesk/internal/authz"
	"github.com/yourorg/staffdesk/internal/domain"
	"github.com/yourorg/staffdesk/internal/security/audit"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// BusinessService manages tenant lifecycle: create, update, soft delete,
// restore, and force delete.
type BusinessService struct {
	businesses  domain.BusinessRepository
	memberships domain.MembershipRepository
	engine      *authz.Engine
	roleCache   CacheInvalidator
	auditLog    *audit.Logger
	logger      *slog.Logger
}

// CacheInvalidator drops a cached (user, business) role after a mutation.
// The cached role resolver satisfies it; tests use the no-op.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, userID, businessID string)
}

// NoopInvalidator satisfies CacheInvalidator when no cache is wired
type NoopInvalidator struct{}

func (NoopInvalidator) Invalidate(context.Context, string, string) {}

// NewBusinessService creates a business service
func NewBusinessService(
	businesses domain.BusinessRepository,
	memberships domain.MembershipRepository,
	engine *authz.Engine,
	roleCache CacheInvalidator,
	auditLog *audit.Logger,
	logger *slog.Logger,
) *BusinessService {
	if logger == nil {
		logger = slog.Default()
	}
	if roleCache == nil {
		roleCache = NoopInvalidator{}
	}
	return &BusinessService{
		businesses:  businesses,
		memberships: memberships,
		engine:      engine,
		roleCache:   roleCache,
		auditLog:    auditLog,
		logger:      logger,
	}
}

// Create registers a new business and makes the actor its owner. The owner
// membership row is a direct add: no invitation token, accepted immediately.
func (s *BusinessService) Create(ctx context.Context, actor *authz.Actor, slug, name string) (*domain.Business, error) {
	if d := s.engine.Check(ctx, actor, authz.ActionBusinessCreate, authz.Target{}); !d.Allow {
		return nil, forbidden(d)
	}
	if !slugPattern.MatchString(slug) {
		return nil, fmt.Errorf("invalid slug %q", slug)
	}
	if name == "" {
		return nil, fmt.Errorf("name required")
	}

	business := &domain.Business{
		Slug:        slug,
		Name:        name,
		OwnerUserID: actor.ID(),
	}
	if err := s.businesses.Create(business); err != nil {
		return nil, err
	}

	now := time.Now()
	actorID := actor.ID()
	owner := &domain.Membership{
		BusinessID:       business.ID,
		UserID:           &actorID,
		Email:            actor.User.Email,
		Role:             domain.BusinessRoleOwner,
		EmploymentStatus: domain.EmploymentStatusActive,
		JoinedDate:       &now,
	}
	if err := s.memberships.Upsert(owner); err != nil {
		return nil, fmt.Errorf("failed to create owner membership: %w", err)
	}

	s.auditLog.Record(ctx, audit.Event{
		ActorID:    actor.ID(),
		BusinessID: business.ID,
		Action:     "business_create",
		Resource:   "business",
		ResourceID: business.ID,
		Status:     "ok",
		Details:    slug,
	})
	s.logger.Info("business created",
		slog.String("business_id", business.ID),
		slog.String("slug", slug),
	)
	return business, nil
}

// Get returns a business by slug, visible to superadmins and members.
// Soft-deleted businesses are visible to superadmins only.
func (s *BusinessService) Get(ctx context.Context, actor *authz.Actor, slug string) (*domain.Business, error) {
	business, err := s.businesses.GetBySlug(slug)
	if err != nil {
		return nil, err
	}
	if business.Deleted() && !actor.IsSuperadmin() {
		return nil, domain.ErrBusinessNotFound
	}
	if d := s.engine.Check(ctx, actor, authz.ActionBusinessViewDetail, authz.Target{Business: business}); !d.Allow {
		return nil, forbidden(d)
	}
	return business, nil
}

// List returns every business for superadmins and the actor's accepted
// memberships for everyone else.
func (s *BusinessService) List(ctx context.Context, actor *authz.Actor) ([]*domain.Business, error) {
	if d := s.engine.Check(ctx, actor, authz.ActionBusinessView, authz.Target{}); !d.Allow {
		return nil, forbidden(d)
	}
	if actor.IsSuperadmin() {
		return s.businesses.List()
	}
	return s.businesses.ListForUser(actor.ID())
}

// Update renames a business. The slug is immutable.
func (s *BusinessService) Update(ctx context.Context, actor *authz.Actor, slug, name string) (*domain.Business, error) {
	business, err := s.businesses.GetBySlug(slug)
	if err != nil {
		return nil, err
	}
	if business.Deleted() {
		return nil, domain.ErrBusinessNotFound
	}
	if d := s.engine.Check(ctx, actor, authz.ActionBusinessUpdate, authz.Target{Business: business}); !d.Allow {
		return nil, forbidden(d)
	}
	if name == "" {
		return nil, fmt.Errorf("name required")
	}
	business.Name = name
	if err := s.businesses.Update(business); err != nil {
		return nil, err
	}
	s.auditLog.Record(ctx, audit.Event{
		ActorID:    actor.ID(),
		BusinessID: business.ID,
		Action:     "business_update",
		Resource:   "business",
		ResourceID: business.ID,
		Status:     "ok",
	})
	return business, nil
}

// SoftDelete marks the business deleted. Membership rows survive so a
// restore brings the roster back intact.
func (s *BusinessService) SoftDelete(ctx context.Context, actor *authz.Actor, slug string) error {
	business, err := s.businesses.GetBySlug(slug)
	if err != nil {
		return err
	}
	if business.Deleted() {
		return domain.ErrBusinessNotFound
	}
	if d := s.engine.Check(ctx, actor, authz.ActionBusinessDelete, authz.Target{Business: business}); !d.Allow {
		return forbidden(d)
	}
	if err := s.businesses.SoftDelete(business.ID); err != nil {
		return err
	}
	s.auditLog.Record(ctx, audit.Event{
		ActorID:    actor.ID(),
		BusinessID: business.ID,
		Action:     "business_delete",
		Resource:   "business",
		ResourceID: business.ID,
		Status:     "ok",
	})
	return nil
}

// Restore clears the soft-delete marker. Superadmin only.
func (s *BusinessService) Restore(ctx context.Context, actor *authz.Actor, slug string) (*domain.Business, error) {
	business, err := s.businesses.GetBySlug(slug)
	if err != nil {
		return nil, err
	}
	if d := s.engine.Check(ctx, actor, authz.ActionBusinessRestore, authz.Target{Business: business}); !d.Allow {
		return nil, forbidden(d)
	}
	if !business.Deleted() {
		return business, nil
	}
	if err := s.businesses.Restore(business.ID); err != nil {
		return nil, err
	}
	business.DeletedAt = nil
	s.auditLog.Record(ctx, audit.Event{
		ActorID:    actor.ID(),
		BusinessID: business.ID,
		Action:     "business_restore",
		Resource:   "business",
		ResourceID: business.ID,
		Status:     "ok",
	})
	return business, nil
}

// ForceDelete hard-removes the business together with its membership ledger
// and feature entitlements. Superadmin only; there is no undo.
func (s *BusinessService) ForceDelete(ctx context.Context, actor *authz.Actor, slug string) error {
	business, err := s.businesses.GetBySlug(slug)
	if err != nil {
		return err
	}
	if d := s.engine.Check(ctx, actor, authz.ActionBusinessForceDelete, authz.Target{Business: business}); !d.Allow {
		return forbidden(d)
	}

	// Collect members before the rows disappear so their cached roles can be
	// dropped too.
	members, err := s.memberships.ListByBusiness(business.ID)
	if err != nil {
		return err
	}
	if err := s.businesses.ForceDelete(business.ID); err != nil {
		return err
	}
	for _, m := range members {
		if m.UserID != nil {
			s.roleCache.Invalidate(ctx, *m.UserID, business.ID)
		}
	}

	s.auditLog.Record(ctx, audit.Event{
		ActorID:    actor.ID(),
		BusinessID: business.ID,
		Action:     "business_force_delete",
		Resource:   "business",
		ResourceID: business.ID,
		Status:     "ok",
	})
	s.logger.Warn("business force-deleted",
		slog.String("business_id", business.ID),
		slog.String("slug", slug),
		slog.String("actor_id", actor.ID()),
	)
	return nil
}
