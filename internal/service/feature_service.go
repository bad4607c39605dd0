package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yourorg/staffdesk/internal/authz"
	"github.com/yourorg/staffdesk/internal/domain"
	"github.com/yourorg/staffdesk/internal/security/audit"
	"github.com/yourorg/staffdesk/pkg/cache"
)

const entitlementCacheTTL = 30 * time.Second

// FeatureService reads and flips per-business feature entitlements. Reading
// is open to members; flipping is reserved for superadmins, entitlements
// being a billing concern rather than a tenant setting.
type FeatureService struct {
	businesses domain.BusinessRepository
	features   domain.FeatureEntitlementRepository
	engine     *authz.Engine
	auditLog   *audit.Logger
	logger     *slog.Logger

	// Enabled sits on hot paths, so lookups go through a short-TTL cache.
	cache *cache.Cache
}

// NewFeatureService creates a feature entitlement service
func NewFeatureService(businesses domain.BusinessRepository, features domain.FeatureEntitlementRepository, engine *authz.Engine, auditLog *audit.Logger, logger *slog.Logger) *FeatureService {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeatureService{
		businesses: businesses,
		features:   features,
		engine:     engine,
		auditLog:   auditLog,
		logger:     logger,
		cache:      cache.New(),
	}
}

// List returns the entitlements of a business, visible to members
func (s *FeatureService) List(ctx context.Context, actor *authz.Actor, slug string) ([]*domain.FeatureEntitlement, error) {
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
	return s.features.ListByBusiness(business.ID)
}

// Enabled reports whether a feature is switched on for a business. Missing
// entitlement rows read as disabled.
func (s *FeatureService) Enabled(businessID, featureKey string) bool {
	key := businessID + "/" + featureKey
	if v, ok := s.cache.Get(key); ok {
		return v.(bool)
	}
	enabled := false
	if e, err := s.features.Get(businessID, featureKey); err == nil {
		enabled = e.IsEnabled
	}
	s.cache.Set(key, enabled, entitlementCacheTTL)
	return enabled
}

// Set enables or disables a feature for a business. Superadmin only.
func (s *FeatureService) Set(ctx context.Context, actor *authz.Actor, slug, featureKey string, enabled bool, settings map[string]any) (*domain.FeatureEntitlement, error) {
	if featureKey == "" {
		return nil, fmt.Errorf("feature key required")
	}
	business, err := s.businesses.GetBySlug(slug)
	if err != nil {
		return nil, err
	}
	// Entitlements are platform-level state, not tenant settings, so the
	// business-scoped rule table does not apply here.
	if !actor.IsSuperadmin() {
		return nil, forbidden(authz.Decision{Reason: "requires superadmin"})
	}

	actorID := actor.ID()
	now := time.Now()
	e := &domain.FeatureEntitlement{
		BusinessID: business.ID,
		FeatureKey: featureKey,
		IsEnabled:  enabled,
		Settings:   settings,
	}
	if enabled {
		e.EnabledAt = &now
		e.EnabledBy = &actorID
	}
	if err := s.features.Set(e); err != nil {
		return nil, err
	}
	s.cache.Delete(business.ID + "/" + featureKey)

	s.auditLog.Record(ctx, audit.Event{
		ActorID:    actor.ID(),
		BusinessID: business.ID,
		Action:     "feature_set",
		Resource:   "feature_entitlement",
		ResourceID: featureKey,
		Status:     "ok",
		Details:    fmt.Sprintf("enabled=%t", enabled),
	})
	return e, nil
}
