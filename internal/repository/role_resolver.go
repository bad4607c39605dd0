package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yourorg/staffdesk/internal/domain"
	"github.com/yourorg/staffdesk/internal/infrastructure/redis"
	"github.com/yourorg/staffdesk/internal/observability/metrics"
	"github.com/yourorg/staffdesk/internal/reliability/circuitbreaker"
)

// noRole marks a cached negative lookup so missing memberships do not hammer
// the database.
const noRole = "-"

// DBRoleResolver answers role lookups straight from the membership ledger
type DBRoleResolver struct {
	memberships domain.MembershipRepository
}

// NewDBRoleResolver creates a resolver backed by the membership repository
func NewDBRoleResolver(memberships domain.MembershipRepository) *DBRoleResolver {
	return &DBRoleResolver{memberships: memberships}
}

// RoleOf implements authz.RoleResolver
func (r *DBRoleResolver) RoleOf(_ context.Context, userID, businessID string) (domain.BusinessRole, bool, error) {
	return r.memberships.RoleOf(userID, businessID)
}

// CachedRoleResolver fronts a resolver with a short-TTL Redis cache.
// Authorization checks are read-only and repeatable, so a brief staleness
// window is acceptable; membership mutations call Invalidate to shrink it.
// A circuit breaker keeps a failing Redis from slowing every decision down.
type CachedRoleResolver struct {
	next    interface {
		RoleOf(ctx context.Context, userID, businessID string) (domain.BusinessRole, bool, error)
	}
	cache   *redis.Client
	breaker *circuitbreaker.CircuitBreaker
	ttl     time.Duration
	logger  *slog.Logger
}

// NewCachedRoleResolver creates a caching resolver over next
func NewCachedRoleResolver(next *DBRoleResolver, cache *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedRoleResolver {
	if logger == nil {
		logger = slog.Default()
	}
	breaker := circuitbreaker.NewCircuitBreaker(5, 2, 30*time.Second)
	breaker.SetStateChangeCallback(func(from, to circuitbreaker.State) {
		logger.Warn("role cache circuit state changed",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})
	return &CachedRoleResolver{
		next:    next,
		cache:   cache,
		breaker: breaker,
		ttl:     ttl,
		logger:  logger,
	}
}

func roleCacheKey(userID, businessID string) string {
	return fmt.Sprintf("role:%s:%s", businessID, userID)
}

// RoleOf implements authz.RoleResolver
func (r *CachedRoleResolver) RoleOf(ctx context.Context, userID, businessID string) (domain.BusinessRole, bool, error) {
	key := roleCacheKey(userID, businessID)

	if r.breaker.AllowRequest() {
		cached, err := r.cache.Get(ctx, key)
		if err == nil {
			r.breaker.RecordSuccess()
			metrics.ObserveRoleCache("hit")
			if cached == noRole {
				return "", false, nil
			}
			return domain.BusinessRole(cached), true, nil
		}
		if redis.IsNil(err) {
			r.breaker.RecordSuccess()
			metrics.ObserveRoleCache("miss")
		} else {
			r.breaker.RecordFailure()
			metrics.ObserveRoleCache("bypass")
			r.logger.Warn("role cache unavailable, falling back to store",
				slog.String("error", err.Error()),
			)
		}
	} else {
		metrics.ObserveRoleCache("bypass")
	}

	role, ok, err := r.next.RoleOf(ctx, userID, businessID)
	if err != nil {
		return "", false, err
	}

	value := noRole
	if ok {
		value = string(role)
	}
	if r.breaker.AllowRequest() {
		if err := r.cache.Set(ctx, key, value, r.ttl); err != nil {
			r.breaker.RecordFailure()
		} else {
			r.breaker.RecordSuccess()
		}
	}
	return role, ok, nil
}

// Invalidate drops the cached role for (userID, businessID). Called after
// every membership mutation.
func (r *CachedRoleResolver) Invalidate(ctx context.Context, userID, businessID string) {
	if userID == "" {
		return
	}
	if err := r.cache.Delete(ctx, roleCacheKey(userID, businessID)); err != nil && !redis.IsNil(err) {
		r.logger.Warn("failed to invalidate role cache",
			slog.String("user_id", userID),
			slog.String("business_id", businessID),
			slog.String("error", err.Error()),
		)
	}
}
