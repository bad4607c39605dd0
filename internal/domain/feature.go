package domain

import "time"

// FeatureEntitlement is the business-feature pivot. It is a read-only input
// to authorization elsewhere; it carries the same pivot shape as memberships.
type FeatureEntitlement struct {
	BusinessID string
	FeatureKey string
	IsEnabled  bool
	Settings   map[string]any
	EnabledAt  *time.Time
	EnabledBy  *string // User that last enabled the feature
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// FeatureEntitlementRepository defines data access for feature entitlements
type FeatureEntitlementRepository interface {
	Get(businessID, featureKey string) (*FeatureEntitlement, error)
	ListByBusiness(businessID string) ([]*FeatureEntitlement, error)
	// Set enables or disables a feature for a business, recording who flipped
	// it and when.
	Set(e *FeatureEntitlement) error
}
