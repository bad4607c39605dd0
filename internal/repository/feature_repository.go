package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/staffdesk/internal/domain"
)

// PostgresFeatureRepository implements domain.FeatureEntitlementRepository
type PostgresFeatureRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresFeatureRepository creates a new feature entitlement repository
func NewPostgresFeatureRepository(db *sql.DB, logger *slog.Logger) *PostgresFeatureRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresFeatureRepository{db: db, logger: logger}
}

// Get retrieves one entitlement pivot row
func (r *PostgresFeatureRepository) Get(businessID, featureKey string) (*domain.FeatureEntitlement, error) {
	e := &domain.FeatureEntitlement{}
	var settings []byte
	err := r.db.QueryRow(`
		SELECT business_id, feature_key, is_enabled, settings, enabled_at, enabled_by, created_at, updated_at
		FROM feature_entitlements
		WHERE business_id = $1 AND feature_key = $2
	`, businessID, featureKey).Scan(&e.BusinessID, &e.FeatureKey, &e.IsEnabled,
		&settings, &e.EnabledAt, &e.EnabledBy, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get entitlement: %w", err)
	}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &e.Settings); err != nil {
			return nil, fmt.Errorf("failed to decode settings: %w", err)
		}
	}
	return e, nil
}

// ListByBusiness returns all entitlement rows for a business
func (r *PostgresFeatureRepository) ListByBusiness(businessID string) ([]*domain.FeatureEntitlement, error) {
	rows, err := r.db.Query(`
		SELECT business_id, feature_key, is_enabled, settings, enabled_at, enabled_by, created_at, updated_at
		FROM feature_entitlements
		WHERE business_id = $1
		ORDER BY feature_key
	`, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entitlements: %w", err)
	}
	defer rows.Close()

	var out []*domain.FeatureEntitlement
	for rows.Next() {
		e := &domain.FeatureEntitlement{}
		var settings []byte
		if err := rows.Scan(&e.BusinessID, &e.FeatureKey, &e.IsEnabled,
			&settings, &e.EnabledAt, &e.EnabledBy, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan entitlement: %w", err)
		}
		if len(settings) > 0 {
			if err := json.Unmarshal(settings, &e.Settings); err != nil {
				return nil, fmt.Errorf("failed to decode settings: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Set upserts the pivot row for (business, feature)
func (r *PostgresFeatureRepository) Set(e *domain.FeatureEntitlement) error {
	settings, err := json.Marshal(e.Settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	err = r.db.QueryRow(`
		INSERT INTO feature_entitlements
			(business_id, feature_key, is_enabled, settings, enabled_at, enabled_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (business_id, feature_key) DO UPDATE SET
			is_enabled = EXCLUDED.is_enabled,
			settings = EXCLUDED.settings,
			enabled_at = EXCLUDED.enabled_at,
			enabled_by = EXCLUDED.enabled_by,
			updated_at = now()
		RETURNING created_at, updated_at
	`, e.BusinessID, e.FeatureKey, e.IsEnabled, settings, e.EnabledAt, e.EnabledBy).
		Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to set entitlement: %w", err)
	}
	return nil
}
