package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/yourorg/staffdesk/internal/domain"
)

// PostgresBusinessRepository implements domain.BusinessRepository using PostgreSQL
type PostgresBusinessRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresBusinessRepository creates a new business repository
func NewPostgresBusinessRepository(db *sql.DB, logger *slog.Logger) *PostgresBusinessRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresBusinessRepository{db: db, logger: logger}
}

// Create creates a new business
func (r *PostgresBusinessRepository) Create(business *domain.Business) error {
	if business.ID == "" {
		business.ID = uuid.NewString()
	}
	err := r.db.QueryRow(`
		INSERT INTO businesses (id, slug, name, owner_user_id)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, business.ID, business.Slug, business.Name, business.OwnerUserID).
		Scan(&business.CreatedAt, &business.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("slug %q: %w", business.Slug, domain.ErrConflict)
		}
		r.logger.Error("failed to create business",
			slog.String("slug", business.Slug),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create business: %w", err)
	}
	return nil
}

func scanBusiness(row *sql.Row) (*domain.Business, error) {
	b := &domain.Business{}
	err := row.Scan(&b.ID, &b.Slug, &b.Name, &b.OwnerUserID, &b.CreatedAt, &b.UpdatedAt, &b.DeletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBusinessNotFound
		}
		return nil, fmt.Errorf("failed to get business: %w", err)
	}
	return b, nil
}

// GetByID retrieves a business by ID, including soft-deleted rows
func (r *PostgresBusinessRepository) GetByID(id string) (*domain.Business, error) {
	return scanBusiness(r.db.QueryRow(`
		SELECT id, slug, name, owner_user_id, created_at, updated_at, deleted_at
		FROM businesses
		WHERE id = $1
	`, id))
}

// GetBySlug retrieves a business by its external key, including soft-deleted
// rows so restore and force-delete can resolve them.
func (r *PostgresBusinessRepository) GetBySlug(slug string) (*domain.Business, error) {
	return scanBusiness(r.db.QueryRow(`
		SELECT id, slug, name, owner_user_id, created_at, updated_at, deleted_at
		FROM businesses
		WHERE slug = $1
	`, slug))
}

// Update updates the mutable fields of a business. The slug is immutable.
func (r *PostgresBusinessRepository) Update(business *domain.Business) error {
	err := r.db.QueryRow(`
		UPDATE businesses
		SET name = $1
		WHERE id = $2 AND deleted_at IS NULL
		RETURNING updated_at
	`, business.Name, business.ID).Scan(&business.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrBusinessNotFound
		}
		return fmt.Errorf("failed to update business: %w", err)
	}
	return nil
}

// SoftDelete marks a business deleted; membership rows remain queryable
func (r *PostgresBusinessRepository) SoftDelete(id string) error {
	res, err := r.db.Exec(`
		UPDATE businesses SET deleted_at = now() WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete business: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrBusinessNotFound
	}
	return nil
}

// Restore clears the soft-delete marker
func (r *PostgresBusinessRepository) Restore(id string) error {
	res, err := r.db.Exec(`
		UPDATE businesses SET deleted_at = NULL WHERE id = $1 AND deleted_at IS NOT NULL
	`, id)
	if err != nil {
		return fmt.Errorf("failed to restore business: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrBusinessNotFound
	}
	return nil
}

// ForceDelete hard-removes the business and its membership rows in one
// transaction.
func (r *PostgresBusinessRepository) ForceDelete(id string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM memberships WHERE business_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete memberships: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM feature_entitlements WHERE business_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete entitlements: %w", err)
	}
	res, err := tx.Exec(`DELETE FROM businesses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete business: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrBusinessNotFound
	}
	return tx.Commit()
}

// ListForUser returns the active businesses where userID holds an accepted
// membership.
func (r *PostgresBusinessRepository) ListForUser(userID string) ([]*domain.Business, error) {
	rows, err := r.db.Query(`
		SELECT b.id, b.slug, b.name, b.owner_user_id, b.created_at, b.updated_at, b.deleted_at
		FROM businesses b
		JOIN memberships m ON m.business_id = b.id
		WHERE m.user_id = $1 AND m.invitation_token IS NULL AND b.deleted_at IS NULL
		ORDER BY b.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list businesses: %w", err)
	}
	defer rows.Close()
	return collectBusinesses(rows)
}

// List returns all businesses, including soft-deleted ones
func (r *PostgresBusinessRepository) List() ([]*domain.Business, error) {
	rows, err := r.db.Query(`
		SELECT id, slug, name, owner_user_id, created_at, updated_at, deleted_at
		FROM businesses
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list businesses: %w", err)
	}
	defer rows.Close()
	return collectBusinesses(rows)
}

func collectBusinesses(rows *sql.Rows) ([]*domain.Business, error) {
	var out []*domain.Business
	for rows.Next() {
		b := &domain.Business{}
		if err := rows.Scan(&b.ID, &b.Slug, &b.Name, &b.OwnerUserID,
			&b.CreatedAt, &b.UpdatedAt, &b.DeletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan business: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
