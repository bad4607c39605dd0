package domain

import "time"

// Business represents a tenant sharing the deployment
type Business struct {
	ID          string // UUID
	Slug        string // Immutable unique external key
	Name        string
	OwnerUserID string // User that created the business
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time // Soft-delete marker
}

// Deleted reports whether the business has been soft-deleted
func (b *Business) Deleted() bool {
	return b != nil && b.DeletedAt != nil
}

// BusinessRepository defines data access for businesses
type BusinessRepository interface {
	Create(business *Business) error
	GetByID(id string) (*Business, error)
	// GetBySlug resolves a business from its external key. Soft-deleted
	// businesses are still returned so restore and force-delete can find them.
	GetBySlug(slug string) (*Business, error)
	Update(business *Business) error
	SoftDelete(id string) error
	Restore(id string) error
	// ForceDelete hard-removes the business and its membership rows.
	ForceDelete(id string) error
	ListForUser(userID string) ([]*Business, error)
	List() ([]*Business, error)
}
