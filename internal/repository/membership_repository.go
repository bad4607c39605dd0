package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/yourorg/staffdesk/internal/domain"
)

// PostgresMembershipRepository implements domain.MembershipRepository.
//
// The memberships table carries unique constraints on (user_id, business_id)
// and on invitation_token; those back the at-most-one-active-membership
// invariant and serialize concurrent accepts of the same token.
type PostgresMembershipRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresMembershipRepository creates a new membership repository
func NewPostgresMembershipRepository(db *sql.DB, logger *slog.Logger) *PostgresMembershipRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresMembershipRepository{db: db, logger: logger}
}

const membershipColumns = `
	id, business_id, user_id, email, role, employment_status, joined_date,
	invitation_token, invitation_accepted_at, created_at, updated_at
`

func scanMembership(row interface{ Scan(...any) error }) (*domain.Membership, error) {
	m := &domain.Membership{}
	var role, status string
	err := row.Scan(&m.ID, &m.BusinessID, &m.UserID, &m.Email, &role, &status,
		&m.JoinedDate, &m.InvitationToken, &m.InvitationAcceptedAt, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	m.Role = domain.BusinessRole(role)
	m.EmploymentStatus = domain.EmploymentStatus(status)
	return m, nil
}

// GetMember returns the membership row for (userID, businessID)
func (r *PostgresMembershipRepository) GetMember(userID, businessID string) (*domain.Membership, error) {
	m, err := scanMembership(r.db.QueryRow(`
		SELECT `+membershipColumns+`
		FROM memberships
		WHERE user_id = $1 AND business_id = $2
	`, userID, businessID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMembershipNotFound
		}
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return m, nil
}

// RoleOf returns the business role userID holds in businessID. Rows still in
// the invited state grant no role.
func (r *PostgresMembershipRepository) RoleOf(userID, businessID string) (domain.BusinessRole, bool, error) {
	var role string
	err := r.db.QueryRow(`
		SELECT role FROM memberships
		WHERE user_id = $1 AND business_id = $2 AND invitation_token IS NULL
	`, userID, businessID).Scan(&role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to look up role: %w", err)
	}
	return domain.BusinessRole(role), true, nil
}

// StatusOf returns the employment status userID holds in businessID
func (r *PostgresMembershipRepository) StatusOf(userID, businessID string) (domain.EmploymentStatus, bool, error) {
	var status string
	err := r.db.QueryRow(`
		SELECT employment_status FROM memberships
		WHERE user_id = $1 AND business_id = $2 AND invitation_token IS NULL
	`, userID, businessID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to look up status: %w", err)
	}
	return domain.EmploymentStatus(status), true, nil
}

// Upsert creates or updates the row keyed by (business_id, email). A unique
// violation on (user_id, business_id) surfaces as ErrConflict.
func (r *PostgresMembershipRepository) Upsert(m *domain.Membership) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	err := r.db.QueryRow(`
		INSERT INTO memberships
			(id, business_id, user_id, email, role, employment_status, joined_date,
			 invitation_token, invitation_accepted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (business_id, email) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			role = EXCLUDED.role,
			employment_status = EXCLUDED.employment_status,
			joined_date = EXCLUDED.joined_date,
			invitation_token = EXCLUDED.invitation_token,
			invitation_accepted_at = EXCLUDED.invitation_accepted_at,
			updated_at = now()
		RETURNING id, created_at, updated_at
	`, m.ID, m.BusinessID, m.UserID, m.Email, string(m.Role), string(m.EmploymentStatus),
		m.JoinedDate, m.InvitationToken, m.InvitationAcceptedAt).
		Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		r.logger.Error("failed to upsert membership",
			slog.String("business_id", m.BusinessID),
			slog.String("email", m.Email),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to upsert membership: %w", err)
	}
	return nil
}

// Remove hard-deletes the pivot row
func (r *PostgresMembershipRepository) Remove(userID, businessID string) error {
	res, err := r.db.Exec(`
		DELETE FROM memberships WHERE user_id = $1 AND business_id = $2
	`, userID, businessID)
	if err != nil {
		return fmt.Errorf("failed to remove membership: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrMembershipNotFound
	}
	return nil
}

// GetByInvitationToken returns the pending row holding token
func (r *PostgresMembershipRepository) GetByInvitationToken(token string) (*domain.Membership, error) {
	m, err := scanMembership(r.db.QueryRow(`
		SELECT `+membershipColumns+`
		FROM memberships
		WHERE invitation_token = $1 AND invitation_accepted_at IS NULL
	`, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return m, nil
}

// AcceptInvitation consumes the token in a single conditional update. The
// row lock taken by the update serializes concurrent accepts: exactly one
// caller sees a row transition, every other caller gets false.
func (r *PostgresMembershipRepository) AcceptInvitation(token, email, userID string) (bool, error) {
	res, err := r.db.Exec(`
		UPDATE memberships
		SET user_id = $3,
		    invitation_token = NULL,
		    invitation_accepted_at = now(),
		    joined_date = COALESCE(joined_date, now()),
		    updated_at = now()
		WHERE invitation_token = $1
		  AND email = $2
		  AND invitation_accepted_at IS NULL
	`, token, email, userID)
	if err != nil {
		return false, fmt.Errorf("failed to accept invitation: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return rows == 1, nil
}

// DeleteByInvitationToken removes the pending row holding token. Declined
// invitations leave no trace.
func (r *PostgresMembershipRepository) DeleteByInvitationToken(token string) error {
	res, err := r.db.Exec(`
		DELETE FROM memberships
		WHERE invitation_token = $1 AND invitation_accepted_at IS NULL
	`, token)
	if err != nil {
		return fmt.Errorf("failed to decline invitation: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrInvitationNotFound
	}
	return nil
}

// ListByBusiness returns all membership rows for a business, pending included
func (r *PostgresMembershipRepository) ListByBusiness(businessID string) ([]*domain.Membership, error) {
	rows, err := r.db.Query(`
		SELECT `+membershipColumns+`
		FROM memberships
		WHERE business_id = $1
		ORDER BY created_at
	`, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()
	return collectMemberships(rows)
}

// ListByUser returns all membership rows held by a user
func (r *PostgresMembershipRepository) ListByUser(userID string) ([]*domain.Membership, error) {
	rows, err := r.db.Query(`
		SELECT `+membershipColumns+`
		FROM memberships
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()
	return collectMemberships(rows)
}

// DeleteExpiredInvitations removes pending rows created before cutoff
func (r *PostgresMembershipRepository) DeleteExpiredInvitations(cutoff time.Time) (int, error) {
	res, err := r.db.Exec(`
		DELETE FROM memberships
		WHERE invitation_token IS NOT NULL
		  AND invitation_accepted_at IS NULL
		  AND created_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to reap invitations: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return int(rows), nil
}

func collectMemberships(rows *sql.Rows) ([]*domain.Membership, error) {
	var out []*domain.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
