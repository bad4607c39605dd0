package domain

import "time"

// BusinessRole is a role held within a single business via a membership row
type BusinessRole string

const (
	BusinessRoleOwner      BusinessRole = "owner"
	BusinessRoleAdmin      BusinessRole = "admin"
	BusinessRoleManager    BusinessRole = "manager"
	BusinessRoleEmployee   BusinessRole = "employee"
	BusinessRoleContractor BusinessRole = "contractor"
	BusinessRoleViewer     BusinessRole = "viewer"
)

// ParseBusinessRole returns the role for s, or false if s names no known role
func ParseBusinessRole(s string) (BusinessRole, bool) {
	switch BusinessRole(s) {
	case BusinessRoleOwner, BusinessRoleAdmin, BusinessRoleManager,
		BusinessRoleEmployee, BusinessRoleContractor, BusinessRoleViewer:
		return BusinessRole(s), true
	}
	return "", false
}

// EmploymentStatus tracks the employment relationship on a membership row
type EmploymentStatus string

const (
	EmploymentStatusActive     EmploymentStatus = "active"
	EmploymentStatusOnLeave    EmploymentStatus = "on_leave"
	EmploymentStatusTerminated EmploymentStatus = "terminated"
)

// InviteState is the derived invitation state of a membership row
type InviteState string

const (
	InviteStateNone     InviteState = "none"     // no row
	InviteStateInvited  InviteState = "invited"  // token set, not yet accepted
	InviteStateAccepted InviteState = "accepted" // token cleared, timestamp set
)

// Membership is the pivot between a user and a business. UserID is nil while
// an invitation is pending for an email that has no registered user yet.
type Membership struct {
	ID                   string // UUID
	BusinessID           string
	UserID               *string
	Email                string // Invitation target email; kept after accept
	Role                 BusinessRole
	EmploymentStatus     EmploymentStatus
	JoinedDate           *time.Time
	InvitationToken      *string    // Set only while InvitationAcceptedAt is nil
	InvitationAcceptedAt *time.Time // Nil means pending or not-invited
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// State derives the invitation state from the row's token and timestamp
func (m *Membership) State() InviteState {
	if m == nil {
		return InviteStateNone
	}
	if m.InvitationAcceptedAt != nil {
		return InviteStateAccepted
	}
	if m.InvitationToken != nil {
		return InviteStateInvited
	}
	// A row created by direct admin action has no invitation at all; it counts
	// as accepted for membership purposes.
	return InviteStateAccepted
}

// Accepted reports whether the row grants standing in the business
func (m *Membership) Accepted() bool {
	return m.State() == InviteStateAccepted
}

// MembershipRepository defines data access for the membership ledger.
// The store enforces at most one row per (user_id, business_id) and a unique
// invitation token, which serializes concurrent accepts of the same token.
type MembershipRepository interface {
	// GetMember returns the membership row for (userID, businessID), or
	// ErrMembershipNotFound.
	GetMember(userID, businessID string) (*Membership, error)
	// RoleOf returns the business role userID holds in businessID. The second
	// return is false when no accepted membership row exists.
	RoleOf(userID, businessID string) (BusinessRole, bool, error)
	// StatusOf returns the employment status, with false when no accepted row
	// exists.
	StatusOf(userID, businessID string) (EmploymentStatus, bool, error)
	// Upsert creates or updates the row keyed by (business_id, email).
	// Returns ErrConflict when the insert would duplicate an active
	// (user_id, business_id) pair.
	Upsert(m *Membership) error
	// Remove hard-deletes the pivot row. Pivot rows are not independently
	// recoverable.
	Remove(userID, businessID string) error
	// GetByInvitationToken returns the pending row holding token, or
	// ErrInvitationNotFound.
	GetByInvitationToken(token string) (*Membership, error)
	// AcceptInvitation atomically binds the pending row matching token and
	// email to userID, clears the token, and stamps the acceptance time.
	// Returns false with no error when no pending row matches (stale token,
	// wrong email, or already accepted) so callers can treat reuse as a no-op.
	AcceptInvitation(token, email, userID string) (bool, error)
	// DeleteByInvitationToken removes the pending row holding token. Returns
	// ErrInvitationNotFound when no pending row matches.
	DeleteByInvitationToken(token string) error
	ListByBusiness(businessID string) ([]*Membership, error)
	ListByUser(userID string) ([]*Membership, error)
	// DeleteExpiredInvitations removes pending rows created before cutoff and
	// reports how many were removed.
	DeleteExpiredInvitations(cutoff time.Time) (int, error)
}
