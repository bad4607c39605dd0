package domain

import "errors"

// Sentinel errors let the handler layer map internal outcomes to HTTP status
// codes without string matching.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")

	ErrUserNotFound     = errors.New("user not found")
	ErrBusinessNotFound = errors.New("business not found")

	// ErrAlreadyMember is returned when inviting a user who already holds an
	// accepted membership in the target business.
	ErrAlreadyMember = errors.New("user is already a member of this business")

	ErrMembershipNotFound = errors.New("membership not found")
	ErrInvitationNotFound = errors.New("invitation not found")

	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid credentials")
)
