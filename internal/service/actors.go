package service

import (
	"fmt"

	"github.com/yourorg/staffdesk/internal/authz"
	"github.com/yourorg/staffdesk/internal/domain"
)

// ActorResolver loads the full identity behind a user id so policies always
// receive an explicit actor instead of reading ambient request state.
type ActorResolver struct {
	users domain.UserRepository
}

// NewActorResolver creates an actor resolver
func NewActorResolver(users domain.UserRepository) *ActorResolver {
	return &ActorResolver{users: users}
}

// Resolve builds the actor for userID. A missing or soft-deleted user maps
// to ErrUnauthenticated: the request carried credentials for nobody.
func (r *ActorResolver) Resolve(userID string) (*authz.Actor, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	user, err := r.users.GetByID(userID)
	if err != nil {
		return nil, domain.ErrUnauthenticated
	}
	if user.Deleted() {
		return nil, domain.ErrUnauthenticated
	}
	profile, err := r.users.GetProfile(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	perms, err := r.users.ListPermissions(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load permissions: %w", err)
	}
	return authz.NewActor(user, profile, perms), nil
}

// forbidden wraps a policy denial into the sentinel the handlers map to 403
func forbidden(d authz.Decision) error {
	return fmt.Errorf("%s: %w", d.Reason, domain.ErrForbidden)
}
