package authz

import "github.com/yourorg/staffdesk/internal/domain"

// Actor is the fully resolved identity a policy decision runs against. It is
// always passed explicitly; policies never read ambient request state.
type Actor struct {
	User        *domain.User
	Profile     *domain.Profile
	Permissions map[domain.Permission]bool
}

// NewActor builds an actor from its identity records and named permissions
func NewActor(user *domain.User, profile *domain.Profile, perms []domain.Permission) *Actor {
	set := make(map[domain.Permission]bool, len(perms))
	for _, p := range perms {
		set[p] = true
	}
	return &Actor{User: user, Profile: profile, Permissions: set}
}

// ID returns the acting user's id, or "" for a nil actor
func (a *Actor) ID() string {
	if a == nil || a.User == nil {
		return ""
	}
	return a.User.ID
}

// GlobalRole returns the actor's profile role
func (a *Actor) GlobalRole() domain.GlobalRole {
	if a == nil || a.Profile == nil {
		return domain.GlobalRoleNone
	}
	return a.Profile.Role
}

// IsSuperadmin reports whether the actor holds the superadmin global role
func (a *Actor) IsSuperadmin() bool {
	return a.GlobalRole() == domain.GlobalRoleSuperadmin
}

// Has reports whether the actor holds the named permission
func (a *Actor) Has(perm domain.Permission) bool {
	if a == nil {
		return false
	}
	return a.Permissions[perm]
}

// Is reports whether the actor is the given user
func (a *Actor) Is(userID string) bool {
	return a.ID() != "" && a.ID() == userID
}
