package domain

import "time"

// GlobalRole is a role stored on a user's profile, independent of any
// business. The zero value means no global role.
type GlobalRole string

const (
	GlobalRoleNone          GlobalRole = ""
	GlobalRoleSuperadmin    GlobalRole = "superadmin"
	GlobalRoleBusinessAdmin GlobalRole = "business_admin"
	GlobalRoleManager       GlobalRole = "manager"
	GlobalRoleEmployee      GlobalRole = "employee"
)

// ParseGlobalRole returns the role for s, or false if s names no known role.
// The empty string is valid and means "no global role".
func ParseGlobalRole(s string) (GlobalRole, bool) {
	switch GlobalRole(s) {
	case GlobalRoleNone, GlobalRoleSuperadmin, GlobalRoleBusinessAdmin, GlobalRoleManager, GlobalRoleEmployee:
		return GlobalRole(s), true
	}
	return GlobalRoleNone, false
}

// ProfileStatus is the account status carried on a profile
type ProfileStatus string

const (
	ProfileStatusActive    ProfileStatus = "active"
	ProfileStatusInactive  ProfileStatus = "inactive"
	ProfileStatusSuspended ProfileStatus = "suspended"
)

// User represents a system user
type User struct {
	ID           string // UUID
	Email        string // Unique email address
	Name         string
	PasswordHash string // Bcrypt hashed password (not returned in API)
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time // Soft-delete marker
}

// Deleted reports whether the user has been soft-deleted
func (u *User) Deleted() bool {
	return u != nil && u.DeletedAt != nil
}

// Profile holds the coarse global role and status for a user. Every user owns
// exactly one profile row.
type Profile struct {
	UserID    string
	Role      GlobalRole
	Status    ProfileStatus
	Phone     string
	JobTitle  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Permission is a named fine-grained grant held by a user, checked by the
// authorization engine as a fallback to role-based rules.
type Permission string

const (
	PermUsersView   Permission = "users.view"
	PermUsersCreate Permission = "users.create"
	PermUsersEdit   Permission = "users.edit"
	PermUsersDelete Permission = "users.delete"
	PermUsersInvite Permission = "users.invite"
)

// UserRepository defines data access for users, profiles, and permissions
type UserRepository interface {
	Create(user *User, profile *Profile) error
	GetByID(id string) (*User, error)
	GetByEmail(email string) (*User, error)
	GetProfile(userID string) (*Profile, error)
	Update(user *User) error
	UpdateProfile(profile *Profile) error
	SetGlobalRole(userID string, role GlobalRole) error
	SoftDelete(id string) error
	List() ([]*User, error)
	ListPermissions(userID string) ([]Permission, error)
	GrantPermission(userID string, perm Permission) error
}
