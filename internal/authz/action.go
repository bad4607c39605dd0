package authz

import "github.com/yourorg/staffdesk/internal/domain"

// Action names an operation submitted to the engine
type Action string

const (
	ActionBusinessView        Action = "business.view"
	ActionBusinessViewDetail  Action = "business.view_detail"
	ActionBusinessCreate      Action = "business.create"
	ActionBusinessUpdate      Action = "business.update"
	ActionBusinessDelete      Action = "business.delete"
	ActionBusinessRestore     Action = "business.restore"
	ActionBusinessForceDelete Action = "business.force_delete"
	ActionBusinessInvite      Action = "business.invite"
	ActionBusinessManageUsers Action = "business.manage_users"
	ActionBusinessManageUser  Action = "business.manage_user"
	ActionBusinessAnalytics   Action = "business.analytics"
	ActionBusinessSettings    Action = "business.settings"

	ActionUserViewAny     Action = "user.view_any"
	ActionUserView        Action = "user.view"
	ActionUserUpdate      Action = "user.update"
	ActionUserDelete      Action = "user.delete"
	ActionUserChangeRole  Action = "user.change_role"
	ActionUserImpersonate Action = "user.impersonate"
)

// businessActionRoles lists the business roles that satisfy each
// business-scoped action. Ranking is action-specific, not a single total
// order, so each action carries its own set.
var businessActionRoles = map[Action][]domain.BusinessRole{
	ActionBusinessUpdate:      {domain.BusinessRoleOwner, domain.BusinessRoleAdmin},
	ActionBusinessDelete:      {domain.BusinessRoleOwner},
	ActionBusinessInvite:      {domain.BusinessRoleOwner},
	ActionBusinessManageUsers: {domain.BusinessRoleOwner, domain.BusinessRoleAdmin},
	ActionBusinessAnalytics:   {domain.BusinessRoleOwner, domain.BusinessRoleAdmin, domain.BusinessRoleManager},
	ActionBusinessSettings:    {domain.BusinessRoleOwner, domain.BusinessRoleAdmin},
}

// businessActionPerms lists named-permission fallbacks. Only some actions
// carry fallbacks; the per-action table is preserved as-is rather than
// unified, since unifying would silently change outcomes.
var businessActionPerms = map[Action][]domain.Permission{
	ActionBusinessInvite: {domain.PermUsersCreate, domain.PermUsersInvite},
}
