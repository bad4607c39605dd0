package authz

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yourorg/staffdesk/internal/domain"
	"github.com/yourorg/staffdesk/internal/observability/metrics"
)

// Decision is the outcome of a policy check. Denials always carry a reason;
// the engine never returns an error, absence of a rule is deny-by-default.
type Decision struct {
	Allow  bool   `json:"allow"`
	Reason string `json:"reason,omitempty"`
}

const (
	ReasonUnauthenticated = "unauthenticated"
	ReasonSuperadmin      = "superadmin bypass"
	ReasonSelf            = "self"
	ReasonSelfDenied      = "action not permitted on own account"
	ReasonNoMembership    = "no membership in business"
	ReasonLookupFailed    = "membership lookup failed"
	ReasonNoRule          = "no rule grants this action"
)

func allow(reason string) Decision { return Decision{Allow: true, Reason: reason} }
func deny(reason string) Decision  { return Decision{Allow: false, Reason: reason} }

// RoleResolver looks up the business role a user holds in a business. The
// second return is false when no accepted membership exists.
type RoleResolver interface {
	RoleOf(ctx context.Context, userID, businessID string) (domain.BusinessRole, bool, error)
}

// Engine evaluates the per-action rule table. Checks are read-only and
// deterministic given current identity and ledger state.
type Engine struct {
	roles  RoleResolver
	logger *slog.Logger
}

// NewEngine creates an authorization engine
func NewEngine(roles RoleResolver, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{roles: roles, logger: logger}
}

// Target carries the optional targets of a check
type Target struct {
	Business *domain.Business
	User     *domain.User
	// UserRole is the target user's global role, needed by the delete,
	// change-role, and impersonate rules.
	UserRole domain.GlobalRole
	// NewRole is the role being assigned in a change-role check.
	NewRole domain.GlobalRole
}

// Check evaluates action for actor against the optional targets. A nil actor
// is reported as unauthenticated before any rule runs.
func (e *Engine) Check(ctx context.Context, actor *Actor, action Action, target Target) Decision {
	d := e.check(ctx, actor, action, target)
	outcome := "deny"
	if d.Allow {
		outcome = "allow"
	}
	metrics.ObserveAuthzDecision(string(action), outcome)
	if !d.Allow {
		e.logger.Debug("authorization denied",
			slog.String("actor_id", actor.ID()),
			slog.String("action", string(action)),
			slog.String("reason", d.Reason),
		)
	}
	return d
}

func (e *Engine) check(ctx context.Context, actor *Actor, action Action, target Target) Decision {
	if actor.ID() == "" {
		return deny(ReasonUnauthenticated)
	}

	switch action {
	case ActionBusinessView:
		// Listing is pre-filtered to accessible businesses elsewhere.
		return allow("")
	case ActionBusinessViewDetail:
		return e.viewBusinessDetail(ctx, actor, target.Business)
	case ActionBusinessCreate:
		return e.createBusiness(actor)
	case ActionBusinessRestore, ActionBusinessForceDelete:
		if actor.IsSuperadmin() {
			return allow(ReasonSuperadmin)
		}
		return deny("requires superadmin")
	case ActionBusinessUpdate, ActionBusinessDelete, ActionBusinessInvite,
		ActionBusinessManageUsers, ActionBusinessAnalytics, ActionBusinessSettings:
		return e.businessScoped(ctx, actor, action, target.Business)
	case ActionBusinessManageUser:
		return e.manageBusinessUser(ctx, actor, target.Business, target.User)
	case ActionUserViewAny:
		return e.viewAnyUser(actor)
	case ActionUserView:
		return e.viewUser(actor, target.User)
	case ActionUserUpdate:
		return e.updateUser(actor, target.User)
	case ActionUserDelete:
		return e.deleteUser(actor, target.User, target.UserRole)
	case ActionUserChangeRole:
		return e.changeUserRole(actor, target.User, target.UserRole, target.NewRole)
	case ActionUserImpersonate:
		return e.impersonateUser(actor, target.User, target.UserRole)
	}
	return deny(ReasonNoRule)
}

// ViewBusinessDetail allows superadmins and members
func (e *Engine) ViewBusinessDetail(ctx context.Context, actor *Actor, business *domain.Business) Decision {
	return e.Check(ctx, actor, ActionBusinessViewDetail, Target{Business: business})
}

func (e *Engine) viewBusinessDetail(ctx context.Context, actor *Actor, business *domain.Business) Decision {
	if actor.IsSuperadmin() {
		return allow(ReasonSuperadmin)
	}
	if business == nil {
		return deny(ReasonNoMembership)
	}
	_, ok, err := e.resolveRole(ctx, actor.ID(), business.ID)
	if err != nil {
		return deny(ReasonLookupFailed)
	}
	if !ok {
		return deny(ReasonNoMembership)
	}
	return allow("membership")
}

// CreateBusiness allows superadmins and global business admins
func (e *Engine) CreateBusiness(actor *Actor) Decision {
	return e.Check(context.Background(), actor, ActionBusinessCreate, Target{})
}

func (e *Engine) createBusiness(actor *Actor) Decision {
	if actor.IsSuperadmin() {
		return allow(ReasonSuperadmin)
	}
	if actor.GlobalRole() == domain.GlobalRoleBusinessAdmin {
		return allow("global role business_admin")
	}
	return deny("requires business_admin global role")
}

// businessScoped evaluates actions gated by the actor's role in the target
// business, with named-permission fallbacks where the table defines them.
func (e *Engine) businessScoped(ctx context.Context, actor *Actor, action Action, business *domain.Business) Decision {
	if actor.IsSuperadmin() {
		return allow(ReasonSuperadmin)
	}
	if business == nil {
		return deny(ReasonNoMembership)
	}
	role, ok, err := e.resolveRole(ctx, actor.ID(), business.ID)
	if err != nil {
		return deny(ReasonLookupFailed)
	}
	if ok {
		for _, allowed := range businessActionRoles[action] {
			if role == allowed {
				return allow(fmt.Sprintf("business role %s", role))
			}
		}
	}
	for _, perm := range businessActionPerms[action] {
		if actor.Has(perm) {
			return allow(fmt.Sprintf("permission %s", perm))
		}
	}
	if !ok {
		return deny(ReasonNoMembership)
	}
	return deny(fmt.Sprintf("business role %s does not grant %s", role, action))
}

// ManageBusinessUser decides whether actor may manage target inside business.
// Owners manage anyone; admins manage anyone except an owner; managing
// yourself is always denied.
func (e *Engine) ManageBusinessUser(ctx context.Context, actor *Actor, business *domain.Business, target *domain.User) Decision {
	return e.Check(ctx, actor, ActionBusinessManageUser, Target{Business: business, User: target})
}

func (e *Engine) manageBusinessUser(ctx context.Context, actor *Actor, business *domain.Business, target *domain.User) Decision {
	if target != nil && actor.Is(target.ID) {
		return deny(ReasonSelfDenied)
	}
	if actor.IsSuperadmin() {
		return allow(ReasonSuperadmin)
	}
	if business == nil || target == nil {
		return deny(ReasonNoMembership)
	}
	actorRole, ok, err := e.resolveRole(ctx, actor.ID(), business.ID)
	if err != nil {
		return deny(ReasonLookupFailed)
	}
	if !ok {
		return deny(ReasonNoMembership)
	}
	switch actorRole {
	case domain.BusinessRoleOwner:
		return allow("business role owner")
	case domain.BusinessRoleAdmin:
		targetRole, targetOK, err := e.resolveRole(ctx, target.ID, business.ID)
		if err != nil {
			return deny(ReasonLookupFailed)
		}
		if targetOK && targetRole == domain.BusinessRoleOwner {
			return deny("admins cannot manage an owner")
		}
		return allow("business role admin")
	}
	return deny(fmt.Sprintf("business role %s does not grant user management", actorRole))
}

func (e *Engine) viewAnyUser(actor *Actor) Decision {
	if actor.IsSuperadmin() {
		return allow(ReasonSuperadmin)
	}
	if actor.Has(domain.PermUsersView) {
		return allow("permission users.view")
	}
	return deny("requires users.view permission")
}

func (e *Engine) viewUser(actor *Actor, target *domain.User) Decision {
	if target != nil && actor.Is(target.ID) {
		return allow(ReasonSelf)
	}
	if actor.IsSuperadmin() {
		return allow(ReasonSuperadmin)
	}
	if actor.Has(domain.PermUsersView) {
		return allow("permission users.view")
	}
	return deny("requires users.view permission")
}

func (e *Engine) updateUser(actor *Actor, target *domain.User) Decision {
	if target != nil && actor.Is(target.ID) {
		return allow(ReasonSelf)
	}
	if actor.IsSuperadmin() {
		return allow(ReasonSuperadmin)
	}
	if actor.Has(domain.PermUsersEdit) {
		return allow("permission users.edit")
	}
	return deny("requires users.edit permission")
}

// deleteUser hard-denies self-deletion before the superadmin bypass applies.
func (e *Engine) deleteUser(actor *Actor, target *domain.User, targetRole domain.GlobalRole) Decision {
	if target != nil && actor.Is(target.ID) {
		return deny(ReasonSelfDenied)
	}
	if actor.IsSuperadmin() {
		if targetRole == domain.GlobalRoleSuperadmin {
			return deny("superadmins cannot delete other superadmins")
		}
		return allow(ReasonSuperadmin)
	}
	if actor.Has(domain.PermUsersDelete) {
		return allow("permission users.delete")
	}
	return deny("requires users.delete permission")
}

// changeUserRole hard-denies changing your own role before the superadmin
// bypass applies.
func (e *Engine) changeUserRole(actor *Actor, target *domain.User, currentRole, newRole domain.GlobalRole) Decision {
	if target != nil && actor.Is(target.ID) {
		return deny(ReasonSelfDenied)
	}
	if actor.IsSuperadmin() {
		return allow(ReasonSuperadmin)
	}
	if actor.GlobalRole() == domain.GlobalRoleBusinessAdmin {
		if currentRole == domain.GlobalRoleSuperadmin || newRole == domain.GlobalRoleSuperadmin {
			return deny("superadmin role is out of reach for business_admin")
		}
		switch newRole {
		case domain.GlobalRoleBusinessAdmin, domain.GlobalRoleManager, domain.GlobalRoleEmployee:
			return allow("global role business_admin")
		}
		return deny(fmt.Sprintf("business_admin cannot assign role %q", newRole))
	}
	return deny("requires superadmin or business_admin global role")
}

func (e *Engine) impersonateUser(actor *Actor, target *domain.User, targetRole domain.GlobalRole) Decision {
	if target != nil && actor.Is(target.ID) {
		return deny(ReasonSelfDenied)
	}
	if !actor.IsSuperadmin() {
		return deny("requires superadmin")
	}
	if targetRole == domain.GlobalRoleSuperadmin {
		return deny("superadmins cannot impersonate each other")
	}
	return allow(ReasonSuperadmin)
}

func (e *Engine) resolveRole(ctx context.Context, userID, businessID string) (domain.BusinessRole, bool, error) {
	role, ok, err := e.roles.RoleOf(ctx, userID, businessID)
	if err != nil {
		e.logger.Error("role lookup failed",
			slog.String("user_id", userID),
			slog.String("business_id", businessID),
			slog.String("error", err.Error()),
		)
		return "", false, err
	}
	return role, ok, nil
}
