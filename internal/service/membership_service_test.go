package service

import (
	"context"
	"errors"
	"testing"

	"github.com/yourorg/staffdesk/internal/domain"
)

func TestAddMemberDirectly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.addUser(t, "owner@example.com", domain.GlobalRoleBusinessAdmin)
	business := env.addBusiness(t, owner, "acme")
	hire := env.addUser(t, "hire@example.com", domain.GlobalRoleNone)

	m, err := env.memberSvc.AddMember(ctx, owner, "acme", "hire@example.com", domain.BusinessRoleEmployee)
	if err != nil {
		t.Fatalf("add member: %v", err)
	}
	// Direct adds skip the invitation flow entirely.
	if !m.Accepted() {
		t.Fatal("direct add should be accepted immediately")
	}
	if m.InvitationToken != nil {
		t.Fatal("direct add should carry no invitation token")
	}
	if role, ok, _ := env.memberships.RoleOf(hire.ID(), business.ID); !ok || role != domain.BusinessRoleEmployee {
		t.Fatalf("expected employee membership, ok=%t role=%s", ok, role)
	}

	if _, err := env.memberSvc.AddMember(ctx, owner, "acme", "hire@example.com", domain.BusinessRoleManager); !errors.Is(err, domain.ErrAlreadyMember) {
		t.Fatalf("expected ErrAlreadyMember, got %v", err)
	}
}

func TestAddMemberSelfDenied(t *testing.T) {
	env := newTestEnv(t)
	owner := env.addUser(t, "owner@example.com", domain.GlobalRoleBusinessAdmin)
	env.addBusiness(t, owner, "acme")

	// Managing your own row is always denied, owners included.
	_, err := env.memberSvc.AddMember(context.Background(), owner, "acme", "owner@example.com", domain.BusinessRoleAdmin)
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestAdminCannotManageOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.addUser(t, "owner@example.com", domain.GlobalRoleBusinessAdmin)
	business := env.addBusiness(t, owner, "acme")

	admin := env.addUser(t, "admin@example.com", domain.GlobalRoleNone)
	env.joinBusiness(t, admin, business, domain.BusinessRoleAdmin)

	if err := env.memberSvc.RemoveMember(ctx, admin, "acme", owner.ID()); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("admin removing owner should be forbidden, got %v", err)
	}
	if _, err := env.memberSvc.UpdateMember(ctx, admin, "acme", owner.ID(), domain.BusinessRoleEmployee, ""); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("admin demoting owner should be forbidden, got %v", err)
	}
}

func TestUpdateMemberRoleAndStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.addUser(t, "owner@example.com", domain.GlobalRoleBusinessAdmin)
	business := env.addBusiness(t, owner, "acme")
	emp := env.addUser(t, "emp@example.com", domain.GlobalRoleNone)
	env.joinBusiness(t, emp, business, domain.BusinessRoleEmployee)

	m, err := env.memberSvc.UpdateMember(ctx, owner, "acme", emp.ID(), domain.BusinessRoleManager, domain.EmploymentStatusOnLeave)
	if err != nil {
		t.Fatalf("update member: %v", err)
	}
	if m.Role != domain.BusinessRoleManager || m.EmploymentStatus != domain.EmploymentStatusOnLeave {
		t.Fatalf("got role=%s status=%s", m.Role, m.EmploymentStatus)
	}

	// Owner rows are off limits even for the owner themselves via this path.
	if _, err := env.memberSvc.UpdateMember(ctx, owner, "acme", emp.ID(), domain.BusinessRoleOwner, ""); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("promoting to owner should be forbidden, got %v", err)
	}
}

func TestRemoveMember(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.addUser(t, "owner@example.com", domain.GlobalRoleBusinessAdmin)
	business := env.addBusiness(t, owner, "acme")
	emp := env.addUser(t, "emp@example.com", domain.GlobalRoleNone)
	env.joinBusiness(t, emp, business, domain.BusinessRoleEmployee)

	if err := env.memberSvc.RemoveMember(ctx, owner, "acme", emp.ID()); err != nil {
		t.Fatalf("remove member: %v", err)
	}
	if _, ok, _ := env.memberships.RoleOf(emp.ID(), business.ID); ok {
		t.Fatal("membership should be gone")
	}

	// The owner row cannot be removed, even by a superadmin.
	superadmin := env.addUser(t, "root@example.com", domain.GlobalRoleSuperadmin)
	if err := env.memberSvc.RemoveMember(ctx, superadmin, "acme", owner.ID()); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("removing the owner should be forbidden, got %v", err)
	}
}

func TestListMembersIncludesPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.addUser(t, "owner@example.com", domain.GlobalRoleBusinessAdmin)
	env.addBusiness(t, owner, "acme")
	if _, err := env.invitations.Invite(ctx, owner, "acme", "pending@example.com", domain.BusinessRoleEmployee); err != nil {
		t.Fatalf("invite: %v", err)
	}

	members, err := env.memberSvc.ListMembers(ctx, owner, "acme")
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected owner + pending rows, got %d", len(members))
	}

	// Employees are not allowed to read the roster.
	emp := env.addUser(t, "emp@example.com", domain.GlobalRoleNone)
	env.joinBusiness(t, emp, mustBusiness(t, env, "acme"), domain.BusinessRoleEmployee)
	if _, err := env.memberSvc.ListMembers(ctx, emp, "acme"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("employee roster read should be forbidden, got %v", err)
	}
}
