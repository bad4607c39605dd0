package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yourorg/staffdesk/internal/domain"
)

func TestChangeRoleRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	superadmin := env.addUser(t, "root@example.com", domain.GlobalRoleSuperadmin)
	bizAdmin := env.addUser(t, "ba@example.com", domain.GlobalRoleBusinessAdmin)
	emp := env.addUser(t, "emp@example.com", domain.GlobalRoleEmployee)

	if err := env.userSvc.ChangeRole(ctx, superadmin, emp.ID(), domain.GlobalRoleManager); err != nil {
		t.Fatalf("superadmin change role: %v", err)
	}

	// Nobody changes their own role, superadmins included.
	if err := env.userSvc.ChangeRole(ctx, superadmin, superadmin.ID(), domain.GlobalRoleEmployee); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("own-role change should be forbidden, got %v", err)
	}

	// business_admin may shuffle the lower roles but never touch superadmin.
	if err := env.userSvc.ChangeRole(ctx, bizAdmin, emp.ID(), domain.GlobalRoleEmployee); err != nil {
		t.Fatalf("business_admin assigning employee: %v", err)
	}
	if err := env.userSvc.ChangeRole(ctx, bizAdmin, emp.ID(), domain.GlobalRoleSuperadmin); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("business_admin assigning superadmin should be forbidden, got %v", err)
	}
	if err := env.userSvc.ChangeRole(ctx, bizAdmin, superadmin.ID(), domain.GlobalRoleEmployee); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("business_admin demoting a superadmin should be forbidden, got %v", err)
	}

	if err := env.userSvc.ChangeRole(ctx, superadmin, emp.ID(), "warlord"); err == nil {
		t.Fatal("unknown role should be rejected")
	}
}

func TestDeleteUserRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	superadmin := env.addUser(t, "root@example.com", domain.GlobalRoleSuperadmin)
	otherSA := env.addUser(t, "root2@example.com", domain.GlobalRoleSuperadmin)
	emp := env.addUser(t, "emp@example.com", domain.GlobalRoleEmployee)

	// Self-deletion is hard-denied before the superadmin bypass applies.
	if err := env.userSvc.Delete(ctx, superadmin, superadmin.ID()); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("self-delete should be forbidden, got %v", err)
	}
	if err := env.userSvc.Delete(ctx, superadmin, otherSA.ID()); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("deleting another superadmin should be forbidden, got %v", err)
	}
	if err := env.userSvc.Delete(ctx, superadmin, emp.ID()); err != nil {
		t.Fatalf("delete: %v", err)
	}
	u, err := env.users.GetByID(emp.ID())
	if err != nil {
		t.Fatalf("deleted user should still resolve by id: %v", err)
	}
	if !u.Deleted() {
		t.Fatal("delete should be soft")
	}
}

func TestViewAndUpdateSelf(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.addUser(t, "alice@example.com", domain.GlobalRoleNone)
	bob := env.addUser(t, "bob@example.com", domain.GlobalRoleNone)

	// Self access needs no permission at all.
	if _, _, err := env.userSvc.Get(ctx, alice, alice.ID()); err != nil {
		t.Fatalf("self view: %v", err)
	}
	name := "Alice A."
	phone := "+1-555-0100"
	if _, err := env.userSvc.Update(ctx, alice, alice.ID(), ProfileUpdate{Name: &name, Phone: &phone}); err != nil {
		t.Fatalf("self update: %v", err)
	}
	if u, _ := env.users.GetByID(alice.ID()); u.Name != name {
		t.Fatalf("name = %s, want %s", u.Name, name)
	}
	if p, _ := env.users.GetProfile(alice.ID()); p.Phone != phone {
		t.Fatalf("phone = %s, want %s", p.Phone, phone)
	}

	// Cross-user access needs the named grants.
	if _, _, err := env.userSvc.Get(ctx, alice, bob.ID()); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("cross view should be forbidden, got %v", err)
	}
	if _, err := env.userSvc.Update(ctx, alice, bob.ID(), ProfileUpdate{Name: &name}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("cross update should be forbidden, got %v", err)
	}
}

func TestListRequiresUsersView(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	plain := env.addUser(t, "plain@example.com", domain.GlobalRoleNone)
	if _, err := env.userSvc.List(ctx, plain); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	superadmin := env.addUser(t, "root@example.com", domain.GlobalRoleSuperadmin)
	users, err := env.userSvc.List(ctx, superadmin)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
}

func TestImpersonation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	superadmin := env.addUser(t, "root@example.com", domain.GlobalRoleSuperadmin)
	otherSA := env.addUser(t, "root2@example.com", domain.GlobalRoleSuperadmin)
	emp := env.addUser(t, "emp@example.com", domain.GlobalRoleEmployee)

	token, err := env.userSvc.Impersonate(ctx, superadmin, emp.ID(), 15*time.Minute)
	if err != nil {
		t.Fatalf("impersonate: %v", err)
	}
	claims, err := env.tokens.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != emp.ID() {
		t.Fatalf("token acts as %s, want %s", claims.UserID, emp.ID())
	}
	if claims.ImpersonatorID != superadmin.ID() {
		t.Fatalf("token must name the impersonator, got %q", claims.ImpersonatorID)
	}

	if _, err := env.userSvc.Impersonate(ctx, superadmin, superadmin.ID(), 0); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("self-impersonation should be forbidden, got %v", err)
	}
	if _, err := env.userSvc.Impersonate(ctx, superadmin, otherSA.ID(), 0); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("impersonating a superadmin should be forbidden, got %v", err)
	}
	if _, err := env.userSvc.Impersonate(ctx, emp, superadmin.ID(), 0); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("non-superadmin impersonation should be forbidden, got %v", err)
	}
}
