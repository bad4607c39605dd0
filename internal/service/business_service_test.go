package service

import (
	"context"
	"errors"
	"testing"

	"github.com/yourorg/staffdesk/internal/domain"
)

func TestCreateBusinessMakesActorOwner(t *testing.T) {
	env := newTestEnv(t)

	creator := env.addUser(t, "founder@example.com", domain.GlobalRoleBusinessAdmin)
	business := env.addBusiness(t, creator, "acme")

	if business.OwnerUserID != creator.ID() {
		t.Fatalf("owner user = %s, want %s", business.OwnerUserID, creator.ID())
	}
	role, ok, err := env.memberships.RoleOf(creator.ID(), business.ID)
	if err != nil || !ok {
		t.Fatalf("expected accepted owner membership, ok=%t err=%v", ok, err)
	}
	if role != domain.BusinessRoleOwner {
		t.Fatalf("creator role = %s, want owner", role)
	}
}

func TestCreateBusinessRequiresGlobalRole(t *testing.T) {
	env := newTestEnv(t)
	nobody := env.addUser(t, "nobody@example.com", domain.GlobalRoleNone)

	_, err := env.businessSvc.Create(context.Background(), nobody, "blocked", "Blocked")
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestCreateBusinessValidatesSlug(t *testing.T) {
	env := newTestEnv(t)
	creator := env.addUser(t, "founder@example.com", domain.GlobalRoleBusinessAdmin)

	for _, slug := range []string{"", "Bad Slug", "UPPER", "trailing-", "-leading"} {
		if _, err := env.businessSvc.Create(context.Background(), creator, slug, "Name"); err == nil {
			t.Fatalf("slug %q should be rejected", slug)
		}
	}
}

func TestCreateBusinessDuplicateSlug(t *testing.T) {
	env := newTestEnv(t)
	creator := env.addUser(t, "founder@example.com", domain.GlobalRoleBusinessAdmin)
	env.addBusiness(t, creator, "acme")

	_, err := env.businessSvc.Create(context.Background(), creator, "acme", "Again")
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestUpdateBusinessRoleGate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.addUser(t, "owner@example.com", domain.GlobalRoleBusinessAdmin)
	business := env.addBusiness(t, owner, "acme")

	manager := env.addUser(t, "mgr@example.com", domain.GlobalRoleNone)
	env.joinBusiness(t, manager, business, domain.BusinessRoleManager)

	if _, err := env.businessSvc.Update(ctx, manager, "acme", "Renamed"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("manager rename should be forbidden, got %v", err)
	}

	updated, err := env.businessSvc.Update(ctx, owner, "acme", "Renamed")
	if err != nil {
		t.Fatalf("owner rename: %v", err)
	}
	if updated.Name != "Renamed" {
		t.Fatalf("name = %s, want Renamed", updated.Name)
	}
	if updated.Slug != "acme" {
		t.Fatal("slug is immutable")
	}
}

func TestSoftDeleteAndRestore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.addUser(t, "owner@example.com", domain.GlobalRoleBusinessAdmin)
	business := env.addBusiness(t, owner, "acme")
	superadmin := env.addUser(t, "root@example.com", domain.GlobalRoleSuperadmin)

	if err := env.businessSvc.SoftDelete(ctx, owner, "acme"); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	// Deleted businesses vanish for members but stay visible to superadmins.
	if _, err := env.businessSvc.Get(ctx, owner, "acme"); !errors.Is(err, domain.ErrBusinessNotFound) {
		t.Fatalf("member should not see a deleted business, got %v", err)
	}
	if _, err := env.businessSvc.Get(ctx, superadmin, "acme"); err != nil {
		t.Fatalf("superadmin should see a deleted business: %v", err)
	}

	// Only superadmins restore.
	if _, err := env.businessSvc.Restore(ctx, owner, "acme"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("owner restore should be forbidden, got %v", err)
	}
	restored, err := env.businessSvc.Restore(ctx, superadmin, "acme")
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.Deleted() {
		t.Fatal("restore should clear the delete marker")
	}

	// The roster survived the delete/restore cycle.
	if _, ok, _ := env.memberships.RoleOf(owner.ID(), business.ID); !ok {
		t.Fatal("membership must survive soft delete and restore")
	}
}

func TestForceDeleteRemovesRoster(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.addUser(t, "owner@example.com", domain.GlobalRoleBusinessAdmin)
	business := env.addBusiness(t, owner, "acme")
	superadmin := env.addUser(t, "root@example.com", domain.GlobalRoleSuperadmin)

	if err := env.businessSvc.ForceDelete(ctx, owner, "acme"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("owner force delete should be forbidden, got %v", err)
	}
	if err := env.businessSvc.ForceDelete(ctx, superadmin, "acme"); err != nil {
		t.Fatalf("force delete: %v", err)
	}
	if _, err := env.businesses.GetBySlug("acme"); !errors.Is(err, domain.ErrBusinessNotFound) {
		t.Fatal("business row should be gone")
	}
	if _, ok, _ := env.memberships.RoleOf(owner.ID(), business.ID); ok {
		t.Fatal("membership rows should be gone")
	}
}

func TestListScopedToMemberships(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ownerA := env.addUser(t, "a@example.com", domain.GlobalRoleBusinessAdmin)
	ownerB := env.addUser(t, "b@example.com", domain.GlobalRoleBusinessAdmin)
	env.addBusiness(t, ownerA, "alpha")
	env.addBusiness(t, ownerB, "beta")
	superadmin := env.addUser(t, "root@example.com", domain.GlobalRoleSuperadmin)

	mine, err := env.businessSvc.List(ctx, ownerA)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(mine) != 1 || mine[0].Slug != "alpha" {
		t.Fatalf("ownerA should see only alpha, got %d businesses", len(mine))
	}

	all, err := env.businessSvc.List(ctx, superadmin)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("superadmin should see all businesses, got %d", len(all))
	}
}
