package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yourorg/staffdesk/internal/authz"
	"github.com/yourorg/staffdesk/internal/domain"
)

func TestInviteGatedByBusinessRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.addUser(t, "owner@example.com", domain.GlobalRoleBusinessAdmin)
	env.addBusiness(t, owner, "acme")

	employee := env.addUser(t, "emp@example.com", domain.GlobalRoleNone)
	env.joinBusiness(t, employee, mustBusiness(t, env, "acme"), domain.BusinessRoleEmployee)

	if _, err := env.invitations.Invite(ctx, employee, "acme", "x@example.com", domain.BusinessRoleEmployee); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("employee invite should be forbidden, got %v", err)
	}

	token, err := env.invitations.Invite(ctx, owner, "acme", "x@example.com", domain.BusinessRoleEmployee)
	if err != nil {
		t.Fatalf("owner invite: %v", err)
	}
	if token == "" {
		t.Fatal("expected a token")
	}

	// A pending invitation grants no standing yet.
	m, err := env.memberships.GetByInvitationToken(token)
	if err != nil {
		t.Fatalf("pending row: %v", err)
	}
	if m.Accepted() {
		t.Fatal("pending row must not count as accepted")
	}
}

func TestInvitePermissionFallback(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.addUser(t, "owner@example.com", domain.GlobalRoleBusinessAdmin)
	env.addBusiness(t, owner, "acme")

	// Not a member, but holds the named grant.
	hrUser := &domain.User{ID: "user-hr", Email: "hr@example.com"}
	hrProfile := &domain.Profile{UserID: "user-hr", Role: domain.GlobalRoleNone, Status: domain.ProfileStatusActive}
	env.users.users["user-hr"] = hrUser
	env.users.profiles["user-hr"] = hrProfile
	hr := authz.NewActor(hrUser, hrProfile, []domain.Permission{domain.PermUsersInvite})

	if _, err := env.invitations.Invite(ctx, hr, "acme", "y@example.com", domain.BusinessRoleEmployee); err != nil {
		t.Fatalf("users.invite permission should satisfy the invite rule: %v", err)
	}
}

func TestInviteExistingMember(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.addUser(t, "owner@example.com", domain.GlobalRoleBusinessAdmin)
	business := env.addBusiness(t, owner, "acme")

	member := env.addUser(t, "member@example.com", domain.GlobalRoleNone)
	env.joinBusiness(t, member, business, domain.BusinessRoleEmployee)

	_, err := env.invitations.Invite(ctx, owner, "acme", "member@example.com", domain.BusinessRoleManager)
	if !errors.Is(err, domain.ErrAlreadyMember) {
		t.Fatalf("expected ErrAlreadyMember, got %v", err)
	}
}

func TestInviteOwnerRoleRejected(t *testing.T) {
	env := newTestEnv(t)
	owner := env.addUser(t, "owner@example.com", domain.GlobalRoleBusinessAdmin)
	env.addBusiness(t, owner, "acme")

	if _, err := env.invitations.Invite(context.Background(), owner, "acme", "z@example.com", domain.BusinessRoleOwner); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("inviting an owner should be forbidden, got %v", err)
	}
}

func TestAcceptInvitationExactlyOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.addUser(t, "owner@example.com", domain.GlobalRoleBusinessAdmin)
	business := env.addBusiness(t, owner, "acme")

	token, err := env.invitations.Invite(ctx, owner, "acme", "hire@example.com", domain.BusinessRoleManager)
	if err != nil {
		t.Fatalf("invite: %v", err)
	}

	hire := env.addUser(t, "hire@example.com", domain.GlobalRoleNone)

	accepted, err := env.invitations.AcceptByToken(ctx, token, "hire@example.com", hire.ID())
	if err != nil || !accepted {
		t.Fatalf("first accept should apply, accepted=%t err=%v", accepted, err)
	}
	role, ok, _ := env.memberships.RoleOf(hire.ID(), business.ID)
	if !ok || role != domain.BusinessRoleManager {
		t.Fatalf("expected manager membership, ok=%t role=%s", ok, role)
	}

	// Reuse of a consumed token is a silent no-op.
	accepted, err = env.invitations.AcceptByToken(ctx, token, "hire@example.com", hire.ID())
	if err != nil {
		t.Fatalf("token reuse must not error: %v", err)
	}
	if accepted {
		t.Fatal("token reuse must not apply a second time")
	}
}

func TestAcceptWrongEmailIsNoop(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.addUser(t, "owner@example.com", domain.GlobalRoleBusinessAdmin)
	env.addBusiness(t, owner, "acme")

	token, err := env.invitations.Invite(ctx, owner, "acme", "intended@example.com", domain.BusinessRoleEmployee)
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	other := env.addUser(t, "other@example.com", domain.GlobalRoleNone)

	accepted, err := env.invitations.AcceptByToken(ctx, token, "other@example.com", other.ID())
	if err != nil {
		t.Fatalf("wrong-email accept must not error: %v", err)
	}
	if accepted {
		t.Fatal("token must only bind the invited email")
	}
	// The row stays pending for the intended recipient.
	if _, err := env.memberships.GetByInvitationToken(token); err != nil {
		t.Fatalf("invitation should still be pending: %v", err)
	}
}

func TestDeclineRemovesInvitation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.addUser(t, "owner@example.com", domain.GlobalRoleBusinessAdmin)
	env.addBusiness(t, owner, "acme")

	token, err := env.invitations.Invite(ctx, owner, "acme", "no-thanks@example.com", domain.BusinessRoleEmployee)
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if err := env.invitations.DeclineByToken(ctx, token); err != nil {
		t.Fatalf("decline: %v", err)
	}
	if _, err := env.memberships.GetByInvitationToken(token); !errors.Is(err, domain.ErrInvitationNotFound) {
		t.Fatalf("declined row should be gone, got %v", err)
	}
	if err := env.invitations.DeclineByToken(ctx, token); !errors.Is(err, domain.ErrInvitationNotFound) {
		t.Fatalf("second decline should not find the row, got %v", err)
	}
}

func TestExpireBeforeReapsOnlyPendingRows(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.addUser(t, "owner@example.com", domain.GlobalRoleBusinessAdmin)
	business := env.addBusiness(t, owner, "acme")

	stale, err := env.invitations.Invite(ctx, owner, "acme", "stale@example.com", domain.BusinessRoleEmployee)
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if _, err := env.invitations.Invite(ctx, owner, "acme", "fresh@example.com", domain.BusinessRoleEmployee); err != nil {
		t.Fatalf("invite: %v", err)
	}
	// Age the first row past the cutoff.
	row, err := env.memberships.GetByInvitationToken(stale)
	if err != nil {
		t.Fatalf("pending row: %v", err)
	}
	row.CreatedAt = time.Now().Add(-48 * time.Hour)

	n, err := env.invitations.ExpireBefore(time.Now().Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 expired row, got %d", n)
	}
	if _, err := env.memberships.GetByInvitationToken(stale); !errors.Is(err, domain.ErrInvitationNotFound) {
		t.Fatal("stale invitation should be reaped")
	}
	// Accepted rows are never reaped; owner membership is untouched.
	if _, ok, _ := env.memberships.RoleOf(owner.ID(), business.ID); !ok {
		t.Fatal("owner membership must survive the reaper")
	}
}

func mustBusiness(t *testing.T, env *testEnv, slug string) *domain.Business {
	t.Helper()
	b, err := env.businesses.GetBySlug(slug)
	if err != nil {
		t.Fatalf("business %s: %v", slug, err)
	}
	return b
}
