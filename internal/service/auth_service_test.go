package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yourorg/staffdesk/internal/domain"
	"github.com/yourorg/staffdesk/internal/security/audit"
)

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.authSvc.Register(ctx, "amira@example.com", "Amira", "correct-horse", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if res.Token == "" {
		t.Fatal("expected a session token")
	}
	if res.InvitationLink != InvitationLinkSkipped {
		t.Fatalf("expected skipped invitation link, got %s", res.InvitationLink)
	}

	login, err := env.authSvc.Login(ctx, "amira@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if login.User.ID != res.User.ID {
		t.Fatalf("login returned user %s, want %s", login.User.ID, res.User.ID)
	}

	if _, err := env.authSvc.Login(ctx, "amira@example.com", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := env.authSvc.Login(ctx, "nobody@example.com", "whatever"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("unknown email should look like bad credentials, got %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.authSvc.Register(ctx, "dup@example.com", "One", "password-1", ""); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := env.authSvc.Register(ctx, "dup@example.com", "Two", "password-2", "")
	if !errors.Is(err, domain.ErrEmailAlreadyRegistered) {
		t.Fatalf("expected ErrEmailAlreadyRegistered, got %v", err)
	}
}

func TestRegisterLinksPendingInvitation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.addUser(t, "owner@example.com", domain.GlobalRoleBusinessAdmin)
	business := env.addBusiness(t, owner, "acme")

	token, err := env.invitations.Invite(ctx, owner, "acme", "newhire@example.com", domain.BusinessRoleEmployee)
	if err != nil {
		t.Fatalf("invite: %v", err)
	}

	res, err := env.authSvc.Register(ctx, "newhire@example.com", "New Hire", "password-1", token)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if res.InvitationLink != InvitationLinkApplied {
		t.Fatalf("expected applied invitation link, got %s", res.InvitationLink)
	}

	role, ok, err := env.memberships.RoleOf(res.User.ID, business.ID)
	if err != nil || !ok {
		t.Fatalf("expected accepted membership, ok=%t err=%v", ok, err)
	}
	if role != domain.BusinessRoleEmployee {
		t.Fatalf("expected employee role, got %s", role)
	}
}

func TestRegisterWithStaleTokenStillSucceeds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.authSvc.Register(ctx, "late@example.com", "Late", "password-1", "no-such-token")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if res.InvitationLink != InvitationLinkSkipped {
		t.Fatalf("stale token should be a no-op, got %s", res.InvitationLink)
	}
}

func TestRegisterSurvivesBrokenInvitationStore(t *testing.T) {
	users := newFakeUserRepo()
	memberships := newFakeMembershipRepo()
	businesses := newFakeBusinessRepo(memberships)
	env := newTestEnv(t)

	broken := &failingMembershipRepo{fakeMembershipRepo: memberships}
	invitations := NewInvitationService(users, businesses, broken, env.engine, nil, audit.NewLogger(nil), nil)
	authSvc := NewAuthService(users, invitations, env.tokens, time.Hour, nil)

	// Seed a pending row so the link attempt reaches the failing accept.
	tok := "tok-1"
	memberships.rows = append(memberships.rows, &domain.Membership{
		ID:              "member-1",
		BusinessID:      "biz-1",
		Email:           "hire@example.com",
		Role:            domain.BusinessRoleEmployee,
		InvitationToken: &tok,
	})

	res, err := authSvc.Register(context.Background(), "hire@example.com", "Hire", "password-1", tok)
	if err != nil {
		t.Fatalf("register must not fail on a broken invitation link: %v", err)
	}
	if res.InvitationLink != InvitationLinkFailed {
		t.Fatalf("expected failed invitation link, got %s", res.InvitationLink)
	}
	if res.User.ID == "" || res.Token == "" {
		t.Fatal("account creation must complete despite the link failure")
	}
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.authSvc.Register(ctx, "rotate@example.com", "Rotate", "old-password", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := env.authSvc.ChangePassword(ctx, res.User.ID, "wrong", "new-password-1"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := env.authSvc.ChangePassword(ctx, res.User.ID, "old-password", "new-password-1"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, err := env.authSvc.Login(ctx, "rotate@example.com", "new-password-1"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	if _, err := env.authSvc.Login(ctx, "rotate@example.com", "old-password"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("old password should no longer work, got %v", err)
	}
}
