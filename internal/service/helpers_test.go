package service

import (
	"context"
	"testing"
	"time"

	"github.com/yourorg/staffdesk/internal/authz"
	"github.com/yourorg/staffdesk/internal/domain"
	"github.com/yourorg/staffdesk/internal/repository"
	"github.com/yourorg/staffdesk/internal/security/audit"
	"github.com/yourorg/staffdesk/internal/security/auth"
)

type testEnv struct {
	users       *fakeUserRepo
	businesses  *fakeBusinessRepo
	memberships *fakeMembershipRepo
	features    *fakeFeatureRepo

	engine      *authz.Engine
	tokens      *auth.TokenManager
	authSvc     *AuthService
	invitations *InvitationService
	businessSvc *BusinessService
	memberSvc   *MembershipService
	userSvc     *UserService
	featureSvc  *FeatureService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	users := newFakeUserRepo()
	memberships := newFakeMembershipRepo()
	businesses := newFakeBusinessRepo(memberships)
	features := newFakeFeatureRepo()

	engine := authz.NewEngine(repository.NewDBRoleResolver(memberships), nil)
	tokens := auth.NewTokenManager("test-secret", "test")
	auditLog := audit.NewLogger(nil)

	invitations := NewInvitationService(users, businesses, memberships, engine, nil, auditLog, nil)
	return &testEnv{
		users:       users,
		businesses:  businesses,
		memberships: memberships,
		features:    features,
		engine:      engine,
		tokens:      tokens,
		authSvc:     NewAuthService(users, invitations, tokens, time.Hour, nil),
		invitations: invitations,
		businessSvc: NewBusinessService(businesses, memberships, engine, nil, auditLog, nil),
		memberSvc:   NewMembershipService(users, businesses, memberships, engine, nil, auditLog, nil),
		userSvc:     NewUserService(users, engine, tokens, auditLog, nil),
		featureSvc:  NewFeatureService(businesses, features, engine, auditLog, nil),
	}
}

// addUser registers a user with the given global role and returns its actor
func (env *testEnv) addUser(t *testing.T, email string, role domain.GlobalRole) *authz.Actor {
	t.Helper()
	user := &domain.User{Email: email, Name: email, PasswordHash: "x"}
	profile := &domain.Profile{Role: role, Status: domain.ProfileStatusActive}
	if err := env.users.Create(user, profile); err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return authz.NewActor(user, profile, nil)
}

// addBusiness creates a business owned by owner
func (env *testEnv) addBusiness(t *testing.T, owner *authz.Actor, slug string) *domain.Business {
	t.Helper()
	business, err := env.businessSvc.Create(context.Background(), owner, slug, slug)
	if err != nil {
		t.Fatalf("create business %s: %v", slug, err)
	}
	return business
}

// joinBusiness adds user to business with role via a direct row
func (env *testEnv) joinBusiness(t *testing.T, user *authz.Actor, business *domain.Business, role domain.BusinessRole) {
	t.Helper()
	id := user.ID()
	now := time.Now()
	m := &domain.Membership{
		BusinessID:       business.ID,
		UserID:           &id,
		Email:            user.User.Email,
		Role:             role,
		EmploymentStatus: domain.EmploymentStatusActive,
		JoinedDate:       &now,
	}
	if err := env.memberships.Upsert(m); err != nil {
		t.Fatalf("join business: %v", err)
	}
}
