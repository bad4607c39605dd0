package service

import (
	"context"
	"errors"
	"testing"

	"github.com/yourorg/staffdesk/internal/domain"
)

func TestFeatureSetSuperadminOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.addUser(t, "owner@example.com", domain.GlobalRoleBusinessAdmin)
	business := env.addBusiness(t, owner, "acme")
	superadmin := env.addUser(t, "root@example.com", domain.GlobalRoleSuperadmin)

	if _, err := env.featureSvc.Set(ctx, owner, "acme", "audit_stream", true, nil); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("owner flipping a feature should be forbidden, got %v", err)
	}

	e, err := env.featureSvc.Set(ctx, superadmin, "acme", "audit_stream", true, map[string]any{"buffer": 64})
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if !e.IsEnabled || e.EnabledBy == nil || *e.EnabledBy != superadmin.ID() {
		t.Fatal("entitlement should record who enabled it")
	}
	if !env.featureSvc.Enabled(business.ID, "audit_stream") {
		t.Fatal("feature should read as enabled")
	}
}

func TestFeatureDefaultsDisabled(t *testing.T) {
	env := newTestEnv(t)
	if env.featureSvc.Enabled("biz-missing", "anything") {
		t.Fatal("missing entitlement rows must read as disabled")
	}
}

func TestFeatureListVisibleToMembers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.addUser(t, "owner@example.com", domain.GlobalRoleBusinessAdmin)
	business := env.addBusiness(t, owner, "acme")
	superadmin := env.addUser(t, "root@example.com", domain.GlobalRoleSuperadmin)
	outsider := env.addUser(t, "outsider@example.com", domain.GlobalRoleNone)

	if _, err := env.featureSvc.Set(ctx, superadmin, "acme", "audit_stream", true, nil); err != nil {
		t.Fatalf("set: %v", err)
	}

	features, err := env.featureSvc.List(ctx, owner, "acme")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(features) != 1 || features[0].BusinessID != business.ID {
		t.Fatalf("expected 1 entitlement for the business, got %d", len(features))
	}

	if _, err := env.featureSvc.List(ctx, outsider, "acme"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("non-members should not read entitlements, got %v", err)
	}
}
