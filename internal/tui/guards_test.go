package tui

import (
	"testing"

	"github.com/arjunmehta/captchapay/pkg/domain"
)

func TestGuardAuthNilUserRedirectsToLogin(t *testing.T) {
	r := guardAuth(nil)
	if r == nil {
		t.Fatal("expected redirect for nil user")
	}
	if r.to != viewLogin {
		t.Errorf("redirect target = %v, want viewLogin", r.to)
	}
}

func TestGuardAuthAllowsAuthenticatedUser(t *testing.T) {
	if r := guardAuth(&domain.User{ID: "u1"}); r != nil {
		t.Errorf("expected nil redirect, got %+v", r)
	}
}

func TestGuardAdminRejectsNonAdmin(t *testing.T) {
	r := guardAdmin(&domain.User{ID: "u1"})
	if r == nil {
		t.Fatal("expected redirect for non-admin")
	}
	if r.to != viewDashboard {
		t.Errorf("redirect target = %v, want viewDashboard", r.to)
	}
}

func TestGuardAdminAllowsAdmin(t *testing.T) {
	if r := guardAdmin(&domain.User{ID: "u1", IsAdmin: true}); r != nil {
		t.Errorf("expected nil redirect, got %+v", r)
	}
}

func TestGuardAdminUnauthenticatedGoesToLogin(t *testing.T) {
	r := guardAdmin(nil)
	if r == nil || r.to != viewLogin {
		t.Fatalf("expected login redirect, got %+v", r)
	}
}

func TestGuardPlanWithActivePlan(t *testing.T) {
	u := &domain.User{ID: "u1", Plan: &domain.Plan{ID: "p1"}, PlanKnown: true}
	if r := guardPlan(u, false); r != nil {
		t.Errorf("expected nil redirect, got %+v", r)
	}
}

func TestGuardPlanExplicitlyAbsentRedirectsToPlans(t *testing.T) {
	u := &domain.User{ID: "u1", Plan: nil, PlanKnown: true}
	r := guardPlan(u, true)
	if r == nil {
		t.Fatal("expected redirect when server reported no plan")
	}
	if r.to != viewPlans {
		t.Errorf("redirect target = %v, want viewPlans", r.to)
	}
}

func TestGuardPlanUnknownFollowsConfig(t *testing.T) {
	u := &domain.User{ID: "u1", Plan: nil, PlanKnown: false}

	if r := guardPlan(u, true); r != nil {
		t.Errorf("allowUnknown=true should let the view mount, got %+v", r)
	}
	r := guardPlan(u, false)
	if r == nil || r.to != viewPlans {
		t.Fatalf("allowUnknown=false should redirect to plans, got %+v", r)
	}
}

func TestGuardPlanUnauthenticatedGoesToLogin(t *testing.T) {
	r := guardPlan(nil, true)
	if r == nil || r.to != viewLogin {
		t.Fatalf("expected login redirect, got %+v", r)
	}
}
