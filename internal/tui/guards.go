package tui

import "github.com/arjunmehta/captchapay/pkg/domain"

// redirect is a guard verdict: where to send the user instead, and what to
// tell them. A nil redirect means the view may mount.
type redirect struct {
	to    view
	note  string
	level toastLevel
}

// guardAuth requires an authenticated identity.
func guardAuth(u *domain.User) *redirect {
	if u == nil {
		return &redirect{to: viewLogin, note: "Please log in first", level: toastWarn}
	}
	return nil
}

// guardAdmin requires an authenticated admin. A missing identity redirects
// to login; a non-admin identity is sent back to the dashboard.
func guardAdmin(u *domain.User) *redirect {
	if r := guardAuth(u); r != nil {
		return r
	}
	if !u.IsAdmin {
		return &redirect{to: viewDashboard, note: "Access denied. Admin only.", level: toastError}
	}
	return nil
}

// guardPlan requires an authenticated identity with an active plan.
//
// The plan field is tri-state: when the payload carried an explicit null the
// user provably has no plan and is sent to plan selection. When the field was
// absent entirely the cached identity predates the plan field; allowUnknown
// decides whether to let the captcha view mount and re-check server-side
// (the engine redirects on its own if the server says no plan) or to be
// strict and send the user to plan selection immediately.
func guardPlan(u *domain.User, allowUnknown bool) *redirect {
	if r := guardAuth(u); r != nil {
		return r
	}
	if u.PlanKnown {
		if u.Plan == nil {
			return &redirect{to: viewPlans, note: "Please purchase a plan first", level: toastWarn}
		}
		return nil
	}
	if !allowUnknown {
		return &redirect{to: viewPlans, note: "Please purchase a plan first", level: toastWarn}
	}
	return nil
}
