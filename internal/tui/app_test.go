package tui

import (
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/arjunmehta/captchapay/internal/session"
	"github.com/arjunmehta/captchapay/pkg/client"
	"github.com/arjunmehta/captchapay/pkg/domain"
)

func newTestApp(t *testing.T, user *domain.User) App {
	t.Helper()
	dir := t.TempDir()
	store := session.NewStore(filepath.Join(dir, "session.json"))
	if user != nil {
		if err := store.Login("tok", user); err != nil {
			t.Fatal(err)
		}
	}
	likes := session.NewLikes(filepath.Join(dir, "likes.json"))
	c := client.New("http://test.invalid", store.Token())
	return NewApp(c, testConfig(), store, likes)
}

func planned(admin bool) *domain.User {
	return &domain.User{
		ID: "u1", Name: "Asha", IsAdmin: admin, PlanKnown: true,
		Plan: &domain.Plan{ID: "p1", Name: "Starter", Price: 499},
	}
}

func updateApp(t *testing.T, a App, msg tea.Msg) (App, tea.Cmd) {
	t.Helper()
	model, cmd := a.Update(msg)
	next, ok := model.(App)
	if !ok {
		t.Fatalf("Update returned %T", model)
	}
	return next, cmd
}

func TestInitialViewFromSession(t *testing.T) {
	if a := newTestApp(t, nil); a.view != viewLogin {
		t.Errorf("logged out start = %v, want login", a.view)
	}
	if a := newTestApp(t, planned(false)); a.view != viewDashboard {
		t.Errorf("member start = %v, want dashboard", a.view)
	}
	if a := newTestApp(t, planned(true)); a.view != viewAdmin {
		t.Errorf("admin start = %v, want admin console", a.view)
	}
}

func TestTabKeysSwitchViews(t *testing.T) {
	a := newTestApp(t, planned(false))
	a, _ = updateApp(t, a, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("3")})
	if a.view != viewWallet {
		t.Errorf("view = %v after 3, want wallet", a.view)
	}
	a, _ = updateApp(t, a, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("2")})
	if a.view != viewCaptcha {
		t.Errorf("view = %v after 2, want captcha", a.view)
	}
}

func TestGuardBlocksAdminTabForMembers(t *testing.T) {
	a := newTestApp(t, planned(false))
	a, cmd := updateApp(t, a, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("9")})
	if a.view == viewAdmin {
		t.Error("member reached the admin console")
	}
	if cmd == nil {
		t.Error("denied navigation should toast the guard note")
	}
}

func TestGuardRedirectsUnplannedToPlans(t *testing.T) {
	a := newTestApp(t, &domain.User{ID: "u1", Name: "Asha", PlanKnown: true})
	a, _ = updateApp(t, a, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("2")})
	if a.view != viewPlans {
		t.Errorf("view = %v, want plans redirect without an active plan", a.view)
	}
}

func TestNavigateMsgRoutesThroughGuards(t *testing.T) {
	a := newTestApp(t, nil)
	a, _ = updateApp(t, a, navigateMsg{to: viewWallet})
	if a.view != viewLogin {
		t.Errorf("view = %v, want login for anonymous navigation", a.view)
	}
}

func TestSessionExpiredForcesLogin(t *testing.T) {
	a := newTestApp(t, planned(false))
	a, cmd := updateApp(t, a, SessionExpiredMsg{})
	if a.view != viewLogin {
		t.Errorf("view = %v, want login", a.view)
	}
	if a.user != nil {
		t.Error("user should be cleared")
	}
	if cmd == nil {
		t.Error("expected an expiry toast")
	}

	// Already on login: no duplicate toast.
	a, cmd = updateApp(t, a, SessionExpiredMsg{})
	if cmd != nil {
		t.Error("repeat expiry on the login view should be silent")
	}
}

func TestSessionStartedPicksDestination(t *testing.T) {
	cases := []struct {
		name string
		user *domain.User
		want view
	}{
		{"admin", planned(true), viewAdmin},
		{"active plan", planned(false), viewDashboard},
		{"no plan", &domain.User{ID: "u1", Name: "Asha", PlanKnown: true}, viewPlans},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := newTestApp(t, nil)
			a, cmd := updateApp(t, a, sessionStartedMsg{user: tc.user, note: "Welcome"})
			if a.view != tc.want {
				t.Errorf("view = %v, want %v", a.view, tc.want)
			}
			if cmd == nil {
				t.Error("expected welcome toast")
			}
		})
	}
}

func TestLogoutKeyClearsSession(t *testing.T) {
	a := newTestApp(t, planned(false))
	a, cmd := updateApp(t, a, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("L")})
	if a.view != viewLogin || a.user != nil {
		t.Error("L should clear the session and land on login")
	}
	if cmd == nil {
		t.Error("expected logout toast")
	}
	if a.store.Authenticated() {
		t.Error("persisted session should be gone")
	}
}

func TestMeLoadedSyncsUserAndStore(t *testing.T) {
	a := newTestApp(t, planned(false))
	fresh := planned(false)
	fresh.SolvedTotal = 42

	a, _ = updateApp(t, a, meLoadedMsg{user: fresh})
	if a.user.SolvedTotal != 42 {
		t.Error("identity refresh should replace the in-memory user")
	}
	if a.store.User().SolvedTotal != 42 {
		t.Error("identity refresh should persist")
	}
}

func TestMeLoadedBroadcastCarriesSubModelCommands(t *testing.T) {
	a := newTestApp(t, planned(false))
	// Put the solve view into its entry plan check so the identity answer
	// has a follow-up command to return.
	a.captcha, _ = a.captcha.Update(captchaStartMsg{})

	a, cmd := updateApp(t, a, meLoadedMsg{user: planned(false)})
	if cmd == nil {
		t.Fatal("sub-model follow-ups must not be dropped by the broadcast")
	}
	if !a.captcha.fetching {
		t.Error("the solve view should be fetching its challenge")
	}
}

func TestMeLoadedErrorKeepsUser(t *testing.T) {
	a := newTestApp(t, planned(false))
	a, _ = updateApp(t, a, meLoadedMsg{err: &client.HTTPError{StatusCode: 500, Message: "down"}})
	if a.user == nil {
		t.Error("a failed refresh must not drop the session")
	}
}

func TestGlobalKeysSuppressedWhileEditing(t *testing.T) {
	a := newTestApp(t, nil) // login view always owns the keyboard
	a, _ = updateApp(t, a, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if a.login.fields[0] != "q" {
		t.Errorf("typed q should reach the login form, got %q", a.login.fields[0])
	}
}

func TestRegisterShortcutOnlyFromLogin(t *testing.T) {
	a := newTestApp(t, planned(false))
	a, _ = updateApp(t, a, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("R")})
	if a.view == viewRegister {
		t.Error("R should only work from the login view")
	}
}

func TestViewRendersTabsAndIdentity(t *testing.T) {
	a := newTestApp(t, planned(false))
	a, _ = updateApp(t, a, tea.WindowSizeMsg{Width: 100, Height: 32})
	out := a.View()
	for _, want := range []string{"Asha", "Starter", "Dashboard", "Wallet"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if strings.Contains(out, "Admin") {
		t.Error("member view should not list the admin tab")
	}
}

func TestViewHidesTabsWhenLoggedOut(t *testing.T) {
	a := newTestApp(t, nil)
	a, _ = updateApp(t, a, tea.WindowSizeMsg{Width: 80, Height: 30})
	out := a.View()
	if strings.Contains(out, "Dashboard") {
		t.Error("logged-out view should not render tabs")
	}
	if !strings.Contains(out, "────") {
		t.Error("logged-out view should show the divider rule")
	}
}
