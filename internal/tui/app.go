package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/arjunmehta/captchapay/internal/config"
	"github.com/arjunmehta/captchapay/internal/session"
	"github.com/arjunmehta/captchapay/pkg/client"
	"github.com/arjunmehta/captchapay/pkg/domain"
)

type view int

const (
	viewLogin view = iota
	viewRegister
	viewPlans
	viewDashboard
	viewCaptcha
	viewWallet
	viewWithdraw
	viewAdmin
)

// navigateMsg asks the root model to switch views. The switch still goes
// through the route guards; a denied navigation lands on the guard's
// redirect target instead.
type navigateMsg struct {
	to view
}

// navigateCmd requests a view switch from anywhere in the view tree.
func navigateCmd(to view) tea.Cmd {
	return func() tea.Msg {
		return navigateMsg{to: to}
	}
}

// meLoadedMsg carries a fresh identity fetch. Broadcast to sub-models so
// plan and earnings displays stay current.
type meLoadedMsg struct {
	user *domain.User
	err  error
}

// sessionStartedMsg is emitted by the login and register views once the
// token and user are persisted.
type sessionStartedMsg struct {
	user *domain.User
	note string
}

// SessionExpiredMsg is sent from outside the program (the client's 401 hook)
// when any API call came back unauthorized. The persisted session is already
// cleared by the hook; the model only has to steer the UI.
type SessionExpiredMsg struct{}

// App is the root Bubbletea model.
type App struct {
	client *client.Client
	cfg    *config.Config
	store  *session.Store

	view      view
	login     loginModel
	register  registerModel
	plans     plansModel
	dashboard dashboardModel
	captcha   captchaModel
	wallet    walletModel
	withdraw  withdrawModel
	admin     adminModel

	toasts toastStack
	user   *domain.User
	width  int
	height int
	frame  int // logo shimmer animation frame
}

// NewApp creates the root TUI application. The store must already be
// hydrated; the initial view is chosen from the session it holds.
func NewApp(c *client.Client, cfg *config.Config, store *session.Store, likes *session.Likes) App {
	a := App{
		client:    c,
		cfg:       cfg,
		store:     store,
		login:     newLoginModel(c, store),
		register:  newRegisterModel(c, store),
		plans:     newPlansModel(c, cfg),
		dashboard: newDashboardModel(c, cfg),
		captcha:   newCaptchaModel(c, cfg, likes),
		wallet:    newWalletModel(c, cfg),
		withdraw:  newWithdrawModel(c, cfg),
		admin:     newAdminModel(c),
	}
	a.user = store.User()
	switch {
	case a.user == nil:
		a.view = viewLogin
	case a.user.IsAdmin:
		a.view = viewAdmin
	default:
		a.view = viewDashboard
	}
	return a
}

func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{shimmerTickCmd()}
	if a.user != nil {
		cmds = append(cmds, a.loadMe(), a.currentInit())
	}
	return tea.Batch(cmds...)
}

// loadMe refreshes the identity from the server; the persisted copy may be
// stale, plan purchases and solves change it server-side.
func (a App) loadMe() tea.Cmd {
	c := a.client
	return func() tea.Msg {
		u, err := c.Me(context.Background())
		return meLoadedMsg{user: u, err: err}
	}
}

func (a App) currentInit() tea.Cmd {
	switch a.view {
	case viewLogin:
		return a.login.Init()
	case viewRegister:
		return a.register.Init()
	case viewPlans:
		return a.plans.Init()
	case viewDashboard:
		return a.dashboard.Init()
	case viewCaptcha:
		return a.captcha.Init()
	case viewWallet:
		return a.wallet.Init()
	case viewWithdraw:
		return a.withdraw.Init()
	case viewAdmin:
		return a.admin.Init()
	}
	return nil
}

// guardFor returns the guard verdict for entering the given view, or nil
// when entry is allowed.
func (a App) guardFor(v view) *redirect {
	switch v {
	case viewLogin, viewRegister:
		return nil
	case viewCaptcha:
		return guardPlan(a.user, a.cfg.AllowUnknownPlan)
	case viewAdmin:
		return guardAdmin(a.user)
	default:
		return guardAuth(a.user)
	}
}

// switchTo routes a navigation request through the guards and initializes
// the destination view.
func (a App) switchTo(v view) (App, tea.Cmd) {
	var cmds []tea.Cmd
	if r := a.guardFor(v); r != nil {
		v = r.to
		if r.note != "" {
			cmds = append(cmds, a.toasts.Push(r.level, r.note))
		}
		// The redirect target gets its own guard pass; worst case it
		// degrades to login, which is always allowed.
		if r2 := a.guardFor(v); r2 != nil {
			v = r2.to
		}
	}
	if v == a.view {
		if len(cmds) > 0 {
			return a, tea.Batch(cmds...)
		}
		return a, nil
	}
	a.view = v
	cmds = append(cmds, a.currentInit())
	return a, tea.Batch(cmds...)
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		bodyMsg := tea.WindowSizeMsg{Width: msg.Width, Height: msg.Height - 4 - maxToasts}
		a.login, _ = a.login.Update(bodyMsg)
		a.register, _ = a.register.Update(bodyMsg)
		a.plans, _ = a.plans.Update(bodyMsg)
		a.dashboard, _ = a.dashboard.Update(bodyMsg)
		a.captcha, _ = a.captcha.Update(bodyMsg)
		a.wallet, _ = a.wallet.Update(bodyMsg)
		a.withdraw, _ = a.withdraw.Update(bodyMsg)
		a.admin, _ = a.admin.Update(bodyMsg)
		return a, nil

	case shimmerTickMsg:
		a.frame++
		return a, shimmerTickCmd()

	case showToastMsg:
		return a, a.toasts.Push(msg.level, msg.text)

	case toastExpireMsg:
		a.toasts.Expire(msg.seq)
		return a, nil

	case navigateMsg:
		return a.switchTo(msg.to)

	case SessionExpiredMsg:
		a.user = nil
		a.client.SetToken("")
		if a.view != viewLogin {
			a.view = viewLogin
			return a, tea.Batch(
				a.toasts.Push(toastError, "Session expired. Please log in again."),
				a.login.Init(),
			)
		}
		return a, nil

	case sessionStartedMsg:
		a.user = msg.user
		dest := viewPlans
		if msg.user != nil && msg.user.IsAdmin {
			dest = viewAdmin
		} else if msg.user != nil && msg.user.HasActivePlan() {
			dest = viewDashboard
		}
		next, cmd := a.switchTo(dest)
		return next, tea.Batch(cmd, next.toasts.Push(toastSuccess, msg.note))

	case meLoadedMsg:
		if msg.err == nil && msg.user != nil {
			a.user = msg.user
			// Keep the persisted identity in sync for the next start.
			a.store.SetUser(msg.user) //nolint:errcheck
		}
		var cmds []tea.Cmd
		var cmd tea.Cmd
		a.dashboard, cmd = a.dashboard.Update(msg)
		cmds = append(cmds, cmd)
		a.captcha, cmd = a.captcha.Update(msg)
		cmds = append(cmds, cmd)
		a.plans, cmd = a.plans.Update(msg)
		cmds = append(cmds, cmd)
		return a, tea.Batch(cmds...)

	case tea.KeyMsg:
		if !a.isEditing() {
			switch msg.String() {
			case "q", "ctrl+c":
				return a, tea.Quit
			case "esc":
				if a.toasts.Len() > 0 {
					a.toasts.Clear()
					return a, nil
				}
			case "1":
				return a.switchTo(viewDashboard)
			case "2":
				return a.switchTo(viewCaptcha)
			case "3":
				return a.switchTo(viewWallet)
			case "4":
				return a.switchTo(viewPlans)
			case "5":
				return a.switchTo(viewWithdraw)
			case "9":
				return a.switchTo(viewAdmin)
			case "R":
				if a.view == viewLogin {
					return a.switchTo(viewRegister)
				}
			case "L":
				if a.user != nil {
					a.store.Logout() //nolint:errcheck
					a.client.SetToken("")
					a.user = nil
					a.view = viewLogin
					return a, tea.Batch(
						a.toasts.Push(toastInfo, "Logged out"),
						a.login.Init(),
					)
				}
			}
		} else if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
	}

	var cmd tea.Cmd
	switch a.view {
	case viewLogin:
		a.login, cmd = a.login.Update(msg)
	case viewRegister:
		a.register, cmd = a.register.Update(msg)
	case viewPlans:
		a.plans, cmd = a.plans.Update(msg)
	case viewDashboard:
		a.dashboard, cmd = a.dashboard.Update(msg)
	case viewCaptcha:
		a.captcha, cmd = a.captcha.Update(msg)
	case viewWallet:
		a.wallet, cmd = a.wallet.Update(msg)
	case viewWithdraw:
		a.withdraw, cmd = a.withdraw.Update(msg)
	case viewAdmin:
		a.admin, cmd = a.admin.Update(msg)
	}
	return a, cmd
}

// isEditing reports whether the active view owns the keyboard, so single-key
// global shortcuts must not fire.
func (a App) isEditing() bool {
	switch a.view {
	case viewLogin, viewRegister, viewWithdraw:
		return true
	case viewCaptcha:
		return a.captcha.editing()
	case viewPlans:
		return a.plans.editing()
	case viewAdmin:
		return a.admin.editing()
	}
	return false
}

func (a App) View() string {
	logo := renderShimmerLogo(a.frame)

	statsLine := ""
	if a.user != nil {
		parts := []string{a.user.Name}
		if a.user.Plan != nil {
			parts = append(parts, accentStyle.Render(a.user.Plan.Name))
		}
		parts = append(parts, fmt.Sprintf("%d solved", a.user.SolvedTotal))
		parts = append(parts, moneyStyle.Render(inr(a.user.TotalEarnings)))
		if a.user.IsAdmin {
			parts = append(parts, accentStyle.Render("admin"))
		}
		statsLine = metaStyle.Render(strings.Join(parts, " · "))
	}

	header := centerLine(logo, a.width)
	if statsLine != "" {
		header += "\n" + centerLine(statsLine, a.width)
	} else {
		header += "\n"
	}

	tabBar := a.renderTabs()

	var body, help string
	switch a.view {
	case viewLogin:
		body = a.login.View()
		help = " " + helpEntry("tab", "next field") + "  " + helpEntry("enter", "log in") + "  " + helpEntry("R", "register") + "  " + helpEntry("ctrl+c", "quit")
	case viewRegister:
		body = a.register.View()
		help = " " + helpEntry("tab", "next field") + "  " + helpEntry("enter", "create account") + "  " + helpEntry("esc", "back") + "  " + helpEntry("ctrl+c", "quit")
	case viewPlans:
		body = a.plans.View()
		help = " " + a.plans.helpKeys()
	case viewDashboard:
		body = a.dashboard.View()
		help = " " + helpEntry("1-5", "tabs") + "  " + helpEntry("r", "refresh") + "  " + helpEntry("L", "logout") + "  " + helpEntry("q", "quit")
	case viewCaptcha:
		body = a.captcha.View()
		help = " " + a.captcha.helpKeys()
	case viewWallet:
		body = a.wallet.View()
		help = " " + helpEntry("1-5", "tabs") + "  " + helpEntry("n/p", "page") + "  " + helpEntry("w", "withdraw") + "  " + helpEntry("r", "refresh") + "  " + helpEntry("q", "quit")
	case viewWithdraw:
		body = a.withdraw.View()
		help = " " + helpEntry("tab", "next field") + "  " + helpEntry("ctrl+s", "submit") + "  " + helpEntry("esc", "cancel")
	case viewAdmin:
		body = a.admin.View()
		help = " " + a.admin.helpKeys()
	}

	toastArea := a.toasts.View()
	if toastArea == "" {
		toastArea = " "
	}

	chrome := 4 + maxToasts
	body = strings.TrimRight(truncateToHeight(body, a.height-chrome), "\n")

	return fmt.Sprintf("%s\n%s\n%s\n%s\n%s", header, tabBar, body, toastArea, help)
}

func centerLine(s string, width int) string {
	pad := (width - lipgloss.Width(s)) / 2
	if pad < 0 {
		pad = 0
	}
	return strings.Repeat(" ", pad) + s
}

func (a App) renderTabs() string {
	if a.user == nil {
		if a.width < 4 {
			return metaStyle.Render("────")
		}
		return metaStyle.Render(strings.Repeat("─", a.width))
	}

	type tabEntry struct {
		key  string
		name string
		v    view
	}
	tabs := []tabEntry{
		{"1", "Dashboard", viewDashboard},
		{"2", "Solve", viewCaptcha},
		{"3", "Wallet", viewWallet},
		{"4", "Plans", viewPlans},
		{"5", "Withdraw", viewWithdraw},
	}
	if a.user.IsAdmin {
		tabs = append(tabs, tabEntry{"9", "Admin", viewAdmin})
	}

	colWidth := a.width / len(tabs)
	var tabBar strings.Builder
	for _, t := range tabs {
		var label string
		if t.v == a.view {
			label = accentStyle.Render(t.key) + " " + selectedStyle.Render(t.name)
		} else {
			label = metaStyle.Render(t.key) + " " + dimStyle.Render(t.name)
		}
		labelWidth := lipgloss.Width(label)
		leftPad := (colWidth - labelWidth) / 2
		if leftPad < 0 {
			leftPad = 0
		}
		rightPad := colWidth - labelWidth - leftPad
		if rightPad < 0 {
			rightPad = 0
		}
		tabBar.WriteString(strings.Repeat(" ", leftPad) + label + strings.Repeat(" ", rightPad))
	}
	return tabBar.String()
}
