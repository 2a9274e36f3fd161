package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/arjunmehta/captchapay/pkg/client"
	"github.com/arjunmehta/captchapay/pkg/domain"
)

type adminTab int

const (
	adminStats adminTab = iota
	adminUsers
	adminPlansTab
	adminCaptchas
	adminWithdrawalsTab
	adminPurchases
	adminSettings
	numAdminTabs
)

var adminTabNames = [numAdminTabs]string{
	"Stats", "Users", "Plans", "Captchas", "Payouts", "Sales", "Settings",
}

type adminModal int

const (
	adminNoModal adminModal = iota
	adminPlanForm
	adminDeleteConfirm
	adminRejectReason
	adminReloadEdit
)

type planFormField int

const (
	pfName planFormField = iota
	pfPrice
	pfDays
	pfLimit
	pfRate
	pfDesc
	numPlanFields
)

var planFieldLabels = [numPlanFields]string{
	"name", "price", "validity days", "daily limit", "per captcha", "description",
}

type adminModel struct {
	client *client.Client

	tab    adminTab
	cursor int
	modal  adminModal
	frame  int

	stats       *domain.PlatformStats
	users       []domain.User
	plans       []domain.Plan
	captchas    []domain.Captcha
	withdrawals []domain.Withdrawal
	purchases   []domain.Purchase
	subscribers []domain.User
	planStats   []domain.PlanStat
	settings    *domain.CaptchaSettings

	// Full-refresh bookkeeping. Each of the fan-out fetches settles on its
	// own; refreshing counts the ones still in flight, refreshErrs collects
	// whatever failed so one summary toast covers them all.
	refreshGen  int
	refreshing  int
	refreshErrs []string
	lastRefresh time.Time
	busy        bool

	// modal state
	planFields [numPlanFields]string
	planFocus  planFormField
	editPlanID string
	rejectID   string
	reason     string
	reloadText string
	errMsg     string
}

// adminSliceMsg is one settled leg of the fan-out refresh.
type adminSliceMsg struct {
	gen   int
	name  string
	err   error
	apply func(*adminModel)
}

type adminActionMsg struct {
	note string
	err  error
	then tea.Cmd
}

func newAdminModel(c *client.Client) adminModel {
	return adminModel{client: c}
}

func (m adminModel) Init() tea.Cmd {
	return func() tea.Msg { return adminRefreshStartMsg{} }
}

type adminRefreshStartMsg struct{}

func (m adminModel) editing() bool { return m.modal != adminNoModal }

type adminLeg struct {
	name  string
	fetch func(ctx context.Context) (func(*adminModel), error)
}

func (m *adminModel) legs() []adminLeg {
	c := m.client
	return []adminLeg{
		{"stats", func(ctx context.Context) (func(*adminModel), error) {
			v, err := c.AdminStats(ctx)
			return func(a *adminModel) { a.stats = v }, err
		}},
		{"users", func(ctx context.Context) (func(*adminModel), error) {
			v, err := c.AdminUsers(ctx)
			return func(a *adminModel) { a.users = v }, err
		}},
		{"plans", func(ctx context.Context) (func(*adminModel), error) {
			v, err := c.AdminPlans(ctx)
			return func(a *adminModel) { a.plans = v }, err
		}},
		{"captchas", func(ctx context.Context) (func(*adminModel), error) {
			v, err := c.AdminCaptchas(ctx)
			return func(a *adminModel) { a.captchas = v }, err
		}},
		{"withdrawals", func(ctx context.Context) (func(*adminModel), error) {
			v, err := c.AdminWithdrawals(ctx)
			return func(a *adminModel) { a.withdrawals = v }, err
		}},
		{"purchases", func(ctx context.Context) (func(*adminModel), error) {
			v, err := c.AdminRecentPurchases(ctx, 20)
			return func(a *adminModel) { a.purchases = v }, err
		}},
		{"subscribers", func(ctx context.Context) (func(*adminModel), error) {
			v, err := c.AdminUsersWithPlans(ctx, 1, 50)
			return func(a *adminModel) { a.subscribers = v }, err
		}},
		{"plan stats", func(ctx context.Context) (func(*adminModel), error) {
			v, err := c.AdminPlanStats(ctx)
			return func(a *adminModel) { a.planStats = v }, err
		}},
		{"settings", func(ctx context.Context) (func(*adminModel), error) {
			v, err := c.AdminCaptchaSettings(ctx)
			return func(a *adminModel) { a.settings = v }, err
		}},
	}
}

// fanOut starts a new refresh batch from the given legs. Each leg settles
// independently; a failed leg never blocks the others.
func (m *adminModel) fanOut(legs []adminLeg) tea.Cmd {
	m.refreshGen++
	gen := m.refreshGen
	m.refreshing = len(legs)
	m.refreshErrs = nil

	cmds := make([]tea.Cmd, len(legs))
	for i, l := range legs {
		l := l
		cmds[i] = func() tea.Msg {
			apply, err := l.fetch(context.Background())
			return adminSliceMsg{gen: gen, name: l.name, err: err, apply: apply}
		}
	}
	return tea.Batch(cmds...)
}

func (m *adminModel) refreshAll() tea.Cmd {
	return m.fanOut(m.legs())
}

// refreshTab refetches only the resources the current tab renders.
func (m *adminModel) refreshTab() tea.Cmd {
	want := map[adminTab][]string{
		adminStats:          {"stats", "plan stats"},
		adminUsers:          {"users"},
		adminPlansTab:       {"plans"},
		adminCaptchas:       {"captchas"},
		adminWithdrawalsTab: {"withdrawals"},
		adminPurchases:      {"purchases", "subscribers"},
		adminSettings:       {"settings"},
	}[m.tab]

	var picked []adminLeg
	for _, l := range m.legs() {
		for _, name := range want {
			if l.name == name {
				picked = append(picked, l)
			}
		}
	}
	if len(picked) == 0 {
		return nil
	}
	return m.fanOut(picked)
}

func (m adminModel) Update(msg tea.Msg) (adminModel, tea.Cmd) {
	switch msg := msg.(type) {
	case shimmerTickMsg:
		m.frame++
		return m, nil

	case adminRefreshStartMsg:
		return m, m.refreshAll()

	case adminSliceMsg:
		if msg.gen != m.refreshGen {
			return m, nil
		}
		if msg.err != nil {
			m.refreshErrs = append(m.refreshErrs, msg.name)
		} else if msg.apply != nil {
			msg.apply(&m)
		}
		m.refreshing--
		if m.refreshing <= 0 {
			m.lastRefresh = time.Now()
			if len(m.refreshErrs) > 0 {
				return m, toastCmd(toastError, "Refresh incomplete: "+strings.Join(m.refreshErrs, ", "))
			}
		}
		return m, nil

	case adminActionMsg:
		m.busy = false
		if msg.err != nil {
			txt := client.ErrorMessage(msg.err)
			if txt == "" {
				txt = msg.err.Error()
			}
			return m, toastCmd(toastError, txt)
		}
		cmds := []tea.Cmd{toastCmd(toastSuccess, msg.note), m.refreshAll()}
		if msg.then != nil {
			cmds = append(cmds, msg.then)
		}
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		if m.modal != adminNoModal {
			return m.updateModalKeys(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m adminModel) updateKeys(msg tea.KeyMsg) (adminModel, tea.Cmd) {
	switch msg.String() {
	case "tab", "l":
		m.tab = (m.tab + 1) % numAdminTabs
		m.cursor = 0
		return m, m.refreshTab()
	case "shift+tab", "h":
		m.tab = (m.tab - 1 + numAdminTabs) % numAdminTabs
		m.cursor = 0
		return m, m.refreshTab()
	case "j", "down":
		if m.cursor < m.rowCount()-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "r":
		return m, m.refreshAll()
	case "a":
		if m.tab == adminPlansTab {
			m.modal = adminPlanForm
			m.editPlanID = ""
			m.planFields = [numPlanFields]string{}
			m.planFocus = pfName
			m.errMsg = ""
		}
	case "e":
		switch m.tab {
		case adminPlansTab:
			if m.cursor < len(m.plans) {
				p := m.plans[m.cursor]
				m.modal = adminPlanForm
				m.editPlanID = p.ID
				m.planFields = [numPlanFields]string{
					p.Name,
					strconv.FormatFloat(p.Price, 'f', -1, 64),
					strconv.Itoa(p.ValidityDays),
					strconv.Itoa(p.CaptchaLimit),
					strconv.FormatFloat(p.EarningsPerCaptcha, 'f', -1, 64),
					p.Description,
				}
				m.planFocus = pfName
				m.errMsg = ""
			}
		case adminSettings:
			m.modal = adminReloadEdit
			m.reloadText = ""
			if m.settings != nil {
				m.reloadText = strconv.Itoa(m.settings.ReloadTime)
			}
			m.errMsg = ""
		}
	case "d":
		if m.tab == adminPlansTab && m.cursor < len(m.plans) {
			m.modal = adminDeleteConfirm
		}
	case "y":
		if m.tab == adminWithdrawalsTab && m.cursor < len(m.withdrawals) {
			w := m.withdrawals[m.cursor]
			if w.Status != domain.WithdrawalPending {
				return m, toastCmd(toastWarn, "Only pending requests can be approved")
			}
			return m.approve(w)
		}
	case "x":
		if m.tab == adminWithdrawalsTab && m.cursor < len(m.withdrawals) {
			w := m.withdrawals[m.cursor]
			if w.Status != domain.WithdrawalPending {
				return m, toastCmd(toastWarn, "Only pending requests can be rejected")
			}
			m.modal = adminRejectReason
			m.rejectID = w.ID
			m.reason = ""
			m.errMsg = ""
		}
	}
	return m, nil
}

func (m adminModel) rowCount() int {
	switch m.tab {
	case adminUsers:
		return len(m.users)
	case adminPlansTab:
		return len(m.plans)
	case adminCaptchas:
		return len(m.captchas)
	case adminWithdrawalsTab:
		return len(m.withdrawals)
	case adminPurchases:
		return len(m.purchases)
	}
	return 0
}

func (m adminModel) approve(w domain.Withdrawal) (adminModel, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	m.busy = true
	c := m.client
	return m, func() tea.Msg {
		err := c.ApproveWithdrawal(context.Background(), w.ID)
		return adminActionMsg{note: fmt.Sprintf("Approved %s payout", inr(w.Amount)), err: err}
	}
}

func (m adminModel) updateModalKeys(msg tea.KeyMsg) (adminModel, tea.Cmd) {
	m.errMsg = ""
	key := msg.String()

	if key == "esc" {
		m.modal = adminNoModal
		return m, nil
	}

	switch m.modal {
	case adminPlanForm:
		switch key {
		case "tab", "down", "enter":
			m.planFocus = (m.planFocus + 1) % numPlanFields
		case "shift+tab", "up":
			m.planFocus = (m.planFocus - 1 + numPlanFields) % numPlanFields
		case "ctrl+s":
			return m.submitPlan()
		default:
			m.planFields[m.planFocus] = editRune(m.planFields[m.planFocus], key)
		}

	case adminDeleteConfirm:
		switch key {
		case "y", "enter":
			if m.cursor >= len(m.plans) || m.busy {
				m.modal = adminNoModal
				return m, nil
			}
			p := m.plans[m.cursor]
			m.modal = adminNoModal
			m.busy = true
			c := m.client
			return m, func() tea.Msg {
				err := c.AdminDeletePlan(context.Background(), p.ID)
				return adminActionMsg{note: "Deleted plan " + p.Name, err: err}
			}
		case "n":
			m.modal = adminNoModal
		}

	case adminRejectReason:
		switch key {
		case "ctrl+s", "enter":
			reason := strings.TrimSpace(m.reason)
			if reason == "" {
				m.errMsg = "a reason is required"
				return m, nil
			}
			if m.busy {
				return m, nil
			}
			id := m.rejectID
			m.modal = adminNoModal
			m.busy = true
			c := m.client
			return m, func() tea.Msg {
				err := c.RejectWithdrawal(context.Background(), id, reason)
				return adminActionMsg{note: "Withdrawal rejected", err: err}
			}
		default:
			m.reason = editRune(m.reason, key)
		}

	case adminReloadEdit:
		switch key {
		case "ctrl+s", "enter":
			secs, err := strconv.Atoi(strings.TrimSpace(m.reloadText))
			if err != nil || secs < 5 || secs > 300 {
				m.errMsg = "reload time must be 5-300 seconds"
				return m, nil
			}
			if m.busy {
				return m, nil
			}
			m.modal = adminNoModal
			m.busy = true
			c := m.client
			return m, func() tea.Msg {
				err := c.AdminSetCaptchaSettings(context.Background(), secs)
				return adminActionMsg{note: fmt.Sprintf("Reload time set to %ds", secs), err: err}
			}
		default:
			m.reloadText = editRune(m.reloadText, key)
		}
	}
	return m, nil
}

func (m adminModel) submitPlan() (adminModel, tea.Cmd) {
	name := strings.TrimSpace(m.planFields[pfName])
	price, errPrice := strconv.ParseFloat(strings.TrimSpace(m.planFields[pfPrice]), 64)
	days, errDays := strconv.Atoi(strings.TrimSpace(m.planFields[pfDays]))
	limit, errLimit := strconv.Atoi(strings.TrimSpace(m.planFields[pfLimit]))
	rate, errRate := strconv.ParseFloat(strings.TrimSpace(m.planFields[pfRate]), 64)

	switch {
	case name == "":
		m.errMsg = "name is required"
		return m, nil
	case errPrice != nil || price < 0:
		m.errMsg = "price must be a non-negative number"
		return m, nil
	case errDays != nil || days <= 0:
		m.errMsg = "validity days must be a positive integer"
		return m, nil
	case errLimit != nil || limit <= 0:
		m.errMsg = "daily limit must be a positive integer"
		return m, nil
	case errRate != nil || rate <= 0:
		m.errMsg = "per-captcha earning must be a positive number"
		return m, nil
	}
	if m.busy {
		return m, nil
	}

	req := client.CreatePlanRequest{
		Name:               name,
		Price:              price,
		ValidityDays:       days,
		CaptchaLimit:       limit,
		EarningsPerCaptcha: rate,
		Description:        strings.TrimSpace(m.planFields[pfDesc]),
	}
	editID := m.editPlanID
	m.modal = adminNoModal
	m.busy = true
	c := m.client
	return m, func() tea.Msg {
		var err error
		note := "Plan created: " + req.Name
		if editID != "" {
			err = c.AdminUpdatePlan(context.Background(), editID, req)
			note = "Plan updated: " + req.Name
		} else {
			_, err = c.AdminCreatePlan(context.Background(), req)
		}
		return adminActionMsg{note: note, err: err}
	}
}

func (m adminModel) helpKeys() string {
	if m.modal == adminPlanForm {
		return helpEntry("tab", "next field") + "  " + helpEntry("ctrl+s", "save") + "  " + helpEntry("esc", "cancel")
	}
	if m.modal != adminNoModal {
		return helpEntry("enter", "confirm") + "  " + helpEntry("esc", "cancel")
	}
	base := helpEntry("h/l", "tab") + "  " + helpEntry("j/k", "move") + "  " + helpEntry("r", "refresh")
	switch m.tab {
	case adminPlansTab:
		return base + "  " + helpEntry("a", "add") + "  " + helpEntry("e", "edit") + "  " + helpEntry("d", "delete")
	case adminWithdrawalsTab:
		return base + "  " + helpEntry("y", "approve") + "  " + helpEntry("x", "reject")
	case adminSettings:
		return base + "  " + helpEntry("e", "edit")
	}
	return base + "  " + helpEntry("q", "quit")
}

func (m adminModel) View() string {
	var b strings.Builder

	var tabsLine []string
	for i := adminTab(0); i < numAdminTabs; i++ {
		if i == m.tab {
			tabsLine = append(tabsLine, selectedStyle.Render("["+adminTabNames[i]+"]"))
		} else {
			tabsLine = append(tabsLine, dimStyle.Render(" "+adminTabNames[i]+" "))
		}
	}
	b.WriteString("\n  " + strings.Join(tabsLine, " "))
	if !m.lastRefresh.IsZero() {
		b.WriteString("   " + metaStyle.Render("updated "+formatTime(m.lastRefresh)))
	}
	if m.refreshing > 0 {
		b.WriteString("   " + dimStyle.Render("refreshing..."))
	}
	b.WriteString("\n\n")

	switch m.modal {
	case adminPlanForm:
		b.WriteString(m.planFormView())
		return b.String()
	case adminDeleteConfirm:
		if m.cursor < len(m.plans) {
			b.WriteString("  " + errorStyle.Render("Delete plan "+m.plans[m.cursor].Name+"?") + " " + metaStyle.Render("y/n") + "\n")
		}
		return b.String()
	case adminRejectReason:
		b.WriteString("  " + sectionHeaderStyle.Render("Reject withdrawal") + "\n\n")
		b.WriteString(renderField("reason", m.reason, "why was this rejected", true, m.frame) + "\n")
		if m.errMsg != "" {
			b.WriteString("\n  " + errorStyle.Render(m.errMsg))
		}
		return b.String()
	case adminReloadEdit:
		b.WriteString("  " + sectionHeaderStyle.Render("Captcha reload time") + "\n\n")
		b.WriteString(renderField("seconds", m.reloadText, "5-300", true, m.frame) + "\n")
		if m.errMsg != "" {
			b.WriteString("\n  " + errorStyle.Render(m.errMsg))
		}
		return b.String()
	}

	switch m.tab {
	case adminStats:
		b.WriteString(m.statsView())
	case adminUsers:
		b.WriteString(m.usersView())
	case adminPlansTab:
		b.WriteString(m.plansView())
	case adminCaptchas:
		b.WriteString(m.captchasView())
	case adminWithdrawalsTab:
		b.WriteString(m.withdrawalsView())
	case adminPurchases:
		b.WriteString(m.purchasesView())
	case adminSettings:
		b.WriteString(m.settingsView())
	}
	return b.String()
}

func (m adminModel) statsView() string {
	if m.stats == nil {
		return "  " + dimStyle.Render("no data yet")
	}
	s := m.stats
	var b strings.Builder
	fmt.Fprintf(&b, "  %s %d\n", labelStyle.Render("users"), s.TotalUsers)
	fmt.Fprintf(&b, "  %s %d\n", labelStyle.Render("active plans"), s.ActivePlans)
	fmt.Fprintf(&b, "  %s %s\n", labelStyle.Render("revenue"), moneyStyle.Render(inr(s.TotalRevenue)))
	fmt.Fprintf(&b, "  %s %d\n", labelStyle.Render("captchas solved"), s.TotalSolved)
	fmt.Fprintf(&b, "  %s %s\n", labelStyle.Render("paid out"), normalStyle.Render(inr(s.TotalPaidOut)))
	fmt.Fprintf(&b, "  %s %d\n", labelStyle.Render("pending payouts"), s.PendingWithdrawals)

	if len(m.planStats) > 0 {
		b.WriteString("\n  " + sectionHeaderStyle.Render("Per plan") + "\n")
		for _, ps := range m.planStats {
			fmt.Fprintf(&b, "  %s  %d active · %d sold · %s\n",
				normalStyle.Render(truncStr(ps.PlanName, 20)),
				ps.ActiveUsers, ps.TotalSales, moneyStyle.Render(inr(ps.Revenue)))
		}
	}
	return b.String()
}

func (m adminModel) usersView() string {
	if len(m.users) == 0 {
		return "  " + dimStyle.Render("no users")
	}
	var b strings.Builder
	for i, u := range m.users {
		cursor := " "
		style := normalStyle
		if i == m.cursor {
			cursor = ">"
			style = selectedStyle
		}
		plan := dimStyle.Render("no plan")
		if u.Plan != nil {
			plan = accentStyle.Render(u.Plan.Name)
		}
		fmt.Fprintf(&b, "%s %s  %s  %s  %s  %d solved\n",
			cursor,
			style.Render(truncStr(u.Name, 20)),
			metaStyle.Render(truncStr(u.Email, 26)),
			plan,
			moneyStyle.Render(inr(u.TotalEarnings)),
			u.SolvedTotal)
	}
	return b.String()
}

func (m adminModel) plansView() string {
	if len(m.plans) == 0 {
		return "  " + dimStyle.Render("no plans · press a to add one")
	}
	var b strings.Builder
	for i, p := range m.plans {
		cursor := " "
		style := normalStyle
		if i == m.cursor {
			cursor = ">"
			style = selectedStyle
		}
		price := moneyStyle.Render(inr(p.Price))
		if p.Free() {
			price = earnedStyle.Render("demo")
		}
		fmt.Fprintf(&b, "%s %s  %s  %dd · %d/day · %s per solve\n",
			cursor, style.Render(truncStr(p.Name, 22)), price,
			p.ValidityDays, p.CaptchaLimit, inr(p.EarningsPerCaptcha))
	}
	return b.String()
}

func (m adminModel) captchasView() string {
	if len(m.captchas) == 0 {
		return "  " + dimStyle.Render("no captchas")
	}
	var b strings.Builder
	for i, c := range m.captchas {
		cursor := " "
		style := normalStyle
		if i == m.cursor {
			cursor = ">"
			style = selectedStyle
		}
		fmt.Fprintf(&b, "%s %s  %s\n",
			cursor,
			DifficultyStyle(c.Difficulty).Render(fmt.Sprintf("%-6s", c.Difficulty)),
			style.Render(truncStr(stripMarkup(c.Image), 60)))
	}
	return b.String()
}

func (m adminModel) withdrawalsView() string {
	if len(m.withdrawals) == 0 {
		return "  " + dimStyle.Render("no withdrawal requests")
	}
	var b strings.Builder
	for i, w := range m.withdrawals {
		cursor := " "
		style := normalStyle
		if i == m.cursor {
			cursor = ">"
			style = selectedStyle
		}
		line := fmt.Sprintf("%s %s  %s  %s  %s",
			cursor,
			style.Render(truncStr(w.UserName, 20)),
			moneyStyle.Render(inr(w.Amount)),
			StatusStyle(w.Status).Render(w.Status),
			metaStyle.Render(formatTime(w.CreatedAt)))
		b.WriteString(line + "\n")
		if i == m.cursor {
			d := w.BankDetails
			detail := fmt.Sprintf("    %s · %s · %s", d.AccountHolder, d.BankName, d.IFSCCode)
			if d.UPIID != "" {
				detail += " · " + d.UPIID
			}
			b.WriteString(dimStyle.Render(detail) + "\n")
		}
	}
	return b.String()
}

func (m adminModel) purchasesView() string {
	if len(m.purchases) == 0 {
		return "  " + dimStyle.Render("no purchases yet")
	}
	var b strings.Builder
	if n := len(m.subscribers); n > 0 {
		b.WriteString("  " + metaStyle.Render(fmt.Sprintf("%d users on a paid plan", n)) + "\n\n")
	}
	for i, p := range m.purchases {
		cursor := " "
		style := normalStyle
		if i == m.cursor {
			cursor = ">"
			style = selectedStyle
		}
		fmt.Fprintf(&b, "%s %s  %s  %s  %s\n",
			cursor,
			style.Render(truncStr(p.UserName, 20)),
			accentStyle.Render(truncStr(p.PlanName, 18)),
			moneyStyle.Render(inr(p.Amount)),
			metaStyle.Render(formatTime(p.CreatedAt)))
	}
	return b.String()
}

func (m adminModel) settingsView() string {
	var b strings.Builder
	if m.settings == nil {
		b.WriteString("  " + dimStyle.Render("settings not loaded") + "\n")
		return b.String()
	}
	fmt.Fprintf(&b, "  %s %ds\n", labelStyle.Render("captcha reload time"), m.settings.ReloadTime)
	b.WriteString("\n  " + metaStyle.Render("press e to change"))
	return b.String()
}

func (m adminModel) planFormView() string {
	var b strings.Builder
	title := "New plan"
	if m.editPlanID != "" {
		title = "Edit plan"
	}
	b.WriteString("  " + sectionHeaderStyle.Render(title) + "\n\n")
	placeholders := [numPlanFields]string{"Starter", "499", "30", "100", "2.5", "short pitch"}
	for i := planFormField(0); i < numPlanFields; i++ {
		b.WriteString(renderField(planFieldLabels[i], m.planFields[i], placeholders[i], i == m.planFocus, m.frame) + "\n")
	}
	if m.errMsg != "" {
		b.WriteString("\n  " + errorStyle.Render(m.errMsg))
	}
	return b.String()
}
