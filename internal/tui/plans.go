package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/arjunmehta/captchapay/internal/browser"
	"github.com/arjunmehta/captchapay/internal/config"
	"github.com/arjunmehta/captchapay/pkg/client"
	"github.com/arjunmehta/captchapay/pkg/domain"
)

type plansMode int

const (
	plansBrowsing plansMode = iota
	plansPaying
)

type proofField int

const (
	proofPaymentID proofField = iota
	proofSignature
	numProofFields
)

type plansModel struct {
	client *client.Client
	cfg    *config.Config

	mode    plansMode
	plans   []domain.Plan
	cursor  int
	user    *domain.User
	loading bool
	busy    bool
	errMsg  string
	frame   int

	// checkout state, valid while mode == plansPaying
	order      *domain.PaymentOrder
	payingPlan domain.Plan
	proof      [numProofFields]string
	proofFocus proofField
}

type plansLoadedMsg struct {
	plans []domain.Plan
	err   error
}

type demoActivatedMsg struct {
	err error
}

type paymentInitMsg struct {
	plan  domain.Plan
	order *domain.PaymentOrder
	err   error
}

type paymentVerifiedMsg struct {
	plan domain.Plan
	err  error
}

func newPlansModel(c *client.Client, cfg *config.Config) plansModel {
	return plansModel{client: c, cfg: cfg}
}

func (m plansModel) Init() tea.Cmd {
	return m.load()
}

func (m plansModel) editing() bool { return m.mode == plansPaying }

func (m plansModel) load() tea.Cmd {
	c := m.client
	return func() tea.Msg {
		plans, err := c.ListPlans(context.Background())
		return plansLoadedMsg{plans: plans, err: err}
	}
}

func (m plansModel) Update(msg tea.Msg) (plansModel, tea.Cmd) {
	switch msg := msg.(type) {
	case shimmerTickMsg:
		m.frame++
		return m, nil

	case meLoadedMsg:
		if msg.err == nil && msg.user != nil {
			m.user = msg.user
		}
		return m, nil

	case plansLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.errMsg = "could not load plans: " + msg.err.Error()
			return m, nil
		}
		m.errMsg = ""
		m.plans = msg.plans
		if m.cursor >= len(m.plans) {
			m.cursor = 0
		}
		return m, nil

	case demoActivatedMsg:
		m.busy = false
		if msg.err != nil {
			txt := client.ErrorMessage(msg.err)
			if txt == "" {
				txt = msg.err.Error()
			}
			return m, toastCmd(toastError, "Demo activation failed: "+txt)
		}
		return m, tea.Batch(
			toastCmd(toastSuccess, "Demo plan activated"),
			refreshMeCmd(m.client),
			navigateCmd(viewCaptcha),
		)

	case paymentInitMsg:
		m.busy = false
		if msg.err != nil {
			txt := client.ErrorMessage(msg.err)
			if txt == "" {
				txt = msg.err.Error()
			}
			return m, toastCmd(toastError, "Payment setup failed: "+txt)
		}
		m.mode = plansPaying
		m.order = msg.order
		m.payingPlan = msg.plan
		m.proof = [numProofFields]string{}
		m.proofFocus = proofPaymentID
		return m, tea.Batch(
			m.openCheckout(),
			toastCmd(toastInfo, "Complete the payment in your browser, then paste the receipt here"),
		)

	case paymentVerifiedMsg:
		m.busy = false
		if msg.err != nil {
			txt := client.ErrorMessage(msg.err)
			if txt == "" {
				txt = msg.err.Error()
			}
			m.errMsg = "verification failed: " + txt
			return m, nil
		}
		m.mode = plansBrowsing
		m.order = nil
		return m, tea.Batch(
			toastCmd(toastSuccess, "Payment verified. "+msg.plan.Name+" is active"),
			refreshMeCmd(m.client),
			navigateCmd(viewDashboard),
		)

	case tea.KeyMsg:
		if m.mode == plansPaying {
			return m.updateCheckoutKeys(msg)
		}
		return m.updateBrowseKeys(msg)
	}
	return m, nil
}

func (m plansModel) updateBrowseKeys(msg tea.KeyMsg) (plansModel, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		if m.cursor < len(m.plans)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "r":
		m.loading = true
		return m, m.load()
	case "enter":
		return m.choose()
	}
	return m, nil
}

func (m plansModel) choose() (plansModel, tea.Cmd) {
	if m.busy || m.cursor >= len(m.plans) {
		return m, nil
	}
	plan := m.plans[m.cursor]
	m.busy = true
	c := m.client

	if plan.Free() {
		return m, func() tea.Msg {
			err := c.SelectDemoPlan(context.Background())
			return demoActivatedMsg{err: err}
		}
	}

	return m, func() tea.Msg {
		order, err := c.InitializePayment(context.Background(), plan.ID)
		return paymentInitMsg{plan: plan, order: order, err: err}
	}
}

func (m plansModel) updateCheckoutKeys(msg tea.KeyMsg) (plansModel, tea.Cmd) {
	m.errMsg = ""
	switch msg.String() {
	case "esc":
		m.mode = plansBrowsing
		m.order = nil
		m.busy = false
		return m, toastCmd(toastWarn, "Payment cancelled. The order is abandoned")
	case "tab", "down":
		m.proofFocus = (m.proofFocus + 1) % numProofFields
	case "shift+tab", "up":
		m.proofFocus = (m.proofFocus - 1 + numProofFields) % numProofFields
	case "ctrl+o":
		return m, m.openCheckout()
	case "ctrl+y":
		if m.order != nil {
			if err := clipboard.WriteAll(m.order.OrderID); err != nil {
				return m, toastCmd(toastWarn, "clipboard unavailable")
			}
			return m, toastCmd(toastInfo, "Order ID copied")
		}
	case "ctrl+s", "enter":
		if msg.String() == "enter" && m.proofFocus == proofPaymentID {
			m.proofFocus = proofSignature
			return m, nil
		}
		return m.verify()
	default:
		m.proof[m.proofFocus] = editRune(m.proof[m.proofFocus], msg.String())
	}
	return m, nil
}

// openCheckout launches the hosted payment page for the pending order.
func (m plansModel) openCheckout() tea.Cmd {
	if m.order == nil {
		return nil
	}
	url := checkoutURL(m.cfg.APIURL, m.order)
	return func() tea.Msg {
		if err := browser.Open(url); err != nil {
			return showToastMsg{level: toastWarn, text: "Could not open browser. Visit " + url}
		}
		return nil
	}
}

// checkoutURL points at the payment page on the web origin that fronts the
// API. The API URL conventionally ends in /api.
func checkoutURL(apiURL string, order *domain.PaymentOrder) string {
	base := strings.TrimSuffix(strings.TrimSuffix(apiURL, "/"), "/api")
	return fmt.Sprintf("%s/checkout?orderId=%s&key=%s", base, order.OrderID, order.KeyID)
}

func (m plansModel) verify() (plansModel, tea.Cmd) {
	paymentID := strings.TrimSpace(m.proof[proofPaymentID])
	signature := strings.TrimSpace(m.proof[proofSignature])
	if paymentID == "" || signature == "" {
		m.errMsg = "payment id and signature are both required"
		return m, nil
	}
	if m.busy || m.order == nil {
		return m, nil
	}

	m.busy = true
	proof := domain.PaymentProof{
		OrderID:   m.order.OrderID,
		PaymentID: paymentID,
		Signature: signature,
		PlanID:    m.payingPlan.ID,
	}
	c := m.client
	plan := m.payingPlan
	return m, func() tea.Msg {
		err := c.VerifyPayment(context.Background(), proof)
		return paymentVerifiedMsg{plan: plan, err: err}
	}
}

// refreshMeCmd re-fetches the identity after anything that changes the plan
// or balance server-side.
func refreshMeCmd(c *client.Client) tea.Cmd {
	return func() tea.Msg {
		u, err := c.Me(context.Background())
		return meLoadedMsg{user: u, err: err}
	}
}

func (m plansModel) helpKeys() string {
	if m.mode == plansPaying {
		return helpEntry("ctrl+o", "reopen browser") + "  " + helpEntry("ctrl+y", "copy order id") + "  " + helpEntry("ctrl+s", "verify") + "  " + helpEntry("esc", "cancel")
	}
	return helpEntry("j/k", "move") + "  " + helpEntry("enter", "choose plan") + "  " + helpEntry("r", "refresh") + "  " + helpEntry("1-5", "tabs") + "  " + helpEntry("q", "quit")
}

func (m plansModel) View() string {
	if m.mode == plansPaying {
		return m.checkoutView()
	}

	var b strings.Builder
	b.WriteString("\n" + sectionHeaderStyle.Render("  Plans") + "\n\n")

	if m.loading && len(m.plans) == 0 {
		b.WriteString("  " + dimStyle.Render("loading plans..."))
		return b.String()
	}
	if m.errMsg != "" {
		b.WriteString("  " + errorStyle.Render(m.errMsg))
		return b.String()
	}
	if len(m.plans) == 0 {
		b.WriteString("  " + dimStyle.Render("no plans available"))
		return b.String()
	}

	activeID := ""
	if m.user != nil && m.user.Plan != nil {
		activeID = m.user.Plan.ID
	}

	for i, p := range m.plans {
		cursor := " "
		nameStyle := normalStyle
		if i == m.cursor {
			cursor = ">"
			nameStyle = selectedStyle
		}

		price := moneyStyle.Render(inr(p.Price))
		if p.Free() {
			price = earnedStyle.Render("free demo")
		}
		line := fmt.Sprintf("%s %s  %s", cursor, nameStyle.Render(truncStr(p.Name, 24)), price)
		if p.ID == activeID {
			line += "  " + accentStyle.Render("● active")
		}
		b.WriteString(line + "\n")

		meta := fmt.Sprintf("    %d days · %d captchas/day · %s per solve · up to %s/day",
			p.ValidityDays, p.CaptchaLimit, inr(p.EarningsPerCaptcha), inr(p.DailyPotential()))
		b.WriteString(metaStyle.Render(meta) + "\n")
		if i == m.cursor && p.Description != "" {
			b.WriteString(dimStyle.Render("    "+truncStr(p.Description, 72)) + "\n")
		}
	}

	if m.busy {
		b.WriteString("\n  " + dimStyle.Render("working..."))
	}
	return b.String()
}

func (m plansModel) checkoutView() string {
	var b strings.Builder
	b.WriteString("\n" + sectionHeaderStyle.Render("  Checkout: "+m.payingPlan.Name) + "\n\n")

	if m.order != nil {
		b.WriteString("  " + labelStyle.Render("order") + "  " + normalStyle.Render(m.order.OrderID) + "\n")
		b.WriteString("  " + labelStyle.Render("amount") + " " + moneyStyle.Render(inr(m.order.Amount)) + " " + metaStyle.Render(m.order.Currency) + "\n\n")
	}

	b.WriteString("  " + metaStyle.Render("Pay in the browser window, then paste the receipt fields below.") + "\n\n")
	b.WriteString(renderField("payment id", m.proof[proofPaymentID], "pay_...", m.proofFocus == proofPaymentID, m.frame) + "\n")
	b.WriteString(renderField("signature", m.proof[proofSignature], "hex signature", m.proofFocus == proofSignature, m.frame) + "\n\n")

	switch {
	case m.busy:
		b.WriteString("  " + dimStyle.Render("verifying payment..."))
	case m.errMsg != "":
		b.WriteString("  " + errorStyle.Render(m.errMsg))
	}
	return b.String()
}
