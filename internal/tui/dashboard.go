package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/arjunmehta/captchapay/internal/config"
	"github.com/arjunmehta/captchapay/pkg/client"
	"github.com/arjunmehta/captchapay/pkg/domain"
)

type dashboardModel struct {
	client *client.Client
	cfg    *config.Config

	user     *domain.User
	wallet   *domain.Wallet
	earnings domain.EarningsWindows
	loading  bool
	errMsg   string

	// pollGen invalidates in-flight ticks when the view restarts.
	pollGen int
}

type dashStartMsg struct{}

type dashDataMsg struct {
	gen    int
	wallet *domain.Wallet
	txns   []domain.Transaction
	err    error
}

type dashTickMsg struct {
	gen int
}

func newDashboardModel(c *client.Client, cfg *config.Config) dashboardModel {
	return dashboardModel{client: c, cfg: cfg}
}

func (m dashboardModel) Init() tea.Cmd {
	return func() tea.Msg { return dashStartMsg{} }
}

func (m dashboardModel) fetch(gen int) tea.Cmd {
	c := m.client
	return func() tea.Msg {
		ctx := context.Background()
		wallet, err := c.Wallet(ctx)
		if err != nil {
			return dashDataMsg{gen: gen, err: err}
		}
		// A large first page is enough to cover the month window for
		// typical accounts; older credits age out of every window anyway.
		txns, err := c.Transactions(ctx, 1, 200)
		return dashDataMsg{gen: gen, wallet: wallet, txns: txns, err: err}
	}
}

func (m dashboardModel) tick(gen int) tea.Cmd {
	return tea.Tick(m.cfg.PollInterval, func(time.Time) tea.Msg {
		return dashTickMsg{gen: gen}
	})
}

func (m dashboardModel) Update(msg tea.Msg) (dashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case dashStartMsg:
		m.pollGen++
		m.loading = m.wallet == nil
		return m, tea.Batch(m.fetch(m.pollGen), m.tick(m.pollGen))

	case dashTickMsg:
		if msg.gen != m.pollGen {
			return m, nil
		}
		return m, tea.Batch(m.fetch(m.pollGen), m.tick(m.pollGen))

	case dashDataMsg:
		if msg.gen != m.pollGen {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.errMsg = "refresh failed: " + msg.err.Error()
			return m, nil
		}
		m.errMsg = ""
		m.wallet = msg.wallet
		m.earnings = domain.AggregateEarnings(msg.txns, time.Now())
		return m, nil

	case meLoadedMsg:
		if msg.err == nil && msg.user != nil {
			m.user = msg.user
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "r" {
			return m, tea.Batch(m.fetch(m.pollGen), refreshMeCmd(m.client))
		}
	}
	return m, nil
}

func (m dashboardModel) View() string {
	var b strings.Builder
	b.WriteString("\n" + sectionHeaderStyle.Render("  Dashboard") + "\n\n")

	if m.user != nil {
		b.WriteString("  " + labelStyle.Render("account") + "  " + normalStyle.Render(m.user.Name) + " " + metaStyle.Render("<"+m.user.Email+">") + "\n")
		switch {
		case m.user.Plan != nil:
			planLine := accentStyle.Render(m.user.Plan.Name)
			if m.user.PlanExpiry != nil {
				planLine += metaStyle.Render(fmt.Sprintf("  %d days left", m.user.PlanDaysLeft(time.Now())))
			}
			b.WriteString("  " + labelStyle.Render("plan") + "     " + planLine + "\n")
		case m.user.PlanKnown:
			b.WriteString("  " + labelStyle.Render("plan") + "     " + errorStyle.Render("none") + metaStyle.Render("  press 4 to browse plans") + "\n")
		}
		b.WriteString("  " + labelStyle.Render("solved") + "   " + normalStyle.Render(fmt.Sprintf("%d captchas", m.user.SolvedTotal)) + "\n")
		b.WriteString("\n")
	}

	switch {
	case m.loading:
		b.WriteString("  " + dimStyle.Render("loading wallet..."))
		return b.String()
	case m.errMsg != "":
		b.WriteString("  " + errorStyle.Render(m.errMsg) + "\n")
	}

	if m.wallet != nil {
		b.WriteString("  " + labelStyle.Render("balance") + "    " + moneyStyle.Render(inr(m.wallet.Balance)) + "\n")
		b.WriteString("  " + labelStyle.Render("earned") + "     " + normalStyle.Render(inr(m.wallet.TotalEarned)) + "\n")
		b.WriteString("  " + labelStyle.Render("withdrawn") + "  " + normalStyle.Render(inr(m.wallet.TotalWithdrawn)) + "\n\n")

		b.WriteString("  " + sectionHeaderStyle.Render("Earnings") + "\n")
		b.WriteString("  " + labelStyle.Render("today") + "      " + earnedStyle.Render(inr(m.earnings.Today)) + "\n")
		b.WriteString("  " + labelStyle.Render("this week") + "  " + earnedStyle.Render(inr(m.earnings.Week)) + "\n")
		b.WriteString("  " + labelStyle.Render("this month") + " " + earnedStyle.Render(inr(m.earnings.Month)) + "\n")
	}

	return b.String()
}
