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

type walletModel struct {
	client *client.Client
	cfg    *config.Config

	wallet      *domain.Wallet
	txns        []domain.Transaction
	withdrawals []domain.Withdrawal
	page        int
	lastPage    bool
	loading     bool
	errMsg      string

	pollGen int
}

type walletStartMsg struct{}

type walletDataMsg struct {
	gen         int
	wallet      *domain.Wallet
	withdrawals []domain.Withdrawal
	err         error
}

type walletTxnsMsg struct {
	gen  int
	page int
	txns []domain.Transaction
	err  error
}

type walletTickMsg struct {
	gen int
}

func newWalletModel(c *client.Client, cfg *config.Config) walletModel {
	return walletModel{client: c, cfg: cfg, page: 1}
}

func (m walletModel) Init() tea.Cmd {
	return func() tea.Msg { return walletStartMsg{} }
}

func (m walletModel) fetch(gen int) tea.Cmd {
	c := m.client
	return func() tea.Msg {
		ctx := context.Background()
		wallet, err := c.Wallet(ctx)
		if err != nil {
			return walletDataMsg{gen: gen, err: err}
		}
		withdrawals, err := c.MyWithdrawals(ctx)
		return walletDataMsg{gen: gen, wallet: wallet, withdrawals: withdrawals, err: err}
	}
}

func (m walletModel) fetchTxns(gen, page int) tea.Cmd {
	c := m.client
	limit := m.cfg.PageSize
	return func() tea.Msg {
		txns, err := c.Transactions(context.Background(), page, limit)
		return walletTxnsMsg{gen: gen, page: page, txns: txns, err: err}
	}
}

func (m walletModel) tick(gen int) tea.Cmd {
	return tea.Tick(m.cfg.PollInterval, func(time.Time) tea.Msg {
		return walletTickMsg{gen: gen}
	})
}

func (m walletModel) Update(msg tea.Msg) (walletModel, tea.Cmd) {
	switch msg := msg.(type) {
	case walletStartMsg:
		m.pollGen++
		m.loading = m.wallet == nil
		return m, tea.Batch(m.fetch(m.pollGen), m.fetchTxns(m.pollGen, m.page), m.tick(m.pollGen))

	case walletTickMsg:
		if msg.gen != m.pollGen {
			return m, nil
		}
		return m, tea.Batch(m.fetch(m.pollGen), m.tick(m.pollGen))

	case walletDataMsg:
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

		// Announce status transitions observed between polls, once each.
		var cmds []tea.Cmd
		for _, ch := range domain.DiffWithdrawals(m.withdrawals, msg.withdrawals) {
			level := toastInfo
			switch ch.Withdrawal.Status {
			case domain.WithdrawalApproved, domain.WithdrawalCompleted:
				level = toastSuccess
			case domain.WithdrawalRejected:
				level = toastError
			}
			cmds = append(cmds, toastCmd(level, fmt.Sprintf("Withdrawal of %s is now %s", inr(ch.Withdrawal.Amount), ch.Withdrawal.Status)))
		}
		m.withdrawals = msg.withdrawals
		if len(cmds) > 0 {
			return m, tea.Batch(cmds...)
		}
		return m, nil

	case walletTxnsMsg:
		if msg.gen != m.pollGen {
			return m, nil
		}
		if msg.err != nil {
			m.errMsg = "could not load transactions: " + msg.err.Error()
			return m, nil
		}
		if len(msg.txns) == 0 && msg.page > 1 {
			// Ran past the end; stay on the last populated page.
			m.lastPage = true
			return m, nil
		}
		m.page = msg.page
		m.txns = msg.txns
		m.lastPage = len(msg.txns) < m.cfg.PageSize
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "r":
			return m, tea.Batch(m.fetch(m.pollGen), m.fetchTxns(m.pollGen, m.page))
		case "n", "right":
			if !m.lastPage {
				return m, m.fetchTxns(m.pollGen, m.page+1)
			}
		case "p", "left":
			if m.page > 1 {
				return m, m.fetchTxns(m.pollGen, m.page-1)
			}
		case "w":
			if m.wallet != nil && m.wallet.Balance < m.cfg.WithdrawalMinimum {
				return m, toastCmd(toastWarn, fmt.Sprintf("Minimum withdrawal is %s", inr(m.cfg.WithdrawalMinimum)))
			}
			return m, navigateCmd(viewWithdraw)
		}
	}
	return m, nil
}

func (m walletModel) View() string {
	var b strings.Builder
	b.WriteString("\n" + sectionHeaderStyle.Render("  Wallet") + "\n\n")

	switch {
	case m.loading:
		b.WriteString("  " + dimStyle.Render("loading wallet..."))
		return b.String()
	case m.errMsg != "":
		b.WriteString("  " + errorStyle.Render(m.errMsg) + "\n\n")
	}

	if m.wallet != nil {
		b.WriteString(fmt.Sprintf("  %s %s   %s %s   %s %s\n\n",
			labelStyle.Render("balance"), moneyStyle.Render(inr(m.wallet.Balance)),
			labelStyle.Render("earned"), normalStyle.Render(inr(m.wallet.TotalEarned)),
			labelStyle.Render("withdrawn"), normalStyle.Render(inr(m.wallet.TotalWithdrawn))))
	}

	if len(m.withdrawals) > 0 {
		b.WriteString("  " + sectionHeaderStyle.Render("Withdrawals") + "\n")
		shown := m.withdrawals
		if len(shown) > 5 {
			shown = shown[:5]
		}
		for _, w := range shown {
			line := fmt.Sprintf("  %s  %s  %s",
				normalStyle.Render(inr(w.Amount)),
				StatusStyle(w.Status).Render(w.Status),
				metaStyle.Render(formatTime(w.CreatedAt)))
			if w.Status == domain.WithdrawalRejected && w.Remarks != "" {
				line += "  " + dimStyle.Render(truncStr(w.Remarks, 40))
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("  " + sectionHeaderStyle.Render(fmt.Sprintf("Transactions · page %d", m.page)) + "\n")
	if len(m.txns) == 0 {
		b.WriteString("  " + dimStyle.Render("no transactions yet") + "\n")
		return b.String()
	}
	for _, t := range m.txns {
		amount := "+" + inr(t.Amount)
		style := earnedStyle
		if t.Type == domain.TxnDebit {
			amount = "-" + inr(t.Amount)
			style = errorStyle
		}
		b.WriteString(fmt.Sprintf("  %s  %s  %s\n",
			style.Render(fmt.Sprintf("%10s", amount)),
			normalStyle.Render(truncStr(t.Description, 44)),
			metaStyle.Render(formatTime(t.CreatedAt))))
	}
	if m.lastPage {
		b.WriteString("  " + dimStyle.Render("end of history") + "\n")
	}
	return b.String()
}
