package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/arjunmehta/captchapay/internal/config"
	"github.com/arjunmehta/captchapay/pkg/client"
	"github.com/arjunmehta/captchapay/pkg/domain"
)

type withdrawField int

const (
	wdAmount withdrawField = iota
	wdHolder
	wdAccount
	wdBank
	wdIFSC
	wdUPI
	numWithdrawFields
)

var withdrawLabels = [numWithdrawFields]string{
	"amount", "account holder", "account number", "bank name", "ifsc", "upi (optional)",
}

type withdrawModel struct {
	client *client.Client
	cfg    *config.Config

	fields    [numWithdrawFields]string
	focus     withdrawField
	balance   float64
	haveBal   bool
	submitted bool
	errMsg    string
	frame     int
}

type withdrawBalanceMsg struct {
	balance float64
	err     error
}

type withdrawDoneMsg struct {
	amount float64
	err    error
}

func newWithdrawModel(c *client.Client, cfg *config.Config) withdrawModel {
	return withdrawModel{client: c, cfg: cfg}
}

func (m withdrawModel) Init() tea.Cmd {
	c := m.client
	return func() tea.Msg {
		bal, err := c.WalletBalance(context.Background())
		return withdrawBalanceMsg{balance: bal, err: err}
	}
}

func (m withdrawModel) Update(msg tea.Msg) (withdrawModel, tea.Cmd) {
	switch msg := msg.(type) {
	case shimmerTickMsg:
		m.frame++
		return m, nil

	case withdrawBalanceMsg:
		if msg.err == nil {
			m.balance = msg.balance
			m.haveBal = true
		}
		return m, nil

	case withdrawDoneMsg:
		m.submitted = false
		if msg.err != nil {
			txt := client.ErrorMessage(msg.err)
			if txt == "" {
				txt = msg.err.Error()
			}
			m.errMsg = txt
			return m, nil
		}
		m.fields = [numWithdrawFields]string{}
		m.focus = wdAmount
		return m, tea.Batch(
			toastCmd(toastSuccess, fmt.Sprintf("Withdrawal of %s requested", inr(msg.amount))),
			navigateCmd(viewWallet),
		)

	case tea.KeyMsg:
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m withdrawModel) updateKeys(msg tea.KeyMsg) (withdrawModel, tea.Cmd) {
	if m.submitted {
		return m, nil
	}
	m.errMsg = ""

	switch msg.String() {
	case "esc":
		return m, navigateCmd(viewWallet)
	case "tab", "down", "enter":
		m.focus = (m.focus + 1) % numWithdrawFields
	case "shift+tab", "up":
		m.focus = (m.focus - 1 + numWithdrawFields) % numWithdrawFields
	case "ctrl+s":
		return m.submit()
	default:
		m.fields[m.focus] = editRune(m.fields[m.focus], msg.String())
	}
	return m, nil
}

// submit validates everything locally before any network call.
func (m withdrawModel) submit() (withdrawModel, tea.Cmd) {
	amount, err := strconv.ParseFloat(strings.TrimSpace(m.fields[wdAmount]), 64)
	if err != nil || amount <= 0 {
		m.errMsg = "enter a valid amount"
		return m, nil
	}
	minAmount := m.cfg.WithdrawalMinimum
	if amount < minAmount {
		m.errMsg = fmt.Sprintf("minimum withdrawal is %s", inr(minAmount))
		return m, nil
	}
	if m.haveBal && amount > m.balance {
		m.errMsg = fmt.Sprintf("amount exceeds balance %s", inr(m.balance))
		return m, nil
	}

	details := domain.BankDetails{
		AccountHolder: strings.TrimSpace(m.fields[wdHolder]),
		AccountNumber: strings.TrimSpace(m.fields[wdAccount]),
		BankName:      strings.TrimSpace(m.fields[wdBank]),
		IFSCCode:      strings.ToUpper(strings.TrimSpace(m.fields[wdIFSC])),
		UPIID:         strings.TrimSpace(m.fields[wdUPI]),
	}
	switch {
	case details.AccountHolder == "":
		m.errMsg = "account holder is required"
		return m, nil
	case details.AccountNumber == "":
		m.errMsg = "account number is required"
		return m, nil
	case details.BankName == "":
		m.errMsg = "bank name is required"
		return m, nil
	case details.IFSCCode == "":
		m.errMsg = "ifsc code is required"
		return m, nil
	}

	m.submitted = true
	c := m.client
	return m, func() tea.Msg {
		err := c.RequestWithdrawal(context.Background(), amount, details)
		return withdrawDoneMsg{amount: amount, err: err}
	}
}

func (m withdrawModel) View() string {
	var b strings.Builder
	b.WriteString("\n" + sectionHeaderStyle.Render("  Request withdrawal") + "\n\n")

	if m.haveBal {
		b.WriteString("  " + labelStyle.Render("available") + " " + moneyStyle.Render(inr(m.balance)) +
			metaStyle.Render(fmt.Sprintf("   minimum %s", inr(m.cfg.WithdrawalMinimum))) + "\n\n")
	}

	placeholders := [numWithdrawFields]string{
		fmt.Sprintf("%.0f or more", m.cfg.WithdrawalMinimum), "name on the account", "", "", "SBIN0001234", "name@bank",
	}
	for i := withdrawField(0); i < numWithdrawFields; i++ {
		b.WriteString(renderField(withdrawLabels[i], m.fields[i], placeholders[i], i == m.focus, m.frame) + "\n")
	}
	b.WriteString("\n")

	switch {
	case m.submitted:
		b.WriteString("  " + dimStyle.Render("submitting request..."))
	case m.errMsg != "":
		b.WriteString("  " + errorStyle.Render(m.errMsg))
	default:
		b.WriteString("  " + metaStyle.Render("Requests are reviewed by an admin before payout."))
	}
	return b.String()
}
