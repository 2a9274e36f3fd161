package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/arjunmehta/captchapay/pkg/client"
	"github.com/arjunmehta/captchapay/pkg/domain"
)

func newTestWalletModel() walletModel {
	return newWalletModel(client.New("http://test.invalid", "tok"), testConfig())
}

func startedWallet(m walletModel) walletModel {
	m, _ = m.Update(walletStartMsg{})
	return m
}

func TestWalletDataRendered(t *testing.T) {
	m := startedWallet(newTestWalletModel())
	m, _ = m.Update(walletDataMsg{
		gen:    m.pollGen,
		wallet: &domain.Wallet{Balance: 350.5, TotalEarned: 900, TotalWithdrawn: 550},
	})

	view := m.View()
	if !strings.Contains(view, "₹350.50") {
		t.Errorf("balance not rendered: %s", view)
	}
	if !strings.Contains(view, "₹900.00") {
		t.Error("total earned not rendered")
	}
}

func TestWalletStatusChangeEmitsToast(t *testing.T) {
	m := startedWallet(newTestWalletModel())

	first := []domain.Withdrawal{{ID: "w1", Status: domain.WithdrawalPending, Amount: 500}}
	m, cmd := m.Update(walletDataMsg{gen: m.pollGen, wallet: &domain.Wallet{}, withdrawals: first})
	if cmd != nil {
		t.Error("first poll must not announce transitions")
	}

	second := []domain.Withdrawal{{ID: "w1", Status: domain.WithdrawalApproved, Amount: 500}}
	m, cmd = m.Update(walletDataMsg{gen: m.pollGen, wallet: &domain.Wallet{}, withdrawals: second})
	if cmd == nil {
		t.Fatal("expected a transition toast")
	}

	// Repeating the same snapshot announces nothing further.
	_, cmd = m.Update(walletDataMsg{gen: m.pollGen, wallet: &domain.Wallet{}, withdrawals: second})
	if cmd != nil {
		t.Error("unchanged snapshot must stay quiet")
	}
}

func TestWalletStaleDataIgnored(t *testing.T) {
	m := startedWallet(newTestWalletModel())
	m, _ = m.Update(walletDataMsg{gen: m.pollGen - 1, wallet: &domain.Wallet{Balance: 999}})
	if m.wallet != nil {
		t.Error("stale poll result must be discarded")
	}
}

func TestWalletPagination(t *testing.T) {
	m := startedWallet(newTestWalletModel())

	full := make([]domain.Transaction, m.cfg.PageSize)
	for i := range full {
		full[i] = domain.Transaction{ID: "t", Type: domain.TxnCredit, Amount: 1}
	}
	m, _ = m.Update(walletTxnsMsg{gen: m.pollGen, page: 1, txns: full})
	if m.lastPage {
		t.Error("full page is not the last page")
	}

	// Next page request is allowed.
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	if cmd == nil {
		t.Error("expected fetch for next page")
	}

	// A short page marks the end.
	m, _ = m.Update(walletTxnsMsg{gen: m.pollGen, page: 2, txns: full[:3]})
	if !m.lastPage {
		t.Error("short page should mark the end")
	}
	if m.page != 2 {
		t.Errorf("page = %d, want 2", m.page)
	}
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	if cmd != nil {
		t.Error("paging past the end must be blocked")
	}
}

func TestWalletEmptyPageBeyondEndKeepsCurrent(t *testing.T) {
	m := startedWallet(newTestWalletModel())
	m, _ = m.Update(walletTxnsMsg{gen: m.pollGen, page: 1, txns: []domain.Transaction{{ID: "t1", Type: domain.TxnCredit, Amount: 1}}})

	m, _ = m.Update(walletTxnsMsg{gen: m.pollGen, page: 2, txns: nil})
	if m.page != 1 {
		t.Errorf("page = %d, want to stay on 1", m.page)
	}
	if len(m.txns) != 1 {
		t.Error("current page content must be kept")
	}
}

func TestWalletWithdrawShortcutGatedByMinimum(t *testing.T) {
	m := startedWallet(newTestWalletModel())
	m, _ = m.Update(walletDataMsg{gen: m.pollGen, wallet: &domain.Wallet{Balance: 50}})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("w")})
	if cmd == nil {
		t.Fatal("expected a warning command")
	}
	if msg, ok := cmd().(showToastMsg); !ok || msg.level != toastWarn {
		t.Errorf("expected warn toast below minimum, got %#v", cmd())
	}

	m, _ = m.Update(walletDataMsg{gen: m.pollGen, wallet: &domain.Wallet{Balance: 500}})
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("w")})
	if cmd == nil {
		t.Fatal("expected navigation command")
	}
	if msg, ok := cmd().(navigateMsg); !ok || msg.to != viewWithdraw {
		t.Errorf("expected navigation to withdraw, got %#v", cmd())
	}
}
