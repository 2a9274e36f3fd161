package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/arjunmehta/captchapay/pkg/client"
)

func newTestWithdrawModel() withdrawModel {
	return newWithdrawModel(client.New("http://test.invalid", "tok"), testConfig())
}

func fillWithdrawForm(m withdrawModel) withdrawModel {
	m.fields[wdAmount] = "500"
	m.fields[wdHolder] = "Asha Kumar"
	m.fields[wdAccount] = "1234567890"
	m.fields[wdBank] = "State Bank"
	m.fields[wdIFSC] = "sbin0001234"
	return m
}

func TestWithdrawValidFormSubmits(t *testing.T) {
	m := fillWithdrawForm(newTestWithdrawModel())
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	if !m.submitted {
		t.Error("expected submitted state")
	}
	if cmd == nil {
		t.Error("expected request command")
	}
}

func TestWithdrawRejectsBelowMinimum(t *testing.T) {
	m := fillWithdrawForm(newTestWithdrawModel())
	m.fields[wdAmount] = "100"

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	if m.submitted {
		t.Error("below-minimum amount must not submit")
	}
	if cmd != nil {
		t.Error("no network call expected")
	}
	if !strings.Contains(m.errMsg, "minimum") {
		t.Errorf("errMsg = %q, want minimum notice", m.errMsg)
	}
}

func TestWithdrawRejectsNonNumericAmount(t *testing.T) {
	m := fillWithdrawForm(newTestWithdrawModel())
	m.fields[wdAmount] = "lots"

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	if m.submitted {
		t.Error("non-numeric amount must not submit")
	}
	if m.errMsg == "" {
		t.Error("expected validation message")
	}
}

func TestWithdrawRejectsAmountOverBalance(t *testing.T) {
	m := fillWithdrawForm(newTestWithdrawModel())
	m, _ = m.Update(withdrawBalanceMsg{balance: 300})
	m.fields[wdAmount] = "500"

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	if m.submitted {
		t.Error("amount above balance must not submit")
	}
	if !strings.Contains(m.errMsg, "exceeds balance") {
		t.Errorf("errMsg = %q, want balance notice", m.errMsg)
	}
}

func TestWithdrawRequiresBankFields(t *testing.T) {
	required := []withdrawField{wdHolder, wdAccount, wdBank, wdIFSC}
	for _, f := range required {
		m := fillWithdrawForm(newTestWithdrawModel())
		m.fields[f] = "  "
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
		if m.submitted {
			t.Errorf("missing %s must not submit", withdrawLabels[f])
		}
		if m.errMsg == "" {
			t.Errorf("missing %s should set a validation message", withdrawLabels[f])
		}
	}
}

func TestWithdrawUPIIsOptional(t *testing.T) {
	m := fillWithdrawForm(newTestWithdrawModel())
	m.fields[wdUPI] = ""
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	if !m.submitted {
		t.Error("upi is optional, form should submit without it")
	}
}

func TestWithdrawIFSCUppercased(t *testing.T) {
	m := fillWithdrawForm(newTestWithdrawModel())
	// submit() uppercases before validation; a lowercase entry is accepted.
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	if !m.submitted {
		t.Error("lowercase ifsc should be normalized, not rejected")
	}
}

func TestWithdrawSuccessNavigatesToWallet(t *testing.T) {
	m := fillWithdrawForm(newTestWithdrawModel())
	m.submitted = true

	m, cmd := m.Update(withdrawDoneMsg{amount: 500})
	if m.submitted {
		t.Error("submitted flag should clear")
	}
	if cmd == nil {
		t.Fatal("expected toast plus navigation")
	}
	if m.fields[wdAmount] != "" {
		t.Error("form should reset after success")
	}
}

func TestWithdrawServerErrorShownInline(t *testing.T) {
	m := newTestWithdrawModel()
	m.submitted = true

	m, _ = m.Update(withdrawDoneMsg{err: &client.HTTPError{StatusCode: 400, Message: "Insufficient balance"}})
	if m.errMsg != "Insufficient balance" {
		t.Errorf("errMsg = %q, want server message", m.errMsg)
	}
}
