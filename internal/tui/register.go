package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/arjunmehta/captchapay/internal/session"
	"github.com/arjunmehta/captchapay/pkg/client"
)

type registerField int

const (
	regName registerField = iota
	regEmail
	regPassword
	regConfirm
	numRegFields
)

type registerModel struct {
	client *client.Client
	store  *session.Store

	fields    [numRegFields]string
	focus     registerField
	submitted bool
	errMsg    string
	frame     int
}

type registerDoneMsg struct {
	resp *client.LoginResponse
	err  error
}

func newRegisterModel(c *client.Client, store *session.Store) registerModel {
	return registerModel{client: c, store: store}
}

func (m registerModel) Init() tea.Cmd {
	return nil
}

func (m registerModel) Update(msg tea.Msg) (registerModel, tea.Cmd) {
	switch msg := msg.(type) {
	case shimmerTickMsg:
		m.frame++
		return m, nil

	case registerDoneMsg:
		m.submitted = false
		if msg.err != nil {
			if txt := client.ErrorMessage(msg.err); txt != "" {
				m.errMsg = txt
			} else {
				m.errMsg = "registration failed: " + msg.err.Error()
			}
			return m, nil
		}
		// Registration logs the account in immediately.
		m.client.SetToken(msg.resp.Token)
		if err := m.store.Login(msg.resp.Token, msg.resp.User); err != nil {
			m.errMsg = "could not save session: " + err.Error()
			return m, nil
		}
		m.fields = [numRegFields]string{}
		m.focus = regName
		user := msg.resp.User
		return m, func() tea.Msg {
			return sessionStartedMsg{user: user, note: "Account created. Welcome, " + user.Name}
		}

	case tea.KeyMsg:
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m registerModel) updateKeys(msg tea.KeyMsg) (registerModel, tea.Cmd) {
	if m.submitted {
		return m, nil
	}
	m.errMsg = ""

	switch msg.String() {
	case "esc":
		return m, navigateCmd(viewLogin)
	case "tab", "down":
		m.focus = (m.focus + 1) % numRegFields
	case "shift+tab", "up":
		m.focus = (m.focus - 1 + numRegFields) % numRegFields
	case "enter":
		if m.focus < regConfirm {
			m.focus++
			return m, nil
		}
		return m.submit()
	default:
		m.fields[m.focus] = editRune(m.fields[m.focus], msg.String())
	}
	return m, nil
}

func (m registerModel) submit() (registerModel, tea.Cmd) {
	name := strings.TrimSpace(m.fields[regName])
	email := strings.TrimSpace(m.fields[regEmail])
	password := m.fields[regPassword]

	switch {
	case name == "":
		m.errMsg = "name is required"
		return m, nil
	case email == "" || !strings.Contains(email, "@"):
		m.errMsg = "a valid email is required"
		return m, nil
	case len(password) < 6:
		m.errMsg = "password must be at least 6 characters"
		return m, nil
	case password != m.fields[regConfirm]:
		m.errMsg = "passwords do not match"
		return m, nil
	}

	m.submitted = true
	c := m.client
	return m, func() tea.Msg {
		resp, err := c.Register(context.Background(), name, email, password)
		return registerDoneMsg{resp: resp, err: err}
	}
}

func (m registerModel) View() string {
	var b strings.Builder

	b.WriteString("\n" + sectionHeaderStyle.Render("  Create account") + "\n\n")
	b.WriteString(renderField("name", m.fields[regName], "Full name", m.focus == regName, m.frame) + "\n")
	b.WriteString(renderField("email", m.fields[regEmail], "you@example.com", m.focus == regEmail, m.frame) + "\n")
	b.WriteString(renderSecret("password", m.fields[regPassword], m.focus == regPassword, m.frame) + "\n")
	b.WriteString(renderSecret("confirm", m.fields[regConfirm], m.focus == regConfirm, m.frame) + "\n\n")

	switch {
	case m.submitted:
		b.WriteString("  " + dimStyle.Render("creating account..."))
	case m.errMsg != "":
		b.WriteString("  " + errorStyle.Render(m.errMsg))
	default:
		b.WriteString("  " + metaStyle.Render("Press esc to go back to login."))
	}

	return b.String()
}
