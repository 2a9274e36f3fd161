package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/arjunmehta/captchapay/internal/session"
	"github.com/arjunmehta/captchapay/pkg/client"
)

type loginField int

const (
	loginEmail loginField = iota
	loginPassword
	numLoginFields
)

type loginModel struct {
	client *client.Client
	store  *session.Store

	fields    [numLoginFields]string
	focus     loginField
	submitted bool
	errMsg    string
	frame     int
}

type loginDoneMsg struct {
	resp *client.LoginResponse
	err  error
}

func newLoginModel(c *client.Client, store *session.Store) loginModel {
	return loginModel{client: c, store: store}
}

func (m loginModel) Init() tea.Cmd {
	return nil
}

func (m loginModel) Update(msg tea.Msg) (loginModel, tea.Cmd) {
	switch msg := msg.(type) {
	case shimmerTickMsg:
		m.frame++
		return m, nil

	case loginDoneMsg:
		m.submitted = false
		if msg.err != nil {
			m.errMsg = loginErrText(msg.err)
			m.fields[loginPassword] = ""
			return m, nil
		}
		m.client.SetToken(msg.resp.Token)
		if err := m.store.Login(msg.resp.Token, msg.resp.User); err != nil {
			m.errMsg = "could not save session: " + err.Error()
			return m, nil
		}
		m.fields = [numLoginFields]string{}
		m.focus = loginEmail
		user := msg.resp.User
		return m, func() tea.Msg {
			return sessionStartedMsg{user: user, note: "Welcome back, " + user.Name}
		}

	case tea.KeyMsg:
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m loginModel) updateKeys(msg tea.KeyMsg) (loginModel, tea.Cmd) {
	if m.submitted {
		return m, nil
	}
	m.errMsg = ""

	switch msg.String() {
	case "tab", "down":
		m.focus = (m.focus + 1) % numLoginFields
	case "shift+tab", "up":
		m.focus = (m.focus - 1 + numLoginFields) % numLoginFields
	case "enter":
		if m.focus == loginEmail {
			m.focus = loginPassword
			return m, nil
		}
		return m.submit()
	case "R":
		return m, navigateCmd(viewRegister)
	default:
		m.fields[m.focus] = editRune(m.fields[m.focus], msg.String())
	}
	return m, nil
}

func (m loginModel) submit() (loginModel, tea.Cmd) {
	email := strings.TrimSpace(m.fields[loginEmail])
	password := m.fields[loginPassword]

	if email == "" || password == "" {
		m.errMsg = "email and password are required"
		return m, nil
	}

	m.submitted = true
	c := m.client
	return m, func() tea.Msg {
		resp, err := c.Login(context.Background(), email, password)
		return loginDoneMsg{resp: resp, err: err}
	}
}

// loginErrText maps API failures to the message shown under the form.
func loginErrText(err error) string {
	if client.IsStatus(err, 401) || client.IsStatus(err, 400) {
		if msg := client.ErrorMessage(err); msg != "" {
			return msg
		}
		return "invalid email or password"
	}
	return "login failed: " + err.Error()
}

func (m loginModel) View() string {
	var b strings.Builder

	b.WriteString("\n" + sectionHeaderStyle.Render("  Log in") + "\n\n")
	b.WriteString(renderField("email", m.fields[loginEmail], "you@example.com", m.focus == loginEmail, m.frame) + "\n")
	b.WriteString(renderSecret("password", m.fields[loginPassword], m.focus == loginPassword, m.frame) + "\n\n")

	switch {
	case m.submitted:
		b.WriteString("  " + dimStyle.Render("signing in..."))
	case m.errMsg != "":
		b.WriteString("  " + errorStyle.Render(m.errMsg))
	default:
		b.WriteString("  " + metaStyle.Render("No account yet? Press R to register."))
	}

	return b.String()
}
