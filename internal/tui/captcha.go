package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/arjunmehta/captchapay/internal/config"
	"github.com/arjunmehta/captchapay/internal/session"
	"github.com/arjunmehta/captchapay/pkg/client"
	"github.com/arjunmehta/captchapay/pkg/domain"
)

type captchaModel struct {
	client *client.Client
	cfg    *config.Config
	likes  *session.Likes

	user *domain.User
	cap  *domain.Captcha

	answer     string
	remaining  int
	checking   bool // entry plan check outstanding, no challenge yet
	fetching   bool
	submitting bool
	errMsg     string
	frame      int

	// gen invalidates countdown ticks, in-flight fetches and redisplay
	// delays from a previous captcha or a previous visit to this view.
	gen int

	solved  int
	failed  int
	skipped int
	earned  float64

	// balance mirrors the server's running total, seeded on entry and
	// updated by every verdict.
	balance    float64
	hasBalance bool
}

type captchaStartMsg struct{}

type captchaLoadedMsg struct {
	gen int
	cap *domain.Captcha
	err error
}

type captchaTickMsg struct {
	gen int
}

type captchaNextMsg struct {
	gen int
}

type captchaResultMsg struct {
	gen    int
	result *domain.SubmitResult
	err    error
}

type captchaBalanceMsg struct {
	gen     int
	balance float64
	err     error
}

func newCaptchaModel(c *client.Client, cfg *config.Config, likes *session.Likes) captchaModel {
	return captchaModel{client: c, cfg: cfg, likes: likes}
}

func (m captchaModel) Init() tea.Cmd {
	return func() tea.Msg { return captchaStartMsg{} }
}

// editing reports whether keystrokes should go to the answer box.
func (m captchaModel) editing() bool {
	return m.cap != nil && !m.submitting
}

func (m captchaModel) fetch(gen int) tea.Cmd {
	c := m.client
	return func() tea.Msg {
		ca, err := c.RandomCaptcha(context.Background())
		return captchaLoadedMsg{gen: gen, cap: ca, err: err}
	}
}

func (m captchaModel) fetchBalance(gen int) tea.Cmd {
	c := m.client
	return func() tea.Msg {
		bal, err := c.WalletBalance(context.Background())
		return captchaBalanceMsg{gen: gen, balance: bal, err: err}
	}
}

func (m captchaModel) tickSecond(gen int) tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return captchaTickMsg{gen: gen}
	})
}

func (m captchaModel) afterDelay(gen int) tea.Cmd {
	return tea.Tick(m.cfg.RedisplayDelay, func(time.Time) tea.Msg {
		return captchaNextMsg{gen: gen}
	})
}

func (m captchaModel) Update(msg tea.Msg) (captchaModel, tea.Cmd) {
	switch msg := msg.(type) {
	case shimmerTickMsg:
		m.frame++
		return m, nil

	case meLoadedMsg:
		if msg.err == nil && msg.user != nil {
			m.user = msg.user
		}
		if !m.checking {
			return m, nil
		}
		// The entry plan check has settled. No challenge request leaves
		// this model until the plan is confirmed present.
		m.checking = false
		if msg.err != nil || msg.user == nil {
			m.errMsg = "could not check your plan"
			if msg.err != nil {
				m.errMsg += ": " + msg.err.Error()
			}
			return m, nil
		}
		// The server's lifetime stats are authoritative; the local
		// counters reseed from them and drift only within this session.
		m.solved = msg.user.SolvedTotal
		m.earned = msg.user.TotalEarnings
		if msg.user.Plan == nil {
			return m, tea.Batch(
				toastCmd(toastWarn, "An active plan is required to solve captchas"),
				navigateCmd(viewPlans),
			)
		}
		m.fetching = true
		return m, m.fetch(m.gen)

	case captchaStartMsg:
		m.gen++
		m.cap = nil
		m.answer = ""
		m.fetching = false
		m.checking = true
		m.errMsg = ""
		return m, tea.Batch(refreshMeCmd(m.client), m.fetchBalance(m.gen))

	case captchaBalanceMsg:
		if msg.gen != m.gen || msg.err != nil {
			return m, nil
		}
		m.balance = msg.balance
		m.hasBalance = true
		return m, nil

	case captchaLoadedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.fetching = false
		if msg.err != nil {
			return m.fetchFailed(msg.err)
		}
		m.cap = msg.cap
		m.answer = ""
		m.remaining = m.cfg.CountdownSeconds
		return m, m.tickSecond(m.gen)

	case captchaTickMsg:
		if msg.gen != m.gen || m.cap == nil {
			return m, nil
		}
		if m.remaining > 0 {
			m.remaining--
		}
		if m.remaining > 0 || m.submitting {
			// The countdown keeps running through a submit; a zero that
			// lands mid-flight is settled by the verdict instead.
			return m, m.tickSecond(m.gen)
		}
		// Time ran out; the captcha is forfeited.
		m.skipped++
		m.gen++
		m.cap = nil
		m.answer = ""
		m.fetching = true
		return m, tea.Batch(
			toastCmd(toastWarn, "Time up, captcha skipped"),
			m.fetch(m.gen),
		)

	case captchaNextMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		return m, m.fetch(m.gen)

	case captchaResultMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.submitting = false
		if msg.err != nil {
			if client.IsPlanProblem(msg.err) {
				return m, tea.Batch(
					toastCmd(toastError, "Your plan does not allow solving right now"),
					refreshMeCmd(m.client),
					navigateCmd(viewPlans),
				)
			}
			txt := client.ErrorMessage(msg.err)
			if txt == "" {
				txt = msg.err.Error()
			}
			m.errMsg = txt
			return m, nil
		}

		m.balance = msg.result.Balance
		m.hasBalance = true
		if msg.result.Success {
			m.solved++
			m.earned += msg.result.Earned
			m.gen++
			m.cap = nil
			m.answer = ""
			m.fetching = true
			return m, tea.Batch(
				toastCmd(toastSuccess, fmt.Sprintf("Correct! %s earned", inr(msg.result.Earned))),
				m.afterDelay(m.gen),
			)
		}

		// Wrong answer: same captcha, countdown untouched, another try.
		m.failed++
		txt := msg.result.Message
		if txt == "" {
			txt = "Wrong answer"
		}
		m.answer = ""
		if m.remaining <= 0 {
			// The countdown ran out while the verdict was in flight.
			m.skipped++
			m.gen++
			m.cap = nil
			m.fetching = true
			return m, tea.Batch(toastCmd(toastError, txt), m.fetch(m.gen))
		}
		return m, toastCmd(toastError, txt)

	case tea.KeyMsg:
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m captchaModel) fetchFailed(err error) (captchaModel, tea.Cmd) {
	if client.IsPlanProblem(err) {
		return m, tea.Batch(
			toastCmd(toastError, "An active plan is required to solve captchas"),
			refreshMeCmd(m.client),
			navigateCmd(viewPlans),
		)
	}
	m.errMsg = "could not load captcha: " + err.Error()
	return m, nil
}

func (m captchaModel) updateKeys(msg tea.KeyMsg) (captchaModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m, navigateCmd(viewDashboard)
	case "ctrl+s":
		return m.skip()
	case "ctrl+l":
		return m.toggleLike()
	case "enter":
		return m.submit()
	case "r":
		if m.cap == nil && !m.fetching && !m.checking {
			// Retry after a load failure: run the whole entry sequence
			// again, plan check included.
			return m, func() tea.Msg { return captchaStartMsg{} }
		}
		if m.cap != nil {
			m.answer = editRune(m.answer, msg.String())
		}
	default:
		if m.cap != nil && !m.submitting {
			m.answer = editRune(m.answer, msg.String())
		}
	}
	return m, nil
}

func (m captchaModel) skip() (captchaModel, tea.Cmd) {
	if m.cap == nil || m.submitting {
		return m, nil
	}
	m.skipped++
	m.gen++
	m.cap = nil
	m.answer = ""
	m.fetching = true
	return m, m.fetch(m.gen)
}

func (m captchaModel) toggleLike() (captchaModel, tea.Cmd) {
	if m.cap == nil {
		return m, nil
	}
	liked, count, err := m.likes.Toggle(m.cap.LikeKey())
	if err != nil {
		return m, toastCmd(toastWarn, "could not save like")
	}
	if liked {
		return m, toastCmd(toastInfo, fmt.Sprintf("Liked (%d)", count))
	}
	return m, nil
}

func (m captchaModel) submit() (captchaModel, tea.Cmd) {
	if m.cap == nil || m.submitting || m.fetching {
		return m, nil
	}
	answer := strings.TrimSpace(m.answer)
	if answer == "" {
		return m, toastCmd(toastWarn, "Type the captcha text first")
	}

	m.submitting = true
	m.errMsg = ""
	c := m.client
	gen := m.gen
	id := m.cap.ID
	return m, func() tea.Msg {
		result, err := c.SubmitCaptcha(context.Background(), id, answer)
		return captchaResultMsg{gen: gen, result: result, err: err}
	}
}

func (m captchaModel) helpKeys() string {
	return helpEntry("enter", "submit") + "  " + helpEntry("ctrl+s", "skip") + "  " + helpEntry("ctrl+l", "like") + "  " + helpEntry("esc", "dashboard") + "  " + helpEntry("ctrl+c", "quit")
}

func (m captchaModel) View() string {
	var b strings.Builder
	b.WriteString("\n" + sectionHeaderStyle.Render("  Solve") + "\n\n")

	// Plan context. A missing plan normally never reaches this view, the
	// route guard bounces it, but the state can appear mid-session.
	if m.user != nil && m.user.PlanKnown && m.user.Plan == nil {
		b.WriteString("  " + errorStyle.Render("No active plan.") + " " + metaStyle.Render("Press 4 to purchase one.") + "\n")
		return b.String()
	}

	counters := fmt.Sprintf("solved %d · failed %d · skipped %d · earned %s",
		m.solved, m.failed, m.skipped, inr(m.earned))
	if m.hasBalance {
		counters += " · balance " + inr(m.balance)
	}
	b.WriteString("  " + metaStyle.Render(counters) + "\n\n")

	switch {
	case m.checking:
		b.WriteString("  " + dimStyle.Render("checking your plan..."))
		return b.String()
	case m.fetching:
		b.WriteString("  " + dimStyle.Render("loading captcha..."))
		return b.String()
	case m.errMsg != "" && m.cap == nil:
		b.WriteString("  " + errorStyle.Render(m.errMsg) + "\n")
		b.WriteString("  " + metaStyle.Render("press r to retry"))
		return b.String()
	case m.cap == nil:
		b.WriteString("  " + dimStyle.Render("no captcha"))
		return b.String()
	}

	timerStyle := timerOkStyle
	if m.remaining <= 5 {
		timerStyle = timerLowStyle
	}
	b.WriteString("  " + timerStyle.Render(fmt.Sprintf("⏱ %2ds", m.remaining)))
	b.WriteString("   " + DifficultyStyle(m.cap.Difficulty).Render(m.cap.Difficulty))
	if m.likes.IsLiked(m.cap.LikeKey()) {
		b.WriteString("   " + likedStyle.Render(fmt.Sprintf("♥ %d", m.likes.Count(m.cap.LikeKey()))))
	}
	b.WriteString("\n\n")

	b.WriteString("  " + normalStyle.Render(stripMarkup(m.cap.Image)) + "\n\n")

	b.WriteString(renderField("answer", m.answer, "type what you see", !m.submitting, m.frame) + "\n")

	if m.submitting {
		b.WriteString("\n  " + dimStyle.Render("checking..."))
	} else if m.errMsg != "" {
		b.WriteString("\n  " + errorStyle.Render(m.errMsg))
	}
	return b.String()
}
