package tui

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/arjunmehta/captchapay/internal/config"
	"github.com/arjunmehta/captchapay/internal/session"
	"github.com/arjunmehta/captchapay/pkg/client"
	"github.com/arjunmehta/captchapay/pkg/domain"
)

func testConfig() *config.Config {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}
	return cfg
}

func newTestCaptchaModel(t *testing.T) captchaModel {
	t.Helper()
	likes := session.NewLikes(filepath.Join(t.TempDir(), "likes.json"))
	return newCaptchaModel(client.New("http://test.invalid", "tok"), testConfig(), likes)
}

func makeTestCaptcha(id string) *domain.Captcha {
	return &domain.Captcha{ID: id, Image: "<span>X</span><span>K</span>", Difficulty: "easy"}
}

func startWithCaptcha(t *testing.T, m captchaModel, id string) captchaModel {
	t.Helper()
	m, _ = m.Update(captchaStartMsg{})
	m, _ = m.Update(meLoadedMsg{user: planned(false)})
	m, _ = m.Update(captchaLoadedMsg{gen: m.gen, cap: makeTestCaptcha(id)})
	return m
}

// collectMsgs runs a command and flattens any nested batches into the
// messages they produce.
func collectMsgs(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collectMsgs(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

// newServedCaptchaModel backs the model with a recording HTTP server so the
// order of API calls can be asserted.
func newServedCaptchaModel(t *testing.T) (captchaModel, func() []string) {
	t.Helper()
	var mu sync.Mutex
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		switch r.URL.Path {
		case "/auth/me":
			fmt.Fprint(w, `{"success":true,"data":{"_id":"u1","name":"Asha","plan":{"_id":"p1","name":"Starter","price":499},"totalCaptchasSolved":42,"totalEarnings":105.5}}`)
		case "/wallet/balance":
			fmt.Fprint(w, `{"balance":120.5}`)
		case "/captchas/random":
			fmt.Fprint(w, `{"success":true,"data":{"captchaId":"c9","image":"<span>A</span><span>B</span>","difficulty":"easy"}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	likes := session.NewLikes(filepath.Join(t.TempDir(), "likes.json"))
	m := newCaptchaModel(client.New(srv.URL, "tok"), testConfig(), likes)
	recorded := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), paths...)
	}
	return m, recorded
}

func TestCaptchaLoadStartsCountdown(t *testing.T) {
	m := startWithCaptcha(t, newTestCaptchaModel(t), "c1")

	if m.cap == nil {
		t.Fatal("captcha not loaded")
	}
	if m.remaining != 24 {
		t.Errorf("remaining = %d, want 24", m.remaining)
	}
	if !strings.Contains(m.View(), "24s") {
		t.Error("countdown not rendered")
	}
}

func TestCaptchaTickDecrements(t *testing.T) {
	m := startWithCaptcha(t, newTestCaptchaModel(t), "c1")

	m, cmd := m.Update(captchaTickMsg{gen: m.gen})
	if m.remaining != 23 {
		t.Errorf("remaining = %d, want 23", m.remaining)
	}
	if cmd == nil {
		t.Error("expected next tick to be scheduled")
	}
}

func TestCaptchaStaleTickIgnored(t *testing.T) {
	m := startWithCaptcha(t, newTestCaptchaModel(t), "c1")

	m, _ = m.Update(captchaTickMsg{gen: m.gen - 1})
	if m.remaining != 24 {
		t.Errorf("stale tick changed remaining to %d", m.remaining)
	}
}

func TestCaptchaTimeoutFetchesNextImmediately(t *testing.T) {
	base, _ := newServedCaptchaModel(t)
	m := startWithCaptcha(t, base, "c1")
	m.remaining = 1
	oldGen := m.gen

	m, cmd := m.Update(captchaTickMsg{gen: m.gen})
	if m.skipped != 1 {
		t.Errorf("skipped = %d, want 1", m.skipped)
	}
	if m.cap != nil {
		t.Error("captcha should be cleared on timeout")
	}
	if m.gen == oldGen {
		t.Error("generation must advance so late responses are discarded")
	}
	assertImmediateFetch(t, m.gen, cmd)
}

func TestCaptchaManualSkipFetchesNextImmediately(t *testing.T) {
	base, _ := newServedCaptchaModel(t)
	m := startWithCaptcha(t, base, "c1")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	if m.skipped != 1 {
		t.Errorf("skipped = %d, want 1", m.skipped)
	}
	if m.cap != nil {
		t.Error("captcha should be cleared on skip")
	}
	assertImmediateFetch(t, m.gen, cmd)
}

// assertImmediateFetch requires the command to load the next captcha right
// away rather than going through the correct-answer redisplay delay.
func assertImmediateFetch(t *testing.T, gen int, cmd tea.Cmd) {
	t.Helper()
	var loaded bool
	for _, msg := range collectMsgs(cmd) {
		switch msg := msg.(type) {
		case captchaNextMsg:
			t.Fatal("skip must not wait out the redisplay delay")
		case captchaLoadedMsg:
			if msg.gen == gen {
				loaded = true
			}
		}
	}
	if !loaded {
		t.Fatal("expected the next captcha to be fetched immediately")
	}
}

func TestCaptchaEmptyAnswerRejectedLocally(t *testing.T) {
	m := startWithCaptcha(t, newTestCaptchaModel(t), "c1")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.submitting {
		t.Error("empty answer must not reach the network")
	}
	if cmd == nil {
		t.Fatal("expected a warning toast command")
	}
	if msg, ok := cmd().(showToastMsg); !ok || msg.level != toastWarn {
		t.Errorf("expected warn toast, got %#v", cmd())
	}
}

func TestCaptchaSubmitGatesResubmission(t *testing.T) {
	m := startWithCaptcha(t, newTestCaptchaModel(t), "c1")
	m.answer = "XK4P"

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !m.submitting {
		t.Fatal("expected submitting state")
	}
	if cmd == nil {
		t.Fatal("expected submit command")
	}

	// A second enter while in flight is ignored.
	m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Error("resubmission should be gated while in flight")
	}

	// The countdown keeps running during submission, but a zero that lands
	// mid-flight does not forfeit the captcha; the verdict settles it.
	before := m.remaining
	m, _ = m.Update(captchaTickMsg{gen: m.gen})
	if m.remaining != before-1 {
		t.Error("timer should keep running while submitting")
	}
	m.remaining = 1
	m, _ = m.Update(captchaTickMsg{gen: m.gen})
	if m.skipped != 0 || m.cap == nil {
		t.Error("timeout must be deferred while a submit is in flight")
	}
}

func TestCaptchaCorrectResultAdvances(t *testing.T) {
	m := startWithCaptcha(t, newTestCaptchaModel(t), "c1")
	m.answer = "XK4P"
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	oldGen := m.gen

	m, cmd := m.Update(captchaResultMsg{gen: m.gen, result: &domain.SubmitResult{Success: true, Earned: 2.5, Balance: 12.5}})
	if m.solved != 1 {
		t.Errorf("solved = %d, want 1", m.solved)
	}
	if m.earned != 2.5 {
		t.Errorf("earned = %v, want 2.5", m.earned)
	}
	if m.balance != 12.5 || !strings.Contains(m.View(), "12.50") {
		t.Error("the verdict's running balance should be shown")
	}
	if m.cap != nil {
		t.Error("captcha should be cleared after a result")
	}
	if m.gen == oldGen {
		t.Error("generation must advance after a result")
	}
	if cmd == nil {
		t.Error("expected toast plus redisplay delay")
	}
}

func TestCaptchaWrongResultCountsFailed(t *testing.T) {
	m := startWithCaptcha(t, newTestCaptchaModel(t), "c1")
	m.answer = "nope"
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	oldGen := m.gen
	remaining := m.remaining
	m, cmd := m.Update(captchaResultMsg{gen: m.gen, result: &domain.SubmitResult{Success: false, Message: "Wrong answer"}})
	if m.failed != 1 {
		t.Errorf("failed = %d, want 1", m.failed)
	}
	if m.solved != 0 {
		t.Errorf("solved = %d, want 0", m.solved)
	}
	if m.cap == nil || m.cap.ID != "c1" {
		t.Error("a wrong answer keeps the same captcha on screen")
	}
	if m.gen != oldGen {
		t.Error("same captcha, same generation")
	}
	if m.remaining != remaining {
		t.Error("a wrong answer must not reset the countdown")
	}
	if m.answer != "" {
		t.Error("the answer box clears for the retry")
	}
	if cmd == nil {
		t.Error("expected a failure toast")
	}
}

func TestCaptchaWrongResultAfterTimeoutForfeits(t *testing.T) {
	m := startWithCaptcha(t, newTestCaptchaModel(t), "c1")
	m.answer = "nope"
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m.remaining = 0
	oldGen := m.gen

	m, cmd := m.Update(captchaResultMsg{gen: m.gen, result: &domain.SubmitResult{Success: false}})
	if m.failed != 1 || m.skipped != 1 {
		t.Errorf("failed = %d, skipped = %d, want 1 and 1", m.failed, m.skipped)
	}
	if m.cap != nil || m.gen == oldGen {
		t.Error("an expired captcha is forfeited once the verdict lands")
	}
	if cmd == nil {
		t.Error("expected toast plus immediate fetch")
	}
}

func TestCaptchaSubmitNetworkFailureIndeterminate(t *testing.T) {
	m := startWithCaptcha(t, newTestCaptchaModel(t), "c1")
	m.answer = "XK4P"
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	m, _ = m.Update(captchaResultMsg{gen: m.gen, err: &client.HTTPError{StatusCode: 502, Message: "bad gateway"}})
	if m.failed != 0 || m.solved != 0 {
		t.Error("an indeterminate outcome must not touch the counters")
	}
	if m.cap == nil {
		t.Error("the captcha stays current for a retry")
	}
	if m.errMsg == "" {
		t.Error("the failure should be reported distinctly")
	}
}

func TestCaptchaStaleResultIgnored(t *testing.T) {
	m := startWithCaptcha(t, newTestCaptchaModel(t), "c1")
	m.answer = "XK4P"
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	m, _ = m.Update(captchaResultMsg{gen: m.gen - 1, result: &domain.SubmitResult{Success: true, Earned: 2.5}})
	if m.solved != 0 {
		t.Error("stale result must be discarded")
	}
	if !m.submitting {
		t.Error("stale result must not clear the in-flight state")
	}
}

func TestCaptchaLikeToggle(t *testing.T) {
	m := startWithCaptcha(t, newTestCaptchaModel(t), "c1")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	if cmd == nil {
		t.Fatal("expected like toast")
	}
	if !m.likes.IsLiked(m.cap.LikeKey()) {
		t.Error("challenge should be liked")
	}
	if !strings.Contains(m.View(), "♥") {
		t.Error("liked marker not rendered")
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	if m.likes.IsLiked(m.cap.LikeKey()) {
		t.Error("second toggle should unlike")
	}
}

func TestCaptchaNoPlanMessageRendered(t *testing.T) {
	m := newTestCaptchaModel(t)
	m, _ = m.Update(meLoadedMsg{user: &domain.User{ID: "u1", PlanKnown: true}})

	if !strings.Contains(m.View(), "No active plan") {
		t.Error("expected no-plan message")
	}
}

func TestCaptchaEntryChecksPlanBeforeFetching(t *testing.T) {
	m, recorded := newServedCaptchaModel(t)

	m, cmd := m.Update(captchaStartMsg{})
	if !m.checking {
		t.Fatal("entry should start with the plan check pending")
	}
	entry := collectMsgs(cmd)
	for _, p := range recorded() {
		if p == "/captchas/random" {
			t.Fatal("challenge requested before the plan check settled")
		}
	}

	// Feed the entry responses back; the identity answer triggers the
	// challenge fetch.
	var next tea.Cmd
	for _, msg := range entry {
		var c tea.Cmd
		m, c = m.Update(msg)
		if c != nil {
			next = c
		}
	}
	if m.checking {
		t.Fatal("plan check should have settled")
	}
	if m.solved != 42 || m.earned != 105.5 {
		t.Errorf("counters not reseeded from the server: solved=%d earned=%v", m.solved, m.earned)
	}
	if !m.hasBalance || m.balance != 120.5 {
		t.Errorf("balance not seeded on entry: %v", m.balance)
	}
	for _, msg := range collectMsgs(next) {
		m, _ = m.Update(msg)
	}
	if m.cap == nil || m.cap.ID != "c9" {
		t.Fatal("challenge not loaded after the plan check")
	}

	paths := recorded()
	me, random := -1, -1
	for i, p := range paths {
		if p == "/auth/me" && me < 0 {
			me = i
		}
		if p == "/captchas/random" && random < 0 {
			random = i
		}
	}
	if me < 0 || random < 0 || random < me {
		t.Errorf("identity must be fetched before the challenge, got %v", paths)
	}
}

func TestCaptchaEntryWithoutPlanRedirects(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		switch r.URL.Path {
		case "/auth/me":
			fmt.Fprint(w, `{"success":true,"data":{"_id":"u1","name":"Asha","plan":null}}`)
		case "/wallet/balance":
			fmt.Fprint(w, `{"balance":0}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	likes := session.NewLikes(filepath.Join(t.TempDir(), "likes.json"))
	m := newCaptchaModel(client.New(srv.URL, "tok"), testConfig(), likes)

	m, cmd := m.Update(captchaStartMsg{})
	var redirect, warned bool
	for _, msg := range collectMsgs(cmd) {
		var c tea.Cmd
		m, c = m.Update(msg)
		for _, out := range collectMsgs(c) {
			switch out := out.(type) {
			case navigateMsg:
				if out.to == viewPlans {
					redirect = true
				}
			case showToastMsg:
				if out.level == toastWarn {
					warned = true
				}
			}
		}
	}
	if !redirect || !warned {
		t.Error("a user without a plan must be warned and sent to plans")
	}
	if m.fetching || m.cap != nil {
		t.Error("no challenge may be requested without a plan")
	}
	mu.Lock()
	defer mu.Unlock()
	for _, p := range paths {
		if p == "/captchas/random" {
			t.Error("challenge requested for a user without a plan")
		}
	}
}

func TestCaptchaEscReturnsToDashboard(t *testing.T) {
	m := startWithCaptcha(t, newTestCaptchaModel(t), "c1")
	m.answer = "XK"

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatal("expected a navigation command")
	}
	nav, ok := cmd().(navigateMsg)
	if !ok || nav.to != viewDashboard {
		t.Fatalf("esc should go to the dashboard, got %#v", cmd())
	}
	if m.answer != "XK" {
		t.Error("esc must not edit the answer box")
	}
}

func TestCaptchaHelpListsEscape(t *testing.T) {
	m := newTestCaptchaModel(t)
	if !strings.Contains(m.helpKeys(), "esc") {
		t.Error("the help line should mention the way out")
	}
}

func TestCaptchaCountersRendered(t *testing.T) {
	m := startWithCaptcha(t, newTestCaptchaModel(t), "c1")
	m.solved = 3
	m.failed = 1
	m.skipped = 2

	view := m.View()
	if !strings.Contains(view, "solved 3") || !strings.Contains(view, "failed 1") || !strings.Contains(view, "skipped 2") {
		t.Errorf("counters not rendered: %s", view)
	}
}
