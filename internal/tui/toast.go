package tui

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// toastTTL is how long a notification stays visible before expiring.
const toastTTL = 3 * time.Second

// maxToasts caps the visible notification stack.
const maxToasts = 3

type toastLevel int

const (
	toastInfo toastLevel = iota
	toastSuccess
	toastWarn
	toastError
)

// showToastMsg asks the root model to display a notification. Any sub-model
// can emit one through toastCmd.
type showToastMsg struct {
	level toastLevel
	text  string
}

// toastExpireMsg retires the toast with the matching sequence number.
type toastExpireMsg struct {
	seq int
}

// toastCmd produces a notification from anywhere in the view tree.
func toastCmd(level toastLevel, text string) tea.Cmd {
	return func() tea.Msg {
		return showToastMsg{level: level, text: text}
	}
}

type toast struct {
	seq   int
	level toastLevel
	text  string
}

// toastStack is the dismissible, self-expiring notification area. It is the
// terminal stand-in for a toast container: pushes append, each toast expires
// on its own timer, esc clears the stack.
type toastStack struct {
	toasts  []toast
	nextSeq int
}

// Push adds a toast and returns the command that will expire it.
func (s *toastStack) Push(level toastLevel, text string) tea.Cmd {
	s.nextSeq++
	seq := s.nextSeq
	s.toasts = append(s.toasts, toast{seq: seq, level: level, text: text})
	if len(s.toasts) > maxToasts {
		s.toasts = s.toasts[len(s.toasts)-maxToasts:]
	}
	return tea.Tick(toastTTL, func(time.Time) tea.Msg {
		return toastExpireMsg{seq: seq}
	})
}

// Expire removes the toast with the given sequence number, if still shown.
func (s *toastStack) Expire(seq int) {
	for i, t := range s.toasts {
		if t.seq == seq {
			s.toasts = append(s.toasts[:i], s.toasts[i+1:]...)
			return
		}
	}
}

// Clear dismisses everything.
func (s *toastStack) Clear() {
	s.toasts = nil
}

// Len returns the number of visible toasts.
func (s *toastStack) Len() int { return len(s.toasts) }

// View renders the stack as one line per toast, newest last.
func (s *toastStack) View() string {
	if len(s.toasts) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, t := range s.toasts {
		if i > 0 {
			sb.WriteString("\n")
		}
		var line string
		switch t.level {
		case toastSuccess:
			line = toastSuccessStyle.Render("✓ " + t.text)
		case toastWarn:
			line = toastWarnStyle.Render("! " + t.text)
		case toastError:
			line = toastErrorStyle.Render("✗ " + t.text)
		default:
			line = toastInfoStyle.Render("· " + t.text)
		}
		sb.WriteString(" " + line)
	}
	return sb.String()
}
