package tui

import (
	"fmt"
	"math"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Shimmer animation for the CAPTCHAPAY logo.
type shimmerTickMsg time.Time

func shimmerTickCmd() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return shimmerTickMsg(t)
	})
}

// renderShimmerLogo renders "CAPTCHAPAY" as a flowing wave of violet light,
// deep indigo (#2e1a4a) -> bright orchid (#c084fc). No hue drift.
func renderShimmerLogo(frame int) string {
	const text = "CAPTCHAPAY"
	n := len(text)

	var out string

	t := float64(frame)

	for i := 0; i < n; i++ {
		x := float64(i) / float64(n-1)

		// One smooth wave advancing through the text
		phase := t*0.1 - x*3.0
		phase += math.Sin(t*0.023) * 2.0

		b := math.Sin(phase)*0.5 + 0.5
		b = math.Pow(b, 1.3)

		// Slow breathing tide
		tide := math.Sin(t*0.035) * 0.12
		b = b*0.75 + tide + 0.18

		if b > 1.0 {
			b = 1.0
		} else if b < 0.05 {
			b = 0.05
		}

		// Deep:   (46, 26, 74)    #2e1a4a
		// Bright: (192, 132, 252) #c084fc
		r := clampByte(46 + b*(192-46))
		g := clampByte(26 + b*(132-26))
		bl := clampByte(74 + b*(252-74))

		color := fmt.Sprintf("#%02X%02X%02X", r, g, bl)

		s := lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(color))
		out += s.Render(string(text[i]))

		if i < n-1 {
			out += " "
		}
	}

	return out
}

func clampByte(v float64) int {
	if v > 255 {
		return 255
	}
	if v < 0 {
		return 0
	}
	return int(v)
}

var (
	// Base palette — slate background, purple accent, green money
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e4e4ec")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#c0c4d0"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#505868"))

	accentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a855f7"))

	// Money and earnings
	moneyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ade80")).
			Bold(true)

	earnedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#22d3ee"))

	// Countdown urgency
	timerOkStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#34d399"))

	timerLowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f87171")).
			Bold(true)

	// Toast levels
	toastInfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#60a5fa"))

	toastSuccessStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#4ade80"))

	toastWarnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fbbf24"))

	toastErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f87171"))

	// Forms
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0"))

	fieldFocusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e4e4ec"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f87171"))

	// Help bar
	helpKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0"))

	helpLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#505868"))

	inputPromptStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#a855f7")).
				Bold(true)

	inputPlaceholderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#343c4a"))

	sectionHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#606878"))

	likedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f472b6")).
			Bold(true)

	// Withdrawal status colors
	statusColors = map[string]lipgloss.Color{
		"pending":   lipgloss.Color("#fbbf24"),
		"approved":  lipgloss.Color("#4ade80"),
		"rejected":  lipgloss.Color("#f87171"),
		"completed": lipgloss.Color("#60a5fa"),
	}

	// Difficulty chips for the captcha view
	difficultyColors = map[string]lipgloss.Color{
		"easy":   lipgloss.Color("#4ade80"),
		"medium": lipgloss.Color("#fbbf24"),
		"hard":   lipgloss.Color("#f87171"),
	}
)

// StatusStyle returns the style for a withdrawal status chip.
func StatusStyle(status string) lipgloss.Style {
	if c, ok := statusColors[status]; ok {
		return lipgloss.NewStyle().Foreground(c)
	}
	return dimStyle
}

// DifficultyStyle returns the style for a captcha difficulty chip.
func DifficultyStyle(d string) lipgloss.Style {
	if c, ok := difficultyColors[d]; ok {
		return lipgloss.NewStyle().Foreground(c)
	}
	return normalStyle
}

// helpEntry renders a key + label pair for the help bar.
func helpEntry(key, label string) string {
	return helpKeyStyle.Render(key) + " " + helpLabelStyle.Render(label)
}
