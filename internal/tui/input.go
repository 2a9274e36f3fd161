package tui

import "unicode/utf8"

// maxInputLen is the maximum number of runes allowed in form inputs.
const maxInputLen = 200

// editRune processes a keystroke for inline text editing.
// Handles backspace (rune-aware) and single printable characters.
// Returns the text unchanged for non-printable keys (enter, esc, etc.).
// Input is clamped to maxInputLen runes.
func editRune(text string, key string) string {
	switch key {
	case "backspace":
		if len(text) > 0 {
			runes := []rune(text)
			return string(runes[:len(runes)-1])
		}
		return text
	default:
		if utf8.RuneCountInString(key) == 1 {
			if utf8.RuneCountInString(text) >= maxInputLen {
				return text
			}
			return text + key
		}
		return text
	}
}

// renderField renders a labeled form field with a blinking cursor when
// focused and a placeholder when empty.
func renderField(label, value, placeholder string, focused bool, animFrame int) string {
	lbl := labelStyle.Render(label + ": ")
	if focused {
		cursor := " "
		if (animFrame/4)%2 == 0 {
			cursor = accentStyle.Render("█")
		}
		if value == "" {
			return lbl + cursor
		}
		return lbl + fieldFocusStyle.Render(value) + cursor
	}
	if value == "" {
		return lbl + inputPlaceholderStyle.Render(placeholder)
	}
	return lbl + normalStyle.Render(value)
}

// renderSecret is renderField for password inputs: the value is masked.
func renderSecret(label, value string, focused bool, animFrame int) string {
	masked := ""
	for range value {
		masked += "•"
	}
	return renderField(label, masked, "", focused, animFrame)
}
