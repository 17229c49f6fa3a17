package components

import (
	"github.com/charmbracelet/lipgloss"

	"nathanbeddoewebdev/actionmgr/internal/tui/styles"
)

// Status levels.
const (
	StatusInfo = iota
	StatusWarn
	StatusError
)

// StatusBar renders a status message line between the content and footer.
func StatusBar(width int, message string, level int) string {
	if message == "" {
		return ""
	}

	style := styles.MutedText
	switch level {
	case StatusWarn:
		style = styles.WarningText
	case StatusError:
		style = styles.ErrorText
	}

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 2).
		Render(style.Render(message))
}
