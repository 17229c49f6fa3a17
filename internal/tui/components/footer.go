package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"nathanbeddoewebdev/actionmgr/internal/tui/styles"
)

// KeyBinding represents a single key binding for the footer.
type KeyBinding struct {
	Key  string
	Desc string
}

// Footer renders the key binding help bar at the bottom of the screen.
// Bindings with an empty key are skipped.
func Footer(width int, bindings []KeyBinding) string {
	if width < 10 {
		return ""
	}

	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		if b.Key == "" {
			continue
		}
		parts = append(parts, styles.FormatKeyBinding(b.Key, b.Desc))
	}
	if len(parts) == 0 {
		return ""
	}

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 2).
		BorderStyle(lipgloss.Border{Top: "─"}).
		BorderTop(true).
		BorderForeground(styles.DimGray).
		Render(strings.Join(parts, styles.KeySepStyle.Render("  ")))
}
