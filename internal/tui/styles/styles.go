package styles

import "github.com/charmbracelet/lipgloss"

// Text.
var (
	Title       = lipgloss.NewStyle().Bold(true).Foreground(White)
	Subtitle    = lipgloss.NewStyle().Foreground(Gray)
	Label       = lipgloss.NewStyle().Foreground(Gray).Bold(true)
	Value       = lipgloss.NewStyle().Foreground(White)
	MutedText   = lipgloss.NewStyle().Foreground(Muted)
	AccentText  = lipgloss.NewStyle().Foreground(Blue)
	ErrorText   = lipgloss.NewStyle().Foreground(Red).Bold(true)
	SuccessText = lipgloss.NewStyle().Foreground(Green).Bold(true)
	WarningText = lipgloss.NewStyle().Foreground(Yellow).Bold(true)
)

// StateStyle colors a record state value such as "draft" or "sale".
func StateStyle(state string) lipgloss.Style {
	switch state {
	case "sale", "done", "posted":
		return lipgloss.NewStyle().Foreground(Green).Bold(true)
	case "draft", "sent":
		return lipgloss.NewStyle().Foreground(Yellow)
	case "cancel":
		return lipgloss.NewStyle().Foreground(Red)
	default:
		return lipgloss.NewStyle().Foreground(White)
	}
}

// Panels.
var (
	Card       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(DimGray).Padding(1, 2)
	CardActive = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(Blue).Padding(1, 2)
	Banner     = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(Purple).Foreground(Purple).Bold(true).Padding(0, 2)
)

// DialogWidth maps a dialog size name to a width, bounded by the screen.
func DialogWidth(size string, screen int) int {
	w := 64
	switch size {
	case "small":
		w = 44
	case "large", "extra-large", "fullscreen":
		w = screen - 8
	}
	return max(min(w, screen-4), 20)
}

// Key bindings.
var (
	KeyStyle     = lipgloss.NewStyle().Foreground(Blue).Bold(true)
	KeyDescStyle = lipgloss.NewStyle().Foreground(Muted)
	KeySepStyle  = lipgloss.NewStyle().Foreground(DimGray)
)

// FormatKeyBinding formats a single key binding for the footer.
func FormatKeyBinding(key, desc string) string {
	return KeyStyle.Render(key) + " " + KeyDescStyle.Render(desc)
}

// Tables.
var (
	TableHeader      = lipgloss.NewStyle().Foreground(Gray).Bold(true).Padding(0, 1)
	TableCell        = lipgloss.NewStyle().Foreground(White).Padding(0, 1)
	TableSelectedRow = lipgloss.NewStyle().Foreground(White).Background(DarkBlue).Bold(true).Padding(0, 1)
)

// Breadcrumbs.
var (
	CrumbStyle     = lipgloss.NewStyle().Foreground(Gray)
	CrumbLastStyle = lipgloss.NewStyle().Foreground(White).Bold(true)
	CrumbSepStyle  = lipgloss.NewStyle().Foreground(DimGray)
)
