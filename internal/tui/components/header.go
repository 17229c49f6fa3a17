// Package components renders the fixed parts of the terminal client: the
// breadcrumb header, the status line, the key binding footer and charts.
// They are plain render helpers, not tea.Models.
package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"nathanbeddoewebdev/actionmgr/internal/tui/styles"
)

// Header renders the application name, the breadcrumb trail and a right
// aligned hint such as the current view type.
//
//	actionmgr  Contacts › Azure Interior                 form
func Header(width int, crumbs []string, right string) string {
	if width < 10 {
		return ""
	}

	left := styles.Title.Foreground(styles.Blue).Render("actionmgr")
	if trail := Trail(crumbs); trail != "" {
		left += "  " + trail
	}
	if right != "" {
		right = styles.Subtitle.Render(right)
	}

	innerWidth := width - 4
	rightLen := lipgloss.Width(right)
	if lipgloss.Width(left)+rightLen+1 > innerWidth {
		left = ansi.Truncate(left, max(innerWidth-rightLen-1, 1), "…")
	}
	gap := max(innerWidth-lipgloss.Width(left)-rightLen, 1)

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 2).
		BorderStyle(lipgloss.Border{Bottom: "─"}).
		BorderBottom(true).
		BorderForeground(styles.DimGray).
		Render(left + strings.Repeat(" ", gap) + right)
}

// Trail joins breadcrumb titles, highlighting the last one.
func Trail(crumbs []string) string {
	if len(crumbs) == 0 {
		return ""
	}
	parts := make([]string, len(crumbs))
	for i, c := range crumbs {
		if i == len(crumbs)-1 {
			parts[i] = styles.CrumbLastStyle.Render(c)
		} else {
			parts[i] = styles.CrumbStyle.Render(c)
		}
	}
	return strings.Join(parts, styles.CrumbSepStyle.Render(" › "))
}
