package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"nathanbeddoewebdev/actionmgr/internal/tui/styles"
)

const chartHeight = 8

// Bar is one labelled value of a grouped chart.
type Bar struct {
	Label string
	Value float64
}

// Chart plots grouped values as a line over the group order, followed by a
// legend that maps each x position to its group label.
func Chart(title string, bars []Bar, width int) string {
	header := styles.Label.Render(title)
	if len(bars) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, header, styles.MutedText.Render("no data"))
	}

	data := make([]float64, len(bars))
	for i, b := range bars {
		data[i] = b.Value
	}
	// asciigraph needs two points to draw a line.
	if len(data) == 1 {
		data = append(data, data[0])
	}

	// Reserve space for the y axis labels.
	plotWidth := max(width-9, 10)

	chart := asciigraph.Plot(data,
		asciigraph.Height(chartHeight),
		asciigraph.Width(plotWidth),
		asciigraph.Precision(0),
		asciigraph.SeriesColors(asciigraph.DodgerBlue),
		asciigraph.LabelColor(asciigraph.Default),
	)

	legend := make([]string, len(bars))
	for i, b := range bars {
		legend[i] = fmt.Sprintf("%s %s", styles.AccentText.Render(b.Label), styles.MutedText.Render(formatValue(b.Value)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, chart, "", strings.Join(legend, styles.KeySepStyle.Render("  ·  ")))
}

func formatValue(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.1f", v)
}
