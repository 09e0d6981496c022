package components

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/convgauge/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// ColorForPct returns green/yellow/orange/red based on utilization level.
func ColorForPct(pct float64) lipgloss.Color {
	t := theme.Active
	switch {
	case pct >= 0.9:
		return t.Red
	case pct >= 0.7:
		return t.Orange
	case pct >= 0.5:
		return t.Yellow
	default:
		return t.Green
	}
}

// Gauge renders a labeled utilization bar with percentage. Ratios above
// 1.0 fill the bar completely but keep their real percentage label.
func Gauge(label string, pct float64, labelW, barW int) string {
	t := theme.Active

	fillPct := pct
	if fillPct > 1 {
		fillPct = 1
	}
	if fillPct < 0 {
		fillPct = 0
	}
	filled := int(fillPct * float64(barW))

	color := ColorForPct(pct)
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted)
	filledStyle := lipgloss.NewStyle().Foreground(color)
	emptyStyle := lipgloss.NewStyle().Foreground(t.TextDim)
	pctStyle := lipgloss.NewStyle().Foreground(color).Bold(true)

	var b strings.Builder
	b.WriteString(labelStyle.Render(fmt.Sprintf("%-*s", labelW, label)))
	b.WriteString(" ")
	b.WriteString(filledStyle.Render(strings.Repeat("█", filled)))
	b.WriteString(emptyStyle.Render(strings.Repeat("░", barW-filled)))
	b.WriteString(" ")
	b.WriteString(pctStyle.Render(fmt.Sprintf("%5.1f%%", pct*100)))
	return b.String()
}

// Banner renders an alert line in the severity's color.
func Banner(severity, message string) string {
	t := theme.Active
	color := t.Orange
	if severity == "critical" {
		color = t.Red
	}
	style := lipgloss.NewStyle().Foreground(color).Bold(true)
	return style.Render(fmt.Sprintf("▲ %s: %s", strings.ToUpper(severity), message))
}
