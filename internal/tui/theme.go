package tui

import "charm.land/lipgloss/v2"

// Palette.
var (
	colorPrimary = lipgloss.Color("#6366F1") // Indigo
	colorAccent  = lipgloss.Color("#F59E0B") // Amber
	colorGood    = lipgloss.Color("#10B981") // Emerald
	colorBad     = lipgloss.Color("#EF4444") // Red
	colorText    = lipgloss.Color("#F1F5F9")
	colorDim     = lipgloss.Color("#94A3B8")
	colorCard    = lipgloss.Color("#1E293B")
	colorBorder  = lipgloss.Color("#334155")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	bodyStyle = lipgloss.NewStyle().
			Foreground(colorText)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	hintStyle = lipgloss.NewStyle().
			Foreground(colorDim).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorBad).
			Bold(true)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(1, 2)

	barStyle = lipgloss.NewStyle().
			Background(colorCard).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder)
)

// scoreStyle colors a 0..1 score from red through amber to green.
func scoreStyle(score float64) lipgloss.Style {
	switch {
	case score >= 0.7:
		return lipgloss.NewStyle().Foreground(colorGood).Bold(true)
	case score >= 0.3:
		return lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(colorBad).Bold(true)
	}
}
