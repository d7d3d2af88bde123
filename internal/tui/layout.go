package tui

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"
)

const (
	minWidth  = 60
	minHeight = 18
)

type keyHint struct {
	Key         string
	Description string
}

func tooSmall(width, height int) bool {
	return width < minWidth || height < minHeight
}

func renderTooSmall(width, height int) string {
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center).
		Foreground(colorText).
		Render(fmt.Sprintf("Terminal too small.\n\nNeed %d x %d, have %d x %d.", minWidth, minHeight, width, height))
}

// renderHeader shows the product name, question progress and running score.
func renderHeader(question, size int, total float64, width int) string {
	left := titleStyle.Render(" Estimify")
	right := lipgloss.NewStyle().Foreground(colorAccent).
		Render(fmt.Sprintf("Q %d/%d   Score %.2f ", question, size, total))

	gap := max(width-4-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return barStyle.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}

func renderFooter(hints []keyHint, width int) string {
	parts := make([]string, 0, len(hints))
	for _, h := range hints {
		parts = append(parts, bodyStyle.Bold(true).Render(h.Key)+" "+dimStyle.Render(h.Description))
	}
	return barStyle.Width(width).Render("  " + strings.Join(parts, "   "))
}

// renderFrame stacks header, content and footer to fill height.
func renderFrame(header, content, footer string, width, height int) string {
	contentHeight := max(height-lipgloss.Height(header)-lipgloss.Height(footer), 0)
	body := lipgloss.NewStyle().Width(width).Height(contentHeight).Render(content)
	return header + "\n" + body + "\n" + footer
}
