package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/ssbdragonalt/Estimify/internal/problemgen"
	"github.com/ssbdragonalt/Estimify/internal/scoring"
)

func (m *Model) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true
	if m.width == 0 || m.height == 0 {
		return v
	}
	v.SetContent(m.frame())
	return v
}

// frame renders the whole screen at the current size.
func (m *Model) frame() string {
	if tooSmall(m.width, m.height) {
		return renderTooSmall(m.width, m.height)
	}

	attempts := m.deps.Round.Attempts()
	var total float64
	for _, a := range attempts {
		total += a.Score
	}
	number := len(attempts)
	if m.phase == phaseAsking || m.phase == phaseGenerating {
		number++
	}
	number = min(number, m.deps.Round.Size())

	header := renderHeader(number, m.deps.Round.Size(), total, m.width)
	footer := renderFooter(m.keyHints(), m.width)
	contentWidth := min(m.width-4, 100)

	return renderFrame(header, m.renderContent(contentWidth), footer, m.width, m.height)
}

func (m *Model) keyHints() []keyHint {
	switch m.phase {
	case phaseAsking:
		return []keyHint{{"Enter", "Submit"}, {"Esc", "Quit"}}
	case phaseRevealed:
		if m.deps.Round.Complete() {
			return []keyHint{{"Enter", "See results"}, {"Q", "Quit"}}
		}
		return []keyHint{{"Enter", "Next question"}, {"Q", "Quit"}}
	case phaseFailed:
		return []keyHint{{"R", "Retry"}, {"Q", "Quit"}}
	case phaseFinished:
		return []keyHint{{"Enter", "Exit"}}
	default:
		return []keyHint{{"Ctrl+C", "Quit"}}
	}
}

func (m *Model) renderContent(width int) string {
	switch m.phase {
	case phaseGenerating:
		return "\n" + hintStyle.Render("  Thinking up a question...")
	case phaseAsking:
		return m.renderQuestion(width)
	case phaseRevealed:
		return m.renderReveal(width)
	case phaseSummarizing:
		return "\n" + hintStyle.Render("  Reviewing your round...")
	case phaseFinished:
		return m.renderSummary(width)
	case phaseFailed:
		return m.renderFailure(width)
	}
	return ""
}

func (m *Model) renderQuestion(width int) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("  " + categoryLabel(m.current.Category)))
	b.WriteString("\n\n")
	b.WriteString(cardStyle.Width(width).Render(bodyStyle.Render(m.current.Question)))
	b.WriteString("\n\n  ")
	b.WriteString(m.input.View())
	if m.inputErr != "" {
		b.WriteString("\n\n  " + errorStyle.Render(m.inputErr))
	}
	return b.String()
}

func (m *Model) renderReveal(width int) string {
	a := m.last
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(cardStyle.Width(width).Render(bodyStyle.Render(a.Question.Question)))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("  Your guess:  %s\n", bodyStyle.Render(formatNumber(a.Guess))))
	b.WriteString(fmt.Sprintf("  Answer:      %s\n\n", titleStyle.Render(formatNumber(a.Question.Answer))))
	b.WriteString("  " + scoreStyle(a.Score).Render(fmt.Sprintf("Score %.2f", a.Score)))
	b.WriteString("   " + dimStyle.Render(scoring.Describe(a.LogError)))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.NewStyle().Width(width).PaddingLeft(2).Foreground(colorDim).Render(a.Question.Context))
	return b.String()
}

func (m *Model) renderSummary(width int) string {
	res := m.result
	if res == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(titleStyle.Render("  Round complete!"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("  Total %s   Average %s\n\n",
		scoreStyle(res.Average()).Render(fmt.Sprintf("%.2f / %d", res.Total, len(res.Attempts))),
		scoreStyle(res.Average()).Render(fmt.Sprintf("%.2f", res.Average()))))

	for i, a := range res.Attempts {
		line := fmt.Sprintf("%2d. %-*s %s", i+1, max(width-16, 10), truncate(a.Question.Question, max(width-16, 10)),
			scoreStyle(a.Score).Render(fmt.Sprintf("%.2f", a.Score)))
		b.WriteString("  " + line + "\n")
	}
	b.WriteString("\n")
	b.WriteString(cardStyle.Width(width).Render(bodyStyle.Render(res.Feedback)))

	switch {
	case m.submitErr != nil:
		b.WriteString("\n\n  " + errorStyle.Render("Could not submit score to the leaderboard."))
	case m.submitted:
		b.WriteString("\n\n  " + dimStyle.Render("Score submitted to the leaderboard as "+m.deps.Username+"."))
	}
	return b.String()
}

func (m *Model) renderFailure(width int) string {
	msg := problemgen.UserMessage
	if !errors.Is(m.err, problemgen.ErrMaxRetriesExceeded) && m.err != nil {
		msg = m.err.Error()
	}
	return "\n" + cardStyle.Width(width).Render(errorStyle.Render("Something went wrong: "+msg))
}

func categoryLabel(c problemgen.Category) string {
	if c == "" {
		return "Fermi question"
	}
	return strings.ToUpper(string(c[:1])) + string(c[1:])
}

// formatNumber prints integers with thousands separators and very large or
// small values in exponent form.
func formatNumber(v float64) string {
	if v >= 1e15 || v < 1e-3 {
		return strconv.FormatFloat(v, 'e', 3, 64)
	}
	if v != float64(int64(v)) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	s := strconv.FormatInt(int64(v), 10)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func truncate(s string, n int) string {
	if n <= 3 || len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
