// Package tui is the terminal front end for playing a round.
package tui

import (
	"context"
	"errors"
	"fmt"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"go.uber.org/zap"

	"github.com/ssbdragonalt/Estimify/internal/feedback"
	"github.com/ssbdragonalt/Estimify/internal/leaderboard"
	"github.com/ssbdragonalt/Estimify/internal/logging"
	"github.com/ssbdragonalt/Estimify/internal/problemgen"
	"github.com/ssbdragonalt/Estimify/internal/round"
	"github.com/ssbdragonalt/Estimify/internal/scoring"
)

type phase int

const (
	phaseGenerating phase = iota
	phaseAsking
	phaseRevealed
	phaseSummarizing
	phaseFinished
	phaseFailed
)

// Deps are the services a game needs. Feedback and Board are optional.
type Deps struct {
	Round    *round.Round
	Feedback *feedback.Synthesizer
	Board    leaderboard.Board
	Username string
	Logger   *zap.Logger
}

// questionMsg carries the outcome of one generation.
type questionMsg struct {
	Question *problemgen.Question
	Err      error
}

// feedbackMsg carries the synthesized round feedback.
type feedbackMsg struct {
	Text string
	Err  error
}

// submittedMsg reports the leaderboard submission.
type submittedMsg struct {
	Err error
}

// Model is the Bubble Tea model for one round.
type Model struct {
	ctx    context.Context
	deps   Deps
	logger *zap.Logger

	phase    phase
	input    textinput.Model
	current  problemgen.Question
	last     scoring.Attempt
	inputErr string
	err      error

	result    *round.Result
	submitted bool
	submitErr error

	width  int
	height int
}

var _ tea.Model = (*Model)(nil)

// New creates the model. ctx bounds every background call.
func New(ctx context.Context, deps Deps) *Model {
	ti := textinput.New()
	ti.Placeholder = "Your estimate, e.g. 2.5e6"
	ti.CharLimit = 32

	return &Model{
		ctx:    ctx,
		deps:   deps,
		logger: logging.OrNop(deps.Logger),
		input:  ti,
	}
}

// Result returns the finished round, or nil if the game ended early.
func (m *Model) Result() *round.Result {
	return m.result
}

func (m *Model) Init() tea.Cmd {
	return m.generate()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case questionMsg:
		return m.handleQuestion(msg)

	case feedbackMsg:
		return m.handleFeedback(msg)

	case submittedMsg:
		m.submitted = true
		m.submitErr = msg.Err
		if msg.Err != nil {
			m.logger.Warn("leaderboard submission failed", zap.Error(msg.Err))
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.phase == phaseAsking {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.phase {
	case phaseAsking:
		switch key {
		case "esc":
			return m, tea.Quit
		case "enter":
			return m.submitGuess()
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		m.inputErr = ""
		return m, cmd

	case phaseRevealed:
		switch key {
		case "enter", "space", " ":
			if m.deps.Round.Complete() {
				m.phase = phaseSummarizing
				return m, m.synthesize()
			}
			m.phase = phaseGenerating
			return m, m.generate()
		case "esc", "q":
			return m, tea.Quit
		}

	case phaseFailed:
		switch key {
		case "r":
			m.err = nil
			m.phase = phaseGenerating
			return m, m.generate()
		case "esc", "q", "enter":
			return m, tea.Quit
		}

	case phaseFinished:
		switch key {
		case "esc", "q", "enter":
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *Model) handleQuestion(msg questionMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.phase = phaseFailed
		m.err = msg.Err
		m.logger.Error("question generation failed", zap.Error(msg.Err))
		return m, nil
	}
	m.current = *msg.Question
	m.phase = phaseAsking
	m.input.Reset()
	m.inputErr = ""
	return m, m.input.Focus()
}

func (m *Model) submitGuess() (tea.Model, tea.Cmd) {
	a, err := m.deps.Round.SubmitGuess(m.input.Value())
	if err != nil {
		if errors.Is(err, scoring.ErrInvalidInput) {
			m.inputErr = scoring.Message
			return m, nil
		}
		m.phase = phaseFailed
		m.err = err
		return m, nil
	}
	m.last = a
	m.phase = phaseRevealed
	m.input.Blur()
	return m, nil
}

func (m *Model) handleFeedback(msg feedbackMsg) (tea.Model, tea.Cmd) {
	text := msg.Text
	if msg.Err != nil {
		m.logger.Warn("feedback generation failed", zap.Error(msg.Err))
		text = feedback.FallbackText
	}

	res, err := m.deps.Round.Result(text)
	if err != nil {
		m.phase = phaseFailed
		m.err = err
		return m, nil
	}
	m.result = res
	m.phase = phaseFinished
	return m, m.submit(res)
}

func (m *Model) generate() tea.Cmd {
	r := m.deps.Round
	ctx := m.ctx
	return func() tea.Msg {
		q, err := r.NextQuestion(ctx)
		return questionMsg{Question: q, Err: err}
	}
}

func (m *Model) synthesize() tea.Cmd {
	fb := m.deps.Feedback
	attempts := m.deps.Round.Attempts()
	ctx := m.ctx
	return func() tea.Msg {
		if fb == nil {
			return feedbackMsg{Err: fmt.Errorf("feedback not configured")}
		}
		text, err := fb.Synthesize(ctx, attempts)
		return feedbackMsg{Text: text, Err: err}
	}
}

func (m *Model) submit(res *round.Result) tea.Cmd {
	board := m.deps.Board
	if board == nil || m.deps.Username == "" {
		return nil
	}
	entry := res.Submission(m.deps.Username)
	ctx := m.ctx
	return func() tea.Msg {
		return submittedMsg{Err: board.Submit(ctx, entry)}
	}
}

// Run plays one round in the terminal and returns the finished result,
// or nil when the player quit early.
func Run(ctx context.Context, deps Deps) (*round.Result, error) {
	m := New(ctx, deps)
	final, err := tea.NewProgram(m, tea.WithContext(ctx)).Run()
	if err != nil {
		return nil, fmt.Errorf("run terminal ui: %w", err)
	}
	if fm, ok := final.(*Model); ok {
		return fm.Result(), nil
	}
	return m.Result(), nil
}
