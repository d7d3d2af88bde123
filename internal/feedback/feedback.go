// Package feedback turns a finished round into written coaching from the
// model.
package feedback

import (
	"context"
	"fmt"
	"strings"

	"github.com/ssbdragonalt/Estimify/internal/llm"
	"github.com/ssbdragonalt/Estimify/internal/problemgen"
	"github.com/ssbdragonalt/Estimify/internal/scoring"
)

// FallbackText is shown in place of feedback the model could not provide.
const FallbackText = "Unable to generate feedback"

// Config holds feedback generation settings.
type Config struct {
	MaxTokens   int
	Temperature float64
}

// DefaultConfig returns the standard feedback settings.
func DefaultConfig() Config {
	return Config{
		MaxTokens:   1024,
		Temperature: 0.3,
	}
}

// Synthesizer writes feedback for a set of answered questions.
type Synthesizer struct {
	provider llm.Provider
	cfg      Config
}

// New creates a Synthesizer.
func New(provider llm.Provider, cfg Config) *Synthesizer {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultConfig().MaxTokens
	}
	return &Synthesizer{provider: provider, cfg: cfg}
}

// Synthesize asks the model for one block of prose about attempts. Upstream
// errors are returned unchanged and never retried; an empty reply yields
// FallbackText.
func (s *Synthesizer) Synthesize(ctx context.Context, attempts []scoring.Attempt) (string, error) {
	if len(attempts) == 0 {
		return "", fmt.Errorf("feedback: no attempts")
	}
	ctx = llm.WithPurpose(ctx, llm.PurposeFeedback)

	req := llm.Request{
		System:      systemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: buildUserMessage(attempts)}},
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	}
	resp, err := s.provider.Generate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("feedback generation: %w", err)
	}

	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return FallbackText, nil
	}
	return text, nil
}

// GenerateFeedback scores guesses[i] against questions[i] and synthesizes
// feedback for the lot.
func (s *Synthesizer) GenerateFeedback(ctx context.Context, questions []problemgen.Question, guesses []float64) (string, error) {
	if len(questions) != len(guesses) {
		return "", fmt.Errorf("feedback: %d questions but %d guesses", len(questions), len(guesses))
	}
	attempts := make([]scoring.Attempt, 0, len(questions))
	for i, q := range questions {
		a, err := scoring.NewAttempt(q, guesses[i])
		if err != nil {
			return "", fmt.Errorf("question %d: %w", i+1, err)
		}
		attempts = append(attempts, a)
	}
	return s.Synthesize(ctx, attempts)
}
