// Package scoring grades numeric guesses by how many orders of magnitude
// they miss the true answer.
package scoring

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ssbdragonalt/Estimify/internal/problemgen"
)

// ErrInvalidInput is matched by every rejected guess or answer.
var ErrInvalidInput = errors.New("invalid input")

// InvalidInputError describes why a value could not be scored.
type InvalidInputError struct {
	Input  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input %q: %s", e.Input, e.Reason)
}

// Is reports ErrInvalidInput so callers can use errors.Is.
func (e *InvalidInputError) Is(target error) bool { return target == ErrInvalidInput }

// Message is the text shown to a player who typed something unusable.
const Message = "Please enter a valid positive number"

// Result is the grade for one guess.
type Result struct {
	LogError float64 `json:"logError"`
	Score    float64 `json:"score"`
}

// ScoreGuess computes |log10(guess) - log10(answer)| and the score
// 1 - logError clamped to [0, 1]. Both values must be finite and positive.
func ScoreGuess(guess, answer float64) (Result, error) {
	if err := checkPositive("guess", guess); err != nil {
		return Result{}, err
	}
	if err := checkPositive("answer", answer); err != nil {
		return Result{}, err
	}

	logErr := math.Abs(math.Log10(guess) - math.Log10(answer))
	return Result{
		LogError: logErr,
		Score:    clamp(1-logErr, 0, 1),
	}, nil
}

// ParseGuess converts user-typed text into a guess. Surrounding space,
// thousands separators and exponent notation ("2.6e9") are accepted.
func ParseGuess(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, &InvalidInputError{Input: raw, Reason: "empty"}
	}
	s = strings.NewReplacer(",", "", "_", "").Replace(s)

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &InvalidInputError{Input: raw, Reason: "not a number"}
	}
	if err := checkPositive(raw, v); err != nil {
		return 0, err
	}
	return v, nil
}

func checkPositive(name string, v float64) error {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return &InvalidInputError{Input: name, Reason: "not a finite number"}
	case v <= 0:
		return &InvalidInputError{Input: name, Reason: "must be greater than zero"}
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Attempt is one answered question.
type Attempt struct {
	Question problemgen.Question `json:"question"`
	Guess    float64             `json:"guess"`
	LogError float64             `json:"logError"`
	Score    float64             `json:"score"`
}

// NewAttempt scores guess against q.
func NewAttempt(q problemgen.Question, guess float64) (Attempt, error) {
	res, err := ScoreGuess(guess, q.Answer)
	if err != nil {
		return Attempt{}, err
	}
	return Attempt{
		Question: q,
		Guess:    guess,
		LogError: res.LogError,
		Score:    res.Score,
	}, nil
}

// Describe renders a log error the way players see it.
func Describe(logError float64) string {
	return fmt.Sprintf("Your guess was off by %.2f orders of magnitude", logError)
}
