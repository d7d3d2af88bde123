// Package round runs one game: a fixed number of generated questions,
// answered one at a time, then scored and summarized.
package round

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ssbdragonalt/Estimify/internal/leaderboard"
	"github.com/ssbdragonalt/Estimify/internal/problemgen"
	"github.com/ssbdragonalt/Estimify/internal/scoring"
)

var (
	// ErrRoundComplete is returned when every question has been answered.
	ErrRoundComplete = errors.New("round complete")

	// ErrAwaitingGuess is returned when the current question is unanswered.
	ErrAwaitingGuess = errors.New("current question has not been answered")

	// ErrGenerating is returned while another NextQuestion call is
	// still generating.
	ErrGenerating = errors.New("question generation already in progress")

	// ErrNoQuestion is returned by SubmitGuess when nothing is being asked.
	ErrNoQuestion = errors.New("no question to answer")

	// ErrIncomplete is returned by Result before the last question is answered.
	ErrIncomplete = errors.New("round not complete")
)

// Config controls round size and pacing.
type Config struct {
	// Size is the number of questions in a round.
	Size int

	// Pacing is the minimum gap between successive generations.
	Pacing time.Duration
}

// DefaultConfig returns the standard round settings.
func DefaultConfig() Config {
	return Config{Size: 10, Pacing: time.Second}
}

// Round holds the questions and answers of one game for one user.
// Methods are safe for concurrent use. Only one generation runs at a
// time, and it runs without holding the round's lock.
type Round struct {
	id     uuid.UUID
	userID string
	gen    problemgen.Generator
	cfg    Config

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	mu            sync.Mutex
	questions     []problemgen.Question
	attempts      []scoring.Attempt
	lastGenerated time.Time
	generating    bool
}

// Option customizes a Round.
type Option func(*Round)

// WithClock replaces the time source and the pacing wait.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(r *Round) {
		r.now = now
		r.sleep = sleep
	}
}

// New starts an empty round for userID.
func New(gen problemgen.Generator, userID string, cfg Config, opts ...Option) *Round {
	if cfg.Size <= 0 {
		cfg.Size = DefaultConfig().Size
	}
	r := &Round{
		id:     uuid.New(),
		userID: userID,
		gen:    gen,
		cfg:    cfg,
		now:    time.Now,
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ID returns the round identifier.
func (r *Round) ID() uuid.UUID { return r.id }

// UserID returns the player the round belongs to.
func (r *Round) UserID() string { return r.userID }

// Size returns the number of questions in the round.
func (r *Round) Size() int { return r.cfg.Size }

// NextQuestion generates the next question. It waits out the pacing gap
// since the previous successful generation first.
func (r *Round) NextQuestion(ctx context.Context) (*problemgen.Question, error) {
	r.mu.Lock()
	switch {
	case len(r.attempts) >= r.cfg.Size:
		r.mu.Unlock()
		return nil, ErrRoundComplete
	case r.generating:
		r.mu.Unlock()
		return nil, ErrGenerating
	case len(r.questions) > len(r.attempts):
		r.mu.Unlock()
		return nil, ErrAwaitingGuess
	}
	r.generating = true
	last := r.lastGenerated
	r.mu.Unlock()

	q, err := r.generate(ctx, last)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.generating = false
	if err != nil {
		return nil, err
	}
	r.lastGenerated = r.now()
	r.questions = append(r.questions, *q)

	out := *q
	return &out, nil
}

func (r *Round) generate(ctx context.Context, last time.Time) (*problemgen.Question, error) {
	if !last.IsZero() {
		if wait := r.cfg.Pacing - r.now().Sub(last); wait > 0 {
			if err := r.sleep(ctx, wait); err != nil {
				return nil, err
			}
		}
	}
	return r.gen.Generate(ctx, r.userID)
}

// Current returns the question awaiting a guess.
func (r *Round) Current() (problemgen.Question, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.questions) == len(r.attempts) {
		return problemgen.Question{}, false
	}
	return r.questions[len(r.questions)-1], true
}

// SubmitGuess scores raw against the current question. An unparseable
// guess returns *scoring.InvalidInputError and leaves the round unchanged.
func (r *Round) SubmitGuess(raw string) (scoring.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.questions) == len(r.attempts) {
		return scoring.Attempt{}, ErrNoQuestion
	}
	guess, err := scoring.ParseGuess(raw)
	if err != nil {
		return scoring.Attempt{}, err
	}
	a, err := scoring.NewAttempt(r.questions[len(r.questions)-1], guess)
	if err != nil {
		return scoring.Attempt{}, err
	}
	r.attempts = append(r.attempts, a)
	return a, nil
}

// Complete reports whether every question has been answered.
func (r *Round) Complete() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.attempts) >= r.cfg.Size
}

// Attempts returns a copy of the answered questions in order.
func (r *Round) Attempts() []scoring.Attempt {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]scoring.Attempt(nil), r.attempts...)
}

// Result freezes the round with feedback attached.
func (r *Round) Result(feedback string) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.attempts) < r.cfg.Size {
		return nil, fmt.Errorf("%w: %d of %d answered", ErrIncomplete, len(r.attempts), r.cfg.Size)
	}
	attempts := append([]scoring.Attempt(nil), r.attempts...)
	var total float64
	for _, a := range attempts {
		total += a.Score
	}
	return &Result{
		ID:          r.id.String(),
		UserID:      r.userID,
		Attempts:    attempts,
		Total:       total,
		Feedback:    feedback,
		CompletedAt: r.now(),
	}, nil
}

// Result is a finished round. It is not modified after creation.
type Result struct {
	ID          string            `json:"id"`
	UserID      string            `json:"userId"`
	Attempts    []scoring.Attempt `json:"attempts"`
	Total       float64           `json:"total"`
	Feedback    string            `json:"feedback"`
	CompletedAt time.Time         `json:"completedAt"`
}

// Average is the mean score per question.
func (res *Result) Average() float64 {
	if len(res.Attempts) == 0 {
		return 0
	}
	return res.Total / float64(len(res.Attempts))
}

// Submission converts the result into a leaderboard entry.
func (res *Result) Submission(username string) leaderboard.Entry {
	return leaderboard.Entry{
		UserID:         res.UserID,
		Username:       username,
		Score:          res.Total,
		TotalQuestions: len(res.Attempts),
		Timestamp:      res.CompletedAt,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
