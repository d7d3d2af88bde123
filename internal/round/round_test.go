package round

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ssbdragonalt/Estimify/internal/history"
	"github.com/ssbdragonalt/Estimify/internal/llm"
	"github.com/ssbdragonalt/Estimify/internal/problemgen"
	"github.com/ssbdragonalt/Estimify/internal/scoring"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// seqGenerator hands out numbered questions with answer 100.
type seqGenerator struct {
	mu    sync.Mutex
	n     int
	fail  error
	users []string
}

func (g *seqGenerator) Generate(_ context.Context, userID string) (*problemgen.Question, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.users = append(g.users, userID)
	if g.fail != nil {
		return nil, g.fail
	}
	g.n++
	return &problemgen.Question{
		Question: fmt.Sprintf("Question %d?", g.n),
		Answer:   100,
		Context:  "context",
	}, nil
}

// fakeClock advances only when slept on.
type fakeClock struct {
	mu    sync.Mutex
	t     time.Time
	slept []time.Duration
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) sleep(_ context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slept = append(c.slept, d)
	c.t = c.t.Add(d)
	return nil
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestRound(gen problemgen.Generator, size int) (*Round, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	r := New(gen, "user-1", Config{Size: size, Pacing: time.Second}, WithClock(clock.now, clock.sleep))
	return r, clock
}

func TestRound_FullLifecycle(t *testing.T) {
	gen := &seqGenerator{}
	r, clock := newTestRound(gen, 3)
	ctx := context.Background()

	for i, guess := range []string{"100", "1,000", "1e4"} {
		q, err := r.NextQuestion(ctx)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("Question %d?", i+1), q.Question)

		cur, ok := r.Current()
		require.True(t, ok)
		assert.Equal(t, q.Question, cur.Question)

		_, err = r.SubmitGuess(guess)
		require.NoError(t, err)
	}

	assert.True(t, r.Complete())
	_, err := r.NextQuestion(ctx)
	assert.ErrorIs(t, err, ErrRoundComplete)
	assert.Equal(t, 3, gen.n, "no generation after the round completes")

	res, err := r.Result("Good effort.")
	require.NoError(t, err)
	assert.Equal(t, r.ID().String(), res.ID)
	assert.Len(t, res.Attempts, 3)
	assert.InDelta(t, 1.0, res.Total, 1e-9)
	assert.InDelta(t, 1.0/3, res.Average(), 1e-9)
	assert.Equal(t, "Good effort.", res.Feedback)
	assert.Equal(t, clock.now(), res.CompletedAt)

	entry := res.Submission("ada")
	assert.Equal(t, "user-1", entry.UserID)
	assert.Equal(t, "ada", entry.Username)
	assert.Equal(t, 3, entry.TotalQuestions)
	assert.Equal(t, res.Total, entry.Score)
	assert.Equal(t, res.CompletedAt, entry.Timestamp)
}

func TestRound_Pacing(t *testing.T) {
	r, clock := newTestRound(&seqGenerator{}, 3)
	ctx := context.Background()

	_, err := r.NextQuestion(ctx)
	require.NoError(t, err)
	_, err = r.SubmitGuess("5")
	require.NoError(t, err)

	// Answered immediately: the full gap is waited.
	_, err = r.NextQuestion(ctx)
	require.NoError(t, err)
	_, err = r.SubmitGuess("5")
	require.NoError(t, err)

	// A slow answer leaves nothing to wait.
	clock.advance(3 * time.Second)
	_, err = r.NextQuestion(ctx)
	require.NoError(t, err)

	assert.Equal(t, []time.Duration{time.Second}, clock.slept)
}

func TestRound_AwaitingGuess(t *testing.T) {
	gen := &seqGenerator{}
	r, _ := newTestRound(gen, 2)

	_, err := r.NextQuestion(context.Background())
	require.NoError(t, err)
	_, err = r.NextQuestion(context.Background())
	assert.ErrorIs(t, err, ErrAwaitingGuess)
	assert.Equal(t, 1, gen.n)
}

func TestRound_InvalidGuessDoesNotAdvance(t *testing.T) {
	r, _ := newTestRound(&seqGenerator{}, 2)

	_, err := r.SubmitGuess("10")
	assert.ErrorIs(t, err, ErrNoQuestion)

	_, err = r.NextQuestion(context.Background())
	require.NoError(t, err)

	for _, raw := range []string{"", "lots", "-4", "0"} {
		_, err := r.SubmitGuess(raw)
		assert.ErrorIs(t, err, scoring.ErrInvalidInput, "guess %q", raw)
	}
	assert.Empty(t, r.Attempts())
	_, ok := r.Current()
	assert.True(t, ok, "question still pending")

	a, err := r.SubmitGuess("1000")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, a.LogError, 1e-9)
	assert.InDelta(t, 0.0, a.Score, 1e-9)
}

func TestRound_GenerationFailure(t *testing.T) {
	gen := &seqGenerator{fail: &problemgen.MaxRetriesError{Attempts: 3}}
	r, _ := newTestRound(gen, 2)

	_, err := r.NextQuestion(context.Background())
	assert.True(t, errors.Is(err, problemgen.ErrMaxRetriesExceeded))
	_, ok := r.Current()
	assert.False(t, ok)

	gen.fail = nil
	_, err = r.NextQuestion(context.Background())
	require.NoError(t, err, "a failed generation can be retried by the caller")
}

func TestRound_ResultBeforeComplete(t *testing.T) {
	r, _ := newTestRound(&seqGenerator{}, 2)
	_, err := r.Result("")
	assert.ErrorIs(t, err, ErrIncomplete)
}

func TestRound_PacingHonorsCancel(t *testing.T) {
	r := New(&seqGenerator{}, "u", Config{Size: 2, Pacing: time.Hour})
	_, err := r.NextQuestion(context.Background())
	require.NoError(t, err)
	_, err = r.SubmitGuess("1")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := r.NextQuestion(ctx)
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("NextQuestion did not return after cancel")
	}
}

// gatedGenerator blocks in Generate until release is closed.
type gatedGenerator struct {
	entered chan struct{}
	release chan struct{}
}

func (g *gatedGenerator) Generate(ctx context.Context, _ string) (*problemgen.Question, error) {
	close(g.entered)
	select {
	case <-g.release:
		return &problemgen.Question{Question: "How many bricks are in the Great Wall?", Answer: 4e9, Context: "c"}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestRound_ReadsDoNotWaitOnGeneration(t *testing.T) {
	gen := &gatedGenerator{entered: make(chan struct{}), release: make(chan struct{})}
	r, _ := newTestRound(gen, 2)

	done := make(chan error, 1)
	go func() {
		_, err := r.NextQuestion(context.Background())
		done <- err
	}()
	<-gen.entered

	// These would block behind the generator if it held the lock.
	_, ok := r.Current()
	assert.False(t, ok)
	assert.False(t, r.Complete())
	assert.Empty(t, r.Attempts())

	_, err := r.NextQuestion(context.Background())
	assert.ErrorIs(t, err, ErrGenerating)

	close(gen.release)
	require.NoError(t, <-done)

	q, ok := r.Current()
	require.True(t, ok)
	assert.Equal(t, "How many bricks are in the Great Wall?", q.Question)
}

func TestRound_WithController(t *testing.T) {
	p := llm.NewMockProvider(
		llm.MockResponse{Content: `{"question":"How many trees are on Earth?","answer":3e12,"context":"Forest area times density."}`},
		llm.MockResponse{Content: `{"question":"How many cups of coffee are drunk daily worldwide?","answer":2e9,"context":"Drinkers times cups."}`},
	)
	store := history.NewMemory(0)
	ctrl := problemgen.NewController(p, store, problemgen.DefaultConfig())
	r, _ := newTestRound(ctrl, 2)

	q1, err := r.NextQuestion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, problemgen.CategoryHumanBiology, q1.Category)
	_, err = r.SubmitGuess("3e12")
	require.NoError(t, err)

	q2, err := r.NextQuestion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, problemgen.CategoryDailyActivities, q2.Category)

	got, _ := store.Questions(context.Background(), "user-1")
	assert.Equal(t, []string{q1.Question, q2.Question}, got)
}
