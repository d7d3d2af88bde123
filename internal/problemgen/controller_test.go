package problemgen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssbdragonalt/Estimify/internal/history"
	"github.com/ssbdragonalt/Estimify/internal/llm"
)

const (
	heartbeats = `{"question":"How many times does a human heart beat in a lifetime?","answer":2628000000,"context":"70 bpm over 70 years."}`
	pianos     = "```json\n{\"question\":\"How many piano tuners work in Chicago?\",\"answer\":125,\"context\":\"3M people, 1 piano per 20 households.\"}\n```"
)

// waits records requested backoffs instead of sleeping.
type waits struct {
	mu  sync.Mutex
	got []time.Duration
}

func (w *waits) sleep(ctx context.Context, d time.Duration) error {
	w.mu.Lock()
	w.got = append(w.got, d)
	w.mu.Unlock()
	return ctx.Err()
}

func newTestController(t *testing.T, p llm.Provider, store history.Store, cfg Config, opts ...Option) (*Controller, *waits) {
	t.Helper()
	w := &waits{}
	opts = append([]Option{WithSleep(w.sleep)}, opts...)
	return NewController(p, store, cfg, opts...), w
}

// flakyStore fails the first failReads reads and the first failWrites
// appends, and can grow between reads.
type flakyStore struct {
	*history.Memory
	mu         sync.Mutex
	failReads  int
	failWrites int
	onRead     func()
}

func (s *flakyStore) Questions(ctx context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	if s.failReads > 0 {
		s.failReads--
		s.mu.Unlock()
		return nil, errors.New("history service down")
	}
	onRead := s.onRead
	s.mu.Unlock()

	list, err := s.Memory.Questions(ctx, userID)
	if onRead != nil {
		onRead()
	}
	return list, err
}

func (s *flakyStore) Append(ctx context.Context, userID, text string) error {
	s.mu.Lock()
	if s.failWrites > 0 {
		s.failWrites--
		s.mu.Unlock()
		return errors.New("history write rejected")
	}
	s.mu.Unlock()
	return s.Memory.Append(ctx, userID, text)
}

func TestController_FirstAttemptSucceeds(t *testing.T) {
	p := llm.NewMockProvider(llm.MockResponse{Content: heartbeats})
	store := history.NewMemory(history.DefaultCap)
	c, w := newTestController(t, p, store, DefaultConfig())

	q, err := c.Generate(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, "How many times does a human heart beat in a lifetime?", q.Question)
	assert.Equal(t, 2628000000.0, q.Answer)
	assert.Equal(t, CategoryHumanBiology, q.Category)
	assert.Equal(t, 1, p.CallCount())
	assert.Empty(t, w.got)

	got, _ := store.Questions(context.Background(), "user-1")
	assert.Equal(t, []string{q.Question}, got)

	req, ok := p.LastRequest()
	require.True(t, ok)
	assert.Equal(t, 1024, req.MaxTokens)
	assert.InDelta(t, 0.3, req.Temperature, 1e-9)
	assert.Nil(t, req.Schema)
	assert.Contains(t, req.Messages[0].Content, "Category: human biology")
}

func TestController_RecoversWithinBudget(t *testing.T) {
	p := llm.NewMockProvider(
		llm.MockResponse{Err: &llm.ErrProviderUnavailable{Err: errors.New("502")}},
		llm.MockResponse{Content: "I cannot do that."},
		llm.MockResponse{Content: pianos},
	)
	store := history.NewMemory(history.DefaultCap)
	c, w := newTestController(t, p, store, DefaultConfig())

	q, err := c.Generate(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "How many piano tuners work in Chicago?", q.Question)
	assert.Equal(t, 3, p.CallCount())

	// Upstream waits 1s x attempt 1; malformed output retries immediately.
	assert.Equal(t, []time.Duration{time.Second, 0}, w.got)

	got, _ := store.Questions(context.Background(), "user-1")
	assert.Len(t, got, 1)
}

func TestController_GivesUpAfterMaxAttempts(t *testing.T) {
	p := llm.NewMockProvider(
		llm.MockResponse{Content: `{"question":"q","answer":"lots","context":"c"}`},
		llm.MockResponse{Content: `{"question":"q","answer":"lots","context":"c"}`},
		llm.MockResponse{Content: `{"question":"q","answer":"lots","context":"c"}`},
		llm.MockResponse{Content: heartbeats},
	)
	store := history.NewMemory(history.DefaultCap)
	c, w := newTestController(t, p, store, DefaultConfig())

	q, err := c.Generate(context.Background(), "user-1")
	require.Error(t, err)
	assert.Nil(t, q)
	assert.True(t, errors.Is(err, ErrMaxRetriesExceeded))

	var mre *MaxRetriesError
	require.ErrorAs(t, err, &mre)
	assert.Equal(t, 3, mre.Attempts)
	assert.Equal(t, KindInvalidAnswerType, KindOf(mre.Last))

	assert.Equal(t, 3, p.CallCount(), "no fourth invocation")
	assert.Len(t, w.got, 2, "no wait after the final attempt")

	got, _ := store.Questions(context.Background(), "user-1")
	assert.Empty(t, got)
}

func TestController_RejectsDuplicate(t *testing.T) {
	store := history.NewMemory(history.DefaultCap)
	require.NoError(t, store.Append(context.Background(), "user-1", "How many times does a human heart beat in a lifetime?"))

	p := llm.NewMockProvider(
		llm.MockResponse{Content: heartbeats},
		llm.MockResponse{Content: pianos},
	)
	c, _ := newTestController(t, p, store, DefaultConfig())

	q, err := c.Generate(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "How many piano tuners work in Chicago?", q.Question)
	assert.Equal(t, CategoryDailyActivities, q.Category)

	for _, call := range p.Calls {
		assert.Contains(t, call.Messages[0].Content, "How many times does a human heart beat in a lifetime?")
	}

	got, _ := store.Questions(context.Background(), "user-1")
	assert.Len(t, got, 2)
}

func TestController_CategoryFixedAcrossRetries(t *testing.T) {
	mem := history.NewMemory(history.DefaultCap)
	require.NoError(t, mem.Append(context.Background(), "u", "How many grains of sand are on a beach?"))

	// Another session records a question between our attempts.
	store := &flakyStore{Memory: mem}
	var once sync.Once
	store.onRead = func() {
		once.Do(func() { _ = mem.Append(context.Background(), "u", "How many cars are in Tokyo?") })
	}

	p := llm.NewMockProvider(
		llm.MockResponse{Content: "not json"},
		llm.MockResponse{Content: pianos},
	)
	c, _ := newTestController(t, p, store, DefaultConfig())

	q, err := c.Generate(context.Background(), "u")
	require.NoError(t, err)
	assert.Equal(t, CategoryDailyActivities, q.Category)

	require.Len(t, p.Calls, 2)
	for _, call := range p.Calls {
		assert.Contains(t, call.Messages[0].Content, "Category: daily activities")
	}
	// History is re-read on the retry.
	assert.Contains(t, p.Calls[1].Messages[0].Content, "How many cars are in Tokyo?")
}

func TestController_HistoryFailuresAreRetried(t *testing.T) {
	store := &flakyStore{Memory: history.NewMemory(history.DefaultCap), failReads: 1, failWrites: 1}
	p := llm.NewMockProvider(
		llm.MockResponse{Content: heartbeats},
		llm.MockResponse{Content: heartbeats},
	)
	c, w := newTestController(t, p, store, DefaultConfig())

	q, err := c.Generate(context.Background(), "u")
	require.NoError(t, err)
	assert.NotNil(t, q)

	// Read failure costs no model call; the write failure costs one.
	assert.Equal(t, 2, p.CallCount())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, w.got)

	got, _ := store.Questions(context.Background(), "u")
	assert.Len(t, got, 1)
}

func TestController_RateLimitBackoff(t *testing.T) {
	p := llm.NewMockProvider(
		llm.MockResponse{Err: &llm.ErrRateLimit{RetryAfter: 5 * time.Second}},
		llm.MockResponse{Err: &llm.ErrRateLimit{}},
		llm.MockResponse{Content: heartbeats},
	)
	c, w := newTestController(t, p, history.NewMemory(0), DefaultConfig())

	_, err := c.Generate(context.Background(), "u")
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{5 * time.Second, 4 * time.Second}, w.got)
}

func TestController_Jitter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Jitter = 0.5
	p := llm.NewMockProvider(
		llm.MockResponse{Err: &llm.ErrProviderUnavailable{}},
		llm.MockResponse{Content: heartbeats},
	)
	c, w := newTestController(t, p, history.NewMemory(0), cfg)
	c.jitter = func() float64 { return 1 }

	_, err := c.Generate(context.Background(), "u")
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{1500 * time.Millisecond}, w.got)
}

func TestController_FatalErrorsAreNotRetried(t *testing.T) {
	tests := []struct {
		name     string
		provider llm.Provider
	}{
		{
			name: "configuration",
			provider: llm.NewLazyProvider("anthropic", func(context.Context) (llm.Provider, error) {
				return nil, errors.New("ESTIMIFY_ANTHROPIC_API_KEY is not set")
			}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestController(t, tt.provider, history.NewMemory(0), DefaultConfig())
			_, err := c.Generate(context.Background(), "u")
			require.Error(t, err)
			assert.False(t, errors.Is(err, ErrMaxRetriesExceeded))
			assert.Empty(t, w.got)
		})
	}
}

func TestController_TruncatedResponseIsRetried(t *testing.T) {
	p := llm.NewMockProvider(
		llm.MockResponse{Err: &llm.ErrMaxTokensExceeded{Content: `{"question":`}},
		llm.MockResponse{Content: heartbeats},
	)
	c, w := newTestController(t, p, history.NewMemory(0), DefaultConfig())

	q, err := c.Generate(context.Background(), "u")
	require.NoError(t, err)
	assert.NotNil(t, q)
	assert.Equal(t, 2, p.CallCount())
	assert.Equal(t, []time.Duration{0}, w.got, "truncation is a local failure")
}

func TestController_TruncationExhaustsBudget(t *testing.T) {
	p := llm.NewMockProvider()
	for range 3 {
		p.AddResponse(llm.MockResponse{Err: &llm.ErrMaxTokensExceeded{Content: `{"question":`}})
	}
	c, _ := newTestController(t, p, history.NewMemory(0), DefaultConfig())

	_, err := c.Generate(context.Background(), "u")
	var mre *MaxRetriesError
	require.ErrorAs(t, err, &mre)
	assert.Equal(t, KindMalformedResponse, KindOf(mre.Last))
	assert.Equal(t, 3, p.CallCount())
}

func TestController_CategoryKeepsRotatingPastCap(t *testing.T) {
	ctx := context.Background()
	store := history.NewMemory(4)
	for i := range 4 {
		require.NoError(t, store.Append(ctx, "u", fmt.Sprintf("warm-up %d", i)))
	}

	p := llm.NewMockProvider()
	for _, q := range []string{
		"How many pianos are in Paris?",
		"What is the total length of all roads in Japan, in kilometers?",
		"How many liters of water does an Olympic pool hold?",
		"How many leaves grow on a mature oak tree?",
	} {
		p.AddResponse(llm.MockResponse{Content: fmt.Sprintf(`{"question":%q,"answer":1000,"context":"c"}`, q)})
	}
	c, _ := newTestController(t, p, store, DefaultConfig())

	var got []Category
	for range 4 {
		q, err := c.Generate(ctx, "u")
		require.NoError(t, err)
		got = append(got, q.Category)
	}
	assert.Equal(t, []Category{CategoryNature, CategorySpace, CategoryTime, CategoryTransportation}, got)

	retained, _ := store.Questions(ctx, "u")
	assert.Len(t, retained, 4)
}

func TestController_StructuredOutputSchema(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StructuredOutput = true
	p := llm.NewMockProvider(
		llm.MockResponse{Err: &llm.ErrInvalidResponse{Content: "{}"}},
		llm.MockResponse{Content: heartbeats},
	)
	c, w := newTestController(t, p, history.NewMemory(0), cfg)

	_, err := c.Generate(context.Background(), "u")
	require.NoError(t, err)
	req, _ := p.LastRequest()
	assert.Same(t, QuestionSchema, req.Schema)
	assert.Equal(t, []time.Duration{0}, w.got, "schema rejection is a local failure")
}

func TestController_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := llm.NewMockProvider(llm.MockResponse{Content: "garbage"})
	c := NewController(p, history.NewMemory(0), DefaultConfig(), WithSleep(func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}))

	_, err := c.Generate(ctx, "u")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, p.CallCount())
}

func TestController_ObservesTransitions(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	obs := ObserverFunc(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, string(e.From)+">"+string(e.To))
	})

	p := llm.NewMockProvider(
		llm.MockResponse{Content: "   "},
		llm.MockResponse{Content: heartbeats},
	)
	c, _ := newTestController(t, p, history.NewMemory(0), DefaultConfig(), WithObserver(obs))

	_, err := c.Generate(context.Background(), "u")
	require.NoError(t, err)

	want := []string{
		">composing", "composing>invoking", "invoking>sanitizing", "sanitizing>retrying",
		"retrying>composing", "composing>invoking", "invoking>sanitizing", "sanitizing>validating",
		"validating>deduping", "deduping>persisting", "persisting>done",
	}
	assert.Equal(t, strings.Join(want, " "), strings.Join(seen, " "))
}

func TestController_ConcurrentUsers(t *testing.T) {
	p := llm.NewMockProvider()
	for range 8 {
		p.AddResponse(llm.MockResponse{Content: heartbeats})
	}
	store := history.NewMemory(0)
	c, _ := newTestController(t, p, store, DefaultConfig())

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := range 8 {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := c.Generate(context.Background(), id)
			errs <- err
		}(string(rune('a' + i)))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 8, p.CallCount())
}
