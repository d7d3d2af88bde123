package problemgen

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/ssbdragonalt/Estimify/internal/history"
	"github.com/ssbdragonalt/Estimify/internal/llm"
)

// Controller runs the generation pipeline with bounded retries:
// history -> compose -> invoke -> sanitize -> validate -> dedupe -> persist.
// It implements Generator.
type Controller struct {
	provider llm.Provider
	history  history.Store
	config   Config
	detector DuplicateDetector
	observer Observer

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64
}

var _ Generator = (*Controller)(nil)

// Option customizes a Controller.
type Option func(*Controller)

// WithObserver registers an observer for state transitions.
func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observer = o }
}

// WithLogger logs transitions through LogObserver, alongside any
// observer already registered.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		c.observer = Observers(c.observer, LogObserver(logger))
	}
}

// WithSleep replaces the backoff wait, mainly for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Controller) { c.sleep = sleep }
}

// NewController creates a Controller. Zero-valued config fields take
// their DefaultConfig values.
func NewController(provider llm.Provider, store history.Store, cfg Config, opts ...Option) *Controller {
	def := DefaultConfig()
	if len(cfg.Categories) == 0 {
		cfg.Categories = def.Categories
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = def.SimilarityThreshold
	}

	c := &Controller{
		provider: provider,
		history:  store,
		config:   cfg,
		detector: NewDuplicateDetector(cfg),
		sleep:    sleepContext,
		jitter:   rand.Float64,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// request is the state owned by one in-flight Generate call.
type request struct {
	userID   string
	attempt  int
	state    State
	category Category
	chosen   bool
}

// Generate produces one novel question for userID, or fails with
// *MaxRetriesError once MaxAttempts attempts have failed. Configuration
// errors and context cancellation end the request immediately.
func (c *Controller) Generate(ctx context.Context, userID string) (*Question, error) {
	req := &request{userID: userID}
	var last error

	for req.attempt = 1; req.attempt <= c.config.MaxAttempts; req.attempt++ {
		q, err := c.attempt(ctx, req)
		if err == nil {
			c.transition(req, StateDone, nil, 0)
			return q, nil
		}
		last = err

		if !retryable(err) {
			c.transition(req, StateFailed, err, 0)
			return nil, err
		}
		if req.attempt == c.config.MaxAttempts {
			break
		}

		wait := c.backoff(req.attempt, err)
		c.transition(req, StateRetrying, err, wait)
		if err := c.sleep(ctx, wait); err != nil {
			c.transition(req, StateFailed, err, 0)
			return nil, err
		}
	}

	failure := &MaxRetriesError{Attempts: c.config.MaxAttempts, Last: last}
	c.transition(req, StateFailed, failure, 0)
	return nil, failure
}

// attempt runs the pipeline once. The category is fixed by the first
// successful history read and reused on every retry. It rotates on the
// lifetime question count when the store keeps one.
func (c *Controller) attempt(ctx context.Context, req *request) (*Question, error) {
	c.transition(req, StateComposing, nil, 0)

	seen := -1
	if counter, ok := c.history.(history.Counter); ok && !req.chosen {
		n, err := counter.Count(ctx, req.userID)
		if err != nil {
			return nil, upstreamError(ctx, fmt.Errorf("count history: %w", err))
		}
		seen = n
	}
	prior, err := c.history.Questions(ctx, req.userID)
	if err != nil {
		return nil, upstreamError(ctx, fmt.Errorf("fetch history: %w", err))
	}
	if !req.chosen {
		if seen < 0 {
			seen = len(prior)
		}
		req.category = CategoryFor(seen, c.config.Categories)
		req.chosen = true
	}
	prompt := Compose(req.category, prior, c.config)

	c.transition(req, StateInvoking, nil, 0)
	llmReq := llm.Request{
		System:      prompt.System,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt.User}},
		MaxTokens:   c.config.MaxTokens,
		Temperature: c.config.Temperature,
	}
	if c.config.StructuredOutput {
		llmReq.Schema = QuestionSchema
	}
	resp, err := c.provider.Generate(llm.WithPurpose(ctx, llm.PurposeQuestionGen), llmReq)
	if err != nil {
		return nil, classifyProviderError(ctx, err)
	}

	c.transition(req, StateSanitizing, nil, 0)
	payload, err := Sanitize(resp.Content)
	if err != nil {
		return nil, err
	}

	c.transition(req, StateValidating, nil, 0)
	q, err := ValidateQuestion(payload)
	if err != nil {
		return nil, err
	}
	q.Category = req.category

	c.transition(req, StateDeduping, nil, 0)
	if err := c.detector.Check(q.Question, prior); err != nil {
		return nil, err
	}

	c.transition(req, StatePersisting, nil, 0)
	if err := c.history.Append(ctx, req.userID, q.Question); err != nil {
		return nil, upstreamError(ctx, fmt.Errorf("append history: %w", err))
	}
	return q, nil
}

func (c *Controller) transition(req *request, to State, err error, wait time.Duration) {
	from := req.state
	req.state = to
	if c.observer == nil {
		return
	}
	c.observer.Observe(Event{
		UserID:   req.userID,
		Attempt:  req.attempt,
		From:     from,
		To:       to,
		Category: req.category,
		Err:      err,
		Backoff:  wait,
	})
}

// backoff grows linearly with the attempt number. Rate limits wait at
// least as long as the provider asked.
func (c *Controller) backoff(attempt int, err error) time.Duration {
	var base time.Duration
	switch KindOf(err) {
	case KindUpstream:
		var rl *llm.ErrRateLimit
		if errors.As(err, &rl) {
			base = c.config.RateLimitBackoff * time.Duration(attempt)
			base = max(base, rl.RetryAfter)
		} else {
			base = c.config.UpstreamBackoff * time.Duration(attempt)
		}
	default:
		base = c.config.LocalBackoff * time.Duration(attempt)
	}

	if c.config.Jitter > 0 && base > 0 {
		spread := float64(base) * c.config.Jitter * (2*c.jitter() - 1)
		base += time.Duration(spread)
	}
	return max(base, 0)
}

func retryable(err error) bool {
	var ge *GenerationError
	return errors.As(err, &ge)
}

// classifyProviderError maps adapter failures onto the retry taxonomy.
func classifyProviderError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	var cfgErr *llm.ErrConfiguration
	var maxTok *llm.ErrMaxTokensExceeded
	var invalid *llm.ErrInvalidResponse
	switch {
	case errors.As(err, &cfgErr):
		return err
	case errors.As(err, &maxTok):
		return &GenerationError{Kind: KindMalformedResponse, Message: "response truncated", Err: err}
	case errors.As(err, &invalid):
		return &GenerationError{Kind: KindMalformedResponse, Message: "structured output rejected", Err: err}
	default:
		return &GenerationError{Kind: KindUpstream, Err: err}
	}
}

func upstreamError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return &GenerationError{Kind: KindUpstream, Err: err}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
