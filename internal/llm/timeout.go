package llm

import (
	"context"
	"time"
)

// TimeoutProvider bounds each call to the wrapped provider.
type TimeoutProvider struct {
	inner   Provider
	timeout time.Duration
}

// WithTimeout wraps p so every Generate call is cancelled after d.
// A non-positive d returns p unchanged.
func WithTimeout(p Provider, d time.Duration) Provider {
	if d <= 0 {
		return p
	}
	return &TimeoutProvider{inner: p, timeout: d}
}

func (t *TimeoutProvider) Generate(parent context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(parent, t.timeout)
	defer cancel()

	resp, err := t.inner.Generate(ctx, req)
	if err != nil && parent.Err() == nil && ctx.Err() == context.DeadlineExceeded {
		// Only this call timed out: report an upstream failure.
		return nil, &ErrProviderUnavailable{Err: err}
	}
	return resp, err
}

func (t *TimeoutProvider) ModelID() string {
	return t.inner.ModelID()
}
