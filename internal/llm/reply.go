package llm

import (
	"net/http"
	"time"
)

// Normalized stop reasons. Truncated output never reaches the caller, so
// a successful Response always carries StopEnd.
const (
	StopEnd       = "end"
	StopMaxTokens = "max_tokens"
)

// reply is the provider-neutral part of an SDK response.
type reply struct {
	text      string
	truncated bool
	usage     Usage
	model     string
}

// finish applies the checks every adapter shares: a truncated reply is an
// error and structured output must match the requested schema.
func (r reply) finish(req Request) (*Response, error) {
	if r.truncated {
		return nil, &ErrMaxTokensExceeded{Content: r.text}
	}
	if err := req.Schema.check(r.text); err != nil {
		return nil, err
	}
	if r.usage.TotalTokens == 0 {
		r.usage.TotalTokens = r.usage.InputTokens + r.usage.OutputTokens
	}
	return &Response{
		Content:    r.text,
		Usage:      r.usage,
		Model:      r.model,
		StopReason: StopEnd,
	}, nil
}

// statusError maps an HTTP status reported by an SDK onto the typed
// errors. Rejected credentials cannot be fixed by retrying.
func statusError(provider string, status int, retryAfter time.Duration, err error) error {
	switch status {
	case http.StatusTooManyRequests:
		return &ErrRateLimit{RetryAfter: retryAfter, Err: err}
	case http.StatusUnauthorized, http.StatusForbidden:
		return &ErrConfiguration{Provider: provider, Err: err}
	default:
		return &ErrProviderUnavailable{Err: err}
	}
}

// resolveModel maps a short alias to a model ID. Unknown names pass
// through so full model IDs work too.
func resolveModel(name string, aliases map[string]string) string {
	if id, ok := aliases[name]; ok {
		return id
	}
	return name
}
