package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ssbdragonalt/Estimify/internal/store"
)

// NewProvider creates a Provider from configuration, wrapped with the
// timeout and event-logging middleware. Construction failures are
// returned as *ErrConfiguration.
func NewProvider(ctx context.Context, cfg Config, eventRepo store.EventRepo, logger *zap.Logger) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &ErrConfiguration{Provider: cfg.Provider, Err: err}
	}

	var base Provider
	var err error

	switch cfg.Provider {
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "openrouter":
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "mock":
		base = NewOfflineProvider()
	default:
		return nil, &ErrConfiguration{Provider: cfg.Provider, Err: fmt.Errorf("unknown LLM provider: %q", cfg.Provider)}
	}
	if err != nil {
		return nil, &ErrConfiguration{Provider: cfg.Provider, Err: fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)}
	}

	// caller -> logging -> timeout -> base
	return WithLogging(WithTimeout(base, cfg.Timeout), eventRepo, logger), nil
}

// NewLazy defers NewProvider until the first request, so commands that
// never reach the model do not need credentials.
func NewLazy(cfg Config, eventRepo store.EventRepo, logger *zap.Logger) *LazyProvider {
	return NewLazyProvider(cfg.Provider, func(ctx context.Context) (Provider, error) {
		return NewProvider(ctx, cfg, eventRepo, logger)
	})
}
