package llm

import (
	"fmt"
	"os"
	"time"
)

// Config selects a provider and carries every provider's settings.
type Config struct {
	// Provider is one of "anthropic", "openai", "gemini", "openrouter",
	// or "mock" for the offline question set.
	Provider string

	Anthropic  AnthropicConfig
	OpenAI     OpenAIConfig
	Gemini     GeminiConfig
	OpenRouter OpenRouterConfig

	// Timeout bounds a single model call. Zero disables the bound.
	Timeout time.Duration
}

// AnthropicConfig holds Anthropic-specific configuration.
type AnthropicConfig struct {
	APIKey string
	Model  string // Default: "claude-haiku"
}

// OpenAIConfig holds OpenAI-specific configuration.
type OpenAIConfig struct {
	APIKey  string
	Model   string // Default: "gpt-4o-mini"
	BaseURL string // Optional. Override for OpenAI-compatible APIs.
}

// GeminiConfig holds Gemini-specific configuration.
type GeminiConfig struct {
	APIKey string
	Model  string // Default: "gemini-flash"
}

// OpenRouterConfig holds OpenRouter-specific configuration.
type OpenRouterConfig struct {
	APIKey  string
	Model   string // Default: "google/gemini-2.0-flash-exp"
	BaseURL string // Default: "https://openrouter.ai/api/v1"
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider: "anthropic",
		Anthropic: AnthropicConfig{
			Model: "claude-haiku",
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-4o-mini",
		},
		Gemini: GeminiConfig{
			Model: "gemini-flash",
		},
		OpenRouter: OpenRouterConfig{
			Model: "google/gemini-2.0-flash-exp",
		},
		Timeout: 30 * time.Second,
	}
}

// ConfigFromEnv returns DefaultConfig with ESTIMIFY_* variables applied.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	ApplyEnv(&cfg)
	return cfg
}

// credential ties one provider's settings to its environment variables:
// ESTIMIFY_<env>_API_KEY, _MODEL and _BASE_URL, plus the vendor's own
// <env>_API_KEY used for discovery.
type credential struct {
	provider string
	env      string
	key      *string
	model    *string
	baseURL  *string // nil when the provider has no endpoint override
}

// credentials lists the providers in discovery order.
func (c *Config) credentials() []credential {
	return []credential{
		{"gemini", "GEMINI", &c.Gemini.APIKey, &c.Gemini.Model, nil},
		{"openai", "OPENAI", &c.OpenAI.APIKey, &c.OpenAI.Model, &c.OpenAI.BaseURL},
		{"anthropic", "ANTHROPIC", &c.Anthropic.APIKey, &c.Anthropic.Model, nil},
		{"openrouter", "OPENROUTER", &c.OpenRouter.APIKey, &c.OpenRouter.Model, &c.OpenRouter.BaseURL},
	}
}

// ApplyEnv overlays ESTIMIFY_* environment variables onto cfg.
func ApplyEnv(cfg *Config) {
	if p := os.Getenv("ESTIMIFY_LLM_PROVIDER"); p != "" {
		cfg.Provider = p
	}
	for _, cr := range cfg.credentials() {
		setFromEnv(cr.key, "ESTIMIFY_"+cr.env+"_API_KEY")
		setFromEnv(cr.model, "ESTIMIFY_"+cr.env+"_MODEL")
		if cr.baseURL != nil {
			setFromEnv(cr.baseURL, "ESTIMIFY_"+cr.env+"_BASE_URL")
		}
	}
}

func setFromEnv(dst *string, name string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

// DiscoverConfig picks the first provider (Gemini, OpenAI, Anthropic,
// OpenRouter) whose vendor API key variable is set.
func DiscoverConfig() (Config, bool) {
	cfg := DefaultConfig()
	for _, cr := range cfg.credentials() {
		if k := os.Getenv(cr.env + "_API_KEY"); k != "" {
			cfg.Provider = cr.provider
			*cr.key = k
			return cfg, true
		}
	}
	return Config{}, false
}

// Validate checks that the selected provider is known and has a key.
func (c Config) Validate() error {
	if c.Provider == "mock" {
		return nil
	}
	for _, cr := range c.credentials() {
		if cr.provider != c.Provider {
			continue
		}
		if *cr.key == "" {
			return fmt.Errorf("ESTIMIFY_%s_API_KEY is required for the %s provider", cr.env, cr.provider)
		}
		return nil
	}
	return fmt.Errorf("unknown LLM provider: %q", c.Provider)
}
