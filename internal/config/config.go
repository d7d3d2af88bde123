// Package config loads Estimify settings from a YAML file, a .env file and
// ESTIMIFY_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ssbdragonalt/Estimify/internal/feedback"
	"github.com/ssbdragonalt/Estimify/internal/history"
	"github.com/ssbdragonalt/Estimify/internal/leaderboard"
	"github.com/ssbdragonalt/Estimify/internal/llm"
	"github.com/ssbdragonalt/Estimify/internal/logging"
	"github.com/ssbdragonalt/Estimify/internal/problemgen"
	"github.com/ssbdragonalt/Estimify/internal/round"
)

// Config is the full application configuration.
type Config struct {
	LLM         LLMConfig         `yaml:"llm"`
	Generation  GenerationConfig  `yaml:"generation"`
	Round       RoundConfig       `yaml:"round"`
	Feedback    FeedbackConfig    `yaml:"feedback"`
	History     HistoryConfig     `yaml:"history"`
	Leaderboard LeaderboardConfig `yaml:"leaderboard"`
	Database    DatabaseConfig    `yaml:"database"`
	Server      ServerConfig      `yaml:"server"`
	Logging     logging.Config    `yaml:"logging"`
}

// LLMConfig selects the model provider. API keys come from the
// environment only.
type LLMConfig struct {
	Provider string        `yaml:"provider"`
	Model    string        `yaml:"model"`
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
}

// GenerationConfig tunes question generation.
type GenerationConfig struct {
	Categories          []string      `yaml:"categories"`
	MaxTokens           int           `yaml:"max_tokens"`
	Temperature         float64       `yaml:"temperature"`
	ExclusionLimit      int           `yaml:"exclusion_limit"`
	StructuredOutput    bool          `yaml:"structured_output"`
	SimilarityThreshold float64       `yaml:"similarity_threshold"`
	MatchSubstrings     bool          `yaml:"match_substrings"`
	MaxAttempts         int           `yaml:"max_attempts"`
	RateLimitBackoff    time.Duration `yaml:"rate_limit_backoff"`
	UpstreamBackoff     time.Duration `yaml:"upstream_backoff"`
	LocalBackoff        time.Duration `yaml:"local_backoff"`
	Jitter              float64       `yaml:"jitter"`
}

type RoundConfig struct {
	Size   int           `yaml:"size"`
	Pacing time.Duration `yaml:"pacing"`
}

type FeedbackConfig struct {
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// HistoryConfig points at a remote history service when RemoteURL is set.
type HistoryConfig struct {
	Cap       int    `yaml:"cap"`
	RemoteURL string `yaml:"remote_url"`
}

// LeaderboardConfig points at a remote leaderboard when RemoteURL is set.
type LeaderboardConfig struct {
	RemoteURL string `yaml:"remote_url"`
	TopN      int    `yaml:"top_n"`
}

// DatabaseConfig selects local SQLite (Path) or PostgreSQL (URL).
type DatabaseConfig struct {
	Path string `yaml:"path"`
	URL  string `yaml:"url"`
}

type ServerConfig struct {
	Addr             string        `yaml:"addr"`
	MetricsNamespace string        `yaml:"metrics_namespace"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	gen := problemgen.DefaultConfig()
	rnd := round.DefaultConfig()
	fb := feedback.DefaultConfig()

	categories := make([]string, len(gen.Categories))
	for i, c := range gen.Categories {
		categories[i] = string(c)
	}

	return &Config{
		LLM: LLMConfig{Timeout: llm.DefaultConfig().Timeout},
		Generation: GenerationConfig{
			Categories:          categories,
			MaxTokens:           gen.MaxTokens,
			Temperature:         gen.Temperature,
			SimilarityThreshold: gen.SimilarityThreshold,
			MaxAttempts:         gen.MaxAttempts,
			RateLimitBackoff:    gen.RateLimitBackoff,
			UpstreamBackoff:     gen.UpstreamBackoff,
			LocalBackoff:        gen.LocalBackoff,
		},
		Round:       RoundConfig{Size: rnd.Size, Pacing: rnd.Pacing},
		Feedback:    FeedbackConfig{MaxTokens: fb.MaxTokens, Temperature: fb.Temperature},
		History:     HistoryConfig{Cap: history.DefaultCap},
		Leaderboard: LeaderboardConfig{TopN: leaderboard.DefaultTop},
		Server: ServerConfig{
			Addr:             ":8080",
			MetricsNamespace: "estimify",
			ShutdownTimeout:  10 * time.Second,
		},
		Logging: logging.DefaultConfig(),
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/estimify/config.yaml, falling back
// to ~/.config.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "estimify", "config.yaml")
}

// Load reads the YAML file at path over the defaults, then loads envFiles
// (default ".env") into the process environment and applies ESTIMIFY_*
// overrides. A missing config or env file is not an error.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// godotenv never overrides variables that are already set.
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("ESTIMIFY_DB"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("ESTIMIFY_DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("ESTIMIFY_HISTORY_URL"); v != "" {
		c.History.RemoteURL = v
	}
	if v := os.Getenv("ESTIMIFY_LEADERBOARD_URL"); v != "" {
		c.Leaderboard.RemoteURL = v
	}
	if v := os.Getenv("ESTIMIFY_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("ESTIMIFY_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("ESTIMIFY_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("ESTIMIFY_ROUND_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ESTIMIFY_ROUND_SIZE: %w", err)
		}
		c.Round.Size = n
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	g := c.Generation
	switch {
	case len(g.Categories) == 0:
		return fmt.Errorf("generation.categories must not be empty")
	case g.MaxTokens <= 0:
		return fmt.Errorf("generation.max_tokens must be positive, got %d", g.MaxTokens)
	case g.Temperature < 0 || g.Temperature > 1:
		return fmt.Errorf("generation.temperature must be within [0, 1], got %v", g.Temperature)
	case g.SimilarityThreshold <= 0 || g.SimilarityThreshold > 1:
		return fmt.Errorf("generation.similarity_threshold must be within (0, 1], got %v", g.SimilarityThreshold)
	case g.MaxAttempts < 1:
		return fmt.Errorf("generation.max_attempts must be at least 1, got %d", g.MaxAttempts)
	case g.RateLimitBackoff < 0 || g.UpstreamBackoff < 0 || g.LocalBackoff < 0:
		return fmt.Errorf("generation backoffs must not be negative")
	case g.Jitter < 0 || g.Jitter > 1:
		return fmt.Errorf("generation.jitter must be within [0, 1], got %v", g.Jitter)
	case c.Round.Size <= 0:
		return fmt.Errorf("round.size must be positive, got %d", c.Round.Size)
	case c.Round.Pacing < 0:
		return fmt.Errorf("round.pacing must not be negative")
	case c.History.Cap <= 0:
		return fmt.Errorf("history.cap must be positive, got %d", c.History.Cap)
	case c.Leaderboard.TopN <= 0:
		return fmt.Errorf("leaderboard.top_n must be positive, got %d", c.Leaderboard.TopN)
	}
	for i, cat := range g.Categories {
		if cat == "" {
			return fmt.Errorf("generation.categories[%d] is empty", i)
		}
	}
	return c.Logging.Validate()
}

// LLMProvider builds the provider configuration: file settings first, then
// ESTIMIFY_* variables. With no provider named anywhere, the first
// standard API key found in the environment picks one.
func (c *Config) LLMProvider() llm.Config {
	cfg := llm.DefaultConfig()
	if c.LLM.Provider == "" && os.Getenv("ESTIMIFY_LLM_PROVIDER") == "" {
		if discovered, ok := llm.DiscoverConfig(); ok {
			cfg = discovered
		}
	}
	if c.LLM.Provider != "" {
		cfg.Provider = c.LLM.Provider
	}
	if c.LLM.Timeout > 0 {
		cfg.Timeout = c.LLM.Timeout
	}
	if c.LLM.Model != "" {
		switch cfg.Provider {
		case "anthropic":
			cfg.Anthropic.Model = c.LLM.Model
		case "openai":
			cfg.OpenAI.Model = c.LLM.Model
		case "gemini":
			cfg.Gemini.Model = c.LLM.Model
		case "openrouter":
			cfg.OpenRouter.Model = c.LLM.Model
		}
	}
	if c.LLM.BaseURL != "" {
		cfg.OpenAI.BaseURL = c.LLM.BaseURL
		cfg.OpenRouter.BaseURL = c.LLM.BaseURL
	}
	llm.ApplyEnv(&cfg)
	return cfg
}

// ProblemGen converts the generation section.
func (c *Config) ProblemGen() problemgen.Config {
	g := c.Generation
	categories := make([]problemgen.Category, len(g.Categories))
	for i, s := range g.Categories {
		categories[i] = problemgen.Category(s)
	}
	return problemgen.Config{
		Categories:          categories,
		MaxTokens:           g.MaxTokens,
		Temperature:         g.Temperature,
		ExclusionLimit:      g.ExclusionLimit,
		StructuredOutput:    g.StructuredOutput,
		SimilarityThreshold: g.SimilarityThreshold,
		MatchSubstrings:     g.MatchSubstrings,
		MaxAttempts:         g.MaxAttempts,
		RateLimitBackoff:    g.RateLimitBackoff,
		UpstreamBackoff:     g.UpstreamBackoff,
		LocalBackoff:        g.LocalBackoff,
		Jitter:              g.Jitter,
	}
}

// RoundSettings converts the round section.
func (c *Config) RoundSettings() round.Config {
	return round.Config{Size: c.Round.Size, Pacing: c.Round.Pacing}
}

// FeedbackSettings converts the feedback section.
func (c *Config) FeedbackSettings() feedback.Config {
	return feedback.Config{MaxTokens: c.Feedback.MaxTokens, Temperature: c.Feedback.Temperature}
}
