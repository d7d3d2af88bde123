package problemgen

import "time"

// Config controls prompt composition, validation and the retry policy.
type Config struct {
	// Categories is the rotation used by CategoryFor.
	Categories []Category

	// MaxTokens is the token budget for the model response.
	MaxTokens int

	// Temperature controls model output randomness (0.0-1.0).
	Temperature float64

	// ExclusionLimit caps how many of the most recent prior questions
	// are listed in the prompt. 0 lists all of them.
	ExclusionLimit int

	// StructuredOutput asks the provider for schema-constrained JSON.
	// Responses still go through the sanitizer and validator.
	StructuredOutput bool

	// SimilarityThreshold rejects a candidate whose normalized edit
	// similarity to any prior question is at or above this value.
	SimilarityThreshold float64

	// MatchSubstrings also rejects candidates that contain, or are
	// contained by, a prior question.
	MatchSubstrings bool

	// MaxAttempts is the total number of generation attempts per request.
	MaxAttempts int

	// RateLimitBackoff, UpstreamBackoff and LocalBackoff are multiplied
	// by the attempt number to get the wait before the next attempt.
	RateLimitBackoff time.Duration
	UpstreamBackoff  time.Duration
	LocalBackoff     time.Duration

	// Jitter spreads each wait by up to this fraction in either direction.
	Jitter float64
}

// DefaultConfig returns the standard generation settings.
func DefaultConfig() Config {
	return Config{
		Categories:          DefaultCategories,
		MaxTokens:           1024,
		Temperature:         0.3,
		SimilarityThreshold: 0.8,
		MaxAttempts:         3,
		RateLimitBackoff:    2 * time.Second,
		UpstreamBackoff:     1 * time.Second,
	}
}
