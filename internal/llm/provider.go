package llm

import (
	"context"
)

// Provider is the Model Invocation Adapter: one prompt in, the model's
// raw text out.
type Provider interface {
	// Generate sends a prompt to the model and returns its response.
	// When the request's Schema field is set, the provider asks for native
	// structured output and validates the result against that schema.
	// Providers never retry; failures surface as the typed errors in errors.go.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes what to send to the model.
type Request struct {
	// System is the system prompt. Sets the model's role and constraints.
	System string

	// Messages is the conversation history. Question generation and
	// feedback both send a single user message.
	Messages []Message

	// Schema is the JSON Schema the response must conform to.
	// When nil, the response Content is whatever text the model produced.
	Schema *Schema

	// MaxTokens is the maximum number of tokens in the response.
	MaxTokens int

	// Temperature controls randomness. Range: 0.0 - 1.0.
	Temperature float64
}

// Message represents a single message in the conversation.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema defines the JSON structure expected from the model.
type Schema struct {
	// Name identifies this schema (used as the schema name for OpenAI and
	// as the compiled-schema cache key). Kebab-case, e.g. "fermi-question".
	Name string

	// Description is a human-readable description of what this schema
	// represents.
	Description string

	// Definition is the JSON Schema definition as a map.
	Definition map[string]any
}

// Response holds the model's output.
type Response struct {
	// Content is the generated text exactly as the model returned it.
	// It may carry code fences or prose around a JSON object; callers that
	// expect JSON are responsible for sanitizing it.
	Content string

	// Usage reports token consumption for this request.
	Usage Usage

	// Model is the actual model that served the request.
	Model string

	// StopReason is StopEnd for every returned response; truncation is
	// reported as *ErrMaxTokensExceeded instead.
	StopReason string
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
