package problemgen

import "github.com/ssbdragonalt/Estimify/internal/llm"

// QuestionSchema is requested when structured output is enabled.
var QuestionSchema = &llm.Schema{
	Name:        "fermi-question",
	Description: "A single Fermi estimation question with a numeric answer and the reasoning behind it",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"question": map[string]any{
				"type":        "string",
				"description": "The estimation question shown to the player",
			},
			"answer": map[string]any{
				"type":        "number",
				"description": "The best estimate as a plain number, no units or separators",
			},
			"context": map[string]any{
				"type":        "string",
				"description": "A friendly step-by-step walk through the estimate, citing sources where possible",
			},
		},
		"required":             []any{"question", "answer", "context"},
		"additionalProperties": false,
	},
}
