package problemgen

import (
	"encoding/json"
	"fmt"
	"strings"
)

const systemPrompt = `You write Fermi estimation questions: questions whose answer is a single number that a curious person can reason their way toward.

Respond with exactly one JSON object and nothing else, in this shape:

{
  "question": "How many times does a human heart beat over an average lifetime?",
  "answer": 2628000000,
  "context": "Start with roughly one beat per second at rest, so about 60 a minute. An hour is 60 x 60 = 3,600 beats and a day is 3,600 x 24 = 86,400. A year comes to 86,400 x 365 = 31,536,000, and an 83-year life gives 31,536,000 x 83, about 2,628,000,000 beats."
}

Rules:
- "answer" is a plain JSON number greater than zero: no units, quotes, ranges or thousands separators.
- Base the answer on published statistics or established scientific figures. Mention the source in the context when you can.
- "context" walks through the estimate in intuitive steps using everyday reference points, the way a helpful friend would explain it. Do not just list calculations.
- Keep the figures in the context consistent with the answer.
- No markdown, no code fences, no text before or after the JSON object.
- Never ask a question that repeats or closely paraphrases one from the previously asked list.`

// Prompt is the composed model input for one generation attempt.
type Prompt struct {
	System string
	User   string
}

// Compose builds the prompt for category, excluding the questions in
// history. The most recent cfg.ExclusionLimit entries are listed
// (all of them when the limit is 0).
func Compose(category Category, history []string, cfg Config) Prompt {
	var b strings.Builder

	fmt.Fprintf(&b, "Category: %s\n", category)
	fmt.Fprintf(&b, "Write one question about %s.\n", category)

	b.WriteString("\nPreviously asked questions (JSON array):\n")
	b.WriteString(buildExclusions(history, cfg.ExclusionLimit))

	return Prompt{System: systemPrompt, User: b.String()}
}

// buildExclusions serializes prior questions as a JSON array, newest kept
// when limit trims the list. Blank entries are skipped.
func buildExclusions(history []string, limit int) string {
	list := make([]string, 0, len(history))
	for _, q := range history {
		if strings.TrimSpace(q) != "" {
			list = append(list, q)
		}
	}
	if limit > 0 && len(list) > limit {
		list = list[len(list)-limit:]
	}

	out, err := json.Marshal(list)
	if err != nil {
		// []string always marshals.
		return "[]"
	}
	return string(out)
}
