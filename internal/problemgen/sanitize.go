package problemgen

import "strings"

var fenceStripper = strings.NewReplacer("```json", "", "```JSON", "", "```", "")

// Sanitize reduces raw model text to the span from the first '{' to the
// last '}' after removing code fences. Text with no such span is a
// MalformedResponse; no further repair is attempted.
func Sanitize(raw string) (string, error) {
	s := strings.TrimSpace(fenceStripper.Replace(raw))

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return "", &GenerationError{
			Kind:    KindMalformedResponse,
			Message: "no JSON object in response",
		}
	}
	return s[start : end+1], nil
}
