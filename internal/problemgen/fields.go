package problemgen

import (
	"math"
	"strings"

	"github.com/tidwall/gjson"
)

// requiredFields are checked for presence before any type checks.
var requiredFields = []string{"question", "answer", "context"}

// ValidateQuestion checks a sanitized payload and converts it to a
// Question. Checks run in order and the first violation is returned:
// JSON object, required fields present, numeric answer, non-empty
// question, non-empty context.
func ValidateQuestion(payload string) (*Question, error) {
	if !gjson.Valid(payload) {
		return nil, &GenerationError{Kind: KindMalformedResponse, Message: "response is not valid JSON"}
	}
	doc := gjson.Parse(payload)
	if !doc.IsObject() {
		return nil, &GenerationError{Kind: KindMalformedResponse, Message: "response is not a JSON object"}
	}

	fields := doc.Map()
	for _, name := range requiredFields {
		v, ok := fields[name]
		if !ok || v.Type == gjson.Null {
			return nil, &GenerationError{Kind: KindMissingField, Field: name, Message: "field is missing"}
		}
	}

	answer := fields["answer"]
	if answer.Type != gjson.Number {
		return nil, &GenerationError{Kind: KindInvalidAnswerType, Field: "answer", Message: "answer is not a number"}
	}
	n := answer.Float()
	if math.IsNaN(n) || math.IsInf(n, 0) || n <= 0 {
		return nil, &GenerationError{Kind: KindInvalidAnswerType, Field: "answer", Message: "answer must be a finite number greater than zero"}
	}

	question := fields["question"]
	if question.Type != gjson.String || strings.TrimSpace(question.Str) == "" {
		return nil, &GenerationError{Kind: KindEmptyQuestion, Field: "question", Message: "question is empty"}
	}

	explanation := fields["context"]
	if explanation.Type != gjson.String || strings.TrimSpace(explanation.Str) == "" {
		return nil, &GenerationError{Kind: KindMissingField, Field: "context", Message: "context is empty"}
	}

	return &Question{
		Question: strings.TrimSpace(question.Str),
		Answer:   n,
		Context:  strings.TrimSpace(explanation.Str),
	}, nil
}
