package problemgen

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCategoryFor_Rotates(t *testing.T) {
	seen := make(map[Category]bool)
	for n := range 8 {
		got := CategoryFor(n, DefaultCategories)
		if got != DefaultCategories[n] {
			t.Errorf("CategoryFor(%d) = %q, want %q", n, got, DefaultCategories[n])
		}
		if seen[got] {
			t.Errorf("category %q repeated within one cycle", got)
		}
		seen[got] = true
	}
	if got := CategoryFor(8, DefaultCategories); got != CategoryHumanBiology {
		t.Errorf("CategoryFor(8) = %q, want wrap to %q", got, CategoryHumanBiology)
	}
	if got := CategoryFor(101, nil); got != CategoryNature {
		t.Errorf("CategoryFor(101, nil) = %q, want %q", got, CategoryNature)
	}
}

func TestCompose(t *testing.T) {
	history := []string{"How many piano tuners are in Chicago?", "  ", "How many golf balls fit in a bus?"}
	p := Compose(CategorySpace, history, DefaultConfig())

	if !strings.Contains(p.System, `"answer": 2628000000`) {
		t.Error("system prompt should carry the worked example")
	}
	if !strings.Contains(p.User, "Category: space") {
		t.Errorf("user message missing category:\n%s", p.User)
	}

	idx := strings.Index(p.User, "[")
	var listed []string
	if err := json.Unmarshal([]byte(p.User[idx:]), &listed); err != nil {
		t.Fatalf("exclusion list is not a JSON array: %v", err)
	}
	want := []string{"How many piano tuners are in Chicago?", "How many golf balls fit in a bus?"}
	if diff := cmp.Diff(want, listed); diff != "" {
		t.Errorf("exclusions mismatch (-want +got):\n%s", diff)
	}
}

func TestCompose_EmptyHistoryAndLimit(t *testing.T) {
	p := Compose(CategoryTime, nil, DefaultConfig())
	if !strings.HasSuffix(p.User, "[]") {
		t.Errorf("expected empty JSON array, got:\n%s", p.User)
	}

	cfg := DefaultConfig()
	cfg.ExclusionLimit = 2
	p = Compose(CategoryTime, []string{"a", "b", "c"}, cfg)
	if !strings.HasSuffix(p.User, `["b","c"]`) {
		t.Errorf("expected most recent two, got:\n%s", p.User)
	}
}

func TestCompose_IsPure(t *testing.T) {
	h := []string{"x", "y"}
	a := Compose(CategoryNature, h, DefaultConfig())
	b := Compose(CategoryNature, h, DefaultConfig())
	if a != b {
		t.Error("Compose should be deterministic")
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"bare", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around", "Here you go: {\"a\":{\"b\":2}} hope that helps", `{"a":{"b":2}}`},
		{"whitespace", "  \n {\"a\":1} \n", `{"a":1}`},
		{"question fence", "```json\n{\"question\":\"Q\",\"answer\":5,\"context\":\"C\"}\n```", `{"question":"Q","answer":5,"context":"C"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Sanitize(tt.raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Sanitize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSanitize_Malformed(t *testing.T) {
	for _, raw := range []string{"", "no json here", "} backwards {", "{ unterminated", "only close }"} {
		_, err := Sanitize(raw)
		if KindOf(err) != KindMalformedResponse {
			t.Errorf("Sanitize(%q) error = %v, want malformed_response", raw, err)
		}
	}
}

func TestValidateQuestion(t *testing.T) {
	q, err := ValidateQuestion(`{"question":" How many stars are in the Milky Way? ","answer":1e11,"context":"Roughly 100 billion."}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := &Question{Question: "How many stars are in the Milky Way?", Answer: 1e11, Context: "Roughly 100 billion."}
	if diff := cmp.Diff(want, q); diff != "" {
		t.Errorf("question mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateQuestion_Failures(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		kind    ErrorKind
		field   string
	}{
		{"not json", `{"question": }`, KindMalformedResponse, ""},
		{"array", `[1,2]`, KindMalformedResponse, ""},
		{"missing question", `{"answer":1,"context":"c"}`, KindMissingField, "question"},
		{"missing answer", `{"question":"q","context":"c"}`, KindMissingField, "answer"},
		{"null context", `{"question":"q","answer":1,"context":null}`, KindMissingField, "context"},
		{"string answer", `{"question":"q","answer":"42","context":"c"}`, KindInvalidAnswerType, "answer"},
		{"zero answer", `{"question":"q","answer":0,"context":"c"}`, KindInvalidAnswerType, "answer"},
		{"negative answer", `{"question":"q","answer":-3,"context":"c"}`, KindInvalidAnswerType, "answer"},
		{"overflow answer", `{"question":"q","answer":1e400,"context":"c"}`, KindInvalidAnswerType, "answer"},
		{"blank question", `{"question":"   ","answer":1,"context":"c"}`, KindEmptyQuestion, "question"},
		{"blank context", `{"question":"q","answer":1,"context":""}`, KindMissingField, "context"},
		// Presence is checked before types.
		{"order", `{"question":"","answer":"x"}`, KindMissingField, "context"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateQuestion(tt.payload)
			var ge *GenerationError
			if !errors.As(err, &ge) {
				t.Fatalf("expected GenerationError, got %T (%v)", err, err)
			}
			if ge.Kind != tt.kind || ge.Field != tt.field {
				t.Errorf("got kind=%s field=%q, want kind=%s field=%q", ge.Kind, ge.Field, tt.kind, tt.field)
			}
		})
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 1},
		{"abc", "", 0},
		{"Hello", "hello", 1},
		{"abcdefghij", "abcdefghXY", 0.8},
		{"kitten", "sitting", 4.0 / 7.0},
	}
	for _, tt := range tests {
		got := Similarity(tt.a, tt.b)
		if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("Similarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestDuplicateDetector(t *testing.T) {
	d := DuplicateDetector{Threshold: 0.8}
	prior := []string{"", "abcdefghij"}

	if err := d.Check("ABCDEFGHXY", prior); KindOf(err) != KindDuplicateQuestion {
		t.Errorf("similarity 0.8 should be rejected, got %v", err)
	}
	if err := d.Check("abcdefgXYZ", prior); err != nil {
		t.Errorf("similarity 0.7 should pass, got %v", err)
	}
	if err := d.Check("anything", nil); err != nil {
		t.Errorf("empty history should pass, got %v", err)
	}
}

func TestDuplicateDetector_Rephrasing(t *testing.T) {
	d := NewDuplicateDetector(DefaultConfig())
	prior := []string{"How many trees exist on Earth?"}

	if err := d.Check("How many trees are on Earth?", prior); KindOf(err) != KindDuplicateQuestion {
		t.Errorf("rephrased question should be rejected, got %v", err)
	}
	if err := d.Check("How many stars are in the Milky Way?", prior); err != nil {
		t.Errorf("unrelated question should pass, got %v", err)
	}
}

func TestDuplicateDetector_Substrings(t *testing.T) {
	prior := []string{"How many trees are on Earth?"}
	candidate := "Roughly speaking, how many trees are on earth? Give your best guess in total."

	if err := (DuplicateDetector{}).Check(candidate, prior); err != nil {
		t.Errorf("containment alone should pass by default, got %v", err)
	}
	if err := (DuplicateDetector{MatchSubstrings: true}).Check(candidate, prior); KindOf(err) != KindDuplicateQuestion {
		t.Errorf("containment should be rejected when enabled, got %v", err)
	}
}
