package problemgen

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/agext/levenshtein"
)

// DuplicateDetector rejects candidates too close to a prior question.
type DuplicateDetector struct {
	// Threshold is the similarity at or above which a candidate is a
	// duplicate. 0 means 0.8.
	Threshold float64

	// MatchSubstrings additionally treats case-insensitive containment
	// in either direction as a duplicate.
	MatchSubstrings bool
}

// NewDuplicateDetector builds a detector from cfg.
func NewDuplicateDetector(cfg Config) DuplicateDetector {
	return DuplicateDetector{Threshold: cfg.SimilarityThreshold, MatchSubstrings: cfg.MatchSubstrings}
}

// Similarity is 1 - levenshtein(a, b) / max(len(a), len(b)) over the
// lower-cased strings, measured in runes. Two empty strings are identical.
func Similarity(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}
	d := levenshtein.Distance(a, b, nil)
	return float64(longest-d) / float64(longest)
}

// Check returns a DuplicateQuestion error naming the first prior question
// that candidate matches. Blank prior entries are ignored.
func (d DuplicateDetector) Check(candidate string, prior []string) error {
	threshold := d.Threshold
	if threshold <= 0 {
		threshold = 0.8
	}
	lc := strings.ToLower(strings.TrimSpace(candidate))

	for _, p := range prior {
		lp := strings.ToLower(strings.TrimSpace(p))
		if lp == "" {
			continue
		}
		if sim := Similarity(lc, lp); sim >= threshold {
			return &GenerationError{
				Kind:    KindDuplicateQuestion,
				Message: fmt.Sprintf("%.2f similar to %q", sim, p),
			}
		}
		if d.MatchSubstrings && (strings.Contains(lc, lp) || strings.Contains(lp, lc)) {
			return &GenerationError{
				Kind:    KindDuplicateQuestion,
				Message: fmt.Sprintf("overlaps %q", p),
			}
		}
	}
	return nil
}
