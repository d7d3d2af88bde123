// Package leaderboard records completed round scores and ranks them.
package leaderboard

import (
	"context"
	"sort"
	"sync"
	"time"
)

// DefaultTop is the number of entries returned when no limit is given.
const DefaultTop = 10

// Entry is one submitted round score.
type Entry struct {
	ID             string    `json:"id,omitempty"`
	UserID         string    `json:"userId"`
	Username       string    `json:"username"`
	Score          float64   `json:"score"`
	TotalQuestions int       `json:"totalQuestions,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Board accepts submissions and reports the top scores.
type Board interface {
	Submit(ctx context.Context, e Entry) error
	Top(ctx context.Context, n int) ([]Entry, error)
}

// Rank orders entries by score descending, earlier submissions first on
// ties, and keeps at most n. A non-positive n falls back to DefaultTop.
// The input slice is not modified.
func Rank(entries []Entry, n int) []Entry {
	if n <= 0 {
		n = DefaultTop
	}
	out := make([]Entry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Memory is an in-process Board. Safe for concurrent use.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemory creates an empty board.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Submit(_ context.Context, e Entry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *Memory) Top(_ context.Context, n int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Rank(m.entries, n), nil
}
