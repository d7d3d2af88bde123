package history

import (
	"context"
	"sync"
)

// Memory is an in-process Store. Safe for concurrent use.
type Memory struct {
	mu    sync.Mutex
	limit int
	users map[string][]string
	total map[string]int
}

var _ Counter = (*Memory)(nil)

// NewMemory creates an empty store retaining limit entries per user.
func NewMemory(limit int) *Memory {
	if limit <= 0 {
		limit = DefaultCap
	}
	return &Memory{limit: limit, users: make(map[string][]string), total: make(map[string]int)}
}

func (m *Memory) Questions(_ context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.users[userID]
	out := make([]string, len(list))
	copy(out, list)
	return out, nil
}

func (m *Memory) Append(_ context.Context, userID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := append(m.users[userID], text)
	if len(list) > m.limit {
		// Copy so the evicted prefix can be collected.
		list = append([]string(nil), Bound(list, m.limit)...)
	}
	m.users[userID] = list
	m.total[userID]++
	return nil
}

// Count reports how many questions were ever appended for userID.
func (m *Memory) Count(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total[userID], nil
}
