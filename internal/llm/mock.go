package llm

import (
	"context"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
)

// MockResponse is one scripted reply of a MockProvider.
type MockResponse struct {
	Content string
	Usage   Usage
	Err     error
}

// MockProvider replays scripted responses in order and records every
// request. When the script runs out it asks OnEmpty, or fails with
// ErrProviderUnavailable when OnEmpty is nil.
type MockProvider struct {
	// OnEmpty answers requests after the script is exhausted.
	OnEmpty func(ctx context.Context, req Request) MockResponse

	mu     sync.Mutex
	script []MockResponse
	Calls  []Request
}

func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{script: responses}
}

// NewOfflineProvider returns a mock that answers from a built-in set of
// questions and a fixed feedback note, so a round can be played without
// credentials.
func NewOfflineProvider() *MockProvider {
	return &MockProvider{OnEmpty: offlineReply}
}

func (m *MockProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, req)
	var next MockResponse
	var ok bool
	if len(m.script) > 0 {
		next, m.script, ok = m.script[0], m.script[1:], true
	}
	onEmpty := m.OnEmpty
	m.mu.Unlock()

	switch {
	case ok:
	case onEmpty != nil:
		next = onEmpty(ctx, req)
	default:
		return nil, &ErrProviderUnavailable{}
	}
	if next.Err != nil {
		return nil, next.Err
	}
	return &Response{Content: next.Content, Usage: next.Usage, Model: "mock", StopReason: StopEnd}, nil
}

func (m *MockProvider) ModelID() string { return "mock" }

// AddResponse appends to the script.
func (m *MockProvider) AddResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, resp)
}

func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// LastRequest returns the most recent request, or false if none were made.
func (m *MockProvider) LastRequest() (Request, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return Request{}, false
	}
	return m.Calls[len(m.Calls)-1], true
}

var offlineQuestions = []string{
	`{"question":"How many times does a human heart beat in a lifetime?","answer":2628000000,"context":"About 60 beats a minute is 86,400 a day, 31.5 million a year, and roughly 2.6 billion over 83 years."}`,
	`{"question":"How many showers does a person take in a lifetime?","answer":28000,"context":"Close to one shower a day for about 78 adult and teenage years gives roughly 28,000."}`,
	`{"question":"How many lightning strikes hit the Earth each year?","answer":1400000000,"context":"Satellites count about 44 flashes per second worldwide, which is around 1.4 billion a year."}`,
	`{"question":"How many smartphones are in use worldwide?","answer":6900000000,"context":"Roughly 85% of 8 billion people own one, about 6.9 billion devices (industry surveys)."}`,
	`{"question":"How many trees grow on Earth?","answer":3000000000000,"context":"A 2015 Nature study combined satellite images and ground counts to estimate about 3 trillion trees."}`,
	`{"question":"How many kilometres is the Moon from the Earth?","answer":384400,"context":"Laser ranging gives an average distance of 384,400 km, about 30 Earth diameters."}`,
	`{"question":"How many seconds are in a century?","answer":3155760000,"context":"86,400 seconds a day times 365.25 days is 31.6 million a year, so 3.16 billion per century."}`,
	`{"question":"How many commercial flights take off worldwide each day?","answer":100000,"context":"Air traffic trackers log around 100,000 scheduled passenger and cargo departures per day."}`,
}

func offlineReply(ctx context.Context, req Request) MockResponse {
	if PurposeFrom(ctx) == PurposeFeedback {
		return MockResponse{Content: "Nice work. Anchor each estimate on one figure you know well, then scale it step by step."}
	}
	// Skip questions the prompt already lists as asked.
	var prompt string
	for _, m := range req.Messages {
		prompt += m.Content
	}
	for _, q := range offlineQuestions {
		if !strings.Contains(prompt, gjson.Get(q, "question").Str) {
			return MockResponse{Content: q}
		}
	}
	return MockResponse{Content: offlineQuestions[0]}
}
