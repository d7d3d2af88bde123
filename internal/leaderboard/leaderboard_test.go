package leaderboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRank(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	entries := []Entry{
		{UserID: "a", Score: 3.2, Timestamp: base},
		{UserID: "b", Score: 7.9, Timestamp: base.Add(time.Minute)},
		{UserID: "c", Score: 7.9, Timestamp: base},
		{UserID: "d", Score: 5.0, Timestamp: base},
	}

	got := Rank(entries, 3)
	want := []Entry{
		{UserID: "c", Score: 7.9, Timestamp: base},
		{UserID: "b", Score: 7.9, Timestamp: base.Add(time.Minute)},
		{UserID: "d", Score: 5.0, Timestamp: base},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Rank mismatch (-want +got):\n%s", diff)
	}

	// Input order untouched.
	assert.Equal(t, "a", entries[0].UserID)
}

func TestRank_DefaultLimit(t *testing.T) {
	entries := make([]Entry, 15)
	for i := range entries {
		entries[i] = Entry{Score: float64(i)}
	}
	got := Rank(entries, 0)
	require.Len(t, got, DefaultTop)
	assert.Equal(t, 14.0, got[0].Score)
}

func TestMemory_SubmitAndTop(t *testing.T) {
	ctx := context.Background()
	b := NewMemory()
	require.NoError(t, b.Submit(ctx, Entry{UserID: "x", Score: 1}))
	require.NoError(t, b.Submit(ctx, Entry{UserID: "y", Score: 9}))

	top, err := b.Top(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "y", top[0].UserID)
	assert.False(t, top[1].Timestamp.IsZero())
}

func TestClient_Submit(t *testing.T) {
	var got Entry
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/leaderboard", r.URL.Path)
		assert.Equal(t, "Bearer user-9", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	err := NewClient(server.URL, nil).Submit(context.Background(), Entry{
		UserID: "user-9", Username: "nine", Score: 6.5, Timestamp: ts,
	})
	require.NoError(t, err)
	assert.Equal(t, "nine", got.Username)
	assert.Equal(t, 6.5, got.Score)
	assert.True(t, ts.Equal(got.Timestamp))
}

func TestClient_Top(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/leaderboard/top", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		json.NewEncoder(w).Encode([]Entry{{UserID: "a", Username: "alpha", Score: 8}})
	}))
	defer server.Close()

	top, err := NewClient(server.URL, nil).Top(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "alpha", top[0].Username)
}

func TestClient_SubmitRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	err := NewClient(server.URL, nil).Submit(context.Background(), Entry{UserID: "u"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}
