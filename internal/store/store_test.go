package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssbdragonalt/Estimify/internal/leaderboard"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		// WAL falls back to "memory" for in-memory databases; see TestFileDatabaseUsesWAL.
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
		{"busy_timeout", "5000"},
	}

	for _, tt := range tests {
		var got string
		if err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got); err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestFileDatabaseUsesWAL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "estimify.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	var mode string
	require.NoError(t, s.DB().QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestHistoryRepo_AppendAndEvict(t *testing.T) {
	s := openTestStore(t)
	repo := s.HistoryRepo(3)
	ctx := context.Background()

	for i := range 5 {
		require.NoError(t, repo.Append(ctx, "u1", fmt.Sprintf("q%d", i)))
	}
	require.NoError(t, repo.Append(ctx, "u2", "other"))

	got, err := repo.Questions(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"q2", "q3", "q4"}, got)

	other, err := repo.Questions(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, []string{"other"}, other)

	n, err := repo.Count(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 5, n, "count includes evicted entries")

	n, err = repo.Count(ctx, "ghost")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestHistoryRepo_EmptyUser(t *testing.T) {
	s := openTestStore(t)
	got, err := s.HistoryRepo(0).Questions(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestHistoryRepo_DefaultCap(t *testing.T) {
	s := openTestStore(t)
	repo := s.HistoryRepo(0)
	ctx := context.Background()

	for i := range 101 {
		require.NoError(t, repo.Append(ctx, "u", fmt.Sprintf("q%d", i)))
	}
	got, err := repo.Questions(ctx, "u")
	require.NoError(t, err)
	require.Len(t, got, 100)
	assert.Equal(t, "q1", got[0])
}

func TestLeaderboardRepo_TopOrdering(t *testing.T) {
	s := openTestStore(t)
	repo := s.LeaderboardRepo()
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Submit(ctx, leaderboard.Entry{UserID: "a", Username: "A", Score: 4.5, Timestamp: base}))
	require.NoError(t, repo.Submit(ctx, leaderboard.Entry{UserID: "b", Username: "B", Score: 8.1, Timestamp: base.Add(time.Hour)}))
	require.NoError(t, repo.Submit(ctx, leaderboard.Entry{UserID: "c", Username: "C", Score: 8.1, Timestamp: base, TotalQuestions: 10}))

	top, err := repo.Top(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "c", top[0].UserID)
	assert.Equal(t, 10, top[0].TotalQuestions)
	assert.True(t, base.Equal(top[0].Timestamp))
	assert.Equal(t, "b", top[1].UserID)
	assert.NotEmpty(t, top[0].ID)
}

func TestEventLog_AppendQueryAndStats(t *testing.T) {
	s := openTestStore(t)
	events := s.EventRepo()
	ctx := context.Background()

	for _, d := range []LLMRequestEventData{
		{Provider: "mock", Model: "mock", Purpose: "question-gen", InputTokens: 100, OutputTokens: 40, LatencyMs: 10, Success: true, RequestBody: "req", ResponseBody: "resp"},
		{Provider: "mock", Model: "mock", Purpose: "question-gen", InputTokens: 120, OutputTokens: 0, LatencyMs: 30, Success: false, ErrorMessage: "boom"},
		{Provider: "openai", Model: "gpt-4o-mini", Purpose: "feedback", InputTokens: 300, OutputTokens: 200, LatencyMs: 50, Success: true},
	} {
		require.NoError(t, events.AppendLLMRequest(ctx, d))
	}

	all, err := events.QueryLLMEvents(ctx, QueryOpts{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "feedback", all[0].Purpose, "newest first")

	gen, err := events.QueryLLMEvents(ctx, QueryOpts{Purpose: "question-gen", Limit: 1})
	require.NoError(t, err)
	require.Len(t, gen, 1)
	assert.False(t, gen[0].Success)
	assert.Equal(t, "boom", gen[0].ErrorMessage)

	first, err := events.GetLLMEvent(ctx, all[2].ID)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.True(t, first.Success)
	assert.Equal(t, "req", first.RequestBody)
	assert.Equal(t, "resp", first.ResponseBody)

	missing, err := events.GetLLMEvent(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	byPurpose, err := events.LLMUsageByPurpose(ctx)
	require.NoError(t, err)
	require.Len(t, byPurpose, 2)
	assert.Equal(t, PurposeUsage{Purpose: "question-gen", Calls: 2, InputTokens: 220, OutputTokens: 40, AvgLatencyMs: 20}, byPurpose[0])

	byModel, err := events.LLMUsageByModel(ctx)
	require.NoError(t, err)
	require.Len(t, byModel, 2)
	assert.Equal(t, "mock", byModel[0].Model)
	assert.Equal(t, 2, byModel[0].Calls)
}

func TestDefaultDBPath_EnvOverride(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nested", "custom.db")
	t.Setenv("ESTIMIFY_DB", p)

	got, err := DefaultDBPath()
	require.NoError(t, err)
	assert.Equal(t, p, got)
	_, statErr := os.Stat(filepath.Dir(p))
	assert.NoError(t, statErr)
}

func TestDefaultDBPath_XDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ESTIMIFY_DB", "")
	t.Setenv("XDG_DATA_HOME", dir)

	got, err := DefaultDBPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "estimify", "estimify.db"), got)
}

func TestPostgres_HistoryAndLeaderboard(t *testing.T) {
	url := os.Getenv("ESTIMIFY_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("ESTIMIFY_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pg, err := OpenPostgres(ctx, url, 2)
	require.NoError(t, err)
	defer pg.Close()

	user := "pg-" + uuid.NewString()
	for _, q := range []string{"one", "two", "three"} {
		require.NoError(t, pg.Append(ctx, user, q))
	}
	got, err := pg.Questions(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, []string{"two", "three"}, got)

	n, err := pg.Count(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, pg.Submit(ctx, leaderboard.Entry{UserID: user, Username: "pg", Score: 1e6}))
	top, err := pg.Top(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, user, top[0].UserID)
}
