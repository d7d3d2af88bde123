package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ssbdragonalt/Estimify/internal/leaderboard"
)

// LeaderboardRepo persists round scores. It implements leaderboard.Board.
type LeaderboardRepo struct {
	db *sql.DB
}

var _ leaderboard.Board = (*LeaderboardRepo)(nil)

func (r *LeaderboardRepo) Submit(ctx context.Context, e leaderboard.Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO leaderboard_entries (id, user_id, username, score, total_questions, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Username, e.Score, e.TotalQuestions, e.Timestamp.UnixNano())
	if err != nil {
		return fmt.Errorf("insert leaderboard entry: %w", err)
	}
	return nil
}

func (r *LeaderboardRepo) Top(ctx context.Context, n int) ([]leaderboard.Entry, error) {
	if n <= 0 {
		n = leaderboard.DefaultTop
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, username, score, total_questions, created_at
		 FROM leaderboard_entries ORDER BY score DESC, created_at ASC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	out := make([]leaderboard.Entry, 0, n)
	for rows.Next() {
		var e leaderboard.Entry
		var ts int64
		if err := rows.Scan(&e.ID, &e.UserID, &e.Username, &e.Score, &e.TotalQuestions, &ts); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		e.Timestamp = time.Unix(0, ts).UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leaderboard rows: %w", err)
	}
	return out, nil
}
