package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ssbdragonalt/Estimify/internal/history"
)

// HistoryRepo persists per-user question history. It implements
// history.Store; appends trim the user's rows to the cap in the same
// transaction.
type HistoryRepo struct {
	db    *sql.DB
	limit int
}

var (
	_ history.Store   = (*HistoryRepo)(nil)
	_ history.Counter = (*HistoryRepo)(nil)
)

func newHistoryRepo(db *sql.DB, limit int) *HistoryRepo {
	if limit <= 0 {
		limit = history.DefaultCap
	}
	return &HistoryRepo{db: db, limit: limit}
}

func (r *HistoryRepo) Questions(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT question FROM question_history WHERE user_id = ? ORDER BY id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return out, nil
}

func (r *HistoryRepo) Append(ctx context.Context, userID, text string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO question_history (user_id, question, created_at) VALUES (?, ?, ?)`,
		userID, text, time.Now().UnixNano()); err != nil {
		return fmt.Errorf("insert history: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO question_counts (user_id, total) VALUES (?, 1)
		 ON CONFLICT (user_id) DO UPDATE SET total = total + 1`,
		userID); err != nil {
		return fmt.Errorf("count history: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM question_history
		 WHERE user_id = ? AND id NOT IN (
			SELECT id FROM question_history WHERE user_id = ? ORDER BY id DESC LIMIT ?
		 )`,
		userID, userID, r.limit); err != nil {
		return fmt.Errorf("evict history: %w", err)
	}

	return tx.Commit()
}

// Count returns the lifetime number of questions appended for userID.
func (r *HistoryRepo) Count(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT total FROM question_counts WHERE user_id = ?`, userID).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	return n, nil
}
