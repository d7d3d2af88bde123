package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ssbdragonalt/Estimify/internal/history"
	"github.com/ssbdragonalt/Estimify/internal/leaderboard"
)

// Postgres persists question history and the leaderboard in PostgreSQL,
// for deployments where several server instances share state.
type Postgres struct {
	pool  *pgxpool.Pool
	limit int
}

var (
	_ history.Store     = (*Postgres)(nil)
	_ history.Counter   = (*Postgres)(nil)
	_ leaderboard.Board = (*Postgres)(nil)
)

// OpenPostgres connects to databaseURL and creates missing tables.
// historyCap bounds each user's history (0 = history.DefaultCap).
func OpenPostgres(ctx context.Context, databaseURL string, historyCap int) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initPostgresSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	if historyCap <= 0 {
		historyCap = history.DefaultCap
	}
	return &Postgres{pool: pool, limit: historyCap}, nil
}

func initPostgresSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS question_history (
			id BIGSERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			question TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_question_history_user ON question_history (user_id, id);`,
		`CREATE TABLE IF NOT EXISTS question_counts (
			user_id TEXT PRIMARY KEY,
			total BIGINT NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS leaderboard_entries (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			username TEXT NOT NULL,
			score DOUBLE PRECISION NOT NULL,
			total_questions INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_leaderboard_score ON leaderboard_entries (score DESC, created_at ASC);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (p *Postgres) Questions(ctx context.Context, userID string) ([]string, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT question FROM question_history WHERE user_id=$1 ORDER BY id ASC`, userID)
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

func (p *Postgres) Append(ctx context.Context, userID, text string) error {
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO question_history (user_id, question) VALUES ($1, $2)`,
			userID, text); err != nil {
			return fmt.Errorf("insert history: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO question_counts (user_id, total) VALUES ($1, 1)
			 ON CONFLICT (user_id) DO UPDATE SET total = question_counts.total + 1`,
			userID); err != nil {
			return fmt.Errorf("count history: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`DELETE FROM question_history
			 WHERE user_id=$1 AND id NOT IN (
				SELECT id FROM question_history WHERE user_id=$1 ORDER BY id DESC LIMIT $2
			 )`,
			userID, p.limit); err != nil {
			return fmt.Errorf("evict history: %w", err)
		}
		return nil
	})
}

// Count returns the lifetime number of questions appended for userID.
func (p *Postgres) Count(ctx context.Context, userID string) (int, error) {
	var n int64
	err := p.pool.QueryRow(ctx,
		`SELECT total FROM question_counts WHERE user_id=$1`, userID).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	return int(n), nil
}

func (p *Postgres) Submit(ctx context.Context, e leaderboard.Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	_, err := p.pool.Exec(ctx,
		`INSERT INTO leaderboard_entries (id, user_id, username, score, total_questions, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.UserID, e.Username, e.Score, e.TotalQuestions, e.Timestamp)
	if err != nil {
		return fmt.Errorf("insert leaderboard entry: %w", err)
	}
	return nil
}

func (p *Postgres) Top(ctx context.Context, n int) ([]leaderboard.Entry, error) {
	if n <= 0 {
		n = leaderboard.DefaultTop
	}
	rows, err := p.pool.Query(ctx,
		`SELECT id, user_id, username, score, total_questions, created_at
		 FROM leaderboard_entries ORDER BY score DESC, created_at ASC LIMIT $1`, n)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	out := make([]leaderboard.Entry, 0, n)
	for rows.Next() {
		var e leaderboard.Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Username, &e.Score, &e.TotalQuestions, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leaderboard rows: %w", err)
	}
	return out, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
