package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ssbdragonalt/Estimify/internal/feedback"
	"github.com/ssbdragonalt/Estimify/internal/history"
	"github.com/ssbdragonalt/Estimify/internal/leaderboard"
	"github.com/ssbdragonalt/Estimify/internal/llm"
	"github.com/ssbdragonalt/Estimify/internal/observability"
	"github.com/ssbdragonalt/Estimify/internal/problemgen"
	"github.com/ssbdragonalt/Estimify/internal/store"
)

// services is the wired object graph shared by play, ask and serve.
type services struct {
	local    *store.Store
	pg       *store.Postgres
	history  history.Store
	board    leaderboard.Board
	provider llm.Provider
	metrics  *observability.Metrics
}

// openServices picks the storage backends from configuration: remote HTTP
// services win over PostgreSQL, which wins over the local SQLite file. LLM
// events always go to SQLite so `estimify llm` can inspect them.
func openServices(ctx context.Context, cmd *cobra.Command, metrics *observability.Metrics) (*services, error) {
	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	local, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	svc := &services{local: local, metrics: metrics}

	if cfg.Database.URL != "" {
		svc.pg, err = store.OpenPostgres(ctx, cfg.Database.URL, cfg.History.Cap)
		if err != nil {
			local.Close()
			return nil, fmt.Errorf("open postgres: %w", err)
		}
	}

	httpClient := &http.Client{Timeout: cfg.LLM.Timeout}
	switch {
	case cfg.History.RemoteURL != "":
		svc.history = history.NewClient(cfg.History.RemoteURL, httpClient)
	case svc.pg != nil:
		svc.history = svc.pg
	default:
		svc.history = local.HistoryRepo(cfg.History.Cap)
	}
	switch {
	case cfg.Leaderboard.RemoteURL != "":
		svc.board = leaderboard.NewClient(cfg.Leaderboard.RemoteURL, httpClient)
	case svc.pg != nil:
		svc.board = svc.pg
	default:
		svc.board = local.LeaderboardRepo()
	}

	svc.provider = llm.NewLazy(cfg.LLMProvider(), local.EventRepo(), logger)
	if metrics != nil {
		svc.provider = metrics.InstrumentProvider(svc.provider)
	}

	logger.Debug("services ready",
		zap.String("db", dbPath),
		zap.Bool("postgres", svc.pg != nil),
		zap.String("history_url", cfg.History.RemoteURL),
		zap.String("leaderboard_url", cfg.Leaderboard.RemoteURL),
	)
	return svc, nil
}

// generator builds the retrying question pipeline.
func (s *services) generator() *problemgen.Controller {
	opts := []problemgen.Option{problemgen.WithLogger(logger)}
	if s.metrics != nil {
		opts = append([]problemgen.Option{problemgen.WithObserver(s.metrics)}, opts...)
	}
	return problemgen.NewController(s.provider, s.history, cfg.ProblemGen(), opts...)
}

func (s *services) synthesizer() *feedback.Synthesizer {
	return feedback.New(s.provider, cfg.FeedbackSettings())
}

func (s *services) Close() error {
	var errs []error
	if s.pg != nil {
		errs = append(errs, s.pg.Close())
	}
	errs = append(errs, s.local.Close())
	return errors.Join(errs...)
}
