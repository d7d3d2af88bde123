// Package httpapi serves the history, leaderboard, generation, scoring and
// feedback operations over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ssbdragonalt/Estimify/internal/feedback"
	"github.com/ssbdragonalt/Estimify/internal/history"
	"github.com/ssbdragonalt/Estimify/internal/leaderboard"
	"github.com/ssbdragonalt/Estimify/internal/logging"
	"github.com/ssbdragonalt/Estimify/internal/observability"
	"github.com/ssbdragonalt/Estimify/internal/problemgen"
)

// Deps are the services behind the API. Metrics and Logger are optional.
type Deps struct {
	History   history.Store
	Board     leaderboard.Board
	Generator problemgen.Generator
	Feedback  *feedback.Synthesizer
	Metrics   *observability.Metrics
	Logger    *zap.Logger
}

type Server struct {
	history   history.Store
	board     leaderboard.Board
	generator problemgen.Generator
	feedback  *feedback.Synthesizer
	metrics   *observability.Metrics
	logger    *zap.Logger
}

func New(d Deps) *Server {
	return &Server{
		history:   d.History,
		board:     d.Board,
		generator: d.Generator,
		feedback:  d.Feedback,
		metrics:   d.Metrics,
		logger:    logging.OrNop(d.Logger),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/user-questions/{userId}", s.handleListQuestions)
		r.Post("/user-questions", s.handleAppendQuestion)

		r.Post("/leaderboard", s.handleSubmitScore)
		r.Get("/leaderboard/top", s.handleTopScores)

		r.Post("/questions", s.handleGenerate)
		r.Post("/score", s.handleScore)
		r.Post("/feedback", s.handleFeedback)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// bearer returns the token from "Authorization: Bearer <token>".
func bearer(r *http.Request) (string, bool) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	token, ok := strings.CutPrefix(h, "Bearer ")
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

// authorize requires the bearer token to equal userID. It writes the
// error response and returns false on mismatch.
func authorize(w http.ResponseWriter, r *http.Request, userID string) bool {
	token, ok := bearer(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return false
	}
	if token != userID {
		respondError(w, http.StatusForbidden, "forbidden", "token does not match user")
		return false
	}
	return true
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
