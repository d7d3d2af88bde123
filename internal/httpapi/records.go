package httpapi

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ssbdragonalt/Estimify/internal/history"
	"github.com/ssbdragonalt/Estimify/internal/leaderboard"
)

// maxTop bounds the leaderboard page size.
const maxTop = 100

func (s *Server) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(chi.URLParam(r, "userId"))
	if userID == "" {
		respondError(w, http.StatusBadRequest, "invalid_user_id", "missing user id")
		return
	}
	if !authorize(w, r, userID) {
		return
	}

	list, err := s.history.Questions(r.Context(), userID)
	if err != nil {
		s.logger.Error("list history failed", zap.String("user_id", userID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "storage_error", "could not read history")
		return
	}
	resp := history.QuestionsResponse{Questions: make([]history.QuestionItem, len(list))}
	for i, q := range list {
		resp.Questions[i] = history.QuestionItem{Question: q}
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAppendQuestion(w http.ResponseWriter, r *http.Request) {
	var req history.AppendRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	req.Question = strings.TrimSpace(req.Question)
	if req.UserID == "" || req.Question == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "userId and question are required")
		return
	}
	if !authorize(w, r, req.UserID) {
		return
	}

	if err := s.history.Append(r.Context(), req.UserID, req.Question); err != nil {
		s.logger.Error("append history failed", zap.String("user_id", req.UserID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "storage_error", "could not record question")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"status": "ok"})
}

func (s *Server) handleSubmitScore(w http.ResponseWriter, r *http.Request) {
	var e leaderboard.Entry
	if err := decodeJSON(r, &e); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	e.UserID = strings.TrimSpace(e.UserID)
	e.Username = strings.TrimSpace(e.Username)
	switch {
	case e.UserID == "" || e.Username == "":
		respondError(w, http.StatusBadRequest, "invalid_request", "userId and username are required")
		return
	case math.IsNaN(e.Score) || math.IsInf(e.Score, 0) || e.Score < 0:
		respondError(w, http.StatusBadRequest, "invalid_request", "score must be a non-negative number")
		return
	}
	if !authorize(w, r, e.UserID) {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	if err := s.board.Submit(r.Context(), e); err != nil {
		s.logger.Error("submit score failed", zap.String("user_id", e.UserID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "storage_error", "could not record score")
		return
	}
	respondJSON(w, http.StatusCreated, e)
}

func (s *Server) handleTopScores(w http.ResponseWriter, r *http.Request) {
	limit := leaderboard.DefaultTop
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = min(n, maxTop)
	}

	entries, err := s.board.Top(r.Context(), limit)
	if err != nil {
		s.logger.Error("read leaderboard failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "storage_error", "could not read leaderboard")
		return
	}
	if entries == nil {
		entries = []leaderboard.Entry{}
	}
	respondJSON(w, http.StatusOK, entries)
}
