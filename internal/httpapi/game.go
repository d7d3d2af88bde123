package httpapi

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ssbdragonalt/Estimify/internal/feedback"
	"github.com/ssbdragonalt/Estimify/internal/history"
	"github.com/ssbdragonalt/Estimify/internal/llm"
	"github.com/ssbdragonalt/Estimify/internal/problemgen"
	"github.com/ssbdragonalt/Estimify/internal/scoring"
)

// handleGenerate produces one question for the bearer user, or for the
// shared history when no token is sent.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	userID, _ := bearer(r)
	if userID == "" {
		userID = history.GlobalUser
	}

	q, err := s.generator.Generate(r.Context(), userID)
	if err != nil {
		var cfgErr *llm.ErrConfiguration
		switch {
		case errors.Is(err, problemgen.ErrMaxRetriesExceeded):
			respondError(w, http.StatusServiceUnavailable, "max_retries_exceeded", problemgen.UserMessage)
		case errors.As(err, &cfgErr):
			s.logger.Error("question generation misconfigured", zap.Error(err))
			respondError(w, http.StatusInternalServerError, "configuration_error", "question generation is not configured")
		case errors.Is(err, context.Canceled):
			// Client went away.
		default:
			s.logger.Error("question generation failed", zap.String("user_id", userID), zap.Error(err))
			respondError(w, http.StatusServiceUnavailable, "generation_failed", problemgen.UserMessage)
		}
		return
	}
	respondJSON(w, http.StatusOK, q)
}

type scoreRequest struct {
	Guess  *float64 `json:"guess"`
	Answer *float64 `json:"answer"`
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_input", scoring.Message)
		return
	}
	if req.Guess == nil || req.Answer == nil {
		respondError(w, http.StatusBadRequest, "invalid_input", scoring.Message)
		return
	}
	res, err := scoring.ScoreGuess(*req.Guess, *req.Answer)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_input", scoring.Message)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

type feedbackRequest struct {
	Questions []problemgen.Question `json:"questions"`
	Guesses   []float64             `json:"guesses"`
}

type feedbackResponse struct {
	Feedback string `json:"feedback"`
	Error    string `json:"error,omitempty"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if len(req.Questions) == 0 || len(req.Questions) != len(req.Guesses) {
		respondError(w, http.StatusBadRequest, "invalid_request", "questions and guesses must be non-empty and the same length")
		return
	}

	text, err := s.feedback.GenerateFeedback(r.Context(), req.Questions, req.Guesses)
	if err != nil {
		if errors.Is(err, scoring.ErrInvalidInput) {
			respondError(w, http.StatusBadRequest, "invalid_input", scoring.Message)
			return
		}
		s.logger.Warn("feedback generation failed", zap.Error(err))
		respondJSON(w, http.StatusBadGateway, feedbackResponse{Feedback: feedback.FallbackText, Error: "upstream_error"})
		return
	}
	respondJSON(w, http.StatusOK, feedbackResponse{Feedback: text})
}
