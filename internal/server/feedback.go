package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/foxseedlab/mensetsu/internal/interview"
	"github.com/foxseedlab/mensetsu/internal/repository"
	"github.com/foxseedlab/mensetsu/internal/transcript"
)

type feedbackJSON struct {
	ID          string             `json:"id"`
	InterviewID string             `json:"interviewId"`
	Feedback    interview.Feedback `json:"feedback"`
	CreatedAt   time.Time          `json:"createdAt"`
}

func (s *Server) handleGetFeedback(w http.ResponseWriter, r *http.Request) {
	interviewID := r.PathValue("id")
	rec, err := s.repo.GetFeedback(r.Context(), userID(r), interviewID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "feedback for interview not found")
			return
		}
		slog.Error("failed to get feedback", "error", err, "interview_id", interviewID)
		writeJSONError(w, http.StatusInternalServerError, "failed to get feedback")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": feedbackJSON{
		ID: rec.ID, InterviewID: rec.InterviewID, Feedback: rec.Feedback, CreatedAt: rec.CreatedAt,
	}})
}

func (s *Server) handleCreateFeedback(w http.ResponseWriter, r *http.Request) {
	interviewID := r.PathValue("id")
	uid := userID(r)
	rec, err := s.repo.GetLatestProgress(r.Context(), uid, interviewID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "progress for interview not found")
			return
		}
		slog.Error("failed to load progress for feedback", "error", err, "interview_id", interviewID)
		writeJSONError(w, http.StatusInternalServerError, "failed to generate feedback")
		return
	}
	if len(rec.Transcript) == 0 {
		writeJSONError(w, http.StatusBadRequest, "no interview transcript found")
		return
	}

	fb, err := s.generator.GenerateFeedback(r.Context(), transcript.FormatForPrompt(rec.Transcript))
	if err != nil {
		slog.Error("failed to generate feedback", "error", err, "interview_id", interviewID)
		writeJSONError(w, http.StatusInternalServerError, "error generating feedback")
		return
	}
	if _, err := s.repo.CreateFeedback(r.Context(), repository.CreateFeedbackInput{
		UserID: uid, InterviewID: interviewID, Feedback: *fb,
	}); err != nil {
		slog.Error("failed to store feedback", "error", err, "interview_id", interviewID)
		writeJSONError(w, http.StatusInternalServerError, "failed to store feedback")
		return
	}
	slog.Info("feedback generated", "interview_id", interviewID, "user_id", uid, "score", fb.OverallScore)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": fb})
}
