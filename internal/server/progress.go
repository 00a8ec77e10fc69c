package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/foxseedlab/mensetsu/internal/progress"
	"github.com/foxseedlab/mensetsu/internal/repository"
)

func (s *Server) handleSaveProgress(w http.ResponseWriter, r *http.Request) {
	interviewID := r.PathValue("id")
	var req progress.SaveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		writeJSONError(w, http.StatusBadRequest, "missing required fields")
		return
	}
	remaining := req.TimeRemaining
	if remaining < 0 {
		remaining = 0
	}

	rec, err := s.repo.UpsertProgress(r.Context(), repository.UpsertProgressInput{
		UserID:               userID(r),
		InterviewID:          interviewID,
		SessionID:            req.SessionID,
		TimeRemainingSeconds: remaining,
		Transcript:           progress.FromWireTurns(req.Transcript),
		TotalDurationMinutes: req.TotalDuration,
		IsCompleted:          req.IsCompleted || req.TimeRemaining <= 0,
		SavedAt:              s.now(),
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "interview not found")
			return
		}
		slog.Error("failed to save progress", "error", err, "interview_id", interviewID)
		writeJSONError(w, http.StatusInternalServerError, "failed to save progress")
		return
	}
	slog.Debug("progress saved", "interview_id", interviewID, "session_id", rec.SessionID, "time_remaining", rec.TimeRemainingSeconds, "completed", rec.IsCompleted)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"progressId": rec.ID,
		"message":    "Progress saved successfully",
	})
}

// handleGetProgress answers 200 with success:false when there is nothing
// to resume.
func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	interviewID := r.PathValue("id")
	rec, err := s.repo.GetActiveProgress(r.Context(), userID(r), interviewID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusOK, progress.LoadResponse{Success: false, Message: "No saved progress found"})
			return
		}
		slog.Error("failed to fetch progress", "error", err, "interview_id", interviewID)
		writeJSONError(w, http.StatusInternalServerError, "failed to fetch progress")
		return
	}
	writeJSON(w, http.StatusOK, progress.LoadResponse{
		Success: true,
		Data: &progress.SnapshotData{
			SessionID:     rec.SessionID,
			TimeRemaining: rec.TimeRemainingSeconds,
			Transcript:    progress.ToWireTurns(rec.Transcript),
			TotalDuration: rec.TotalDurationMinutes,
			IsCompleted:   rec.IsCompleted,
			LastSaved:     rec.LastSavedAt,
		},
	})
}
