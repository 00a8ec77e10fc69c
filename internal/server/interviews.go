package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/foxseedlab/mensetsu/internal/interview"
	"github.com/foxseedlab/mensetsu/internal/repository"
)

type interviewJSON struct {
	ID           string               `json:"id"`
	UserID       string               `json:"userId"`
	Company      string               `json:"company"`
	Role         string               `json:"role"`
	Technologies []string             `json:"technologies"`
	Difficulty   interview.Difficulty `json:"difficulty"`
	Duration     float64              `json:"duration"`
	Questions    []interview.Question `json:"questions"`
	Description  string               `json:"description"`
	IsBookmarked bool                 `json:"isBookmarked"`
	CreatedAt    time.Time            `json:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt"`
}

func toInterviewJSON(r repository.InterviewRecord) interviewJSON {
	return interviewJSON{
		ID:           r.ID,
		UserID:       r.UserID,
		Company:      r.Company,
		Role:         r.Role,
		Technologies: r.Technologies,
		Difficulty:   r.Difficulty,
		Duration:     r.DurationMinutes,
		Questions:    r.Questions,
		Description:  r.Description,
		IsBookmarked: r.IsBookmarked,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type createInterviewRequest struct {
	Company      string               `json:"company"`
	Role         string               `json:"role"`
	Technologies []string             `json:"technologies"`
	Difficulty   interview.Difficulty `json:"difficulty"`
	Duration     float64              `json:"duration"`
	Questions    []interview.Question `json:"questions"`
	Description  string               `json:"description"`
}

func (req createInterviewRequest) validate() string {
	if strings.TrimSpace(req.Company) == "" || strings.TrimSpace(req.Role) == "" || len(req.Technologies) == 0 ||
		req.Duration <= 0 || len(req.Questions) == 0 || strings.TrimSpace(req.Description) == "" {
		return "missing required field"
	}
	if !req.Difficulty.Valid() {
		return "difficulty must be one of Beginner, Intermediate, Advanced, Expert"
	}
	return ""
}

func (s *Server) handleListInterviews(w http.ResponseWriter, r *http.Request) {
	records, err := s.repo.ListInterviews(r.Context(), userID(r))
	if err != nil {
		slog.Error("failed to list interviews", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to list interviews")
		return
	}
	out := make([]interviewJSON, 0, len(records))
	for _, rec := range records {
		out = append(out, toInterviewJSON(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": out})
}

func (s *Server) handleCreateInterview(w http.ResponseWriter, r *http.Request) {
	var req createInterviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeJSONError(w, http.StatusBadRequest, msg)
		return
	}
	rec, err := s.repo.CreateInterview(r.Context(), repository.CreateInterviewInput{
		UserID:          userID(r),
		Company:         strings.TrimSpace(req.Company),
		Role:            strings.TrimSpace(req.Role),
		Technologies:    req.Technologies,
		Difficulty:      req.Difficulty,
		DurationMinutes: req.Duration,
		Questions:       req.Questions,
		Description:     strings.TrimSpace(req.Description),
	})
	if err != nil {
		slog.Error("failed to create interview", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to create interview")
		return
	}
	slog.Info("interview created", "interview_id", rec.ID, "user_id", rec.UserID)
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "data": toInterviewJSON(*rec)})
}

func (s *Server) handleGetInterview(w http.ResponseWriter, r *http.Request) {
	rec, err := s.repo.GetInterview(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "interview not found")
			return
		}
		slog.Error("failed to get interview", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to get interview")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": toInterviewJSON(*rec)})
}

func (s *Server) handleAddBookmark(w http.ResponseWriter, r *http.Request) {
	err := s.repo.AddBookmark(r.Context(), userID(r), r.PathValue("id"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, map[string]any{"success": true, "message": "bookmarked"})
	case errors.Is(err, repository.ErrAlreadyExists):
		writeJSONError(w, http.StatusConflict, "interview already bookmarked")
	case errors.Is(err, repository.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "interview not found")
	default:
		slog.Error("failed to add bookmark", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to add bookmark")
	}
}

func (s *Server) handleRemoveBookmark(w http.ResponseWriter, r *http.Request) {
	err := s.repo.RemoveBookmark(r.Context(), userID(r), r.PathValue("id"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "bookmark removed"})
	case errors.Is(err, repository.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "bookmark not found")
	default:
		slog.Error("failed to remove bookmark", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to remove bookmark")
	}
}
