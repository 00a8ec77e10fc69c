package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/foxseedlab/mensetsu/internal/generator"
	"github.com/foxseedlab/mensetsu/internal/interview"
)

type generateRequest struct {
	Company      string               `json:"company"`
	Role         string               `json:"role"`
	Difficulty   interview.Difficulty `json:"difficulty"`
	Technologies []string             `json:"technologies"`
	Duration     float64              `json:"duration"`
	Description  string               `json:"description"`
}

func (s *Server) handleGenerateQuestions(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	questions, err := s.generator.GenerateQuestions(r.Context(), generator.QuestionParams{
		Company:         req.Company,
		Role:            req.Role,
		Difficulty:      req.Difficulty,
		Technologies:    req.Technologies,
		DurationMinutes: req.Duration,
		Description:     req.Description,
	})
	if err != nil {
		if errors.Is(err, generator.ErrInvalidParams) {
			writeJSONError(w, http.StatusBadRequest, "missing required fields")
			return
		}
		slog.Error("failed to generate questions", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to generate questions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "questions": questions})
}

func (s *Server) handleGenerateDescription(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	description, err := s.generator.GenerateDescription(r.Context(), generator.DescriptionParams{
		Company:      req.Company,
		Role:         req.Role,
		Difficulty:   req.Difficulty,
		Technologies: req.Technologies,
	})
	if err != nil {
		if errors.Is(err, generator.ErrInvalidParams) {
			writeJSONError(w, http.StatusBadRequest, "missing required fields")
			return
		}
		slog.Error("failed to generate description", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to generate description")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "description": description})
}
