package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/foxseedlab/mensetsu/internal/repository"
)

type activityJSON struct {
	interviewJSON
	IsStarted   bool `json:"isStarted"`
	IsCompleted bool `json:"isCompleted"`
	IsFeedback  bool `json:"isFeedback"`
}

type activityLister func(ctx context.Context, userID string) ([]repository.InterviewActivity, error)

func (s *Server) handleListOwned(w http.ResponseWriter, r *http.Request) {
	s.writeActivity(w, r, "owned", s.repo.ListOwnedInterviews)
}

func (s *Server) handleListGiven(w http.ResponseWriter, r *http.Request) {
	s.writeActivity(w, r, "given", s.repo.ListCompletedInterviews)
}

func (s *Server) handleListPractice(w http.ResponseWriter, r *http.Request) {
	s.writeActivity(w, r, "practice", s.repo.ListBookmarkedInterviews)
}

func (s *Server) writeActivity(w http.ResponseWriter, r *http.Request, kind string, list activityLister) {
	records, err := list(r.Context(), userID(r))
	if err != nil {
		slog.Error("failed to list dashboard interviews", "error", err, "kind", kind)
		writeJSONError(w, http.StatusInternalServerError, "failed to list interviews")
		return
	}
	out := make([]activityJSON, 0, len(records))
	for _, rec := range records {
		out = append(out, activityJSON{
			interviewJSON: toInterviewJSON(rec.InterviewRecord),
			IsStarted:     rec.IsStarted,
			IsCompleted:   rec.IsCompleted,
			IsFeedback:    rec.HasFeedback,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": out})
}
