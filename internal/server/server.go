package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/foxseedlab/mensetsu/internal/auth"
	"github.com/foxseedlab/mensetsu/internal/generator"
	"github.com/foxseedlab/mensetsu/internal/interview"
	"github.com/foxseedlab/mensetsu/internal/repository"
)

const maxRequestBodyBytes = 1 << 20

type Generator interface {
	GenerateQuestions(ctx context.Context, p generator.QuestionParams) ([]interview.Question, error)
	GenerateDescription(ctx context.Context, p generator.DescriptionParams) (string, error)
	GenerateFeedback(ctx context.Context, transcriptText string) (*interview.Feedback, error)
}

type Server struct {
	repo      repository.Repository
	generator Generator
	auth      *auth.Authenticator
	now       func() time.Time
}

func New(repo repository.Repository, gen Generator, authenticator *auth.Authenticator) *Server {
	return &Server{repo: repo, generator: gen, auth: authenticator, now: time.Now}
}

// Handler serves /healthz openly and everything under /api/ behind the
// access token middleware.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /api/interviews", s.handleListInterviews)
	api.HandleFunc("POST /api/interviews", s.handleCreateInterview)
	api.HandleFunc("GET /api/interviews/{id}", s.handleGetInterview)
	api.HandleFunc("GET /api/interviews/me/owned", s.handleListOwned)
	api.HandleFunc("GET /api/interviews/me/given", s.handleListGiven)
	api.HandleFunc("GET /api/interviews/practice", s.handleListPractice)
	api.HandleFunc("POST /api/interviews/{id}/bookmark", s.handleAddBookmark)
	api.HandleFunc("DELETE /api/interviews/{id}/bookmark", s.handleRemoveBookmark)
	api.HandleFunc("GET /api/interviews/{id}/progress", s.handleGetProgress)
	api.HandleFunc("POST /api/interviews/{id}/progress", s.handleSaveProgress)
	api.HandleFunc("GET /api/interviews/{id}/feedback", s.handleGetFeedback)
	api.HandleFunc("POST /api/interviews/{id}/feedback", s.handleCreateFeedback)
	api.HandleFunc("POST /api/interviews/generate-questions", s.handleGenerateQuestions)
	api.HandleFunc("POST /api/interviews/generate-description", s.handleGenerateDescription)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	mux.Handle("/api/", s.auth.Middleware(api))
	return logRequests(mux)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

func userID(r *http.Request) string {
	id, _ := auth.UserIDFromContext(r.Context())
	return id
}
