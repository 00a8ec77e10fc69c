package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/foxseedlab/mensetsu/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) repository.Repository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Close() {
	r.pool.Close()
}

const interviewColumns = `id, user_id, company, role, technologies, difficulty, duration_minutes, questions, description, created_at, updated_at`

func (r *PostgresRepository) CreateInterview(ctx context.Context, input repository.CreateInterviewInput) (*repository.InterviewRecord, error) {
	technologies, err := encodeJSON(nonNilStrings(input.Technologies))
	if err != nil {
		return nil, err
	}
	questions, err := encodeJSON(nonNilQuestions(input.Questions))
	if err != nil {
		return nil, err
	}
	row := r.pool.QueryRow(ctx,
		`INSERT INTO interviews (user_id, company, role, technologies, difficulty, duration_minutes, questions, description)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+interviewColumns,
		input.UserID, input.Company, input.Role, technologies, string(input.Difficulty), input.DurationMinutes, questions, input.Description)
	rec, err := scanInterview(row, nil)
	if err != nil {
		return nil, fmt.Errorf("insert interview: %w", err)
	}
	return rec, nil
}

func (r *PostgresRepository) GetInterview(ctx context.Context, interviewID string) (*repository.InterviewRecord, error) {
	if _, err := uuid.Parse(interviewID); err != nil {
		return nil, repository.ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `SELECT `+interviewColumns+` FROM interviews WHERE id = $1`, interviewID)
	rec, err := scanInterview(row, nil)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get interview %s: %w", interviewID, err)
	}
	return rec, nil
}

func (r *PostgresRepository) ListInterviews(ctx context.Context, userID string) ([]repository.InterviewRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT i.id, i.user_id, i.company, i.role, i.technologies, i.difficulty, i.duration_minutes, i.questions, i.description, i.created_at, i.updated_at,
		        EXISTS (SELECT 1 FROM bookmarks b WHERE b.interview_id = i.id AND b.user_id = $1)
		 FROM interviews i ORDER BY i.created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list interviews: %w", err)
	}
	defer rows.Close()
	var list []repository.InterviewRecord
	for rows.Next() {
		var bookmarked bool
		rec, err := scanInterview(rows, &bookmarked)
		if err != nil {
			return nil, fmt.Errorf("scan interview: %w", err)
		}
		rec.IsBookmarked = bookmarked
		list = append(list, *rec)
	}
	return list, rows.Err()
}

func scanInterview(row pgx.Row, bookmarked *bool) (*repository.InterviewRecord, error) {
	var rec repository.InterviewRecord
	var technologies, questions []byte
	var difficulty string
	dest := []any{&rec.ID, &rec.UserID, &rec.Company, &rec.Role, &technologies, &difficulty, &rec.DurationMinutes, &questions, &rec.Description, &rec.CreatedAt, &rec.UpdatedAt}
	if bookmarked != nil {
		dest = append(dest, bookmarked)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	rec.Difficulty = interviewDifficulty(difficulty)
	var err error
	if rec.Technologies, err = decodeStrings(technologies); err != nil {
		return nil, err
	}
	if rec.Questions, err = decodeQuestions(questions); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *PostgresRepository) UpsertProgress(ctx context.Context, input repository.UpsertProgressInput) (*repository.ProgressRecord, error) {
	if _, err := uuid.Parse(input.InterviewID); err != nil {
		return nil, repository.ErrNotFound
	}
	encoded, err := encodeTranscript(input.Transcript)
	if err != nil {
		return nil, err
	}
	row := r.pool.QueryRow(ctx,
		`INSERT INTO interview_progress (user_id, interview_id, session_id, time_remaining, transcript, total_duration, is_completed, last_saved)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (user_id, interview_id) DO UPDATE SET
		   session_id = EXCLUDED.session_id,
		   time_remaining = EXCLUDED.time_remaining,
		   transcript = EXCLUDED.transcript,
		   total_duration = EXCLUDED.total_duration,
		   is_completed = EXCLUDED.is_completed,
		   last_saved = EXCLUDED.last_saved
		 RETURNING `+progressColumns,
		input.UserID, input.InterviewID, input.SessionID, input.TimeRemainingSeconds, encoded,
		input.TotalDurationMinutes, input.IsCompleted, input.SavedAt.UTC())
	rec, err := scanProgress(row)
	if err != nil {
		return nil, fmt.Errorf("upsert progress: %w", err)
	}
	return rec, nil
}

const progressColumns = `id, user_id, interview_id, session_id, time_remaining, transcript, total_duration, is_completed, last_saved, created_at`

func (r *PostgresRepository) GetActiveProgress(ctx context.Context, userID, interviewID string) (*repository.ProgressRecord, error) {
	return r.getProgress(ctx,
		`SELECT `+progressColumns+` FROM interview_progress WHERE user_id = $1 AND interview_id = $2 AND NOT is_completed`,
		userID, interviewID)
}

func (r *PostgresRepository) GetLatestProgress(ctx context.Context, userID, interviewID string) (*repository.ProgressRecord, error) {
	return r.getProgress(ctx,
		`SELECT `+progressColumns+` FROM interview_progress WHERE user_id = $1 AND interview_id = $2 ORDER BY last_saved DESC LIMIT 1`,
		userID, interviewID)
}

func (r *PostgresRepository) getProgress(ctx context.Context, query, userID, interviewID string) (*repository.ProgressRecord, error) {
	if _, err := uuid.Parse(interviewID); err != nil {
		return nil, repository.ErrNotFound
	}
	rec, err := scanProgress(r.pool.QueryRow(ctx, query, userID, interviewID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get progress for interview %s: %w", interviewID, err)
	}
	return rec, nil
}

func scanProgress(row pgx.Row) (*repository.ProgressRecord, error) {
	var rec repository.ProgressRecord
	var encoded []byte
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.InterviewID, &rec.SessionID, &rec.TimeRemainingSeconds, &encoded,
		&rec.TotalDurationMinutes, &rec.IsCompleted, &rec.LastSavedAt, &rec.CreatedAt); err != nil {
		return nil, err
	}
	turns, err := decodeTranscript(encoded)
	if err != nil {
		return nil, err
	}
	rec.Transcript = turns
	return &rec, nil
}

func (r *PostgresRepository) CreateFeedback(ctx context.Context, input repository.CreateFeedbackInput) (*repository.FeedbackRecord, error) {
	if _, err := uuid.Parse(input.InterviewID); err != nil {
		return nil, repository.ErrNotFound
	}
	strengths, err := encodeJSON(nonNilStrings(input.Feedback.Strengths))
	if err != nil {
		return nil, err
	}
	improvements, err := encodeJSON(nonNilStrings(input.Feedback.Improvements))
	if err != nil {
		return nil, err
	}
	row := r.pool.QueryRow(ctx,
		`INSERT INTO interview_feedback (user_id, interview_id, overall_score, summary, strengths, improvements)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+feedbackColumns,
		input.UserID, input.InterviewID, input.Feedback.OverallScore, input.Feedback.Summary, strengths, improvements)
	rec, err := scanFeedback(row)
	if err != nil {
		return nil, fmt.Errorf("insert feedback: %w", err)
	}
	return rec, nil
}

const feedbackColumns = `id, user_id, interview_id, overall_score, summary, strengths, improvements, created_at`

func (r *PostgresRepository) GetFeedback(ctx context.Context, userID, interviewID string) (*repository.FeedbackRecord, error) {
	if _, err := uuid.Parse(interviewID); err != nil {
		return nil, repository.ErrNotFound
	}
	row := r.pool.QueryRow(ctx,
		`SELECT `+feedbackColumns+` FROM interview_feedback
		 WHERE user_id = $1 AND interview_id = $2 ORDER BY created_at DESC LIMIT 1`,
		userID, interviewID)
	rec, err := scanFeedback(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get feedback for interview %s: %w", interviewID, err)
	}
	return rec, nil
}

func scanFeedback(row pgx.Row) (*repository.FeedbackRecord, error) {
	var rec repository.FeedbackRecord
	var strengths, improvements []byte
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.InterviewID, &rec.Feedback.OverallScore, &rec.Feedback.Summary,
		&strengths, &improvements, &rec.CreatedAt); err != nil {
		return nil, err
	}
	var err error
	if rec.Feedback.Strengths, err = decodeStrings(strengths); err != nil {
		return nil, err
	}
	if rec.Feedback.Improvements, err = decodeStrings(improvements); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *PostgresRepository) AddBookmark(ctx context.Context, userID, interviewID string) error {
	if _, err := uuid.Parse(interviewID); err != nil {
		return repository.ErrNotFound
	}
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO bookmarks (user_id, interview_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, interviewID)
	if err != nil {
		return fmt.Errorf("add bookmark: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrAlreadyExists
	}
	return nil
}

func (r *PostgresRepository) RemoveBookmark(ctx context.Context, userID, interviewID string) error {
	if _, err := uuid.Parse(interviewID); err != nil {
		return repository.ErrNotFound
	}
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM bookmarks WHERE user_id = $1 AND interview_id = $2`,
		userID, interviewID)
	if err != nil {
		return fmt.Errorf("remove bookmark: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// activityQuery selects interviews with the user's flags. $1 is the user id.
const activityQuery = `SELECT i.id, i.user_id, i.company, i.role, i.technologies, i.difficulty, i.duration_minutes, i.questions, i.description, i.created_at, i.updated_at,
        EXISTS (SELECT 1 FROM bookmarks b WHERE b.interview_id = i.id AND b.user_id = $1),
        p.id IS NOT NULL,
        COALESCE(p.is_completed, FALSE),
        EXISTS (SELECT 1 FROM interview_feedback f WHERE f.interview_id = i.id AND f.user_id = $1)
 FROM interviews i
 LEFT JOIN interview_progress p ON p.interview_id = i.id AND p.user_id = $1`

func (r *PostgresRepository) ListOwnedInterviews(ctx context.Context, userID string) ([]repository.InterviewActivity, error) {
	return r.listActivity(ctx, "owned", activityQuery+` WHERE i.user_id = $1 ORDER BY i.created_at DESC`, userID)
}

func (r *PostgresRepository) ListCompletedInterviews(ctx context.Context, userID string) ([]repository.InterviewActivity, error) {
	return r.listActivity(ctx, "completed", activityQuery+` WHERE p.is_completed ORDER BY i.created_at DESC`, userID)
}

func (r *PostgresRepository) ListBookmarkedInterviews(ctx context.Context, userID string) ([]repository.InterviewActivity, error) {
	return r.listActivity(ctx, "bookmarked",
		activityQuery+` WHERE EXISTS (SELECT 1 FROM bookmarks b WHERE b.interview_id = i.id AND b.user_id = $1) ORDER BY i.created_at DESC`,
		userID)
}

func (r *PostgresRepository) listActivity(ctx context.Context, kind, query, userID string) ([]repository.InterviewActivity, error) {
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list %s interviews: %w", kind, err)
	}
	defer rows.Close()
	list := []repository.InterviewActivity{}
	for rows.Next() {
		var a repository.InterviewActivity
		var technologies, questions []byte
		var difficulty string
		if err := rows.Scan(&a.ID, &a.UserID, &a.Company, &a.Role, &technologies, &difficulty, &a.DurationMinutes, &questions, &a.Description, &a.CreatedAt, &a.UpdatedAt,
			&a.IsBookmarked, &a.IsStarted, &a.IsCompleted, &a.HasFeedback); err != nil {
			return nil, fmt.Errorf("scan %s interview: %w", kind, err)
		}
		a.Difficulty = interviewDifficulty(difficulty)
		if a.Technologies, err = decodeStrings(technologies); err != nil {
			return nil, err
		}
		if a.Questions, err = decodeQuestions(questions); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}
