package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/foxseedlab/mensetsu/internal/repository"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS interviews (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		company TEXT NOT NULL,
		role TEXT NOT NULL,
		technologies TEXT NOT NULL DEFAULT '[]',
		difficulty TEXT NOT NULL,
		duration_minutes REAL NOT NULL,
		questions TEXT NOT NULL DEFAULT '[]',
		description TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_interviews_created_at ON interviews(created_at)`,
	`CREATE TABLE IF NOT EXISTS interview_progress (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		interview_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		time_remaining INTEGER NOT NULL,
		transcript TEXT NOT NULL DEFAULT '[]',
		total_duration REAL NOT NULL,
		is_completed INTEGER NOT NULL DEFAULT 0,
		last_saved TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE(user_id, interview_id),
		FOREIGN KEY(interview_id) REFERENCES interviews(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS interview_feedback (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		interview_id TEXT NOT NULL,
		overall_score INTEGER NOT NULL,
		summary TEXT NOT NULL,
		strengths TEXT NOT NULL DEFAULT '[]',
		improvements TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL,
		FOREIGN KEY(interview_id) REFERENCES interviews(id) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_interview_feedback_lookup ON interview_feedback(user_id, interview_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS bookmarks (
		user_id TEXT NOT NULL,
		interview_id TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (user_id, interview_id),
		FOREIGN KEY(interview_id) REFERENCES interviews(id) ON DELETE CASCADE
	)`,
}

// SQLiteRepository is the single-file backend used for local development
// and the playground.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if strings.TrimSpace(dbPath) == "" {
		dbPath = filepath.Join("data", "mensetsu.db")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	r := &SQLiteRepository{db: db, now: time.Now}
	if err := r.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *SQLiteRepository) init() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := r.db.Exec(p); err != nil {
			return fmt.Errorf("apply pragma %q: %w", p, err)
		}
	}
	for _, stmt := range sqliteSchema {
		if _, err := r.db.Exec(stmt); err != nil {
			return fmt.Errorf("apply sqlite schema: %w", err)
		}
	}
	return nil
}

func (r *SQLiteRepository) Close() {
	if r == nil || r.db == nil {
		return
	}
	_ = r.db.Close()
}

func (r *SQLiteRepository) timestamp() string {
	return formatTime(r.now())
}

// Fixed-width fractions keep the TEXT columns sortable.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseTime(column, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %s: %w", column, err)
	}
	return t, nil
}

func (r *SQLiteRepository) CreateInterview(ctx context.Context, input repository.CreateInterviewInput) (*repository.InterviewRecord, error) {
	technologies, err := encodeJSON(nonNilStrings(input.Technologies))
	if err != nil {
		return nil, err
	}
	questions, err := encodeJSON(nonNilQuestions(input.Questions))
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	ts := r.timestamp()
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO interviews(id, user_id, company, role, technologies, difficulty, duration_minutes, questions, description, created_at, updated_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, input.UserID, input.Company, input.Role, string(technologies), string(input.Difficulty),
		input.DurationMinutes, string(questions), input.Description, ts, ts,
	); err != nil {
		return nil, fmt.Errorf("insert interview: %w", err)
	}
	return r.GetInterview(ctx, id)
}

const sqliteInterviewColumns = `id, user_id, company, role, technologies, difficulty, duration_minutes, questions, description, created_at, updated_at`

func (r *SQLiteRepository) GetInterview(ctx context.Context, interviewID string) (*repository.InterviewRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sqliteInterviewColumns+` FROM interviews WHERE id = ?`, interviewID)
	rec, err := scanSQLiteInterview(row, nil)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get interview %s: %w", interviewID, err)
	}
	return rec, nil
}

func (r *SQLiteRepository) ListInterviews(ctx context.Context, userID string) ([]repository.InterviewRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT i.id, i.user_id, i.company, i.role, i.technologies, i.difficulty, i.duration_minutes, i.questions, i.description, i.created_at, i.updated_at,
		        EXISTS (SELECT 1 FROM bookmarks b WHERE b.interview_id = i.id AND b.user_id = ?)
		 FROM interviews i ORDER BY i.created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list interviews: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var list []repository.InterviewRecord
	for rows.Next() {
		var bookmarked bool
		rec, err := scanSQLiteInterview(rows, &bookmarked)
		if err != nil {
			return nil, fmt.Errorf("scan interview: %w", err)
		}
		rec.IsBookmarked = bookmarked
		list = append(list, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interview rows: %w", err)
	}
	return list, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteInterview(row rowScanner, bookmarked *bool) (*repository.InterviewRecord, error) {
	var rec repository.InterviewRecord
	var technologies, questions, difficulty, createdAt, updatedAt string
	dest := []any{&rec.ID, &rec.UserID, &rec.Company, &rec.Role, &technologies, &difficulty, &rec.DurationMinutes, &questions, &rec.Description, &createdAt, &updatedAt}
	if bookmarked != nil {
		dest = append(dest, bookmarked)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	rec.Difficulty = interviewDifficulty(difficulty)
	var err error
	if rec.Technologies, err = decodeStrings([]byte(technologies)); err != nil {
		return nil, err
	}
	if rec.Questions, err = decodeQuestions([]byte(questions)); err != nil {
		return nil, err
	}
	if rec.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return nil, err
	}
	if rec.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *SQLiteRepository) UpsertProgress(ctx context.Context, input repository.UpsertProgressInput) (*repository.ProgressRecord, error) {
	encoded, err := encodeTranscript(input.Transcript)
	if err != nil {
		return nil, err
	}
	savedAt := input.SavedAt
	if savedAt.IsZero() {
		savedAt = r.now()
	}
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO interview_progress(id, user_id, interview_id, session_id, time_remaining, transcript, total_duration, is_completed, last_saved, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, interview_id) DO UPDATE SET
		   session_id = excluded.session_id,
		   time_remaining = excluded.time_remaining,
		   transcript = excluded.transcript,
		   total_duration = excluded.total_duration,
		   is_completed = excluded.is_completed,
		   last_saved = excluded.last_saved`,
		uuid.NewString(), input.UserID, input.InterviewID, input.SessionID, input.TimeRemainingSeconds, string(encoded),
		input.TotalDurationMinutes, input.IsCompleted, formatTime(savedAt), r.timestamp(),
	); err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY") {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("upsert progress: %w", err)
	}
	return r.GetLatestProgress(ctx, input.UserID, input.InterviewID)
}

const sqliteProgressColumns = `id, user_id, interview_id, session_id, time_remaining, transcript, total_duration, is_completed, last_saved, created_at`

func (r *SQLiteRepository) GetActiveProgress(ctx context.Context, userID, interviewID string) (*repository.ProgressRecord, error) {
	return r.getProgress(ctx,
		`SELECT `+sqliteProgressColumns+` FROM interview_progress WHERE user_id = ? AND interview_id = ? AND is_completed = 0`,
		userID, interviewID)
}

func (r *SQLiteRepository) GetLatestProgress(ctx context.Context, userID, interviewID string) (*repository.ProgressRecord, error) {
	return r.getProgress(ctx,
		`SELECT `+sqliteProgressColumns+` FROM interview_progress WHERE user_id = ? AND interview_id = ? ORDER BY last_saved DESC LIMIT 1`,
		userID, interviewID)
}

func (r *SQLiteRepository) getProgress(ctx context.Context, query, userID, interviewID string) (*repository.ProgressRecord, error) {
	var rec repository.ProgressRecord
	var encoded, lastSaved, createdAt string
	err := r.db.QueryRowContext(ctx, query, userID, interviewID).Scan(
		&rec.ID, &rec.UserID, &rec.InterviewID, &rec.SessionID, &rec.TimeRemainingSeconds, &encoded,
		&rec.TotalDurationMinutes, &rec.IsCompleted, &lastSaved, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get progress for interview %s: %w", interviewID, err)
	}
	if rec.Transcript, err = decodeTranscript([]byte(encoded)); err != nil {
		return nil, err
	}
	if rec.LastSavedAt, err = parseTime("last_saved", lastSaved); err != nil {
		return nil, err
	}
	if rec.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *SQLiteRepository) CreateFeedback(ctx context.Context, input repository.CreateFeedbackInput) (*repository.FeedbackRecord, error) {
	strengths, err := encodeJSON(nonNilStrings(input.Feedback.Strengths))
	if err != nil {
		return nil, err
	}
	improvements, err := encodeJSON(nonNilStrings(input.Feedback.Improvements))
	if err != nil {
		return nil, err
	}
	rec := &repository.FeedbackRecord{
		ID:          uuid.NewString(),
		UserID:      input.UserID,
		InterviewID: input.InterviewID,
		Feedback:    input.Feedback,
		CreatedAt:   r.now().UTC(),
	}
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO interview_feedback(id, user_id, interview_id, overall_score, summary, strengths, improvements, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.InterviewID, input.Feedback.OverallScore, input.Feedback.Summary,
		string(strengths), string(improvements), formatTime(rec.CreatedAt),
	); err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY") {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("insert feedback: %w", err)
	}
	return rec, nil
}

func (r *SQLiteRepository) GetFeedback(ctx context.Context, userID, interviewID string) (*repository.FeedbackRecord, error) {
	var rec repository.FeedbackRecord
	var strengths, improvements, createdAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, interview_id, overall_score, summary, strengths, improvements, created_at
		 FROM interview_feedback WHERE user_id = ? AND interview_id = ?
		 ORDER BY created_at DESC LIMIT 1`,
		userID, interviewID,
	).Scan(&rec.ID, &rec.UserID, &rec.InterviewID, &rec.Feedback.OverallScore, &rec.Feedback.Summary, &strengths, &improvements, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get feedback for interview %s: %w", interviewID, err)
	}
	if rec.Feedback.Strengths, err = decodeStrings([]byte(strengths)); err != nil {
		return nil, err
	}
	if rec.Feedback.Improvements, err = decodeStrings([]byte(improvements)); err != nil {
		return nil, err
	}
	if rec.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *SQLiteRepository) AddBookmark(ctx context.Context, userID, interviewID string) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO bookmarks(user_id, interview_id, created_at) VALUES(?, ?, ?) ON CONFLICT DO NOTHING`,
		userID, interviewID, r.timestamp())
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY") {
			return repository.ErrNotFound
		}
		return fmt.Errorf("add bookmark: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("add bookmark rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrAlreadyExists
	}
	return nil
}

func (r *SQLiteRepository) RemoveBookmark(ctx context.Context, userID, interviewID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM bookmarks WHERE user_id = ? AND interview_id = ?`,
		userID, interviewID)
	if err != nil {
		return fmt.Errorf("remove bookmark: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove bookmark rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

const sqliteActivityQuery = `SELECT i.id, i.user_id, i.company, i.role, i.technologies, i.difficulty, i.duration_minutes, i.questions, i.description, i.created_at, i.updated_at,
        EXISTS (SELECT 1 FROM bookmarks b WHERE b.interview_id = i.id AND b.user_id = ?1),
        p.id IS NOT NULL,
        COALESCE(p.is_completed, 0),
        EXISTS (SELECT 1 FROM interview_feedback f WHERE f.interview_id = i.id AND f.user_id = ?1)
 FROM interviews i
 LEFT JOIN interview_progress p ON p.interview_id = i.id AND p.user_id = ?1`

func (r *SQLiteRepository) ListOwnedInterviews(ctx context.Context, userID string) ([]repository.InterviewActivity, error) {
	return r.listActivity(ctx, "owned", sqliteActivityQuery+` WHERE i.user_id = ?1 ORDER BY i.created_at DESC`, userID)
}

func (r *SQLiteRepository) ListCompletedInterviews(ctx context.Context, userID string) ([]repository.InterviewActivity, error) {
	return r.listActivity(ctx, "completed", sqliteActivityQuery+` WHERE p.is_completed = 1 ORDER BY i.created_at DESC`, userID)
}

func (r *SQLiteRepository) ListBookmarkedInterviews(ctx context.Context, userID string) ([]repository.InterviewActivity, error) {
	return r.listActivity(ctx, "bookmarked",
		sqliteActivityQuery+` WHERE EXISTS (SELECT 1 FROM bookmarks b WHERE b.interview_id = i.id AND b.user_id = ?1) ORDER BY i.created_at DESC`,
		userID)
}

func (r *SQLiteRepository) listActivity(ctx context.Context, kind, query, userID string) ([]repository.InterviewActivity, error) {
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list %s interviews: %w", kind, err)
	}
	defer func() { _ = rows.Close() }()

	list := []repository.InterviewActivity{}
	for rows.Next() {
		var bookmarked, started, completed, feedback bool
		rec, err := scanSQLiteInterview(activityRow{rows: rows, flags: []any{&bookmarked, &started, &completed, &feedback}}, nil)
		if err != nil {
			return nil, fmt.Errorf("scan %s interview: %w", kind, err)
		}
		rec.IsBookmarked = bookmarked
		list = append(list, repository.InterviewActivity{
			InterviewRecord: *rec,
			IsStarted:       started,
			IsCompleted:     completed,
			HasFeedback:     feedback,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s interview rows: %w", kind, err)
	}
	return list, nil
}

// activityRow appends the flag columns to the interview scan.
type activityRow struct {
	rows  *sql.Rows
	flags []any
}

func (a activityRow) Scan(dest ...any) error {
	return a.rows.Scan(append(dest, a.flags...)...)
}
