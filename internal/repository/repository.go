package repository

import (
	"context"
	"errors"
	"time"

	"github.com/foxseedlab/mensetsu/internal/interview"
	"github.com/foxseedlab/mensetsu/internal/transcript"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
)

type CreateInterviewInput struct {
	UserID          string
	Company         string
	Role            string
	Technologies    []string
	Difficulty      interview.Difficulty
	DurationMinutes float64
	Questions       []interview.Question
	Description     string
}

type UpsertProgressInput struct {
	UserID               string
	InterviewID          string
	SessionID            string
	TimeRemainingSeconds int
	Transcript           []transcript.Turn
	TotalDurationMinutes float64
	IsCompleted          bool
	SavedAt              time.Time
}

type CreateFeedbackInput struct {
	UserID      string
	InterviewID string
	Feedback    interview.Feedback
}

type InterviewRepository interface {
	CreateInterview(ctx context.Context, input CreateInterviewInput) (*InterviewRecord, error)
	// GetInterview returns ErrNotFound when the interview does not exist.
	GetInterview(ctx context.Context, interviewID string) (*InterviewRecord, error)
	ListInterviews(ctx context.Context, userID string) ([]InterviewRecord, error)
}

type ProgressRepository interface {
	UpsertProgress(ctx context.Context, input UpsertProgressInput) (*ProgressRecord, error)
	// GetActiveProgress returns ErrNotFound unless a non-completed record exists.
	GetActiveProgress(ctx context.Context, userID, interviewID string) (*ProgressRecord, error)
	GetLatestProgress(ctx context.Context, userID, interviewID string) (*ProgressRecord, error)
}

type FeedbackRepository interface {
	CreateFeedback(ctx context.Context, input CreateFeedbackInput) (*FeedbackRecord, error)
	GetFeedback(ctx context.Context, userID, interviewID string) (*FeedbackRecord, error)
}

type BookmarkRepository interface {
	AddBookmark(ctx context.Context, userID, interviewID string) error
	RemoveBookmark(ctx context.Context, userID, interviewID string) error
}

// ActivityRepository backs the dashboard lists. Every record carries the
// given user's progress and feedback flags.
type ActivityRepository interface {
	// ListOwnedInterviews returns the interviews the user created.
	ListOwnedInterviews(ctx context.Context, userID string) ([]InterviewActivity, error)
	// ListCompletedInterviews returns the interviews the user has completed.
	ListCompletedInterviews(ctx context.Context, userID string) ([]InterviewActivity, error)
	// ListBookmarkedInterviews returns the interviews the user bookmarked.
	ListBookmarkedInterviews(ctx context.Context, userID string) ([]InterviewActivity, error)
}

type Repository interface {
	InterviewRepository
	ProgressRepository
	FeedbackRepository
	BookmarkRepository
	ActivityRepository
	Close()
}
