package repository

import (
	"time"

	"github.com/foxseedlab/mensetsu/internal/interview"
	"github.com/foxseedlab/mensetsu/internal/transcript"
)

type InterviewRecord struct {
	ID              string
	UserID          string
	Company         string
	Role            string
	Technologies    []string
	Difficulty      interview.Difficulty
	DurationMinutes float64
	Questions       []interview.Question
	Description     string
	IsBookmarked    bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (r InterviewRecord) Definition() interview.Definition {
	return interview.Definition{
		ID:              r.ID,
		OwnerID:         r.UserID,
		Company:         r.Company,
		Role:            r.Role,
		Technologies:    r.Technologies,
		Difficulty:      r.Difficulty,
		DurationMinutes: r.DurationMinutes,
		Questions:       r.Questions,
		Description:     r.Description,
	}
}

// InterviewActivity is an interview together with one user's standing on it.
type InterviewActivity struct {
	InterviewRecord
	IsStarted   bool
	IsCompleted bool
	HasFeedback bool
}

// ProgressRecord is unique per (UserID, InterviewID).
type ProgressRecord struct {
	ID                   string
	UserID               string
	InterviewID          string
	SessionID            string
	TimeRemainingSeconds int
	Transcript           []transcript.Turn
	TotalDurationMinutes float64
	IsCompleted          bool
	LastSavedAt          time.Time
	CreatedAt            time.Time
}

type FeedbackRecord struct {
	ID          string
	UserID      string
	InterviewID string
	Feedback    interview.Feedback
	CreatedAt   time.Time
}
