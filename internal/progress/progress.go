package progress

import (
	"context"
	"errors"
	"time"

	"github.com/foxseedlab/mensetsu/internal/transcript"
	"github.com/google/uuid"
)

var (
	// ErrNoProgress covers both "no record" and "backend answered success:false".
	ErrNoProgress   = errors.New("no saved progress")
	ErrSaveRejected = errors.New("progress save rejected")
)

type Snapshot struct {
	InterviewID          string
	SessionID            string
	TimeRemainingSeconds int
	Transcript           []transcript.Turn
	TotalDurationMinutes float64
	IsCompleted          bool
	LastSavedAt          time.Time
}

type SaveInput struct {
	SessionID            string
	TimeRemainingSeconds int
	Transcript           []transcript.Turn
	TotalDurationMinutes float64
	IsCompleted          bool
}

type Client interface {
	Save(ctx context.Context, interviewID string, input SaveInput) error
	Load(ctx context.Context, interviewID string) (*Snapshot, error)
}

// NewSessionID returns a time-ordered id with a random suffix.
func NewSessionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
