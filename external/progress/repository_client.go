package progress

import (
	"context"
	"errors"
	"time"

	"github.com/foxseedlab/mensetsu/internal/progress"
	"github.com/foxseedlab/mensetsu/internal/repository"
)

// RepositoryClient serves the progress port in-process for a single user.
type RepositoryClient struct {
	repo   repository.ProgressRepository
	userID string
	now    func() time.Time
}

func NewRepositoryClient(repo repository.ProgressRepository, userID string) *RepositoryClient {
	return &RepositoryClient{repo: repo, userID: userID, now: time.Now}
}

func (c *RepositoryClient) Save(ctx context.Context, interviewID string, input progress.SaveInput) error {
	remaining := input.TimeRemainingSeconds
	if remaining < 0 {
		remaining = 0
	}
	_, err := c.repo.UpsertProgress(ctx, repository.UpsertProgressInput{
		UserID:               c.userID,
		InterviewID:          interviewID,
		SessionID:            input.SessionID,
		TimeRemainingSeconds: remaining,
		Transcript:           input.Transcript,
		TotalDurationMinutes: input.TotalDurationMinutes,
		IsCompleted:          input.IsCompleted || input.TimeRemainingSeconds <= 0,
		SavedAt:              c.now(),
	})
	if errors.Is(err, repository.ErrNotFound) {
		return errors.Join(progress.ErrSaveRejected, err)
	}
	return err
}

func (c *RepositoryClient) Load(ctx context.Context, interviewID string) (*progress.Snapshot, error) {
	rec, err := c.repo.GetActiveProgress(ctx, c.userID, interviewID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, progress.ErrNoProgress
		}
		return nil, err
	}
	return &progress.Snapshot{
		InterviewID:          rec.InterviewID,
		SessionID:            rec.SessionID,
		TimeRemainingSeconds: rec.TimeRemainingSeconds,
		Transcript:           rec.Transcript,
		TotalDurationMinutes: rec.TotalDurationMinutes,
		IsCompleted:          rec.IsCompleted,
		LastSavedAt:          rec.LastSavedAt,
	}, nil
}
