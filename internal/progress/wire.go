package progress

import (
	"time"

	"github.com/foxseedlab/mensetsu/internal/transcript"
)

type WireTurn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type SaveRequest struct {
	InterviewID   string     `json:"interviewId"`
	SessionID     string     `json:"sessionId"`
	TimeRemaining int        `json:"timeRemaining"`
	Transcript    []WireTurn `json:"transcript"`
	TotalDuration float64    `json:"totalDuration"`
	IsCompleted   bool       `json:"isCompleted"`
}

type SnapshotData struct {
	SessionID     string     `json:"sessionId"`
	TimeRemaining int        `json:"timeRemaining"`
	Transcript    []WireTurn `json:"transcript"`
	TotalDuration float64    `json:"totalDuration"`
	IsCompleted   bool       `json:"isCompleted"`
	LastSaved     time.Time  `json:"lastSaved"`
}

type LoadResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message,omitempty"`
	Data    *SnapshotData `json:"data,omitempty"`
}

type SaveResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func ToWireTurns(turns []transcript.Turn) []WireTurn {
	out := make([]WireTurn, 0, len(turns))
	for _, t := range turns {
		out = append(out, WireTurn{Role: t.Speaker.Role(), Content: t.Text, Timestamp: t.Timestamp})
	}
	return out
}

// FromWireTurns drops entries that cannot form a valid turn.
func FromWireTurns(turns []WireTurn) []transcript.Turn {
	out := make([]transcript.Turn, 0, len(turns))
	for _, w := range turns {
		t, err := transcript.NewTurn(w.Role, w.Content, w.Timestamp)
		if err != nil {
			continue
		}
		out = append(out, t)
	}
	return out
}

func NewSaveRequest(interviewID string, in SaveInput) SaveRequest {
	return SaveRequest{
		InterviewID:   interviewID,
		SessionID:     in.SessionID,
		TimeRemaining: in.TimeRemainingSeconds,
		Transcript:    ToWireTurns(in.Transcript),
		TotalDuration: in.TotalDurationMinutes,
		IsCompleted:   in.IsCompleted,
	}
}

func (d SnapshotData) Snapshot(interviewID string) *Snapshot {
	return &Snapshot{
		InterviewID:          interviewID,
		SessionID:            d.SessionID,
		TimeRemainingSeconds: d.TimeRemaining,
		Transcript:           FromWireTurns(d.Transcript),
		TotalDurationMinutes: d.TotalDuration,
		IsCompleted:          d.IsCompleted,
		LastSavedAt:          d.LastSaved,
	}
}
