package transcript

import (
	"errors"
	"strings"
	"time"
)

var ErrMalformedTurn = errors.New("malformed transcript turn")

type Speaker string

const (
	SpeakerCandidate Speaker = "candidate"
	SpeakerAgent     Speaker = "agent"
)

// Role is the wire label used by the voice vendor and the progress API.
func (s Speaker) Role() string {
	if s == SpeakerCandidate {
		return "user"
	}
	return "agent"
}

// ParseSpeaker maps a vendor role onto a speaker. Unknown non-empty roles
// are attributed to the agent.
func ParseSpeaker(role string) (Speaker, bool) {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "":
		return "", false
	case "user", "candidate":
		return SpeakerCandidate, true
	default:
		return SpeakerAgent, true
	}
}

type Turn struct {
	Speaker   Speaker
	Text      string
	Timestamp time.Time
}

func NewTurn(role, text string, ts time.Time) (Turn, error) {
	speaker, ok := ParseSpeaker(role)
	if !ok {
		return Turn{}, ErrMalformedTurn
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Turn{}, ErrMalformedTurn
	}
	return Turn{Speaker: speaker, Text: text, Timestamp: ts}, nil
}

func (t Turn) valid() bool {
	return (t.Speaker == SpeakerCandidate || t.Speaker == SpeakerAgent) && strings.TrimSpace(t.Text) != ""
}
