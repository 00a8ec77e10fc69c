package repository

import (
	"encoding/json"
	"fmt"

	"github.com/foxseedlab/mensetsu/internal/interview"
	"github.com/foxseedlab/mensetsu/internal/progress"
	"github.com/foxseedlab/mensetsu/internal/transcript"
)

// Transcripts are stored in the same {role, content, timestamp} shape the
// progress API uses.
func encodeTranscript(turns []transcript.Turn) ([]byte, error) {
	b, err := json.Marshal(progress.ToWireTurns(turns))
	if err != nil {
		return nil, fmt.Errorf("encode transcript: %w", err)
	}
	return b, nil
}

func decodeTranscript(b []byte) ([]transcript.Turn, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var wire []progress.WireTurn
	if err := json.Unmarshal(b, &wire); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}
	return progress.FromWireTurns(wire), nil
}

func encodeJSON(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json column: %w", err)
	}
	return b, nil
}

func decodeStrings(b []byte) ([]string, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode string list: %w", err)
	}
	return out, nil
}

func decodeQuestions(b []byte) ([]interview.Question, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var out []interview.Question
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	return out, nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilQuestions(q []interview.Question) []interview.Question {
	if q == nil {
		return []interview.Question{}
	}
	return q
}

func interviewDifficulty(s string) interview.Difficulty {
	return interview.Difficulty(s)
}
