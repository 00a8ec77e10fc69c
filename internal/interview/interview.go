package interview

import (
	"fmt"
	"strings"
)

type Difficulty string

const (
	DifficultyBeginner     Difficulty = "Beginner"
	DifficultyIntermediate Difficulty = "Intermediate"
	DifficultyAdvanced     Difficulty = "Advanced"
	DifficultyExpert       Difficulty = "Expert"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced, DifficultyExpert:
		return true
	default:
		return false
	}
}

type Category string

const (
	CategoryConceptual Category = "conceptual"
	CategoryScenario   Category = "scenario"
)

// Question follow-ups and hints are ordered weakest to strongest.
type Question struct {
	Text      string   `json:"question"`
	Category  Category `json:"type,omitempty"`
	FollowUps []string `json:"followups"`
	Hints     []string `json:"hints"`
}

type Definition struct {
	ID              string     `json:"id"`
	OwnerID         string     `json:"userId,omitempty"`
	Company         string     `json:"company"`
	Role            string     `json:"role"`
	Technologies    []string   `json:"technologies"`
	Difficulty      Difficulty `json:"difficulty"`
	DurationMinutes float64    `json:"duration"`
	Questions       []Question `json:"questions"`
	Description     string     `json:"description"`
}

type Feedback struct {
	OverallScore int      `json:"overallScore"`
	Summary      string   `json:"summary"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
}

// FormatQuestions flattens questions and their follow-ups into the text
// block handed to the voice agent.
func FormatQuestions(questions []Question) string {
	blocks := make([]string, 0, len(questions))
	for _, q := range questions {
		var b strings.Builder
		b.WriteString(strings.TrimSpace(q.Text))
		for i, f := range q.FollowUps {
			fmt.Fprintf(&b, "\nFollow-up %d: %s", i+1, strings.TrimSpace(f))
		}
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n")
}
