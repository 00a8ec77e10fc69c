package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/foxseedlab/mensetsu/internal/interview"
	"github.com/foxseedlab/mensetsu/internal/llm"
	"github.com/foxseedlab/mensetsu/internal/retry"
)

var (
	ErrInvalidParams   = errors.New("invalid generation parameters")
	ErrInvalidResponse = errors.New("invalid model response")
)

// Grading runs cool so repeated attempts score alike; question writing runs
// warmer for variety.
const (
	questionsTemperature   = 0.7
	descriptionTemperature = 0.5
	descriptionMaxTokens   = 400
	feedbackTemperature    = 0.2
)

type QuestionParams struct {
	Company         string
	Role            string
	Difficulty      interview.Difficulty
	Technologies    []string
	DurationMinutes float64
	Description     string
}

func (p QuestionParams) validate() error {
	if strings.TrimSpace(p.Company) == "" || strings.TrimSpace(p.Role) == "" || p.Difficulty == "" ||
		len(p.Technologies) == 0 || p.DurationMinutes <= 0 || strings.TrimSpace(p.Description) == "" {
		return fmt.Errorf("%w: company, role, difficulty, technologies, duration and description are required", ErrInvalidParams)
	}
	return nil
}

type DescriptionParams struct {
	Company      string
	Role         string
	Difficulty   interview.Difficulty
	Technologies []string
}

func (p DescriptionParams) validate() error {
	if strings.TrimSpace(p.Company) == "" || strings.TrimSpace(p.Role) == "" || p.Difficulty == "" || len(p.Technologies) == 0 {
		return fmt.Errorf("%w: company, role, difficulty and technologies are required", ErrInvalidParams)
	}
	return nil
}

type Generator struct {
	llm    llm.Client
	policy retry.Policy
}

func New(client llm.Client, policy retry.Policy) *Generator {
	return &Generator{llm: client, policy: policy}
}

// GenerateQuestions retries until the model returns a non-empty, valid
// question array or the policy runs out of attempts.
func (g *Generator) GenerateQuestions(ctx context.Context, p QuestionParams) ([]interview.Question, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	prompt := questionsPrompt(p)

	var questions []interview.Question
	err := g.policy.Do(ctx, "generate questions", func(ctx context.Context) error {
		raw, err := g.llm.Complete(ctx, llm.Request{
			Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
			Temperature: questionsTemperature,
		})
		if err != nil {
			return err
		}
		parsed, err := ParseQuestions(CleanJSON(raw))
		if err != nil {
			return err
		}
		if len(parsed) == 0 {
			return fmt.Errorf("%w: empty question list", ErrInvalidResponse)
		}
		questions = parsed
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate questions: %w", err)
	}
	slog.Info("generated interview questions", "company", p.Company, "role", p.Role, "count", len(questions))
	return questions, nil
}

func (g *Generator) GenerateDescription(ctx context.Context, p DescriptionParams) (string, error) {
	if err := p.validate(); err != nil {
		return "", err
	}
	var description string
	err := g.policy.Do(ctx, "generate description", func(ctx context.Context) error {
		raw, err := g.llm.Complete(ctx, llm.Request{
			Messages:    []llm.Message{{Role: llm.RoleUser, Content: descriptionPrompt(p)}},
			Temperature: descriptionTemperature,
			MaxTokens:   descriptionMaxTokens,
		})
		if err != nil {
			return err
		}
		description = strings.TrimSpace(raw)
		if description == "" {
			return fmt.Errorf("%w: empty description", ErrInvalidResponse)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate description: %w", err)
	}
	return description, nil
}

func (g *Generator) GenerateFeedback(ctx context.Context, transcriptText string) (*interview.Feedback, error) {
	if strings.TrimSpace(transcriptText) == "" {
		return nil, fmt.Errorf("%w: transcript is empty", ErrInvalidParams)
	}
	req := llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: feedbackSystemPrompt},
			{Role: llm.RoleUser, Content: feedbackPrompt(transcriptText)},
		},
		JSON:        true,
		Temperature: feedbackTemperature,
	}
	var feedback *interview.Feedback
	err := g.policy.Do(ctx, "generate feedback", func(ctx context.Context) error {
		raw, err := g.llm.Complete(ctx, req)
		if err != nil {
			return err
		}
		parsed, err := ParseFeedback(CleanJSON(raw))
		if err != nil {
			return err
		}
		feedback = parsed
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate feedback: %w", err)
	}
	return feedback, nil
}

var (
	leadingFence  = regexp.MustCompile("(?i)^\\s*```(?:json)?\\s*")
	trailingFence = regexp.MustCompile("\\s*```\\s*$")
)

// CleanJSON strips a surrounding markdown code fence.
func CleanJSON(s string) string {
	s = leadingFence.ReplaceAllString(s, "")
	s = trailingFence.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

type rawQuestion struct {
	Question  *string  `json:"question"`
	Type      string   `json:"type"`
	FollowUps []string `json:"followups"`
	Hints     []string `json:"hints"`
}

func ParseQuestions(s string) ([]interview.Question, error) {
	var raw []rawQuestion
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	out := make([]interview.Question, 0, len(raw))
	for i, item := range raw {
		if item.Question == nil || strings.TrimSpace(*item.Question) == "" {
			return nil, fmt.Errorf("%w: question %d is missing or invalid", ErrInvalidResponse, i+1)
		}
		out = append(out, interview.Question{
			Text:      strings.TrimSpace(*item.Question),
			Category:  interview.Category(strings.TrimSpace(item.Type)),
			FollowUps: trimAll(item.FollowUps),
			Hints:     trimAll(item.Hints),
		})
	}
	return out, nil
}

func ParseFeedback(s string) (*interview.Feedback, error) {
	var fb interview.Feedback
	if err := json.Unmarshal([]byte(s), &fb); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if strings.TrimSpace(fb.Summary) == "" {
		return nil, fmt.Errorf("%w: feedback summary is empty", ErrInvalidResponse)
	}
	if fb.OverallScore < 0 || fb.OverallScore > 100 {
		return nil, fmt.Errorf("%w: overall score %d out of range", ErrInvalidResponse, fb.OverallScore)
	}
	fb.Summary = strings.TrimSpace(fb.Summary)
	fb.Strengths = trimAll(fb.Strengths)
	fb.Improvements = trimAll(fb.Improvements)
	return &fb, nil
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}
