package generator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/foxseedlab/mensetsu/internal/interview"
	"github.com/foxseedlab/mensetsu/internal/llm"
	"github.com/foxseedlab/mensetsu/internal/retry"
)

type scriptedLLM struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     []llm.Request
}

func (s *scriptedLLM) Complete(_ context.Context, req llm.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := len(s.calls)
	s.calls = append(s.calls, req)
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return "", errors.New("no scripted response")
}

type recordedSleep struct {
	delays []time.Duration
}

func (r *recordedSleep) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func testParams() QuestionParams {
	return QuestionParams{
		Company:         "Acme",
		Role:            "Backend Engineer",
		Difficulty:      interview.DifficultyAdvanced,
		Technologies:    []string{"Go", "Kafka"},
		DurationMinutes: 30,
		Description:     "Payments platform",
	}
}

const validQuestions = "```json\n[{\"question\": \" Explain backpressure \", \"type\": \"conceptual\", \"followups\": [\" a \", \"b\"], \"hints\": [\"h1\"]}]\n```"

func TestCleanJSON(t *testing.T) {
	tests := map[string]string{
		"```json\n[1]\n```":  "[1]",
		"```JSON [1]```":     "[1]",
		"```\n{\"a\":1}\n```": "{\"a\":1}",
		"  [2]  ":            "[2]",
	}
	for in, want := range tests {
		if got := CleanJSON(in); got != want {
			t.Errorf("CleanJSON(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseQuestions(t *testing.T) {
	qs, err := ParseQuestions(CleanJSON(validQuestions))
	if err != nil {
		t.Fatalf("ParseQuestions failed: %v", err)
	}
	if len(qs) != 1 || qs[0].Text != "Explain backpressure" || qs[0].Category != interview.CategoryConceptual {
		t.Fatalf("unexpected questions: %+v", qs)
	}
	if len(qs[0].FollowUps) != 2 || qs[0].FollowUps[0] != "a" {
		t.Fatalf("expected trimmed follow-ups, got %v", qs[0].FollowUps)
	}

	for _, bad := range []string{`{"question":"x"}`, `[{"type":"scenario"}]`, `[{"question":""}]`, `not json`} {
		if _, err := ParseQuestions(bad); !errors.Is(err, ErrInvalidResponse) {
			t.Errorf("ParseQuestions(%q) expected ErrInvalidResponse, got %v", bad, err)
		}
	}
}

func TestGenerateQuestions_RetriesWithBackoff(t *testing.T) {
	fake := &scriptedLLM{
		errs:      []error{errors.New("503"), nil, nil},
		responses: []string{"", "[]", validQuestions},
	}
	sleeper := &recordedSleep{}
	g := New(fake, retry.Policy{MaxAttempts: 3, Backoff: retry.Exponential(time.Second), Sleep: sleeper.sleep})

	qs, err := g.GenerateQuestions(context.Background(), testParams())
	if err != nil {
		t.Fatalf("GenerateQuestions failed: %v", err)
	}
	if len(qs) != 1 {
		t.Fatalf("expected one question, got %d", len(qs))
	}
	if len(fake.calls) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(fake.calls))
	}
	if len(sleeper.delays) != 2 || sleeper.delays[0] != time.Second || sleeper.delays[1] != 2*time.Second {
		t.Fatalf("unexpected backoff: %v", sleeper.delays)
	}
	prompt := fake.calls[0].Messages[0].Content
	for _, want := range []string{"Role: Backend Engineer", "Technologies: Go, Kafka", "Duration: 30 minutes", "Company Context: Payments platform"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestGenerateQuestions_GivesUp(t *testing.T) {
	fake := &scriptedLLM{responses: []string{"[]", "[]", "[]"}}
	g := New(fake, retry.Policy{MaxAttempts: 3, Sleep: (&recordedSleep{}).sleep})

	if _, err := g.GenerateQuestions(context.Background(), testParams()); !errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}
	if len(fake.calls) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(fake.calls))
	}
}

func TestGenerateQuestions_MissingParams(t *testing.T) {
	fake := &scriptedLLM{}
	g := New(fake, retry.Policy{MaxAttempts: 3})
	p := testParams()
	p.Technologies = nil

	if _, err := g.GenerateQuestions(context.Background(), p); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("expected ErrInvalidParams, got %v", err)
	}
	if len(fake.calls) != 0 {
		t.Fatal("expected no model call")
	}
}

func TestGenerateDescription(t *testing.T) {
	fake := &scriptedLLM{responses: []string{"  Build resilient payment services.  "}}
	g := New(fake, retry.Policy{MaxAttempts: 1})

	got, err := g.GenerateDescription(context.Background(), DescriptionParams{
		Company: "Acme", Role: "SRE", Difficulty: interview.DifficultyBeginner, Technologies: []string{"Linux"},
	})
	if err != nil {
		t.Fatalf("GenerateDescription failed: %v", err)
	}
	if got != "Build resilient payment services." {
		t.Fatalf("unexpected description %q", got)
	}
	if !strings.Contains(fake.calls[0].Messages[0].Content, "100 words") {
		t.Fatal("expected word budget in prompt")
	}
	if req := fake.calls[0]; req.JSON || req.MaxTokens != descriptionMaxTokens {
		t.Fatalf("expected a capped text request, got %+v", req)
	}
}

func TestGenerateFeedback(t *testing.T) {
	fake := &scriptedLLM{responses: []string{"```json\n{\"overallScore\": 72, \"summary\": \" Solid. \", \"strengths\": [\"clear\"], \"improvements\": [\" depth \", \"\"]}\n```"}}
	g := New(fake, retry.Policy{MaxAttempts: 1})

	fb, err := g.GenerateFeedback(context.Background(), "agent: Hi\nuser: Hello")
	if err != nil {
		t.Fatalf("GenerateFeedback failed: %v", err)
	}
	if fb.OverallScore != 72 || fb.Summary != "Solid." || len(fb.Improvements) != 1 || fb.Improvements[0] != "depth" {
		t.Fatalf("unexpected feedback: %+v", fb)
	}
	if fake.calls[0].Messages[0].Role != llm.RoleSystem || !strings.Contains(fake.calls[0].Messages[1].Content, "user: Hello") {
		t.Fatalf("unexpected messages: %+v", fake.calls[0].Messages)
	}
	if req := fake.calls[0]; !req.JSON || req.Temperature != feedbackTemperature {
		t.Fatalf("expected a low temperature JSON request, got %+v", req)
	}

	if _, err := g.GenerateFeedback(context.Background(), "  "); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("expected ErrInvalidParams, got %v", err)
	}
}

func TestParseFeedback_RejectsOutOfRange(t *testing.T) {
	if _, err := ParseFeedback(`{"overallScore": 140, "summary": "x"}`); !errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}
}
