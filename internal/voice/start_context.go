package voice

import (
	"github.com/foxseedlab/mensetsu/internal/interview"
	"github.com/foxseedlab/mensetsu/internal/timebudget"
	"github.com/foxseedlab/mensetsu/internal/transcript"
)

type StartContext struct {
	PriorTranscriptText string
	RemainingMinutes    float64
	QuestionsText       string
}

func BuildStartContext(turns []transcript.Turn, remainingSeconds int, questions []interview.Question) StartContext {
	return StartContext{
		PriorTranscriptText: transcript.FormatForPrompt(turns),
		RemainingMinutes:    timebudget.RemainingMinutes(remainingSeconds),
		QuestionsText:       interview.FormatQuestions(questions),
	}
}

func (sc StartContext) variableValues() VariableValues {
	return VariableValues{Questions: sc.QuestionsText, Transcript: sc.PriorTranscriptText}
}
