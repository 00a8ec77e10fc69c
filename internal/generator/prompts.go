package generator

import (
	"fmt"
	"strconv"
	"strings"
)

const questionsPromptTemplate = `You are an expert technical interviewer.

Your task is to generate a set of structured interview questions that are:
- Vocally explainable (no code editor, no implementation-heavy problems).
- Conceptual (theory, principles, trade-offs) and scenario-based (real-world cases, applied reasoning), in roughly equal proportion.
- Aligned with the given role, company, and required technologies.
- Matched to the requested difficulty.
- Sized so the whole set fits within the interview duration (%[5]s minutes).

The interview is for:
Role: %[1]s
Company: %[2]s
Technologies: %[3]s
Difficulty: %[4]s
Duration: %[5]s minutes
Company Context: %[6]s

For each question, provide output in this structure:

{
  "question": "string",
  "type": "conceptual | scenario",
  "followups": ["basic follow-up", "intermediate follow-up", "advanced follow-up"],
  "hints": ["smallest nudge", "medium nudge", "detailed nudge"]
}

Rules:
1. Follow-up questions must be in increasing order of depth.
2. Hints must be in increasing order of detail.
3. Avoid coding problems; keep everything vocally explainable.
4. Output must be a valid JSON array of these objects and nothing else.
`

const descriptionPromptTemplate = `You are a helpful assistant that generates a job description for an interview.
Company: %s
Role: %s
Difficulty: %s
Technologies: %s
Generate a brief job description for the interview in 100 words.
Return only the job description, no other text.
`

const feedbackSystemPrompt = `You are an experienced technical interviewer reviewing a finished mock interview.
Lines starting with "agent:" are the interviewer, lines starting with "user:" are the candidate.
Judge only the candidate's answers.`

const feedbackPromptTemplate = `Transcript:
%s

Return a JSON object with exactly these fields and nothing else:
{
  "overallScore": integer from 0 to 100,
  "summary": "two or three sentences",
  "strengths": ["string"],
  "improvements": ["string"]
}
`

func questionsPrompt(p QuestionParams) string {
	return fmt.Sprintf(questionsPromptTemplate,
		p.Role, p.Company, strings.Join(p.Technologies, ", "), string(p.Difficulty),
		formatMinutes(p.DurationMinutes), p.Description)
}

func descriptionPrompt(p DescriptionParams) string {
	return fmt.Sprintf(descriptionPromptTemplate, p.Company, p.Role, string(p.Difficulty), strings.Join(p.Technologies, ", "))
}

func feedbackPrompt(transcriptText string) string {
	return fmt.Sprintf(feedbackPromptTemplate, transcriptText)
}

func formatMinutes(m float64) string {
	return strconv.FormatFloat(m, 'f', -1, 64)
}
