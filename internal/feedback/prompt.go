package feedback

import (
	"fmt"
	"strings"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

const systemPrompt = `You are an experienced interview coach. Evaluate the candidate's answers in the transcript.
Score each criterion from 1 (poor) to 5 (excellent):
- relevance: answers address the question asked
- structured: answers follow a clear structure such as STAR
- specific: answers include concrete details, names and numbers
- honest: answers are candid and first-person
- confident: delivery is assertive without hedging
- aligned: answers connect experience to the role
- outcomeOriented: answers end with measurable results
Respond with a single JSON object and nothing else, using exactly this shape:
{"criteria":{"relevance":{"score":1,"feedback":"...","suggestions":["..."]}, ...all seven criteria...},
 "summary":"...","improvements":["...","..."]}`

// TranscriptInfo describes the session being evaluated.
type TranscriptInfo struct {
	Position       string
	Company        string
	InterviewStage domain.InterviewStage
}

// BuildPrompt renders the evaluation request for a trimmed transcript.
func BuildPrompt(info TranscriptInfo, transcript []domain.ChatMessage) []domain.ChatMessage {
	var b strings.Builder
	fmt.Fprintf(&b, "Position: %s\nCompany: %s\nInterview: %s\n\nTranscript:\n", info.Position, info.Company, info.InterviewStage)
	for _, m := range transcript {
		speaker := "Interviewer"
		if m.Role == domain.RoleUser {
			speaker = "Candidate"
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, m.Content)
	}
	return []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: systemPrompt},
		{Role: domain.RoleUser, Content: b.String()},
	}
}

// AnswerText joins the candidate's turns for heuristic scoring.
func AnswerText(transcript []domain.ChatMessage) string {
	parts := make([]string, 0, len(transcript))
	for _, m := range transcript {
		if m.Role == domain.RoleUser {
			parts = append(parts, m.Content)
		}
	}
	return strings.Join(parts, "\n")
}
