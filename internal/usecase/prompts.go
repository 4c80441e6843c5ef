package usecase

import (
	"fmt"
	"strings"

	"github.com/fairyhunter13/ai-interview-coach/internal/config"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	"github.com/fairyhunter13/ai-interview-coach/pkg/textx"
)

const jobDescriptionMaxChars = 4000

// buildSystemPrompt renders the interviewer instructions. The output depends
// only on its inputs so it can be rebuilt on every turn.
func buildSystemPrompt(sess domain.PracticeSession, sc config.StageCatalog, questions []domain.Question, jd *domain.JobDescription) string {
	p := sess.Persona
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, %s", p.Name, p.Role)
	if sess.Company != "" {
		fmt.Fprintf(&b, " at %s", sess.Company)
	}
	fmt.Fprintf(&b, ", conducting a %s for the position of %s.\n", strings.ToLower(sc.Title), sess.Position)
	if p.Personality != "" {
		fmt.Fprintf(&b, "Personality: %s.\n", p.Personality)
	}
	if p.Style != "" {
		fmt.Fprintf(&b, "Interview style: %s.\n", p.Style)
	}
	if p.Background != "" {
		fmt.Fprintf(&b, "Background: %s\n", p.Background)
	}
	if p.Objectives != "" {
		fmt.Fprintf(&b, "Objectives: %s\n", p.Objectives)
	}
	if sess.Industry != "" {
		fmt.Fprintf(&b, "Industry: %s.\n", sess.Industry)
	}
	if sc.Focus != "" {
		fmt.Fprintf(&b, "\nFocus of this stage: %s\n", sc.Focus)
	}
	if len(questions) > 0 {
		b.WriteString("\nQuestions you may draw from:\n")
		for _, q := range questions {
			fmt.Fprintf(&b, "- %s\n", q.Text)
		}
	}
	if jd != nil && strings.TrimSpace(jd.Text) != "" {
		text, _ := textx.Truncate(strings.TrimSpace(jd.Text), jobDescriptionMaxChars)
		fmt.Fprintf(&b, "\nJob description (%s):\n%s\n", jd.Title, text)
	}
	b.WriteString(`
Rules:
- Stay in character as the interviewer for the whole conversation.
- Ask exactly one question per turn and keep each reply under 120 words.
- React briefly to the candidate's previous answer before asking the next question.
- Ask follow-up questions when an answer lacks specifics or results.
- Never evaluate or score the candidate during the interview.`)
	return b.String()
}
