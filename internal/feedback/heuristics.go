package feedback

import (
	"strings"
	"unicode"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	"github.com/fairyhunter13/ai-interview-coach/pkg/textx"
)

var (
	starWords = set("situation", "task", "action", "result", "results", "first", "then", "finally",
		"because", "so", "afterwards", "initially", "next", "outcome")
	outcomeWords = set("achieved", "improved", "increased", "reduced", "delivered", "impact", "saved",
		"grew", "launched", "shipped", "cut", "won", "exceeded", "revenue", "growth", "percent")
	hedgeWords   = set("maybe", "perhaps", "probably", "guess", "somewhat", "possibly", "unsure", "hopefully")
	hedgePhrases = []string{"i think", "kind of", "sort of", "not sure", "i don't know", "i suppose"}
	reflectWords = set("learned", "mistake", "failed", "failure", "challenge", "honestly", "admit", "wrong")
	selfWords    = set("i", "my", "me", "i'm", "i've")
)

func set(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

type signals struct {
	words    int
	star     int
	outcome  int
	hedges   int
	reflect  int
	self     int
	numbers  int
	entities int
}

func analyze(answer string) signals {
	var sg signals
	sentences := strings.FieldsFunc(answer, func(r rune) bool { return r == '.' || r == '!' || r == '?' || r == '\n' })
	for _, sentence := range sentences {
		for i, w := range textx.Words(sentence) {
			sg.words++
			lw := strings.ToLower(w)
			sg.star += has(starWords, lw)
			sg.outcome += has(outcomeWords, lw)
			sg.hedges += has(hedgeWords, lw)
			sg.reflect += has(reflectWords, lw)
			sg.self += has(selfWords, lw)
			r := []rune(w)
			switch {
			case unicode.IsDigit(r[0]):
				sg.numbers++
			case i > 0 && unicode.IsUpper(r[0]) && has(selfWords, lw) == 0:
				sg.entities++
			}
		}
	}
	lower := strings.ToLower(answer)
	for _, p := range hedgePhrases {
		sg.hedges += strings.Count(lower, p)
	}
	sg.numbers += strings.Count(answer, "%")
	return sg
}

func has(m map[string]struct{}, w string) int {
	if _, ok := m[w]; ok {
		return 1
	}
	return 0
}

func lengthScore(words int) int {
	switch {
	case words < 20:
		return 1
	case words < 60:
		return 2
	case words < 150:
		return 3
	case words < 300:
		return 4
	default:
		return 5
	}
}

func clamp(v int) int {
	if v < domain.MinCriterionScore {
		return domain.MinCriterionScore
	}
	if v > domain.MaxCriterionScore {
		return domain.MaxCriterionScore
	}
	return v
}

// synthesizeScores derives deterministic scores from the candidate's answers.
// An empty answer scores the minimum everywhere.
func synthesizeScores(answer string) map[domain.Criterion]int {
	sg := analyze(answer)
	out := make(map[domain.Criterion]int, len(domain.Criteria))
	if sg.words == 0 {
		for _, c := range domain.Criteria {
			out[c] = domain.MinCriterionScore
		}
		return out
	}

	length := lengthScore(sg.words)
	out[domain.CriterionRelevance] = clamp(length)
	out[domain.CriterionStructured] = clamp(1 + min(sg.star, 3) + boolInt(length >= 3))
	out[domain.CriterionSpecific] = clamp(1 + (sg.numbers+sg.entities+1)/2)
	out[domain.CriterionHonest] = clamp(3 + boolInt(sg.self >= 3) + boolInt(sg.reflect > 0) - boolInt(sg.words < 20))
	out[domain.CriterionConfident] = clamp(4 + boolInt(sg.words >= 60) - (sg.hedges+1)/2)
	out[domain.CriterionAligned] = clamp((out[domain.CriterionRelevance] + out[domain.CriterionSpecific] + 1) / 2)
	out[domain.CriterionOutcomeOriented] = clamp(1 + min(sg.outcome, 3) + boolInt(sg.numbers > 0))

	if sg.words < 20 {
		for c, v := range out {
			out[c] = min(v, 2)
		}
	}
	return out
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var genericFeedback = map[domain.Criterion]domain.CriterionFeedback{
	domain.CriterionRelevance: {
		Feedback:    "Answers should stay focused on the question that was asked.",
		Suggestions: []string{"Restate the question in your own words before answering.", "Cut details that do not support your main point."},
	},
	domain.CriterionStructured: {
		Feedback:    "A clear structure makes answers easier to follow.",
		Suggestions: []string{"Use the STAR format: situation, task, action, result.", "Signal transitions with words like first, then and finally."},
	},
	domain.CriterionSpecific: {
		Feedback:    "Concrete details make examples credible.",
		Suggestions: []string{"Name the tools, teams and timelines involved.", "Quantify scope with numbers wherever you can."},
	},
	domain.CriterionHonest: {
		Feedback:    "Interviewers value candid, first-person accounts.",
		Suggestions: []string{"Describe your own contribution rather than the team's.", "Mention what you learned from setbacks."},
	},
	domain.CriterionConfident: {
		Feedback:    "Delivery affects how your experience is perceived.",
		Suggestions: []string{"Avoid hedging phrases such as \"I think\" or \"maybe\".", "Lead with your conclusion, then support it."},
	},
	domain.CriterionAligned: {
		Feedback:    "Answers should connect your experience to the role.",
		Suggestions: []string{"Tie each example back to the job requirements.", "Research the company's priorities before the interview."},
	},
	domain.CriterionOutcomeOriented: {
		Feedback:    "Results show the impact of your work.",
		Suggestions: []string{"End every story with a measurable outcome.", "Explain what changed because of your actions."},
	},
}

const genericSummary = "Automated feedback could not be fully generated for this session, so scores were estimated from your answers. Review the per-criterion notes for concrete next steps."

// fallbackImprovements picks suggestions for the two weakest criteria.
func fallbackImprovements(scores map[domain.Criterion]int) []string {
	first, second := domain.Criteria[0], domain.Criteria[1]
	if scores[second] < scores[first] {
		first, second = second, first
	}
	for _, c := range domain.Criteria[2:] {
		switch {
		case scores[c] < scores[first]:
			first, second = c, first
		case scores[c] < scores[second]:
			second = c
		}
	}
	return []string{genericFeedback[first].Suggestions[0], genericFeedback[second].Suggestions[0]}
}
