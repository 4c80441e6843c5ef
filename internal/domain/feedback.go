package domain

// Criterion names one of the seven fixed scoring criteria.
type Criterion string

const (
	CriterionRelevance       Criterion = "relevance"
	CriterionStructured      Criterion = "structured"
	CriterionSpecific        Criterion = "specific"
	CriterionHonest          Criterion = "honest"
	CriterionConfident       Criterion = "confident"
	CriterionAligned         Criterion = "aligned"
	CriterionOutcomeOriented Criterion = "outcomeOriented"
)

// Criteria is the fixed, ordered criteria set.
var Criteria = []Criterion{
	CriterionRelevance,
	CriterionStructured,
	CriterionSpecific,
	CriterionHonest,
	CriterionConfident,
	CriterionAligned,
	CriterionOutcomeOriented,
}

const (
	MinCriterionScore = 1
	MaxCriterionScore = 5
	MinOverallScore   = MinCriterionScore * 7
	MaxOverallScore   = MaxCriterionScore * 7
)

// CriterionFeedback is the text attached to a single criterion.
type CriterionFeedback struct {
	Feedback    string   `json:"feedback"`
	Suggestions []string `json:"suggestions"`
}

// CriterionResult is a scored criterion.
type CriterionResult struct {
	Score int `json:"score"`
	CriterionFeedback
}

// FeedbackRecord is the well-formed evaluation of a completed session.
// OverallScore is always the sum of the seven criterion scores.
type FeedbackRecord struct {
	Criteria     map[Criterion]CriterionResult `json:"criteria"`
	OverallScore int                           `json:"overallScore"`
	Summary      string                        `json:"summary"`
	Improvements []string                      `json:"improvements"`
}

// Scores returns the per-criterion scores.
func (r FeedbackRecord) Scores() map[Criterion]int {
	out := make(map[Criterion]int, len(r.Criteria))
	for k, v := range r.Criteria {
		out[k] = v.Score
	}
	return out
}

// Feedbacks returns the per-criterion feedback texts.
func (r FeedbackRecord) Feedbacks() map[Criterion]CriterionFeedback {
	out := make(map[Criterion]CriterionFeedback, len(r.Criteria))
	for k, v := range r.Criteria {
		out[k] = v.CriterionFeedback
	}
	return out
}

// Sum recomputes the overall score from the criteria.
func (r FeedbackRecord) Sum() int {
	total := 0
	for _, c := range Criteria {
		total += r.Criteria[c].Score
	}
	return total
}
