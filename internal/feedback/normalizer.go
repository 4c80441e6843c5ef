// Package feedback turns whatever a model returned for an evaluation request
// into a well-formed FeedbackRecord.
package feedback

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	"github.com/fairyhunter13/ai-interview-coach/pkg/textx"
)

// Provenance records where a single field came from.
type Provenance string

const (
	FromModel       Provenance = "model"
	FromSynthesized Provenance = "synthesized"
)

// Source summarizes the provenance of a whole record.
type Source string

const (
	SourceModel       Source = "model"
	SourcePartial     Source = "partial"
	SourceSynthesized Source = "synthesized"
)

// CriterionProvenance tracks the origin of each field of one criterion.
type CriterionProvenance struct {
	Score       Provenance `json:"score"`
	Feedback    Provenance `json:"feedback"`
	Suggestions Provenance `json:"suggestions"`
}

// Result is a normalized record plus where each part came from.
type Result struct {
	Record       domain.FeedbackRecord                    `json:"record"`
	Source       Source                                   `json:"source"`
	Criteria     map[domain.Criterion]CriterionProvenance `json:"criteria"`
	Summary      Provenance                               `json:"summary"`
	Improvements Provenance                               `json:"improvements"`
}

// Normalize never fails: raw may be nil, empty, prose, malformed JSON or any
// of the accepted shapes. answerText is the candidate's answers and feeds the
// heuristic scores used for anything the model did not supply.
func Normalize(raw []byte, answerText string) (res Result) {
	parsed := parse(raw)

	var synth map[domain.Criterion]int
	synthScore := func(c domain.Criterion) int {
		if synth == nil {
			synth = synthesizeScores(answerText)
		}
		return synth[c]
	}

	res.Criteria = make(map[domain.Criterion]CriterionProvenance, len(domain.Criteria))
	res.Record.Criteria = make(map[domain.Criterion]domain.CriterionResult, len(domain.Criteria))
	modelFields, totalFields := 0, 0
	count := func(p Provenance) {
		totalFields++
		if p == FromModel {
			modelFields++
		}
	}

	for _, c := range domain.Criteria {
		in := parsed.criteria[c]
		var cr domain.CriterionResult
		var cp CriterionProvenance

		if in.score != nil {
			cr.Score, cp.Score = *in.score, FromModel
		} else {
			cr.Score, cp.Score = synthScore(c), FromSynthesized
		}
		if in.feedback != "" {
			cr.Feedback, cp.Feedback = in.feedback, FromModel
		} else {
			cr.Feedback, cp.Feedback = genericFeedback[c].Feedback, FromSynthesized
		}
		if len(in.suggestions) > 0 {
			cr.Suggestions, cp.Suggestions = in.suggestions, FromModel
		} else {
			cr.Suggestions, cp.Suggestions = append([]string(nil), genericFeedback[c].Suggestions...), FromSynthesized
		}
		count(cp.Score)
		count(cp.Feedback)
		count(cp.Suggestions)

		res.Record.Criteria[c] = cr
		res.Criteria[c] = cp
	}

	if parsed.summary != "" {
		res.Record.Summary, res.Summary = parsed.summary, FromModel
	} else {
		res.Record.Summary, res.Summary = genericSummary, FromSynthesized
	}
	count(res.Summary)

	if len(parsed.improvements) > 0 {
		res.Record.Improvements, res.Improvements = parsed.improvements, FromModel
	} else {
		res.Record.Improvements, res.Improvements = fallbackImprovements(res.Record.Scores()), FromSynthesized
	}
	count(res.Improvements)

	res.Record.OverallScore = res.Record.Sum()

	switch modelFields {
	case totalFields:
		res.Source = SourceModel
	case 0:
		res.Source = SourceSynthesized
	default:
		res.Source = SourcePartial
	}
	return res
}

// Fallback builds a record purely from heuristics, used when the provider
// call itself failed.
func Fallback(answerText string) Result {
	return Normalize(nil, answerText)
}

type criterionInput struct {
	score       *int
	feedback    string
	suggestions []string
}

type parsedFeedback struct {
	criteria     map[domain.Criterion]criterionInput
	summary      string
	improvements []string
}

var criterionKeys = func() map[string]domain.Criterion {
	m := map[string]domain.Criterion{
		"relevant":    domain.CriterionRelevance,
		"structure":   domain.CriterionStructured,
		"specificity": domain.CriterionSpecific,
		"honesty":     domain.CriterionHonest,
		"confidence":  domain.CriterionConfident,
		"alignment":   domain.CriterionAligned,
		"outcome":     domain.CriterionOutcomeOriented,
	}
	for _, c := range domain.Criteria {
		m[foldKey(string(c))] = c
	}
	return m
}()

func foldKey(k string) string {
	k = strings.ToLower(k)
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(k)
}

func parse(raw []byte) parsedFeedback {
	out := parsedFeedback{criteria: map[domain.Criterion]criterionInput{}}
	if len(raw) == 0 {
		return out
	}
	cleaned, err := textx.CleanJSON(string(raw))
	if err != nil {
		return out
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return out
	}

	// flat criterion keys first; the nested shapes below override them
	mergeCriteria(out.criteria, doc)
	keys := sortedKeys(doc)
	for _, sh := range shapes {
		for _, k := range keys {
			if _, ok := sh.keys[foldKey(k)]; ok {
				sh.apply(&out, doc[k])
			}
		}
	}
	return out
}

// shapes are applied in this order so that a criterion given in several
// shapes always resolves the same way.
var shapes = []struct {
	keys  map[string]struct{}
	apply func(*parsedFeedback, any)
}{
	{set("scores", "criteriascores"), func(out *parsedFeedback, v any) {
		if m, ok := v.(map[string]any); ok {
			mergeScores(out.criteria, m)
		}
	}},
	{set("feedback", "criteriafeedback"), func(out *parsedFeedback, v any) {
		switch fv := v.(type) {
		case map[string]any:
			mergeFeedback(out.criteria, fv)
		case string:
			if out.summary == "" {
				out.summary = strings.TrimSpace(fv)
			}
		}
	}},
	{set("suggestions"), func(out *parsedFeedback, v any) {
		m, ok := v.(map[string]any)
		if !ok {
			return
		}
		for _, ck := range sortedKeys(m) {
			if c, ok := criterionKeys[foldKey(ck)]; ok {
				if l := stringList(m[ck]); len(l) > 0 {
					in := out.criteria[c]
					in.suggestions = l
					out.criteria[c] = in
				}
			}
		}
	}},
	{set("criteria", "evaluation", "evaluations"), func(out *parsedFeedback, v any) {
		if m, ok := v.(map[string]any); ok {
			mergeCriteria(out.criteria, m)
		}
	}},
	{set("summary", "overallfeedback", "overallsummary"), func(out *parsedFeedback, v any) {
		if s := stringValue(v); s != "" {
			out.summary = s
		}
	}},
	{set("improvements", "areasforimprovement", "nextsteps"), func(out *parsedFeedback, v any) {
		if l := stringList(v); len(l) > 0 {
			out.improvements = l
		}
	}},
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func mergeCriteria(dst map[domain.Criterion]criterionInput, m map[string]any) {
	for _, k := range sortedKeys(m) {
		v := m[k]
		c, ok := criterionKeys[foldKey(k)]
		if !ok {
			continue
		}
		in := dst[c]
		if obj, ok := v.(map[string]any); ok {
			for _, fk := range sortedKeys(obj) {
				fv := obj[fk]
				switch foldKey(fk) {
				case "score", "rating", "value":
					if s, ok := score(fv); ok {
						in.score = &s
					}
				case "feedback", "comment", "comments", "explanation":
					if s := stringValue(fv); s != "" {
						in.feedback = s
					}
				case "suggestions", "suggestion", "tips":
					if l := stringList(fv); len(l) > 0 {
						in.suggestions = l
					}
				}
			}
		} else if s, ok := score(v); ok {
			in.score = &s
		}
		dst[c] = in
	}
}

func mergeScores(dst map[domain.Criterion]criterionInput, m map[string]any) {
	for _, k := range sortedKeys(m) {
		if c, ok := criterionKeys[foldKey(k)]; ok {
			if s, ok := score(m[k]); ok {
				in := dst[c]
				in.score = &s
				dst[c] = in
			}
		}
	}
}

func mergeFeedback(dst map[domain.Criterion]criterionInput, m map[string]any) {
	for _, k := range sortedKeys(m) {
		v := m[k]
		c, ok := criterionKeys[foldKey(k)]
		if !ok {
			continue
		}
		in := dst[c]
		if obj, ok := v.(map[string]any); ok {
			mergeCriteria(dst, map[string]any{k: obj})
			continue
		}
		if s := stringValue(v); s != "" {
			in.feedback = s
		}
		dst[c] = in
	}
}

// score accepts numbers, numeric strings and "4/5"; floats are rounded.
// Values outside [1,5] are rejected.
func score(v any) (int, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		s := strings.TrimSpace(t)
		if i := strings.Index(s, "/"); i > 0 {
			s = strings.TrimSpace(s[:i])
		}
		p, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = p
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	n := int(math.Round(f))
	if n < domain.MinCriterionScore || n > domain.MaxCriterionScore {
		return 0, false
	}
	return n, true
}

func stringValue(v any) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func stringList(v any) []string {
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}
		}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := stringValue(item); s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}
