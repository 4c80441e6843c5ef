package usecase

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/fairyhunter13/ai-interview-coach/internal/config"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	obsctx "github.com/fairyhunter13/ai-interview-coach/internal/observability"
	"github.com/fairyhunter13/ai-interview-coach/pkg/textx"
)

const personaPrompt = `You create realistic interviewer personas for interview practice.
Respond with a single JSON object and nothing else:
{"name":"...","role":"...","personality":"...","style":"...","background":"...","objectives":"..."}
The persona must fit the company, position and interview stage described by the user.`

const (
	personaMaxTokens   = 400
	personaTemperature = 0.9
	personaFieldMax    = 300
)

// generatePersona asks the model for an interviewer persona and falls back to
// the catalog persona of the stage on any failure. Missing fields are filled
// from the fallback.
func (s *InterviewService) generatePersona(ctx domain.Context, sess domain.PracticeSession, sc config.StageCatalog) domain.Persona {
	lg := obsctx.LoggerFromContext(ctx)
	fallback := sc.Persona

	var b strings.Builder
	fmt.Fprintf(&b, "Interview stage: %s\nPosition: %s\n", sc.Title, sess.Position)
	if sess.Company != "" {
		fmt.Fprintf(&b, "Company: %s\n", sess.Company)
	}
	if sess.Industry != "" {
		fmt.Fprintf(&b, "Industry: %s\n", sess.Industry)
	}
	fmt.Fprintf(&b, "Typical interviewer for this stage: %s", fallback.Role)

	gen, err := s.Model.Generate(ctx, []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: personaPrompt},
		{Role: domain.RoleUser, Content: b.String()},
	}, domain.GenerateOptions{MaxTokens: personaMaxTokens, Temperature: personaTemperature, JSON: true, Purpose: "persona"})
	if err != nil {
		lg.Warn("persona generation failed, using default persona", slog.Any("error", err))
		return fallback
	}
	p, ok := parsePersona(gen.Text)
	if !ok {
		lg.Warn("persona response unusable, using default persona")
		return fallback
	}
	return mergePersona(p, fallback)
}

// parsePersona reads the persona fields leniently: lists are joined and
// fields of any other type are left empty for the fallback to fill.
func parsePersona(raw string) (domain.Persona, bool) {
	cleaned, err := textx.CleanJSON(raw)
	if err != nil {
		return domain.Persona{}, false
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return domain.Persona{}, false
	}
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fields := make(map[string]string, len(doc))
	for _, k := range keys {
		if text := personaText(doc[k]); text != "" {
			fields[strings.ToLower(strings.TrimSpace(k))] = text
		}
	}
	p := domain.Persona{
		Name:        fields["name"],
		Role:        fields["role"],
		Personality: fields["personality"],
		Style:       fields["style"],
		Background:  fields["background"],
		Objectives:  fields["objectives"],
	}
	if strings.TrimSpace(p.Name) == "" {
		return domain.Persona{}, false
	}
	return p, true
}

func personaText(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				parts = append(parts, strings.TrimSpace(s))
			}
		}
		return strings.Join(parts, "; ")
	}
	return ""
}

func mergePersona(p, fallback domain.Persona) domain.Persona {
	pick := func(v, def string) string {
		v = textx.SanitizeText(v)
		if v == "" {
			return def
		}
		v, _ = textx.Truncate(v, personaFieldMax)
		return v
	}
	return domain.Persona{
		Name:        pick(p.Name, fallback.Name),
		Role:        pick(p.Role, fallback.Role),
		Personality: pick(p.Personality, fallback.Personality),
		Style:       pick(p.Style, fallback.Style),
		Background:  pick(p.Background, fallback.Background),
		Objectives:  pick(p.Objectives, fallback.Objectives),
	}
}
