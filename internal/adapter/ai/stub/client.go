// Package stub is a deterministic offline model backend for local runs and tests.
package stub

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// Client answers every purpose with canned but well-formed output.
type Client struct{}

// New returns a stub client.
func New() *Client { return &Client{} }

// Generate implements domain.ModelProvider.
func (c *Client) Generate(_ domain.Context, history []domain.ChatMessage, opts domain.GenerateOptions) (domain.Generation, error) {
	var text string
	switch opts.Purpose {
	case "persona":
		b, _ := json.Marshal(map[string]string{
			"name":        "Alex Morgan",
			"role":        "Interviewer",
			"personality": "calm and attentive",
			"style":       "structured",
			"background":  "Has interviewed hundreds of candidates.",
			"objectives":  "Understand the candidate's experience.",
		})
		text = string(b)
	case "feedback":
		criteria := map[string]any{}
		for _, cr := range domain.Criteria {
			criteria[string(cr)] = map[string]any{
				"score":       3,
				"feedback":    "Reasonable answer with room to add detail.",
				"suggestions": []string{"Add a concrete, measurable example."},
			}
		}
		b, _ := json.Marshal(map[string]any{
			"criteria":     criteria,
			"summary":      "A solid practice session.",
			"improvements": []string{"Quantify your impact.", "Use the STAR structure."},
		})
		text = string(b)
	case "greeting":
		text = "Hello, thanks for joining today. Could you start by telling me a little about yourself?"
	default:
		turns := 0
		for _, m := range history {
			if m.Role == domain.RoleUser {
				turns++
			}
		}
		last := ""
		if n := len(history); n > 0 {
			last = history[n-1].Content
		}
		text = fmt.Sprintf("Thanks for sharing that. Question %d: can you tell me more about %q?", turns+1, firstWords(last, 6))
	}
	return domain.Generation{Text: text, Provider: "stub", Model: "stub"}, nil
}

func firstWords(s string, n int) string {
	f := strings.Fields(s)
	if len(f) > n {
		f = f[:n]
	}
	return strings.Join(f, " ")
}
