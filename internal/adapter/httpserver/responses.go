// Package httpserver exposes the interview practice API over HTTP.
//
// Handlers decode and validate requests, call the interview use case and
// translate domain errors into the JSON error envelope.
package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	"github.com/fairyhunter13/ai-interview-coach/internal/feedback"
	obsctx "github.com/fairyhunter13/ai-interview-coach/internal/observability"
)

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorStatus maps err onto an HTTP status and envelope code. Rate limit and
// timeout are checked before ErrProvider since provider errors wrap them.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest, "INVALID_ARGUMENT"
	case errors.Is(err, domain.ErrInvalidState):
		return http.StatusBadRequest, "INVALID_STATE"
	case errors.Is(err, domain.ErrTranscription):
		return http.StatusBadRequest, "TRANSCRIPTION_FAILED"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "CONFLICT"
	case errors.Is(err, domain.ErrUpstreamTimeout):
		return http.StatusServiceUnavailable, "UPSTREAM_TIMEOUT"
	case errors.Is(err, domain.ErrUpstreamRateLimit):
		return http.StatusServiceUnavailable, "UPSTREAM_RATE_LIMIT"
	case errors.Is(err, domain.ErrProvider):
		return http.StatusBadGateway, "PROVIDER_ERROR"
	}
	return http.StatusInternalServerError, "INTERNAL"
}

func writeError(w http.ResponseWriter, r *http.Request, err error, details interface{}) {
	code, codeStr := errorStatus(err)
	msg := err.Error()
	var ise *domain.InvalidStateError
	if details == nil && errors.As(err, &ise) {
		details = map[string]any{"current": ise.Current, "required": ise.Required}
	}
	lg := obsctx.LoggerFromContext(r.Context())
	if code >= http.StatusInternalServerError {
		lg.Error("request failed", "code", codeStr, "error", msg)
		if code == http.StatusInternalServerError {
			msg = "internal error"
		}
	}
	writeJSON(w, code, errorEnvelope{Error: apiError{Code: codeStr, Message: msg, Details: details}})
}

type personaResponse struct {
	Name            string `json:"name"`
	Role            string `json:"role"`
	Personality     string `json:"personality"`
	Style           string `json:"style"`
	Background      string `json:"background"`
	Objectives      string `json:"objectives"`
	VoiceID         string `json:"voiceId"`
	VoiceConfidence string `json:"voiceConfidence"`
}

type sessionResponse struct {
	ID               string                                        `json:"id"`
	UserID           string                                        `json:"userId"`
	Position         string                                        `json:"position"`
	Company          string                                        `json:"company,omitempty"`
	Industry         string                                        `json:"industry,omitempty"`
	InterviewStage   domain.InterviewStage                         `json:"interviewStage"`
	JobDescriptionID string                                        `json:"jobDescriptionId,omitempty"`
	Stage            domain.Stage                                  `json:"stage"`
	Persona          personaResponse                               `json:"persona"`
	StartedAt        *time.Time                                    `json:"startedAt"`
	CompletedAt      *time.Time                                    `json:"completedAt"`
	Duration         *int                                          `json:"duration"`
	OverallScore     *int                                          `json:"overallScore"`
	CriteriaScores   map[domain.Criterion]int                      `json:"criteriaScores,omitempty"`
	CriteriaFeedback map[domain.Criterion]domain.CriterionFeedback `json:"criteriaFeedback,omitempty"`
	Feedback         *string                                       `json:"feedback"`
	Improvements     []string                                      `json:"improvements,omitempty"`
	CreatedAt        time.Time                                     `json:"createdAt"`
	UpdatedAt        time.Time                                     `json:"updatedAt"`
}

type messageResponse struct {
	ID           string             `json:"id"`
	SessionID    string             `json:"sessionId"`
	Role         domain.MessageRole `json:"role"`
	Content      string             `json:"content"`
	MessageOrder int                `json:"messageOrder"`
	CreatedAt    time.Time          `json:"createdAt"`
}

type questionResponse struct {
	ID             string                `json:"id"`
	InterviewStage domain.InterviewStage `json:"interviewStage"`
	Category       string                `json:"category"`
	Text           string                `json:"text"`
	Difficulty     string                `json:"difficulty"`
}

type createSessionResponse struct {
	Session  sessionResponse `json:"session"`
	Greeting messageResponse `json:"greeting"`
}

type sendMessageResponse struct {
	UserMessage messageResponse `json:"userMessage"`
	AIResponse  messageResponse `json:"aiResponse"`
	Truncated   bool            `json:"truncated"`
	Warnings    []string        `json:"warnings"`
}

type endSessionResponse struct {
	Session  sessionResponse `json:"session"`
	Feedback feedback.Result `json:"feedback"`
}

func toSession(s domain.PracticeSession) sessionResponse {
	p := s.Persona
	return sessionResponse{
		ID:               s.ID,
		UserID:           s.UserID,
		Position:         s.Position,
		Company:          s.Company,
		Industry:         s.Industry,
		InterviewStage:   s.InterviewStage,
		JobDescriptionID: s.JobDescriptionID,
		Stage:            s.Stage,
		Persona: personaResponse{
			Name: p.Name, Role: p.Role, Personality: p.Personality, Style: p.Style,
			Background: p.Background, Objectives: p.Objectives,
			VoiceID: p.VoiceID, VoiceConfidence: p.VoiceConfidence,
		},
		StartedAt:        s.StartedAt,
		CompletedAt:      s.CompletedAt,
		Duration:         s.Duration,
		OverallScore:     s.OverallScore,
		CriteriaScores:   s.CriteriaScores,
		CriteriaFeedback: s.CriteriaFeedback,
		Feedback:         s.Feedback,
		Improvements:     s.Improvements,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

func toMessage(m domain.ConversationMessage) messageResponse {
	return messageResponse{
		ID:           m.ID,
		SessionID:    m.SessionID,
		Role:         m.Role,
		Content:      m.Content,
		MessageOrder: m.MessageOrder,
		CreatedAt:    m.CreatedAt,
	}
}

func toMessages(ms []domain.ConversationMessage) []messageResponse {
	out := make([]messageResponse, 0, len(ms))
	for _, m := range ms {
		out = append(out, toMessage(m))
	}
	return out
}

func toQuestions(qs []domain.Question) []questionResponse {
	out := make([]questionResponse, 0, len(qs))
	for _, q := range qs {
		out = append(out, questionResponse{ID: q.ID, InterviewStage: q.InterviewStage, Category: q.Category, Text: q.Text, Difficulty: q.Difficulty})
	}
	return out
}
