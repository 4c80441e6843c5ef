package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInvalidState      = errors.New("invalid state")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrProvider          = errors.New("provider error")
	ErrUpstreamTimeout   = errors.New("upstream timeout")
	ErrUpstreamRateLimit = errors.New("upstream rate limit")
	ErrTranscription     = errors.New("transcription failed")
	ErrInternal          = errors.New("internal error")
)

// InterviewStage is the immutable kind of interview chosen at setup.
type InterviewStage string

const (
	InterviewPhoneScreening InterviewStage = "phone-screening"
	InterviewTeam           InterviewStage = "team-interview"
	InterviewHiringManager  InterviewStage = "hiring-manager"
	InterviewTechnical      InterviewStage = "technical-interview"
	InterviewExecutive      InterviewStage = "executive-interview"
)

// InterviewStages lists the scripted flow in order.
var InterviewStages = []InterviewStage{
	InterviewPhoneScreening,
	InterviewTeam,
	InterviewHiringManager,
	InterviewTechnical,
	InterviewExecutive,
}

// Valid reports whether s is one of the known interview stages.
func (s InterviewStage) Valid() bool {
	for _, v := range InterviewStages {
		if v == s {
			return true
		}
	}
	return false
}

// Persona is the interviewer profile generated once at session creation.
// VoiceID comes from a lookup table and is low-confidence metadata that
// clients may override.
type Persona struct {
	Name            string `json:"name" yaml:"name"`
	Role            string `json:"role" yaml:"role"`
	Personality     string `json:"personality" yaml:"personality"`
	Style           string `json:"style" yaml:"style"`
	Background      string `json:"background" yaml:"background"`
	Objectives      string `json:"objectives" yaml:"objectives"`
	VoiceID         string `json:"voiceId" yaml:"voice_id"`
	VoiceConfidence string `json:"voiceConfidence" yaml:"-"`
}

// SessionSetup holds the immutable fields supplied when a session is created.
type SessionSetup struct {
	UserID           string
	Position         string
	Company          string
	Industry         string
	InterviewStage   InterviewStage
	JobDescriptionID string
}

// PracticeSession is one simulated interview.
// Invariants: Stage only moves setup -> active -> completed; outcome fields
// (Duration..Improvements) stay nil until Complete and are never rewritten.
type PracticeSession struct {
	ID               string
	UserID           string
	Position         string
	Company          string
	Industry         string
	InterviewStage   InterviewStage
	JobDescriptionID string
	Stage            Stage
	Persona          Persona
	StartedAt        *time.Time
	CompletedAt      *time.Time
	Duration         *int
	OverallScore     *int
	CriteriaScores   map[Criterion]int
	CriteriaFeedback map[Criterion]CriterionFeedback
	Feedback         *string
	Improvements     []string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// MessageRole is the author of a persisted conversation message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// ConversationMessage is one persisted turn. MessageOrder starts at 1 and is
// strictly increasing within a session.
type ConversationMessage struct {
	ID           string
	SessionID    string
	Role         MessageRole
	Content      string
	MessageOrder int
	CreatedAt    time.Time
}

// NewMessage is a turn waiting to be appended; the store assigns its order.
type NewMessage struct {
	Role    MessageRole
	Content string
}

// Question is reference data used to seed interviewer prompts.
type Question struct {
	ID             string
	InterviewStage InterviewStage
	Category       string
	Text           string
	Difficulty     string
}

// JobDescription is reference data attached to a session setup.
type JobDescription struct {
	ID      string
	Title   string
	Company string
	Text    string
}

// Repositories (ports)

type SessionRepository interface {
	Create(ctx Context, s PracticeSession) (string, error)
	// CreateWithMessages inserts s and its opening messages (orders 1..n) in
	// one transaction; on failure nothing is stored.
	CreateWithMessages(ctx Context, s PracticeSession, msgs ...NewMessage) (string, []ConversationMessage, error)
	Get(ctx Context, id string) (PracticeSession, error)
	// Update locks the session, applies fn and persists the result in a
	// single transaction. An error from fn aborts the transaction.
	Update(ctx Context, id string, fn func(*PracticeSession) error) (PracticeSession, error)
}

type MessageRepository interface {
	// Append stores msgs with consecutive orders following the current
	// maximum. It fails with InvalidStateError when the session is completed.
	Append(ctx Context, sessionID string, msgs ...NewMessage) ([]ConversationMessage, error)
	List(ctx Context, sessionID string) ([]ConversationMessage, error)
}

type QuestionRepository interface {
	ListByStage(ctx Context, stage InterviewStage, limit int) ([]Question, error)
}

type JobDescriptionRepository interface {
	Get(ctx Context, id string) (JobDescription, error)
}

// Providers (ports)

// ChatMessage is one entry of the history sent to a model provider.
type ChatMessage struct {
	Role    MessageRole
	Content string
}

// GenerateOptions tunes a single provider call.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
	// JSON asks the backend for a JSON object when it supports a response format.
	JSON bool
	// Purpose labels metrics and logs: persona, turn, greeting, feedback.
	Purpose string
}

// TokenUsage reports prompt and completion token counts for a call.
type TokenUsage struct {
	PromptTokens     int  `json:"promptTokens"`
	CompletionTokens int  `json:"completionTokens"`
	TotalTokens      int  `json:"totalTokens"`
	Estimated        bool `json:"estimated"`
}

// Add accumulates u into a running total.
func (t TokenUsage) Add(u TokenUsage) TokenUsage {
	return TokenUsage{
		PromptTokens:     t.PromptTokens + u.PromptTokens,
		CompletionTokens: t.CompletionTokens + u.CompletionTokens,
		TotalTokens:      t.TotalTokens + u.TotalTokens,
		Estimated:        t.Estimated || u.Estimated,
	}
}

// Generation is the text returned by a provider call.
type Generation struct {
	Text     string
	Usage    *TokenUsage
	Provider string
	Model    string
}

type ModelProvider interface {
	Generate(ctx Context, history []ChatMessage, opts GenerateOptions) (Generation, error)
}

type SpeechProvider interface {
	SpeechToText(ctx Context, audio []byte, mimeHint string) (string, error)
	TextToSpeech(ctx Context, text, voiceID string) ([]byte, error)
}

// SessionEvent is published when a session changes stage.
type SessionEvent struct {
	Type         string    `json:"type"`
	SessionID    string    `json:"sessionId"`
	UserID       string    `json:"userId,omitempty"`
	Stage        Stage     `json:"stage"`
	OverallScore *int      `json:"overallScore,omitempty"`
	OccurredAt   time.Time `json:"occurredAt"`
}

const (
	EventSessionCreated   = "session.created"
	EventSessionStarted   = "session.started"
	EventSessionCompleted = "session.completed"
)

type EventPublisher interface {
	Publish(ctx Context, evt SessionEvent) error
}

// Context is an alias so ports read naturally without importing context everywhere.
type Context = context.Context
