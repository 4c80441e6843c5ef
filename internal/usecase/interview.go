// Package usecase contains application business logic services.
package usecase

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/config"
	"github.com/fairyhunter13/ai-interview-coach/internal/conversation"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	"github.com/fairyhunter13/ai-interview-coach/internal/feedback"
	obsctx "github.com/fairyhunter13/ai-interview-coach/internal/observability"
	"github.com/fairyhunter13/ai-interview-coach/pkg/textx"
)

const (
	turnTemperature     = 0.7
	feedbackTemperature = 0.2
	maxQuestionLimit    = 50
)

// Deps wires an InterviewService.
type Deps struct {
	Sessions  domain.SessionRepository
	Messages  domain.MessageRepository
	Questions domain.QuestionRepository
	JobDescs  domain.JobDescriptionRepository
	Model     domain.ModelProvider
	Speech    domain.SpeechProvider
	Events    domain.EventPublisher
	Catalog   *config.Catalog
	Config    config.Config
}

// InterviewService runs practice sessions: setup, turn-taking and evaluation.
type InterviewService struct {
	Deps
	now func() time.Time
}

// NewInterviewService constructs an InterviewService.
func NewInterviewService(d Deps) *InterviewService {
	return &InterviewService{Deps: d, now: time.Now}
}

// CreateSessionInput is the setup supplied by the candidate.
type CreateSessionInput struct {
	UserID           string
	Position         string
	Company          string
	Industry         string
	InterviewStage   domain.InterviewStage
	JobDescriptionID string
}

// CreateSessionResult is a started session and its persisted greeting.
type CreateSessionResult struct {
	Session  domain.PracticeSession
	Greeting domain.ConversationMessage
}

// SendMessageResult is one persisted exchange.
type SendMessageResult struct {
	UserMessage domain.ConversationMessage
	AIResponse  domain.ConversationMessage
	Truncated   bool
	Warnings    []string
}

// EndSessionResult is the completed session and the normalized feedback.
type EndSessionResult struct {
	Session  domain.PracticeSession
	Feedback feedback.Result
}

// CreateSession generates the interviewer persona and greeting, then stores
// the started session together with the greeting as message 1 in one write.
// Nothing is stored when either step fails.
func (s *InterviewService) CreateSession(ctx domain.Context, in CreateSessionInput) (CreateSessionResult, error) {
	lg := obsctx.LoggerFromContext(ctx)
	in.UserID = strings.TrimSpace(in.UserID)
	in.Position = textx.SanitizeText(in.Position)
	in.Company = textx.SanitizeText(in.Company)
	in.Industry = textx.SanitizeText(in.Industry)
	if in.UserID == "" || in.Position == "" {
		return CreateSessionResult{}, fmt.Errorf("%w: userId and position are required", domain.ErrInvalidArgument)
	}
	if !in.InterviewStage.Valid() {
		return CreateSessionResult{}, fmt.Errorf("%w: unknown interview stage %q", domain.ErrInvalidArgument, in.InterviewStage)
	}
	sc, ok := s.Catalog.Stage(in.InterviewStage)
	if !ok {
		return CreateSessionResult{}, fmt.Errorf("%w: interview stage %q is not configured", domain.ErrInvalidArgument, in.InterviewStage)
	}
	var jd *domain.JobDescription
	if in.JobDescriptionID != "" {
		j, err := s.JobDescs.Get(ctx, in.JobDescriptionID)
		if err != nil {
			return CreateSessionResult{}, err
		}
		jd = &j
	}

	sess := domain.PracticeSession{
		UserID:           in.UserID,
		Position:         in.Position,
		Company:          in.Company,
		Industry:         in.Industry,
		InterviewStage:   in.InterviewStage,
		JobDescriptionID: in.JobDescriptionID,
		Stage:            domain.StageSetup,
	}
	sess.Persona = s.generatePersona(ctx, sess, sc)
	sess.Persona.VoiceID = s.Catalog.Voice(in.InterviewStage)
	if sess.Persona.VoiceID == "" {
		sess.Persona.VoiceID = s.Config.TTSDefaultVoice
	}
	sess.Persona.VoiceConfidence = "low"

	prompt := buildSystemPrompt(sess, sc, s.questions(ctx, in.InterviewStage), jd)
	conv := conversation.New(s.Model, prompt, conversation.Options{
		MaxTokens:   s.Config.ReplyMaxTokens,
		Temperature: turnTemperature,
		Purpose:     "greeting",
	})
	greeting, err := conv.Open(ctx, s.Catalog.Kickoff)
	if err != nil {
		return CreateSessionResult{}, fmt.Errorf("op=interview.create_session: %w", err)
	}

	now := s.now()
	if err := sess.Start(now); err != nil {
		return CreateSessionResult{}, fmt.Errorf("op=interview.create_session: %w", err)
	}
	sess.CreatedAt, sess.UpdatedAt = now.UTC(), now.UTC()
	id, msgs, err := s.Sessions.CreateWithMessages(ctx, sess, domain.NewMessage{Role: domain.RoleAssistant, Content: greeting})
	if err != nil {
		return CreateSessionResult{}, fmt.Errorf("op=interview.create_session: %w", err)
	}
	if len(msgs) != 1 {
		return CreateSessionResult{}, fmt.Errorf("op=interview.create_session: greeting not stored")
	}
	sess.ID = id
	ctx = obsctx.ContextWithSessionID(ctx, id)
	lg = lg.With(slog.String("session_id", id))
	observability.SessionTransition(string(domain.StageSetup), string(in.InterviewStage))
	observability.SessionTransition(string(domain.StageActive), string(in.InterviewStage))
	s.publish(ctx, domain.EventSessionCreated, id, in.UserID, domain.StageSetup, nil)
	s.publish(ctx, domain.EventSessionStarted, id, in.UserID, domain.StageActive, nil)

	observability.MessagesPersisted(string(domain.RoleAssistant), 1)
	lg.Info("session created", slog.String("interview_stage", string(in.InterviewStage)), slog.String("persona", sess.Persona.Name))
	return CreateSessionResult{Session: sess, Greeting: msgs[0]}, nil
}

// StartSession moves a session from setup to active.
func (s *InterviewService) StartSession(ctx domain.Context, id string) (domain.PracticeSession, error) {
	sess, err := s.Sessions.Update(ctx, id, func(p *domain.PracticeSession) error {
		return p.Start(s.now())
	})
	if err != nil {
		return domain.PracticeSession{}, fmt.Errorf("op=interview.start_session: %w", err)
	}
	observability.SessionTransition(string(domain.StageActive), string(sess.InterviewStage))
	s.publish(ctx, domain.EventSessionStarted, id, sess.UserID, domain.StageActive, nil)
	return sess, nil
}

// SendMessage records the candidate's answer and the interviewer's reply.
// Both turns are persisted together and only after the reply was generated.
func (s *InterviewService) SendMessage(ctx domain.Context, id, text string) (SendMessageResult, error) {
	ctx = obsctx.ContextWithSessionID(ctx, id)
	lg := obsctx.LoggerFromContext(ctx)

	text = textx.SanitizeText(text)
	if text == "" {
		return SendMessageResult{}, fmt.Errorf("%w: message must not be empty", domain.ErrInvalidArgument)
	}
	var res SendMessageResult
	if t, cut := textx.Truncate(text, s.Config.MessageMaxChars); cut {
		text = t
		res.Truncated = true
		res.Warnings = append(res.Warnings, fmt.Sprintf("message truncated to %d characters", s.Config.MessageMaxChars))
		observability.MessageTruncated()
		lg.Warn("user message truncated", slog.Int("max_chars", s.Config.MessageMaxChars))
	}

	var promoted bool
	sess, err := s.Sessions.Update(ctx, id, func(p *domain.PracticeSession) error {
		changed, err := p.Activate(s.now())
		promoted = changed
		return err
	})
	if err != nil {
		return SendMessageResult{}, fmt.Errorf("op=interview.send_message: %w", err)
	}
	if promoted {
		observability.SessionTransition(string(domain.StageActive), string(sess.InterviewStage))
		s.publish(ctx, domain.EventSessionStarted, id, sess.UserID, domain.StageActive, nil)
	}

	stored, err := s.Messages.List(ctx, id)
	if err != nil {
		return SendMessageResult{}, fmt.Errorf("op=interview.send_message: %w", err)
	}
	trimmed := conversation.Optimize(conversation.FromStored(stored), s.Config.HistoryMaxTokens, s.Config.HistoryMaxPairs)
	conv := conversation.Restore(s.Model, s.systemPrompt(ctx, sess), trimmed, conversation.Options{
		MaxTokens:   s.Config.ReplyMaxTokens,
		Temperature: turnTemperature,
		Purpose:     "turn",
	})
	reply, err := conv.Respond(ctx, text)
	if err != nil {
		return SendMessageResult{}, fmt.Errorf("op=interview.send_message: %w", err)
	}

	msgs, err := s.Messages.Append(ctx, id,
		domain.NewMessage{Role: domain.RoleUser, Content: text},
		domain.NewMessage{Role: domain.RoleAssistant, Content: reply},
	)
	if err != nil {
		return SendMessageResult{}, fmt.Errorf("op=interview.send_message: %w", err)
	}
	observability.MessagesPersisted(string(domain.RoleUser), 1)
	observability.MessagesPersisted(string(domain.RoleAssistant), 1)
	lg.Debug("turn recorded", slog.Int("history_sent", len(trimmed)), slog.Int("history_stored", len(stored)))

	res.UserMessage, res.AIResponse = msgs[0], msgs[1]
	return res, nil
}

// EndSession evaluates the transcript and completes the session. A failed
// evaluation call falls back to heuristic feedback instead of failing.
func (s *InterviewService) EndSession(ctx domain.Context, id string) (EndSessionResult, error) {
	ctx = obsctx.ContextWithSessionID(ctx, id)
	lg := obsctx.LoggerFromContext(ctx)

	sess, err := s.Sessions.Get(ctx, id)
	if err != nil {
		return EndSessionResult{}, fmt.Errorf("op=interview.end_session: %w", err)
	}
	if sess.Stage != domain.StageActive {
		return EndSessionResult{}, fmt.Errorf("op=interview.end_session: %w", &domain.InvalidStateError{
			SessionID: id, Current: sess.Stage, Required: []domain.Stage{domain.StageActive},
		})
	}
	stored, err := s.Messages.List(ctx, id)
	if err != nil {
		return EndSessionResult{}, fmt.Errorf("op=interview.end_session: %w", err)
	}
	full := conversation.FromStored(stored)
	answers := feedback.AnswerText(full)
	transcript := conversation.Optimize(full, s.Config.FeedbackHistoryMaxTokens, s.Config.FeedbackHistoryMaxPairs)

	prompt := feedback.BuildPrompt(feedback.TranscriptInfo{
		Position:       sess.Position,
		Company:        sess.Company,
		InterviewStage: sess.InterviewStage,
	}, transcript)
	var fb feedback.Result
	gen, err := s.Model.Generate(ctx, prompt, domain.GenerateOptions{
		MaxTokens:   s.Config.FeedbackMaxTokens,
		Temperature: feedbackTemperature,
		JSON:        true,
		Purpose:     "feedback",
	})
	if err != nil {
		lg.Warn("feedback generation failed, using heuristic feedback", slog.Any("error", err))
		fb = feedback.Fallback(answers)
	} else {
		fb = feedback.Normalize([]byte(gen.Text), answers)
	}

	done, err := s.Sessions.Update(ctx, id, func(p *domain.PracticeSession) error {
		return p.Complete(s.now(), fb.Record)
	})
	if err != nil {
		return EndSessionResult{}, fmt.Errorf("op=interview.end_session: %w", err)
	}
	overall, dur := 0, 0
	if done.OverallScore != nil {
		overall = *done.OverallScore
	}
	if done.Duration != nil {
		dur = *done.Duration
	}
	observability.ObserveFeedback(string(fb.Source), overall, dur)
	observability.SessionTransition(string(domain.StageCompleted), string(done.InterviewStage))
	s.publish(ctx, domain.EventSessionCompleted, id, done.UserID, domain.StageCompleted, done.OverallScore)
	lg.Info("session completed", slog.Int("overall_score", overall), slog.String("feedback_source", string(fb.Source)))
	return EndSessionResult{Session: done, Feedback: fb}, nil
}

// GetSession loads a session.
func (s *InterviewService) GetSession(ctx domain.Context, id string) (domain.PracticeSession, error) {
	sess, err := s.Sessions.Get(ctx, id)
	if err != nil {
		return domain.PracticeSession{}, fmt.Errorf("op=interview.get_session: %w", err)
	}
	return sess, nil
}

// ListMessages returns the ordered transcript of an existing session.
func (s *InterviewService) ListMessages(ctx domain.Context, id string) ([]domain.ConversationMessage, error) {
	if _, err := s.Sessions.Get(ctx, id); err != nil {
		return nil, fmt.Errorf("op=interview.list_messages: %w", err)
	}
	msgs, err := s.Messages.List(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("op=interview.list_messages: %w", err)
	}
	return msgs, nil
}

// ListQuestions returns reference questions for a stage.
func (s *InterviewService) ListQuestions(ctx domain.Context, stage domain.InterviewStage, limit int) ([]domain.Question, error) {
	if !stage.Valid() {
		return nil, fmt.Errorf("%w: unknown interview stage %q", domain.ErrInvalidArgument, stage)
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > maxQuestionLimit {
		limit = maxQuestionLimit
	}
	qs, err := s.Questions.ListByStage(ctx, stage, limit)
	if err != nil {
		return nil, fmt.Errorf("op=interview.list_questions: %w", err)
	}
	return qs, nil
}

// questions loads prompt questions; reference data is optional.
func (s *InterviewService) questions(ctx domain.Context, stage domain.InterviewStage) []domain.Question {
	if s.Questions == nil || s.Config.PromptQuestionLimit <= 0 {
		return nil
	}
	qs, err := s.Questions.ListByStage(ctx, stage, s.Config.PromptQuestionLimit)
	if err != nil {
		obsctx.LoggerFromContext(ctx).Warn("reference questions unavailable", slog.Any("error", err))
		return nil
	}
	return qs
}

// systemPrompt rebuilds the interviewer prompt for a stored session.
func (s *InterviewService) systemPrompt(ctx domain.Context, sess domain.PracticeSession) string {
	sc, _ := s.Catalog.Stage(sess.InterviewStage)
	var jd *domain.JobDescription
	if sess.JobDescriptionID != "" && s.JobDescs != nil {
		j, err := s.JobDescs.Get(ctx, sess.JobDescriptionID)
		switch {
		case err == nil:
			jd = &j
		case !errors.Is(err, domain.ErrNotFound):
			obsctx.LoggerFromContext(ctx).Warn("job description unavailable", slog.Any("error", err))
		}
	}
	return buildSystemPrompt(sess, sc, s.questions(ctx, sess.InterviewStage), jd)
}

func (s *InterviewService) publish(ctx domain.Context, typ, id, userID string, stage domain.Stage, overall *int) {
	if s.Events == nil {
		return
	}
	evt := domain.SessionEvent{
		Type:         typ,
		SessionID:    id,
		UserID:       userID,
		Stage:        stage,
		OverallScore: overall,
		OccurredAt:   s.now().UTC(),
	}
	if err := s.Events.Publish(ctx, evt); err != nil {
		obsctx.LoggerFromContext(ctx).Warn("session event publish failed", slog.String("event", typ), slog.Any("error", err))
	}
}
