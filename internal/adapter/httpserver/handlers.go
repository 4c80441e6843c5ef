package httpserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"

	"github.com/fairyhunter13/ai-interview-coach/internal/config"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	obsctx "github.com/fairyhunter13/ai-interview-coach/internal/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/usecase"
)

const maxQuestionsPerPage = 50

// Server aggregates handlers dependencies.
type Server struct {
	Cfg        config.Config
	Interview  *usecase.InterviewService
	DBCheck    func(ctx context.Context) error
	RedisCheck func(ctx context.Context) error
}

// NewServer constructs an HTTP server with all handlers and checks wired.
// Nil checks are skipped by /readyz.
func NewServer(cfg config.Config, interview *usecase.InterviewService, dbCheck, redisCheck func(context.Context) error) *Server {
	return &Server{Cfg: cfg, Interview: interview, DBCheck: dbCheck, RedisCheck: redisCheck}
}

func notAcceptable(w http.ResponseWriter, r *http.Request) bool {
	if acceptsJSON(r) {
		return false
	}
	writeJSON(w, http.StatusNotAcceptable, errorEnvelope{Error: apiError{
		Code:    "NOT_ACCEPTABLE",
		Message: "only application/json responses are supported",
		Details: map[string]string{"accept": r.Header.Get("Accept")},
	}})
	return true
}

// sessionRequest tags the request context with the {id} path parameter.
func sessionRequest(r *http.Request) (string, *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	return id, r.WithContext(obsctx.ContextWithSessionID(r.Context(), id))
}

// CreateSessionHandler creates a session, opens the conversation and returns
// the greeting.
func (s *Server) CreateSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if notAcceptable(w, r) {
			return
		}
		var req createSessionRequest
		if details, err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		res, err := s.Interview.CreateSession(r.Context(), usecase.CreateSessionInput{
			UserID:           req.UserID,
			Position:         req.Position,
			Company:          req.Company,
			Industry:         req.Industry,
			InterviewStage:   domain.InterviewStage(req.InterviewStage),
			JobDescriptionID: req.JobDescriptionID,
		})
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, createSessionResponse{Session: toSession(res.Session), Greeting: toMessage(res.Greeting)})
	}
}

// GetSessionHandler returns a session with its outcome once completed.
func (s *Server) GetSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if notAcceptable(w, r) {
			return
		}
		id, r := sessionRequest(r)
		sess, err := s.Interview.GetSession(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, toSession(sess))
	}
}

// StartSessionHandler moves a session from setup to active.
func (s *Server) StartSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, r := sessionRequest(r)
		sess, err := s.Interview.StartSession(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, toSession(sess))
	}
}

// SendMessageHandler records a candidate message and returns the interviewer reply.
func (s *Server) SendMessageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if notAcceptable(w, r) {
			return
		}
		id, r := sessionRequest(r)
		var req sendMessageRequest
		if details, err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		res, err := s.Interview.SendMessage(r.Context(), id, req.Message)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		warnings := res.Warnings
		if warnings == nil {
			warnings = []string{}
		}
		writeJSON(w, http.StatusOK, sendMessageResponse{
			UserMessage: toMessage(res.UserMessage),
			AIResponse:  toMessage(res.AIResponse),
			Truncated:   res.Truncated,
			Warnings:    warnings,
		})
	}
}

// EndSessionHandler completes an active session and returns its feedback.
func (s *Server) EndSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if notAcceptable(w, r) {
			return
		}
		id, r := sessionRequest(r)
		res, err := s.Interview.EndSession(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, endSessionResponse{Session: toSession(res.Session), Feedback: res.Feedback})
	}
}

// ListMessagesHandler returns the transcript ordered by messageOrder.
func (s *Server) ListMessagesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if notAcceptable(w, r) {
			return
		}
		id, r := sessionRequest(r)
		msgs, err := s.Interview.ListMessages(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"messages": toMessages(msgs)})
	}
}

// ListQuestionsHandler returns reference questions for ?stage=.
func (s *Server) ListQuestionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if notAcceptable(w, r) {
			return
		}
		limit, err := parseLimit(r.URL.Query().Get("limit"), maxQuestionsPerPage)
		if err != nil {
			writeError(w, r, err, map[string]string{"limit": "range"})
			return
		}
		stage := domain.InterviewStage(strings.TrimSpace(r.URL.Query().Get("stage")))
		qs, err := s.Interview.ListQuestions(r.Context(), stage, limit)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"questions": toQuestions(qs)})
	}
}

// TranscribeHandler accepts a multipart "audio" part and returns its text.
// The audio type is sniffed from content; the part header is not trusted.
func (s *Server) TranscribeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if notAcceptable(w, r) {
			return
		}
		id, r := sessionRequest(r)
		if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
			writeError(w, r, fmt.Errorf("%w: content-type must be multipart/form-data", domain.ErrInvalidArgument), nil)
			return
		}
		maxBytes := s.Cfg.MaxAudioMB * 1024 * 1024
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+(1<<20))
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				tooLarge(w, s.Cfg.MaxAudioMB)
				return
			}
			writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		f, _, err := r.FormFile("audio")
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: audio file required", domain.ErrInvalidArgument), map[string]string{"field": "audio"})
			return
		}
		defer func() { _ = f.Close() }()
		data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: audio read: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		if int64(len(data)) > maxBytes {
			tooLarge(w, s.Cfg.MaxAudioMB)
			return
		}
		mt := mimetype.Detect(data)
		if !isAudio(mt) {
			writeError(w, r, fmt.Errorf("%w: unsupported audio type %s", domain.ErrTranscription, mt.String()), map[string]string{"mime": mt.String()})
			return
		}
		text, err := s.Interview.Transcribe(r.Context(), id, data, mt.String())
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"text": text})
	}
}

func isAudio(mt *mimetype.MIME) bool {
	return strings.HasPrefix(mt.String(), "audio/") || mt.Is("video/webm")
}

func tooLarge(w http.ResponseWriter, maxMB int64) {
	writeJSON(w, http.StatusRequestEntityTooLarge, errorEnvelope{Error: apiError{
		Code:    "INVALID_ARGUMENT",
		Message: "payload too large",
		Details: map[string]any{"max_mb": maxMB},
	}})
}

// SpeechHandler synthesizes interviewer text and streams back audio/mpeg.
func (s *Server) SpeechHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req speechRequest
		if details, err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		ctx := obsctx.ContextWithSessionID(r.Context(), req.SessionID)
		audio, voice, err := s.Interview.Synthesize(ctx, usecase.SynthesizeInput{Text: req.Text, VoiceID: req.VoiceID, SessionID: req.SessionID})
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Header().Set("X-Voice-Id", voice)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(audio)
	}
}

// ReadyzHandler returns a readiness handler that probes DB and Redis.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		probes := []struct {
			name string
			fn   func(context.Context) error
		}{{"db", s.DBCheck}, {"redis", s.RedisCheck}}
		checks := make([]check, 0, len(probes))
		ok := true
		for _, p := range probes {
			if p.fn == nil {
				continue
			}
			if err := p.fn(ctx); err != nil {
				ok = false
				checks = append(checks, check{Name: p.name, OK: false, Details: err.Error()})
				continue
			}
			checks = append(checks, check{Name: p.name, OK: true})
		}
		st := http.StatusOK
		if !ok {
			st = http.StatusServiceUnavailable
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}
