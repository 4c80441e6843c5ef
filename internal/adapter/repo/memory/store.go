// Package memory holds in-process repositories for local runs without
// PostgreSQL. They enforce the same ordering and stage rules as the
// PostgreSQL repositories.
package memory

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// Store is the shared state behind the repositories.
type Store struct {
	mu        sync.Mutex
	sessions  map[string]domain.PracticeSession
	messages  map[string][]domain.ConversationMessage
	questions []domain.Question
	jobDescs  map[string]domain.JobDescription

	Sessions  *SessionRepo
	Messages  *MessageRepo
	Questions *QuestionRepo
	JobDescs  *JobDescriptionRepo
}

// NewStore returns an empty store seeded with questions.
func NewStore(questions ...domain.Question) *Store {
	s := &Store{
		sessions:  map[string]domain.PracticeSession{},
		messages:  map[string][]domain.ConversationMessage{},
		questions: questions,
		jobDescs:  map[string]domain.JobDescription{},
	}
	s.Sessions = &SessionRepo{s: s}
	s.Messages = &MessageRepo{s: s}
	s.Questions = &QuestionRepo{s: s}
	s.JobDescs = &JobDescriptionRepo{s: s}
	return s
}

// PutJobDescription stores jd.
func (s *Store) PutJobDescription(jd domain.JobDescription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobDescs[jd.ID] = jd
}

// SessionRepo implements domain.SessionRepository.
type SessionRepo struct{ s *Store }

func (r *SessionRepo) Create(ctx domain.Context, p domain.PracticeSession) (string, error) {
	id, _, err := r.CreateWithMessages(ctx, p)
	return id, err
}

func (r *SessionRepo) CreateWithMessages(_ domain.Context, p domain.PracticeSession, msgs ...domain.NewMessage) (string, []domain.ConversationMessage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if _, ok := r.s.sessions[p.ID]; ok {
		return "", nil, fmt.Errorf("op=session.create: %w", domain.ErrConflict)
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	r.s.sessions[p.ID] = p
	out := newMessages(p.ID, 0, msgs, now)
	if len(out) > 0 {
		r.s.messages[p.ID] = out
	}
	return p.ID, out, nil
}

func (r *SessionRepo) Get(_ domain.Context, id string) (domain.PracticeSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.sessions[id]
	if !ok {
		return domain.PracticeSession{}, fmt.Errorf("op=session.get: %w", domain.ErrNotFound)
	}
	return p, nil
}

func (r *SessionRepo) Update(_ domain.Context, id string, fn func(*domain.PracticeSession) error) (domain.PracticeSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.sessions[id]
	if !ok {
		return domain.PracticeSession{}, fmt.Errorf("op=session.update: %w", domain.ErrNotFound)
	}
	if err := fn(&p); err != nil {
		return domain.PracticeSession{}, fmt.Errorf("op=session.update: %w", err)
	}
	p.UpdatedAt = time.Now().UTC()
	r.s.sessions[id] = p
	return p, nil
}

// MessageRepo implements domain.MessageRepository.
type MessageRepo struct{ s *Store }

func (r *MessageRepo) Append(_ domain.Context, sessionID string, msgs ...domain.NewMessage) ([]domain.ConversationMessage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("op=message.append: %w", domain.ErrNotFound)
	}
	if p.Stage == domain.StageCompleted {
		return nil, fmt.Errorf("op=message.append: %w", &domain.InvalidStateError{
			SessionID: sessionID, Current: p.Stage, Required: []domain.Stage{domain.StageSetup, domain.StageActive},
		})
	}
	existing := r.s.messages[sessionID]
	out := newMessages(sessionID, len(existing), msgs, time.Now().UTC())
	r.s.messages[sessionID] = append(existing, out...)
	return out, nil
}

func newMessages(sessionID string, after int, msgs []domain.NewMessage, now time.Time) []domain.ConversationMessage {
	out := make([]domain.ConversationMessage, 0, len(msgs))
	for i, m := range msgs {
		out = append(out, domain.ConversationMessage{
			ID:           uuid.New().String(),
			SessionID:    sessionID,
			Role:         m.Role,
			Content:      m.Content,
			MessageOrder: after + i + 1,
			CreatedAt:    now,
		})
	}
	return out
}

func (r *MessageRepo) List(_ domain.Context, sessionID string) ([]domain.ConversationMessage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]domain.ConversationMessage{}, r.s.messages[sessionID]...), nil
}

// QuestionRepo implements domain.QuestionRepository.
type QuestionRepo struct{ s *Store }

func (r *QuestionRepo) ListByStage(_ domain.Context, stage domain.InterviewStage, limit int) ([]domain.Question, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.Question{}
	for _, q := range r.s.questions {
		if q.InterviewStage == stage {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// JobDescriptionRepo implements domain.JobDescriptionRepository.
type JobDescriptionRepo struct{ s *Store }

func (r *JobDescriptionRepo) Get(_ domain.Context, id string) (domain.JobDescription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	jd, ok := r.s.jobDescs[id]
	if !ok {
		return domain.JobDescription{}, fmt.Errorf("op=job_description.get: %w", domain.ErrNotFound)
	}
	return jd, nil
}
