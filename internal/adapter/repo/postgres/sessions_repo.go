// Package postgres implements the session, message and reference-data
// repositories on PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// PgxPool is a minimal subset of pgxpool used by the repos for easy testing.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// inTx runs fn in a transaction, rolling back when fn fails.
func inTx(ctx context.Context, p PgxPool, fn func(pgx.Tx) error) error {
	tx, err := p.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func startSpan(ctx context.Context, tracer, name, op, table string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracer).Start(ctx, name)
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", op),
		attribute.String("db.sql.table", table),
	)
	return ctx, span
}

// SessionRepo persists practice sessions.
type SessionRepo struct{ Pool PgxPool }

// NewSessionRepo constructs a SessionRepo with the given pool.
func NewSessionRepo(p PgxPool) *SessionRepo { return &SessionRepo{Pool: p} }

const sessionColumns = `id, user_id, position, company, industry, interview_stage, job_description_id, stage, persona,
	started_at, completed_at, duration_seconds, overall_score, criteria_scores, criteria_feedback, feedback, improvements,
	created_at, updated_at`

// Create inserts a new session and returns its id (generates one if empty).
func (r *SessionRepo) Create(ctx domain.Context, s domain.PracticeSession) (string, error) {
	ctx, span := startSpan(ctx, "repo.sessions", "sessions.Create", "INSERT", "practice_sessions")
	defer span.End()

	id := s.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if err := insertSession(ctx, r.Pool, id, s, now); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("op=session.create: %w", err)
	}
	return id, nil
}

// CreateWithMessages inserts the session and its opening messages in one
// transaction.
func (r *SessionRepo) CreateWithMessages(ctx domain.Context, s domain.PracticeSession, msgs ...domain.NewMessage) (string, []domain.ConversationMessage, error) {
	ctx, span := startSpan(ctx, "repo.sessions", "sessions.CreateWithMessages", "INSERT", "practice_sessions")
	defer span.End()

	id := s.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	var out []domain.ConversationMessage
	err := inTx(ctx, r.Pool, func(tx pgx.Tx) error {
		if err := insertSession(ctx, tx, id, s, now); err != nil {
			return err
		}
		var err error
		out, err = insertMessages(ctx, tx, id, 0, msgs)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return "", nil, fmt.Errorf("op=session.create: %w", err)
	}
	return id, out, nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertSession(ctx context.Context, db execer, id string, s domain.PracticeSession, now time.Time) error {
	args, err := sessionArgs(s)
	if err != nil {
		return err
	}
	q := `INSERT INTO practice_sessions (` + sessionColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`
	_, err = db.Exec(ctx, q, append([]any{id}, append(args, s.CreatedAt, now)...)...)
	return err
}

// Get loads a session by id.
func (r *SessionRepo) Get(ctx domain.Context, id string) (domain.PracticeSession, error) {
	ctx, span := startSpan(ctx, "repo.sessions", "sessions.Get", "SELECT", "practice_sessions")
	defer span.End()
	if _, err := uuid.Parse(id); err != nil {
		return domain.PracticeSession{}, fmt.Errorf("op=session.get: %w", domain.ErrNotFound)
	}
	s, err := scanSession(r.Pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM practice_sessions WHERE id=$1`, id))
	if err != nil {
		return domain.PracticeSession{}, fmt.Errorf("op=session.get: %w", err)
	}
	return s, nil
}

// Update locks the row, applies fn and writes the mutable columns back in one
// transaction. Errors from fn roll back and are returned as is.
func (r *SessionRepo) Update(ctx domain.Context, id string, fn func(*domain.PracticeSession) error) (domain.PracticeSession, error) {
	ctx, span := startSpan(ctx, "repo.sessions", "sessions.Update", "UPDATE", "practice_sessions")
	defer span.End()
	if _, err := uuid.Parse(id); err != nil {
		return domain.PracticeSession{}, fmt.Errorf("op=session.update: %w", domain.ErrNotFound)
	}

	var out domain.PracticeSession
	err := inTx(ctx, r.Pool, func(tx pgx.Tx) error {
		s, err := scanSession(tx.QueryRow(ctx, `SELECT `+sessionColumns+` FROM practice_sessions WHERE id=$1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		if err := fn(&s); err != nil {
			return err
		}
		s.UpdatedAt = time.Now().UTC()
		args, err := sessionArgs(s)
		if err != nil {
			return err
		}
		q := `UPDATE practice_sessions SET user_id=$2, position=$3, company=$4, industry=$5, interview_stage=$6,
			job_description_id=$7, stage=$8, persona=$9, started_at=$10, completed_at=$11, duration_seconds=$12,
			overall_score=$13, criteria_scores=$14, criteria_feedback=$15, feedback=$16, improvements=$17, updated_at=$18
			WHERE id=$1`
		if _, err := tx.Exec(ctx, q, append([]any{id}, append(args, s.UpdatedAt)...)...); err != nil {
			return err
		}
		out = s
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return domain.PracticeSession{}, fmt.Errorf("op=session.update: %w", err)
	}
	return out, nil
}

// sessionArgs returns columns 2..17 in sessionColumns order.
func sessionArgs(s domain.PracticeSession) ([]any, error) {
	persona, err := json.Marshal(s.Persona)
	if err != nil {
		return nil, err
	}
	scores, err := nullableJSON(s.CriteriaScores, s.CriteriaScores == nil)
	if err != nil {
		return nil, err
	}
	fb, err := nullableJSON(s.CriteriaFeedback, s.CriteriaFeedback == nil)
	if err != nil {
		return nil, err
	}
	imp, err := nullableJSON(s.Improvements, s.Improvements == nil)
	if err != nil {
		return nil, err
	}
	var jd *string
	if s.JobDescriptionID != "" {
		jd = &s.JobDescriptionID
	}
	return []any{
		s.UserID, s.Position, s.Company, s.Industry, string(s.InterviewStage), jd, string(s.Stage), persona,
		s.StartedAt, s.CompletedAt, s.Duration, s.OverallScore, scores, fb, s.Feedback, imp,
	}, nil
}

func nullableJSON(v any, isNil bool) ([]byte, error) {
	if isNil {
		return nil, nil
	}
	return json.Marshal(v)
}

func scanSession(row pgx.Row) (domain.PracticeSession, error) {
	var (
		s                        domain.PracticeSession
		interviewStage, stage    string
		jd                       *string
		persona, scores, fb, imp []byte
	)
	err := row.Scan(&s.ID, &s.UserID, &s.Position, &s.Company, &s.Industry, &interviewStage, &jd, &stage, &persona,
		&s.StartedAt, &s.CompletedAt, &s.Duration, &s.OverallScore, &scores, &fb, &s.Feedback, &imp,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PracticeSession{}, domain.ErrNotFound
		}
		return domain.PracticeSession{}, err
	}
	s.InterviewStage = domain.InterviewStage(interviewStage)
	s.Stage = domain.Stage(stage)
	if jd != nil {
		s.JobDescriptionID = *jd
	}
	if len(persona) > 0 {
		if err := json.Unmarshal(persona, &s.Persona); err != nil {
			return domain.PracticeSession{}, fmt.Errorf("decode persona: %w", err)
		}
	}
	if len(scores) > 0 {
		if err := json.Unmarshal(scores, &s.CriteriaScores); err != nil {
			return domain.PracticeSession{}, fmt.Errorf("decode criteria scores: %w", err)
		}
	}
	if len(fb) > 0 {
		if err := json.Unmarshal(fb, &s.CriteriaFeedback); err != nil {
			return domain.PracticeSession{}, fmt.Errorf("decode criteria feedback: %w", err)
		}
	}
	if len(imp) > 0 {
		if err := json.Unmarshal(imp, &s.Improvements); err != nil {
			return domain.PracticeSession{}, fmt.Errorf("decode improvements: %w", err)
		}
	}
	return s, nil
}
