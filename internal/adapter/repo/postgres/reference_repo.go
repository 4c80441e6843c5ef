package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// QuestionRepo reads reference interview questions.
type QuestionRepo struct{ Pool PgxPool }

// NewQuestionRepo constructs a QuestionRepo with the given pool.
func NewQuestionRepo(p PgxPool) *QuestionRepo { return &QuestionRepo{Pool: p} }

// ListByStage returns up to limit questions for the stage in a stable order.
func (r *QuestionRepo) ListByStage(ctx domain.Context, stage domain.InterviewStage, limit int) ([]domain.Question, error) {
	ctx, span := startSpan(ctx, "repo.questions", "questions.ListByStage", "SELECT", "interview_questions")
	defer span.End()
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.Pool.Query(ctx, `SELECT id, interview_stage, category, text, difficulty
		FROM interview_questions WHERE interview_stage=$1 ORDER BY id LIMIT $2`, string(stage), limit)
	if err != nil {
		return nil, fmt.Errorf("op=question.list: %w", err)
	}
	defer rows.Close()
	out := []domain.Question{}
	for rows.Next() {
		var (
			q  domain.Question
			st string
		)
		if err := rows.Scan(&q.ID, &st, &q.Category, &q.Text, &q.Difficulty); err != nil {
			return nil, fmt.Errorf("op=question.list: %w", err)
		}
		q.InterviewStage = domain.InterviewStage(st)
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=question.list: %w", err)
	}
	return out, nil
}

// JobDescriptionRepo reads job descriptions attached at session setup.
type JobDescriptionRepo struct{ Pool PgxPool }

// NewJobDescriptionRepo constructs a JobDescriptionRepo with the given pool.
func NewJobDescriptionRepo(p PgxPool) *JobDescriptionRepo { return &JobDescriptionRepo{Pool: p} }

// Get loads a job description by id.
func (r *JobDescriptionRepo) Get(ctx domain.Context, id string) (domain.JobDescription, error) {
	ctx, span := startSpan(ctx, "repo.job_descriptions", "job_descriptions.Get", "SELECT", "job_descriptions")
	defer span.End()
	var jd domain.JobDescription
	err := r.Pool.QueryRow(ctx, `SELECT id, title, company, text FROM job_descriptions WHERE id=$1`, id).
		Scan(&jd.ID, &jd.Title, &jd.Company, &jd.Text)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.JobDescription{}, fmt.Errorf("op=job_description.get: %w", domain.ErrNotFound)
		}
		return domain.JobDescription{}, fmt.Errorf("op=job_description.get: %w", err)
	}
	return jd, nil
}
