package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// MessageRepo persists the ordered transcript of a session.
type MessageRepo struct{ Pool PgxPool }

// NewMessageRepo constructs a MessageRepo with the given pool.
func NewMessageRepo(p PgxPool) *MessageRepo { return &MessageRepo{Pool: p} }

// Append locks the parent session, rejects completed sessions and stores
// msgs with consecutive orders after the current maximum.
func (r *MessageRepo) Append(ctx domain.Context, sessionID string, msgs ...domain.NewMessage) ([]domain.ConversationMessage, error) {
	ctx, span := startSpan(ctx, "repo.messages", "messages.Append", "INSERT", "conversation_messages")
	defer span.End()
	if len(msgs) == 0 {
		return nil, nil
	}
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, fmt.Errorf("op=message.append: %w", domain.ErrNotFound)
	}

	var out []domain.ConversationMessage
	err := inTx(ctx, r.Pool, func(tx pgx.Tx) error {
		var stage string
		if err := tx.QueryRow(ctx, `SELECT stage FROM practice_sessions WHERE id=$1 FOR UPDATE`, sessionID).Scan(&stage); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrNotFound
			}
			return err
		}
		if domain.Stage(stage) == domain.StageCompleted {
			return &domain.InvalidStateError{
				SessionID: sessionID,
				Current:   domain.StageCompleted,
				Required:  []domain.Stage{domain.StageSetup, domain.StageActive},
			}
		}
		var maxOrder int
		if err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(message_order), 0) FROM conversation_messages WHERE session_id=$1`, sessionID).Scan(&maxOrder); err != nil {
			return err
		}
		var err error
		out, err = insertMessages(ctx, tx, sessionID, maxOrder, msgs)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("op=message.append: %w", err)
	}
	return out, nil
}

// insertMessages stores msgs with orders starting at after+1.
func insertMessages(ctx context.Context, db execer, sessionID string, after int, msgs []domain.NewMessage) ([]domain.ConversationMessage, error) {
	now := time.Now().UTC()
	out := make([]domain.ConversationMessage, 0, len(msgs))
	for i, m := range msgs {
		cm := domain.ConversationMessage{
			ID:           uuid.New().String(),
			SessionID:    sessionID,
			Role:         m.Role,
			Content:      m.Content,
			MessageOrder: after + i + 1,
			CreatedAt:    now,
		}
		q := `INSERT INTO conversation_messages (id, session_id, role, content, message_order, created_at) VALUES ($1,$2,$3,$4,$5,$6)`
		if _, err := db.Exec(ctx, q, cm.ID, cm.SessionID, string(cm.Role), cm.Content, cm.MessageOrder, cm.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, cm)
	}
	return out, nil
}

// List returns the transcript ordered by message order.
func (r *MessageRepo) List(ctx domain.Context, sessionID string) ([]domain.ConversationMessage, error) {
	ctx, span := startSpan(ctx, "repo.messages", "messages.List", "SELECT", "conversation_messages")
	defer span.End()
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, fmt.Errorf("op=message.list: %w", domain.ErrNotFound)
	}
	rows, err := r.Pool.Query(ctx, `SELECT id, session_id, role, content, message_order, created_at
		FROM conversation_messages WHERE session_id=$1 ORDER BY message_order`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("op=message.list: %w", err)
	}
	defer rows.Close()
	out := []domain.ConversationMessage{}
	for rows.Next() {
		var (
			m    domain.ConversationMessage
			role string
		)
		if err := rows.Scan(&m.ID, &m.SessionID, &role, &m.Content, &m.MessageOrder, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("op=message.list: %w", err)
		}
		m.Role = domain.MessageRole(role)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=message.list: %w", err)
	}
	return out, nil
}
