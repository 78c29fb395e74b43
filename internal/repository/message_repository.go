package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/guest-services/internal/domain"
)

// MessageRepository manages append-only thread messages.
type MessageRepository interface {
	// Append inserts msg unless its thread is archived or missing (ErrThreadClosed).
	Append(ctx context.Context, msg *domain.Message) error
	ListByThread(ctx context.Context, threadID string, limit int) ([]domain.Message, error)
}

type messageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository builds repository.
func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &messageRepository{pool: pool}
}

func (r *messageRepository) Append(ctx context.Context, msg *domain.Message) error {
	if !validID(msg.ThreadID) {
		return ErrThreadClosed
	}
	// The guard and the insert are one statement so an archive racing the
	// append cannot slip a message into a terminal thread.
	const query = `
        INSERT INTO messages (thread_id, sender_type, sender_name, body_text, payload)
        SELECT t.id, $2, $3, $4, $5 FROM threads t
        WHERE t.id=$1 AND t.status <> 'archived'
        RETURNING id, seq, created_at`
	err := r.pool.QueryRow(ctx, query,
		msg.ThreadID,
		msg.SenderType,
		msg.SenderName,
		msg.BodyText,
		nullableJSON(msg.Payload),
	).Scan(&msg.ID, &msg.Seq, &msg.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrThreadClosed
		}
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *messageRepository) ListByThread(ctx context.Context, threadID string, limit int) ([]domain.Message, error) {
	if !validID(threadID) {
		return []domain.Message{}, nil
	}
	if limit <= 0 {
		limit = 100
	}
	const query = `
        SELECT id, thread_id, sender_type, sender_name, body_text, payload, seq, created_at
        FROM messages WHERE thread_id=$1 ORDER BY created_at ASC, seq ASC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, threadID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Message, 0)
	for rows.Next() {
		var (
			msg     domain.Message
			payload []byte
		)
		if err := rows.Scan(
			&msg.ID,
			&msg.ThreadID,
			&msg.SenderType,
			&msg.SenderName,
			&msg.BodyText,
			&payload,
			&msg.Seq,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Payload = payload
		result = append(result, msg)
	}
	return result, rows.Err()
}
