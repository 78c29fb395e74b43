package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/guest-services/internal/domain"
)

// OutboxRepository stores notification outbox entries. Delivery is performed
// by an external sender that advances status/attempts.
type OutboxRepository interface {
	Create(ctx context.Context, entry *domain.NotificationOutboxEntry) error
}

type outboxRepository struct {
	pool *pgxpool.Pool
}

// NewOutboxRepository builds the repository.
func NewOutboxRepository(pool *pgxpool.Pool) OutboxRepository {
	return &outboxRepository{pool: pool}
}

func (r *outboxRepository) Create(ctx context.Context, entry *domain.NotificationOutboxEntry) error {
	const query = `
        INSERT INTO notification_outbox (hotel_id, channel, provider, to_address, subject, body_text, payload,
            status, attempts, next_attempt_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at, updated_at`
	if err := r.pool.QueryRow(ctx, query,
		entry.HotelID,
		entry.Channel,
		entry.Provider,
		entry.ToAddress,
		entry.Subject,
		entry.BodyText,
		nullableJSON(entry.Payload),
		entry.Status,
		entry.Attempts,
		entry.NextAttemptAt,
	).Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}
