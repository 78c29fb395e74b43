package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/guest-services/internal/domain"
)

// HistoryRepository stores audit entries.
type HistoryRepository interface {
	Create(ctx context.Context, entry *domain.HistoryEntry) error
	ListByEntity(ctx context.Context, entityType, entityID string) ([]domain.HistoryEntry, error)
}

type historyRepository struct {
	pool *pgxpool.Pool
}

// NewHistoryRepository builds repository.
func NewHistoryRepository(pool *pgxpool.Pool) HistoryRepository {
	return &historyRepository{pool: pool}
}

func (r *historyRepository) Create(ctx context.Context, entry *domain.HistoryEntry) error {
	const query = `
        INSERT INTO change_history (hotel_id, entity_type, entity_id, actor_kind, actor_id, change_type, old_value, new_value)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query,
		entry.HotelID,
		entry.EntityType,
		entry.EntityID,
		entry.ActorKind,
		entry.ActorID,
		entry.ChangeType,
		entry.OldValue,
		entry.NewValue,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

func (r *historyRepository) ListByEntity(ctx context.Context, entityType, entityID string) ([]domain.HistoryEntry, error) {
	if !validID(entityID) {
		return nil, nil
	}
	const query = `
        SELECT id, hotel_id, entity_type, entity_id, actor_kind, actor_id, change_type, old_value, new_value, created_at
        FROM change_history WHERE entity_type=$1 AND entity_id=$2 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var result []domain.HistoryEntry
	for rows.Next() {
		var entry domain.HistoryEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.HotelID,
			&entry.EntityType,
			&entry.EntityID,
			&entry.ActorKind,
			&entry.ActorID,
			&entry.ChangeType,
			&entry.OldValue,
			&entry.NewValue,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
