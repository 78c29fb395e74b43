package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/guest-services/internal/domain"
)

// NoteRepository persists internal staff notes.
type NoteRepository interface {
	Create(ctx context.Context, note *domain.Note) error
}

type noteRepository struct {
	pool *pgxpool.Pool
}

// NewNoteRepository builds repository.
func NewNoteRepository(pool *pgxpool.Pool) NoteRepository {
	return &noteRepository{pool: pool}
}

func (r *noteRepository) Create(ctx context.Context, note *domain.Note) error {
	const query = `
        INSERT INTO notes (hotel_id, ticket_id, thread_id, author_staff_user_id, author_name, body_text)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	if err := r.pool.QueryRow(ctx, query,
		note.HotelID,
		note.TicketID,
		note.ThreadID,
		note.AuthorStaffUserID,
		note.AuthorName,
		note.BodyText,
	).Scan(&note.ID, &note.CreatedAt); err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}
