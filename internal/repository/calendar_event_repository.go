package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/guest-services/internal/domain"
)

// CalendarEventRepository reads and confirms stay itinerary entries.
type CalendarEventRepository interface {
	GetByID(ctx context.Context, id string) (*domain.CalendarEvent, error)
	UpdateStatus(ctx context.Context, id string, status domain.CalendarEventStatus) (*domain.CalendarEvent, error)
}

type calendarEventRepository struct {
	pool *pgxpool.Pool
}

// NewCalendarEventRepository builds the repository.
func NewCalendarEventRepository(pool *pgxpool.Pool) CalendarEventRepository {
	return &calendarEventRepository{pool: pool}
}

const calendarEventColumns = `id, hotel_id, stay_id, title, status, starts_at, created_at, updated_at`

func (r *calendarEventRepository) GetByID(ctx context.Context, id string) (*domain.CalendarEvent, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	return r.fetchSingle(ctx, `SELECT `+calendarEventColumns+` FROM calendar_events WHERE id=$1`, id)
}

func (r *calendarEventRepository) UpdateStatus(ctx context.Context, id string, status domain.CalendarEventStatus) (*domain.CalendarEvent, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	query := `UPDATE calendar_events SET status=$1, updated_at=NOW() WHERE id=$2 RETURNING ` + calendarEventColumns
	return r.fetchSingle(ctx, query, status, id)
}

func (r *calendarEventRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.CalendarEvent, error) {
	var event domain.CalendarEvent
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&event.ID,
		&event.HotelID,
		&event.StayID,
		&event.Title,
		&event.Status,
		&event.StartsAt,
		&event.CreatedAt,
		&event.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("calendar event: %w", err)
	}
	return &event, nil
}
