package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/guest-services/internal/domain"
)

// TicketMutation edits a private copy of the stored ticket. Returning an
// error aborts the update and leaves the stored row untouched.
type TicketMutation func(ticket *domain.Ticket) error

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// Update applies mutate atomically and returns the previous and committed snapshots.
	Update(ctx context.Context, id string, mutate TicketMutation) (prev, next *domain.Ticket, err error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, hotel_id, stay_id, room_number, department, status, title,
               assigned_staff_user_id, service_item_id, payload, version, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (hotel_id, stay_id, room_number, department, status, title,
            assigned_staff_user_id, service_item_id, payload)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, version, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		ticket.HotelID,
		ticket.StayID,
		ticket.RoomNumber,
		ticket.Department,
		ticket.Status,
		ticket.Title,
		ticket.AssignedStaffUserID,
		ticket.ServiceItemID,
		nullableJSON(ticket.Payload),
	).Scan(&ticket.ID, &ticket.Version, &ticket.CreatedAt, &ticket.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert ticket: %w", err)
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get ticket: %w", err)
	}
	return ticket, nil
}

func (r *ticketRepository) Update(ctx context.Context, id string, mutate TicketMutation) (*domain.Ticket, *domain.Ticket, error) {
	var prev, next *domain.Ticket
	err := RetryOnConflict(ctx, func() error {
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		candidate := current.Clone()
		if err := mutate(&candidate); err != nil {
			return err
		}

		// hotel_id is immutable and never part of the SET list.
		const query = `
            UPDATE tickets SET stay_id=$1, room_number=$2, department=$3, status=$4, title=$5,
                assigned_staff_user_id=$6, service_item_id=$7, payload=$8,
                version=version+1, updated_at=NOW()
            WHERE id=$9 AND version=$10
            RETURNING version, updated_at`
		err = r.pool.QueryRow(ctx, query,
			candidate.StayID,
			candidate.RoomNumber,
			candidate.Department,
			candidate.Status,
			candidate.Title,
			candidate.AssignedStaffUserID,
			candidate.ServiceItemID,
			nullableJSON(candidate.Payload),
			current.ID,
			current.Version,
		).Scan(&candidate.Version, &candidate.UpdatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrVersionMismatch
			}
			return fmt.Errorf("update ticket: %w", err)
		}
		prev, next = current, &candidate
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return prev, next, nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket  domain.Ticket
		payload []byte
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.HotelID,
		&ticket.StayID,
		&ticket.RoomNumber,
		&ticket.Department,
		&ticket.Status,
		&ticket.Title,
		&ticket.AssignedStaffUserID,
		&ticket.ServiceItemID,
		&payload,
		&ticket.Version,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	ticket.Payload = payload
	return &ticket, nil
}

func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
