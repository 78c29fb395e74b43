package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/guest-services/internal/domain"
)

// ThreadMutation edits a private copy of the stored thread.
type ThreadMutation func(thread *domain.Thread) error

// ThreadRepository encapsulates thread persistence.
type ThreadRepository interface {
	Create(ctx context.Context, thread *domain.Thread) error
	GetByID(ctx context.Context, id string) (*domain.Thread, error)
	Update(ctx context.Context, id string, mutate ThreadMutation) (prev, next *domain.Thread, err error)
	// FindOpenForStay returns the most recently created non-archived thread
	// of a stay in the department, or ErrNotFound.
	FindOpenForStay(ctx context.Context, hotelID, stayID, department string) (*domain.Thread, error)
}

type threadRepository struct {
	pool *pgxpool.Pool
}

// NewThreadRepository instantiates repository.
func NewThreadRepository(pool *pgxpool.Pool) ThreadRepository {
	return &threadRepository{pool: pool}
}

const threadColumns = `id, hotel_id, stay_id, department, status, title, assigned_staff_user_id,
               guest_last_read_at, version, created_at, updated_at`

func (r *threadRepository) Create(ctx context.Context, thread *domain.Thread) error {
	const query = `
        INSERT INTO threads (hotel_id, stay_id, department, status, title, assigned_staff_user_id)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, version, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		thread.HotelID,
		thread.StayID,
		thread.Department,
		thread.Status,
		thread.Title,
		thread.AssignedStaffUserID,
	).Scan(&thread.ID, &thread.Version, &thread.CreatedAt, &thread.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert thread: %w", err)
	}
	return nil
}

func (r *threadRepository) GetByID(ctx context.Context, id string) (*domain.Thread, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	return r.fetchSingle(ctx, `SELECT `+threadColumns+` FROM threads WHERE id=$1`, id)
}

func (r *threadRepository) FindOpenForStay(ctx context.Context, hotelID, stayID, department string) (*domain.Thread, error) {
	query := `SELECT ` + threadColumns + ` FROM threads
        WHERE hotel_id=$1 AND stay_id=$2 AND department=$3 AND status <> 'archived'
        ORDER BY created_at DESC LIMIT 1`
	return r.fetchSingle(ctx, query, hotelID, stayID, department)
}

func (r *threadRepository) Update(ctx context.Context, id string, mutate ThreadMutation) (*domain.Thread, *domain.Thread, error) {
	var prev, next *domain.Thread
	err := RetryOnConflict(ctx, func() error {
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		candidate := current.Clone()
		if err := mutate(&candidate); err != nil {
			return err
		}

		const query = `
            UPDATE threads SET department=$1, status=$2, title=$3, assigned_staff_user_id=$4,
                guest_last_read_at=$5, version=version+1, updated_at=NOW()
            WHERE id=$6 AND version=$7
            RETURNING version, updated_at`
		err = r.pool.QueryRow(ctx, query,
			candidate.Department,
			candidate.Status,
			candidate.Title,
			candidate.AssignedStaffUserID,
			candidate.GuestLastReadAt,
			current.ID,
			current.Version,
		).Scan(&candidate.Version, &candidate.UpdatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrVersionMismatch
			}
			return fmt.Errorf("update thread: %w", err)
		}
		prev, next = current, &candidate
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return prev, next, nil
}

func (r *threadRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Thread, error) {
	var thread domain.Thread
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&thread.ID,
		&thread.HotelID,
		&thread.StayID,
		&thread.Department,
		&thread.Status,
		&thread.Title,
		&thread.AssignedStaffUserID,
		&thread.GuestLastReadAt,
		&thread.Version,
		&thread.CreatedAt,
		&thread.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get thread: %w", err)
	}
	return &thread, nil
}
