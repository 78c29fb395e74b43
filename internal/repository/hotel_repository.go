package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/guest-services/internal/domain"
)

// HotelRepository reads hotel-level configuration consumed by the workflow.
type HotelRepository interface {
	GetNotificationSettings(ctx context.Context, hotelID string) (*domain.HotelNotificationSettings, error)
}

type hotelRepository struct {
	pool *pgxpool.Pool
}

// NewHotelRepository builds the repository.
func NewHotelRepository(pool *pgxpool.Pool) HotelRepository {
	return &hotelRepository{pool: pool}
}

func (r *hotelRepository) GetNotificationSettings(ctx context.Context, hotelID string) (*domain.HotelNotificationSettings, error) {
	const query = `
        SELECT hotel_id, email_provider, sms_provider, push_provider
        FROM hotel_notification_settings WHERE hotel_id=$1`
	var settings domain.HotelNotificationSettings
	if err := r.pool.QueryRow(ctx, query, hotelID).Scan(
		&settings.HotelID,
		&settings.EmailProvider,
		&settings.SMSProvider,
		&settings.PushProvider,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get notification settings: %w", err)
	}
	return &settings, nil
}
