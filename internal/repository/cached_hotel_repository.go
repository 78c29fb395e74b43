package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/guest-services/internal/domain"
)

const settingsKeyPrefix = "hotel:notification-settings:"

// cachedHotelRepository fronts a HotelRepository with an in-process cache
// and, when a client is given, a shared Redis cache.
type cachedHotelRepository struct {
	next   HotelRepository
	local  *cache.Cache
	redis  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedHotelRepository wraps next. rdb may be nil. Missing settings are
// cached as the all-"none" default so lookups for unconfigured hotels stay cheap.
func NewCachedHotelRepository(next HotelRepository, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) HotelRepository {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &cachedHotelRepository{
		next:   next,
		local:  cache.New(ttl, 2*ttl),
		redis:  rdb,
		ttl:    ttl,
		logger: logger,
	}
}

func (r *cachedHotelRepository) GetNotificationSettings(ctx context.Context, hotelID string) (*domain.HotelNotificationSettings, error) {
	if cached, ok := r.local.Get(hotelID); ok {
		settings := cached.(domain.HotelNotificationSettings)
		return &settings, nil
	}

	key := settingsKeyPrefix + hotelID
	if r.redis != nil {
		raw, err := r.redis.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			var settings domain.HotelNotificationSettings
			if jsonErr := json.Unmarshal(raw, &settings); jsonErr == nil {
				r.local.SetDefault(hotelID, settings)
				return &settings, nil
			}
		case !errors.Is(err, redis.Nil):
			r.logger.Warn("redis settings lookup failed", zap.String("hotel_id", hotelID), zap.Error(err))
		}
	}

	settings, err := r.next.GetNotificationSettings(ctx, hotelID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("load notification settings: %w", err)
		}
		settings = &domain.HotelNotificationSettings{HotelID: hotelID}
	}

	r.local.SetDefault(hotelID, *settings)
	if r.redis != nil {
		if raw, err := json.Marshal(settings); err == nil {
			if err := r.redis.Set(ctx, key, raw, r.ttl).Err(); err != nil {
				r.logger.Warn("redis settings store failed", zap.String("hotel_id", hotelID), zap.Error(err))
			}
		}
	}
	return settings, nil
}
