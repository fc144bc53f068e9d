package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"service-booking/internal/data/entity"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// BookingCache is a read-through cache for single bookings. Misses and
// backend errors both come back as (nil, nil)/ignored: the cache is an
// optimization, never a source of truth.
type BookingCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

func NewBookingCache(client *redis.Client, ttl time.Duration, log *zap.Logger) *BookingCache {
	return &BookingCache{
		client: client,
		ttl:    ttl,
		log:    log.With(zap.String("component", "booking_cache")),
	}
}

func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}

func (c *BookingCache) Get(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	data, err := c.client.Get(ctx, bookingKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		c.log.Warn("Cache get failed", zap.Error(err), zap.String("booking_id", id.String()))
		return nil, nil
	}

	var booking entity.Booking
	if err := json.Unmarshal(data, &booking); err != nil {
		c.log.Warn("Cache entry corrupt, dropping", zap.Error(err), zap.String("booking_id", id.String()))
		c.client.Del(ctx, bookingKey(id))
		return nil, nil
	}
	return &booking, nil
}

func (c *BookingCache) Set(ctx context.Context, booking *entity.Booking) {
	payload, err := json.Marshal(booking)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, bookingKey(booking.ID), payload, c.ttl).Err(); err != nil {
		c.log.Warn("Cache set failed", zap.Error(err), zap.String("booking_id", booking.ID.String()))
	}
}

func (c *BookingCache) Invalidate(ctx context.Context, id uuid.UUID) {
	if err := c.client.Del(ctx, bookingKey(id)).Err(); err != nil {
		c.log.Warn("Cache invalidate failed", zap.Error(err), zap.String("booking_id", id.String()))
	}
}

func bookingKey(id uuid.UUID) string {
	return fmt.Sprintf("cache:booking:%s", id.String())
}
