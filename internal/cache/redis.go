package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"checkin-concierge-go/internal/models"
)

// RedisCache keeps reservation metadata in Redis. Useful when the daemon's
// database lives on a remote MySQL and round trips per cycle matter.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func redisKey(reservationID int64) string {
	return fmt.Sprintf("reservation:%d", reservationID)
}

func (c *RedisCache) Get(ctx context.Context, reservationID int64) (*models.ReservationInfo, error) {
	raw, err := c.client.Get(ctx, redisKey(reservationID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read reservation from redis: %w", err)
	}
	var info models.ReservationInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return nil, fmt.Errorf("failed to decode cached reservation: %w", err)
	}
	return &info, nil
}

func (c *RedisCache) Store(ctx context.Context, info models.ReservationInfo) error {
	raw, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to encode reservation: %w", err)
	}
	// No expiry: booking metadata is effectively immutable.
	if err := c.client.Set(ctx, redisKey(info.ReservationID), raw, 0).Err(); err != nil {
		return fmt.Errorf("failed to store reservation in redis: %w", err)
	}
	return nil
}
