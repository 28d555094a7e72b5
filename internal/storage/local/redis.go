package local

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const defaultRedisTTL = 30 * 24 * time.Hour

// RedisSlots хранит снимки корзин в ключах cart:<device>.
type RedisSlots struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSlots создаёт хранилище поверх redis-клиента. ttl<=0 означает 30 дней.
func NewRedisSlots(client *redis.Client, ttl time.Duration) *RedisSlots {
	if ttl <= 0 {
		ttl = defaultRedisTTL
	}
	return &RedisSlots{client: client, ttl: ttl}
}

// Slot возвращает слот устройства.
func (r *RedisSlots) Slot(deviceID string) domain.SnapshotSlot {
	return &redisSlot{client: r.client, key: slotKey(deviceID), ttl: r.ttl}
}

// Ping проверяет доступность redis (используется health check).
func (r *RedisSlots) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

type redisSlot struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func (s *redisSlot) Get(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSlotEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return data, nil
}

func (s *redisSlot) Set(ctx context.Context, data []byte) error {
	if err := s.client.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (s *redisSlot) Remove(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

var _ domain.SnapshotSlot = (*redisSlot)(nil)
