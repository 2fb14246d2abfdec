package event

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultDedupTTL bounds how long processed event IDs are remembered. Kafka
// redeliveries arrive within seconds; a day of history is generous.
const DefaultDedupTTL = 24 * time.Hour

// RedisIdempotencyStore records processed event IDs in Redis so deduplication
// survives restarts and is shared across consumer instances.
type RedisIdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisIdempotencyStore creates a Redis-backed idempotency store.
func NewRedisIdempotencyStore(client *redis.Client, ttl time.Duration) *RedisIdempotencyStore {
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	return &RedisIdempotencyStore{client: client, ttl: ttl}
}

// Contains reports whether the event ID has already been processed.
func (s *RedisIdempotencyStore) Contains(ctx context.Context, eventID string) (bool, error) {
	n, err := s.client.Exists(ctx, dedupKey(eventID)).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency lookup: %w", err)
	}
	return n > 0, nil
}

// Add marks the event ID as processed.
func (s *RedisIdempotencyStore) Add(ctx context.Context, eventID string) error {
	if err := s.client.Set(ctx, dedupKey(eventID), "1", s.ttl).Err(); err != nil {
		return fmt.Errorf("idempotency record: %w", err)
	}
	return nil
}

func dedupKey(eventID string) string {
	return "search:events:seen:" + eventID
}
