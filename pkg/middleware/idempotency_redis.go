package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"time"
	"wanderlust/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const idempotencyKeyPrefix = "idempotency:http:"

type redisIdempotencyState struct {
	Status   string          `json:"status"`
	Response *CachedResponse `json:"response,omitempty"`
}

const (
	idempotencyProcessing = "processing"
	idempotencySuccess    = "success"
)

// RedisIdempotencyStore shares idempotency state between API replicas.
// Redis failures degrade to "not cached" so requests still go through.
type RedisIdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

func NewRedisIdempotencyStore(client *redis.Client, ttl time.Duration, log *logger.Logger) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client, ttl: ttl, log: log}
}

func (s *RedisIdempotencyStore) key(k string) string {
	return idempotencyKeyPrefix + k
}

func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) (*CachedResponse, bool) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn("Idempotency lookup failed", "error", err)
		}
		return nil, false
	}

	var state redisIdempotencyState
	if err := json.Unmarshal(data, &state); err != nil {
		s.log.Warn("Corrupt idempotency entry", "error", err)
		return nil, false
	}
	if state.Status != idempotencySuccess || state.Response == nil {
		return nil, false
	}
	return state.Response, true
}

func (s *RedisIdempotencyStore) Reserve(ctx context.Context, key string) bool {
	raw, _ := json.Marshal(redisIdempotencyState{Status: idempotencyProcessing})
	_, err := s.client.SetArgs(ctx, s.key(key), raw, redis.SetArgs{Mode: "NX", TTL: s.ttl}).Result()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		s.log.Warn("Idempotency reservation failed", "error", err)
	}
	return true
}

func (s *RedisIdempotencyStore) Set(ctx context.Context, key string, response *CachedResponse) {
	response.CreatedAt = time.Now()
	raw, err := json.Marshal(redisIdempotencyState{Status: idempotencySuccess, Response: response})
	if err != nil {
		s.log.Warn("Failed to encode idempotent response", "error", err)
		return
	}
	if err := s.client.Set(ctx, s.key(key), raw, s.ttl).Err(); err != nil {
		s.log.Warn("Failed to store idempotent response", "error", err)
	}
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		s.log.Warn("Failed to release idempotency key", "error", err)
	}
}

// Stop is a no-op; the Redis client is closed with the shared clients.
func (s *RedisIdempotencyStore) Stop() {}
