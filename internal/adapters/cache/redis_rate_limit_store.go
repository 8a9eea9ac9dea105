package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/terraregistry/auth-service/internal/ports"
)

// RedisRateLimitStore implements fixed-window request throttling in Redis.
type RedisRateLimitStore struct {
	client *redis.Client
}

// NewRedisRateLimitStore creates a rate-limit store backed by Redis hashes.
func NewRedisRateLimitStore(client *redis.Client) *RedisRateLimitStore {
	return &RedisRateLimitStore{client: client}
}

func (s *RedisRateLimitStore) Get(ctx context.Context, key string) (ports.RateLimitState, error) {
	data, err := s.client.HGetAll(ctx, "auth:ratelimit:"+key).Result()
	if err != nil {
		return ports.RateLimitState{}, err
	}
	if len(data) == 0 {
		return ports.RateLimitState{}, nil
	}

	state := ports.RateLimitState{}
	if raw, ok := data["hit_count"]; ok {
		if n, convErr := strconv.Atoi(raw); convErr == nil {
			state.Count = n
		}
	}
	if raw, ok := data["blocked_until"]; ok && raw != "" {
		if unix, convErr := strconv.ParseInt(raw, 10, 64); convErr == nil && unix > 0 {
			t := time.Unix(unix, 0).UTC()
			state.BlockedUntil = &t
		}
	}
	return state, nil
}

func (s *RedisRateLimitStore) RecordHit(ctx context.Context, key string, now time.Time, threshold int, window time.Duration) (ports.RateLimitState, error) {
	redisKey := "auth:ratelimit:" + key

	count, err := s.client.HIncrBy(ctx, redisKey, "hit_count", 1).Result()
	if err != nil {
		return ports.RateLimitState{}, err
	}

	state := ports.RateLimitState{Count: int(count)}
	if int(count) > threshold {
		blockedUntil := now.Add(window).UTC()
		_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, redisKey, "blocked_until", blockedUntil.Unix())
			p.Expire(ctx, redisKey, window+5*time.Minute) // TTL buffer so a block never outlives its key
			return nil
		})
		if err != nil {
			return ports.RateLimitState{}, err
		}
		state.BlockedUntil = &blockedUntil
		return state, nil
	}

	_ = s.client.Expire(ctx, redisKey, window).Err() // window reset happens via key expiry
	return state, nil
}

func (s *RedisRateLimitStore) Clear(ctx context.Context, key string) error {
	return s.client.Del(ctx, "auth:ratelimit:"+key).Err()
}
