package bucket

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"gmarup/internal/ratelimit/models"
)

// Redis is a sliding window store backed by a Redis sorted set per key.
// Member scores are request timestamps in nanoseconds; trimming the set by
// score implements the window.
type Redis struct {
	client *redis.Client
}

// NewRedis creates a Redis-backed bucket store.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Allow records one request against key and reports whether it fits inside
// limit per window. The trim, count, and add run in one pipeline so two
// replicas cannot both admit the final slot.
func (s *Redis) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error) {
	now := time.Now()
	redisKey := "ratelimit:" + key
	cutoff := strconv.FormatInt(now.Add(-window).UnixNano(), 10)
	member := strconv.FormatInt(now.UnixNano(), 10)

	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", cutoff)
	countCmd := pipe.ZCard(ctx, redisKey)
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: member})
	pipe.Expire(ctx, redisKey, window)
	oldestCmd := pipe.ZRangeWithScores(ctx, redisKey, 0, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redis rate limit check: %w", err)
	}

	count := int(countCmd.Val())
	resetAt := now.Add(window)
	if oldest := oldestCmd.Val(); len(oldest) > 0 {
		resetAt = time.Unix(0, int64(oldest[0].Score)).Add(window)
	}

	if count >= limit {
		// The speculative add above must not count against the caller.
		if err := s.client.ZRem(ctx, redisKey, member).Err(); err != nil {
			return nil, fmt.Errorf("redis rate limit rollback: %w", err)
		}
		return &models.Result{Allowed: false, Remaining: 0, ResetAt: resetAt, Limit: limit}, nil
	}

	return &models.Result{
		Allowed:   true,
		Remaining: limit - count - 1,
		ResetAt:   resetAt,
		Limit:     limit,
	}, nil
}

// Reset clears the counter for key.
func (s *Redis) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, "ratelimit:"+key).Err(); err != nil {
		return fmt.Errorf("redis rate limit reset: %w", err)
	}
	return nil
}
