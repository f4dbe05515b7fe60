package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const joinWindow = time.Minute

// JoinLimiter throttles game-code attempts per user so codes cannot be brute-forced.
type JoinLimiter interface {
	Allow(ctx context.Context, userID uint) bool
}

type joinLimiter struct {
	client *redis.Client
	limit  int64
}

// NewJoinLimiter counts attempts in Redis with a fixed one-minute window.
func NewJoinLimiter(client *redis.Client, perMinute int) JoinLimiter {
	return &joinLimiter{
		client: client,
		limit:  int64(perMinute),
	}
}

func joinKey(userID uint) string {
	return fmt.Sprintf("join:attempts:%d", userID)
}

// Allow fails open: if Redis is unreachable the attempt is let through.
func (l *joinLimiter) Allow(ctx context.Context, userID uint) bool {
	key := joinKey(userID)
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		log.Printf("join limiter: incr %s: %v", key, err)
		return true
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, joinWindow).Err(); err != nil {
			log.Printf("join limiter: expire %s: %v", key, err)
		}
	}
	return count <= l.limit
}

type noopJoinLimiter struct{}

// NewNoopJoinLimiter allows every attempt. Used when no Redis is configured.
func NewNoopJoinLimiter() JoinLimiter {
	return noopJoinLimiter{}
}

func (noopJoinLimiter) Allow(context.Context, uint) bool {
	return true
}
