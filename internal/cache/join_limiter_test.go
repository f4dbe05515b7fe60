package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestJoinKey(t *testing.T) {
	if got := joinKey(42); got != "join:attempts:42" {
		t.Errorf("joinKey(42) = %q", got)
	}
}

func TestNoopJoinLimiterAllowsEverything(t *testing.T) {
	l := NewNoopJoinLimiter()
	for i := 0; i < 100; i++ {
		if !l.Allow(context.Background(), 1) {
			t.Fatalf("attempt %d refused", i)
		}
	}
}

func TestJoinLimiterFailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { client.Close() })

	l := NewJoinLimiter(client, 1)
	for i := 0; i < 3; i++ {
		if !l.Allow(context.Background(), 7) {
			t.Fatalf("attempt %d refused while redis is down", i)
		}
	}
}
