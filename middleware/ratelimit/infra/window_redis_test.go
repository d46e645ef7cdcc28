package infra

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisWindowStore_AllowsUpToLimitThenRejects(t *testing.T) {
	_, rdb := newTestRedis(t)
	clk := newFakeClock()
	s := NewRedisWindowStore(rdb, 2, time.Minute, WithWindowPrefix("test:"), WithRedisClock(clk.Now))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		q, err := s.Allow(ctx, "10.0.0.1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !q.Allowed {
			t.Fatalf("expected request %d to pass", i+1)
		}
		if q.Remaining != 1-i {
			t.Fatalf("expected Remaining=%d, got %d", 1-i, q.Remaining)
		}
	}

	clk.Advance(15 * time.Second)
	q, err := s.Allow(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Allowed {
		t.Fatalf("expected third request to be rejected")
	}
	if q.RetryAfter != 45*time.Second {
		t.Fatalf("expected RetryAfter=45s, got %s", q.RetryAfter)
	}

	n, err := rdb.ZCard(ctx, "test:window:10.0.0.1").Result()
	if err != nil {
		t.Fatalf("zcard: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected rejected request not to be recorded, got %d members", n)
	}
}

func TestRedisWindowStore_WindowSlides(t *testing.T) {
	_, rdb := newTestRedis(t)
	clk := newFakeClock()
	s := NewRedisWindowStore(rdb, 1, time.Minute, WithRedisClock(clk.Now))
	ctx := context.Background()

	if q, _ := s.Allow(ctx, "k"); !q.Allowed {
		t.Fatalf("expected first request to pass")
	}
	if q, _ := s.Allow(ctx, "k"); q.Allowed {
		t.Fatalf("expected second request to be rejected")
	}

	clk.Advance(time.Minute)
	if q, _ := s.Allow(ctx, "k"); !q.Allowed {
		t.Fatalf("expected request to pass after the window slid")
	}
}

func TestRedisWindowStore_KeysAreIndependent(t *testing.T) {
	_, rdb := newTestRedis(t)
	s := NewRedisWindowStore(rdb, 1, time.Minute)
	ctx := context.Background()

	if q, _ := s.Allow(ctx, "a"); !q.Allowed {
		t.Fatalf("expected key a to pass")
	}
	if q, _ := s.Allow(ctx, "b"); !q.Allowed {
		t.Fatalf("expected key b to pass")
	}
}

func TestRedisWindowStore_ReturnsErrorWhenRedisDown(t *testing.T) {
	mr, rdb := newTestRedis(t)
	s := NewRedisWindowStore(rdb, 1, time.Minute)
	mr.Close()

	if _, err := s.Allow(context.Background(), "k"); err == nil {
		t.Fatalf("expected error with redis unavailable")
	}
}
