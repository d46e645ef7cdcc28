package infra

import (
	"context"
	"testing"
	"time"

	"error-relay/middleware/ratelimit/domain"
)

func TestTokenStore_SameKeyReusesLimiter(t *testing.T) {
	s := NewTokenStore(10, time.Second)

	l1 := s.limiter("k", time.Now())
	l2 := s.limiter("k", time.Now())
	if l1 != l2 {
		t.Fatalf("expected same limiter pointer for same key")
	}
}

func TestTokenStore_BurstThenRejects(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := NewTokenStore(2, time.Minute, WithTokenClock(func() time.Time { return now }))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		q, err := s.Allow(ctx, domain.Key("k"))
		if err != nil || !q.Allowed {
			t.Fatalf("expected request %d to pass, got %+v err=%v", i+1, q, err)
		}
	}

	q, _ := s.Allow(ctx, domain.Key("k"))
	if q.Allowed {
		t.Fatalf("expected third immediate request to be rejected")
	}
	// 2 por minuto => um token a cada 30s
	if q.RetryAfter <= 0 || q.RetryAfter > 31*time.Second {
		t.Fatalf("expected RetryAfter in (0, 31s], got %s", q.RetryAfter)
	}
	if q.Limit != 2 {
		t.Fatalf("expected Limit=2, got %d", q.Limit)
	}
}

func TestTokenStore_RefillsOverTime(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := NewTokenStore(1, time.Second, WithTokenClock(func() time.Time { return now }))
	ctx := context.Background()

	if q, _ := s.Allow(ctx, "k"); !q.Allowed {
		t.Fatalf("expected first request to pass")
	}
	if q, _ := s.Allow(ctx, "k"); q.Allowed {
		t.Fatalf("expected second immediate request to be rejected")
	}

	now = now.Add(time.Second)
	if q, _ := s.Allow(ctx, "k"); !q.Allowed {
		t.Fatalf("expected request after refill to pass")
	}
}

func TestTokenStore_CleanupRemovesIdleEntries(t *testing.T) {
	s := NewTokenStore(10, time.Second, WithIdleTTL(2*time.Millisecond), WithCleanupEvery(0))

	before := s.limiter("k", time.Now())
	time.Sleep(4 * time.Millisecond)

	s.Cleanup()

	after := s.limiter("k", time.Now())
	if before == after {
		t.Fatalf("expected limiter to be recreated after cleanup")
	}
}

func TestTokenStore_LongWindowKeepsDrainedBucketAcrossCleanup(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := NewTokenStore(2, time.Hour, WithTokenClock(func() time.Time { return now }), WithCleanupEvery(0))
	ctx := context.Background()

	if s.IdleTTL() < time.Hour {
		t.Fatalf("expected idle TTL >= window, got %s", s.IdleTTL())
	}

	for i := 0; i < 2; i++ {
		if q, _ := s.Allow(ctx, "k"); !q.Allowed {
			t.Fatalf("expected request %d to pass", i+1)
		}
	}

	// 20min: passou do TTL padrão antigo, mas o bucket recarregou menos de um token
	now = now.Add(20 * time.Minute)
	s.Cleanup()

	if q, _ := s.Allow(ctx, "k"); q.Allowed {
		t.Fatalf("expected drained bucket to survive cleanup and reject")
	}
}
