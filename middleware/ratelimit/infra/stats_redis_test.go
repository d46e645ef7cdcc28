package infra

import (
	"context"
	"strconv"
	"testing"
	"time"

	"error-relay/middleware/ratelimit/domain"
)

func TestRedisStatsStore_RecordsTotalsRoutesAndBuckets(t *testing.T) {
	_, rdb := newTestRedis(t)
	s := NewRedisStatsStore(rdb, WithStatsPrefix("relay:stats:"), WithStatsBucket(5*time.Minute))
	ctx := context.Background()
	at := time.Date(2026, 10, 17, 12, 34, 0, 0, time.UTC)

	for _, allowed := range []bool{true, true, false} {
		ev := domain.StatsEvent{Key: "203.0.113.9", Route: "POST /report-error", Allowed: allowed, At: at}
		if err := s.Record(ctx, ev); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	bucket := "relay:stats:bucket:" + strconv.FormatInt(time.Date(2026, 10, 17, 12, 30, 0, 0, time.UTC).Unix(), 10)
	checks := []struct {
		key, field string
		want       string
	}{
		{"relay:stats:total", "allowed", "2"},
		{"relay:stats:total", "denied", "1"},
		{"relay:stats:route", "POST /report-error:denied", "1"},
		{bucket, "allowed", "2"},
	}
	for _, c := range checks {
		got, err := rdb.HGet(ctx, c.key, c.field).Result()
		if err != nil {
			t.Fatalf("hget %s %s: %v", c.key, c.field, err)
		}
		if got != c.want {
			t.Fatalf("%s[%s]: expected %s, got %s", c.key, c.field, c.want, got)
		}
	}

	ttl, err := rdb.TTL(ctx, bucket).Result()
	if err != nil {
		t.Fatalf("ttl: %v", err)
	}
	if ttl <= 0 {
		t.Fatalf("expected bucket to expire, got ttl %s", ttl)
	}

	n, err := rdb.Exists(ctx, "relay:stats:offenders").Result()
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if n != 0 {
		t.Fatalf("offenders must not be tracked unless enabled")
	}
}

func TestRedisStatsStore_TopOffenders(t *testing.T) {
	_, rdb := newTestRedis(t)
	s := NewRedisStatsStore(rdb, WithStatsBucket(0), WithStatsTrackOffenders(true))
	ctx := context.Background()

	denials := map[domain.Key]int{"10.0.0.1": 1, "10.0.0.2": 3, "10.0.0.3": 2}
	for key, times := range denials {
		for i := 0; i < times; i++ {
			if err := s.Record(ctx, domain.StatsEvent{Key: key, Allowed: false}); err != nil {
				t.Fatalf("record: %v", err)
			}
		}
	}
	// allowed nunca conta como ofensa
	if err := s.Record(ctx, domain.StatsEvent{Key: "10.0.0.9", Allowed: true}); err != nil {
		t.Fatalf("record: %v", err)
	}

	top, err := s.TopOffenders(ctx, 2)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("expected 2 offenders, got %+v", top)
	}
	if top[0].Key != "10.0.0.2" || top[0].Denied != 3 || top[1].Key != "10.0.0.3" {
		t.Fatalf("unexpected ranking: %+v", top)
	}

	keys, err := rdb.Keys(ctx, "ratelimit:stats:bucket:*").Result()
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("expected no bucket keys with bucket disabled, got %v", keys)
	}
}

func TestRedisStatsStore_NilIsNoop(t *testing.T) {
	var s *RedisStatsStore
	if err := s.Record(context.Background(), domain.StatsEvent{}); err != nil {
		t.Fatalf("expected nil store to be a no-op, got %v", err)
	}
}
