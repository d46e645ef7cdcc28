package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"error-relay/middleware/ratelimit/domain"
)

type fakeLimiter struct {
	quota domain.Quota
	err   error
	calls int
	last  domain.Key
}

func (f *fakeLimiter) Allow(_ context.Context, key domain.Key) (domain.Quota, error) {
	f.calls++
	f.last = key
	return f.quota, f.err
}

func TestService_Decide_AllowsWhenNoLimiter(t *testing.T) {
	svc := Service{}
	dec, err := svc.Decide(context.Background(), "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !dec.Allowed {
		t.Fatalf("expected allowed")
	}
	if dec.RetryAfter != 0 {
		t.Fatalf("expected RetryAfter=0 when allowed, got %s", dec.RetryAfter)
	}
}

func TestService_Decide_PassesQuotaThrough(t *testing.T) {
	lim := &fakeLimiter{quota: domain.Quota{Allowed: true, Limit: 100, Remaining: 99}}
	svc := Service{Limiter: lim}

	dec, err := svc.Decide(context.Background(), "10.0.0.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !dec.Allowed || dec.Limit != 100 || dec.Remaining != 99 {
		t.Fatalf("unexpected decision: %+v", dec)
	}
	if lim.last != "10.0.0.1" {
		t.Fatalf("expected key to reach limiter, got %q", lim.last)
	}
}

func TestService_Decide_BlocksWithLimiterRetryAfter(t *testing.T) {
	lim := &fakeLimiter{quota: domain.Quota{Allowed: false, Limit: 2, RetryAfter: 42 * time.Second}}
	svc := Service{Limiter: lim}

	dec, _ := svc.Decide(context.Background(), "k")
	if dec.Allowed {
		t.Fatalf("expected blocked")
	}
	if dec.RetryAfter != 42*time.Second {
		t.Fatalf("expected RetryAfter=42s, got %s", dec.RetryAfter)
	}
}

func TestService_Decide_BlocksWithMinRetryAfterFloor(t *testing.T) {
	lim := &fakeLimiter{quota: domain.Quota{Allowed: false, RetryAfter: 10 * time.Millisecond}}
	svc := Service{Limiter: lim}

	dec, _ := svc.Decide(context.Background(), "k")
	if dec.RetryAfter != 1*time.Second {
		t.Fatalf("expected default floor RetryAfter=1s, got %s", dec.RetryAfter)
	}
}

func TestService_Decide_FailsOpenOnLimiterError(t *testing.T) {
	boom := errors.New("redis down")
	svc := Service{Limiter: &fakeLimiter{err: boom}}

	dec, err := svc.Decide(context.Background(), "k")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped limiter error, got %v", err)
	}
	if !dec.Allowed {
		t.Fatalf("expected fail-open decision")
	}
}

func TestService_Decide_ClampsNegativeRemaining(t *testing.T) {
	svc := Service{Limiter: &fakeLimiter{quota: domain.Quota{Allowed: false, Remaining: -3}}}

	dec, _ := svc.Decide(context.Background(), "k")
	if dec.Remaining != 0 {
		t.Fatalf("expected Remaining=0, got %d", dec.Remaining)
	}
}
