package infra

import (
	"context"
	"sync"
	"time"

	"error-relay/middleware/ratelimit/domain"

	"golang.org/x/time/rate"
)

// TokenStore é a alternativa token-bucket (x/time/rate) à janela deslizante.
//
// O teto `limit` por `window` vira taxa limit/window com burst = limit, ou seja,
// o cliente pode gastar o teto de uma vez e depois recupera vagas continuamente.
type TokenStore struct {
	mu           sync.Mutex
	entries      map[string]*tokenEntry
	rps          rate.Limit
	burst        int
	idleTTL      time.Duration
	cleanupEvery time.Duration
	now          func() time.Time
}

type tokenEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type TokenOption func(*TokenStore)

func WithIdleTTL(d time.Duration) TokenOption {
	return func(s *TokenStore) { s.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) TokenOption {
	return func(s *TokenStore) { s.cleanupEvery = d }
}

func WithTokenClock(now func() time.Time) TokenOption {
	return func(s *TokenStore) { s.now = now }
}

var _ domain.Limiter = (*TokenStore)(nil)

// NewTokenStore cria um store que libera `limit` requisições por `window`.
// O idle TTL padrão nunca é menor que a janela: um bucket só some depois de recarregar.
func NewTokenStore(limit int, window time.Duration, opts ...TokenOption) *TokenStore {
	s := &TokenStore{
		entries:      make(map[string]*tokenEntry),
		rps:          rate.Limit(float64(limit) / window.Seconds()),
		burst:        limit,
		idleTTL:      max(15*time.Minute, window),
		cleanupEvery: 2 * time.Minute,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TokenStore) RPS() float64 { return float64(s.rps) }
func (s *TokenStore) Burst() int   { return s.burst }

func (s *TokenStore) IdleTTL() time.Duration { return s.idleTTL }

// Allow implementa domain.Limiter.
func (s *TokenStore) Allow(_ context.Context, key domain.Key) (domain.Quota, error) {
	now := s.now()
	lim := s.limiter(string(key), now)

	if lim.AllowN(now, 1) {
		return domain.Quota{
			Allowed:   true,
			Limit:     s.burst,
			Remaining: int(lim.TokensAt(now)),
		}, nil
	}

	// tempo até o próximo token, sem consumir nada
	wait := time.Duration((1 - lim.TokensAt(now)) / float64(s.rps) * float64(time.Second))
	return domain.Quota{Allowed: false, Limit: s.burst, RetryAfter: wait}, nil
}

func (s *TokenStore) limiter(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ent, ok := s.entries[key]; ok {
		ent.lastSeen = now
		return ent.lim
	}

	lim := rate.NewLimiter(s.rps, s.burst)
	s.entries[key] = &tokenEntry{lim: lim, lastSeen: now}
	return lim
}

func (s *TokenStore) Cleanup() {
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ent := range s.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(s.entries, k)
		}
	}
}

// StartJanitor inicia uma goroutine que limpa chaves inativas periodicamente.
// Pare cancelando o contexto.
func (s *TokenStore) StartJanitor(ctx DoneContext) {
	startJanitor(ctx, s.cleanupEvery, s.Cleanup)
}
