package infra

import (
	"context"
	"sync"
	"time"

	"error-relay/middleware/ratelimit/domain"
)

// WindowStore é uma janela deslizante (sliding log) por chave, em memória.
//
// Cada chave guarda os instantes das requisições aceitas dentro da janela; uma
// requisição só passa se houver menos de `limit` instantes mais novos que now-window.
// Não sobrevive a restart do processo.
type WindowStore struct {
	mu      sync.Mutex
	entries map[string]*windowEntry

	limit        int
	window       time.Duration
	cleanupEvery time.Duration
	now          func() time.Time
}

type windowEntry struct {
	// hits em ordem crescente.
	hits []time.Time
}

type WindowOption func(*WindowStore)

func WithWindowCleanupEvery(d time.Duration) WindowOption {
	return func(s *WindowStore) { s.cleanupEvery = d }
}

// WithWindowClock troca o relógio (útil em testes).
func WithWindowClock(now func() time.Time) WindowOption {
	return func(s *WindowStore) { s.now = now }
}

var _ domain.Limiter = (*WindowStore)(nil)

// NewWindowStore aceita no máximo `limit` requests por chave em qualquer intervalo de `window`.
// limit < 1 vira 1.
func NewWindowStore(limit int, window time.Duration, opts ...WindowOption) *WindowStore {
	if limit < 1 {
		limit = 1
	}
	s := &WindowStore{
		entries:      make(map[string]*windowEntry),
		limit:        limit,
		window:       window,
		cleanupEvery: 2 * time.Minute,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *WindowStore) Limit() int                  { return s.limit }
func (s *WindowStore) Window() time.Duration       { return s.window }
func (s *WindowStore) CleanupEvery() time.Duration { return s.cleanupEvery }

// Allow implementa domain.Limiter. Verificar e registrar acontecem sob o mesmo lock.
func (s *WindowStore) Allow(_ context.Context, key domain.Key) (domain.Quota, error) {
	now := s.now()
	cutoff := now.Add(-s.window)

	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[string(key)]
	if !ok {
		ent = &windowEntry{hits: make([]time.Time, 0, min(s.limit, 16))}
		s.entries[string(key)] = ent
	}
	ent.prune(cutoff)

	if len(ent.hits) >= s.limit {
		return domain.Quota{
			Allowed:    false,
			Limit:      s.limit,
			Remaining:  0,
			RetryAfter: ent.hits[0].Add(s.window).Sub(now),
		}, nil
	}

	ent.hits = append(ent.hits, now)
	return domain.Quota{
		Allowed:   true,
		Limit:     s.limit,
		Remaining: s.limit - len(ent.hits),
	}, nil
}

// prune descarta os hits com idade >= window.
func (e *windowEntry) prune(cutoff time.Time) {
	i := 0
	for i < len(e.hits) && !e.hits[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return
	}
	n := copy(e.hits, e.hits[i:])
	e.hits = e.hits[:n]
}

// Cleanup remove chaves sem nenhum hit dentro da janela.
func (s *WindowStore) Cleanup() {
	cutoff := s.now().Add(-s.window)

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ent := range s.entries {
		ent.prune(cutoff)
		if len(ent.hits) == 0 {
			delete(s.entries, k)
		}
	}
}

// Len retorna quantas chaves estão sendo rastreadas.
func (s *WindowStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// StartJanitor inicia a limpeza periódica de chaves inativas. Pare cancelando o contexto.
func (s *WindowStore) StartJanitor(ctx DoneContext) {
	startJanitor(ctx, s.cleanupEvery, s.Cleanup)
}
