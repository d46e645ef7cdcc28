package application

import (
	"context"
	"fmt"
	"time"

	"error-relay/middleware/ratelimit/domain"
)

// Service concentra a regra de aplicação do rate limit.
//
// Não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
type Service struct {
	Limiter domain.Limiter
	// MinRetryAfter é o piso do Retry-After quando o limiter não sabe estimar.
	MinRetryAfter time.Duration
}

// Decide consome uma vaga da chave.
//
// Se o limiter falhar (ex.: Redis fora), a decisão é permitir e o erro é devolvido
// para quem chamou registrar: o guard não pode derrubar o relay.
func (s Service) Decide(ctx context.Context, key domain.Key) (domain.Decision, error) {
	if s.Limiter == nil {
		return domain.Decision{Allowed: true}, nil
	}
	if s.MinRetryAfter <= 0 {
		s.MinRetryAfter = 1 * time.Second
	}

	q, err := s.Limiter.Allow(ctx, key)
	if err != nil {
		return domain.Decision{Allowed: true}, fmt.Errorf("rate limiter %q: %w", key, err)
	}

	dec := domain.Decision{
		Allowed:   q.Allowed,
		Limit:     q.Limit,
		Remaining: max(q.Remaining, 0),
	}
	if !q.Allowed {
		dec.RetryAfter = max(q.RetryAfter, s.MinRetryAfter)
	}
	return dec, nil
}
