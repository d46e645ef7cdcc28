package application

import (
	"context"
	"errors"
	"time"

	"error-relay/middleware/ratelimit/domain"
)

// ErrNoSlot indica que o pool continuou cheio até o fim do AcquireTimeout.
var ErrNoSlot = errors.New("no free slot")

// ConcurrencyService decide se uma request ganha vaga, sem saber de HTTP.
type ConcurrencyService struct {
	Pool domain.SlotPool
	// AcquireTimeout <= 0 espera enquanto o cliente esperar.
	AcquireTimeout time.Duration
}

// Acquire devolve release ou um erro:
//   - ErrNoSlot quando o timeout venceu com o pool cheio;
//   - o erro do ctx do chamador quando o cliente desistiu antes.
func (s ConcurrencyService) Acquire(ctx context.Context) (func(), error) {
	if s.Pool == nil {
		return func() {}, nil
	}

	acqCtx := ctx
	if s.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acqCtx, cancel = context.WithTimeout(ctx, s.AcquireTimeout)
		defer cancel()
	}

	if release, ok := s.Pool.Acquire(acqCtx); ok {
		return release, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, ErrNoSlot
}
