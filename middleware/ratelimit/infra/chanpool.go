package infra

import (
	"context"

	"error-relay/middleware/ratelimit/domain"
)

// ChanPool é um SlotPool sobre um channel bufferizado: cada vaga ocupada é um
// elemento no buffer.
type ChanPool struct {
	slots chan struct{}
}

var _ domain.SlotPool = (*ChanPool)(nil)

func NewChanPool(max int) *ChanPool {
	if max < 1 {
		max = 1
	}
	return &ChanPool{slots: make(chan struct{}, max)}
}

func (p *ChanPool) Acquire(ctx context.Context) (func(), bool) {
	// select escolhe ao acaso entre casos prontos; um ctx já encerrado não pode ganhar vaga.
	if ctx.Err() != nil {
		return nil, false
	}
	select {
	case p.slots <- struct{}{}:
		return func() { <-p.slots }, true
	case <-ctx.Done():
		return nil, false
	}
}

func (p *ChanPool) InFlight() int { return len(p.slots) }
func (p *ChanPool) Cap() int      { return cap(p.slots) }
