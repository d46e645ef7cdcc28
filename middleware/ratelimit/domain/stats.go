package domain

import (
	"context"
	"time"
)

// StatsEvent é uma decisão do rate limit sobre uma request.
type StatsEvent struct {
	// Key identifica o cliente. Nunca vira label/série por padrão (cardinalidade).
	Key Key
	// Route é "<METHOD> <path>" da rota protegida.
	Route   string
	Allowed bool
	// Remaining é a cota que sobrou após a decisão (0 quando negada).
	Remaining int
	At        time.Time
}

// Outcome devolve "allowed" ou "denied".
func (ev StatsEvent) Outcome() string {
	if ev.Allowed {
		return "allowed"
	}
	return "denied"
}

// StatsStore registra decisões. Falhas são best-effort e nunca mudam a resposta.
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
