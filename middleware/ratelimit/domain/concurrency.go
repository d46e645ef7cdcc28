package domain

import "context"

// SlotPool limita quantas requests são processadas ao mesmo tempo.
type SlotPool interface {
	// Acquire bloqueia até haver vaga ou o ctx encerrar. release deve ser
	// chamado exatamente uma vez quando ok=true.
	Acquire(ctx context.Context) (release func(), ok bool)
	// InFlight é o número de vagas ocupadas agora.
	InFlight() int
	Cap() int
}
