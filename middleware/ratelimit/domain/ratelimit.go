package domain

import (
	"context"
	"time"
)

// Key identifica o cliente (IP, header, etc.).
type Key string

// Quota é o resultado de uma tentativa de consumo dentro da janela.
type Quota struct {
	Allowed bool
	// Limit é o teto de requisições por janela (ou o burst, no token bucket).
	Limit int
	// Remaining é quanto ainda cabe na janela depois desta requisição.
	Remaining int
	// RetryAfter é quanto falta para liberar uma vaga. Zero quando Allowed.
	RetryAfter time.Duration
}

// Limiter decide, de forma atômica por chave, se mais uma requisição cabe na janela.
//
// Implementações: janela deslizante em memória, janela deslizante em Redis, token bucket.
type Limiter interface {
	Allow(ctx context.Context, key Key) (Quota, error)
}

type Decision struct {
	Allowed bool
	Limit   int
	// Remaining nunca é negativo.
	Remaining int
	// RetryAfter é o valor a ser retornado em Retry-After quando bloquear.
	RetryAfter time.Duration
}
