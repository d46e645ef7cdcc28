// Package domain define contratos e tipos de domínio para o rate limit por cliente
// e para o limite de concorrência do relay.
//
// Não depende de net/http nem de implementações concretas (memória, Redis, token bucket).
package domain
