// Package infra contém implementações concretas dos contratos do pacote domain.
//
//   - WindowStore: janela deslizante por chave, em memória (padrão do relay)
//   - TokenStore: token bucket por chave usando golang.org/x/time/rate
//   - RedisWindowStore: janela deslizante compartilhada entre réplicas (script Lua)
//   - RedisStatsStore / PromStatsStore: estatísticas das decisões
//   - ChanPool: semáforo simples para limite de concorrência
package infra
