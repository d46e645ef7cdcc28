// Package ratelimit fornece adapters HTTP (net/http) para o rate limit por cliente
// e para o limite de concorrência que protegem o endpoint de relato de erros.
//
// Camadas:
//
//   - domain: contratos e tipos (sem net/http)
//   - application: decisão allow/deny e acquire/timeout (sem net/http)
//   - infra: janela deslizante (memória/Redis), token bucket, stats, semáforo
//   - ratelimit (este pacote): middlewares HTTP + extração de chave + status/headers
//
// Fluxo por request:
//
//  1. Extrai a chave do cliente (header/XFF/RemoteAddr)
//  2. Pede a decisão para a camada application
//  3. Bloqueado: 429 com Retry-After, sem chamar o próximo handler
//  4. Permitido: segue para o próximo handler (validação + notificação)
package ratelimit
