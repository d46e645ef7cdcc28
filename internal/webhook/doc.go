// Package webhook entrega relatos de erro a um único webhook externo no formato
// de chat {"content": "..."}.
//
// A entrega é best-effort: uma tentativa, com timeout, sem retry. Falhas são
// logadas e contadas, nunca devolvidas a quem relatou o erro.
//
// Dois modos:
//
//   - async (padrão): Notify enfileira num buffer limitado drenado por workers; buffer
//     cheio descarta o relato. Close drena o que sobrou.
//   - sync: Notify espera a entrega (ou o timeout) antes de retornar.
package webhook
