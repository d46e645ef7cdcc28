// Package report recebe relatos de erro de runtime enviados por clientes,
// valida o formato e entrega o relato válido a um Notifier.
package report

import "context"

// ErrorReport é o relato de erro enviado pelo cliente. Vive só durante a request.
type ErrorReport struct {
	ErrorMessage string
	URL          string
	Line         int
	Column       int
	// ErrorStack é nil quando ausente ou null.
	ErrorStack *string
}

// Stack retorna o stack trace ou "" quando não informado.
func (r ErrorReport) Stack() string {
	if r.ErrorStack == nil {
		return ""
	}
	return *r.ErrorStack
}

// Notifier entrega um relato validado. É best-effort: falhas ficam com quem implementa.
type Notifier interface {
	Notify(ctx context.Context, r ErrorReport)
}

// NotifierFunc adapta uma função a Notifier.
type NotifierFunc func(ctx context.Context, r ErrorReport)

func (f NotifierFunc) Notify(ctx context.Context, r ErrorReport) { f(ctx, r) }
