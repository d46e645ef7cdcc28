package webhook

import (
	"fmt"

	"error-relay/internal/report"
)

// StackPlaceholder substitui o stack trace ausente, null ou vazio.
const StackPlaceholder = "N/A"

// Payload é o corpo JSON enviado ao webhook.
type Payload struct {
	Content string `json:"content"`
}

// FormatContent monta o texto da notificação.
func FormatContent(r report.ErrorReport) string {
	stack := r.Stack()
	if stack == "" {
		stack = StackPlaceholder
	}
	return fmt.Sprintf("🚨 **Error Alert!** 🚨\n**Message**: %s\n**File**: %s\n**Line**: %d:%d\n**Error Stack**: %s",
		r.ErrorMessage, r.URL, r.Line, r.Column, stack)
}
