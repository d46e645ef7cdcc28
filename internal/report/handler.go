package report

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/hlog"
)

const (
	// SuccessMessage é devolvido quando o relato foi aceito.
	SuccessMessage = "Error reported successfully"

	// DefaultMaxBodyBytes segue o limite usual de parsers JSON (100 KiB).
	DefaultMaxBodyBytes int64 = 100 << 10
)

type response struct {
	Message string `json:"message"`
}

// Handler atende POST /report-error: valida o corpo e repassa ao Notifier.
type Handler struct {
	notifier     Notifier
	maxBodyBytes int64
}

type HandlerOption func(*Handler)

func WithMaxBodyBytes(n int64) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

func NewHandler(n Notifier, opts ...HandlerOption) *Handler {
	h := &Handler{notifier: n, maxBodyBytes: DefaultMaxBodyBytes}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := hlog.FromRequest(r)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeJSON(w, http.StatusRequestEntityTooLarge, "request entity too large")
			return
		}
		logger.Warn().Err(err).Msg("read error report body")
		writeJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rep, err := Decode(body)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			logger.Warn().Str("field", ve.Field).Msg("invalid error report: " + ve.Message)
			writeJSON(w, http.StatusBadRequest, ve.Message)
			return
		}
		logger.Error().Err(err).Msg("decode error report")
		writeJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if h.notifier != nil {
		h.notifier.Notify(r.Context(), rep)
	}

	logger.Info().
		Str("errorMessage", rep.ErrorMessage).
		Str("url", rep.URL).
		Int("line", rep.Line).
		Int("column", rep.Column).
		Msg("error reported")

	writeJSON(w, http.StatusOK, SuccessMessage)
}

func writeJSON(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response{Message: msg})
}
