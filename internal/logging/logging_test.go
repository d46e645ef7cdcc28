package logging

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesConsoleAndFile(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "error.log")

	logger, closer, err := New(Options{Level: "info", File: path, Console: &console})
	require.NoError(t, err)

	logger.Debug().Msg("hidden")
	logger.Error().Str("k", "v").Msg("boom")
	require.NoError(t, closer.Close())

	assert.NotContains(t, console.String(), "hidden")
	assert.Contains(t, console.String(), `"message":"boom"`)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &line))
	assert.Equal(t, "boom", line["message"])
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "error-relay", line["service"])
}

func TestNewConsoleFormat(t *testing.T) {
	var console bytes.Buffer
	logger, _, err := New(Options{Format: "console", Console: &console})
	require.NoError(t, err)

	logger.Info().Msg("hello")
	out := console.String()
	assert.Contains(t, out, "hello")
	assert.False(t, strings.HasPrefix(out, "{"))
}

func TestNewRejectsBadOptions(t *testing.T) {
	_, _, err := New(Options{Level: "loud"})
	assert.Error(t, err)

	_, _, err = New(Options{Format: "xml"})
	assert.Error(t, err)

	_, _, err = New(Options{File: filepath.Join(t.TempDir(), "missing", "x.log")})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, lvl)

	lvl, err = ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, zerolog.WarnLevel, lvl)
}

func TestMiddlewareAddsRequestContext(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	h := Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := hlog.IDFromRequest(r)
		assert.True(t, ok)
		zerolog.Ctx(r.Context()).Info().Msg("inside")
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodPost, "/report-error", nil)
	req.RemoteAddr = "203.0.113.7:5555"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.NotEmpty(t, rr.Header().Get(RequestIDHeader))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var access map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &access))
	assert.Equal(t, "request", access["message"])
	assert.Equal(t, "/report-error", access["path"])
	assert.Equal(t, float64(http.StatusTeapot), access["status"])
	assert.Contains(t, access["ip"], "203.0.113.7")
	assert.NotEmpty(t, access["req_id"])
}
