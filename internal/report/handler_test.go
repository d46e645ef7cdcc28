package report

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	reports []ErrorReport
}

func (n *recordingNotifier) Notify(_ context.Context, r ErrorReport) {
	n.reports = append(n.reports, r)
}

func serve(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/report-error", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var resp response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestHandler_AcceptsValidReport(t *testing.T) {
	n := &recordingNotifier{}
	h := NewHandler(n)

	w, resp := serve(t, h, `{"errorMessage":"TypeError: x is undefined","url":"https://app.example.com/page.js","line":42,"column":7}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, SuccessMessage, resp.Message)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	require.Len(t, n.reports, 1)
	assert.Equal(t, "TypeError: x is undefined", n.reports[0].ErrorMessage)
	assert.Equal(t, 42, n.reports[0].Line)
	assert.Equal(t, 7, n.reports[0].Column)
}

func TestHandler_RejectsInvalidWithoutNotifying(t *testing.T) {
	n := &recordingNotifier{}
	h := NewHandler(n)

	bodies := []string{
		`{}`,
		`{"url":"https://a.test","line":1,"column":1}`,
		`{"errorMessage":"e","line":1,"column":1}`,
		`{"errorMessage":"e","url":"https://a.test","column":1}`,
		`{"errorMessage":"e","url":"https://a.test","line":1}`,
		`{"errorMessage":"e","url":"::::","line":1,"column":1}`,
	}
	for _, body := range bodies {
		w, resp := serve(t, h, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.NotEmpty(t, resp.Message, body)
	}
	assert.Empty(t, n.reports)
}

func TestHandler_ReportsFirstViolation(t *testing.T) {
	h := NewHandler(&recordingNotifier{})

	_, resp := serve(t, h, `{"errorMessage":"e","url":"nope","line":1,"column":1}`)
	assert.Equal(t, `"url" must be a valid uri`, resp.Message)
}

func TestHandler_RejectsOversizedBody(t *testing.T) {
	n := &recordingNotifier{}
	h := NewHandler(n, WithMaxBodyBytes(64))

	body := `{"errorMessage":"` + strings.Repeat("x", 200) + `","url":"https://a.test","line":1,"column":1}`
	w, resp := serve(t, h, body)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "request entity too large", resp.Message)
	assert.Empty(t, n.reports)
}

func TestHandler_NilNotifierStillResponds(t *testing.T) {
	w, resp := serve(t, NewHandler(nil), `{"errorMessage":"e","url":"https://a.test","line":1,"column":1}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, SuccessMessage, resp.Message)
}

func TestNotifierFunc(t *testing.T) {
	var got ErrorReport
	NotifierFunc(func(_ context.Context, r ErrorReport) { got = r }).Notify(context.Background(), ErrorReport{Line: 3})
	assert.Equal(t, 3, got.Line)
}
