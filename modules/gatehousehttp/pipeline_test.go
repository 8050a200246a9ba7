package gatehousehttp

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestPipeline(factories ...HandlerFactory) *Pipeline {
	return &Pipeline{
		Global:    &GlobalConfig{},
		Factories: factories,
	}
}

func testConn() *ConnectionContext {
	return &ConnectionContext{RemoteAddr: &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 12345}}
}

type fixedOutcomeHandler struct {
	BaseHandler
	outcome HandlerOutcome
}

func (f *fixedOutcomeHandler) RequestHandler(*RequestContext) (HandlerOutcome, error) {
	return f.outcome, nil
}

func TestPipelineChainExhaustionYields404(t *testing.T) {
	p := newTestPipeline()
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	w := httptest.NewRecorder()

	p.ServeHTTP(w, req, testConn())

	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, ServerSoftware, w.Header().Get("Server"))
}

func TestPipelineStatusOutcomeProducesErrorPage(t *testing.T) {
	status := http.StatusTeapot
	factory := func() Handler {
		return &fixedOutcomeHandler{outcome: HandlerOutcome{Status: &status}}
	}
	p := newTestPipeline(factory)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	p.ServeHTTP(w, req, testConn())

	require.Equal(t, http.StatusTeapot, w.Code)
	require.Contains(t, w.Body.String(), "418")
}

func TestPipelineCustomHeadersMergeOnlyWhenAbsent(t *testing.T) {
	global := &GlobalConfig{Scope: Scope{CustomHeaders: map[string]string{"X-From-Config": "config-value"}}}
	status := http.StatusOK
	factory := func() Handler {
		return &fixedOutcomeHandler{outcome: HandlerOutcome{
			Status:  &status,
			Headers: http.Header{"X-From-Config": []string{"handler-value"}},
		}}
	}
	p := &Pipeline{Global: global, Factories: []HandlerFactory{factory}}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	p.ServeHTTP(w, req, testConn())

	// finish() synthesizes a fresh error-page response and applies
	// outcome.Headers as the error page's headers, then config custom
	// headers only fill gaps — so a handler-set value wins over config.
	require.Equal(t, "handler-value", w.Header().Get("X-From-Config"))
}

func TestPipelineRejectsPathTraversal(t *testing.T) {
	p := newTestPipeline()
	req := httptest.NewRequest(http.MethodGet, "/../etc/passwd", nil)
	w := httptest.NewRecorder()
	p.ServeHTTP(w, req, testConn())
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPipelineAsteriskFormOptions(t *testing.T) {
	p := newTestPipeline()
	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.URL.Path = "*"
	w := httptest.NewRecorder()
	p.ServeHTTP(w, req, testConn())
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "GET, POST, HEAD, OPTIONS", w.Header().Get("Allow"))
}

func TestPipelineAsteriskFormNonOptions(t *testing.T) {
	p := newTestPipeline()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.URL.Path = "*"
	w := httptest.NewRecorder()
	p.ServeHTTP(w, req, testConn())
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "GET, POST, HEAD, OPTIONS", w.Header().Get("Allow"))
}

func TestPipelineRejectsInvalidUTF8Host(t *testing.T) {
	p := newTestPipeline()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "exa\xffmple.com"
	w := httptest.NewRecorder()
	p.ServeHTTP(w, req, testConn())
	require.Equal(t, http.StatusBadRequest, w.Code)
}
