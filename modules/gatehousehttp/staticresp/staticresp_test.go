package staticresp

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gatehouse-project/gatehouse/modules/gatehousehttp"
)

func TestStaticResponseHandler(t *testing.T) {
	h := Handler{
		StatusCode: "404",
		Headers:    http.Header{"X-Test": []string{"Testing"}},
		Body:       "Text",
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rc := &gatehousehttp.RequestContext{Request: req}

	outcome, err := h.RequestHandler(rc)
	require.NoError(t, err)
	require.NotNil(t, outcome.Response)

	resp := outcome.Response
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "Testing", resp.Header.Get("X-Test"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "Text", string(body))
}
