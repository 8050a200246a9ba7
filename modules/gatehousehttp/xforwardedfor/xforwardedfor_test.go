package xforwardedfor

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gatehouse-project/gatehouse/modules/gatehousehttp"
)

func newRC(t *testing.T, enableSpoofing bool, xff string) *gatehousehttp.RequestContext {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if xff != "" {
		req.Header.Set("X-Forwarded-For", xff)
	}
	return &gatehousehttp.RequestContext{
		Request: req,
		Conn: &gatehousehttp.ConnectionContext{
			RemoteAddr: &net.TCPAddr{IP: net.ParseIP("10.0.0.1"), Port: 5555},
		},
		Config: &gatehousehttp.EffectiveConfig{EnableIPSpoofing: enableSpoofing},
	}
}

func TestDisabledByDefault(t *testing.T) {
	h := &Handler{}
	rc := newRC(t, false, "1.2.3.4")
	outcome, err := h.RequestHandler(rc)
	require.NoError(t, err)
	require.Nil(t, outcome.NewRemoteAddress)
}

func TestRewritesFromFirstHop(t *testing.T) {
	h := &Handler{}
	rc := newRC(t, true, "203.0.113.9, 10.0.0.1")
	outcome, err := h.RequestHandler(rc)
	require.NoError(t, err)
	require.NotNil(t, outcome.NewRemoteAddress)

	tcpAddr, ok := outcome.NewRemoteAddress.(*net.TCPAddr)
	require.True(t, ok)
	require.Equal(t, "203.0.113.9", tcpAddr.IP.String())
	require.Equal(t, 5555, tcpAddr.Port)
}

func TestBadAddressYields400(t *testing.T) {
	h := &Handler{}
	rc := newRC(t, true, "not-an-ip")
	outcome, err := h.RequestHandler(rc)
	require.NoError(t, err)
	require.NotNil(t, outcome.Status)
	require.Equal(t, http.StatusBadRequest, *outcome.Status)
}
