// Package xforwardedfor implements the trust-boundary handler module
// grounded on original_source/project-karpacz/src/modules/x_forwarded_for.rs:
// when enabled, it rewrites RequestContext's remote address from the
// first hop of an X-Forwarded-For header. This must only ever be wired
// into a deployment that terminates connections from a trusted proxy —
// see spec.md §5's trust-boundary note, preserved verbatim by gating the
// whole rewrite behind EffectiveConfig.EnableIPSpoofing.
package xforwardedfor

import (
	"net"
	"net/http"
	"strings"

	"github.com/gatehouse-project/gatehouse/modules/gatehousehttp"
)

// Handler is stateless; a single value can be reused as its own
// factory since it carries no per-request mutable fields.
type Handler struct {
	gatehousehttp.BaseHandler
}

// NewFactory returns a gatehousehttp.HandlerFactory for Handler.
func NewFactory() gatehousehttp.HandlerFactory {
	return func() gatehousehttp.Handler { return &Handler{} }
}

// RequestHandler rewrites the connection's remote address to the first
// entry of X-Forwarded-For when EnableIPSpoofing is set, answering 400
// if that entry isn't a parseable IP address — exactly the original's
// behavior.
func (h *Handler) RequestHandler(rc *gatehousehttp.RequestContext) (gatehousehttp.HandlerOutcome, error) {
	if rc.Config == nil || !rc.Config.EnableIPSpoofing {
		return gatehousehttp.HandlerOutcome{}, nil
	}

	xff := rc.Request.Header.Get("X-Forwarded-For")
	if xff == "" {
		return gatehousehttp.HandlerOutcome{}, nil
	}

	first := strings.TrimSpace(strings.SplitN(xff, ",", 2)[0])
	ip := net.ParseIP(first)
	if ip == nil {
		status := http.StatusBadRequest
		return gatehousehttp.HandlerOutcome{Status: &status}, nil
	}

	port := 0
	if rc.Conn != nil && rc.Conn.RemoteAddr != nil {
		if tcpAddr, ok := rc.Conn.RemoteAddr.(*net.TCPAddr); ok {
			port = tcpAddr.Port
		}
	}

	newAddr := &net.TCPAddr{IP: ip, Port: port}
	return gatehousehttp.HandlerOutcome{NewRemoteAddress: newAddr}, nil
}

var _ gatehousehttp.Handler = (*Handler)(nil)
