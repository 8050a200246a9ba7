// Package gatehousehttp implements the request-handler pipeline: the
// per-connection TLS/ALPN front door, the per-request state machine that
// resolves effective configuration, sanitizes the URL, dispatches to a
// pre-built ordered list of handlers, and the access/error log sink.
package gatehousehttp

import (
	"context"
	"net"
	"net/http"
	"time"
)

// ConnectionContext describes the TCP/TLS connection a request arrived
// on. App.serveOne builds a fresh one for each request, so a remote
// address rewrite by a handler applies to that request only.
type ConnectionContext struct {
	RemoteAddr  net.Addr
	LocalAddr   net.Addr
	Encrypted   bool
	ALPN        string
	ConnectedAt time.Time
}

// RequestContext carries everything a Handler needs to act on a single
// request: the request itself, the connection it arrived on, the
// resolved configuration in effect for it, and the handlers that have
// already run (for LIFO response post-processing).
type RequestContext struct {
	Request           *http.Request
	Conn              *ConnectionContext
	Config            *EffectiveConfig
	AuthenticatedUser *string

	// OriginalMethod and OriginalURI capture the request line exactly as
	// received, before host-lowercasing and URL sanitization, so access
	// logs reflect the wire request even when it was rejected before
	// those steps completed.
	OriginalMethod string
	OriginalURI    string

	executed []Handler
}

func (rc *RequestContext) pushExecuted(h Handler) {
	rc.executed = append(rc.executed, h)
}

// popExecuted removes and returns the most recently executed handler,
// for LIFO response post-processing. Reports false once exhausted.
func (rc *RequestContext) popExecuted() (Handler, bool) {
	n := len(rc.executed)
	if n == 0 {
		return nil, false
	}
	h := rc.executed[n-1]
	rc.executed = rc.executed[:n-1]
	return h, true
}

// HandlerOutcome is the value a Handler's entry points return. The
// pipeline interprets it with this precedence: Response, then Status,
// then Request (continue the chain with a replacement request), else a
// 404 once the chain is exhausted.
type HandlerOutcome struct {
	Request           *http.Request
	AuthenticatedUser *string
	Response          *http.Response
	Status            *int
	Headers           http.Header
	NewRemoteAddress  net.Addr
	ParallelTask      func(context.Context)
}

// Handler is a single pluggable unit in the request pipeline. Capability
// predicates let the pipeline decide, per visited handler, whether it is
// eligible to take over a CONNECT or WebSocket upgrade; the entry points
// carry out normal, proxy, and post-processing work.
type Handler interface {
	DoesConnectProxyRequests() bool
	DoesWebSocketRequests() bool

	RequestHandler(rc *RequestContext) (HandlerOutcome, error)
	ProxyRequestHandler(rc *RequestContext) (HandlerOutcome, error)
	ResponseModifyingHandler(rc *RequestContext, resp *http.Response) error
	ProxyResponseModifyingHandler(rc *RequestContext, resp *http.Response) error

	ConnectProxyRequestHandler(ctx context.Context, rc *RequestContext, upstream net.Conn) error
	WebSocketRequestHandler(ctx context.Context, rc *RequestContext, conn net.Conn) error
}

// HandlerFactory builds a fresh Handler instance. The pipeline invokes a
// factory once per request so handlers may keep per-request mutable
// state without synchronization; the factory list itself is built once,
// by whoever constructs the Pipeline, and outlives every connection.
type HandlerFactory func() Handler
