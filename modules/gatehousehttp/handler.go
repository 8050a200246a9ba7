package gatehousehttp

import (
	"context"
	"net"
	"net/http"
)

// BaseHandler supplies no-op implementations of every Handler method so
// that a reference handler module only needs to override the entry
// points it actually cares about, mirroring caddyhttp's emptyHandler
// pattern for the larger method set this pipeline's Handler requires.
type BaseHandler struct{}

func (BaseHandler) DoesConnectProxyRequests() bool { return false }
func (BaseHandler) DoesWebSocketRequests() bool     { return false }

func (BaseHandler) RequestHandler(*RequestContext) (HandlerOutcome, error) {
	return HandlerOutcome{}, nil
}

func (BaseHandler) ProxyRequestHandler(*RequestContext) (HandlerOutcome, error) {
	return HandlerOutcome{}, nil
}

func (BaseHandler) ResponseModifyingHandler(*RequestContext, *http.Response) error { return nil }

func (BaseHandler) ProxyResponseModifyingHandler(*RequestContext, *http.Response) error { return nil }

func (BaseHandler) ConnectProxyRequestHandler(context.Context, *RequestContext, net.Conn) error {
	return nil
}

func (BaseHandler) WebSocketRequestHandler(context.Context, *RequestContext, net.Conn) error {
	return nil
}
