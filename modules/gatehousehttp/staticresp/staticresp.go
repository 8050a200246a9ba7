// Package staticresp implements a reference handler module that answers
// every request it sees with a fixed status code, header set, and body.
// It exists to demonstrate the Handler ABI end-to-end, grounded on
// modules/caddyhttp's StaticResponse handler.
package staticresp

import (
	"bytes"
	"io"
	"net/http"
	"strconv"

	"github.com/gatehouse-project/gatehouse/modules/gatehousehttp"
)

// Handler is a static response handler module. StatusCode uses
// gatehousehttp.WeakString so it can be configured as either a JSON
// number or a string.
type Handler struct {
	gatehousehttp.BaseHandler

	StatusCode gatehousehttp.WeakString
	Headers    http.Header
	Body       string
}

// Factory returns a HandlerFactory producing a copy of h for each
// request; static responses carry no per-request mutable state, so the
// copy is purely to satisfy the factory contract.
func (h Handler) Factory() gatehousehttp.HandlerFactory {
	return func() gatehousehttp.Handler {
		copied := h
		return &copied
	}
}

// RequestHandler always answers with the configured status/headers/body.
func (h *Handler) RequestHandler(rc *gatehousehttp.RequestContext) (gatehousehttp.HandlerOutcome, error) {
	status := http.StatusOK
	if h.StatusCode != "" {
		if n, err := h.StatusCode.Int(); err == nil {
			status = n
		}
	}

	headers := http.Header{}
	for k, v := range h.Headers {
		headers[k] = v
	}
	headers.Set("Content-Length", strconv.Itoa(len(h.Body)))

	resp := &http.Response{
		StatusCode:    status,
		Header:        headers,
		Body:          io.NopCloser(bytes.NewReader([]byte(h.Body))),
		ContentLength: int64(len(h.Body)),
	}

	return gatehousehttp.HandlerOutcome{Response: resp}, nil
}

var _ gatehousehttp.Handler = (*Handler)(nil)
