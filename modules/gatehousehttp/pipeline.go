package gatehousehttp

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

// ServerSoftware is the value gatehouse always sets on the Server
// response header, matching ferron's SERVER_SOFTWARE constant pattern.
const ServerSoftware = "gatehouse"

// Pipeline runs the request-handler state machine described in
// SPEC_FULL.md §4.4, ported from ferron/src/request_handler.rs's
// request_handler_wrapped. A Pipeline is built once per App and reused
// across every connection and request it serves.
type Pipeline struct {
	Global      *GlobalConfig
	Factories   []HandlerFactory
	AccessSink  *LogSink
	ErrorSink   *LogSink
	Logger      *zap.Logger
}

// ServeHTTP is the net/http entry point invoked by the connection
// driver for every request, already wrapped in the per-request timeout
// (see App.serveOne in server.go).
func (p *Pipeline) ServeHTTP(w http.ResponseWriter, r *http.Request, conn *ConnectionContext) {
	originalURI := r.RequestURI
	if originalURI == "" {
		originalURI = r.URL.RequestURI()
	}
	rc := &RequestContext{
		Request:        r,
		Conn:           conn,
		OriginalMethod: r.Method,
		OriginalURI:    originalURI,
	}

	isProxy := isProxyRequest(r)
	isConnect := r.Method == http.MethodConnect

	if !isProxy && !isConnect {
		if strings.ContainsAny(r.Host, "\x00") || !utf8.ValidString(r.Host) {
			p.finish(w, rc, nil, http.StatusBadRequest, nil)
			return
		}
		r.Host = strings.ToLower(r.Host)
	}

	cfg, err := ResolveConfig(p.Global, r, isProxy || isConnect)
	if err != nil {
		p.finish(w, rc, nil, http.StatusInternalServerError, nil)
		return
	}
	rc.Config = cfg

	if !isProxy && !isConnect {
		sanitized, err := SanitizeURL(r.URL.Path, cfg.AllowDoubleSlashes)
		if err != nil {
			p.finish(w, rc, nil, http.StatusBadRequest, nil)
			return
		}
		if sanitized != r.URL.Path {
			r.URL.Path = sanitized
		}
	}

	if r.URL.Path == "*" {
		if r.Method == http.MethodOptions {
			h := http.Header{"Allow": []string{"GET, POST, HEAD, OPTIONS"}}
			p.finish(w, rc, nil, http.StatusNoContent, h)
		} else {
			h := http.Header{"Allow": []string{"GET, POST, HEAD, OPTIONS"}}
			p.finish(w, rc, nil, http.StatusBadRequest, h)
		}
		return
	}

	if isConnect {
		p.handleConnect(w, rc)
		return
	}

	if isUpgradeRequest(r) {
		if handled := p.tryWebSocket(w, rc); handled {
			return
		}
	}

	p.runChain(w, rc, isProxy)
}

// runChain walks the handler factory list, applying the outcome
// precedence response > status > request > (eventually) 404.
func (p *Pipeline) runChain(w http.ResponseWriter, rc *RequestContext, isProxy bool) {
	for _, factory := range p.Factories {
		h := factory()
		rc.pushExecuted(h)

		var outcome HandlerOutcome
		var err error
		if isProxy {
			outcome, err = h.ProxyRequestHandler(rc)
		} else {
			outcome, err = h.RequestHandler(rc)
		}
		if err != nil {
			p.finish(w, rc, nil, http.StatusInternalServerError, nil)
			return
		}

		if outcome.NewRemoteAddress != nil {
			rc.Conn.RemoteAddr = outcome.NewRemoteAddress
		}
		if outcome.AuthenticatedUser != nil {
			rc.AuthenticatedUser = outcome.AuthenticatedUser
		}
		if outcome.ParallelTask != nil {
			go outcome.ParallelTask(rc.Request.Context())
		}

		switch {
		case outcome.Response != nil:
			p.postProcessAndWrite(w, rc, outcome.Response, isProxy)
			return
		case outcome.Status != nil:
			p.finish(w, rc, nil, *outcome.Status, outcome.Headers)
			return
		case outcome.Request != nil:
			rc.Request = outcome.Request
			continue
		default:
			// handler declined; move to the next one in the chain
			continue
		}
	}
	p.finish(w, rc, nil, http.StatusNotFound, nil)
}

// postProcessAndWrite runs the LIFO response_modifying_handler pass over
// every handler that already executed, then writes the final response.
// A failure at any step abandons the remaining stack and answers 500
// immediately, matching the original's behavior.
func (p *Pipeline) postProcessAndWrite(w http.ResponseWriter, rc *RequestContext, resp *http.Response, isProxy bool) {
	for {
		h, ok := rc.popExecuted()
		if !ok {
			break
		}
		var err error
		if isProxy {
			err = h.ProxyResponseModifyingHandler(rc, resp)
		} else {
			err = h.ResponseModifyingHandler(rc, resp)
		}
		if err != nil {
			p.finish(w, rc, nil, http.StatusInternalServerError, nil)
			return
		}
	}
	p.writeResponse(w, rc, resp)
}

// finish synthesizes an error-page response for status (or reuses resp
// if one was already built), merges custom headers, sets Server, and
// writes + logs exactly once.
func (p *Pipeline) finish(w http.ResponseWriter, rc *RequestContext, resp *http.Response, status int, headers http.Header) {
	if resp == nil {
		resp = GenerateErrorResponse(rc.Config, status, headers)
	}
	p.writeResponse(w, rc, resp)
}

func (p *Pipeline) writeResponse(w http.ResponseWriter, rc *RequestContext, resp *http.Response) {
	header := w.Header()
	for k, vv := range resp.Header {
		for _, v := range vv {
			header.Add(k, v)
		}
	}
	if rc.Config != nil {
		for k, v := range rc.Config.CustomHeaders {
			if header.Get(k) == "" {
				header.Set(k, v)
			}
		}
	}
	header.Set("Server", ServerSoftware)

	w.WriteHeader(resp.StatusCode)
	if resp.Body != nil {
		defer resp.Body.Close()
		_, _ = io.Copy(w, resp.Body)
	}

	p.logAccess(rc, resp)
}

func (p *Pipeline) logAccess(rc *RequestContext, resp *http.Response) {
	if p.AccessSink == nil {
		return
	}
	cl, hint := ContentLengthFromResponse(resp)
	user := ""
	if rc.AuthenticatedUser != nil {
		user = *rc.AuthenticatedUser
	}
	fields := AccessLogFields{
		ClientIP:          remoteIP(rc.Conn),
		AuthenticatedUser: user,
		When:              time.Now(),
		Method:            rc.OriginalMethod,
		URI:               rc.OriginalURI,
		Protocol:          rc.Request.Proto,
		Status:            resp.StatusCode,
		ContentLength:     cl,
		BodySizeHint:      hint,
		Referrer:          rc.Request.Header.Get("Referer"),
		UserAgent:         rc.Request.Header.Get("User-Agent"),
	}
	p.AccessSink.Write(FormatCombined(fields))
}

func (p *Pipeline) logError(message string) {
	if p.ErrorSink == nil {
		return
	}
	p.ErrorSink.Write(ErrorRecord(time.Now(), message))
}

func remoteIP(conn *ConnectionContext) string {
	if conn == nil || conn.RemoteAddr == nil {
		return "-"
	}
	host, _, err := net.SplitHostPort(conn.RemoteAddr.String())
	if err != nil {
		return conn.RemoteAddr.String()
	}
	return host
}

func isProxyRequest(r *http.Request) bool {
	// HTTP/1.x proxy requests carry an absolute-form request target;
	// HTTP/2+ proxy requests instead set a non-empty :authority distinct
	// from a normal origin-form request, surfaced by Go as r.URL.Host
	// being populated even though RequestURI was origin-form on the wire.
	if r.URL.IsAbs() {
		return true
	}
	return r.ProtoMajor >= 2 && r.URL.Host != "" && r.URL.Host != r.Host
}

func isUpgradeRequest(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Connection"), "upgrade") &&
		strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

// handleConnect implements the CONNECT dispatch step: find the first
// handler willing to proxy CONNECT requests, hijack the connection, and
// hand it a detached context once the 200 response has gone out,
// mirroring ferron's tokio::spawn-after-upgrade pattern.
func (p *Pipeline) handleConnect(w http.ResponseWriter, rc *RequestContext) {
	if rc.Request.URL.Host == "" && rc.Request.Host == "" {
		p.finish(w, rc, nil, http.StatusBadRequest, nil)
		return
	}

	var chosen Handler
	for _, factory := range p.Factories {
		h := factory()
		if h.DoesConnectProxyRequests() {
			chosen = h
			rc.pushExecuted(h)
			break
		}
	}
	if chosen == nil {
		p.finish(w, rc, nil, http.StatusNotImplemented, nil)
		return
	}

	hijacker, ok := w.(http.Hijacker)
	if !ok {
		p.finish(w, rc, nil, http.StatusInternalServerError, nil)
		return
	}
	conn, buf, err := hijacker.Hijack()
	if err != nil {
		p.finish(w, rc, nil, http.StatusInternalServerError, nil)
		return
	}
	_ = buf.Flush()

	header := http.Header{}
	if rc.Config != nil {
		for k, v := range rc.Config.CustomHeaders {
			header.Set(k, v)
		}
	}
	header.Set("Server", ServerSoftware)
	_, _ = conn.Write([]byte("HTTP/1.1 200 Connection Established\r\n"))
	for k, vv := range header {
		for _, v := range vv {
			_, _ = conn.Write([]byte(k + ": " + v + "\r\n"))
		}
	}
	_, _ = conn.Write([]byte("\r\n"))

	p.logAccess(rc, &http.Response{StatusCode: http.StatusOK, Header: header})

	go func() {
		defer conn.Close()
		if err := chosen.ConnectProxyRequestHandler(context.Background(), rc, conn); err != nil {
			p.logError(Error(http.StatusInternalServerError, err).Error())
		}
	}()
}

