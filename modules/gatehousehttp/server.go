package gatehousehttp

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gatehouse-project/gatehouse"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"
)

// App is the top-level runnable: it owns the plaintext and encrypted
// listeners, the request pipeline, and a semaphore bounding concurrent
// request handling, grounded on modules/caddyhttp/app.go's
// Provision/Start/Stop lifecycle shape.
type App struct {
	Global    *GlobalConfig
	Pipeline  *Pipeline
	TLSConfig *tls.Config // nil if no scope enables Secure
	Logger    *zap.Logger

	// ServerPoolSize bounds the number of requests serveOne hands to the
	// pipeline at once. LogPoolSize is only defaulted by Start; nothing
	// reads it, since each LogSink runs its own single drain goroutine.
	// ParallelTask callbacks are started with a plain goroutine and are
	// not bounded by either value — see DESIGN.md open question 3.
	ServerPoolSize int
	LogPoolSize    int

	httpListener  net.Listener
	httpsListener net.Listener
	httpServer    *http.Server
	httpsServer   *http.Server

	serverSem chan struct{}
	group     *errgroup.Group
	groupCtx  context.Context
	cancel    context.CancelFunc
}

const (
	defaultServerPoolSize = 4096
	defaultLogPoolSize    = 256
)

// Start binds the listeners named by the global scope's port/sport and
// begins accepting connections. It returns once both listeners (or the
// single enabled one) are bound; serving happens in background
// goroutines supervised by an errgroup.
func (a *App) Start() error {
	if a.ServerPoolSize == 0 {
		a.ServerPoolSize = defaultServerPoolSize
	}
	if a.LogPoolSize == 0 {
		a.LogPoolSize = defaultLogPoolSize
	}
	a.serverSem = make(chan struct{}, a.ServerPoolSize)

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	group, groupCtx := errgroup.WithContext(ctx)
	a.group = group
	a.groupCtx = groupCtx

	g := &a.Global.Scope

	if g.DisableNonEncryptedServer == nil || !*g.DisableNonEncryptedServer {
		port := 80
		if g.Port != nil {
			port = *g.Port
		}
		ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(port)))
		if err != nil {
			return fmt.Errorf("bind http listener on port %d: %w", port, err)
		}
		a.httpListener = ln
		a.httpServer = a.newServer(false)
		group.Go(func() error { return a.serve(a.httpServer, ln) })
	}

	if g.Secure != nil && *g.Secure {
		if a.TLSConfig == nil {
			return errors.New("secure is enabled but no TLS configuration was provided")
		}
		// DESIGN.md open question 2: the HTTPS listener port is read
		// from Sport only. The original parses a string fallback from
		// the plaintext `port` field here, which looks like a copy-paste
		// bug; that behavior is intentionally not replicated.
		sport := 443
		if g.Sport != nil {
			sport = *g.Sport
		}
		ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(sport)))
		if err != nil {
			return fmt.Errorf("bind https listener on port %d: %w", sport, err)
		}
		tlsLn := tls.NewListener(ln, a.TLSConfig)
		a.httpsListener = tlsLn
		a.httpsServer = a.newServer(true)
		group.Go(func() error { return a.serve(a.httpsServer, tlsLn) })
	}

	return nil
}

func (a *App) newServer(encrypted bool) *http.Server {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.serveOne(w, r, encrypted)
	})

	enableH2 := a.Global.EnableHTTP2 != nil && *a.Global.EnableHTTP2
	var finalHandler http.Handler = handler
	if !encrypted && enableH2 {
		finalHandler = h2c.NewHandler(handler, a.http2Server())
	}

	srv := &http.Server{
		Handler:           finalHandler,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		IdleTimeout:       defaultIdleTimeout,
		ConnContext: func(ctx context.Context, c net.Conn) context.Context {
			return context.WithValue(ctx, connCtxKey{}, c)
		},
	}
	if t := a.Global.HTTP2Settings; t != nil && t.MaxHeaderListSize != nil {
		srv.MaxHeaderBytes = int(*t.MaxHeaderListSize)
	}
	if encrypted && enableH2 {
		_ = http2.ConfigureServer(srv, a.http2Server())
	}
	return srv
}

// http2Server builds an *http2.Server from the global scope's
// http2Settings.*, grounded on golang.org/x/net/http2.Server's tuning
// fields. maxHeaderListSize has no direct http2.Server knob in this
// package version; it is applied above via http.Server.MaxHeaderBytes,
// which ConfigureServer/h2c fall back to when no H2-specific limit is
// set. enableConnectProtocol has no corresponding field at all in this
// http2.Server version, so it is accepted but only logged, mirroring
// the TLS 1.3 cipher-suite-name handling in gatehousetls.Builder.
func (a *App) http2Server() *http2.Server {
	h2s := &http2.Server{}
	t := a.Global.HTTP2Settings
	if t == nil {
		return h2s
	}
	if t.MaxConcurrentStreams != nil {
		h2s.MaxConcurrentStreams = uint32(*t.MaxConcurrentStreams)
	}
	if t.MaxFrameSize != nil {
		h2s.MaxReadFrameSize = uint32(*t.MaxFrameSize)
	}
	if t.InitialWindowSize != nil {
		h2s.MaxUploadBufferPerStream = *t.InitialWindowSize
	}
	if t.EnableConnectProtocol != nil && *t.EnableConnectProtocol && a.Logger != nil {
		a.Logger.Warn("http2Settings.enableConnectProtocol has no effect: this version of golang.org/x/net/http2 has no corresponding server knob")
	}
	return h2s
}

const (
	defaultIdleTimeout       = 5 * time.Minute
	defaultReadHeaderTimeout = time.Minute
)

type connCtxKey struct{}

func (a *App) serve(srv *http.Server, ln net.Listener) error {
	err := srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// serveOne bounds concurrent request handling by serverSem, builds the
// ConnectionContext, and hands the request to the pipeline.
func (a *App) serveOne(w http.ResponseWriter, r *http.Request, encrypted bool) {
	select {
	case a.serverSem <- struct{}{}:
		defer func() { <-a.serverSem }()
	case <-r.Context().Done():
		return
	}

	conn, _ := r.Context().Value(connCtxKey{}).(net.Conn)
	cc := &ConnectionContext{Encrypted: encrypted}
	if conn != nil {
		cc.RemoteAddr = conn.RemoteAddr()
		cc.LocalAddr = conn.LocalAddr()
	}
	if ts, ok := r.Context().Value(http.LocalAddrContextKey).(net.Addr); ok {
		cc.LocalAddr = ts
	}
	if encrypted {
		if state, ok := tlsConnectionState(conn); ok {
			cc.ALPN = state.NegotiatedProtocol
		}
	}

	timeout := time.Duration(a.effectiveTimeout(r))
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()
	r = r.WithContext(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		a.Pipeline.ServeHTTP(w, r, cc)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		// The client or server has timed out; the handler goroutine may
		// still be running but further writes to w are no longer
		// meaningful once the handler (or http.Server) notices ctx is
		// done.
	}
}

func (a *App) effectiveTimeout(r *http.Request) gatehouse.Duration {
	cfg, err := ResolveConfig(a.Global, r, isProxyRequest(r) || r.Method == http.MethodConnect)
	if err != nil {
		return gatehouse.Duration(DefaultTimeoutMillis * time.Millisecond)
	}
	return cfg.Timeout
}

func tlsConnectionState(conn net.Conn) (tls.ConnectionState, bool) {
	tconn, ok := conn.(*tls.Conn)
	if !ok {
		return tls.ConnectionState{}, false
	}
	return tconn.ConnectionState(), true
}

// Stop gracefully shuts down both listeners, waiting up to ctx's
// deadline, then closes the log sinks — mirroring app.go's Stop()
// parallel-shutdown-with-WaitGroup pattern.
func (a *App) Stop(ctx context.Context) error {
	var wg sync.WaitGroup
	var httpErr, httpsErr error

	if a.httpServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			httpErr = a.httpServer.Shutdown(ctx)
		}()
	}
	if a.httpsServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			httpsErr = a.httpsServer.Shutdown(ctx)
		}()
	}
	wg.Wait()

	if a.cancel != nil {
		a.cancel()
	}

	if a.Pipeline != nil {
		if a.Pipeline.AccessSink != nil {
			_ = a.Pipeline.AccessSink.Close(ctx)
		}
		if a.Pipeline.ErrorSink != nil {
			_ = a.Pipeline.ErrorSink.Close(ctx)
		}
	}

	if httpErr != nil {
		return httpErr
	}
	return httpsErr
}
