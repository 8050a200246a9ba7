// Package gatehouse provides the minimal runtime glue that wires a
// pre-built server configuration and an ordered handler list into a
// running connection acceptor. It intentionally does not parse
// configuration files or load handler modules dynamically; callers
// (see cmd/gatehoused) are responsible for constructing the config
// tree and handler list before calling Run.
package gatehouse

import (
	"context"
	"sync"
	"time"
)

// CtxKey is a value type for use with context.WithValue to avoid
// collisions with keys defined in other packages.
type CtxKey string

var (
	exitFuncsMu sync.Mutex
	exitFuncs   []func(context.Context)
)

// OnExit registers a function to be called during a graceful shutdown,
// after all servers have stopped accepting new connections.
func OnExit(f func(context.Context)) {
	exitFuncsMu.Lock()
	defer exitFuncsMu.Unlock()
	exitFuncs = append(exitFuncs, f)
}

func runExitFuncs(ctx context.Context) {
	exitFuncsMu.Lock()
	funcs := append([]func(context.Context){}, exitFuncs...)
	exitFuncsMu.Unlock()
	for _, f := range funcs {
		f(ctx)
	}
}

// Runnable is satisfied by anything with Start/Stop lifecycle methods,
// matching the shape of modules/gatehousehttp.App.
type Runnable interface {
	Start() error
	Stop(ctx context.Context) error
}

// Run starts app and blocks until ctx is canceled, then stops it,
// running any registered exit functions afterward.
func Run(ctx context.Context, app Runnable) error {
	if err := app.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), gracePeriod)
	defer cancel()
	err := app.Stop(stopCtx)
	runExitFuncs(stopCtx)
	return err
}

const gracePeriod = 30 * time.Second
