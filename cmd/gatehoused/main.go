// Command gatehoused is a minimal, contract-only process entry point.
// It wires a hard-coded example configuration and handler list into
// gatehouse.Run; it does not parse a configuration file, daemonize, or
// install signal handlers beyond the one shown here for SIGINT/SIGTERM.
// Those concerns (config format, module loading, process lifecycle) are
// explicitly out of scope for this module — see SPEC_FULL.md §1.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gatehouse-project/gatehouse"
	"github.com/gatehouse-project/gatehouse/modules/gatehousehttp"
	"github.com/gatehouse-project/gatehouse/modules/gatehousehttp/staticresp"
	"github.com/gatehouse-project/gatehouse/modules/gatehousehttp/xforwardedfor"
)

func main() {
	root := &cobra.Command{
		Use:   "gatehoused",
		Short: "gatehouse HTTP/HTTPS server core — example bootstrap",
		RunE:  run,
	}
	root.Flags().String("access-log", "access.log", "path to the access log file")
	root.Flags().String("error-log", "error.log", "path to the error log file")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	accessLogPath, _ := cmd.Flags().GetString("access-log")
	errorLogPath, _ := cmd.Flags().GetString("error-log")

	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	accessSink, err := gatehousehttp.NewLogSink(accessLogPath, "access")
	if err != nil {
		return err
	}
	errorSink, err := gatehousehttp.NewLogSink(errorLogPath, "error")
	if err != nil {
		return err
	}

	global := exampleConfig()

	factories := []gatehousehttp.HandlerFactory{
		xforwardedfor.NewFactory(),
		staticresp.Handler{
			StatusCode: "200",
			Body:       "gatehouse is up\n",
		}.Factory(),
	}

	pipeline := &gatehousehttp.Pipeline{
		Global:     global,
		Factories:  factories,
		AccessSink: accessSink,
		ErrorSink:  errorSink,
		Logger:     logger,
	}

	app := &gatehousehttp.App{
		Global:   global,
		Pipeline: pipeline,
		Logger:   logger,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting gatehouse")
	return gatehouse.Run(ctx, app)
}

func exampleConfig() *gatehousehttp.GlobalConfig {
	port := 8080
	return &gatehousehttp.GlobalConfig{
		Scope: gatehousehttp.Scope{
			Port:                     &port,
			ServerAdministratorEmail: stringPtr("admin@example.com"),
		},
	}
}

func stringPtr(s string) *string { return &s }
