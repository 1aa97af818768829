// Command tix is the command-line host of the tix ticket engine.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tixhq/tix/internal/debug"
	"github.com/tixhq/tix/internal/telemetry"
)

var (
	// Version is the current version of tix (overridden by ldflags at build time)
	Version = "0.1.0"
	// Build can be set via ldflags at compile time
	Build = "dev"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	if err := telemetry.Init(ctx, "tix", Version); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: telemetry disabled: %v\n", err)
	}

	c := newCLI(os.Stdin, os.Stdout, os.Stderr)
	err := newRootCmd(c).ExecuteContext(ctx)

	if err := telemetry.Shutdown(context.Background()); err != nil {
		debug.Logf("telemetry shutdown: %v\n", err)
	}
	stop()
	if err != nil {
		reportError(os.Stderr, err)
		if errors.Is(err, errCancelled) {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
