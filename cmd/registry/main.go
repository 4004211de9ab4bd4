// Command registry drives the column-registry pipeline: generation, drift
// verification, live schema validation, migrations and lint.
//
// Usage:
//
//	registry generate
//	registry verify
//	registry validate --strict
//	registry migrate
//	registry lint
//	registry mcp
//
// Exit status is 0 on success, 1 when the checked artefact diverges from the
// registry (or the gateway fails), and 2 when the registry or configuration
// itself is unusable.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/djb258/client-sub001/internal/errs"
	"github.com/djb258/client-sub001/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one command line and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr, log: logger.Nop()}
	cmd := a.rootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err != nil {
		if a.ready {
			a.log.Error("command failed", err, logger.F("kind", errs.KindOf(err).String()))
		} else {
			// Flag or config errors happen before the logger exists.
			fmt.Fprintf(stderr, "error: %v\n", err)
		}
	}
	return errs.ExitCode(err)
}
