// Command nhparity runs convergence sweeps of the kernel against a reference
// oracle and serves the stored results.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, "nhparity:", err)
	if errors.Is(err, errParityFailed) {
		os.Exit(1)
	}
	os.Exit(2)
}
