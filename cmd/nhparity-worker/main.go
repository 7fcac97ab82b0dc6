// Command nhparity-worker answers the oracle line protocol on stdin and
// stdout using the Go kernel. Logs go to stderr so they never mix with
// protocol responses.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/MJE43/nh-parity-go/internal/config"
	"github.com/MJE43/nh-parity-go/internal/oracle"
	"github.com/MJE43/nh-parity-go/internal/platform/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "nhparity-worker:", err)
		os.Exit(2)
	}
	logger, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat, "nhparity-worker")
	if err != nil {
		fmt.Fprintln(os.Stderr, "nhparity-worker:", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Debug("worker started", "pid", os.Getpid())
	if err := oracle.Serve(ctx, os.Stdin, os.Stdout, oracle.Kernel{}, logger); err != nil {
		logger.Error("worker stopped", "error", err)
		stop()
		os.Exit(1)
	}
}
