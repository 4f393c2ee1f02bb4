package signalhandler

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"photocull/logging"
)

// NotifyContext returns a context cancelled on the first SIGINT or SIGTERM,
// so workers stop between photos instead of dying inside C calls. A second
// signal exits immediately.
func NotifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger := logging.WithComponent("signals")
			logger.Warn().Str("signal", sig.String()).
				Msg("stopping after the photos in progress, press Ctrl+C again to abort")
			cancel()
		case <-ctx.Done():
			return
		}

		select {
		case <-sigChan:
			os.Exit(130)
		case <-parent.Done():
		}
	}()

	return ctx, cancel
}

// GetOptimalProcs returns the optimal number of worker goroutines for the system
func GetOptimalProcs() int {
	numCPU := runtime.NumCPU()

	// For image processing with CGo, using too many goroutines can cause issues
	maxProcs := (numCPU * 3) / 4
	if maxProcs < 1 {
		maxProcs = 1
	}

	return maxProcs
}
