package signals

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/endorses/lexfst/internal/pkg/constants"
	"github.com/endorses/lexfst/internal/pkg/logger"
)

// SetupHandler cancels the provided context on SIGINT or SIGTERM. SIGHUP
// calls onHangup, which a long-running server uses to reload; with a nil
// onHangup, SIGHUP cancels like the others.
// Returns a cleanup function that should be called when the signal handler is no longer needed
func SetupHandler(ctx context.Context, cancel context.CancelFunc, onHangup func()) (cleanup func()) {
	sigCh := make(chan os.Signal, constants.SignalChannelBuffer)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case sig := <-sigCh:
				if sig == syscall.SIGHUP && onHangup != nil {
					logger.Info("Received signal, reloading", "signal", sig.String())
					onHangup()
					continue
				}
				logger.Info("Received signal, initiating shutdown", "signal", sig.String())
				cancel()
				return
			case <-ctx.Done():
				return
			case <-stop:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigCh)
		close(stop)
		<-done // Wait for goroutine to exit
	}
}
