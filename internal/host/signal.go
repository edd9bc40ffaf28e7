package host

import (
	"context"
	"os"
	"os/signal"
)

// WatchDumpSignal turns each delivery of sig into a dump request until
// ctx is cancelled. Go delivers signals to the registered channel rather
// than to an arbitrary thread, so session workers never see it.
func (l *Listener) WatchDumpSignal(ctx context.Context, sig os.Signal) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sig)
	go func() {
		defer signal.Stop(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ch:
				l.logger.Debug("dump signal received", "signal", sig.String())
				l.RequestDump()
			}
		}
	}()
}
