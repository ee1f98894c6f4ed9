package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
)

// CreateContextWithShutdown returns a context that is cancelled on the first SIGINT or SIGTERM.
// A second signal exits the process immediately.
func CreateContextWithShutdown() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(signals)
		select {
		case sig := <-signals:
			log.Infof("Received %s, shutting down", sig)
			cancel()
		case <-ctx.Done():
			return
		}
		select {
		case sig := <-signals:
			log.Warnf("Received %s again, exiting", sig)
			os.Exit(1)
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
