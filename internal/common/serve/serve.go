package serve

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 5 * time.Second

// ListenAndServe runs server until ctx is cancelled, then shuts it down gracefully.
func ListenAndServe(ctx context.Context, server *http.Server) error {
	errs := make(chan error, 1)
	go func() {
		errs <- server.ListenAndServe()
	}()
	select {
	case err := <-errs:
		if err == http.ErrServerClosed {
			return nil
		}
		return errors.WithStack(err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	log.Infof("Stopping http server listening on %s", server.Addr)
	if err := server.Shutdown(shutdownCtx); err != nil {
		return errors.WithStack(err)
	}
	if err := <-errs; err != http.ErrServerClosed {
		return errors.WithStack(err)
	}
	return nil
}

// MetricsHandler exposes the metrics of gatherer in the prometheus text format.
func MetricsHandler(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}

func NewMetricsServer(port uint16, gatherer prometheus.Gatherer) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           MetricsHandler(gatherer),
		ReadHeaderTimeout: 5 * time.Second,
	}
}
