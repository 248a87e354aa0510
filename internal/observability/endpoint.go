package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/vasu-ramanujam/teriyaki-chasers/internal/conf"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/logger"
)

const shutdownTimeout = 5 * time.Second

// Endpoint serves /metrics on its own listener.
type Endpoint struct {
	server        *http.Server
	listenAddress string
	metrics       *Metrics
}

// NewEndpoint returns an error when the endpoint is disabled in settings.
func NewEndpoint(settings *conf.TelemetrySettings, metrics *Metrics) (*Endpoint, error) {
	if !settings.Enabled {
		return nil, fmt.Errorf("telemetry not enabled in settings")
	}

	mux := http.NewServeMux()
	metrics.RegisterHandlers(mux)

	return &Endpoint{
		listenAddress: settings.Listen,
		metrics:       metrics,
		server: &http.Server{
			Addr:              settings.Listen,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (e *Endpoint) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("metrics endpoint starting", logger.String("address", e.listenAddress))
		if err := e.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("metrics endpoint: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("stopping metrics endpoint")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.server.Shutdown(shutdownCtx); err != nil {
		log.Error("metrics endpoint shutdown error", logger.Error(err))
		return err
	}
	return nil
}

// GetMetrics returns the Metrics instance associated with this Endpoint.
func (e *Endpoint) GetMetrics() *Metrics {
	return e.metrics
}
