package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"

	v1 "github.com/vasu-ramanujam/teriyaki-chasers/internal/api/v1"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/buildinfo"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/conf"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/logger"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/observability/metrics"
)

// Server is the HTTP server for the wildlife API.
type Server struct {
	echo     *echo.Echo
	config   *Config
	settings *conf.Settings

	controllerOpts []v1.Option
	apiController  *v1.Controller

	mu       sync.Mutex
	listener net.Listener
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithHTTPMetrics records request metrics for every route.
func WithHTTPMetrics(m *metrics.HTTPMetrics) ServerOption {
	return func(s *Server) {
		if m != nil {
			s.controllerOpts = append(s.controllerOpts, v1.WithHTTPMetrics(m))
		}
	}
}

// WithBuildInfo exposes the build version on the health endpoint.
func WithBuildInfo(info buildinfo.BuildInfo) ServerOption {
	return func(s *Server) {
		if info != nil {
			s.controllerOpts = append(s.controllerOpts, v1.WithBuildInfo(info))
		}
	}
}

// New creates a new HTTP server with the given settings, handler
// dependencies and options.
func New(settings *conf.Settings, deps v1.Dependencies, opts ...ServerOption) (*Server, error) {
	config := ConfigFromSettings(settings)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}

	s := &Server{
		config:   config,
		settings: settings,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Debug = config.Debug
	s.echo.IPExtractor = echo.ExtractIPFromXFFHeader()

	s.echo.Server.ReadTimeout = config.ReadTimeout
	s.echo.Server.WriteTimeout = config.WriteTimeout
	s.echo.Server.IdleTimeout = config.IdleTimeout

	controller, err := v1.New(s.echo, settings, deps, s.controllerOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize API v1: %w", err)
	}
	s.apiController = controller

	GetLogger().Info("HTTP server initialized",
		logger.String("listen", config.Listen),
		logger.String("body_limit", config.BodyLimit),
		logger.Bool("debug", config.Debug))

	return s, nil
}

// Listen binds the listen address. Run calls it when needed; calling it
// first lets the caller learn the bound address.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Listen, err)
	}
	s.listener = ln
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	s.echo.Listener = s.listener
	serveErr := make(chan error, 1)
	go func() {
		GetLogger().Info("HTTP server starting", logger.String("address", s.listener.Addr().String()))
		serveErr <- s.echo.Start("")
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		GetLogger().Info("Shutdown signal received, initiating graceful shutdown")
	}

	if err := s.Shutdown(); err != nil {
		return err
	}
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		GetLogger().Error("Error during server shutdown", logger.Error(err))
		return fmt.Errorf("shutdown error: %w", err)
	}

	GetLogger().Info("Server shutdown complete")
	return nil
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Config returns the effective server configuration.
func (s *Server) Config() *Config {
	return s.config
}

// APIController returns the v1 controller.
func (s *Server) APIController() *v1.Controller {
	return s.apiController
}
