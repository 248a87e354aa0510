// Package api provides the HTTP server for the wildlife service. The JSON
// endpoints live in the v1 subpackage.
package api

import (
	"fmt"
	"time"

	"github.com/labstack/gommon/bytes"

	"github.com/vasu-ramanujam/teriyaki-chasers/internal/conf"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/logger"
)

// GetLogger returns the api package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("api")
}

// Default constants for the HTTP server.
const (
	DefaultListen          = ":8000"
	DefaultReadTimeout     = 60 * time.Second
	DefaultWriteTimeout    = 90 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultBodyLimit       = "32M"
)

// Config holds the HTTP server configuration.
type Config struct {
	Listen string // host:port, e.g. ":8000"

	// Timeouts
	ReadTimeout     time.Duration // Maximum duration for reading request
	WriteTimeout    time.Duration // Maximum duration for writing response, identification included
	IdleTimeout     time.Duration // Maximum time to wait for next request
	ShutdownTimeout time.Duration // Maximum time to wait for graceful shutdown

	BodyLimit string // Maximum request body size (e.g., "1M", "32M"), applied under /v1

	Debug bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Listen:          DefaultListen,
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		IdleTimeout:     DefaultIdleTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		BodyLimit:       DefaultBodyLimit,
	}
}

// ConfigFromSettings creates a Config from the application settings. Unset
// values keep their defaults.
func ConfigFromSettings(settings *conf.Settings) *Config {
	cfg := DefaultConfig()

	ws := settings.WebServer
	if ws.Listen != "" {
		cfg.Listen = ws.Listen
	}
	if ws.ReadTimeout > 0 {
		cfg.ReadTimeout = ws.ReadTimeout
	}
	if ws.WriteTimeout > 0 {
		cfg.WriteTimeout = ws.WriteTimeout
	}
	if ws.BodyLimit != "" {
		cfg.BodyLimit = ws.BodyLimit
	}
	cfg.Debug = ws.Debug || settings.Debug

	return cfg
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive")
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive")
	}
	if _, err := bytes.Parse(c.BodyLimit); err != nil {
		return fmt.Errorf("invalid body limit %q: %w", c.BodyLimit, err)
	}
	return nil
}

// String returns a human-readable representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf("Server Config: listen=%s, body_limit=%s, debug=%v",
		c.Listen, c.BodyLimit, c.Debug)
}
