// Package telemetry provides opt-in, privacy-filtered error reporting to Sentry.
package telemetry

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/vasu-ramanujam/teriyaki-chasers/internal/conf"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/errors"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/logger"
)

const flushTimeout = 2 * time.Second

var initialized atomic.Bool

// Options carries the non-configurable parts of the Sentry setup.
type Options struct {
	Release string
	// Transport replaces the HTTP transport; tests inject a recorder
	Transport sentry.Transport
}

// InitSentry initializes the Sentry SDK when enabled in settings and hooks
// it into enhanced error reporting. It is a no-op when disabled.
func InitSentry(settings *conf.SentrySettings, opts Options) error {
	if !settings.Enabled {
		GetLogger().Debug("sentry telemetry is disabled")
		errors.SetTelemetryReporter(nil)
		return nil
	}

	environment := settings.Environment
	if environment == "" {
		environment = "production"
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.DSN,
		SampleRate:       settings.SampleRate,
		Environment:      environment,
		Release:          opts.Release,
		AttachStacktrace: false,
		ServerName:       "", // keep hostnames out of events
		BeforeSend:       beforeSend,
		Transport:        opts.Transport,
	})
	if err != nil {
		return errors.New(fmt.Errorf("sentry initialization failed: %w", err)).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	errors.SetPrivacyScrubber(logger.RedactSensitiveData)
	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	initialized.Store(true)

	GetLogger().Info("sentry telemetry enabled",
		logger.String("environment", environment),
		logger.String("release", opts.Release))
	return nil
}

// beforeSend strips data that could identify the host or the user.
func beforeSend(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}

	if event.Request != nil {
		event.Request.Cookies = ""
		event.Request.Headers = nil
		event.Request.QueryString = ""
	}

	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}

	event.Message = logger.RedactSensitiveData(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = logger.RedactSensitiveData(event.Exception[i].Value)
	}
	return event
}

// Flush waits briefly for buffered events. Safe to call when disabled.
func Flush() {
	if !initialized.Load() {
		return
	}
	if !sentry.Flush(flushTimeout) {
		GetLogger().Warn("sentry flush timed out", logger.Duration("timeout", flushTimeout))
	}
}

// GetLogger returns the telemetry module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("telemetry")
}
