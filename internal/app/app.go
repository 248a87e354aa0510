// Package app builds the service graph from settings. Commands share it so
// that serve, identify and resolve all run the same pipeline.
package app

import (
	"fmt"
	"net/http"
	"time"

	v1 "github.com/vasu-ramanujam/teriyaki-chasers/internal/api/v1"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/animals"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/buildinfo"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/classifier"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/conf"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/datastore"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/errors"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/httpclient"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/identify"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/logger"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/observability"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/registry"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/wikipedia"
)

// Context carries what every command needs. Settings is filled in by the
// root command before a subcommand runs.
type Context struct {
	Settings  *conf.Settings
	BuildInfo *buildinfo.Context
}

// Services is the wired pipeline plus the stores and clients behind it.
type Services struct {
	Store      *datastore.Store
	HTTPClient *httpclient.Client
	WikiClient *httpclient.Client
	Metrics    *observability.Metrics

	Classifier *classifier.Client
	Resolver   *wikipedia.Resolver
	Registrar  *registry.Registrar
	Identify   *identify.Service
	Validator  *animals.Validator
	Suggester  *animals.Suggester
}

// NewServices opens the database and builds every pipeline stage.
func NewServices(ctx *Context) (*Services, error) {
	if ctx == nil || ctx.Settings == nil {
		return nil, errors.Newf("settings are not loaded").
			Component("app").
			Category(errors.CategoryConfiguration).
			Build()
	}
	settings := ctx.Settings
	version := buildinfo.UnknownValue
	if ctx.BuildInfo != nil {
		version = ctx.BuildInfo.Version()
	}

	store, err := datastore.Open(&settings.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	m, err := observability.NewMetrics()
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	// Model provider calls share one pool. The encyclopedia gets its own
	// pool and timeout; the resolver sets its policy User-Agent per request.
	client := httpclient.New(&httpclient.Config{
		DefaultTimeout: settings.Classifier.Timeout,
		UserAgent:      fmt.Sprintf("%s/%s (%s)", settings.Main.Name, version, settings.Main.Contact),
		Observer:       observeAs(m, "model_provider"),
	})
	wikiClient := httpclient.New(&httpclient.Config{
		DefaultTimeout: settings.Wikipedia.Timeout,
		Observer:       observeAs(m, "wikipedia"),
	})

	s := &Services{
		Store:      store,
		HTTPClient: client,
		WikiClient: wikiClient,
		Metrics:    m,
	}

	s.Classifier = classifier.New(classifier.Config{
		APIKey:     settings.Classifier.APIKey,
		BaseURL:    settings.Classifier.BaseURL,
		PhotoModel: settings.Classifier.PhotoModel,
		AudioModel: settings.Classifier.AudioModel,
		Timeout:    settings.Classifier.Timeout,
		MaxRetries: settings.Classifier.MaxRetries,
		HTTPClient: client,
	})

	s.Resolver = wikipedia.New(wikipedia.Config{
		BaseURL:    settings.Wikipedia.BaseURL,
		Timeout:    settings.Wikipedia.Timeout,
		RateLimit:  settings.Wikipedia.RateLimit,
		AppName:    settings.Main.Name,
		AppVersion: version,
		Contact:    settings.Main.Contact,
		HTTPClient: wikiClient,
	})

	s.Registrar = registry.New(store.Species())

	s.Identify = identify.New(s.Classifier, s.Resolver, s.Registrar,
		identify.WithRecorder(m.Pipeline))

	names := settings.Animals.Names
	if len(names) == 0 {
		names = conf.DefaultAnimalNames
	}
	s.Suggester = animals.NewSuggester(names)

	s.Validator = animals.NewValidator(animals.ValidatorConfig{
		APIKey:     settings.Classifier.APIKey,
		BaseURL:    settings.Classifier.BaseURL,
		Model:      settings.Animals.TextModel,
		Timeout:    settings.Classifier.Timeout,
		CacheTTL:   settings.Animals.CacheTTL,
		HTTPClient: client,
		Recorder:   m.Pipeline,
	})

	GetLogger().Info("services initialized",
		logger.String("database", store.Dialect()),
		logger.String("classifier_base_url", settings.Classifier.BaseURL),
		logger.Bool("classifier_key_configured", settings.Classifier.APIKey != ""),
		logger.String("wikipedia_user_agent", s.Resolver.UserAgent()),
		logger.Int("suggestion_names", s.Suggester.Len()))

	return s, nil
}

// observeAs feeds outbound round trips into the upstream metrics.
func observeAs(m *observability.Metrics, service string) httpclient.Observer {
	return func(_ *http.Request, status int, err error, elapsed time.Duration) {
		m.Upstream.Observe(service, status, err, elapsed)
	}
}

// APIDependencies returns the handler dependencies for the HTTP API.
func (s *Services) APIDependencies() v1.Dependencies {
	return v1.Dependencies{
		Identifier: s.Identify,
		Resolver:   s.Resolver,
		Species:    s.Store.Species(),
		Sightings:  s.Store.Sightings(),
		Validator:  s.Validator,
		Suggester:  s.Suggester,
		Database:   s.Store,
	}
}

// Close releases the HTTP pool and the database.
func (s *Services) Close() error {
	if s == nil {
		return nil
	}
	if s.HTTPClient != nil {
		s.HTTPClient.Close()
	}
	if s.WikiClient != nil {
		s.WikiClient.Close()
	}
	if s.Store != nil {
		return s.Store.Close()
	}
	return nil
}

// GetLogger returns the app module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("app")
}
