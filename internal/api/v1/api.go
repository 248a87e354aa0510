// internal/api/v1/api.go
package api

import (
	"context"
	"crypto/rand"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/vasu-ramanujam/teriyaki-chasers/internal/buildinfo"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/classifier"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/conf"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/datastore"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/errors"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/identify"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/logger"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/observability/metrics"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/wikipedia"
)

const defaultBodyLimit = "32M"

// Identifier runs the identification pipeline.
type Identifier interface {
	Identify(ctx context.Context, req classifier.Request) (*identify.Outcome, error)
}

// Resolver looks a name up in the encyclopedia.
type Resolver interface {
	Resolve(ctx context.Context, name string) (wikipedia.Enrichment, error)
}

// NameValidator decides whether a name belongs to a real animal.
type NameValidator interface {
	Validate(ctx context.Context, name string) (bool, error)
}

// Suggester returns close matches for a partial animal name.
type Suggester interface {
	Suggest(query string, limit int) []string
}

// Pinger reports database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies are the services the handlers call. All fields are required
// except Database, which only feeds the health check.
type Dependencies struct {
	Identifier Identifier
	Resolver   Resolver
	Species    datastore.SpeciesRepository
	Sightings  datastore.SightingRepository
	Validator  NameValidator
	Suggester  Suggester
	Database   Pinger
}

func (d *Dependencies) validate() error {
	missing := ""
	switch {
	case d.Identifier == nil:
		missing = "identifier"
	case d.Resolver == nil:
		missing = "resolver"
	case d.Species == nil:
		missing = "species repository"
	case d.Sightings == nil:
		missing = "sightings repository"
	case d.Validator == nil:
		missing = "name validator"
	case d.Suggester == nil:
		missing = "suggester"
	}
	if missing == "" {
		return nil
	}
	return errors.Newf("api dependency %s is not set", missing).
		Component("api").
		Category(errors.CategoryConfiguration).
		Build()
}

// Controller manages the API routes and handlers
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	Settings *conf.Settings

	deps      Dependencies
	metrics   *metrics.HTTPMetrics
	buildInfo buildinfo.BuildInfo
	startTime time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithHTTPMetrics records request counts and latencies.
func WithHTTPMetrics(m *metrics.HTTPMetrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithBuildInfo reports the build version from the health endpoint.
func WithBuildInfo(info buildinfo.BuildInfo) Option {
	return func(c *Controller) {
		c.buildInfo = info
	}
}

// New registers the root routes and the /v1 API on e.
func New(e *echo.Echo, settings *conf.Settings, deps Dependencies, opts ...Option) (*Controller, error) {
	if e == nil {
		return nil, fmt.Errorf("echo instance is nil")
	}
	if settings == nil {
		return nil, fmt.Errorf("settings are nil")
	}
	if err := deps.validate(); err != nil {
		return nil, err
	}

	c := &Controller{
		Echo:      e,
		Settings:  settings,
		deps:      deps,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}

	e.HTTPErrorHandler = c.httpErrorHandler

	bodyLimit := settings.WebServer.BodyLimit
	if bodyLimit == "" {
		bodyLimit = defaultBodyLimit
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator:        uuid.NewString,
		RequestIDHandler: attachTraceID,
	}))
	e.Use(c.corsMiddleware())
	e.Use(c.MetricsMiddleware())
	e.Use(c.LoggingMiddleware())

	e.GET("/", c.Root)
	e.GET("/health", c.HealthCheck)

	c.Group = e.Group("/v1")
	c.Group.Use(middleware.BodyLimit(bodyLimit))

	c.initRoutes()
	return c, nil
}

// attachTraceID makes the request ID visible to context-aware loggers.
func attachTraceID(ctx echo.Context, id string) {
	req := ctx.Request()
	ctx.SetRequest(req.WithContext(logger.WithTraceID(req.Context(), id)))
}

func (c *Controller) corsMiddleware() echo.MiddlewareFunc {
	origins := c.Settings.WebServer.AllowedOrigins
	if len(origins) == 0 {
		return middleware.CORS()
	}
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
	})
}

// LoggingMiddleware creates a middleware function that logs API requests
func (c *Controller) LoggingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()

			err := next(ctx)

			req := ctx.Request()
			res := ctx.Response()

			fields := []logger.Field{
				logger.String("method", req.Method),
				logger.String("path", req.URL.Path),
				logger.String("query", req.URL.RawQuery),
				logger.Int("status", res.Status),
				logger.String("ip", ctx.RealIP()),
				logger.String("user_agent", req.UserAgent()),
				logger.Int64("latency_ms", time.Since(start).Milliseconds()),
			}
			if err != nil {
				fields = append(fields, logger.Error(err))
			}

			GetLogger().WithContext(req.Context()).Info("API Request", fields...)

			return err
		}
	}
}

// MetricsMiddleware counts requests by route template so that path
// parameters do not explode label cardinality.
func (c *Controller) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if c.metrics == nil {
				return next(ctx)
			}

			c.metrics.RequestStarted()
			start := time.Now()

			err := next(ctx)

			status := ctx.Response().Status
			var httpErr *echo.HTTPError
			if err != nil && errors.As(err, &httpErr) {
				status = httpErr.Code
			}
			route := ctx.Path()
			if route == "" {
				route = "unmatched"
			}
			c.metrics.RequestFinished(ctx.Request().Method, route, status, time.Since(start).Seconds())

			return err
		}
	}
}

// initRoutes registers all API endpoints
func (c *Controller) initRoutes() {
	routeInitializers := []struct {
		name string
		fn   func()
	}{
		{"identify routes", c.initIdentifyRoutes},
		{"species routes", c.initSpeciesRoutes},
		{"animal routes", c.initAnimalRoutes},
		{"sighting routes", c.initSightingRoutes},
		{"user routes", c.initUserRoutes},
	}

	for _, initializer := range routeInitializers {
		GetLogger().Debug("initializing routes", logger.String("group", initializer.name))

		func() {
			defer func() {
				if r := recover(); r != nil {
					GetLogger().Error("panic during route initialization",
						logger.String("group", initializer.name),
						logger.Any("panic", r))
				}
			}()

			initializer.fn()
		}()
	}
}

// Root identifies the service.
func (c *Controller) Root(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"message": "Animal Explorer API"})
}

// HealthCheck handles the API health check endpoint
func (c *Controller) HealthCheck(ctx echo.Context) error {
	response := map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	}

	if c.buildInfo != nil {
		response["version"] = c.buildInfo.Version()
		response["build_date"] = c.buildInfo.BuildDate()
	}

	if c.deps.Database != nil {
		pingCtx, cancel := context.WithTimeout(ctx.Request().Context(), 2*time.Second)
		defer cancel()
		if err := c.deps.Database.Ping(pingCtx); err != nil {
			response["status"] = "degraded"
			response["database_status"] = "disconnected"
			response["database_error"] = err.Error()
		} else {
			response["database_status"] = "connected"
		}
	}

	uptime := time.Since(c.startTime)
	response["uptime"] = uptime.String()
	response["uptime_seconds"] = uptime.Seconds()

	return ctx.JSON(http.StatusOK, response)
}

// Error response structure
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"` // Unique identifier for tracking this error
}

// NewErrorResponse creates a new API error response
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}

	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: generateCorrelationID(),
	}
}

// generateCorrelationID creates a short random identifier for error tracking
func generateCorrelationID() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 8

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "ERR-RAND"
	}

	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}

// HandleError constructs and returns an appropriate error response
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	errorResp := NewErrorResponse(err, message, code)

	fields := []logger.Field{
		logger.String("correlation_id", errorResp.CorrelationID),
		logger.String("message", message),
		logger.String("error", errorResp.Error),
		logger.Int("code", code),
		logger.String("path", ctx.Request().URL.Path),
		logger.String("method", ctx.Request().Method),
		logger.String("ip", ctx.RealIP()),
	}

	log := GetLogger().WithContext(ctx.Request().Context())
	if code >= http.StatusInternalServerError {
		log.Error("API Error", fields...)
	} else {
		log.Warn("API Error", fields...)
	}

	return ctx.JSON(code, errorResp)
}

// statusFor maps an error category onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.IsConfiguration(err):
		// Missing keys or endpoints, even when wrapping a caller error
		return http.StatusInternalServerError
	case errors.IsValidation(err):
		return http.StatusBadRequest
	case errors.IsNotFound(err):
		return http.StatusNotFound
	case errors.IsUpstream(err):
		return http.StatusBadGateway
	default:
		// Storage faults and unclassified errors
		return http.StatusInternalServerError
	}
}

// httpErrorHandler renders errors that escape the handlers, such as unknown
// routes and oversized bodies, in the ErrorResponse shape.
func (c *Controller) httpErrorHandler(err error, ctx echo.Context) {
	if ctx.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := http.StatusText(code)
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		code = httpErr.Code
		if msg, ok := httpErr.Message.(string); ok {
			message = msg
		} else {
			message = http.StatusText(code)
		}
		err = nil
	}

	if ctx.Request().Method == http.MethodHead {
		_ = ctx.NoContent(code)
		return
	}
	if writeErr := c.HandleError(ctx, err, message, code); writeErr != nil {
		GetLogger().Error("failed to write error response", logger.Error(writeErr))
	}
}

// GetLogger returns the api module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("api")
}
