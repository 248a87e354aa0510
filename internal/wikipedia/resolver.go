// Package wikipedia resolves species names to Wikipedia summaries.
package wikipedia

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/antonholmquist/jason"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/vasu-ramanujam/teriyaki-chasers/internal/errors"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/httpclient"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/logger"
)

const (
	componentName = "wikipedia"

	defaultBaseURL    = "https://en.wikipedia.org"
	defaultTimeout    = 5 * time.Second
	defaultRateLimit  = 5.0
	defaultBurst      = 2
	defaultMaxRetries = 1
	defaultRetryDelay = 250 * time.Millisecond

	maxResponseBytes  = 1 << 20
	maxErrorBodyBytes = 1024
)

// Config holds the encyclopedia client settings.
type Config struct {
	BaseURL    string        // e.g. https://en.wikipedia.org
	Timeout    time.Duration // per request
	RateLimit  float64       // requests per second across all callers
	Burst      int
	MaxRetries int           // extra attempts after 429 and 5xx
	RetryDelay time.Duration // doubled on each retry

	AppName    string
	AppVersion string
	Contact    string

	// HTTPClient is created with the policy User-Agent when nil
	HTTPClient *httpclient.Client
}

// Resolver looks up page summaries with a search fallback. Safe for concurrent use.
type Resolver struct {
	cfg       Config
	http      *httpclient.Client
	limiter   *rate.Limiter
	userAgent string
}

// New creates a Resolver, filling unset fields with defaults.
func New(cfg Config) *Resolver {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.Burst <= 0 {
		cfg.Burst = defaultBurst
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}

	userAgent := buildUserAgent(cfg.AppName, cfg.AppVersion, cfg.Contact)
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = httpclient.New(&httpclient.Config{
			DefaultTimeout: cfg.Timeout,
			UserAgent:      userAgent,
		})
	}

	GetLogger().Debug("wikipedia resolver initialized",
		logger.String("base_url", cfg.BaseURL),
		logger.String("user_agent", userAgent),
		logger.Float64("rate_limit_rps", cfg.RateLimit))

	return &Resolver{
		cfg:       cfg,
		http:      cfg.HTTPClient,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
		userAgent: userAgent,
	}
}

// UserAgent returns the User-Agent sent with every request.
func (r *Resolver) UserAgent() string {
	return r.userAgent
}

// Resolve returns the encyclopedia data for name. The direct title lookup is
// tried first; only when it finds nothing is the top search hit looked up.
// A name with no entry yields Empty() and a nil error. Transport failures
// and unexpected statuses return an UpstreamError; a User-Agent policy
// rejection returns a configuration error.
func (r *Resolver) Resolve(ctx context.Context, name string) (Enrichment, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Empty(), nil
	}

	reqID := uuid.NewString()[:8]
	log := GetLogger().WithContext(ctx).With(
		logger.String("request_id", reqID),
		logger.String("name", name))

	e, found, err := r.summary(ctx, name)
	if err != nil {
		return Empty(), err
	}
	if found {
		log.Debug("resolved by direct lookup")
		return e, nil
	}

	title, found, err := r.searchTitle(ctx, name)
	if err != nil {
		return Empty(), err
	}
	if !found {
		log.Debug("no encyclopedia entry")
		return Empty(), nil
	}

	e, found, err = r.summary(ctx, title)
	if err != nil {
		return Empty(), err
	}
	if !found {
		log.Debug("search hit has no usable summary", logger.String("title", title))
		return Empty(), nil
	}

	log.Debug("resolved by search fallback", logger.String("title", title))
	return e, nil
}

// summary fetches the REST page summary for title.
func (r *Resolver) summary(ctx context.Context, title string) (Enrichment, bool, error) {
	endpoint := r.cfg.BaseURL + "/api/rest_v1/page/summary/" +
		url.PathEscape(strings.ReplaceAll(title, " ", "_")) + "?redirect=true"

	obj, found, err := r.getJSON(ctx, endpoint, "page_summary")
	if err != nil || !found {
		return Empty(), false, err
	}
	if !summaryEntry(obj) {
		return Empty(), false, nil
	}
	return enrichmentFromSummary(obj), true, nil
}

// searchTitle returns the title of the top full-text search hit for name.
func (r *Resolver) searchTitle(ctx context.Context, name string) (string, bool, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", name)
	params.Set("srlimit", "1")
	params.Set("format", "json")
	endpoint := r.cfg.BaseURL + "/w/api.php?" + params.Encode()

	obj, found, err := r.getJSON(ctx, endpoint, "search")
	if err != nil || !found {
		return "", false, err
	}

	if apiErr, err := obj.GetObject("error"); err == nil {
		code, _ := apiErr.GetString("code")
		info, _ := apiErr.GetString("info")
		return "", false, errors.Newf("wikipedia search error %s: %s", code, info).
			Component(componentName).
			Category(errors.CategoryUpstream).
			Context("operation", "search").
			Context("api_error_code", code).
			Build()
	}

	hits, err := obj.GetObjectArray("query", "search")
	if err != nil || len(hits) == 0 {
		return "", false, nil
	}
	title, err := hits[0].GetString("title")
	if err != nil || strings.TrimSpace(title) == "" {
		return "", false, nil
	}
	return title, true, nil
}

// getJSON performs a rate-limited GET with retries. found is false for 404,
// for a per-request timeout and for bodies that are not JSON objects.
func (r *Resolver) getJSON(ctx context.Context, endpoint, operation string) (*jason.Object, bool, error) {
	attempts := r.cfg.MaxRetries + 1
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := r.cfg.RetryDelay * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, false, r.cancelledError(ctx.Err(), operation)
			}
		}

		obj, found, retryable, err := r.getOnce(ctx, endpoint, operation)
		if err == nil {
			return obj, found, nil
		}
		lastErr = err
		if !retryable {
			break
		}
		GetLogger().Warn("wikipedia request failed, retrying",
			logger.String("operation", operation),
			logger.Int("attempt", attempt+1),
			logger.Int("max_attempts", attempts),
			logger.Error(err))
	}

	return nil, false, lastErr
}

func (r *Resolver) getOnce(ctx context.Context, endpoint, operation string) (obj *jason.Object, found, retryable bool, err error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, false, false, r.cancelledError(err, operation)
	}

	callCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, false, false, errors.New(err).
			Component(componentName).
			Category(errors.CategoryConfiguration).
			Context("operation", operation).
			Build()
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := r.http.Do(callCtx, req)
	if err == nil {
		var body []byte
		body, err = httpclient.ReadBody(resp, maxResponseBytes)
		if err == nil {
			return r.interpret(resp.StatusCode, body, operation)
		}
	}

	switch {
	case ctx.Err() != nil:
		return nil, false, false, r.cancelledError(ctx.Err(), operation)
	case callCtx.Err() != nil:
		// A slow encyclopedia is treated like a missing entry
		GetLogger().Warn("wikipedia request timed out, treating as no entry",
			logger.String("operation", operation),
			logger.Duration("timeout", r.cfg.Timeout))
		return nil, false, false, nil
	default:
		return nil, false, false, errors.New(fmt.Errorf("wikipedia request failed: %w", err)).
			Component(componentName).
			Category(errors.CategoryUpstream).
			Context("operation", operation).
			Build()
	}
}

// interpret maps a response onto found / retryable / error.
func (r *Resolver) interpret(status int, body []byte, operation string) (*jason.Object, bool, bool, error) {
	switch {
	case status == http.StatusNotFound:
		return nil, false, false, nil

	case status >= 200 && status < 300:
		obj, err := jason.NewObjectFromBytes(body)
		if err != nil {
			GetLogger().Debug("wikipedia returned a non-JSON body",
				logger.String("operation", operation),
				logger.Error(err))
			return nil, false, false, nil
		}
		return obj, true, false, nil

	default:
		if policyErr := checkUserAgentPolicyViolation(status, body, r.userAgent); policyErr != nil {
			return nil, false, false, policyErr
		}
		excerpt := logger.Truncate(string(body), maxErrorBodyBytes)
		retryable := status == http.StatusTooManyRequests || status >= 500
		return nil, false, retryable, errors.Newf("wikipedia returned status %d", status).
			Component(componentName).
			Category(errors.CategoryUpstream).
			Context("operation", operation).
			Context("status_code", status).
			Context("response_body", excerpt).
			Build()
	}
}

func (r *Resolver) cancelledError(err error, operation string) error {
	return errors.New(fmt.Errorf("wikipedia request interrupted: %w", err)).
		Component(componentName).
		Category(errors.CategoryUpstream).
		Context("operation", operation).
		Build()
}

// GetLogger returns the wikipedia module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module(componentName)
}
