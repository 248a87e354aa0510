// Package httpclient is the outbound HTTP client for the model provider and
// the encyclopedia: a pooled transport, a default per-request deadline, a
// fallback User-Agent and a per-request observer for metrics.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

const (
	// DefaultTimeout is the default timeout for HTTP requests if not specified.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResponseBytes caps how much of a response body ReadBody will buffer.
	DefaultMaxResponseBytes = 4 << 20

	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 90 * time.Second

	defaultTLSHandshakeTimeout   = 10 * time.Second
	defaultResponseHeaderTimeout = 60 * time.Second
	defaultExpectContinueTimeout = 1 * time.Second
	defaultDialTimeout           = 30 * time.Second
	defaultDialKeepAlive         = 30 * time.Second

	defaultUserAgent = "WildlifeExplorer/1.0 (contact: ios-app)"
)

// Observer is told about every completed round trip. status is 0 when the
// request failed before a response arrived.
type Observer func(req *http.Request, status int, err error, elapsed time.Duration)

// Client wraps http.Client. Safe for concurrent use.
type Client struct {
	client         *http.Client
	defaultTimeout time.Duration
	userAgent      string
}

// Config holds configuration for creating an HTTP client.
type Config struct {
	// DefaultTimeout is the timeout applied if request context has no deadline
	DefaultTimeout time.Duration

	// UserAgent is added to all requests that do not set one
	UserAgent string

	// Observer, when set, sees every round trip
	Observer Observer

	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration

	TLSHandshakeTimeout time.Duration

	// ResponseHeaderTimeout is generous because audio classification can
	// take a while before the first byte arrives
	ResponseHeaderTimeout time.Duration
	ExpectContinueTimeout time.Duration

	DisableKeepAlives  bool
	DisableCompression bool
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() Config {
	return Config{
		DefaultTimeout:        DefaultTimeout,
		UserAgent:             defaultUserAgent,
		MaxIdleConns:          defaultMaxIdleConns,
		MaxIdleConnsPerHost:   defaultMaxIdleConnsPerHost,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   defaultTLSHandshakeTimeout,
		ResponseHeaderTimeout: defaultResponseHeaderTimeout,
		ExpectContinueTimeout: defaultExpectContinueTimeout,
	}
}

// New creates a new HTTP client. A nil cfg means DefaultConfig; zero fields
// take their defaults. The caller's config is not mutated.
func New(cfg *Config) *Client {
	c := DefaultConfig()
	if cfg != nil {
		c = withDefaults(*cfg)
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   defaultDialTimeout,
			KeepAlive: defaultDialKeepAlive,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          c.MaxIdleConns,
		MaxIdleConnsPerHost:   c.MaxIdleConnsPerHost,
		IdleConnTimeout:       c.IdleConnTimeout,
		TLSHandshakeTimeout:   c.TLSHandshakeTimeout,
		ResponseHeaderTimeout: c.ResponseHeaderTimeout,
		ExpectContinueTimeout: c.ExpectContinueTimeout,
		DisableKeepAlives:     c.DisableKeepAlives,
		DisableCompression:    c.DisableCompression,
	}

	var rt http.RoundTripper = transport
	if c.Observer != nil {
		rt = &observedTransport{next: transport, observe: c.Observer}
	}

	return &Client{
		// Timeouts are enforced per request through the context
		client:         &http.Client{Transport: rt},
		defaultTimeout: c.DefaultTimeout,
		userAgent:      c.UserAgent,
	}
}

func withDefaults(c Config) Config {
	d := DefaultConfig()
	if c.DefaultTimeout == 0 {
		c.DefaultTimeout = d.DefaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = d.UserAgent
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = d.MaxIdleConns
	}
	if c.MaxIdleConnsPerHost == 0 {
		c.MaxIdleConnsPerHost = d.MaxIdleConnsPerHost
	}
	if c.IdleConnTimeout == 0 {
		c.IdleConnTimeout = d.IdleConnTimeout
	}
	if c.TLSHandshakeTimeout == 0 {
		c.TLSHandshakeTimeout = d.TLSHandshakeTimeout
	}
	if c.ResponseHeaderTimeout == 0 {
		c.ResponseHeaderTimeout = d.ResponseHeaderTimeout
	}
	if c.ExpectContinueTimeout == 0 {
		c.ExpectContinueTimeout = d.ExpectContinueTimeout
	}
	return c
}

// Do sends req under ctx. Without a deadline on ctx the client's default
// timeout applies, and it stays armed until the response body is closed.
// The caller must close the body when err is nil.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	cancel := context.CancelFunc(func() {})
	if _, ok := ctx.Deadline(); !ok && c.defaultTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.defaultTimeout)
	}
	req = req.WithContext(ctx)

	if req.Header.Get("User-Agent") == "" && c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// cancelOnClose releases the request timeout once the body is done with
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

// observedTransport reports round trips made through Do and through
// StandardClient alike.
type observedTransport struct {
	next    http.RoundTripper
	observe Observer
}

func (t *observedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	t.observe(req, status, err, time.Since(start))
	return resp, err
}

// ReadBody reads at most limit bytes of the response body and closes it.
// A limit of zero or less means DefaultMaxResponseBytes.
func ReadBody(resp *http.Response, limit int64) ([]byte, error) {
	if resp == nil || resp.Body == nil {
		return nil, nil
	}
	defer func() { _ = resp.Body.Close() }()
	if limit <= 0 {
		limit = DefaultMaxResponseBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, nil
}

// StandardClient exposes the underlying *http.Client for libraries that take
// one (the OpenAI SDK) and for transport mocking in tests.
func (c *Client) StandardClient() *http.Client {
	return c.client
}

// Close closes idle connections in the connection pool.
func (c *Client) Close() {
	c.client.CloseIdleConnections()
}
