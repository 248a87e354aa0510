// Package classifier turns photo and audio bytes into a species label using a
// multimodal chat-completions model.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/vasu-ramanujam/teriyaki-chasers/internal/errors"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/httpclient"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/logger"
)

// Sentinel is the label the model returns when it cannot identify an animal.
const Sentinel = "IDENTIFICATION FAILED"

const (
	componentName = "classifier"

	defaultTimeout    = 45 * time.Second
	defaultRetryDelay = 500 * time.Millisecond

	// maxResponseBytes bounds a completion body; labels are a few tokens
	maxResponseBytes = 1 << 20
	// maxErrorBodyBytes bounds how much of a failed response lands in errors and logs
	maxErrorBodyBytes = 2048
)

// Modality selects which media a Request carries.
type Modality string

const (
	ModalityPhoto         Modality = "photo"
	ModalityAudio         Modality = "audio"
	ModalityPhotoAndAudio Modality = "photo_and_audio"
)

func (m Modality) hasImage() bool {
	return m == ModalityPhoto || m == ModalityPhotoAndAudio
}

func (m Modality) hasAudio() bool {
	return m == ModalityAudio || m == ModalityPhotoAndAudio
}

// Request is one classification input.
type Request struct {
	Modality Modality

	Image     []byte
	ImageType string // MIME type, detected from Image when empty

	Audio       []byte
	AudioFormat string // see ResolveAudioFormat; "wav" when empty
}

func (r *Request) validate() error {
	switch r.Modality {
	case ModalityPhoto, ModalityAudio, ModalityPhotoAndAudio:
	default:
		return errors.Newf("unsupported modality %q", r.Modality).
			Component(componentName).
			Category(errors.CategoryValidation).
			Build()
	}
	if r.Modality.hasImage() && len(r.Image) == 0 {
		return errors.Newf("photo data is empty").
			Component(componentName).
			Category(errors.CategoryValidation).
			Context("modality", string(r.Modality)).
			Build()
	}
	if r.Modality.hasAudio() && len(r.Audio) == 0 {
		return errors.Newf("audio data is empty").
			Component(componentName).
			Category(errors.CategoryValidation).
			Context("modality", string(r.Modality)).
			Build()
	}
	return nil
}

// Config holds the model provider settings.
type Config struct {
	APIKey     string
	BaseURL    string // e.g. https://api.openai.com/v1
	PhotoModel string
	AudioModel string // used for audio and combined requests

	Timeout    time.Duration // bounds a whole Classify call, retries included
	MaxRetries int           // extra attempts after 429, 5xx and transport errors
	RetryDelay time.Duration // linear backoff step

	// HTTPClient is created from Timeout when nil
	HTTPClient *httpclient.Client
}

// Client calls the chat-completions endpoint. Safe for concurrent use.
type Client struct {
	cfg      Config
	http     *httpclient.Client
	endpoint string
}

// New creates a classifier client. A missing API key is not an error here;
// Classify reports it so the service can still start without a credential.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = httpclient.New(&httpclient.Config{DefaultTimeout: cfg.Timeout})
	}

	return &Client{
		cfg:      cfg,
		http:     cfg.HTTPClient,
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions",
	}
}

// Classify returns a trimmed, non-empty species label or Sentinel.
//
// Errors are EnhancedErrors: CategoryValidation for missing media,
// CategoryConfiguration when no API key is set and CategoryUpstream for
// non-2xx responses, malformed or empty completions and timeouts.
func (c *Client) Classify(ctx context.Context, req Request) (string, error) {
	if err := req.validate(); err != nil {
		return "", err
	}

	if c.cfg.APIKey == "" {
		return "", errors.Newf("inference API key is not configured").
			Component(componentName).
			Category(errors.CategoryConfiguration).
			Context("setting", "classifier.apikey").
			Context("env", "OPENAI_API_KEY").
			Build()
	}

	model := c.modelFor(req.Modality)
	payload, err := json.Marshal(buildChatRequest(model, &req))
	if err != nil {
		return "", errors.New(err).
			Component(componentName).
			Category(errors.CategoryGeneric).
			Context("operation", "encode_request").
			Build()
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	log := GetLogger().WithContext(ctx)
	start := time.Now()

	body, err := c.postWithRetry(ctx, payload, model)
	if err != nil {
		log.Warn("classification failed",
			logger.String("modality", string(req.Modality)),
			logger.String("model", model),
			logger.Duration("elapsed", time.Since(start)),
			logger.Error(err))
		return "", err
	}

	content, err := parseCompletion(body)
	if err != nil {
		return "", err
	}

	label, err := normalizeLabel(content)
	if err != nil {
		return "", err
	}

	log.Info("classification complete",
		logger.String("modality", string(req.Modality)),
		logger.String("model", model),
		logger.String("label", label),
		logger.Duration("elapsed", time.Since(start)))

	return label, nil
}

func (c *Client) modelFor(m Modality) string {
	if m == ModalityPhoto {
		return c.cfg.PhotoModel
	}
	return c.cfg.AudioModel
}

// postWithRetry retries transient failures with linear backoff until the
// attempts or ctx run out.
func (c *Client) postWithRetry(ctx context.Context, payload []byte, model string) ([]byte, error) {
	attempts := c.cfg.MaxRetries + 1
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		body, retryable, err := c.post(ctx, payload, model)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if !retryable || attempt == attempts-1 {
			break
		}

		delay := c.cfg.RetryDelay * time.Duration(attempt+1)
		GetLogger().Warn("inference request failed, retrying",
			logger.Int("attempt", attempt+1),
			logger.Int("max_attempts", attempts),
			logger.Duration("delay", delay),
			logger.Error(err))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, c.interruptedError(ctx.Err(), model, attempt+1)
		}
	}

	return nil, lastErr
}

// post performs one attempt and reports whether a failure is worth retrying.
func (c *Client) post(ctx context.Context, payload []byte, model string) (body []byte, retryable bool, err error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, false, errors.New(err).
			Component(componentName).
			Category(errors.CategoryConfiguration).
			Context("operation", "build_request").
			Build()
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(ctx, httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, c.interruptedError(ctx.Err(), model, 0)
		}
		return nil, true, errors.New(fmt.Errorf("inference request failed: %w", err)).
			Component(componentName).
			Category(errors.CategoryUpstream).
			Context("operation", "chat_completion").
			Context("model", model).
			Build()
	}

	body, err = httpclient.ReadBody(resp, maxResponseBytes)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, c.interruptedError(ctx.Err(), model, 0)
		}
		return nil, true, errors.New(err).
			Component(componentName).
			Category(errors.CategoryUpstream).
			Context("operation", "read_response").
			Context("status_code", resp.StatusCode).
			Build()
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt := logger.RedactSensitiveData(logger.Truncate(string(body), maxErrorBodyBytes))
		return nil, isTransientStatus(resp.StatusCode), errors.Newf("inference request returned status %d: %s", resp.StatusCode, excerpt).
			Component(componentName).
			Category(errors.CategoryUpstream).
			Context("operation", "chat_completion").
			Context("model", model).
			Context("status_code", resp.StatusCode).
			Context("response_body", excerpt).
			Build()
	}

	return body, false, nil
}

// interruptedError reports a timeout or cancellation as an upstream failure
// while keeping the context error reachable through errors.Is.
func (c *Client) interruptedError(ctxErr error, model string, attempts int) error {
	b := errors.New(fmt.Errorf("inference request did not complete within %s: %w", c.cfg.Timeout, ctxErr)).
		Component(componentName).
		Category(errors.CategoryUpstream).
		Context("operation", "chat_completion").
		Context("model", model).
		Context("timeout_seconds", c.cfg.Timeout.Seconds())
	if attempts > 0 {
		b = b.Context("attempts", attempts)
	}
	return b.Build()
}

func isTransientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// GetLogger returns the classifier module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module(componentName)
}
