// Package animals validates user-entered animal names and suggests close
// matches from a known list.
package animals

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/text/cases"

	"github.com/vasu-ramanujam/teriyaki-chasers/internal/errors"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/httpclient"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/logger"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/observability/metrics"
)

const (
	componentName = "animals"

	defaultModel    = "gpt-4o-mini"
	defaultTimeout  = 30 * time.Second
	defaultCacheTTL = 24 * time.Hour
	maxNameLength   = 200
)

const validationPrompt = `You are validating an English animal name.

Name: %s

Answer with EXACTLY one word:
- 'YES' if this is the English common name of a real animal species (including birds, mammals, reptiles, amphibians, fish, insects, etc.).
- 'NO' if it is not an animal, is a person, place, object, fictional character, or otherwise not a real animal species name.

Only respond with 'YES' or 'NO'. No other text.`

// ValidatorConfig configures the name validator.
type ValidatorConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
	CacheTTL time.Duration // 0 uses the default; negative disables caching

	HTTPClient *httpclient.Client
	Recorder   metrics.Recorder
}

// Validator asks a text model whether a name is a real animal's common name.
// Verdicts are cached by case-folded name.
type Validator struct {
	cfg      ValidatorConfig
	client   *openai.Client
	verdicts *cache.Cache
	recorder metrics.Recorder
}

// httpDoer routes SDK requests through the shared client so they carry the
// service User-Agent and default timeout.
type httpDoer struct {
	client *httpclient.Client
}

func (d httpDoer) Do(req *http.Request) (*http.Response, error) {
	return d.client.Do(req.Context(), req)
}

// NewValidator creates a Validator, filling unset fields with defaults.
func NewValidator(cfg ValidatorConfig) *Validator {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = httpclient.New(&httpclient.Config{DefaultTimeout: cfg.Timeout})
	}
	if cfg.Recorder == nil {
		cfg.Recorder = metrics.NopRecorder{}
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	clientConfig.HTTPClient = httpDoer{client: cfg.HTTPClient}

	v := &Validator{
		cfg:      cfg,
		client:   openai.NewClientWithConfig(clientConfig),
		recorder: cfg.Recorder,
	}
	if cfg.CacheTTL > 0 {
		v.verdicts = cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}
	return v
}

// Validate reports whether name is the English common name of a real animal.
// A missing API key yields a configuration error; provider failures yield an
// upstream error.
func (v *Validator) Validate(ctx context.Context, name string) (bool, error) {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return false, validationError("name is required")
	}
	if len(name) > maxNameLength {
		return false, validationError(fmt.Sprintf("name exceeds %d bytes", maxNameLength))
	}
	if v.cfg.APIKey == "" {
		return false, errors.Newf("missing OPENAI_API_KEY for animal name validation").
			Component(componentName).
			Category(errors.CategoryConfiguration).
			Context("operation", "validate_name").
			Build()
	}

	key := cases.Fold().String(name)
	if v.verdicts != nil {
		if cached, ok := v.verdicts.Get(key); ok {
			v.recorder.RecordOperation(metrics.OpValidate, metrics.StatusHit)
			return cached.(bool), nil
		}
	}

	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, v.cfg.Timeout)
	defer cancel()

	resp, err := v.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: v.cfg.Model,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: fmt.Sprintf(validationPrompt, name),
		}},
		// The SDK drops a zero temperature; this is the documented way to send 0
		Temperature: math.SmallestNonzeroFloat32,
	})
	v.recorder.RecordDuration(metrics.OpValidate, time.Since(start).Seconds())
	if err != nil {
		err = v.providerError(err)
		v.recorder.RecordError(metrics.OpValidate, string(errors.CategoryUpstream))
		return false, err
	}
	if len(resp.Choices) == 0 {
		v.recorder.RecordError(metrics.OpValidate, string(errors.CategoryUpstream))
		return false, errors.Newf("animal name validation returned no choices").
			Component(componentName).
			Category(errors.CategoryUpstream).
			Context("operation", "validate_name").
			Build()
	}

	valid := isYes(resp.Choices[0].Message.Content)
	if v.verdicts != nil {
		v.verdicts.SetDefault(key, valid)
	}
	v.recorder.RecordOperation(metrics.OpValidate, metrics.StatusSuccess)

	GetLogger().Debug("validated animal name",
		logger.String("name", name),
		logger.Bool("is_valid", valid),
		logger.Duration("elapsed", time.Since(start)))
	return valid, nil
}

// isYes accepts "YES" in any case, ignoring surrounding quotes and a trailing period.
func isYes(answer string) bool {
	answer = strings.Trim(strings.TrimSpace(answer), `"'.`)
	return strings.EqualFold(answer, "YES")
}

func (v *Validator) providerError(err error) error {
	builder := errors.New(fmt.Errorf("animal name validation failed: %w", err)).
		Component(componentName).
		Category(errors.CategoryUpstream).
		Context("operation", "validate_name").
		Context("model", v.cfg.Model)

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		builder = builder.
			Context("status_code", apiErr.HTTPStatusCode).
			Context("api_error", logger.Truncate(logger.RedactSensitiveData(apiErr.Message), 512))
	case errors.As(err, &reqErr):
		builder = builder.Context("status_code", reqErr.HTTPStatusCode)
	}
	return builder.Build()
}

func validationError(msg string) error {
	return errors.Newf("%s", msg).
		Component(componentName).
		Category(errors.CategoryValidation).
		Context("field", "name").
		Build()
}

// GetLogger returns the animals module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module(componentName)
}
