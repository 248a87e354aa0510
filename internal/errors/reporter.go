package errors

import (
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"unicode"

	"github.com/getsentry/sentry-go"
)

// TelemetryReporter receives every EnhancedError built while it is installed
// and enabled.
type TelemetryReporter interface {
	ReportError(err *EnhancedError)
	IsEnabled() bool
}

var (
	activeReporter     atomic.Pointer[TelemetryReporter]
	hasActiveReporting atomic.Bool
)

// SetTelemetryReporter installs reporter. nil disables reporting.
func SetTelemetryReporter(reporter TelemetryReporter) {
	if reporter == nil {
		activeReporter.Store(nil)
		hasActiveReporting.Store(false)
		return
	}
	activeReporter.Store(&reporter)
	hasActiveReporting.Store(reporter.IsEnabled())
}

func GetTelemetryReporter() TelemetryReporter {
	if r := activeReporter.Load(); r != nil {
		return *r
	}
	return nil
}

func reportToTelemetry(ee *EnhancedError) {
	if r := GetTelemetryReporter(); r != nil && r.IsEnabled() {
		r.ReportError(ee)
	}
}

// PrivacyScrubber rewrites a message before it leaves the process.
type PrivacyScrubber func(string) string

var privacyScrubber atomic.Pointer[PrivacyScrubber]

// SetPrivacyScrubber replaces the built-in scrubbing. nil restores it.
func SetPrivacyScrubber(scrubber PrivacyScrubber) {
	if scrubber == nil {
		privacyScrubber.Store(nil)
		return
	}
	privacyScrubber.Store(&scrubber)
}

func scrub(message string) string {
	if s := privacyScrubber.Load(); s != nil {
		return (*s)(message)
	}
	return basicURLScrub(message)
}

var (
	urlQueryRegex   = regexp.MustCompile(`(https?://[^?\s]+)\?\S*`)
	queryParamRegex = regexp.MustCompile(`[?&]([^=\s]+)=([^&\s]+)`)
	secretRegexes   = []*regexp.Regexp{
		regexp.MustCompile(`api[_-]?key[=:]\S+`),
		regexp.MustCompile(`token[=:]\S+`),
		regexp.MustCompile(`auth[=:]\S+`),
		regexp.MustCompile(`key[=:][0-9a-fA-F]{8,}`),
		regexp.MustCompile(`sk-[A-Za-z0-9_-]{16,}`),
		regexp.MustCompile(`[0-9a-fA-F]{32,}`),
	}
)

// basicURLScrub drops query strings and anything shaped like a credential.
func basicURLScrub(message string) string {
	out := urlQueryRegex.ReplaceAllString(message, "$1?[REDACTED]")
	out = queryParamRegex.ReplaceAllString(out, "?[REDACTED]")
	for _, re := range secretRegexes {
		out = re.ReplaceAllString(out, "[API_KEY_REDACTED]")
	}
	return out
}

// SentryReporter sends errors to Sentry as scrubbed message events.
type SentryReporter struct {
	enabled bool
}

func NewSentryReporter(enabled bool) *SentryReporter {
	return &SentryReporter{enabled: enabled}
}

func (sr *SentryReporter) IsEnabled() bool { return sr.enabled }

func (sr *SentryReporter) ReportError(ee *EnhancedError) {
	if !sr.enabled || ee.IsReported() {
		return
	}

	context := ee.GetContext()
	title := generateErrorTitle(ee, context)
	message := scrub(fmt.Sprintf("[%s] %s", ee.Category, ee.GetMessage()))
	level := sentryLevel(ee.Category)

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(map[string]string{
			"error_title": title,
			"component":   ee.GetComponent(),
			"category":    string(ee.Category),
			"error_type":  fmt.Sprintf("%T", ee.Err),
		})
		for key, value := range context {
			if s, ok := value.(string); ok {
				value = scrub(s)
			}
			scope.SetContext(key, sentry.Context{"value": value})
		}
		scope.SetLevel(level)
		scope.SetFingerprint([]string{title, ee.GetComponent(), string(ee.Category)})

		event := sentry.NewEvent()
		event.Level = level
		event.Message = message
		event.Exception = []sentry.Exception{{Type: title, Value: message}}
		sentry.CaptureEvent(event)
	})

	ee.MarkReported()
}

var categoryTitles = map[ErrorCategory]string{
	CategoryValidation:     "Validation Error",
	CategoryNetwork:        "Network Error",
	CategoryDatabase:       "Database Error",
	CategoryConfiguration:  "Configuration Error",
	CategoryUpstream:       "Upstream Error",
	CategoryClassification: "Classification Error",
	CategoryEnrichment:     "Enrichment Error",
	CategoryRegistry:       "Registry Error",
}

// generateErrorTitle builds "Component Category Operation", for example
// "Classifier Upstream Error Chat Completion", so Sentry groups by cause.
func generateErrorTitle(ee *EnhancedError, context map[string]any) string {
	var parts []string
	if c := ee.GetComponent(); c != ComponentUnknown {
		parts = append(parts, upperFirst(c))
	}
	if title, ok := categoryTitles[ee.Category]; ok {
		parts = append(parts, title)
	} else if ee.Category != "" {
		parts = append(parts, string(ee.Category))
	}
	if op, _ := context["operation"].(string); op != "" {
		for word := range strings.FieldsSeq(strings.ReplaceAll(op, "_", " ")) {
			parts = append(parts, upperFirst(word))
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%T", ee.Err)
	}
	return strings.Join(parts, " ")
}

func upperFirst(s string) string {
	for i, r := range s {
		return string(unicode.ToUpper(r)) + s[i+len(string(r)):]
	}
	return s
}

// sentryLevel keeps transient and caller-caused failures below error level.
func sentryLevel(category ErrorCategory) sentry.Level {
	switch category {
	case CategoryNetwork, CategoryTimeout, CategoryUpstream, CategoryEnrichment:
		return sentry.LevelWarning
	case CategoryValidation, CategoryNotFound, CategoryConflict:
		return sentry.LevelInfo
	default:
		return sentry.LevelError
	}
}
