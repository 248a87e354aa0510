package errors

import (
	"fmt"
	"strings"
	"time"
)

// ErrorBuilder collects metadata for Build.
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	priority  string
	context   map[string]any
}

func New(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

func (eb *ErrorBuilder) Component(component string) *ErrorBuilder {
	eb.component = component
	return eb
}

func (eb *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	eb.category = category
	return eb
}

// Priority accepts the Priority constants. Any other non-empty value is
// stored as PriorityMedium.
func (eb *ErrorBuilder) Priority(priority string) *ErrorBuilder {
	switch priority {
	case "":
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		eb.priority = priority
	default:
		eb.priority = PriorityMedium
	}
	return eb
}

func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.context == nil {
		eb.context = map[string]any{}
	}
	eb.context[key] = value
	return eb
}

// Timing records the operation name and how long it ran.
func (eb *ErrorBuilder) Timing(operation string, d time.Duration) *ErrorBuilder {
	return eb.Context("operation", operation).Context("duration_ms", d.Milliseconds())
}

// NetworkContext records the kind of endpoint and the timeout. The URL itself
// is never stored.
func (eb *ErrorBuilder) NetworkContext(url string, timeout time.Duration) *ErrorBuilder {
	if url != "" {
		kind := "other-protocol"
		switch lower := strings.ToLower(url); {
		case strings.HasPrefix(lower, "https://"):
			kind = "https-endpoint"
		case strings.HasPrefix(lower, "http://"):
			kind = "http-endpoint"
		}
		eb.Context("url_category", kind)
	}
	if timeout > 0 {
		eb.Context("timeout_seconds", timeout.Seconds())
	}
	return eb
}

// Build creates the error. With an active reporter it also fills in the
// component and category from the call stack and message, then reports it.
func (eb *ErrorBuilder) Build() *EnhancedError {
	reporting := hasActiveReporting.Load()

	component := eb.component
	if component == "" && reporting {
		component = detectComponent()
	}
	category := eb.category
	if category == "" {
		category = CategoryGeneric
		if reporting {
			category = detectCategory(eb.err, component)
		}
	}

	ee := &EnhancedError{
		Err:       eb.err,
		Category:  category,
		Priority:  eb.priority,
		Context:   eb.context,
		Timestamp: time.Now(),
		component: component,
	}
	if reporting {
		reportToTelemetry(ee)
	}
	return ee
}

// NetworkError builds a network error for a request to url.
func NetworkError(err error, url string, timeout time.Duration) *EnhancedError {
	return New(err).Category(CategoryNetwork).NetworkContext(url, timeout).Build()
}
