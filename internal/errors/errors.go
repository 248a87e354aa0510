// Package errors wraps failures with a component, a category, a priority and
// free-form context, and hands them to an optional telemetry reporter.
//
//	return errors.New(err).
//		Component("wikipedia").
//		Category(errors.CategoryUpstream).
//		Context("title", title).
//		Build()
//
// The standard library functions are re-exported so callers import only
// this package.
package errors

import (
	stderrors "errors"
	"maps"
	"sync"
	"time"
)

// ErrorCategory groups errors for reporting and for mapping to HTTP status.
type ErrorCategory string

const (
	CategoryGeneric       ErrorCategory = "generic"
	CategoryValidation    ErrorCategory = "validation"
	CategoryNotFound      ErrorCategory = "not-found"
	CategoryConflict      ErrorCategory = "conflict"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryNetwork       ErrorCategory = "network"
	CategoryTimeout       ErrorCategory = "timeout"
	CategoryCancellation  ErrorCategory = "cancellation"
	CategoryHTTP          ErrorCategory = "http-request"
	CategoryDatabase      ErrorCategory = "database"
	CategoryFileIO        ErrorCategory = "file-io"

	// CategoryUpstream marks an external service answer the pipeline cannot use.
	CategoryUpstream       ErrorCategory = "upstream"
	CategoryClassification ErrorCategory = "classification"
	CategoryEnrichment     ErrorCategory = "enrichment"
	CategoryRegistry       ErrorCategory = "species-registry"
)

const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// ComponentUnknown is reported when no component was set or detected.
const ComponentUnknown = "unknown"

// EnhancedError is an error plus reporting metadata. Build returns it.
type EnhancedError struct {
	Err       error
	Category  ErrorCategory
	Priority  string
	Context   map[string]any
	Timestamp time.Time

	component string
	mu        sync.RWMutex
	reported  bool
}

func (ee *EnhancedError) Error() string { return ee.Err.Error() }

func (ee *EnhancedError) Unwrap() error { return ee.Err }

// Is matches another EnhancedError by category, and anything else through
// the wrapped error.
func (ee *EnhancedError) Is(target error) bool {
	if other, ok := target.(*EnhancedError); ok {
		return ee.Category == other.Category
	}
	return stderrors.Is(ee.Err, target)
}

func (ee *EnhancedError) GetComponent() string {
	if ee.component == "" {
		return ComponentUnknown
	}
	return ee.component
}

func (ee *EnhancedError) GetPriority() string { return ee.Priority }

func (ee *EnhancedError) GetTimestamp() time.Time { return ee.Timestamp }

// GetContext returns a copy; callers may modify it.
func (ee *EnhancedError) GetContext() map[string]any {
	ee.mu.RLock()
	defer ee.mu.RUnlock()
	if ee.Context == nil {
		return nil
	}
	return maps.Clone(ee.Context)
}

func (ee *EnhancedError) GetMessage() string {
	if ee.Err == nil {
		return ""
	}
	return ee.Err.Error()
}

// MarkReported records that a reporter has sent the error.
func (ee *EnhancedError) MarkReported() {
	ee.mu.Lock()
	ee.reported = true
	ee.mu.Unlock()
}

func (ee *EnhancedError) IsReported() bool {
	ee.mu.RLock()
	defer ee.mu.RUnlock()
	return ee.reported
}

// ValidationError is a caller input error with message as its text.
func ValidationError(message string) *EnhancedError {
	return New(stderrors.New(message)).Category(CategoryValidation).Build()
}

// IsCategory reports whether err wraps an EnhancedError of the category.
func IsCategory(err error, category ErrorCategory) bool {
	var ee *EnhancedError
	return stderrors.As(err, &ee) && ee.Category == category
}

func IsNotFound(err error) bool      { return IsCategory(err, CategoryNotFound) }
func IsConfiguration(err error) bool { return IsCategory(err, CategoryConfiguration) }
func IsUpstream(err error) bool      { return IsCategory(err, CategoryUpstream) }
func IsValidation(err error) bool    { return IsCategory(err, CategoryValidation) }

// NewStd is the standard library errors.New.
func NewStd(text string) error { return stderrors.New(text) }

func Is(err, target error) bool     { return stderrors.Is(err, target) }
func As(err error, target any) bool { return stderrors.As(err, target) }
func Unwrap(err error) error        { return stderrors.Unwrap(err) }
func Join(errs ...error) error      { return stderrors.Join(errs...) }
