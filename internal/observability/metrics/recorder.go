// Package metrics provides the Prometheus collectors for the wildlife service.
package metrics

// Recorder defines a minimal interface for recording metrics.
// Components depend on it rather than on concrete collectors.
type Recorder interface {
	// RecordOperation records an operation with its status, e.g.
	// ("identify", "success").
	RecordOperation(operation, status string)

	// RecordDuration records the duration of an operation in seconds.
	RecordDuration(operation string, seconds float64)

	// RecordError records an error occurrence with its type.
	// errorType is usually the error category.
	RecordError(operation, errorType string)
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) RecordOperation(string, string) {}
func (NopRecorder) RecordDuration(string, float64) {}
func (NopRecorder) RecordError(string, string) {}
