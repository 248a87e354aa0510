package identify

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/vasu-ramanujam/teriyaki-chasers/internal/classifier"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/wikipedia"
)

type mockClassifier struct {
	mock.Mock
}

func (m *mockClassifier) Classify(ctx context.Context, req classifier.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) Resolve(ctx context.Context, name string) (wikipedia.Enrichment, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(wikipedia.Enrichment), args.Error(1)
}

type mockRegistrar struct {
	mock.Mock
}

func (m *mockRegistrar) GetOrCreate(ctx context.Context, label string, e *wikipedia.Enrichment) (*uint, error) {
	args := m.Called(ctx, label, e)
	id, _ := args.Get(0).(*uint)
	return id, args.Error(1)
}

// recordingRecorder counts operations by "operation/status".
type recordingRecorder struct {
	ops    map[string]int
	errors map[string]int
}

func newRecordingRecorder() *recordingRecorder {
	return &recordingRecorder{ops: map[string]int{}, errors: map[string]int{}}
}

func (r *recordingRecorder) RecordOperation(operation, status string) {
	r.ops[operation+"/"+status]++
}

func (r *recordingRecorder) RecordDuration(string, float64) {}

func (r *recordingRecorder) RecordError(operation, errorType string) {
	r.errors[operation+"/"+errorType]++
}
