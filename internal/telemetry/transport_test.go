package telemetry

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
)

// recordingTransport is a sentry.Transport that stores events instead of
// sending them.
type recordingTransport struct {
	mu     sync.Mutex
	events []*sentry.Event
}

//nolint:gocritic // hugeParam: sentry.Transport signature
func (r *recordingTransport) Configure(sentry.ClientOptions) {}

func (r *recordingTransport) SendEvent(event *sentry.Event) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

func (r *recordingTransport) Flush(time.Duration) bool { return true }

func (r *recordingTransport) FlushWithContext(ctx context.Context) bool { return ctx.Err() == nil }

func (r *recordingTransport) Close() {}

func (r *recordingTransport) captured() []*sentry.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}
