package testutil

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/thiagovelsa/JudDesk-sub000/internal/event"
)

// RecordingBus is an event bus that also records everything published on
// it, for later inspection in tests.
type RecordingBus struct {
	*event.Bus

	mu     sync.Mutex
	events []event.Event
}

// NewRecordingBus returns a bus whose published events are recorded.
func NewRecordingBus() *RecordingBus {
	rb := &RecordingBus{Bus: event.NewBus(zap.NewNop())}
	rb.Bus.SubscribeAll(func(_ context.Context, e event.Event) {
		rb.mu.Lock()
		rb.events = append(rb.events, e)
		rb.mu.Unlock()
	})
	return rb
}

// Events returns a copy of all recorded events.
func (b *RecordingBus) Events() []event.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]event.Event, len(b.events))
	copy(out, b.events)
	return out
}

// Reset clears all recorded events.
func (b *RecordingBus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = nil
}
