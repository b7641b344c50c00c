package event_test

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/thiagovelsa/JudDesk-sub000/internal/event"
	"github.com/thiagovelsa/JudDesk-sub000/internal/store"
)

// The scheduler's whole trigger path is a store.Change payload arriving on
// the store.TopicChanged topic; verify it round-trips through a subscription
// intact.
func TestSubscribe_DeliversStoreChangePayload(t *testing.T) {
	bus := event.NewBus(zap.NewNop())

	var got event.Event
	unsub := bus.Subscribe(store.TopicChanged, func(_ context.Context, e event.Event) {
		got = e
	})
	defer unsub()

	stamp := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	bus.Publish(context.Background(), event.Event{
		Topic:     store.TopicChanged,
		Source:    "store",
		Timestamp: stamp,
		Payload:   store.Change{Op: store.OpDelete, Timestamp: stamp},
	})

	if got.Topic != store.TopicChanged {
		t.Fatalf("Topic = %q, want %q", got.Topic, store.TopicChanged)
	}
	change, ok := got.Payload.(store.Change)
	if !ok {
		t.Fatalf("Payload type = %T, want store.Change", got.Payload)
	}
	if change.Op != store.OpDelete {
		t.Errorf("Op = %q, want %q", change.Op, store.OpDelete)
	}
	if !change.Timestamp.Equal(stamp) {
		t.Errorf("Timestamp = %v, want %v", change.Timestamp, stamp)
	}

	// Other topics must not reach a TopicChanged subscriber.
	before := got
	bus.Publish(context.Background(), event.Event{Topic: "ui.refresh"})
	if got != before {
		t.Error("subscriber received an event from an unrelated topic")
	}
}
