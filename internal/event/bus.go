// Package event provides the in-process publish/subscribe bus that decouples
// the store from the backup scheduler and any UI refresh listeners.
package event

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event is a message published on the bus.
type Event struct {
	Topic     string
	Source    string
	Timestamp time.Time
	Payload   any
}

// Handler processes a single event. Handlers must not retain the event's
// payload past their return if they run asynchronously.
type Handler func(ctx context.Context, e Event)

// Bus is a thread-safe topic-based event bus. A zero Bus is not usable;
// construct with NewBus.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[string]map[int]Handler // topic -> id -> handler
	all      map[int]Handler
	logger   *zap.Logger
}

// NewBus creates an event bus that logs handler panics through logger.
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		handlers: make(map[string]map[int]Handler),
		all:      make(map[int]Handler),
		logger:   logger,
	}
}

// Subscribe registers a handler for a single topic and returns an
// unsubscribe function.
func (b *Bus) Subscribe(topic string, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	if b.handlers[topic] == nil {
		b.handlers[topic] = make(map[int]Handler)
	}
	b.handlers[topic][id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers[topic], id)
	}
}

// SubscribeAll registers a handler for every topic and returns an
// unsubscribe function.
func (b *Bus) SubscribeAll(h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.all[id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.all, id)
	}
}

// Publish delivers the event synchronously to all matching handlers.
// Publishing with no subscribers is not an error.
func (b *Bus) Publish(ctx context.Context, e Event) error {
	for _, h := range b.snapshot(e.Topic) {
		b.invoke(ctx, h, e)
	}
	return nil
}

// PublishAsync delivers the event on a separate goroutine so the caller's
// return path is never blocked by subscribers.
func (b *Bus) PublishAsync(ctx context.Context, e Event) {
	handlers := b.snapshot(e.Topic)
	go func() {
		for _, h := range handlers {
			b.invoke(ctx, h, e)
		}
	}()
}

// snapshot copies the matching handler set so delivery happens outside the
// lock and unsubscription during delivery is safe.
func (b *Bus) snapshot(topic string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Handler, 0, len(b.handlers[topic])+len(b.all))
	for _, h := range b.handlers[topic] {
		out = append(out, h)
	}
	for _, h := range b.all {
		out = append(out, h)
	}
	return out
}

func (b *Bus) invoke(ctx context.Context, h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.String("topic", e.Topic),
				zap.Any("panic", r))
		}
	}()
	h(ctx, e)
}
