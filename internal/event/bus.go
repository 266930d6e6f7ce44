// Package event provides the in-process publish/subscribe bus through which
// status transitions reach external consumers such as alert delivery.
package event

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Topics published by the core loops.
const (
	TopicStatusChanged = "watchdog.status_changed"
)

// Event is a single notification delivered to subscribers.
type Event struct {
	ID        string
	Topic     string
	Source    string
	Timestamp time.Time
	Payload   any
}

// Handler processes one event. Handlers must not retain the event's payload
// past the call.
type Handler func(ctx context.Context, e Event)

// Bus is a topic-keyed in-process event bus. Handlers run synchronously on
// Publish and on a goroutine on PublishAsync; a panicking handler is
// recovered and logged so it cannot take down the publishing loop.
type Bus struct {
	logger *zap.Logger

	mu       sync.RWMutex
	nextID   int
	handlers map[string]map[int]Handler
	all      map[int]Handler
}

// NewBus creates an empty Bus.
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		logger:   logger,
		handlers: make(map[string]map[int]Handler),
		all:      make(map[int]Handler),
	}
}

// Publish delivers the event to topic and wildcard subscribers in order.
// The event's ID and Timestamp are filled in if unset.
func (b *Bus) Publish(ctx context.Context, e Event) error {
	b.deliver(ctx, b.stamp(e))
	return nil
}

// PublishAsync delivers the event on a separate goroutine.
func (b *Bus) PublishAsync(ctx context.Context, e Event) {
	e = b.stamp(e)
	go b.deliver(ctx, e)
}

// Subscribe registers a handler for one topic and returns an unsubscribe
// function.
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

func (b *Bus) stamp(e Event) Event {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	return e
}

func (b *Bus) deliver(ctx context.Context, e Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers[e.Topic])+len(b.all))
	for _, h := range b.handlers[e.Topic] {
		handlers = append(handlers, h)
	}
	for _, h := range b.all {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.call(ctx, h, e)
	}
}

func (b *Bus) call(ctx context.Context, h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.String("topic", e.Topic),
				zap.Any("panic", r),
			)
		}
	}()
	h(ctx, e)
}
