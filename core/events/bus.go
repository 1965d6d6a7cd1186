// Package events carries record change notifications.
// Viewsets publish an Event after each committed write; subscribers and
// external publishers receive them through the Bus.
package events

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event describes one committed change.
type Event struct {
	// ID uniquely identifies the event.
	ID string `json:"id"`

	// Name is "<model>.<created|updated|deleted>".
	Name string `json:"name"`

	// Model is the changed model.
	Model string `json:"model"`

	// Action is the viewset action that caused the change.
	Action string `json:"action"`

	// Key is the primary key of the changed record.
	Key any `json:"key"`

	// Data is the serialized record. Empty for deletions.
	Data map[string]any `json:"data,omitempty"`

	// Time is when the change was committed.
	Time time.Time `json:"time"`
}

// New builds the event for action on a record of modelName.
func New(modelName, action string, key any, data map[string]any) Event {
	return Event{
		ID:     uuid.NewString(),
		Name:   modelName + "." + pastTense(action),
		Model:  modelName,
		Action: action,
		Key:    key,
		Data:   data,
		Time:   time.Now().UTC(),
	}
}

func pastTense(action string) string {
	switch action {
	case "create":
		return "created"
	case "update", "partial_update":
		return "updated"
	case "destroy":
		return "deleted"
	}
	return action
}

// Publisher delivers events somewhere.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Handler processes an event.
type Handler func(ctx context.Context, event Event) error

// Bus is an in-process publish/subscribe bus.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   zerolog.Logger
}

// NewBus creates an empty bus.
func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

// Subscribe registers handler for pattern:
//   - "author.created" - exact match
//   - "author.*" - every author event
//   - "*" - every event
func (b *Bus) Subscribe(pattern string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[pattern] = append(b.handlers[pattern], handler)
}

// Forward sends every event matching pattern to p.
func (b *Bus) Forward(pattern string, p Publisher) {
	b.Subscribe(pattern, p.Publish)
}

// Publish calls every matching handler in registration order: exact
// subscribers first, then model wildcards, then global ones. Handler
// errors are logged and do not stop delivery.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	matched := b.match(event.Name)

	b.logger.Debug().
		Str("event", event.Name).
		Str("model", event.Model).
		Int("handlers", len(matched)).
		Msg("event published")

	for _, handler := range matched {
		if err := handler(ctx, event); err != nil {
			b.logger.Error().
				Err(err).
				Str("event", event.Name).
				Msg("event handler error")
		}
	}
	return nil
}

// HasSubscribers reports whether any handler would receive name.
func (b *Bus) HasSubscribers(name string) bool {
	return len(b.match(name)) > 0
}

func (b *Bus) match(name string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var matched []Handler
	matched = append(matched, b.handlers[name]...)
	if prefix, _, ok := strings.Cut(name, "."); ok {
		matched = append(matched, b.handlers[prefix+".*"]...)
	}
	if name != "*" {
		matched = append(matched, b.handlers["*"]...)
	}
	return matched
}

// Nop discards events.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Event) error { return nil }
