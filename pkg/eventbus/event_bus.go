// Package eventbus publishes workflow lifecycle events and dispatches them to handlers.
package eventbus

import (
	"context"

	"github.com/dukex/flowdeck/pkg/events"
)

type Event interface {
	GetType() events.EventType
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}

// Noop discards every event. It stands in when no bus is configured.
type Noop struct{}

func (Noop) Publish(context.Context, string, Event) error { return nil }

func (Noop) Handle(events.EventType, EventHandler) error { return nil }

func (Noop) Subscribe(context.Context) error { return nil }

func (Noop) Close() error { return nil }

func (Noop) GenerateID() string { return "" }
