package events

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypePredictionClosed   EventType = "prediction_closed"
	EventTypePredictionResolved EventType = "prediction_resolved"
	EventTypePredictionUndone   EventType = "prediction_undone"
	EventTypePointsAwarded      EventType = "points_awarded"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// PredictionClosedEvent represents a prediction whose voting was closed.
// Only the caller that won the close race emits this event, so each
// prediction produces it at most once per closure.
type PredictionClosedEvent struct {
	PredictionID int64
	GuildID      int64
	ChannelID    int64
	MessageID    *int64
	Title        string
	AutoClosed   bool
}

func (e PredictionClosedEvent) Type() EventType {
	return EventTypePredictionClosed
}

// PredictionResolvedEvent represents a prediction that was resolved
type PredictionResolvedEvent struct {
	PredictionID int64
	GuildID      int64
	ChannelID    int64
	MessageID    *int64
	Title        string
	WinnerLabel  string
	TotalVotes   int
	CorrectCount int
}

func (e PredictionResolvedEvent) Type() EventType {
	return EventTypePredictionResolved
}

// PredictionUndoneEvent represents a resolution that was reverted
type PredictionUndoneEvent struct {
	PredictionID  int64
	GuildID       int64
	Title         string
	AffectedUsers int
	TotalAbsDelta int64
}

func (e PredictionUndoneEvent) Type() EventType {
	return EventTypePredictionUndone
}

// PointsAwardedEvent represents points granted to a single user by a
// resolution
type PointsAwardedEvent struct {
	GuildID      int64
	UserID       int64
	PredictionID int64
	Delta        int64
}

func (e PointsAwardedEvent) Type() EventType {
	return EventTypePointsAwarded
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	// Call handlers asynchronously to avoid blocking
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// TransactionalBus holds pending events coupled to a unit of work and
// flushes them to the underlying bus only after the transaction commits.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush emits all pending events. Called after a successful commit.
func (b *TransactionalBus) Flush(ctx context.Context) {
	// Events outlive the transaction; emit on a fresh context so a
	// cancelled request does not suppress committed notifications.
	eventCtx := context.Background()

	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
}

// Discard drops all pending events. Called after a rollback.
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
