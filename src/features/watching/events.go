package watching

import (
	"log/slog"
	"sync"
	"time"

	"github.com/contre95/posxchange/src/exchange"
)

// EventType names one of the notifications emitted by the registry.
type EventType string

const (
	EventFileDetected   EventType = "fileDetected"
	EventFileProcessed  EventType = "fileProcessed"
	EventFileError      EventType = "fileError"
	EventWatcherStarted EventType = "watcherStarted"
	EventWatcherStopped EventType = "watcherStopped"
	EventPollCompleted  EventType = "pollCompleted"
)

// Event is delivered to subscribers. Only the fields relevant to Type are set.
type Event struct {
	Type       EventType
	StoreID    string
	Path       string
	Result     *exchange.ProcessingResult
	Err        error
	FilesFound int
	// Manual is set for results of manual and content imports.
	Manual bool
	At     time.Time
}

// EventHandler receives events synchronously on the publisher's goroutine.
type EventHandler func(Event)

// EventBus is a synchronous publish/subscribe registry keyed by event type.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[EventType][]EventHandler
	all      []EventHandler
	logger   *slog.Logger
}

// NewEventBus creates a new EventBus.
func NewEventBus(logger *slog.Logger) *EventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventBus{
		handlers: make(map[EventType][]EventHandler),
		logger:   logger,
	}
}

// Subscribe registers h for one event type.
func (b *EventBus) Subscribe(t EventType, h EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], h)
}

// SubscribeAll registers h for every event type.
func (b *EventBus) SubscribeAll(h EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, h)
}

// Publish delivers e to its subscribers in registration order.
// A panicking subscriber is logged and skipped.
func (b *EventBus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	b.mu.RLock()
	handlers := make([]EventHandler, 0, len(b.handlers[e.Type])+len(b.all))
	handlers = append(handlers, b.handlers[e.Type]...)
	handlers = append(handlers, b.all...)
	b.mu.RUnlock()

	for _, h := range handlers {
		b.deliver(h, e)
	}
}

func (b *EventBus) deliver(h EventHandler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("EventBus.Publish: subscriber panicked", "event", e.Type, "store_id", e.StoreID, "panic", r)
		}
	}()
	h(e)
}
