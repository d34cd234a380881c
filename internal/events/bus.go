// Package events is a small in-process publish/subscribe bus. The server
// forwards published events to websocket clients.
package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EventType names an event.
type EventType string

const (
	LedgerChanged       EventType = "LEDGER_CHANGED"
	MarketDataRefreshed EventType = "MARKET_DATA_REFRESHED"
	StaleDataUsed       EventType = "STALE_DATA_USED"
	AnalysisCompleted   EventType = "ANALYSIS_COMPLETED"
)

// AllTypes lists every event type the bus carries.
var AllTypes = []EventType{LedgerChanged, MarketDataRefreshed, StaleDataUsed, AnalysisCompleted}

// Event is a published message.
type Event struct {
	Type      EventType `json:"type"`
	Module    string    `json:"module"`
	Timestamp time.Time `json:"timestamp"`
	Data      EventData `json:"data"`
}

// Handler receives events. Handlers run synchronously on the publisher's
// goroutine and must not block.
type Handler func(*Event)

// Publisher is the narrow interface modules depend on.
type Publisher interface {
	Emit(module string, data EventData)
}

type subscription struct {
	id      uint64
	handler Handler
}

// Bus dispatches events to subscribers.
type Bus struct {
	mu     sync.RWMutex
	subs   map[EventType][]subscription
	nextID uint64
	log    zerolog.Logger
}

// NewBus creates an event bus
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		subs: make(map[EventType][]subscription),
		log:  log.With().Str("component", "event_bus").Logger(),
	}
}

// Subscribe registers handler for eventType and returns a function that
// removes the subscription.
func (b *Bus) Subscribe(eventType EventType, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs[eventType] = append(b.subs[eventType], subscription{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		list := b.subs[eventType]
		for i, s := range list {
			if s.id == id {
				b.subs[eventType] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// Emit publishes data stamped with the current time.
func (b *Bus) Emit(module string, data EventData) {
	b.Publish(&Event{
		Type:      data.EventType(),
		Module:    module,
		Timestamp: time.Now(),
		Data:      data,
	})
}

// Publish delivers event to every subscriber of its type.
func (b *Bus) Publish(event *Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[event.Type]))
	for _, s := range b.subs[event.Type] {
		handlers = append(handlers, s.handler)
	}
	b.mu.RUnlock()

	b.log.Debug().
		Str("event_type", string(event.Type)).
		Int("subscribers", len(handlers)).
		Msg("Publishing event")

	for _, h := range handlers {
		h(event)
	}
}

// NopPublisher discards events.
type NopPublisher struct{}

// Emit implements Publisher.
func (NopPublisher) Emit(string, EventData) {}
