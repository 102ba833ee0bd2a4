// Package events provides in-process pub/sub for domain events raised by
// the hospital services.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event types raised by the services.
const (
	TypeAppointmentScheduled   = "appointment.scheduled"
	TypeAppointmentRescheduled = "appointment.rescheduled"
	TypeAppointmentCancelled   = "appointment.cancelled"
	TypeAppointmentCompleted   = "appointment.completed"
	TypeAvailabilityPublished  = "availability.published"
	TypeBillSettled            = "bill.settled"
	TypeReplenishmentRequested = "replenishment.requested"
)

// Event represents a lightweight domain event.
type Event struct {
	ID        string
	Type      string
	Payload   map[string]string
	CreatedAt time.Time
}

// Handler reacts to an event.
type Handler func(event Event)

// Bus provides in-process pub/sub for events.
type Bus struct {
	subscribers map[string][]Handler
	mu          sync.RWMutex
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[string][]Handler)}
}

// Subscribe registers a handler for a given event type.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type. Handlers run
// synchronously; the caller decides the concurrency model.
func (b *Bus) Publish(eventType string, payload map[string]string) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[eventType]...)
	b.mu.RUnlock()

	event := Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
	for _, handler := range handlers {
		handler(event)
	}
}
