// Package events provides in-process pub/sub for attendance events.
package events

import (
	"sync"
	"time"
)

// Event types published by the attendance service.
const (
	TypeCheckedIn  = "attendance.checked_in"
	TypeCheckedOut = "attendance.checked_out"
	TypeStaleEntry = "attendance.stale_entry"
)

// AttendancePayload describes the slot an event happened on.
type AttendancePayload struct {
	EntryID     string    `json:"entry_id"`
	Hall        string    `json:"hall"`
	Role        string    `json:"role"`
	Date        string    `json:"date"`
	MemberNames []string  `json:"member_names"`
	At          time.Time `json:"at"`
	Minutes     int       `json:"minutes,omitempty"`
}

// Event is a lightweight domain event.
type Event struct {
	Type       string
	Attendance AttendancePayload
	CreatedAt  time.Time
}

// Handler reacts to an event.
type Handler func(event Event) error

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

// Publish notifies subscribers of the event type.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		_ = handler(event)
	}
}
