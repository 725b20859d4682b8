package events

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event types published by the registry.
const (
	TypeStateChanged = "medication_state_changed"
	TypeLowSupply    = "medication_low_supply"
	TypeUpdated      = "medication_updated"
	TypeRemoved      = "medication_removed"
)

// Event is a single notification about a medication.
type Event struct {
	Type         string      `json:"type"`
	MedicationID string      `json:"medication_id"`
	Data         interface{} `json:"data,omitempty"`
	Time         time.Time   `json:"time"`
}

// Bus fans events out to subscribers. Publishing never blocks; a subscriber
// that falls behind loses events rather than stalling the registry.
type Bus struct {
	logger *zap.Logger

	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	closed bool
}

// NewBus creates an event bus.
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		logger: logger,
		subs:   make(map[int]chan Event),
	}
}

// Subscribe returns a buffered event channel and a cancel function. The
// channel is closed when cancel is called or the bus shuts down.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, 32)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers an event to all current subscribers.
func (b *Bus) Publish(evt Event) {
	if evt.Time.IsZero() {
		evt.Time = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			b.logger.Warn("Dropping event for slow subscriber",
				zap.String("type", evt.Type),
				zap.String("medication_id", evt.MedicationID))
		}
	}
}

// Close shuts the bus down and closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
