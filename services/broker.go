// services/broker.go
package services

import (
	"sync"

	"hydrapair-backend/models"

	"github.com/google/uuid"
)

type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
)

// ReminderEvent is a change notification for a single reminder row.
type ReminderEvent struct {
	Type     EventType
	Reminder models.WaterReminder
}

// Broker fans reminder change events out to live subscribers within this
// process. Delivery is best-effort: a subscriber whose buffer is full misses
// the event rather than blocking the writer. Consumers merge by reminder id,
// so at-least-once and unordered delivery are both tolerated.
type Broker struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]map[chan ReminderEvent]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[uuid.UUID]map[chan ReminderEvent]struct{})}
}

// Subscribe registers for events addressed to receiverID. The returned cancel
// releases the subscription and closes the channel; calling it twice is safe.
func (b *Broker) Subscribe(receiverID uuid.UUID) (<-chan ReminderEvent, func()) {
	ch := make(chan ReminderEvent, 16)

	b.mu.Lock()
	if b.subs[receiverID] == nil {
		b.subs[receiverID] = make(map[chan ReminderEvent]struct{})
	}
	b.subs[receiverID][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[receiverID], ch)
			if len(b.subs[receiverID]) == 0 {
				delete(b.subs, receiverID)
			}
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers an event to every live subscriber of the receiver.
func (b *Broker) Publish(receiverID uuid.UUID, event ReminderEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[receiverID] {
		select {
		case ch <- event:
		default:
		}
	}
}
