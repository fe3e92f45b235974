package services

import (
	"context"
	"sync"
	"time"

	"github.com/amirphl/vetverify/models"
	"github.com/google/uuid"
)

// NotificationEvent is the payload pushed to live subscribers
type NotificationEvent struct {
	ID        uint                    `json:"id"`
	Type      models.NotificationType `json:"type"`
	Message   string                  `json:"message"`
	Link      *string                 `json:"link,omitempty"`
	IsRead    bool                    `json:"is_read"`
	CreatedAt time.Time               `json:"created_at"`
}

// EventFromNotification converts a stored notification to an event
func EventFromNotification(n *models.Notification) NotificationEvent {
	return NotificationEvent{
		ID:        n.ID,
		Type:      n.Type,
		Message:   n.Message,
		Link:      n.Link,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}

const defaultSubscriberBuffer = 16

// NotificationEmitter fans notification events out to in-process subscribers.
// A subscriber that does not keep up loses events; it never blocks the sender.
type NotificationEmitter struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]map[uint64]chan NotificationEvent
	next   uint64
	buffer int
}

// NewNotificationEmitter creates an emitter with the given per subscriber buffer
func NewNotificationEmitter(buffer int) *NotificationEmitter {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	return &NotificationEmitter{
		subs:   make(map[uuid.UUID]map[uint64]chan NotificationEvent),
		buffer: buffer,
	}
}

// Subscribe registers an observer for one account. The returned func unsubscribes
// and closes the channel; calling it more than once is safe.
func (e *NotificationEmitter) Subscribe(accountUUID uuid.UUID) (<-chan NotificationEvent, func()) {
	ch := make(chan NotificationEvent, e.buffer)

	e.mu.Lock()
	id := e.next
	e.next++
	if e.subs[accountUUID] == nil {
		e.subs[accountUUID] = make(map[uint64]chan NotificationEvent)
	}
	e.subs[accountUUID][id] = ch
	e.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			if set, ok := e.subs[accountUUID]; ok {
				delete(set, id)
				if len(set) == 0 {
					delete(e.subs, accountUUID)
				}
			}
			close(ch)
		})
	}
}

// Broadcast delivers ev to every current subscriber of the account
func (e *NotificationEmitter) Broadcast(_ context.Context, accountUUID uuid.UUID, ev NotificationEvent) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, ch := range e.subs[accountUUID] {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

// SubscriberCount returns the number of live subscribers of an account
func (e *NotificationEmitter) SubscriberCount(accountUUID uuid.UUID) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.subs[accountUUID])
}
