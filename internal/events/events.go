package events

import (
	"encoding/json"
	"sync"
	"time"

	"queueaway/internal/models"
)

const (
	EventCollectionChanged  = "collection_changed"
	EventAppointmentCreated = "appointment_created"
	EventAppointmentUpdated = "appointment_updated"
	EventAppointmentCancel  = "appointment_cancelled"
	EventAppointmentDeleted = "appointment_deleted"
	EventMessageSent        = "message_sent"
	EventAuthStateChanged   = "auth_state_changed"
	EventNotification       = "notification"
)

// Collections of the document store.
const (
	CollectionBusinesses   = "businesses"
	CollectionAppointments = "appointments"
	CollectionMessages     = "messages"
	CollectionChats        = "chats"
	CollectionUsers        = "users"
)

// CollectionChangePayload signals that a document in a collection was written.
type CollectionChangePayload struct {
	Collection string `json:"collection"`
	DocumentID string `json:"document_id"`
	Op         string `json:"op"` // create, update, delete
}

// AppointmentEventPayload describes the minimal appointment snapshot for event consumers.
type AppointmentEventPayload struct {
	AppointmentID string    `json:"appointment_id"`
	UserID        string    `json:"user_id"`
	BusinessID    string    `json:"business_id"`
	BusinessName  string    `json:"business_name"`
	Service       string    `json:"service"`
	Status        string    `json:"status"`
	Date          time.Time `json:"date"`
	QueuePosition int       `json:"queue_position,omitempty"`
	WaitMinutes   int       `json:"wait_minutes,omitempty"`
}

// MessageEventPayload is published after a chat message is stored.
type MessageEventPayload struct {
	ChatID     string `json:"chat_id"`
	MessageID  string `json:"message_id"`
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
}

// AuthStatePayload carries an identity change. An empty SessionID addresses every
// session of UID; a nil Identity means signed out.
type AuthStatePayload struct {
	SessionID string           `json:"session_id,omitempty"`
	UID       string           `json:"uid,omitempty"`
	Identity  *models.Identity `json:"identity"`
}

// Event represents a lightweight domain event.
type Event struct {
	ID        int64
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the JSON payload into v.
func (e *Event) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

type subscription struct {
	id      uint64
	handler EventHandler
}

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]subscription
	nextID      uint64
	seq         int64
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]subscription)}
}

// Subscribe registers a handler for a given event type and returns a func that removes it.
// The returned func is safe to call more than once.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subscribers[eventType] = append(b.subscribers[eventType], subscription{id: id, handler: handler})

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(eventType, id) })
	}
}

func (b *EventBus) unsubscribe(eventType string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subscribers[eventType]
	for i, s := range subs {
		if s.id == id {
			b.subscribers[eventType] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subscribers[eventType]) == 0 {
		delete(b.subscribers, eventType)
	}
}

// SubscriberCount returns the number of handlers registered for eventType.
func (b *EventBus) SubscriberCount(eventType string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[eventType])
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.Lock()
	b.seq++
	if event.ID == 0 {
		event.ID = b.seq
	}
	handlers := make([]EventHandler, 0, len(b.subscribers[event.Type]))
	for _, s := range b.subscribers[event.Type] {
		handlers = append(handlers, s.handler)
	}
	b.mu.Unlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}

// NewJSONEvent builds an Event with JSON payload for manual publishing.
func NewJSONEvent(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{Type: eventType, Payload: raw, CreatedAt: time.Now()}, nil
}
