package events

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"queueaway/internal/config"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// ForwardedEvents are the event types mirrored to Kafka.
var ForwardedEvents = []string{
	EventCollectionChanged,
	EventAppointmentCreated,
	EventAppointmentUpdated,
	EventAppointmentCancel,
	EventAppointmentDeleted,
	EventMessageSent,
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaForwarder mirrors bus events to a Kafka topic.
type KafkaForwarder struct {
	writer messageWriter
	topic  string
	queue  chan kafka.Message
	logger *zerolog.Logger

	mu     sync.Mutex
	unsubs []func()
}

// NewKafkaForwarder returns nil when no brokers are configured.
func NewKafkaForwarder(cfg config.KafkaConfig, logger *zerolog.Logger) *KafkaForwarder {
	brokers := SplitBrokers(cfg.Brokers)
	if len(brokers) == 0 {
		logger.Warn().Msg("kafka forwarder disabled (no kafka brokers configured)")
		return nil
	}

	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    cfg.Topic,
		Balancer: &kafka.Hash{},
	}
	return newKafkaForwarder(writer, cfg.Topic, logger)
}

func newKafkaForwarder(w messageWriter, topic string, logger *zerolog.Logger) *KafkaForwarder {
	return &KafkaForwarder{
		writer: w,
		topic:  topic,
		queue:  make(chan kafka.Message, 1024),
		logger: logger,
	}
}

// Attach subscribes the forwarder to every forwarded event type on bus.
func (f *KafkaForwarder) Attach(bus *EventBus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, eventType := range ForwardedEvents {
		f.unsubs = append(f.unsubs, bus.Subscribe(eventType, f.handle))
	}
}

func (f *KafkaForwarder) handle(event *Event) error {
	msg := kafka.Message{
		Key:   []byte(eventKey(event)),
		Value: event.Payload,
		Time:  event.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(strconv.FormatInt(event.ID, 10))},
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	select {
	case f.queue <- msg:
	default:
		f.logger.Warn().Str("event_type", event.Type).Msg("kafka forward queue full, dropping event")
	}
	return nil
}

// Run writes queued events until ctx is cancelled, then closes the writer.
func (f *KafkaForwarder) Run(ctx context.Context) {
	defer func() {
		f.mu.Lock()
		for _, unsub := range f.unsubs {
			unsub()
		}
		f.unsubs = nil
		f.mu.Unlock()
		if err := f.writer.Close(); err != nil {
			f.logger.Error().Err(err).Msg("close kafka writer")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-f.queue:
			if err := f.writer.WriteMessages(ctx, msg); err != nil {
				f.logger.Error().Err(err).Str("topic", f.topic).Msg("kafka publish failed")
			}
		}
	}
}

// eventKey keeps events about the same document on one partition.
func eventKey(event *Event) string {
	var ref struct {
		DocumentID    string `json:"document_id"`
		AppointmentID string `json:"appointment_id"`
		ChatID        string `json:"chat_id"`
	}
	if err := event.Decode(&ref); err != nil {
		return event.Type
	}
	switch {
	case ref.AppointmentID != "":
		return ref.AppointmentID
	case ref.ChatID != "":
		return ref.ChatID
	case ref.DocumentID != "":
		return ref.DocumentID
	}
	return event.Type
}

// SplitBrokers parses a comma separated broker list.
func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
